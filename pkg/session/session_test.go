// MIT License
//
// Copyright (c) 2023 kache.io
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package session

import (
	"context"
	"net/http"
	"testing"

	"github.com/nectarhttp/nectar/pkg/pipeline"
	"github.com/nectarhttp/nectar/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConn(ip string) *pipeline.Conn {
	return &pipeline.Conn{
		Rx:       &pipeline.Request{Header: make(http.Header)},
		Tx:       pipeline.NewResponse(),
		RemoteIP: ip,
	}
}

func newTestAllocator(t *testing.T, cfg Config) *Allocator {
	t.Helper()
	st, err := store.NewMemoryStore(store.MemoryConfig{})
	require.NoError(t, err)
	return NewAllocator(st, cfg)
}

func TestGetWithoutCookieAndNoCreateReturnsNil(t *testing.T) {
	a := newTestAllocator(t, Config{})
	conn := newTestConn("10.0.0.1")

	sess, err := a.Get(conn, false)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Equal(t, 0, a.ActiveCount())
}

func TestGetCreateSetsCookie(t *testing.T) {
	a := newTestAllocator(t, Config{})
	conn := newTestConn("10.0.0.1")

	sess, err := a.Get(conn, true)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, 1, a.ActiveCount())
	assert.Contains(t, conn.Tx.Header.Get("Set-Cookie"), CookieName)
}

func TestGetReusesExistingCookie(t *testing.T) {
	a := newTestAllocator(t, Config{})
	conn := newTestConn("10.0.0.1")
	first, err := a.Get(conn, true)
	require.NoError(t, err)

	conn2 := newTestConn("10.0.0.1")
	conn2.Rx.Header.Set("Cookie", CookieName+"="+first.ID())

	second, err := a.Get(conn2, false)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, 2, a.ActiveCount(), "each Get allocates its own handle even for the same id")
}

func TestAllocRejectsOverSessionMax(t *testing.T) {
	a := newTestAllocator(t, Config{SessionMax: 1})
	conn1 := newTestConn("10.0.0.1")
	_, err := a.Get(conn1, true)
	require.NoError(t, err)

	conn2 := newTestConn("10.0.0.2")
	_, err = a.Get(conn2, true)
	assert.ErrorIs(t, err, ErrTooManySessions)
}

func TestGetMemoizesSessionOnConn(t *testing.T) {
	a := newTestAllocator(t, Config{})
	conn := newTestConn("10.0.0.1")

	first, err := a.Get(conn, true)
	require.NoError(t, err)
	require.Equal(t, 1, a.ActiveCount())
	require.Len(t, conn.Tx.Header.Values("Set-Cookie"), 1)

	second, err := a.Get(conn, true)
	require.NoError(t, err)
	assert.Same(t, first, second, "a second Get on the same conn must return the memoized session")
	assert.Equal(t, 1, a.ActiveCount(), "the second Get must not allocate another slot")
	assert.Len(t, conn.Tx.Header.Values("Set-Cookie"), 1, "the second Get must not emit another Set-Cookie")
}

func TestDestroyClearsConnMemoSoGetReallocates(t *testing.T) {
	a := newTestAllocator(t, Config{})
	conn := newTestConn("10.0.0.1")

	sess, err := a.Get(conn, true)
	require.NoError(t, err)

	a.Destroy(conn, sess)
	assert.Nil(t, conn.Session)

	again, err := a.Get(conn, true)
	require.NoError(t, err)
	assert.NotSame(t, sess, again)
	assert.Equal(t, 1, a.ActiveCount())
}

func TestDestroyExpiresCookieAndDecrementsCount(t *testing.T) {
	a := newTestAllocator(t, Config{})
	conn := newTestConn("10.0.0.1")
	sess, err := a.Get(conn, true)
	require.NoError(t, err)
	require.Equal(t, 1, a.ActiveCount())

	a.Destroy(conn, sess)
	assert.Equal(t, 0, a.ActiveCount())
	cookies := conn.Tx.Header.Values("Set-Cookie")
	require.Len(t, cookies, 2)
	assert.Contains(t, cookies[1], "Max-Age=0")
}

func TestVarsRoundTrip(t *testing.T) {
	a := newTestAllocator(t, Config{})
	conn := newTestConn("10.0.0.1")
	ctx := context.Background()

	require.NoError(t, a.SetVar(ctx, conn, "user", "alice"))
	assert.Equal(t, "alice", a.GetVar(ctx, conn, "user", ""))

	require.NoError(t, a.RemoveVar(ctx, conn, "user"))
	assert.Equal(t, "default", a.GetVar(ctx, conn, "user", "default"))
}

func TestObjRoundTrip(t *testing.T) {
	a := newTestAllocator(t, Config{})
	conn := newTestConn("10.0.0.1")
	ctx := context.Background()

	type prefs struct {
		Theme string `json:"theme"`
	}
	require.NoError(t, a.SetObj(ctx, conn, "prefs", prefs{Theme: "dark"}))

	var got prefs
	ok, err := a.GetObj(ctx, conn, "prefs", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dark", got.Theme)
}

func TestSessionKeyBindsToIPUnlessWithoutIP(t *testing.T) {
	withIP := makeKey("abc", "10.0.0.1", "k", false)
	withoutIP := makeKey("abc", "10.0.0.1", "k", true)
	assert.Contains(t, withIP, "10.0.0.1")
	assert.NotContains(t, withoutIP, "10.0.0.1")
}

func TestParseCookieValueHandlesQuotedAndDelimiters(t *testing.T) {
	v, ok := parseCookieValue(CookieName+`="abc;def", other=1`, CookieName)
	require.True(t, ok)
	assert.Equal(t, "abc;def", v)

	v, ok = parseCookieValue("foo=bar; "+CookieName+"=plain; other=1", CookieName)
	require.True(t, ok)
	assert.Equal(t, "plain", v)

	_, ok = parseCookieValue("foo=bar", CookieName)
	assert.False(t, ok)
}
