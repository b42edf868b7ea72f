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

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/nectarhttp/nectar/pkg/pipeline"
	"github.com/nectarhttp/nectar/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerMatchRejectsWithNoRule(t *testing.T) {
	st := newTestStore(t)
	h := NewHandler(st)
	route := newTestRoute("api", "/api")
	conn := newTestConnForPath("GET", "/api/widgets", nil)
	assert.Equal(t, pipeline.Reject, h.Match(conn, route, pipeline.Rx))
}

func TestHandlerMatchMissInstallsCaptureBuffer(t *testing.T) {
	st := newTestStore(t)
	h := NewHandler(st)
	route := newTestRoute("api", "/api")
	route.AddCaching(&pipeline.CacheRule{Lifespan: time.Minute})

	conn := newTestConnForPath("GET", "/api/widgets", nil)
	assert.Equal(t, pipeline.Reject, h.Match(conn, route, pipeline.Rx))
	require.NotNil(t, conn.Tx.CacheBuffer)
}

func TestHandlerMatchHitServesCachedContent(t *testing.T) {
	st := newTestStore(t)
	h := NewHandler(st)
	route := newTestRoute("api", "/api")
	rule := &pipeline.CacheRule{Lifespan: time.Minute}
	route.AddCaching(rule)

	conn := newTestConnForPath("GET", "/api/widgets", nil)
	key := BuildKey(conn, rule)
	require.NoError(t, st.Write(context.Background(), key, []byte("hello"), time.Now().Truncate(time.Second), time.Minute, store.WriteFlags{}))

	assert.Equal(t, pipeline.Accept, h.Match(conn, route, pipeline.Rx))
	assert.Equal(t, []byte("hello"), conn.Tx.CachedContent)
	assert.Equal(t, 200, conn.Tx.Status)
	assert.NotEmpty(t, conn.Tx.Header.Get(HeaderETag))
	assert.NotEmpty(t, conn.Tx.Header.Get(HeaderLastModified))
}

func TestHandlerMatchHitWithMatchingETagReturns304(t *testing.T) {
	st := newTestStore(t)
	h := NewHandler(st)
	route := newTestRoute("api", "/api")
	rule := &pipeline.CacheRule{Lifespan: time.Minute}
	route.AddCaching(rule)

	conn := newTestConnForPath("GET", "/api/widgets", nil)
	key := BuildKey(conn, rule)
	require.NoError(t, st.Write(context.Background(), key, []byte("hello"), time.Now().Truncate(time.Second), time.Minute, store.WriteFlags{}))
	conn.Rx.Header.Set(HeaderIfNoneMatch, ETag(key))

	assert.Equal(t, pipeline.Accept, h.Match(conn, route, pipeline.Rx))
	assert.Equal(t, 304, conn.Tx.Status)
}

func TestHandlerMatchHitWithStaleETagReturns200(t *testing.T) {
	st := newTestStore(t)
	h := NewHandler(st)
	route := newTestRoute("api", "/api")
	rule := &pipeline.CacheRule{Lifespan: time.Minute}
	route.AddCaching(rule)

	conn := newTestConnForPath("GET", "/api/widgets", nil)
	key := BuildKey(conn, rule)
	require.NoError(t, st.Write(context.Background(), key, []byte("hello"), time.Now().Truncate(time.Second), time.Minute, store.WriteFlags{}))
	conn.Rx.Header.Set(HeaderIfNoneMatch, `"stale"`)

	assert.Equal(t, pipeline.Accept, h.Match(conn, route, pipeline.Rx))
	assert.Equal(t, 200, conn.Tx.Status)
}

func TestHandlerMatchClientRejectsCacheControlMaxAgeZeroPrefix(t *testing.T) {
	st := newTestStore(t)
	h := NewHandler(st)
	route := newTestRoute("api", "/api")
	rule := &pipeline.CacheRule{Lifespan: time.Minute}
	route.AddCaching(rule)

	conn := newTestConnForPath("GET", "/api/widgets", nil)
	key := BuildKey(conn, rule)
	require.NoError(t, st.Write(context.Background(), key, []byte("hello"), time.Now().Truncate(time.Second), time.Minute, store.WriteFlags{}))
	conn.Rx.Header.Set(HeaderCacheControl, "max-age=0")

	assert.Equal(t, pipeline.Reject, h.Match(conn, route, pipeline.Rx))
	assert.Nil(t, conn.Tx.CachedContent)
}

func TestHandlerMatchCacheControlMaxAgeNotAtPrefixStillUsesCache(t *testing.T) {
	// "public, max-age=0" does NOT match the original's prefix check
	// (scontains(...) == 0 means occurs at position 0), unlike a plain
	// substring search, which this test pins down.
	st := newTestStore(t)
	h := NewHandler(st)
	route := newTestRoute("api", "/api")
	rule := &pipeline.CacheRule{Lifespan: time.Minute}
	route.AddCaching(rule)

	conn := newTestConnForPath("GET", "/api/widgets", nil)
	key := BuildKey(conn, rule)
	require.NoError(t, st.Write(context.Background(), key, []byte("hello"), time.Now().Truncate(time.Second), time.Minute, store.WriteFlags{}))
	conn.Rx.Header.Set(HeaderCacheControl, "public, max-age=0")

	assert.Equal(t, pipeline.Accept, h.Match(conn, route, pipeline.Rx))
}

func TestHandlerClientFlagAddsMaxAgeHeaderWithoutStoreLookup(t *testing.T) {
	st := newTestStore(t)
	h := NewHandler(st)
	route := newTestRoute("api", "/api")
	rule := &pipeline.CacheRule{Lifespan: 30 * time.Second, Flags: pipeline.CacheFlags{Client: true}}
	route.AddCaching(rule)

	conn := newTestConnForPath("GET", "/api/widgets", nil)
	assert.Equal(t, pipeline.Reject, h.Match(conn, route, pipeline.Rx))
	assert.Equal(t, "max-age=30", conn.Tx.Header.Get(HeaderCacheControl))
	assert.Nil(t, conn.Tx.CacheBuffer)
}

func TestHandlerManualFlagSkipsTransparentLookup(t *testing.T) {
	st := newTestStore(t)
	h := NewHandler(st)
	route := newTestRoute("api", "/api")
	rule := &pipeline.CacheRule{Lifespan: time.Minute, Flags: pipeline.CacheFlags{Manual: true}}
	route.AddCaching(rule)

	conn := newTestConnForPath("GET", "/api/widgets", nil)
	assert.Equal(t, pipeline.Reject, h.Match(conn, route, pipeline.Rx))
	assert.Nil(t, conn.Tx.CacheBuffer)
}

func TestHandlerProcessWritesCachedContentAndFinalizes(t *testing.T) {
	h := NewHandler(newTestStore(t))
	conn := newTestConnForPath("GET", "/api/widgets", nil)
	conn.Tx.CachedContent = []byte("cached body")
	q := pipeline.NewQueue(0)

	h.Process(conn, q)

	assert.True(t, conn.Tx.Finalized)
	first := q.Get()
	require.NotNil(t, first)
	assert.Equal(t, pipeline.Data, first.Kind)
	assert.Equal(t, "cached body", string(first.Content))
	second := q.Get()
	require.NotNil(t, second)
	assert.Equal(t, pipeline.End, second.Kind)
}

func TestHandlerProcessSuppressesBodyOn304(t *testing.T) {
	h := NewHandler(newTestStore(t))
	conn := newTestConnForPath("GET", "/api/widgets", nil)
	conn.Tx.CachedContent = []byte("cached body")
	conn.Tx.Status = 304
	q := pipeline.NewQueue(0)

	h.Process(conn, q)

	assert.True(t, conn.Tx.Finalized)
	first := q.Get()
	require.NotNil(t, first)
	assert.Equal(t, pipeline.End, first.Kind, "a 304 must carry no body packet")
}
