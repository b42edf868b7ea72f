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

func TestWriteCachedMissReturnsZero(t *testing.T) {
	st := newTestStore(t)
	route := newTestRoute("api", "/api")
	route.AddCaching(&pipeline.CacheRule{Lifespan: time.Minute, Flags: pipeline.CacheFlags{Manual: true}})
	conn := newTestConnForPath("GET", "/api/widgets", nil)
	q := pipeline.NewQueue(0)

	n := WriteCached(context.Background(), st, conn, route, q)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, q.Len())
}

func TestWriteCachedHitWritesContentAndFinalizes(t *testing.T) {
	st := newTestStore(t)
	route := newTestRoute("api", "/api")
	rule := &pipeline.CacheRule{Lifespan: time.Minute, Flags: pipeline.CacheFlags{Manual: true}}
	route.AddCaching(rule)
	conn := newTestConnForPath("GET", "/api/widgets", nil)
	key := BuildKey(conn, rule)
	require.NoError(t, st.Write(context.Background(), key, []byte("payload"), time.Now(), time.Minute, store.WriteFlags{}))

	q := pipeline.NewQueue(0)
	n := WriteCached(context.Background(), st, conn, route, q)

	assert.Equal(t, len("payload"), n)
	assert.True(t, conn.Tx.Finalized)
	assert.Equal(t, 2, q.Len())
}

func TestUpdateCacheNoRuleReturnsError(t *testing.T) {
	st := newTestStore(t)
	route := newTestRoute("api", "/api")
	conn := newTestConnForPath("GET", "/api/widgets", nil)

	err := UpdateCache(context.Background(), st, conn, route, []byte("x"))
	assert.ErrorIs(t, err, ErrNoCacheRule)
}

func TestUpdateCacheWritesUnderMatchedRuleKey(t *testing.T) {
	st := newTestStore(t)
	route := newTestRoute("api", "/api")
	rule := &pipeline.CacheRule{Lifespan: time.Minute, Flags: pipeline.CacheFlags{Manual: true}}
	route.AddCaching(rule)
	conn := newTestConnForPath("GET", "/api/widgets", nil)

	require.NoError(t, UpdateCache(context.Background(), st, conn, route, []byte("fresh")))

	key := BuildKey(conn, rule)
	content, _, ok := st.Read(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, "fresh", string(content))
}
