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
	"errors"
	"time"

	"github.com/nectarhttp/nectar/pkg/pipeline"
	"github.com/nectarhttp/nectar/pkg/store"
)

// ErrNoCacheRule is returned by UpdateCache when route has no cache rule
// matching conn's request, matching httpUpdateCache's MPR_ERR_CANT_FIND.
var ErrNoCacheRule = errors.New("cache: no matching cache rule for route")

// WriteCached serves the cached entry for conn directly onto q, for use
// with Manual rules where the application decides when to consult the
// cache instead of the handler doing it transparently. It returns the
// number of content bytes written, or 0 on a miss, matching
// httpWriteCached.
func WriteCached(ctx context.Context, st store.Store, conn *pipeline.Conn, route *pipeline.Route, q *pipeline.Queue) int {
	rule := conn.Tx.CacheRule
	if rule == nil {
		rule = MatchRule(conn, route)
	}
	if rule == nil {
		return 0
	}
	key := BuildKey(conn, rule)
	content, modified, ok := st.Read(ctx, key)
	if !ok {
		return 0
	}
	conn.Tx.Header.Set(HeaderETag, ETag(key))
	conn.Tx.Header.Set(HeaderLastModified, formatHTTPTime(modified))
	conn.Tx.CacheBuffer = nil
	q.Put(pipeline.NewDataPacket(content))
	q.Put(pipeline.NewEndPacket())
	conn.Finalize()
	return len(content)
}

// UpdateCache writes data to the store under conn's matched cache rule,
// for application code that produces cacheable content outside the
// normal handler/filter capture path, matching httpUpdateCache.
func UpdateCache(ctx context.Context, st store.Store, conn *pipeline.Conn, route *pipeline.Route, data []byte) error {
	rule := MatchRule(conn, route)
	if rule == nil {
		return ErrNoCacheRule
	}
	key := BuildKey(conn, rule)
	return st.Write(ctx, key, data, time.Time{}, rule.Lifespan, store.WriteFlags{})
}
