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
	"time"

	"github.com/nectarhttp/nectar/pkg/pipeline"
	"github.com/nectarhttp/nectar/pkg/store"
	"github.com/rs/zerolog/log"
)

// FilterName is the stage name registered on a route by AddCache,
// matching the embedded server's "cacheFilter".
const FilterName = "cacheFilter"

// Filter is the cache filter stage: it tees the outgoing response body
// into conn.Tx.CacheBuffer and commits it to the store once the response
// finalizes, matching matchCacheFilter/outgoingCacheFilterService.
type Filter struct {
	Store store.Store
}

// NewFilter creates a cache filter backed by st.
func NewFilter(st store.Store) *Filter {
	return &Filter{Store: st}
}

func (f *Filter) Name() string { return FilterName }

// Match accepts only on the transmit side, and only once the handler has
// installed a capture buffer, matching matchCacheFilter.
func (f *Filter) Match(conn *pipeline.Conn, route *pipeline.Route, dir pipeline.Direction) pipeline.Disposition {
	if dir == pipeline.Tx && conn.Tx.CacheBuffer != nil {
		return pipeline.Accept
	}
	return pipeline.Reject
}

// OutgoingService drains q, teeing data packets into conn.Tx.CacheBuffer
// and committing on the end packet, matching outgoingCacheFilterService.
// It respects back-pressure from next: a packet that next can't accept
// yet is put back, and the loop returns to be retried later rather than
// blocking.
func (f *Filter) OutgoingService(conn *pipeline.Conn, q, next *pipeline.Queue) {
	for {
		p := q.Get()
		if p == nil {
			return
		}
		if !q.WillNextAccept(next) {
			q.PutBack(p)
			return
		}
		switch p.Kind {
		case pipeline.Data:
			conn.Tx.CacheBuffer.Write(p.Content)
		case pipeline.End:
			f.saveCachedResponse(conn)
		}
		q.PutToNext(next, p)
	}
}

// saveCachedResponse commits the captured buffer to the store, matching
// the function of the same name.
func (f *Filter) saveCachedResponse(conn *pipeline.Conn) {
	buf := conn.Tx.CacheBuffer
	conn.Tx.CacheBuffer = nil
	rule := conn.Tx.CacheRule
	if rule == nil {
		log.Warn().Msg("cacheFilter: no matched rule to save cached response under")
		return
	}
	// Truncated to one-second resolution: If-Modified-Since headers carry
	// only second precision, so a sub-second modified time would make
	// every conditional revalidation of this entry a spurious miss.
	modified := time.Now().Truncate(time.Second)
	key := BuildKey(conn, rule)
	if err := f.Store.Write(context.Background(), key, buf.Bytes(), modified, rule.Lifespan, store.WriteFlags{}); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cacheFilter: failed to save cached response")
	}
}
