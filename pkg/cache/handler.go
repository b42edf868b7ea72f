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
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/nectarhttp/nectar/pkg/pipeline"
	"github.com/nectarhttp/nectar/pkg/store"
	"github.com/rs/zerolog/log"
)

// HandlerName is the stage name registered on a route by AddCache,
// matching the embedded server's "cacheHandler".
const HandlerName = "cacheHandler"

// Handler is the cache handler stage: it serves a cached response body
// directly when fetchCachedResponse finds acceptable content, matching
// matchCacheHandler/processCacheHandler.
type Handler struct {
	Store store.Store
}

// NewHandler creates a cache handler backed by st.
func NewHandler(st store.Store) *Handler {
	return &Handler{Store: st}
}

func (h *Handler) Name() string { return HandlerName }

// Match runs C2, then fetchCachedResponse. Accept means Process should
// serve conn.Tx.CachedContent; Reject means the real handler runs, though
// fetchCachedResponse may have installed conn.Tx.CacheBuffer as a
// side-effect so the cache filter captures the real handler's output.
func (h *Handler) Match(conn *pipeline.Conn, route *pipeline.Route, dir pipeline.Direction) pipeline.Disposition {
	rule := MatchRule(conn, route)
	if rule == nil {
		return pipeline.Reject
	}
	conn.Tx.CacheRule = rule
	if h.fetchCachedResponse(conn, rule) {
		return pipeline.Accept
	}
	return pipeline.Reject
}

// Process writes the cached content if fetchCachedResponse found a hit,
// then finalizes the response, matching processCacheHandler. A 304
// response never carries a body (S2): the original relies on the
// transport layer to strip it, but nectar's flushQueue writes whatever
// Process queues verbatim, so the body is suppressed here instead.
func (h *Handler) Process(conn *pipeline.Conn, q *pipeline.Queue) {
	if conn.Tx.CachedContent != nil && conn.Tx.Status != 304 {
		q.Put(pipeline.NewDataPacket(conn.Tx.CachedContent))
	}
	q.Put(pipeline.NewEndPacket())
	conn.Finalize()
}

// fetchCachedResponse is the policy heart of the cache handler, matching
// the C function of the same name.
func (h *Handler) fetchCachedResponse(conn *pipeline.Conn, rule *pipeline.CacheRule) bool {
	if rule.Flags.Client {
		addClientCacheControl(conn, rule)
		return false
	}
	if rule.Flags.Manual {
		return false
	}
	return h.fetchTransparent(conn, rule)
}

// addClientCacheControl appends a max-age directive to the response's
// Cache-Control header if one isn't already present, matching the
// HTTP_CACHE_CLIENT branch of fetchCachedResponse.
func addClientCacheControl(conn *pipeline.Conn, rule *pipeline.CacheRule) {
	maxAge := int(rule.Lifespan.Seconds())
	existing := conn.Tx.Header.Get(HeaderCacheControl)
	if existing == "" {
		conn.Tx.Header.Set(HeaderCacheControl, fmt.Sprintf("max-age=%d", maxAge))
		return
	}
	if !strings.Contains(existing, "max-age") {
		conn.Tx.Header.Set(HeaderCacheControl, existing+fmt.Sprintf(", max-age=%d", maxAge))
	}
}

func (h *Handler) fetchTransparent(conn *pipeline.Conn, rule *pipeline.CacheRule) bool {
	key := BuildKey(conn, rule)

	if value := conn.Rx.Header.Get(HeaderCacheControl); value != "" {
		// scontains(value, needle, -1) == 0 in the original means the
		// needle occurs AT POSITION 0 of value - a prefix check, not "value
		// contains needle anywhere" - so this is reproduced as HasPrefix,
		// not strings.Contains.
		if strings.HasPrefix(value, "max-age=0") || strings.HasPrefix(value, "no-cache") {
			log.Debug().Str("cache-control", value).Msg("cacheHandler: client reload rejects cached content")
			conn.Tx.CacheBuffer = &bytes.Buffer{}
			return false
		}
	}

	content, modified, ok := h.Store.Read(context.Background(), key)
	if !ok {
		conn.Tx.CacheBuffer = &bytes.Buffer{}
		return false
	}

	tag := ETag(key)
	cacheOk := true
	canUseClientCache := false

	if inm := conn.Rx.Header.Get(HeaderIfNoneMatch); inm != "" {
		canUseClientCache = true
		if inm != tag {
			cacheOk = false
		}
	}
	if cacheOk {
		if ims := conn.Rx.Header.Get(HeaderIfModifiedSince); ims != "" {
			canUseClientCache = true
			if when, ok := parseHTTPTime(ims); ok && modified.After(when) {
				cacheOk = false
			}
		}
	}

	status := 200
	if canUseClientCache && cacheOk {
		status = 304
	}
	conn.Tx.Status = status
	log.Debug().Str("key", key).Int("status", status).Msg("cacheHandler: use cached content")

	conn.Tx.Header.Set(HeaderETag, tag)
	conn.Tx.Header.Set(HeaderLastModified, formatHTTPTime(modified))
	conn.Tx.CachedContent = content
	return true
}
