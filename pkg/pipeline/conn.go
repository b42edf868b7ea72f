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

package pipeline

import (
	"bytes"
	"net/http"
	"net/url"
)

// Request is the inbound side of a Conn, modeled on the embedded server's
// HttpRx.
type Request struct {
	Method  string
	Path    string // pathInfo, without the query string
	Params  url.Values
	Header  http.Header
	Cookies []*http.Cookie
}

// Ext returns the request path's file extension, without the leading
// dot, matching the embedded server's tx->ext.
func (r *Request) Ext() string {
	i := len(r.Path) - 1
	for ; i >= 0; i-- {
		if r.Path[i] == '.' {
			return r.Path[i+1:]
		}
		if r.Path[i] == '/' {
			break
		}
	}
	return ""
}

// ParamsString reassembles the request params into a stable "k=v&k2=v2"
// string, for use in cache keys, matching httpGetParamsString.
func (r *Request) ParamsString() string {
	if len(r.Params) == 0 {
		return ""
	}
	return r.Params.Encode()
}

// Response is the outbound side of a Conn, modeled on the embedded
// server's HttpTx plus the cache-specific fields spec.md's
// RequestCacheState adds (CacheBuffer, CachedContent).
type Response struct {
	Status    int
	Header    http.Header
	Finalized bool

	// CacheBuffer, when non-nil, is where the cache filter captures
	// outgoing body bytes for storage once the response finalizes.
	CacheBuffer *bytes.Buffer

	// CachedContent, when non-nil, is the body the cache handler is
	// about to serve from the store instead of running the real handler.
	CachedContent []byte

	// CacheRule is the rule the cache handler matched for this response,
	// matching the embedded server's tx->cacheControl. The cache filter
	// and the explicit write helpers reuse it instead of re-matching.
	CacheRule *CacheRule
}

// NewResponse creates a zero-value Response ready for use.
func NewResponse() *Response {
	return &Response{Header: make(http.Header)}
}

// Conn is one request/response exchange flowing through the pipeline,
// modeled on the embedded server's HttpConn.
type Conn struct {
	Rx *Request
	Tx *Response

	Route *Route
	Host  *Host

	RemoteIP string

	// Session memoizes the conn's session handle once allocated, so a
	// conn that already carries one (the embedded server's rx->session)
	// is returned as-is by repeated lookups within the same request
	// instead of being re-allocated. Typed as any rather than a concrete
	// *session.Session to avoid an import cycle (pkg/session already
	// imports pkg/pipeline); pkg/session type-asserts it.
	Session any
}

// Finalize marks the response as complete, matching httpFinalize.
func (c *Conn) Finalize() {
	c.Tx.Finalized = true
}
