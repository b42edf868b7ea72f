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

package server

import (
	"bytes"
	"net/http"
)

// bodyRecorder captures an upstream response in full before it reaches
// the client, so the Tx-side cache filter can be handed the complete body
// as a single Data packet instead of a stream it would have to tee live.
type bodyRecorder struct {
	dest   http.ResponseWriter
	header http.Header
	status int
	buf    bytes.Buffer
}

func newBodyRecorder(dest http.ResponseWriter) *bodyRecorder {
	return &bodyRecorder{dest: dest, header: make(http.Header), status: http.StatusOK}
}

func (r *bodyRecorder) Header() http.Header { return r.header }

func (r *bodyRecorder) Write(b []byte) (int, error) {
	return r.buf.Write(b)
}

func (r *bodyRecorder) WriteHeader(status int) {
	r.status = status
}

// flush copies the captured header, status and body to the real
// ResponseWriter, once any Tx stage has had a chance to observe them.
func (r *bodyRecorder) flush() {
	dst := r.dest.Header()
	for k, vv := range r.header {
		dst[k] = vv
	}
	r.dest.WriteHeader(r.status)
	_, _ = r.dest.Write(r.buf.Bytes())
}
