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
	"net/http"
	"net/url"
	"testing"

	"github.com/nectarhttp/nectar/pkg/pipeline"
	"github.com/nectarhttp/nectar/pkg/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewMemoryStore(store.MemoryConfig{})
	require.NoError(t, err)
	return st
}

func newTestRoute(name, prefix string) *pipeline.Route {
	r := pipeline.NewRoute(name, prefix, nil)
	r.Host = pipeline.NewHost()
	return r
}

func newTestConnForPath(method, path string, params url.Values) *pipeline.Conn {
	route := newTestRoute("default", "/")
	return &pipeline.Conn{
		Rx: &pipeline.Request{
			Method: method,
			Path:   path,
			Params: params,
			Header: make(http.Header),
		},
		Tx:    pipeline.NewResponse(),
		Route: route,
		Host:  route.Host,
	}
}
