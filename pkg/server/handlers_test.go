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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nectarhttp/nectar/pkg/config"
	"github.com/nectarhttp/nectar/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyPurgeHandlerRequiresKey(t *testing.T) {
	srv := newTestServer(t, "http://upstream.invalid", nil)

	req := httptest.NewRequest(http.MethodDelete, "/cache/keys/purge", nil)
	rr := httptest.NewRecorder()
	srv.CacheKeyPurgeHandler(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCacheKeyPurgeHandlerRemovesGivenKey(t *testing.T) {
	srv := newTestServer(t, "http://upstream.invalid", nil)
	require.NoError(t, srv.store.Write(context.Background(), "mykey", []byte("v"), time.Now(), time.Minute, store.WriteFlags{}))

	req := httptest.NewRequest(http.MethodDelete, "/cache/keys/purge?key=mykey", nil)
	rr := httptest.NewRecorder()
	srv.CacheKeyPurgeHandler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	_, _, ok := srv.store.Read(context.Background(), "mykey")
	assert.False(t, ok)
}

func TestSessionsCountHandlerRendersActiveCount(t *testing.T) {
	srv := newTestServer(t, "http://upstream.invalid", nil)

	req := httptest.NewRequest(http.MethodGet, "/sessions/count", nil)
	rr := httptest.NewRecorder()
	srv.SessionsCountHandler(rr, req)

	var body map[string]int
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, 0, body["active"])
}

func TestRoutesHandlerRendersConfiguredRoutes(t *testing.T) {
	srv := newTestServer(t, "http://upstream.invalid", []*config.CacheRuleConfig{
		{Extensions: "css", Lifespan: time.Minute},
	})

	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	rr := httptest.NewRecorder()
	srv.RoutesHandler(rr, req)

	var views []routeView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.Equal(t, "default", views[0].Name)
	assert.Equal(t, 1, views[0].CacheRules)
	assert.Equal(t, 2, views[0].StageCount) // handler + filter
}
