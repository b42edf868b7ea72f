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
	"testing"
	"time"

	"github.com/nectarhttp/nectar/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCacheRegistersStagesOnce(t *testing.T) {
	st := newTestStore(t)
	route := newTestRoute("api", "/api")

	AddCache(st, route, "GET", "", "", "", time.Minute, pipeline.CacheFlags{})
	require.Len(t, route.Stages, 2)
	assert.Equal(t, HandlerName, route.Stages[0].Name())
	assert.Equal(t, FilterName, route.Stages[1].Name())

	AddCache(st, route, "POST", "", "", "", time.Minute, pipeline.CacheFlags{})
	assert.Len(t, route.Stages, 2, "second call must not re-register the handler/filter")
	assert.Len(t, route.Caching, 2)
}

func TestAddCacheWildcardMethodDropsAxis(t *testing.T) {
	st := newTestStore(t)
	route := newTestRoute("api", "/api")
	AddCache(st, route, "*", "", "", "", time.Minute, pipeline.CacheFlags{})
	assert.Nil(t, route.Caching[0].Methods)
}

func TestAddCacheURIAutoAppendsPrefix(t *testing.T) {
	st := newTestStore(t)
	route := newTestRoute("api", "/api")
	AddCache(st, route, "", "/widgets", "", "", time.Minute, pipeline.CacheFlags{})
	_, ok := route.Caching[0].URIs["/widgets?prefix=api"]
	assert.True(t, ok)
}

func TestAddCacheURIWithExplicitQueryIsLeftAlone(t *testing.T) {
	st := newTestStore(t)
	route := newTestRoute("api", "/api")
	AddCache(st, route, "", "/widgets?sort=asc", "", "", time.Minute, pipeline.CacheFlags{})
	_, ok := route.Caching[0].URIs["/widgets?sort=asc"]
	assert.True(t, ok)
}

func TestAddCacheIgnoreParamsTruncatesAtQuestionMark(t *testing.T) {
	st := newTestStore(t)
	route := newTestRoute("api", "/api")
	AddCache(st, route, "", "/widgets?sort=asc", "", "", time.Minute, pipeline.CacheFlags{IgnoreParams: true})
	_, ok := route.Caching[0].URIs["/widgets"]
	assert.True(t, ok)
}

func TestAddCacheResetDiscardsInheritedRules(t *testing.T) {
	st := newTestStore(t)
	parent := newTestRoute("api", "/api")
	AddCache(st, parent, "GET", "", "", "", time.Minute, pipeline.CacheFlags{})

	child := pipeline.NewRoute("api.v2", "/api/v2", parent)
	AddCache(st, child, "POST", "", "", "", time.Minute, pipeline.CacheFlags{Reset: true})

	require.Len(t, child.Caching, 1)
	_, hasGet := child.Caching[0].Methods["GET"]
	assert.False(t, hasGet)
	assert.Len(t, parent.Caching, 1, "resetting the child must not mutate the parent's rules")
}

func TestAddCacheExtensionsTakePriorityOverTypes(t *testing.T) {
	st := newTestStore(t)
	route := newTestRoute("static", "/static")
	AddCache(st, route, "", "", "css", "text/css", time.Minute, pipeline.CacheFlags{})
	assert.NotNil(t, route.Caching[0].Extensions)
	assert.Nil(t, route.Caching[0].Types)
}
