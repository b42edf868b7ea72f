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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteCachingCopyOnWrite(t *testing.T) {
	parent := NewRoute("parent", "/", nil)
	parent.AddCaching(&CacheRule{Lifespan: 60})
	require.Len(t, parent.Caching, 1)

	child := NewRoute("child", "/child", parent)
	require.Len(t, child.Caching, 1, "child should inherit parent's rules")

	child.AddCaching(&CacheRule{Lifespan: 120})
	assert.Len(t, child.Caching, 2)
	assert.Len(t, parent.Caching, 1, "appending to child must not mutate parent")
}

func TestRouteResetCaching(t *testing.T) {
	parent := NewRoute("parent", "/", nil)
	parent.AddCaching(&CacheRule{Lifespan: 60})

	child := NewRoute("child", "/child", parent)
	child.ResetCaching()
	child.AddCaching(&CacheRule{Lifespan: 30})

	assert.Len(t, child.Caching, 1)
	assert.Len(t, parent.Caching, 1)
}
