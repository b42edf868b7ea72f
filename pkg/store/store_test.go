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

package store

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToMemory(t *testing.T) {
	s, err := New("test", Config{})
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)
}

func TestNewUnsupportedBackend(t *testing.T) {
	_, err := New("test", Config{Backend: "bogus"})
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}

func TestNewLayeredWrapsRemoteBackend(t *testing.T) {
	s := miniredis.RunT(t)
	store, err := New("test", Config{
		Backend:    BackendRedis,
		Layered:    true,
		LayeredTTL: "30s",
		Redis:      RedisConfig{Endpoint: s.Addr()},
	})
	require.NoError(t, err)
	_, ok := store.(*Layered)
	assert.True(t, ok)
}
