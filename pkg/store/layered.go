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
	"context"
	"sync"
	"time"
)

var _ Store = (*Layered)(nil)

// Layered is a two-tiered Store, adding a local in-memory front cache on
// top of a remote or slower backend. Grounded on the teacher's two-tier
// provider.Cached. Writes always go to both tiers; reads are satisfied by
// the front tier first, falling through to the back tier and populating
// the front tier on a back-tier hit.
type Layered struct {
	front *MemoryStore
	back  Store
	ttl   time.Duration
	mu    sync.Mutex
}

// NewLayered wraps back with a front in-memory cache.
func NewLayered(front *MemoryStore, back Store, ttl time.Duration) *Layered {
	return &Layered{front: front, back: back, ttl: ttl}
}

// Read implements Store.
func (l *Layered) Read(ctx context.Context, key string) ([]byte, time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if val, modified, ok := l.front.Read(ctx, key); ok {
		return val, modified, true
	}

	val, modified, ok := l.back.Read(ctx, key)
	if !ok {
		return nil, time.Time{}, false
	}
	_ = l.front.Write(ctx, key, val, modified, l.ttl, WriteFlags{ResetModified: true})
	return val, modified, true
}

// Write implements Store.
func (l *Layered) Write(ctx context.Context, key string, value []byte, modified time.Time, lifespan time.Duration, flags WriteFlags) error {
	if err := l.back.Write(ctx, key, value, modified, lifespan, flags); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	frontTTL := lifespan
	if l.ttl > 0 && (frontTTL == 0 || l.ttl < frontTTL) {
		frontTTL = l.ttl
	}
	return l.front.Write(ctx, key, value, modified, frontTTL, flags)
}

// Remove implements Store.
func (l *Layered) Remove(ctx context.Context, key string) error {
	l.mu.Lock()
	_ = l.front.Remove(ctx, key)
	l.mu.Unlock()
	return l.back.Remove(ctx, key)
}

// Expire implements Store.
func (l *Layered) Expire(ctx context.Context, key string, when time.Time) {
	l.mu.Lock()
	l.front.Expire(ctx, key, when)
	l.mu.Unlock()
	l.back.Expire(ctx, key, when)
}

// Size returns the number of entries currently stored in the front tier.
func (l *Layered) Size() int {
	return l.front.Size()
}
