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
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

var _ Store = (*MemoryStore)(nil)

const (
	maxInt          = int(^uint(0) >> 1)
	sliceHeaderSize = 24
)

// MemoryConfig holds the in-memory store config.
type MemoryConfig struct {
	// MaxSize is the overall maximum number of bytes the store can hold.
	MaxSize uint64 `yaml:"max_size"`
	// MaxItemSize is the maximum size of a single item.
	MaxItemSize uint64 `yaml:"max_item_size"`
}

// DefaultMemoryConfig provides default config values for the store.
var DefaultMemoryConfig = MemoryConfig{
	MaxSize:     1 << 28, // 256 MiB
	MaxItemSize: 1 << 27, // 128 MiB
}

func (c *MemoryConfig) sanitize() {
	if c.MaxSize == 0 {
		c.MaxSize = DefaultMemoryConfig.MaxSize
	}
	if c.MaxItemSize == 0 {
		c.MaxItemSize = DefaultMemoryConfig.MaxItemSize
	}
}

// record is what the memory store keeps per key: the value, its modified
// time, and its own independent expiry.
type record struct {
	value    []byte
	modified time.Time
	expires  time.Time // zero means no expiry
}

// MemoryStore is a thread-safe, size-bounded LRU implementation of Store.
// Grounded on the teacher's inMemoryCache, generalized from plain
// bytes-with-ttl to value+modified+expiry triples.
type MemoryStore struct {
	mu sync.RWMutex

	inner *lru.Cache[string, record]

	maxSizeBytes     uint64
	maxItemSizeBytes uint64
	curSize          uint64

	now func() time.Time
}

// NewMemoryStore creates a new thread-safe LRU store.
func NewMemoryStore(cfg MemoryConfig) (*MemoryStore, error) {
	cfg.sanitize()
	if cfg.MaxItemSize > cfg.MaxSize {
		return nil, fmt.Errorf("store: max item size (%v) must not exceed overall size (%v)",
			cfg.MaxItemSize, cfg.MaxSize)
	}

	s := &MemoryStore{
		maxSizeBytes:     cfg.MaxSize,
		maxItemSizeBytes: cfg.MaxItemSize,
		now:              time.Now,
	}

	// Initialize LRU cache with a high size limit, since evictions are
	// managed internally based on item size.
	l, err := lru.NewWithEvict[string, record](maxInt, s.onEvict)
	if err != nil {
		return nil, err
	}
	s.inner = l
	return s, nil
}

func (s *MemoryStore) onEvict(_ string, r record) {
	s.curSize -= itemSize(r.value)
}

// Read implements Store.
func (s *MemoryStore) Read(_ context.Context, key string) ([]byte, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.inner.Get(key)
	if !ok {
		return nil, time.Time{}, false
	}
	if !r.expires.IsZero() && r.expires.Before(s.now()) {
		s._remove(key)
		return nil, time.Time{}, false
	}
	return r.value, r.modified, true
}

// Write implements Store.
func (s *MemoryStore) Write(_ context.Context, key string, value []byte, modified time.Time, lifespan time.Duration, flags WriteFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := itemSize(value)
	if size > s.maxItemSizeBytes {
		log.Debug().Str("key", key).Msg("store: item exceeds max item size, not stored")
		return nil
	}

	if prev, ok := s.inner.Get(key); ok {
		if !flags.ResetModified && !prev.modified.IsZero() && prev.modified.After(modified) {
			modified = prev.modified
		}
		s.curSize -= itemSize(prev.value)
	}
	s.ensureCapacity(size)

	var expires time.Time
	if lifespan > 0 {
		expires = s.now().Add(lifespan)
	}
	s.inner.Add(key, record{value: value, modified: modified, expires: expires})
	s.curSize += size
	return nil
}

func (s *MemoryStore) ensureCapacity(size uint64) {
	for s.curSize+size > s.maxSizeBytes {
		if _, _, ok := s.inner.RemoveOldest(); !ok {
			s.inner.Purge()
			s.curSize = 0
			return
		}
	}
}

// Remove implements Store.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s._remove(key)
	return nil
}

func (s *MemoryStore) _remove(key string) {
	s.inner.Remove(key)
}

// Expire implements Store.
func (s *MemoryStore) Expire(_ context.Context, key string, when time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.inner.Get(key)
	if !ok {
		return
	}
	r.expires = when
	s.inner.Add(key, r)
}

// Size returns the number of entries currently stored.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inner.Len()
}

func itemSize(b []byte) uint64 {
	return sliceHeaderSize + uint64(len(b))
}
