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
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

var _ Store = (*MemcacheStore)(nil)

// MemcacheConfig holds the configuration for the memcache store.
type MemcacheConfig struct {
	// Servers is a comma separated list of memcache server addresses.
	Servers string `yaml:"servers"`
}

// memcacheKeyPrefix namespaces keys to avoid collisions with other data
// stored in the same memcache instance.
const memcacheKeyPrefix = "nectar:"

func memcacheKey(key string) string {
	return memcacheKeyPrefix + key
}

// MemcacheStore is a Store backed by memcache, grounded on
// mchtech/httpcache's memcache.Cache.
type MemcacheStore struct {
	client *memcache.Client
}

// NewMemcacheStore creates a new memcache-backed store.
func NewMemcacheStore(cfg MemcacheConfig) (*MemcacheStore, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("store: no memcache servers configured")
	}
	return &MemcacheStore{client: memcache.New(strings.Split(cfg.Servers, ",")...)}, nil
}

// Read implements Store.
func (s *MemcacheStore) Read(_ context.Context, key string) ([]byte, time.Time, bool) {
	item, err := s.client.Get(memcacheKey(key))
	if err != nil {
		return nil, time.Time{}, false
	}
	e, err := decodeEnvelope(item.Value)
	if err != nil {
		return nil, time.Time{}, false
	}
	return e.Value, e.Modified, true
}

// Write implements Store.
func (s *MemcacheStore) Write(ctx context.Context, key string, value []byte, modified time.Time, lifespan time.Duration, flags WriteFlags) error {
	if !flags.ResetModified {
		if _, prevModified, ok := s.Read(ctx, key); ok && !prevModified.IsZero() && prevModified.After(modified) {
			modified = prevModified
		}
	}
	data, err := encodeEnvelope(value, modified, time.Time{})
	if err != nil {
		return err
	}
	return s.client.Set(&memcache.Item{
		Key:        memcacheKey(key),
		Value:      data,
		Expiration: int32(lifespan.Seconds()),
	})
}

// Remove implements Store.
func (s *MemcacheStore) Remove(_ context.Context, key string) error {
	err := s.client.Delete(memcacheKey(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// Expire implements Store. memcache's Touch takes seconds-from-now and
// treats 0 as "never expire", so a when less than a second away deletes
// the key instead.
func (s *MemcacheStore) Expire(_ context.Context, key string, when time.Time) {
	seconds := int32(time.Until(when).Seconds())
	if seconds <= 0 {
		_ = s.client.Delete(memcacheKey(key))
		return
	}
	_ = s.client.Touch(memcacheKey(key), seconds)
}
