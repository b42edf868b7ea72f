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
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/peterbourgon/diskv"
)

var _ Store = (*DiskStore)(nil)

// DiskConfig holds the configuration for the disk store.
type DiskConfig struct {
	// BasePath is the directory cached entries are written under.
	BasePath string `yaml:"base_path"`

	// CacheSizeMax is the size, in bytes, of diskv's in-memory read cache.
	CacheSizeMax uint64 `yaml:"cache_size_max"`
}

// DefaultDiskCacheSizeMax matches mchtech/httpcache's diskcache default.
const DefaultDiskCacheSizeMax = 100 * 1024 * 1024

// DiskStore is a Store backed by the filesystem, grounded on
// mchtech/httpcache's diskcache.Cache. Like leveldb, diskv has no native
// TTL, so expiry lives in the envelope and is checked on Read.
type DiskStore struct {
	d   *diskv.Diskv
	now func() time.Time
}

// NewDiskStore creates a new disk-backed store rooted at cfg.BasePath.
func NewDiskStore(cfg DiskConfig) (*DiskStore, error) {
	if len(cfg.BasePath) == 0 {
		return nil, errors.New("store: no disk base path configured")
	}
	max := cfg.CacheSizeMax
	if max == 0 {
		max = DefaultDiskCacheSizeMax
	}
	d := diskv.New(diskv.Options{
		BasePath:     cfg.BasePath,
		CacheSizeMax: max,
	})
	return &DiskStore{d: d, now: time.Now}, nil
}

func diskKey(key string) string {
	h := md5.New()
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}

// Read implements Store.
func (s *DiskStore) Read(_ context.Context, key string) ([]byte, time.Time, bool) {
	data, err := s.d.Read(diskKey(key))
	if err != nil {
		return nil, time.Time{}, false
	}
	e, err := decodeEnvelope(data)
	if err != nil {
		return nil, time.Time{}, false
	}
	if !e.Expires.IsZero() && e.Expires.Before(s.now()) {
		_ = s.d.Erase(diskKey(key))
		return nil, time.Time{}, false
	}
	return e.Value, e.Modified, true
}

// Write implements Store.
func (s *DiskStore) Write(ctx context.Context, key string, value []byte, modified time.Time, lifespan time.Duration, flags WriteFlags) error {
	if !flags.ResetModified {
		if _, prevModified, ok := s.Read(ctx, key); ok && !prevModified.IsZero() && prevModified.After(modified) {
			modified = prevModified
		}
	}
	var expires time.Time
	if lifespan > 0 {
		expires = s.now().Add(lifespan)
	}
	data, err := encodeEnvelope(value, modified, expires)
	if err != nil {
		return err
	}
	return s.d.WriteStream(diskKey(key), bytes.NewReader(data), true)
}

// Remove implements Store.
func (s *DiskStore) Remove(_ context.Context, key string) error {
	return s.d.Erase(diskKey(key))
}

// Expire implements Store.
func (s *DiskStore) Expire(_ context.Context, key string, when time.Time) {
	data, err := s.d.Read(diskKey(key))
	if err != nil {
		return
	}
	e, err := decodeEnvelope(data)
	if err != nil {
		return
	}
	e.Expires = when
	encoded, err := encodeEnvelope(e.Value, e.Modified, e.Expires)
	if err != nil {
		return
	}
	_ = s.d.WriteStream(diskKey(key), bytes.NewReader(encoded), true)
}
