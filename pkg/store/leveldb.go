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
	"time"

	"github.com/syndtr/goleveldb/leveldb"
)

var _ Store = (*LevelDBStore)(nil)

// LevelDBConfig holds the configuration for the leveldb store.
type LevelDBConfig struct {
	// Path is the directory the leveldb database lives in.
	Path string `yaml:"path"`
}

// LevelDBStore is a Store backed by an on-disk leveldb database, grounded
// on mchtech/httpcache's leveldbcache.Cache. leveldb has no native TTL, so
// expiry is tracked in the envelope and checked on Read.
type LevelDBStore struct {
	db  *leveldb.DB
	now func() time.Time
}

// NewLevelDBStore creates a new leveldb-backed store rooted at cfg.Path.
func NewLevelDBStore(cfg LevelDBConfig) (*LevelDBStore, error) {
	if len(cfg.Path) == 0 {
		return nil, errors.New("store: no leveldb path configured")
	}
	db, err := leveldb.OpenFile(cfg.Path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db, now: time.Now}, nil
}

// Read implements Store.
func (s *LevelDBStore) Read(_ context.Context, key string) ([]byte, time.Time, bool) {
	data, err := s.db.Get([]byte(key), nil)
	if err != nil {
		return nil, time.Time{}, false
	}
	e, err := decodeEnvelope(data)
	if err != nil {
		return nil, time.Time{}, false
	}
	if !e.Expires.IsZero() && e.Expires.Before(s.now()) {
		_ = s.db.Delete([]byte(key), nil)
		return nil, time.Time{}, false
	}
	return e.Value, e.Modified, true
}

// Write implements Store.
func (s *LevelDBStore) Write(ctx context.Context, key string, value []byte, modified time.Time, lifespan time.Duration, flags WriteFlags) error {
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
	return s.db.Put([]byte(key), data, nil)
}

// Remove implements Store.
func (s *LevelDBStore) Remove(_ context.Context, key string) error {
	return s.db.Delete([]byte(key), nil)
}

// Expire implements Store.
func (s *LevelDBStore) Expire(_ context.Context, key string, when time.Time) {
	data, err := s.db.Get([]byte(key), nil)
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
	_ = s.db.Put([]byte(key), encoded, nil)
}

// Close releases the underlying database handle.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
