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

// Package store implements the TTL blob store the cache and session
// subsystems are built on. It plays the role of the embedded server's
// mprCache: a key/value store keyed by opaque strings, where every value
// carries a "modified" timestamp alongside the bytes, since conditional GET
// (ETag / Last-Modified) needs it back out on Read.
package store

import (
	"context"
	"errors"
	"time"
)

// WriteFlags controls how Write behaves, mirroring HTTP_CACHE_RESET from
// the original cache manager: by default Write keeps the most recent
// modified timestamp recorded for a key even if an older value is written
// over it, unless ResetModified is set.
type WriteFlags struct {
	// ResetModified forces the modified timestamp to be overwritten even
	// if the new value's timestamp is older than what is stored.
	ResetModified bool
}

// Store is a TTL-scoped blob store: every value is stored next to the
// second-precision time it was produced, and expires on its own schedule
// independent of the modified timestamp.
type Store interface {
	// Read returns the value and modified time stored at key. ok is false
	// if the key is absent or has expired.
	Read(ctx context.Context, key string) (value []byte, modified time.Time, ok bool)

	// Write stores value under key with the given modified time and
	// lifespan. A zero lifespan means the entry never expires on its own.
	Write(ctx context.Context, key string, value []byte, modified time.Time, lifespan time.Duration, flags WriteFlags) error

	// Remove deletes key, if present.
	Remove(ctx context.Context, key string) error

	// Expire reschedules key's expiry to when, without touching its value
	// or modified time. Used to invalidate a cached entry immediately
	// (when = now) or to extend its life.
	Expire(ctx context.Context, key string, when time.Time)
}

// Backend names, selected via Config.Backend.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendMemcache = "memcache"
	BackendLevelDB  = "leveldb"
	BackendDisk     = "disk"
)

var ErrUnsupportedBackend = errors.New("store: unsupported backend")

// Config selects and configures a Store backend.
type Config struct {
	Backend string `yaml:"backend"`

	// Layered wraps the selected backend with an in-memory front cache,
	// grounded on the teacher's two-tier provider.Cached.
	Layered    bool   `yaml:"layered"`
	LayeredTTL string `yaml:"layered_ttl"`

	Memory   MemoryConfig   `yaml:"memory"`
	Redis    RedisConfig    `yaml:"redis"`
	Memcache MemcacheConfig `yaml:"memcache"`
	LevelDB  LevelDBConfig  `yaml:"leveldb"`
	Disk     DiskConfig     `yaml:"disk"`
}

// New creates a Store from the given configuration.
func New(name string, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendMemory, "":
		s, err = NewMemoryStore(cfg.Memory)
	case BackendRedis:
		s, err = NewRedisStore(name, cfg.Redis)
	case BackendMemcache:
		s, err = NewMemcacheStore(cfg.Memcache)
	case BackendLevelDB:
		s, err = NewLevelDBStore(cfg.LevelDB)
	case BackendDisk:
		s, err = NewDiskStore(cfg.Disk)
	default:
		return nil, ErrUnsupportedBackend
	}
	if err != nil {
		return nil, err
	}
	if cfg.Layered && cfg.Backend != BackendMemory && cfg.Backend != "" {
		ttl, perr := time.ParseDuration(cfg.LayeredTTL)
		if perr != nil {
			ttl = 120 * time.Second
		}
		front, ferr := NewMemoryStore(cfg.Memory)
		if ferr != nil {
			return nil, ferr
		}
		return NewLayered(front, s, ttl), nil
	}
	return s, nil
}

// envelope is the gob-encoded wrapper every backend persists, so the
// modified timestamp survives serialization at the backend boundary.
// Expires is only consulted by backends with no native TTL of their own
// (leveldb, disk); it is left zero by backends that expire keys natively
// (redis, memcache).
type envelope struct {
	Value    []byte
	Modified time.Time
	Expires  time.Time
}
