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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var (
	ErrRedisConfigNoEndpoint = errors.New("store: no redis endpoint configured")
	ErrRedisMaxItemSize      = errors.New("store: max item size exceeded")
)

// RedisConfig holds the configuration for the Redis store.
type RedisConfig struct {
	// Endpoint holds the endpoint addresses of the Redis server, either a
	// single address or a comma separated list of host:port addresses of
	// cluster/sentinel nodes.
	Endpoint string `yaml:"endpoint"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// MaxItemSize is the maximum size of an item stored in Redis. Items
	// bigger than MaxItemSize are rejected. Zero means no limit.
	MaxItemSize int `yaml:"max_item_size"`
}

func (c *RedisConfig) validate() error {
	if len(c.Endpoint) == 0 {
		return ErrRedisConfigNoEndpoint
	}
	return nil
}

var _ Store = (*RedisStore)(nil)

// RedisStore is a Store backed by Redis, grounded on the teacher's
// redisClient. Values are gob envelopes so the modified timestamp
// survives the round trip through Redis.
type RedisStore struct {
	client redis.UniversalClient
	config RedisConfig
	name   string
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(name string, cfg RedisConfig) (*RedisStore, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opts := &redis.UniversalOptions{
		Addrs:    strings.Split(cfg.Endpoint, ","),
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	s := &RedisStore{
		client: redis.NewUniversalClient(opts),
		config: cfg,
		name:   name,
	}
	if err := s.client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Read implements Store.
func (s *RedisStore) Read(ctx context.Context, key string) ([]byte, time.Time, bool) {
	res, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Error().Err(err).Str("key", key).Msg("store: error reading from redis")
		}
		return nil, time.Time{}, false
	}
	e, err := decodeEnvelope(res)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("store: error decoding redis entry")
		return nil, time.Time{}, false
	}
	return e.Value, e.Modified, true
}

// Write implements Store.
func (s *RedisStore) Write(ctx context.Context, key string, value []byte, modified time.Time, lifespan time.Duration, flags WriteFlags) error {
	if s.config.MaxItemSize > 0 && len(value) > s.config.MaxItemSize {
		return ErrRedisMaxItemSize
	}
	if !flags.ResetModified {
		if _, prevModified, ok := s.Read(ctx, key); ok && !prevModified.IsZero() && prevModified.After(modified) {
			modified = prevModified
		}
	}
	data, err := encodeEnvelope(value, modified, time.Time{})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, lifespan).Err()
}

// Remove implements Store.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Expire implements Store.
func (s *RedisStore) Expire(ctx context.Context, key string, when time.Time) {
	ttl := time.Until(when)
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("store: error setting expiry in redis")
	}
}

// Close releases the underlying connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
