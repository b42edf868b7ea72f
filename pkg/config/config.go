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

// Package config loads and validates nectar's YAML configuration: routes
// with their cache rules, the blob store backend, the session allocator,
// and logging.
package config

import (
	"errors"
	"time"

	"github.com/nectarhttp/nectar/pkg/store"
)

var (
	errInvalidListenersConfig = errors.New("invalid listeners config")
	errInvalidRoutesConfig    = errors.New("invalid routes config")
)

// Configuration is the root configuration.
type Configuration struct {
	Listeners Listeners `yaml:"listeners"`
	Routes    Routes    `yaml:"routes"`

	Store   store.Config   `yaml:"store"`
	Session SessionConfig  `yaml:"session"`

	API *API `yaml:"api"`
	Log *Log `yaml:"logging"`
}

// Validate validates the configuration.
func (c *Configuration) Validate() error {
	return errors.Join(
		c.Listeners.Validate(),
		c.Routes.Validate(),
	)
}

// Listeners holds the listener configs.
type Listeners map[string]*Listener

// Listener holds the listener config.
type Listener struct {
	Addr string `yaml:"addr"`
}

// Validate validates the listener config.
func (l Listeners) Validate() error {
	if len(l) < 1 {
		return errInvalidListenersConfig
	}
	return nil
}

// Routes holds the configured routes, in match-priority order.
type Routes []*Route

// Validate validates the route config.
func (r Routes) Validate() error {
	if len(r) < 1 {
		return errInvalidRoutesConfig
	}
	for _, route := range r {
		if route.Name == "" {
			return errInvalidRoutesConfig
		}
	}
	return nil
}

// Route configures one route: where it proxies to, and the caching
// rules addCache should register on it (spec.md §4.5). Parent names the
// route this one inherits its stage chain and caching rules from,
// copy-on-write, matching httpAddCache's route->parent aliasing.
type Route struct {
	Name   string `yaml:"name"`
	Prefix string `yaml:"prefix"`
	Parent string `yaml:"parent,omitempty"`

	Upstream string `yaml:"upstream"`

	Caching []*CacheRuleConfig `yaml:"caching,omitempty"`

	// MimeTypes extends the route's MIME registry beyond the built-in
	// defaults, e.g. {"php": "application/x-httpd-php"}.
	MimeTypes map[string]string `yaml:"mime_types,omitempty"`
}

// CacheRuleConfig is the YAML shape of one addCache call (spec.md §4.5).
type CacheRuleConfig struct {
	Methods    string `yaml:"methods,omitempty"`
	URIs       string `yaml:"uris,omitempty"`
	Extensions string `yaml:"extensions,omitempty"`
	Types      string `yaml:"types,omitempty"`

	Lifespan time.Duration `yaml:"lifespan"`

	IgnoreParams bool `yaml:"ignore_params,omitempty"`
	Manual       bool `yaml:"manual,omitempty"`
	Client       bool `yaml:"client,omitempty"`
	Reset        bool `yaml:"reset,omitempty"`
}

// SessionConfig is the YAML shape of the session allocator's config
// (spec.md §4.6), reusing session.Config's field names.
type SessionConfig struct {
	SessionMax     int           `yaml:"session_max,omitempty"`
	SessionTimeout time.Duration `yaml:"session_timeout,omitempty"`
	WithoutIP      bool          `yaml:"without_ip,omitempty"`
}

// API holds the admin API configuration.
type API struct {
	Port   int    `yaml:"port"`
	Prefix string `yaml:"prefix,omitempty"`
	ACL    string `yaml:"acl,omitempty"`
	Debug  bool   `yaml:"debug,omitempty"`
}

// GetPrefix returns the API prefix as specified in the configuration.
// Default prefix is 'api'.
func (a *API) GetPrefix() string {
	prefix := "/api"
	if len(a.Prefix) > 0 {
		prefix = a.Prefix
	}
	return prefix
}

// Log holds the logger configuration.
type Log struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
	Color  bool   `yaml:"color,omitempty"`

	File       string `yaml:"file,omitempty"`
	MaxSize    int    `yaml:"max_size,omitempty"`
	MaxAge     int    `yaml:"max_age,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}
