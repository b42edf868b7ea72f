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

import "time"

// CacheFlags mirrors the embedded server's HTTP_CACHE_* bit flags on a
// cache rule.
type CacheFlags struct {
	// IgnoreParams excludes query params from the cache key; the rule's
	// URIs must then be bare paths, not path?params.
	IgnoreParams bool
	// Manual disables transparent caching: only explicit WriteCached /
	// UpdateCache calls populate the store for this rule.
	Manual bool
	// Client instructs the handler to only add a Cache-Control response
	// header for the client's own cache, never consulting the store.
	Client bool
	// Reset, passed to AddCaching's caller only, discards the route's
	// inherited rule list instead of appending to it.
	Reset bool
}

// CacheRule is one route-scoped caching entry, matched against a request
// by method, URI, extension and MIME type, modeled on the embedded
// server's HttpCache struct.
type CacheRule struct {
	Methods    map[string]struct{}
	URIs       map[string]struct{}
	Extensions map[string]struct{}
	Types      map[string]struct{}
	Lifespan   time.Duration
	Flags      CacheFlags
}

// Route is a configured path prefix with its stage chain and cache rules.
// Caching is inherited copy-on-write from Parent, matching the embedded
// server's route->caching == route->parent->caching aliasing check.
type Route struct {
	Name   string
	Prefix string
	Parent *Route

	Stages  []Stage
	Caching []*CacheRule

	Host *Host

	// cachingInherited is true while Caching still aliases Parent's
	// slice; the next AddCaching call clones before appending.
	cachingInherited bool
	// stagesInherited is the same tracking for Stages.
	stagesInherited bool
}

// NewRoute creates a route with the given name and prefix. If parent is
// non-nil, the route inherits parent's stage chain and caching list by
// reference until AddCaching or AddStage forces a copy.
func NewRoute(name, prefix string, parent *Route) *Route {
	r := &Route{Name: name, Prefix: prefix, Parent: parent}
	if parent != nil {
		r.Stages = parent.Stages
		r.Caching = parent.Caching
		r.Host = parent.Host
		r.cachingInherited = true
		r.stagesInherited = true
	}
	return r
}

// AddCaching appends rule to the route's caching list. If the list is
// still aliased to the parent's, it is cloned first so the parent is left
// untouched, matching httpAddCache's clone-on-write behavior.
func (r *Route) AddCaching(rule *CacheRule) {
	if r.cachingInherited {
		cloned := make([]*CacheRule, len(r.Caching))
		copy(cloned, r.Caching)
		r.Caching = cloned
		r.cachingInherited = false
	}
	r.Caching = append(r.Caching, rule)
}

// ResetCaching clears the route's caching list, starting a fresh one
// rather than inheriting or appending to the parent's.
func (r *Route) ResetCaching() {
	r.Caching = nil
	r.cachingInherited = false
}

// AddStage appends a stage to the route's chain, cloning the chain first
// if it is still aliased to the parent's.
func (r *Route) AddStage(s Stage) {
	if r.stagesInherited {
		cloned := make([]Stage, len(r.Stages))
		copy(cloned, r.Stages)
		r.Stages = cloned
		r.stagesInherited = false
	}
	r.Stages = append(r.Stages, s)
}
