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

package server

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/nectarhttp/nectar/pkg/cache"
	"github.com/nectarhttp/nectar/pkg/config"
	"github.com/nectarhttp/nectar/pkg/pipeline"
	"github.com/nectarhttp/nectar/pkg/store"
)

// Routes holds the configured routes in match-priority order, mirroring
// the embedded server's route list walked by httpRouteRequest.
type Routes []*RouteEntry

// NewRoutes builds one RouteEntry per configured route, wiring its cache
// rules via cache.AddCache, matching the teacher's NewTargets.
func NewRoutes(routesConfig config.Routes, st store.Store) (Routes, error) {
	byName := make(map[string]*RouteEntry, len(routesConfig))
	routes := make(Routes, 0, len(routesConfig))

	for _, rc := range routesConfig {
		var parent *pipeline.Route
		if rc.Parent != "" {
			pe, ok := byName[rc.Parent]
			if !ok {
				return nil, fmt.Errorf("route %q: parent %q not found (parents must be declared first)", rc.Name, rc.Parent)
			}
			parent = pe.route
		}

		route := pipeline.NewRoute(rc.Name, rc.Prefix, parent)
		if route.Host == nil {
			route.Host = pipeline.NewHost()
		}
		for ext, mimeType := range rc.MimeTypes {
			route.Host.AddMimeType(ext, mimeType)
		}

		var upstream *url.URL
		if rc.Upstream != "" {
			u, err := url.Parse(rc.Upstream)
			if err != nil {
				return nil, fmt.Errorf("route %q: invalid upstream: %w", rc.Name, err)
			}
			upstream = u
		}

		for _, crc := range rc.Caching {
			flags := pipeline.CacheFlags{
				IgnoreParams: crc.IgnoreParams,
				Manual:       crc.Manual,
				Client:       crc.Client,
				Reset:        crc.Reset,
			}
			cache.AddCache(st, route, crc.Methods, crc.URIs, crc.Extensions, crc.Types, crc.Lifespan, flags)
		}

		router := mux.NewRouter()
		router.PathPrefix(rc.Prefix)

		entry := &RouteEntry{
			name:     rc.Name,
			route:    route,
			upstream: upstream,
			router:   router,
		}
		byName[rc.Name] = entry
		routes = append(routes, entry)
	}

	return routes, nil
}

// MatchRoute finds the first route whose prefix matches req, matching
// Targets.MatchTarget.
func (rs Routes) MatchRoute(req *http.Request) (*RouteEntry, bool) {
	for _, r := range rs {
		m := &mux.RouteMatch{}
		if r.router.Match(req, m) {
			return r, true
		}
	}
	return nil, false
}

// RouteEntry pairs a pipeline.Route with the upstream it proxies to and
// the mux matcher used to select it, replacing the teacher's Target.
type RouteEntry struct {
	name     string
	route    *pipeline.Route
	upstream *url.URL
	router   *mux.Router
}
