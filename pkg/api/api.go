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

// Package api exposes the admin HTTP surface: version info, debug
// profiling (when enabled) and, once wired to a *server.Server, the
// cache purge, route and session inspection endpoints.
package api

import (
	"fmt"
	"net/http"
	"path"

	"github.com/gorilla/mux"
	"github.com/nectarhttp/nectar/pkg/config"
	"github.com/nectarhttp/nectar/pkg/server"
	"github.com/nectarhttp/nectar/pkg/utils/version"
	"github.com/rs/zerolog/log"
)

// API is the root API structure.
type API struct {
	// config is the API configuration.
	config config.API

	// router is the API Router.
	router *mux.Router

	// filter is the access control list gating every registered route.
	filter *IPFilter
}

// New creates a new API. srv may be nil, in which case only the version
// (and, if enabled, debug) routes are registered.
func New(cfg config.API, srv *server.Server) (*API, error) {
	filter, err := NewIPFilter(cfg.ACL)
	if err != nil {
		return nil, err
	}

	api := &API{
		config: cfg,
		router: mux.NewRouter(),
		filter: filter,
	}

	api.RegisterRoute(http.MethodGet, "/version", version.Handler)

	if cfg.Debug {
		DebugHandler{}.Append(api.router)
	}

	if srv != nil {
		api.RegisterProxy(srv)
	}

	return api, nil
}

// Run starts the API server.
func (a *API) Run() {
	addr := fmt.Sprintf(":%d", a.config.Port)
	log.Debug().Str("addr", addr).Str("prefix", a.config.GetPrefix()).Msg("Starting API server")

	if err := http.ListenAndServe(addr, a); err != nil {
		log.Fatal().Err(err).Msg("Starting API server")
	}
}

// ServeHTTP serves the API requests.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// RegisterRoute registers a new handler at the API's prefix joined with
// path, gated by the access control filter.
func (a *API) RegisterRoute(method string, p string, handler http.HandlerFunc) {
	full := path.Join(a.config.GetPrefix(), p)
	a.router.HandleFunc(full, a.filter.Wrap(handler)).Methods(method)
}

// RegisterProxy registers the cache, route and session inspection routes
// backed by the running server.
func (a *API) RegisterProxy(srv *server.Server) {
	a.RegisterRoute(http.MethodDelete, "/cache/keys/purge", srv.CacheKeyPurgeHandler)
	a.RegisterRoute(http.MethodGet, "/routes", srv.RoutesHandler)
	a.RegisterRoute(http.MethodGet, "/sessions/count", srv.SessionsCountHandler)
}
