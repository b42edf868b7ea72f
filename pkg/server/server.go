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

// Package server hosts the downstream listeners and drives the request
// pipeline: it matches a route, runs its Rx stages (the cache handler,
// when configured), proxies to the upstream on a miss, and runs the Tx
// stages (the cache filter) on the way back out.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/nectarhttp/nectar/pkg/config"
	"github.com/nectarhttp/nectar/pkg/pipeline"
	"github.com/nectarhttp/nectar/pkg/session"
	"github.com/nectarhttp/nectar/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout                = 30 * time.Second
	ServerGracefulShutdownTimeout = 5 * time.Second
)

var ErrMatchingRoute = fmt.Errorf("no matching route found")

// Server is the reverse proxy cache.
type Server struct {
	cfg *config.Configuration

	// store backs the cache rules installed on every route.
	store store.Store

	// sessions is the session allocator shared by every route.
	sessions *session.Allocator

	// routes holds the configured routes, in match-priority order.
	routes Routes

	// proxy forwards requests to a route's upstream on a cache miss.
	proxy *httputil.ReverseProxy

	// listeners holds the downstream listeners.
	listeners Listeners

	metrics *serverMetrics

	stopCh chan bool
}

// NewServer creates a new configured server.
func NewServer(cfg *config.Configuration, st store.Store, reg prometheus.Registerer) (*Server, error) {
	srv := &Server{
		cfg:      cfg,
		store:    st,
		sessions: session.NewAllocator(st, session.Config(cfg.Session)),
		metrics:  newServerMetrics(reg),
		stopCh:   make(chan bool, 1),
	}

	routes, err := NewRoutes(cfg.Routes, st)
	if err != nil {
		return nil, err
	}
	srv.routes = routes

	listeners, err := NewListeners(cfg.Listeners, srv)
	if err != nil {
		return nil, err
	}
	srv.listeners = listeners

	srv.proxy = &httputil.ReverseProxy{
		ErrorHandler: errorHandler,
		Director:     srv.Director(),
	}

	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := DefaultTimeout
	http.TimeoutHandler(
		http.HandlerFunc(s.serve),
		timeout,
		fmt.Sprintf("Request timeout after %v", timeout),
	).ServeHTTP(w, r)
}

// serve runs one request through the pipeline: match a route, run its Rx
// stages, and either serve the cached content directly or proxy to the
// upstream and run the Tx stages on the way back.
func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.routes.MatchRoute(r)
	if !ok {
		log.Error().Str("request", r.URL.String()).Msg("no matching route found for request")
		http.Error(w, ErrMatchingRoute.Error(), http.StatusServiceUnavailable)
		return
	}

	conn := s.buildConn(r, entry.route)

	if _, err := s.sessions.Get(conn, false); err != nil {
		log.Debug().Err(err).Msg("server: session lookup failed")
	}
	for _, v := range conn.Tx.Header.Values("Set-Cookie") {
		w.Header().Add("Set-Cookie", v)
	}

	for _, stg := range conn.Route.Stages {
		if stg.Match(conn, conn.Route, pipeline.Rx) != pipeline.Accept {
			continue
		}
		proc, ok := stg.(pipeline.Processor)
		if !ok {
			continue
		}
		s.metrics.cacheHits.Inc()
		q := pipeline.NewQueue(0)
		proc.Process(conn, q)
		s.flushQueue(w, conn, q)
		return
	}

	if conn.Tx.CacheBuffer != nil {
		s.metrics.cacheMisses.Inc()
	}

	if entry.upstream == nil {
		http.Error(w, "route has no upstream configured", http.StatusBadGateway)
		return
	}

	rec := newBodyRecorder(w)
	s.proxy.ServeHTTP(rec, r)
	conn.Tx.Status = rec.status

	for _, stg := range conn.Route.Stages {
		if stg.Match(conn, conn.Route, pipeline.Tx) != pipeline.Accept {
			continue
		}
		svc, ok := stg.(pipeline.OutgoingServicer)
		if !ok {
			continue
		}
		q := pipeline.NewQueue(0)
		q.Put(pipeline.NewDataPacket(rec.buf.Bytes()))
		q.Put(pipeline.NewEndPacket())
		next := pipeline.NewQueue(0)
		svc.OutgoingService(conn, q, next)
		s.metrics.cacheStores.Inc()
	}

	rec.flush()
}

// buildConn adapts an inbound *http.Request into a pipeline.Conn. It adds
// a "prefix=<route.Name>" request param, matching the auto-appended
// "?prefix=<routeName>" that cache.normalizeURI attaches to a bare
// (no-query) URI rule, so a rule registered against a bare URI actually
// matches requests routed to it (pipeline.CacheRule's URIs axis).
func (s *Server) buildConn(r *http.Request, route *pipeline.Route) *pipeline.Conn {
	params := r.URL.Query()
	params.Set("prefix", route.Name)
	conn := &pipeline.Conn{
		Rx: &pipeline.Request{
			Method:  r.Method,
			Path:    r.URL.Path,
			Params:  params,
			Header:  r.Header,
			Cookies: r.Cookies(),
		},
		Tx:       pipeline.NewResponse(),
		Route:    route,
		Host:     route.Host,
		RemoteIP: remoteIP(r),
	}
	return conn
}

// flushQueue writes a Rx-stage's produced packets (the cache handler's
// served content) to w, matching processCacheHandler's role on the wire.
func (s *Server) flushQueue(w http.ResponseWriter, conn *pipeline.Conn, q *pipeline.Queue) {
	status := conn.Tx.Status
	if status == 0 {
		status = http.StatusOK
	}
	for k, vv := range conn.Tx.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(status)
	for {
		p := q.Get()
		if p == nil {
			return
		}
		if p.Kind == pipeline.Data {
			if _, err := w.Write(p.Content); err != nil {
				log.Debug().Err(err).Msg("server: error writing cached response")
				return
			}
		}
	}
}

// errorHandler is the proxy error handler.
func errorHandler(w http.ResponseWriter, req *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, context.Canceled):
		ctx := req.Context()
		cErr := context.Cause(ctx)
		if errors.Is(cErr, ErrMatchingRoute) {
			status = http.StatusServiceUnavailable
			err = cErr
		} else { // client canceled request
			status = http.StatusBadGateway
		}
	case errors.Is(err, io.EOF):
		status = http.StatusBadGateway
	default: // connection error
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			status = http.StatusGatewayTimeout
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			// unknown host or connection refused
			status = http.StatusServiceUnavailable
		}
	}

	logger := log.Ctx(req.Context())
	logger.Debug().Err(err).Msgf("Proxy error: status %d - %s", status, err.Error())

	w.WriteHeader(status)
	if _, wErr := w.Write([]byte(err.Error())); wErr != nil {
		logger.Debug().Err(wErr).Msg("Error writing error")
	}
}

// Director matches the incoming request to a specific route and sets the
// request object to be sent to the matched upstream server.
func (s *Server) Director() func(req *http.Request) {
	return func(req *http.Request) {
		entry, ok := s.routes.MatchRoute(req)
		if !ok || entry.upstream == nil {
			log.Error().Str("request", req.URL.String()).Msg("no matching route found for request.")
			ctx, cancel := context.WithCancelCause(req.Context())
			*req = *req.WithContext(ctx)
			cancel(ErrMatchingRoute)
			return
		}
		upstream := entry.upstream

		req.URL.Scheme = upstream.Scheme
		req.URL.Host = upstream.Host
		req.URL.Path = singleJoiningSlash(upstream.Path, req.URL.Path)
		req.Host = req.URL.Host
		req.RequestURI = ""

		if _, ok := req.Header["User-Agent"]; !ok {
			req.Header.Set("User-Agent", "nectar")
		}
	}
}

// Start starts the server.
func (s *Server) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		logger := log.Ctx(ctx)
		logger.Info().Msg("Received shutdown...")
		logger.Info().Msg("Stopping server gracefully")
		s.Stop()
	}()

	log.Debug().Msg("Starting server ...")

	s.listeners.Start()
}

// Await blocks until SIGTERM or Stop() is called.
func (s *Server) Await() {
	<-s.stopCh
}

// Stop stops the server.
func (s *Server) Stop() {
	defer log.Info().Msg("Server stopped")

	s.listeners.Stop()

	s.stopCh <- true
}

// Shutdown the server, gracefully. Should be defered after Start().
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), ServerGracefulShutdownTimeout)
	defer cancel()

	go func(ctx context.Context) {
		<-ctx.Done()
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			panic("Shutdown timeout exeeded, killing nectar instance")
		}
	}(ctx)

	close(s.stopCh)
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
