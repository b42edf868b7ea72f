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

package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nectarhttp/nectar/pkg/pipeline"
	"github.com/nectarhttp/nectar/pkg/store"
	"github.com/rs/zerolog/log"
)

// ErrTooManySessions is returned by Get (and Create) when the active session count
// has reached Config.SessionMax, matching httpAllocSession's 503 branch.
var ErrTooManySessions = errors.New("session: too many active sessions")

// Config controls session lifetime and limits.
type Config struct {
	// SessionMax is the maximum number of concurrently active sessions.
	SessionMax int `yaml:"session_max"`
	// SessionTimeout is how long an idle session's variables live in the
	// store before expiring.
	SessionTimeout time.Duration `yaml:"session_timeout"`
	// WithoutIP disables binding session keys to the client IP address.
	WithoutIP bool `yaml:"without_ip"`
}

// DefaultConfig matches the embedded server's conservative defaults.
var DefaultConfig = Config{
	SessionMax:     2000,
	SessionTimeout: 30 * time.Minute,
}

func (c *Config) sanitize() {
	if c.SessionMax == 0 {
		c.SessionMax = DefaultConfig.SessionMax
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = DefaultConfig.SessionTimeout
	}
}

// Session is one client's server-side session state handle. It has no
// data of its own beyond its identity; variables live in the Store under
// keys scoped by makeKey.
type Session struct {
	id        string
	ip        string
	lifespan  time.Duration
	withoutIP bool

	allocator *Allocator
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string {
	return s.id
}

// Allocator creates, looks up and destroys sessions, and guards the
// active session count against Config.SessionMax, matching the embedded
// server's global activeSessions counter and sessionMax limit.
type Allocator struct {
	mu     sync.Mutex
	active int

	cfg     Config
	store   store.Store
	counter uint32
}

// NewAllocator creates an Allocator backed by st.
func NewAllocator(st store.Store, cfg Config) *Allocator {
	cfg.sanitize()
	return &Allocator{cfg: cfg, store: st}
}

// ActiveCount returns the number of currently active sessions.
func (a *Allocator) ActiveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// alloc reserves a session slot and builds a Session, generating a new ID
// if id is empty. The active-count check and increment happen under the
// same lock to avoid the time-of-check/time-of-use race a bare atomic
// counter would have between checking the limit and incrementing it.
func (a *Allocator) alloc(id, ip string) (*Session, error) {
	a.mu.Lock()
	if a.active+1 > a.cfg.SessionMax {
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: %d/%d", ErrTooManySessions, a.active, a.cfg.SessionMax)
	}
	a.active++
	counter := atomic.AddUint32(&a.counter, 1)
	a.mu.Unlock()

	if id == "" {
		id = newID(counter, time.Now())
	}
	return &Session{
		id:        id,
		ip:        ip,
		lifespan:  a.cfg.SessionTimeout,
		withoutIP: a.cfg.WithoutIP,
		allocator: a,
	}, nil
}

// Get returns conn's session, matching httpGetSession's first check: if
// conn already carries a session pointer (set by an earlier Get/Create on
// the same request), that handle is returned as-is with no further alloc
// or Set-Cookie. Otherwise, if no cookie is present and create is false,
// it returns (nil, nil) - no session, no error. If create is true, a new
// session is allocated and a Set-Cookie header is appended to conn.Tx.
func (a *Allocator) Get(conn *pipeline.Conn, create bool) (*Session, error) {
	if conn.Session != nil {
		if sess, ok := conn.Session.(*Session); ok {
			return sess, nil
		}
	}

	id, hasCookie := lookupSessionCookie(conn)
	if !hasCookie && !create {
		return nil, nil
	}
	sess, err := a.alloc(id, conn.RemoteIP)
	if err != nil {
		return nil, err
	}
	if !hasCookie {
		setSessionCookie(conn, sess.id, 0)
	}
	conn.Session = sess
	return sess, nil
}

// Create always returns a fresh session, destroying any existing one
// first, matching httpCreateSession.
func (a *Allocator) Create(conn *pipeline.Conn) (*Session, error) {
	if existing, _ := a.Get(conn, false); existing != nil {
		a.Destroy(conn, existing)
	}
	return a.Get(conn, true)
}

// Destroy releases sess's slot and expires its cookie in the client. The
// embedded server's httpDestroySession re-sent the same cookie with no
// Max-Age, which leaves it live in the browser; this expires it outright
// (Max-Age=0) so "destroy" actually ends the session client-side too.
func (a *Allocator) Destroy(conn *pipeline.Conn, sess *Session) {
	if sess == nil {
		return
	}
	a.mu.Lock()
	if a.active > 0 {
		a.active--
	}
	a.mu.Unlock()
	setSessionCookie(conn, sess.id, -1)
	sess.id = ""
	if conn.Session == sess {
		conn.Session = nil
	}
}

func lookupSessionCookie(conn *pipeline.Conn) (string, bool) {
	header := conn.Rx.Header.Get("Cookie")
	if header == "" {
		return "", false
	}
	return parseCookieValue(header, CookieName)
}

// setSessionCookie appends a Set-Cookie header to conn.Tx. maxAge of 0
// means a session cookie with no Max-Age attribute (browser-session
// lifetime); a negative maxAge expires the cookie immediately.
func setSessionCookie(conn *pipeline.Conn, id string, maxAge int) {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
	}
	conn.Tx.Header.Add("Set-Cookie", c.String())
}

// readVar reads the store-backed variable key for sess, returning ok=false
// if unset or expired.
func readVar(ctx context.Context, st store.Store, sess *Session, key string) (string, bool) {
	val, _, ok := st.Read(ctx, makeKey(sess.id, sess.ip, key, sess.withoutIP))
	if !ok {
		return "", false
	}
	return string(val), true
}

// logMissingSession is a small helper so callers that look up a session
// that failed to allocate log consistently.
func logMissingSession(op, key string) {
	log.Debug().Str("op", op).Str("key", key).Msg("session: no active session")
}
