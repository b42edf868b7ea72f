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

// Package session implements allocation, lookup and variable storage for
// server-side sessions identified by an opaque cookie, modeled on the
// embedded server's HttpSession.
package session

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// CookieName is the name of the session cookie, matching HTTP_SESSION_COOKIE.
const CookieName = "-http-session-"

// idSalt namespaces the MD5 digest so session IDs can't be confused with
// hashes computed elsewhere in the module. It plays the role of
// makeSessionID's "::http.session::" prefix, with a string of its own.
const idSalt = "::nectar.session::"

// newID generates an opaque session ID. The original C implementation
// seeds the digest with the connection's in-process pointer address
// (PTOI(conn->data) + PTOI(conn)); Go exposes no stable object address to
// user code, so a monotonic per-allocator counter plays that role instead
// - it serves the same purpose (decorrelating IDs minted in the same
// process tick) without reading uninitialized memory.
func newID(counter uint32, now time.Time) string {
	raw := fmt.Sprintf("%08x%08x%d", counter, now.UnixNano(), counter)
	sum := md5.Sum([]byte(idSalt + raw))
	return hex.EncodeToString(sum[:])
}

// parseCookieValue scans a raw Cookie header value for name, reproducing
// httpGetSessionID's scanning rules: skip whitespace/'=' after the name,
// accept an optional quoted value, and stop at an unescaped ',' or ';' (or
// closing quote). net/http's cookie parser is RFC 6265 strict and would
// reject cookie strings the embedded server's looser scanner accepts, so
// this is a deliberate, narrower parser rather than a call to
// http.ParseCookie.
func parseCookieValue(cookieHeader, name string) (string, bool) {
	for i := 0; i+len(name) <= len(cookieHeader); i++ {
		if cookieHeader[i:i+len(name)] != name {
			continue
		}
		pos := i + len(name)
		for pos < len(cookieHeader) && (isSpace(cookieHeader[pos]) || cookieHeader[pos] == '=') {
			pos++
		}
		quoted := false
		if pos < len(cookieHeader) && cookieHeader[pos] == '"' {
			pos++
			quoted = true
		}
		start := pos
		cp := pos
		for cp < len(cookieHeader) {
			c := cookieHeader[cp]
			if quoted {
				if c == '"' && (cp == 0 || cookieHeader[cp-1] != '\\') {
					break
				}
			} else {
				if (c == ',' || c == ';') && (cp == 0 || cookieHeader[cp-1] != '\\') {
					break
				}
			}
			cp++
		}
		return cookieHeader[start:cp], true
	}
	return "", false
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}
