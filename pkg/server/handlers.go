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
	"encoding/json"
	"net/http"
)

// CacheKeyPurgeHandler handles the DELETE request to remove one key from
// the store. The key is read from the "key" query parameter, falling
// back to the X-Purge-Key header for parity with a PURGE-style client.
func (s *Server) CacheKeyPurgeHandler(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.Header.Get("X-Purge-Key")
	}
	if key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}
	if err := s.store.Remove(r.Context(), key); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// SessionsCountHandler renders the number of currently active sessions.
func (s *Server) SessionsCountHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"active": s.sessions.ActiveCount()})
}

// routeView is the read-only summary of a configured route rendered by
// RoutesHandler.
type routeView struct {
	Name       string `json:"name"`
	Prefix     string `json:"prefix"`
	Upstream   string `json:"upstream,omitempty"`
	CacheRules int    `json:"cacheRules"`
	StageCount int    `json:"stageCount"`
}

// RoutesHandler renders the configured routes and how many cache rules
// and stages each has, for operational visibility.
func (s *Server) RoutesHandler(w http.ResponseWriter, r *http.Request) {
	views := make([]routeView, 0, len(s.routes))
	for _, entry := range s.routes {
		v := routeView{
			Name:       entry.name,
			Prefix:     entry.route.Prefix,
			CacheRules: len(entry.route.Caching),
			StageCount: len(entry.route.Stages),
		}
		if entry.upstream != nil {
			v.Upstream = entry.upstream.String()
		}
		views = append(views, v)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
