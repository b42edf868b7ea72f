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
	"encoding/json"
	"time"

	"github.com/nectarhttp/nectar/pkg/pipeline"
	"github.com/nectarhttp/nectar/pkg/store"
)

// GetVar returns the session variable key, or defaultValue if there is no
// active session or the variable is unset, matching httpGetSessionVar.
func (a *Allocator) GetVar(ctx context.Context, conn *pipeline.Conn, key, defaultValue string) string {
	sess, _ := a.Get(conn, false)
	if sess == nil {
		logMissingSession("get", key)
		return defaultValue
	}
	if v, ok := readVar(ctx, a.store, sess, key); ok {
		return v
	}
	return defaultValue
}

// SetVar sets a session variable, creating the session first if none
// exists, matching httpSetSessionVar.
func (a *Allocator) SetVar(ctx context.Context, conn *pipeline.Conn, key, value string) error {
	sess, err := a.Get(conn, true)
	if err != nil {
		return err
	}
	return a.store.Write(ctx, makeKey(sess.id, sess.ip, key, sess.withoutIP),
		[]byte(value), time.Time{}, sess.lifespan, store.WriteFlags{})
}

// RemoveVar deletes a session variable, matching httpRemoveSessionVar.
func (a *Allocator) RemoveVar(ctx context.Context, conn *pipeline.Conn, key string) error {
	sess, err := a.Get(conn, true)
	if err != nil {
		return err
	}
	return a.store.Remove(ctx, makeKey(sess.id, sess.ip, key, sess.withoutIP))
}

// GetObj deserializes the session variable key into v, returning ok=false
// if unset, matching httpGetSessionObj.
func (a *Allocator) GetObj(ctx context.Context, conn *pipeline.Conn, key string, v any) (bool, error) {
	sess, _ := a.Get(conn, false)
	if sess == nil {
		return false, nil
	}
	raw, ok := readVar(ctx, a.store, sess, key)
	if !ok || raw == "" {
		return false, nil
	}
	return true, json.Unmarshal([]byte(raw), v)
}

// SetObj serializes v and stores it as the session variable key, matching
// httpSetSessionObj.
func (a *Allocator) SetObj(ctx context.Context, conn *pipeline.Conn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return a.SetVar(ctx, conn, key, string(data))
}
