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

package cache

import (
	"strings"

	"github.com/nectarhttp/nectar/pkg/pipeline"
)

// MatchRule returns the first cache rule on route (including inherited
// ones) whose configured axes all match conn's request, matching
// lookupCacheControl. Rules are tried in registration order; every axis
// present on a rule must match for that rule to win.
func MatchRule(conn *pipeline.Conn, route *pipeline.Route) *pipeline.CacheRule {
	for _, rule := range route.Caching {
		if rule.URIs != nil {
			ukey := conn.Rx.Path
			if !rule.Flags.IgnoreParams {
				ukey = conn.Rx.Path + "?" + conn.Rx.ParamsString()
			}
			if _, ok := rule.URIs[ukey]; !ok {
				continue
			}
		}
		if rule.Methods != nil {
			if _, ok := rule.Methods[strings.ToUpper(conn.Rx.Method)]; !ok {
				continue
			}
		}
		ext := conn.Rx.Ext()
		if rule.Extensions != nil {
			if _, ok := rule.Extensions[ext]; !ok {
				continue
			}
		}
		if rule.Types != nil {
			mimeType, ok := conn.Host.Lookup("." + ext)
			if !ok {
				continue
			}
			if _, ok := rule.Types[mimeType]; !ok {
				continue
			}
		}
		return rule
	}
	return nil
}
