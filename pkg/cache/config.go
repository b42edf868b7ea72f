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
	"fmt"
	"strings"
	"time"

	"github.com/nectarhttp/nectar/pkg/pipeline"
	"github.com/nectarhttp/nectar/pkg/store"
	"github.com/rs/zerolog/log"
)

// tokenize splits s on whitespace and commas, matching the embedded
// server's stok(s, " \t,", &tok) loop.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

func toSet(items []string, upper bool) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if upper {
			item = strings.ToUpper(item)
		}
		set[item] = struct{}{}
	}
	return set
}

// AddCache registers (or extends) a caching rule on route, installing the
// cache handler and filter stages on first use, matching httpAddCache.
// methods, uris, extensions and types are whitespace/comma-delimited
// lists; any of them may be empty to leave that axis unconstrained.
func AddCache(st store.Store, route *pipeline.Route, methods, uris, extensions, types string, lifespan time.Duration, flags pipeline.CacheFlags) {
	if route.Caching == nil {
		route.AddStage(NewHandler(st))
		route.AddStage(NewFilter(st))
	} else if flags.Reset {
		route.ResetCaching()
	}

	rule := &pipeline.CacheRule{Lifespan: lifespan, Flags: flags}

	if extensions != "" {
		rule.Extensions = toSet(tokenize(extensions), false)
	} else if types != "" {
		rule.Types = toSet(tokenize(types), false)
	}

	if methods != "" {
		items := tokenize(methods)
		wildcard := false
		kept := make([]string, 0, len(items))
		for _, item := range items {
			if item == "*" {
				wildcard = true
				continue
			}
			kept = append(kept, item)
		}
		if !wildcard {
			rule.Methods = toSet(kept, true)
		}
	}

	if uris != "" {
		rule.URIs = make(map[string]struct{})
		for _, item := range tokenize(uris) {
			item = normalizeURI(item, route.Name, flags.IgnoreParams)
			rule.URIs[item] = struct{}{}
		}
	}

	route.AddCaching(rule)

	log.Debug().
		Str("route", route.Name).
		Str("methods", orWildcard(methods)).
		Str("uris", orWildcard(uris)).
		Str("extensions", orWildcard(extensions)).
		Str("types", orWildcard(types)).
		Dur("lifespan", lifespan).
		Msg("cache: route caching configured")
}

// normalizeURI applies httpAddCache's URI normalization: truncate at '?'
// (with a warning) when params are ignored, otherwise auto-append
// "?prefix=<routeName>" for usability unless the entry already mentions
// that prefix or carries its own query string.
func normalizeURI(item, routeName string, ignoreParams bool) string {
	if ignoreParams {
		if i := strings.IndexByte(item, '?'); i >= 0 {
			log.Warn().Str("uri", item).Msg("cache: URI has params but ignore-params was requested, truncating")
			return item[:i]
		}
		return item
	}
	prefixMarker := fmt.Sprintf("prefix=%s", routeName)
	if strings.Contains(item, prefixMarker) {
		return item
	}
	if !strings.Contains(item, "?") {
		return fmt.Sprintf("%s?%s", item, prefixMarker)
	}
	return item
}

func orWildcard(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
