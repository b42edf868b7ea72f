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
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/nectarhttp/nectar/pkg/pipeline"
)

// BuildKey produces the store key for conn's request under rule, matching
// makeCacheKey. The key must come out byte-identical whether it is built
// on the fetch path or the save path for the same request, or hits become
// permanently unreachable.
func BuildKey(conn *pipeline.Conn, rule *pipeline.CacheRule) string {
	if rule != nil && rule.Flags.IgnoreParams {
		return fmt.Sprintf("http::response-%s", conn.Rx.Path)
	}
	return fmt.Sprintf("http::response-%s?%s", conn.Rx.Path, conn.Rx.ParamsString())
}

// ETag returns the entity tag for key, the hex MD5 of key, matching
// mprGetMD5(key).
func ETag(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
