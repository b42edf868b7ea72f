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

package pipeline

import "strings"

// Host is the minimal MIME registry a cache rule's type axis matches
// against, modeled on the embedded server's host->mimeTypes table.
type Host struct {
	mimeTypes map[string]string
}

// defaultMimeTypes covers the extensions a caching reverse proxy is most
// likely to see.
var defaultMimeTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".txt":  "text/plain",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".svg":  "image/svg+xml",
}

// NewHost creates a Host pre-populated with the default MIME table.
func NewHost() *Host {
	m := make(map[string]string, len(defaultMimeTypes))
	for k, v := range defaultMimeTypes {
		m[k] = v
	}
	return &Host{mimeTypes: m}
}

// AddMimeType registers or overrides the MIME type for ext (e.g. ".php").
func (h *Host) AddMimeType(ext, mimeType string) {
	h.mimeTypes[strings.ToLower(ext)] = mimeType
}

// Lookup returns the MIME type registered for ext, if any.
func (h *Host) Lookup(ext string) (string, bool) {
	t, ok := h.mimeTypes[strings.ToLower(ext)]
	return t, ok
}
