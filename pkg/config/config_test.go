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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRejectsNoListeners(t *testing.T) {
	c := &Configuration{
		Routes: Routes{{Name: "default"}},
	}
	assert.ErrorIs(t, c.Validate(), errInvalidListenersConfig)
}

func TestValidateRejectsNoRoutes(t *testing.T) {
	c := &Configuration{
		Listeners: Listeners{"default": {Addr: ":8080"}},
	}
	assert.ErrorIs(t, c.Validate(), errInvalidRoutesConfig)
}

func TestValidateRejectsUnnamedRoute(t *testing.T) {
	c := &Configuration{
		Listeners: Listeners{"default": {Addr: ":8080"}},
		Routes:    Routes{{Prefix: "/"}},
	}
	assert.ErrorIs(t, c.Validate(), errInvalidRoutesConfig)
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	c := &Configuration{
		Listeners: Listeners{"default": {Addr: ":8080"}},
		Routes:    Routes{{Name: "default", Prefix: "/"}},
	}
	assert.NoError(t, c.Validate())
}

func TestAPIGetPrefixDefault(t *testing.T) {
	a := &API{}
	assert.Equal(t, "/api", a.GetPrefix())
}

func TestAPIGetPrefixCustom(t *testing.T) {
	a := &API{Prefix: "/manage"}
	assert.Equal(t, "/manage", a.GetPrefix())
}
