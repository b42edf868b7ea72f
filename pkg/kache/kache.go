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

// Package kache wires the loaded configuration into a running instance:
// the blob store, the route/cache pipeline server and the admin API, and
// reloads them when the config file changes or SIGHUP arrives.
package kache

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nectarhttp/nectar/pkg/api"
	"github.com/nectarhttp/nectar/pkg/config"
	"github.com/nectarhttp/nectar/pkg/server"
	"github.com/nectarhttp/nectar/pkg/store"
	"github.com/nectarhttp/nectar/pkg/utils/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Kache is the root data structure for the running instance.
type Kache struct {
	Config *config.Configuration
	loader *config.Loader

	Registerer prometheus.Registerer

	API    *api.API
	Server *server.Server
	Store  store.Store
}

// New builds a Kache from the loaded config.
func New(loader *config.Loader, registerer prometheus.Registerer) (*Kache, error) {
	k := &Kache{
		loader:     loader,
		Config:     loader.Config(),
		Registerer: registerer,
	}

	if err := k.setupModules(); err != nil {
		return nil, err
	}

	return k, nil
}

// initStore initializes the blob store backing the cache and session
// subsystems.
func (k *Kache) initStore() (err error) {
	k.Store, err = store.New("nectar", k.Config.Store)
	return err
}

// initServer initializes the core server.
func (k *Kache) initServer() (err error) {
	k.Server, err = server.NewServer(k.Config, k.Store, k.Registerer)
	return err
}

// initAPI initializes the admin API.
func (k *Kache) initAPI() (err error) {
	if k.Config.API == nil {
		return nil
	}
	k.API, err = api.New(*k.Config.API, k.Server)
	return err
}

// setupModules initializes the modules in dependency order.
func (k *Kache) setupModules() error {
	type initFn func() error
	modules := [...]struct {
		Name string
		Init initFn
	}{
		{"Store", k.initStore},
		{"Server", k.initServer},
		{"API", k.initAPI},
	}

	for _, m := range modules {
		log.Debug().Msgf("Initializing %s", m.Name)
		if err := m.Init(); err != nil {
			return err
		}
	}

	return nil
}

// reloadConfig reloads the config, triggered by SIGHUP or a file change.
func (k *Kache) reloadConfig(ctx context.Context) error {
	reloaded, err := k.loader.Load(ctx)
	if err != nil {
		return err
	}
	if !reloaded {
		log.Info().Msg("Config not reloaded, no changes detected")
		return nil
	}
	// The route/cache/session wiring is rebuilt from scratch rather than
	// patched in place: routes, their stage chains and the session
	// allocator's limits all derive from the loaded config, and none of
	// them expose a safe partial-update path while requests are in flight.
	k.Config = k.loader.Config()
	if err := k.initServer(); err != nil {
		return err
	}
	log.Info().Msg("Config reloaded")
	return nil
}

// Run starts Kache and its services, blocking until shutdown.
func (k *Kache) Run() error {
	if k.loader.AutoReload() {
		if err := k.loader.Watch(context.Background()); err != nil {
			return err
		}
		defer k.loader.Close()
		go func() {
			for changed := range k.loader.Events {
				if !changed {
					continue
				}
				log.Info().Msg("Config file changed, reloading config")
				if err := k.reloadConfig(context.Background()); err != nil {
					log.Error().Err(err).Msg("Error reloading config")
				}
			}
		}()
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case s := <-signals:
				if s == syscall.SIGHUP {
					log.Info().Msg("Received SIGHUP, reloading config")
					if err := k.reloadConfig(context.Background()); err != nil {
						log.Error().Err(err).Msg("Error reloading config")
					}
				}
			case <-stop:
				return
			}
		}
	}()

	if k.API != nil {
		go k.API.Run()
	}

	ctx, _ := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM,
	)

	k.Server.Start(ctx)
	defer k.Server.Shutdown()

	time.Sleep(120 * time.Millisecond)
	log.Info().Str("version", version.Info()).Msg("nectar just started")

	k.Server.Await()

	log.Info().Msg("Shutting down")
	return nil
}
