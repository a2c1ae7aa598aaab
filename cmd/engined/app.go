package main

import (
	"net/http"

	"github.com/rs/zerolog"

	"engined/internal/cache"
	"engined/internal/common/fsutil"
	"engined/internal/config"
	"engined/internal/fetch"
	"engined/internal/host"
	"engined/internal/install"
	"engined/internal/layout"
	"engined/internal/loader"
	"engined/internal/status"
	"engined/internal/version"
)

// app is the wired process.
type app struct {
	cfg       config.Config
	log       zerolog.Logger
	layout    layout.Layout
	loader    *loader.Loader
	installer *install.Handler
	host      *host.Host
}

func newApp(cfg config.Config, log zerolog.Logger, binding loader.Binding) (*app, error) {
	root, err := fsutil.ExpandHome(cfg.Root)
	if err != nil {
		return nil, err
	}
	platform := cfg.Platform
	if platform == "" {
		platform = version.Current()
	}
	l := layout.New(root, platform)

	mem := status.NewMemorySink(64)
	sink := status.Throttled(status.Multi(status.NewLogSink(log), mem), cfg.ProgressHz)

	f := fetch.New(
		fetch.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout.Std()}),
		fetch.WithRetries(cfg.MaxRetries),
		fetch.WithLogger(log.With().Str("component", "fetch").Logger()),
	)
	if binding == nil {
		binding = loader.NewNativeBinding(loader.BindingConfig{
			NativeName:  cfg.NativeLibrary,
			BundledName: cfg.BundledLibrary,
			BundledGPU:  cfg.BundledGPU,
		})
	}
	ld := loader.New(loader.Config{
		Layout:  l,
		Binding: binding,
		Bundled: version.Variant{Version: cfg.BundledVersion, GPU: cfg.BundledGPU},
		Sink:    sink,
		Logger:  log.With().Str("component", "loader").Logger(),
	})
	c, err := cache.New(l.ModelsDir(), f,
		cache.WithSink(sink),
		cache.WithLogger(log.With().Str("component", "cache").Logger()),
	)
	if err != nil {
		return nil, err
	}
	inst := install.New(l, f,
		install.WithSink(sink),
		install.WithLogger(log.With().Str("component", "install").Logger()),
	)
	return &app{
		cfg:       cfg,
		log:       log,
		layout:    l,
		loader:    ld,
		installer: inst,
		host: host.New(host.Deps{
			Layout:    l,
			Loader:    ld,
			Cache:     c,
			Installer: inst,
			Progress:  mem,
			Logger:    log,
		}),
	}, nil
}

// start promotes a staged variant and loads the library.
func (a *app) start() loader.Status {
	if applied, err := a.installer.ApplyStaged(); err != nil {
		a.log.Error().Err(err).Msg("could not apply staged version")
	} else if applied {
		a.log.Info().Msg("staged version applied")
	}
	return a.loader.LoadLibrary()
}
