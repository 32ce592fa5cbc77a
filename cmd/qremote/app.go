// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qremote/internal/buildinfo"
	"github.com/autobrr/qremote/internal/config"
	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/kv"
	"github.com/autobrr/qremote/internal/models"
	"github.com/autobrr/qremote/internal/notify"
	"github.com/autobrr/qremote/internal/remote"
	"github.com/autobrr/qremote/internal/services/notifier"
)

const clientIdleTTL = 10 * time.Minute

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configDir string
	dataDir   string
	logPath   string
}

// Application holds the stores and collaborators one command needs.
type Application struct {
	cfg         *config.AppConfig
	store       kv.Store
	closer      io.Closer
	settings    *models.SettingsStore
	directories *models.DirectoriesStore
	state       *models.NotifierStateStore
	pool        *remote.Pool
}

func openApplication(flags *globalFlags) (*Application, error) {
	cfg, err := config.New(flags.configDir, buildinfo.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}

	if flags.dataDir != "" {
		cfg.SetDataDir(flags.dataDir)
	}
	if flags.logPath != "" {
		cfg.Config.LogPath = flags.logPath
	}
	cfg.ApplyLogConfig()

	store, closer, err := kv.Open(cfg.Config.Storage, cfg.GetStoragePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	return &Application{
		cfg:         cfg,
		store:       store,
		closer:      closer,
		settings:    models.NewSettingsStore(store),
		directories: models.NewDirectoriesStore(store),
		state:       models.NewNotifierStateStore(store),
		pool:        remote.NewPool(remote.NewFactory(cfg.RequestTimeout()), clientIdleTTL),
	}, nil
}

func (app *Application) Close() {
	if err := app.pool.Close(); err != nil {
		log.Debug().Err(err).Msg("failed to close client pool")
	}
	if err := app.closer.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close storage")
	}
}

// profile resolves a server by id or name; empty selects the active server.
func (app *Application) profile(ctx context.Context, ref string) (models.ServerProfile, error) {
	if ref == "" {
		return app.settings.ActiveServer(ctx)
	}
	if p, err := app.settings.Server(ctx, ref); err == nil {
		return p, nil
	}
	for _, p := range app.settings.Load(ctx).Servers {
		if p.Name == ref {
			return p, nil
		}
	}
	return models.ServerProfile{}, fmt.Errorf("%w: %s", models.ErrServerNotFound, ref)
}

func (app *Application) client(ctx context.Context, ref string) (models.ServerProfile, domain.TorrentService, error) {
	p, err := app.profile(ctx, ref)
	if err != nil {
		return p, nil, err
	}
	client, err := app.pool.Get(ctx, p)
	return p, client, err
}

// sink is the log sink plus the configured notify command, if any.
func (app *Application) sink() notify.Sink {
	sinks := notify.Multi{notify.LogSink{}}
	if tpl := app.cfg.Config.NotifyCommand; tpl != "" {
		cmd, err := notify.NewCommandSink(tpl)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring invalid notifyCommand")
		} else {
			sinks = append(sinks, cmd)
		}
	}
	return sinks
}

func (app *Application) notifier(sink notify.Sink, reg prometheus.Registerer) *notifier.Service {
	return notifier.NewService(
		notifier.Config{
			Interval:    app.cfg.NotifierInterval(),
			Concurrency: app.cfg.Config.NotifierConcurrency,
		},
		app.settings,
		app.state,
		app.pool,
		sink,
		notifier.TCPProbe{Address: app.cfg.Config.ProbeAddress, Timeout: 5 * time.Second},
		notifier.NewMetrics(reg),
	)
}
