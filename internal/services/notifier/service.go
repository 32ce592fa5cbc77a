// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package notifier periodically checks every configured server for torrents
// that finished since the previous check and raises one notification per
// server.
package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/models"
	"github.com/autobrr/qremote/internal/notify"
	"github.com/autobrr/qremote/internal/scheduler"
)

const TaskName = "torrents-notifier"

var notifierFields = []domain.Field{domain.FieldID, domain.FieldDoneDate}

// Config controls the cadence and fan-out of a run.
type Config struct {
	Interval    time.Duration
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		Interval:    15 * time.Minute,
		Concurrency: 4,
	}
}

type SettingsLoader interface {
	Load(ctx context.Context) models.Settings
}

type StateStore interface {
	LastUpdate(ctx context.Context, serverID string) int64
	SetLastUpdate(ctx context.Context, serverID string, ts int64) (int64, error)
}

type ClientProvider interface {
	Get(ctx context.Context, profile models.ServerProfile) (domain.TorrentService, error)
}

// ServerOutcome is what happened to one server during a run.
type ServerOutcome string

const (
	OutcomeNotified   ServerOutcome = "notified"
	OutcomeQuiet      ServerOutcome = "quiet"
	OutcomeFirstCheck ServerOutcome = "first-check"
	OutcomeSkipped    ServerOutcome = "skipped"
)

type ServerReport struct {
	ServerID string        `json:"serverId"`
	Name     string        `json:"name"`
	Finished int           `json:"finished"`
	Outcome  ServerOutcome `json:"outcome"`
	Error    string        `json:"error,omitempty"`
}

// RunReport summarises the latest run.
type RunReport struct {
	StartedAt   time.Time      `json:"startedAt"`
	Unreachable bool           `json:"unreachable,omitempty"`
	Servers     []ServerReport `json:"servers"`
}

type Service struct {
	cfg      Config
	settings SettingsLoader
	state    StateStore
	clients  ClientProvider
	sink     notify.Sink
	probe    Prober
	metrics  *Metrics
	now      func() time.Time

	mu   sync.RWMutex
	last RunReport
}

func NewService(cfg Config, settings SettingsLoader, state StateStore, clients ClientProvider, sink notify.Sink, probe Prober, metrics *Metrics) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if probe == nil {
		probe = TCPProbe{}
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Service{
		cfg:      cfg,
		settings: settings,
		state:    state,
		clients:  clients,
		sink:     sink,
		probe:    probe,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (s *Service) Register(sch *scheduler.Scheduler) error {
	return sch.RegisterPeriodicTask(TaskName, s.cfg.Interval, s.Run)
}

func (s *Service) Unregister(sch *scheduler.Scheduler) bool {
	return sch.UnregisterTask(TaskName)
}

// Run checks every server once. It always reports success; per server
// failures are logged and skipped.
func (s *Service) Run(ctx context.Context) scheduler.Result {
	report := RunReport{StartedAt: s.now()}
	defer func() {
		s.metrics.Runs.Inc()
		s.mu.Lock()
		s.last = report
		s.mu.Unlock()
	}()

	if !s.probe.Reachable(ctx) {
		log.Debug().Msg("notifier: network unreachable, skipping run")
		report.Unreachable = true
		return scheduler.ResultSuccess
	}

	servers := s.settings.Load(ctx).Servers
	if len(servers) == 0 {
		return scheduler.ResultSuccess
	}

	report.Servers = make([]ServerReport, len(servers))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, server := range servers {
		g.Go(func() error {
			report.Servers[i] = s.checkServer(ctx, server)
			return nil
		})
	}
	_ = g.Wait()

	return scheduler.ResultSuccess
}

func (s *Service) checkServer(ctx context.Context, server models.ServerProfile) ServerReport {
	rep := ServerReport{ServerID: server.ID, Name: server.Name, Outcome: OutcomeSkipped}
	logger := log.With().Str("serverID", server.ID).Str("server", server.Name).Logger()

	client, err := s.clients.Get(ctx, server)
	if err != nil {
		logger.Debug().Err(err).Msg("notifier: could not create client, skipping server")
		s.metrics.ServersSkipped.WithLabelValues("client").Inc()
		rep.Error = err.Error()
		return rep
	}

	torrents, err := client.ListTorrents(ctx, notifierFields)
	if err != nil {
		logger.Debug().Err(err).Msg("notifier: request failed, skipping server")
		s.metrics.ServersSkipped.WithLabelValues("request").Inc()
		rep.Error = err.Error()
		return rep
	}
	s.metrics.ServersChecked.Inc()

	lastUpdate := s.state.LastUpdate(ctx, server.ID)
	rep.Finished = countFinishedSince(torrents, lastUpdate)

	if _, err := s.state.SetLastUpdate(ctx, server.ID, s.now().Unix()); err != nil {
		logger.Error().Err(err).Msg("notifier: could not persist last update")
	}

	switch {
	case lastUpdate == 0:
		rep.Outcome = OutcomeFirstCheck
	case rep.Finished == 0:
		rep.Outcome = OutcomeQuiet
	default:
		rep.Outcome = OutcomeNotified
		s.sink.Schedule(ctx, server.Name, FinishedMessage(rep.Finished))
		s.metrics.Notifications.Inc()
		logger.Info().Int("finished", rep.Finished).Msg("notifier: torrents finished")
	}
	return rep
}

func countFinishedSince(torrents []domain.Torrent, since int64) int {
	n := 0
	for _, t := range torrents {
		if t.DoneDate > since {
			n++
		}
	}
	return n
}

// FinishedMessage is the notification body for n finished torrents.
func FinishedMessage(n int) string {
	if n == 1 {
		return "1 torrent finished"
	}
	return fmt.Sprintf("%d torrents finished", n)
}

// LastRun returns the report of the most recent run.
func (s *Service) LastRun() RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
