// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/kv"
	"github.com/autobrr/qremote/internal/models"
	"github.com/autobrr/qremote/internal/notify"
	"github.com/autobrr/qremote/internal/scheduler"
)

type fakeService struct {
	domain.TorrentService

	mu       sync.Mutex
	torrents []domain.Torrent
	err      error
	calls    int
}

func (f *fakeService) ListTorrents(_ context.Context, fields []domain.Field) ([]domain.Torrent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.torrents, nil
}

func (f *fakeService) set(torrents []domain.Torrent, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.torrents, f.err = torrents, err
}

type fakeClients map[string]*fakeService

func (c fakeClients) Get(_ context.Context, p models.ServerProfile) (domain.TorrentService, error) {
	svc, ok := c[p.Name]
	if !ok {
		return nil, errors.New("no client")
	}
	return svc, nil
}

type staticProbe bool

func (p staticProbe) Reachable(context.Context) bool { return bool(p) }

type harness struct {
	svc      *Service
	state    *models.NotifierStateStore
	settings *models.SettingsStore
	sink     *notify.Recorder
	clients  fakeClients
	metrics  *Metrics
	now      time.Time
	ids      map[string]string
}

func newHarness(t *testing.T, names ...string) *harness {
	t.Helper()
	ctx := context.Background()

	store := kv.NewMemoryStore()
	h := &harness{
		state:    models.NewNotifierStateStore(store),
		settings: models.NewSettingsStore(store),
		sink:     &notify.Recorder{},
		clients:  fakeClients{},
		metrics:  NewMetrics(prometheus.NewRegistry()),
		now:      time.Unix(1_700_000_000, 0),
		ids:      map[string]string{},
	}
	for _, name := range names {
		p, err := h.settings.AddServer(ctx, models.ServerInput{Name: name, URL: "http://" + name + ":9091"})
		require.NoError(t, err)
		h.ids[name] = p.ID
		h.clients[name] = &fakeService{}
	}

	h.svc = NewService(Config{Concurrency: 2}, h.settings, h.state, h.clients, h.sink, staticProbe(true), h.metrics)
	h.svc.now = func() time.Time { return h.now }
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	require.Equal(t, scheduler.ResultSuccess, h.svc.Run(context.Background()))
}

func done(ts ...int64) []domain.Torrent {
	out := make([]domain.Torrent, 0, len(ts))
	for i, d := range ts {
		out = append(out, domain.Torrent{ID: domain.NumericID(int64(i + 1)), DoneDate: d})
	}
	return out
}

func TestFirstRunSuppressesBacklog(t *testing.T) {
	h := newHarness(t, "home")
	h.clients["home"].set(done(100, 200, 300), nil)

	h.run(t)

	assert.Empty(t, h.sink.Sent())
	assert.Equal(t, h.now.Unix(), h.state.LastUpdate(context.Background(), h.ids["home"]))
	assert.Equal(t, OutcomeFirstCheck, h.svc.LastRun().Servers[0].Outcome)
}

func TestNotifiesOncePerServer(t *testing.T) {
	h := newHarness(t, "home", "seedbox")
	h.run(t)

	first := h.now.Unix()
	h.now = h.now.Add(15 * time.Minute)
	h.clients["home"].set(done(first-10, first+1, first+2), nil)
	h.clients["seedbox"].set(done(first+5), nil)

	h.run(t)

	assert.ElementsMatch(t, []notify.Notification{
		{Title: "home", Body: "2 torrents finished"},
		{Title: "seedbox", Body: "1 torrent finished"},
	}, h.sink.Sent())
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Notifications))

	// same data again: nothing new since the last check
	h.now = h.now.Add(15 * time.Minute)
	h.run(t)
	assert.Len(t, h.sink.Sent(), 2)
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.Runs))
}

func TestFailingServerDoesNotBlockOthers(t *testing.T) {
	h := newHarness(t, "broken", "home")
	h.run(t)
	before := h.state.LastUpdate(context.Background(), h.ids["broken"])

	first := h.now.Unix()
	h.now = h.now.Add(time.Hour)
	h.clients["broken"].set(nil, &domain.ServiceError{StatusCode: 502})
	h.clients["home"].set(done(first+1), nil)

	h.run(t)

	assert.Equal(t, []notify.Notification{{Title: "home", Body: "1 torrent finished"}}, h.sink.Sent())
	assert.Equal(t, before, h.state.LastUpdate(context.Background(), h.ids["broken"]))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ServersSkipped.WithLabelValues("request")))

	report := h.svc.LastRun()
	require.Len(t, report.Servers, 2)
	assert.Equal(t, OutcomeSkipped, report.Servers[0].Outcome)
	assert.Equal(t, OutcomeNotified, report.Servers[1].Outcome)
}

func TestMissingClientIsSkipped(t *testing.T) {
	h := newHarness(t, "home")
	delete(h.clients, "home")

	h.run(t)
	assert.Zero(t, h.state.LastUpdate(context.Background(), h.ids["home"]))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ServersSkipped.WithLabelValues("client")))
}

func TestUnreachableNetwork(t *testing.T) {
	h := newHarness(t, "home")
	h.svc.probe = staticProbe(false)

	h.run(t)
	assert.Zero(t, h.clients["home"].calls)
	assert.True(t, h.svc.LastRun().Unreachable)
}

func TestNoServers(t *testing.T) {
	h := newHarness(t)
	h.run(t)
	assert.Empty(t, h.svc.LastRun().Servers)
}

func TestLastUpdateNeverMovesBackwards(t *testing.T) {
	h := newHarness(t, "home")
	h.run(t)
	later := h.now.Unix()

	h.now = h.now.Add(-time.Hour)
	h.run(t)
	assert.Equal(t, later, h.state.LastUpdate(context.Background(), h.ids["home"]))
}

func TestRegister(t *testing.T) {
	h := newHarness(t, "home")
	sch := scheduler.New()

	require.NoError(t, h.svc.Register(sch))
	tasks := sch.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskName, tasks[0].Name)
	assert.Equal(t, 15*time.Minute, tasks[0].Interval)

	res, err := sch.RunNow(context.Background(), TaskName)
	require.NoError(t, err)
	assert.Equal(t, scheduler.ResultSuccess, res)

	assert.True(t, h.svc.Unregister(sch))
	assert.Empty(t, sch.Tasks())
}

func TestFinishedMessage(t *testing.T) {
	assert.Equal(t, "1 torrent finished", FinishedMessage(1))
	assert.Equal(t, "5 torrents finished", FinishedMessage(5))
}
