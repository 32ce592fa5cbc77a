// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package scheduler runs named periodic background tasks in process.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrTaskNotFound = errors.New("task not registered")

type Result int

const (
	ResultSuccess Result = iota
	ResultFailure
	ResultNoData
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultNoData:
		return "no-data"
	default:
		return "unknown"
	}
}

type TaskFunc func(ctx context.Context) Result

type task struct {
	name     string
	interval time.Duration
	fn       TaskFunc
	cancel   context.CancelFunc

	// runMu keeps a manual run from overlapping a scheduled one
	runMu      sync.Mutex
	lastRun    time.Time
	lastResult Result
	runs       int
}

// TaskInfo describes a registered task.
type TaskInfo struct {
	Name       string        `json:"name"`
	Interval   time.Duration `json:"interval"`
	LastRun    time.Time     `json:"lastRun"`
	LastResult string        `json:"lastResult"`
	Runs       int           `json:"runs"`
}

type Scheduler struct {
	mu      sync.Mutex
	tasks   map[string]*task
	baseCtx context.Context
	now     func() time.Time
}

func New() *Scheduler {
	return &Scheduler{
		tasks: make(map[string]*task),
		now:   time.Now,
	}
}

// RegisterPeriodicTask runs fn at most once per minInterval. Registering an
// existing name replaces the previous task. Tasks registered before Start
// begin when Start is called.
func (s *Scheduler) RegisterPeriodicTask(name string, minInterval time.Duration, fn TaskFunc) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("task name is required")
	}
	if minInterval <= 0 {
		return fmt.Errorf("task %s: interval must be positive", name)
	}
	if fn == nil {
		return fmt.Errorf("task %s: nil func", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tasks[name]; ok && old.cancel != nil {
		old.cancel()
	}

	t := &task{name: name, interval: minInterval, fn: fn}
	s.tasks[name] = t
	if s.baseCtx != nil {
		s.launchLocked(t)
	}

	log.Debug().Str("task", name).Dur("interval", minInterval).Msg("Registered periodic task")
	return nil
}

// UnregisterTask stops and forgets a task. It reports whether one existed.
func (s *Scheduler) UnregisterTask(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[name]
	if !ok {
		return false
	}
	if t.cancel != nil {
		t.cancel()
	}
	delete(s.tasks, name)

	log.Debug().Str("task", name).Msg("Unregistered periodic task")
	return true
}

// Start launches every registered task. Tasks stop when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.baseCtx != nil {
		return
	}
	s.baseCtx = ctx
	for _, t := range s.tasks {
		s.launchLocked(t)
	}
}

func (s *Scheduler) launchLocked(t *task) {
	ctx, cancel := context.WithCancel(s.baseCtx)
	t.cancel = cancel
	go s.loop(ctx, t)
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, t)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, t *task) Result {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	start := s.now()
	result := t.fn(ctx)

	s.mu.Lock()
	t.lastRun = start
	t.lastResult = result
	t.runs++
	s.mu.Unlock()

	log.Debug().Str("task", t.name).Str("result", result.String()).Dur("elapsed", s.now().Sub(start)).Msg("Periodic task finished")
	return result
}

// RunNow runs a registered task immediately, waiting for a scheduled run
// in progress to finish first.
func (s *Scheduler) RunNow(ctx context.Context, name string) (Result, error) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return ResultFailure, fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	return s.run(ctx, t), nil
}

func (s *Scheduler) Tasks() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		info := TaskInfo{
			Name:     t.name,
			Interval: t.interval,
			LastRun:  t.lastRun,
			Runs:     t.runs,
		}
		if t.runs > 0 {
			info.LastResult = t.lastResult.String()
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b TaskInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}
