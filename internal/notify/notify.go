// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package notify delivers user visible notifications.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Sink schedules a notification. Delivery is fire-and-forget; failures are
// logged by the sink and never reported back.
type Sink interface {
	Schedule(ctx context.Context, title, body string)
}

// Waiter is implemented by sinks that deliver in the background. Processes
// that exit after a run must wait so pending deliveries are not dropped.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Wait waits for sink when it delivers in the background.
func Wait(ctx context.Context, sink Sink) error {
	if w, ok := sink.(Waiter); ok {
		return w.Wait(ctx)
	}
	return nil
}

// LogSink writes notifications to the application log.
type LogSink struct{}

func (LogSink) Schedule(_ context.Context, title, body string) {
	log.Info().Str("title", title).Str("body", body).Msg("Notification")
}

// Multi fans a notification out to every sink.
type Multi []Sink

func (m Multi) Schedule(ctx context.Context, title, body string) {
	for _, s := range m {
		s.Schedule(ctx, title, body)
	}
}

func (m Multi) Wait(ctx context.Context) error {
	for _, s := range m {
		if err := Wait(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Schedule(_ context.Context, title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Notification{Title: title, Body: body})
}

func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}
