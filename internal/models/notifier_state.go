// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/qremote/internal/kv"
)

const NotifierStateKey = "internal.torrents-notifier"

type ServerCheck struct {
	// LastUpdate is the unix time of the last completed check, 0 if never.
	LastUpdate int64 `json:"lastUpdate"`
}

type NotifierState struct {
	Servers map[string]ServerCheck `json:"servers"`
}

// NotifierStateStore keeps the per server check watermark of the finished
// torrents notifier. Watermarks never move backwards.
type NotifierStateStore struct {
	kv kv.Store
	mu sync.Mutex
}

func NewNotifierStateStore(store kv.Store) *NotifierStateStore {
	return &NotifierStateStore{kv: store}
}

func (s *NotifierStateStore) Load(ctx context.Context) NotifierState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		log.Error().Err(err).Str("key", NotifierStateKey).Msg("Failed to read notifier state")
		return NotifierState{Servers: map[string]ServerCheck{}}
	}
	return state
}

func (s *NotifierStateStore) load(ctx context.Context) (NotifierState, error) {
	raw, found, err := s.kv.Get(ctx, NotifierStateKey)
	if err != nil {
		return NotifierState{}, err
	}
	if !found {
		return NotifierState{Servers: map[string]ServerCheck{}}, nil
	}

	var state NotifierState
	if err := json.Unmarshal([]byte(raw), &state); err != nil || state.Servers == nil {
		log.Warn().Str("key", NotifierStateKey).Msg("Stored notifier state is invalid, resetting")
		state = NotifierState{Servers: map[string]ServerCheck{}}
		if err := s.write(ctx, state); err != nil {
			log.Error().Err(err).Msg("Failed to persist notifier state")
		}
	}
	return state, nil
}

func (s *NotifierStateStore) write(ctx context.Context, state NotifierState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, NotifierStateKey, string(data)); err != nil {
		return fmt.Errorf("failed to store notifier state: %w", err)
	}
	return nil
}

// LastUpdate returns the watermark for serverID, 0 if it was never checked.
func (s *NotifierStateStore) LastUpdate(ctx context.Context, serverID string) int64 {
	return s.Load(ctx).Servers[serverID].LastUpdate
}

// SetLastUpdate raises the watermark for serverID to ts and returns the
// stored value, which is ts unless the stored watermark was already later.
func (s *NotifierStateStore) SetLastUpdate(ctx context.Context, serverID string, ts int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read notifier state: %w", err)
	}

	prev := state.Servers[serverID].LastUpdate
	if ts <= prev {
		return prev, nil
	}
	state.Servers[serverID] = ServerCheck{LastUpdate: ts}
	if err := s.write(ctx, state); err != nil {
		return prev, err
	}
	return ts, nil
}
