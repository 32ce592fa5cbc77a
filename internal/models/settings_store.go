// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qremote/internal/kv"
)

const SettingsKey = "user.settings"

// SettingsStore owns the persisted Settings value. Load never fails; Store
// merges a patch onto the freshly loaded value and persists the result.
type SettingsStore struct {
	kv kv.Store

	mu sync.Mutex
	// digest of the canonical encoding last read from or written to kv
	digest    uint64
	hasDigest bool

	now   func() time.Time
	newID func() string
}

func NewSettingsStore(store kv.Store) *SettingsStore {
	return &SettingsStore{
		kv:    store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Load returns the current settings, migrating or resetting the persisted
// value when it is not in the current shape.
func (s *SettingsStore) Load(ctx context.Context) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.load(ctx)
	if err != nil {
		log.Error().Err(err).Str("key", SettingsKey).Msg("Failed to read settings, using defaults")
		return DefaultSettings()
	}
	return settings
}

// load only fails when the kv store itself cannot be read.
func (s *SettingsStore) load(ctx context.Context) (Settings, error) {
	raw, found, err := s.kv.Get(ctx, SettingsKey)
	if err != nil {
		s.hasDigest = false
		return Settings{}, err
	}
	if !found {
		// defaults are implied by absence, storing them unchanged is a no-op
		s.remember(DefaultSettings())
		return DefaultSettings(), nil
	}

	m := migration{newID: s.newID, now: s.now}
	for _, schema := range settingsSchemas {
		settings, err := schema.decode([]byte(raw), m)
		if err != nil {
			log.Trace().Err(err).Str("schema", schema.name).Msg("Settings do not match schema")
			continue
		}
		if schema.migrated {
			log.Info().Str("schema", schema.name).Int("servers", len(settings.Servers)).Msg("Migrating stored settings")
			s.persist(ctx, settings)
		} else {
			s.remember(settings)
		}
		return settings.clone(), nil
	}

	log.Warn().Str("key", SettingsKey).Msg("Stored settings are invalid, resetting to defaults")
	settings := DefaultSettings()
	s.persist(ctx, settings)
	return settings, nil
}

// persist is used by self-healing paths where a write failure only means the
// next load heals again.
func (s *SettingsStore) persist(ctx context.Context, settings Settings) {
	if err := s.write(ctx, settings); err != nil {
		log.Error().Err(err).Str("key", SettingsKey).Msg("Failed to persist settings")
	}
}

func (s *SettingsStore) write(ctx context.Context, settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	digest := xxhash.Sum64(data)
	if s.hasDigest && digest == s.digest {
		return nil
	}
	if err := s.kv.Set(ctx, SettingsKey, string(data)); err != nil {
		s.hasDigest = false
		return fmt.Errorf("failed to store settings: %w", err)
	}
	s.digest, s.hasDigest = digest, true
	return nil
}

// checkStorable rejects settings that Load would not read back as the
// current schema.
func checkStorable(settings Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if _, err := decodeCurrentSettings(data, migration{}); err != nil {
		if errors.Is(err, ErrInvalidSettings) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

func (s *SettingsStore) remember(settings Settings) {
	data, err := json.Marshal(settings)
	if err != nil {
		s.hasDigest = false
		return
	}
	s.digest, s.hasDigest = xxhash.Sum64(data), true
}

// Store applies patch and persists the merged settings. Writing a value equal
// to the one already stored is skipped.
func (s *SettingsStore) Store(ctx context.Context, patch SettingsPatch) (Settings, error) {
	if err := patch.validate(); err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(ctx, func(Settings) (SettingsPatch, error) { return patch, nil })
}

// update runs a read-modify-write cycle; build derives the patch from the
// freshly loaded settings. Callers hold s.mu.
func (s *SettingsStore) update(ctx context.Context, build func(Settings) (SettingsPatch, error)) (Settings, error) {
	current, err := s.load(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	patch, err := build(current)
	if err != nil {
		return Settings{}, err
	}

	merged := current.apply(patch)
	if err := checkStorable(merged); err != nil {
		return Settings{}, err
	}
	if err := s.write(ctx, merged); err != nil {
		return Settings{}, err
	}
	return merged.clone(), nil
}

// AddServer validates in and appends a new profile. The first profile added
// becomes the active server.
func (s *SettingsStore) AddServer(ctx context.Context, in ServerInput) (ServerProfile, error) {
	in, err := in.normalize()
	if err != nil {
		return ServerProfile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	profile := ServerProfile{
		ID:        s.newID(),
		Name:      in.Name,
		URL:       in.URL,
		Username:  in.Username,
		Password:  in.Password,
		Type:      in.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.update(ctx, func(current Settings) (SettingsPatch, error) {
		servers := append(slices.Clone(current.Servers), profile)
		return SettingsPatch{Servers: &servers}, nil
	})
	if err != nil {
		return ServerProfile{}, err
	}

	log.Info().Str("serverID", profile.ID).Str("name", profile.Name).Msg("Server added")
	return profile, nil
}

// UpdateServer replaces the profile with id, keeping its id and creation time.
func (s *SettingsStore) UpdateServer(ctx context.Context, id string, in ServerInput) (ServerProfile, error) {
	in, err := in.normalize()
	if err != nil {
		return ServerProfile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated ServerProfile
	_, err = s.update(ctx, func(current Settings) (SettingsPatch, error) {
		idx := slices.IndexFunc(current.Servers, func(p ServerProfile) bool { return p.ID == id })
		if idx < 0 {
			return SettingsPatch{}, ErrServerNotFound
		}
		updated = ServerProfile{
			ID:        id,
			Name:      in.Name,
			URL:       in.URL,
			Username:  in.Username,
			Password:  in.Password,
			Type:      in.Type,
			CreatedAt: current.Servers[idx].CreatedAt,
			UpdatedAt: s.now().UTC(),
		}
		servers := slices.Clone(current.Servers)
		servers[idx] = updated
		return SettingsPatch{Servers: &servers}, nil
	})
	if err != nil {
		return ServerProfile{}, err
	}
	return updated, nil
}

// RemoveServer deletes the profile with id. When it was active the first
// remaining profile becomes active.
func (s *SettingsStore) RemoveServer(ctx context.Context, id string) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.update(ctx, func(current Settings) (SettingsPatch, error) {
		if _, ok := current.Server(id); !ok {
			return SettingsPatch{}, ErrServerNotFound
		}
		servers := slices.DeleteFunc(slices.Clone(current.Servers), func(p ServerProfile) bool { return p.ID == id })
		active := current.ActiveServerID
		if active == id {
			active = ""
		}
		return SettingsPatch{Servers: &servers, ActiveServerID: &active}, nil
	})
	if err != nil {
		return Settings{}, err
	}

	log.Info().Str("serverID", id).Msg("Server removed")
	return settings, nil
}

// SetActive marks the profile with id as the active server.
func (s *SettingsStore) SetActive(ctx context.Context, id string) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(ctx, func(current Settings) (SettingsPatch, error) {
		if _, ok := current.Server(id); !ok {
			return SettingsPatch{}, ErrServerNotFound
		}
		return SettingsPatch{ActiveServerID: &id}, nil
	})
}

// ActiveServer returns the resolved active profile.
func (s *SettingsStore) ActiveServer(ctx context.Context) (ServerProfile, error) {
	if p, ok := s.Load(ctx).ActiveServer(); ok {
		return p, nil
	}
	return ServerProfile{}, ErrNoActiveServer
}

// Server returns the profile with id.
func (s *SettingsStore) Server(ctx context.Context, id string) (ServerProfile, error) {
	if p, ok := s.Load(ctx).Server(id); ok {
		return p, nil
	}
	return ServerProfile{}, ErrServerNotFound
}
