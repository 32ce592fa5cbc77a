// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/qremote/internal/kv"
)

const DirectoriesKey = "user.directories"

// Directories are remembered download directories. Global entries apply to
// every server. Each list is sorted and free of duplicates.
type Directories struct {
	Global  []string            `json:"global"`
	Servers map[string][]string `json:"servers"`
}

func emptyDirectories() Directories {
	return Directories{Global: []string{}, Servers: map[string][]string{}}
}

// ForServer is the union of the global directories and those saved for id.
func (d Directories) ForServer(id string) []string {
	return normalizeDirSet(append(slices.Clone(d.Global), d.Servers[id]...))
}

func normalizeDirSet(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			out = append(out, dir)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (d Directories) normalized() Directories {
	out := Directories{Global: normalizeDirSet(d.Global), Servers: make(map[string][]string, len(d.Servers))}
	for id, dirs := range d.Servers {
		if dirs = normalizeDirSet(dirs); len(dirs) > 0 {
			out.Servers[id] = dirs
		}
	}
	return out
}

type DirectoriesStore struct {
	kv kv.Store
	mu sync.Mutex
}

func NewDirectoriesStore(store kv.Store) *DirectoriesStore {
	return &DirectoriesStore{kv: store}
}

// Load never fails. An unreadable value is replaced by an empty one.
func (s *DirectoriesStore) Load(ctx context.Context) Directories {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load(ctx)
	if err != nil {
		log.Error().Err(err).Str("key", DirectoriesKey).Msg("Failed to read directories")
		return emptyDirectories()
	}
	return d
}

func (s *DirectoriesStore) load(ctx context.Context) (Directories, error) {
	raw, found, err := s.kv.Get(ctx, DirectoriesKey)
	if err != nil {
		return Directories{}, err
	}
	if !found {
		return emptyDirectories(), nil
	}

	var d Directories
	if err := json.Unmarshal([]byte(raw), &d); err != nil || d.Global == nil || d.Servers == nil {
		log.Warn().Str("key", DirectoriesKey).Msg("Stored directories are invalid, resetting")
		d = emptyDirectories()
		if err := s.write(ctx, d); err != nil {
			log.Error().Err(err).Msg("Failed to persist directories")
		}
		return d, nil
	}
	return d.normalized(), nil
}

func (s *DirectoriesStore) write(ctx context.Context, d Directories) error {
	data, err := json.Marshal(d.normalized())
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, DirectoriesKey, string(data)); err != nil {
		return fmt.Errorf("failed to store directories: %w", err)
	}
	return nil
}

func (s *DirectoriesStore) update(ctx context.Context, fn func(d *Directories)) (Directories, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load(ctx)
	if err != nil {
		return Directories{}, fmt.Errorf("failed to read directories: %w", err)
	}
	d.Servers = maps.Clone(d.Servers)
	fn(&d)
	d = d.normalized()
	if err := s.write(ctx, d); err != nil {
		return Directories{}, err
	}
	return d, nil
}

func (s *DirectoriesStore) AddGlobal(ctx context.Context, dir string) (Directories, error) {
	return s.update(ctx, func(d *Directories) {
		d.Global = append(d.Global, dir)
	})
}

func (s *DirectoriesStore) RemoveGlobal(ctx context.Context, dir string) (Directories, error) {
	return s.update(ctx, func(d *Directories) {
		d.Global = slices.DeleteFunc(slices.Clone(d.Global), func(v string) bool { return v == dir })
	})
}

func (s *DirectoriesStore) AddForServer(ctx context.Context, serverID, dir string) (Directories, error) {
	return s.update(ctx, func(d *Directories) {
		d.Servers[serverID] = append(slices.Clone(d.Servers[serverID]), dir)
	})
}

func (s *DirectoriesStore) RemoveForServer(ctx context.Context, serverID, dir string) (Directories, error) {
	return s.update(ctx, func(d *Directories) {
		d.Servers[serverID] = slices.DeleteFunc(slices.Clone(d.Servers[serverID]), func(v string) bool { return v == dir })
	})
}

// PruneServer forgets every directory saved for a removed server.
func (s *DirectoriesStore) PruneServer(ctx context.Context, serverID string) error {
	_, err := s.update(ctx, func(d *Directories) {
		delete(d.Servers, serverID)
	})
	return err
}
