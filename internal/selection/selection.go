// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package selection tracks which torrents of a listing are selected.
package selection

import (
	"slices"

	"github.com/autobrr/qremote/internal/domain"
)

// Set is owned by a single screen and is not safe for concurrent use.
// Selection mode is active while the set is non-empty.
type Set struct {
	ids map[domain.TorrentID]struct{}
}

func New() *Set {
	return &Set{ids: make(map[domain.TorrentID]struct{})}
}

// IDsOf collects the ids of a displayed list.
func IDsOf(torrents []domain.Torrent) []domain.TorrentID {
	out := make([]domain.TorrentID, 0, len(torrents))
	for _, t := range torrents {
		out = append(out, t.ID)
	}
	return out
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Set) Toggle(id domain.TorrentID) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Set) Select(ids ...domain.TorrentID) {
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

func (s *Set) Deselect(ids ...domain.TorrentID) {
	for _, id := range ids {
		delete(s.ids, id)
	}
}

// SelectAll replaces the selection with ids, usually every torrent of the
// displayed list.
func (s *Set) SelectAll(ids []domain.TorrentID) {
	clear(s.ids)
	s.Select(ids...)
}

func (s *Set) Clear() {
	clear(s.ids)
}

// Retain drops ids no longer present in visible, e.g. after a refresh
// removed them from the server. It returns how many were dropped.
func (s *Set) Retain(visible []domain.TorrentID) int {
	present := make(map[domain.TorrentID]struct{}, len(visible))
	for _, id := range visible {
		present[id] = struct{}{}
	}

	dropped := 0
	for id := range s.ids {
		if _, ok := present[id]; !ok {
			delete(s.ids, id)
			dropped++
		}
	}
	return dropped
}

func (s *Set) Active() bool {
	return len(s.ids) > 0
}

func (s *Set) Contains(id domain.TorrentID) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in TorrentID order.
func (s *Set) IDs() []domain.TorrentID {
	out := make([]domain.TorrentID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.SortFunc(out, domain.TorrentID.Compare)
	return out
}
