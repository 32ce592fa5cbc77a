// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package filetree

import (
	"github.com/autobrr/qremote/internal/domain"
)

type PriorityLabel string

const (
	PriorityLow    PriorityLabel = "Low"
	PriorityNormal PriorityLabel = "Normal"
	PriorityHigh   PriorityLabel = "High"
	PriorityMixed  PriorityLabel = "Mixed"
)

func labelFor(p domain.FilePriority) PriorityLabel {
	switch {
	case p < 0:
		return PriorityLow
	case p > 0:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// Stats aggregates the files at or below a node.
type Stats struct {
	Files           int           `json:"files"`
	TotalBytes      int64         `json:"totalBytes"`
	DownloadedBytes int64         `json:"downloadedBytes"`
	Priority        PriorityLabel `json:"priority"`
	// Wanted is true when at least one file is wanted.
	Wanted bool `json:"wanted"`
	// AllWanted lets callers render a tri-state checkbox.
	AllWanted bool `json:"allWanted"`
}

// Progress is the downloaded fraction, 0 for empty nodes.
func (s Stats) Progress() float64 {
	if s.TotalBytes <= 0 {
		return 0
	}
	return float64(s.DownloadedBytes) / float64(s.TotalBytes)
}

func (t *Tree) Stats(id NodeID) Stats {
	s := Stats{Priority: PriorityNormal}
	first := true
	for _, fid := range t.nodes[id].FileIDs {
		f, ok := t.files[fid]
		if !ok {
			continue
		}
		s.Files++
		s.TotalBytes += f.Length
		s.DownloadedBytes += f.BytesCompleted

		label := labelFor(f.Priority)
		switch {
		case first:
			s.Priority = label
			s.AllWanted = f.Wanted
		case s.Priority != label:
			s.Priority = PriorityMixed
		}
		if f.Wanted {
			s.Wanted = true
		} else {
			s.AllWanted = false
		}
		first = false
	}
	return s
}
