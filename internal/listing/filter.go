// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package listing

import (
	"cmp"
	"slices"

	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/models"
)

// Predicate reports whether a torrent belongs to a filter.
type Predicate func(t domain.Torrent) bool

var predicates = map[models.Filter]Predicate{
	models.FilterAll: func(domain.Torrent) bool { return true },
	models.FilterActive: func(t domain.Torrent) bool {
		if t.PeersSendingToUs > 0 || t.PeersGettingFromUs > 0 || t.WebseedsSendingToUs > 0 {
			return true
		}
		switch t.Status {
		case domain.StatusCheck, domain.StatusDownload, domain.StatusSeed:
			return true
		}
		return false
	},
	models.FilterDownloading: func(t domain.Torrent) bool {
		return t.Status == domain.StatusDownloadWait || t.Status == domain.StatusDownload
	},
	models.FilterSeeding: func(t domain.Torrent) bool {
		return t.Status == domain.StatusSeedWait || t.Status == domain.StatusSeed
	},
	models.FilterPaused: func(t domain.Torrent) bool {
		return t.Status == domain.StatusStopped
	},
	models.FilterCompleted: func(t domain.Torrent) bool {
		return t.Completed()
	},
	models.FilterFinished: func(t domain.Torrent) bool {
		return t.IsFinished
	},
}

// PredicateFor returns the predicate of f. Unknown filters match everything.
func PredicateFor(f models.Filter) Predicate {
	if p, ok := predicates[f]; ok {
		return p
	}
	return predicates[models.FilterAll]
}

// Filter keeps the torrents matching f, preserving order.
func Filter(torrents []domain.Torrent, f models.Filter) []domain.Torrent {
	return keep(torrents, PredicateFor(f))
}

// Scope keeps torrents downloading into exactly dir. An empty dir keeps all.
func Scope(torrents []domain.Torrent, dir string) []domain.Torrent {
	if dir == "" {
		return torrents
	}
	return keep(torrents, func(t domain.Torrent) bool { return t.DownloadDir == dir })
}

func keep(torrents []domain.Torrent, p Predicate) []domain.Torrent {
	out := make([]domain.Torrent, 0, len(torrents))
	for _, t := range torrents {
		if p(t) {
			out = append(out, t)
		}
	}
	return out
}

// Counts returns how many torrents each filter matches.
func Counts(torrents []domain.Torrent) map[models.Filter]int {
	counts := make(map[models.Filter]int, len(models.Filters))
	for _, f := range models.Filters {
		p := predicates[f]
		for _, t := range torrents {
			if p(t) {
				counts[f]++
			}
		}
	}
	return counts
}

type DirectoryCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// Directories lists the distinct download directories, sorted by path.
func Directories(torrents []domain.Torrent) []DirectoryCount {
	byPath := make(map[string]int)
	for _, t := range torrents {
		if t.DownloadDir != "" {
			byPath[t.DownloadDir]++
		}
	}
	out := make([]DirectoryCount, 0, len(byPath))
	for path, n := range byPath {
		out = append(out, DirectoryCount{Path: path, Count: n})
	}
	slices.SortFunc(out, func(a, b DirectoryCount) int { return cmp.Compare(a.Path, b.Path) })
	return out
}
