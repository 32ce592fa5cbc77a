// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package listing

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/models"
)

// row pairs a torrent with its case folded name so the name comparator does
// not fold on every comparison.
type row struct {
	t    domain.Torrent
	name string
}

type comparator func(a, b *row) int

// Each comparator falls through to the next key of its chain on a tie. The
// chains all end in the torrent id, so the order is total.
var comparators = map[models.SortKey]comparator{
	models.SortQueue:         byQueue,
	models.SortActivity:      byActivity,
	models.SortAge:           byAge,
	models.SortName:          byName,
	models.SortProgress:      byProgress,
	models.SortSize:          bySize,
	models.SortStatus:        byStatus,
	models.SortTimeRemaining: byTimeRemaining,
	models.SortRatio:         byRatio,
}

func byID(a, b *row) int {
	return a.t.ID.Compare(b.t.ID)
}

func byQueue(a, b *row) int {
	if c := cmp.Compare(a.t.QueuePosition, b.t.QueuePosition); c != 0 {
		return c
	}
	return byID(a, b)
}

func byStatus(a, b *row) int {
	if c := cmp.Compare(a.t.Status, b.t.Status); c != 0 {
		return c
	}
	return byQueue(a, b)
}

func byActivity(a, b *row) int {
	if c := cmp.Compare(a.t.ActivityDate, b.t.ActivityDate); c != 0 {
		return c
	}
	return byStatus(a, b)
}

func byAge(a, b *row) int {
	if c := cmp.Compare(a.t.AddedDate, b.t.AddedDate); c != 0 {
		return c
	}
	return byID(a, b)
}

func byName(a, b *row) int {
	if c := strings.Compare(a.name, b.name); c != 0 {
		return c
	}
	return byID(a, b)
}

func byRatio(a, b *row) int {
	if c := cmp.Compare(a.t.UploadRatio, b.t.UploadRatio); c != 0 {
		return c
	}
	return byStatus(a, b)
}

func byProgress(a, b *row) int {
	if c := cmp.Compare(a.t.PercentDone, b.t.PercentDone); c != 0 {
		return c
	}
	return byRatio(a, b)
}

func bySize(a, b *row) int {
	if c := cmp.Compare(a.t.TotalSize, b.t.TotalSize); c != 0 {
		return c
	}
	return byName(a, b)
}

// byTimeRemaining puts completed torrents first, then those with a known
// ETA (shortest first), then those without one.
func byTimeRemaining(a, b *row) int {
	aDone, bDone := a.t.Completed(), b.t.Completed()
	if aDone != bDone {
		if aDone {
			return -1
		}
		return 1
	}
	if !aDone {
		aKnown, bKnown := a.t.ETA >= 0, b.t.ETA >= 0
		if aKnown != bKnown {
			if aKnown {
				return -1
			}
			return 1
		}
		if aKnown {
			if c := cmp.Compare(a.t.ETA, b.t.ETA); c != 0 {
				return c
			}
		}
	}
	return byQueue(a, b)
}

// Sort returns a sorted copy of torrents. Descending order negates the whole
// comparator, tie-breaks included. Unknown keys sort by queue position.
func Sort(torrents []domain.Torrent, key models.SortKey, dir models.SortDirection) []domain.Torrent {
	compare, ok := comparators[key]
	if !ok {
		compare = byQueue
	}

	fold := cases.Fold()
	rows := make([]row, len(torrents))
	for i, t := range torrents {
		rows[i] = row{t: t, name: fold.String(t.Name)}
	}

	desc := dir == models.SortDesc
	slices.SortStableFunc(rows, func(a, b row) int {
		c := compare(&a, &b)
		if desc {
			return -c
		}
		return c
	})

	out := make([]domain.Torrent, len(rows))
	for i := range rows {
		out[i] = rows[i].t
	}
	return out
}
