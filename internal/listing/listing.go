// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package listing derives the torrent list a screen shows from the raw list a
// daemon returned: filter, directory scope, search, then sort.
package listing

import (
	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/models"
)

// Query is the free text part of a listing request.
type Query struct {
	Text  string
	Fuzzy bool
	// Expr is an optional boolean expression over torrent fields.
	Expr string
}

// Derive runs the listing pipeline. The input slice is not modified. It only
// fails when q.Expr does not compile.
func Derive(torrents []domain.Torrent, prefs models.ListingPreferences, q Query, scope string) ([]domain.Torrent, error) {
	program, err := CompileExpr(q.Expr)
	if err != nil {
		return nil, err
	}

	out := Filter(torrents, prefs.Filter)
	out = Scope(out, scope)
	out = Search(out, q.Text, q.Fuzzy)
	out = Where(out, program)
	return Sort(out, prefs.Sort, prefs.Direction), nil
}
