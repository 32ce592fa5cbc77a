// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package listing

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"

	"github.com/autobrr/qremote/internal/domain"
)

// Search keeps torrents whose name contains text, ignoring case. With fuzzy
// set, names that contain the characters of text in order also match. An
// empty text keeps everything.
func Search(torrents []domain.Torrent, text string, fuzzyMatch bool) []domain.Torrent {
	if strings.TrimSpace(text) == "" {
		return torrents
	}

	fold := cases.Fold()
	needle := fold.String(text)
	normalizedNeedle := normalizeForSearch(text)

	return keep(torrents, func(t domain.Torrent) bool {
		if strings.Contains(fold.String(t.Name), needle) {
			return true
		}
		if !fuzzyMatch {
			return false
		}
		return fuzzy.MatchNormalizedFold(normalizedNeedle, normalizeForSearch(t.Name))
	})
}

// normalizeForSearch turns common release name separators into spaces.
func normalizeForSearch(text string) string {
	replacer := strings.NewReplacer(".", " ", "_", " ", "-", " ", "[", " ", "]", " ", "(", " ", ")", " ")
	return strings.Join(strings.Fields(strings.ToLower(replacer.Replace(text))), " ")
}
