// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidSettings = errors.New("invalid settings")

func invalidSettingf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSettings, fmt.Sprintf(format, args...))
}

// migration carries what a schema decoder may need to synthesize records.
type migration struct {
	newID func() string
	now   func() time.Time
}

// settingsSchema is one accepted shape of the persisted settings value.
// Variants are tried in order; the first one that decodes wins.
type settingsSchema struct {
	name string
	// migrated variants are rewritten in the current shape after decoding
	migrated bool
	decode   func(raw []byte, m migration) (Settings, error)
}

var settingsSchemas = []settingsSchema{
	{name: "current", decode: decodeCurrentSettings},
	{name: "legacy", migrated: true, decode: decodeLegacySettings},
}

type currentSettingsDoc struct {
	Servers        *[]ServerProfile    `json:"servers"`
	ActiveServerID *string             `json:"activeServerId"`
	ColorScheme    *ColorScheme        `json:"colorScheme"`
	Authentication *bool               `json:"authentication"`
	Listing        *ListingPreferences `json:"listing"`
	SearchConfig   *SearchConfig       `json:"searchConfig"`
}

func decodeCurrentSettings(raw []byte, _ migration) (Settings, error) {
	var doc currentSettingsDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Settings{}, err
	}
	if doc.Servers == nil {
		return Settings{}, invalidSettingf("missing servers")
	}
	if doc.ColorScheme == nil || !doc.ColorScheme.Valid() {
		return Settings{}, invalidSettingf("color scheme")
	}
	if doc.Listing == nil || !doc.Listing.Valid() {
		return Settings{}, invalidSettingf("listing preferences")
	}
	if doc.SearchConfig != nil && !doc.SearchConfig.Valid() {
		return Settings{}, invalidSettingf("search config")
	}

	seen := make(map[string]struct{}, len(*doc.Servers))
	for _, srv := range *doc.Servers {
		if srv.ID == "" || srv.URL == "" || !srv.Type.Valid() {
			return Settings{}, invalidSettingf("server profile %q", srv.ID)
		}
		if _, dup := seen[srv.ID]; dup {
			return Settings{}, invalidSettingf("duplicate server id %q", srv.ID)
		}
		seen[srv.ID] = struct{}{}
	}

	s := Settings{
		Servers:      *doc.Servers,
		ColorScheme:  *doc.ColorScheme,
		Listing:      *doc.Listing,
		SearchConfig: doc.SearchConfig,
	}
	if doc.ActiveServerID != nil {
		s.ActiveServerID = *doc.ActiveServerID
	}
	if doc.Authentication != nil {
		s.Authentication = *doc.Authentication
	}
	return s, nil
}

type legacyServerDoc struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// legacySettingsDoc is the single server shape used before profiles existed.
type legacySettingsDoc struct {
	Servers        json.RawMessage  `json:"servers"`
	Server         *legacyServerDoc `json:"server"`
	ColorScheme    ColorScheme      `json:"colorScheme"`
	Authentication bool             `json:"authentication"`
	Listing        *struct {
		Sort      SortKey       `json:"sort"`
		Direction SortDirection `json:"direction"`
		Filter    Filter        `json:"filter"`
	} `json:"listing"`
}

func decodeLegacySettings(raw []byte, m migration) (Settings, error) {
	var doc legacySettingsDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Settings{}, err
	}
	if len(doc.Servers) > 0 {
		return Settings{}, invalidSettingf("servers list is not a legacy field")
	}

	s := DefaultSettings()
	if doc.ColorScheme.Valid() {
		s.ColorScheme = doc.ColorScheme
	}
	s.Authentication = doc.Authentication
	if doc.Listing != nil {
		if doc.Listing.Sort.Valid() {
			s.Listing.Sort = doc.Listing.Sort
		}
		if doc.Listing.Direction.Valid() {
			s.Listing.Direction = doc.Listing.Direction
		}
		if doc.Listing.Filter.Valid() {
			s.Listing.Filter = doc.Listing.Filter
		}
	}

	if doc.Server != nil {
		serverURL := strings.TrimSpace(doc.Server.URL)
		if serverURL == "" {
			return Settings{}, invalidSettingf("legacy server without url")
		}
		name := doc.Server.Name
		if name == "" {
			name = serverURL
		}
		now := m.now().UTC()
		profile := ServerProfile{
			ID:        m.newID(),
			Name:      name,
			URL:       serverURL,
			Username:  doc.Server.Username,
			Password:  doc.Server.Password,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.Servers = []ServerProfile{profile}
		s.ActiveServerID = profile.ID
	}

	return s, nil
}
