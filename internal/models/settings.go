// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"slices"
)

type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

func (c ColorScheme) Valid() bool {
	return c == ColorSchemeSystem || c == ColorSchemeLight || c == ColorSchemeDark
}

type SortKey string

const (
	SortQueue         SortKey = "queue"
	SortActivity      SortKey = "activity"
	SortAge           SortKey = "age"
	SortName          SortKey = "name"
	SortProgress      SortKey = "progress"
	SortSize          SortKey = "size"
	SortStatus        SortKey = "status"
	SortTimeRemaining SortKey = "time-remaining"
	SortRatio         SortKey = "ratio"
)

var SortKeys = []SortKey{
	SortQueue, SortActivity, SortAge, SortName, SortProgress,
	SortSize, SortStatus, SortTimeRemaining, SortRatio,
}

func (k SortKey) Valid() bool { return slices.Contains(SortKeys, k) }

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func (d SortDirection) Valid() bool { return d == SortAsc || d == SortDesc }

type Filter string

const (
	FilterAll         Filter = "all"
	FilterActive      Filter = "active"
	FilterDownloading Filter = "downloading"
	FilterSeeding     Filter = "seeding"
	FilterPaused      Filter = "paused"
	FilterCompleted   Filter = "completed"
	FilterFinished    Filter = "finished"
)

var Filters = []Filter{
	FilterAll, FilterActive, FilterDownloading, FilterSeeding,
	FilterPaused, FilterCompleted, FilterFinished,
}

func (f Filter) Valid() bool { return slices.Contains(Filters, f) }

type ListingPreferences struct {
	Sort      SortKey       `json:"sort"`
	Direction SortDirection `json:"direction"`
	Filter    Filter        `json:"filter"`
}

func DefaultListingPreferences() ListingPreferences {
	return ListingPreferences{Sort: SortQueue, Direction: SortAsc, Filter: FilterAll}
}

func (l ListingPreferences) Valid() bool {
	return l.Sort.Valid() && l.Direction.Valid() && l.Filter.Valid()
}

type SearchBackend string

const (
	SearchBackendJackett  SearchBackend = "jackett"
	SearchBackendProwlarr SearchBackend = "prowlarr"
)

func (b SearchBackend) Valid() bool {
	return b == SearchBackendJackett || b == SearchBackendProwlarr
}

// SearchConfig points at a Torznab indexer aggregator.
type SearchConfig struct {
	URL    string        `json:"url"`
	APIKey string        `json:"apiKey"`
	Type   SearchBackend `json:"type"`
}

func (c SearchConfig) Valid() bool {
	return c.URL != "" && c.Type.Valid()
}

// Settings is the persisted user configuration.
type Settings struct {
	Servers        []ServerProfile    `json:"servers"`
	ActiveServerID string             `json:"activeServerId,omitempty"`
	ColorScheme    ColorScheme        `json:"colorScheme"`
	Authentication bool               `json:"authentication"`
	Listing        ListingPreferences `json:"listing"`
	SearchConfig   *SearchConfig      `json:"searchConfig,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		Servers:     []ServerProfile{},
		ColorScheme: ColorSchemeSystem,
		Listing:     DefaultListingPreferences(),
	}
}

// ActiveServer resolves ActiveServerID, falling back to the first profile.
func (s Settings) ActiveServer() (ServerProfile, bool) {
	if len(s.Servers) == 0 {
		return ServerProfile{}, false
	}
	if p, ok := s.Server(s.ActiveServerID); ok {
		return p, true
	}
	return s.Servers[0], true
}

func (s Settings) Server(id string) (ServerProfile, bool) {
	if id == "" {
		return ServerProfile{}, false
	}
	for _, p := range s.Servers {
		if p.ID == id {
			return p, true
		}
	}
	return ServerProfile{}, false
}

func (s Settings) clone() Settings {
	out := s
	out.Servers = slices.Clone(s.Servers)
	if out.Servers == nil {
		out.Servers = []ServerProfile{}
	}
	if s.SearchConfig != nil {
		sc := *s.SearchConfig
		out.SearchConfig = &sc
	}
	return out
}

// resolveActive rewrites ActiveServerID so it names a member of Servers, or
// is empty when there are none.
func (s *Settings) resolveActive() {
	if p, ok := s.ActiveServer(); ok {
		s.ActiveServerID = p.ID
		return
	}
	s.ActiveServerID = ""
}

// ListingPatch updates listing preferences field by field.
type ListingPatch struct {
	Sort      *SortKey       `json:"sort,omitempty"`
	Direction *SortDirection `json:"direction,omitempty"`
	Filter    *Filter        `json:"filter,omitempty"`
}

// SettingsPatch is a shallow update of Settings. Nil fields are left alone,
// Listing merges per field. ActiveServerID set to "" clears the selection.
type SettingsPatch struct {
	Servers           *[]ServerProfile `json:"servers,omitempty"`
	ActiveServerID    *string          `json:"activeServerId,omitempty"`
	ColorScheme       *ColorScheme     `json:"colorScheme,omitempty"`
	Authentication    *bool            `json:"authentication,omitempty"`
	Listing           *ListingPatch    `json:"listing,omitempty"`
	SearchConfig      *SearchConfig    `json:"searchConfig,omitempty"`
	ClearSearchConfig bool             `json:"-"`
}

// changesServers reports whether applying p alters the registry of s. A
// patch restating the stored registry leaves a dangling active id alone.
func (p SettingsPatch) changesServers(s Settings) bool {
	if p.ActiveServerID != nil && *p.ActiveServerID != s.ActiveServerID {
		return true
	}
	return p.Servers != nil && !slices.EqualFunc(*p.Servers, s.Servers, sameProfile)
}

func sameProfile(a, b ServerProfile) bool {
	return a.ID == b.ID && a.Name == b.Name && a.URL == b.URL &&
		a.Username == b.Username && a.Password == b.Password && a.Type == b.Type &&
		a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
}

func (p SettingsPatch) validate() error {
	if p.ColorScheme != nil && !p.ColorScheme.Valid() {
		return invalidSettingf("color scheme %q", *p.ColorScheme)
	}
	if p.Listing != nil {
		if p.Listing.Sort != nil && !p.Listing.Sort.Valid() {
			return invalidSettingf("sort %q", *p.Listing.Sort)
		}
		if p.Listing.Direction != nil && !p.Listing.Direction.Valid() {
			return invalidSettingf("direction %q", *p.Listing.Direction)
		}
		if p.Listing.Filter != nil && !p.Listing.Filter.Valid() {
			return invalidSettingf("filter %q", *p.Listing.Filter)
		}
	}
	if p.SearchConfig != nil && !p.SearchConfig.Valid() {
		return invalidSettingf("search config")
	}
	if p.Servers != nil {
		seen := make(map[string]struct{}, len(*p.Servers))
		for _, srv := range *p.Servers {
			if srv.ID == "" || srv.URL == "" {
				return invalidSettingf("server profile without id or url")
			}
			if !srv.Type.Valid() {
				return invalidSettingf("server %q has unknown type %q", srv.ID, srv.Type)
			}
			if _, dup := seen[srv.ID]; dup {
				return invalidSettingf("duplicate server id %q", srv.ID)
			}
			seen[srv.ID] = struct{}{}
		}
	}
	return nil
}

func (s Settings) apply(p SettingsPatch) Settings {
	resolve := p.changesServers(s)
	out := s.clone()
	if p.Servers != nil {
		out.Servers = slices.Clone(*p.Servers)
		if out.Servers == nil {
			out.Servers = []ServerProfile{}
		}
	}
	if p.ActiveServerID != nil {
		out.ActiveServerID = *p.ActiveServerID
	}
	if p.ColorScheme != nil {
		out.ColorScheme = *p.ColorScheme
	}
	if p.Authentication != nil {
		out.Authentication = *p.Authentication
	}
	if p.Listing != nil {
		if p.Listing.Sort != nil {
			out.Listing.Sort = *p.Listing.Sort
		}
		if p.Listing.Direction != nil {
			out.Listing.Direction = *p.Listing.Direction
		}
		if p.Listing.Filter != nil {
			out.Listing.Filter = *p.Listing.Filter
		}
	}
	if p.ClearSearchConfig {
		out.SearchConfig = nil
	} else if p.SearchConfig != nil {
		sc := *p.SearchConfig
		out.SearchConfig = &sc
	}
	if resolve {
		out.resolveActive()
	}
	return out
}
