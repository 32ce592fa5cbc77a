// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/qremote/internal/models"
)

type SettingsHandler struct {
	store *models.SettingsStore
}

func NewSettingsHandler(store *models.SettingsStore) *SettingsHandler {
	return &SettingsHandler{
		store: store,
	}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, publicSettings(h.store.Load(r.Context())))
}

// settingsPatchRequest is the PATCH body. Server profiles are managed
// through /api/servers and cannot be replaced here.
type settingsPatchRequest struct {
	ActiveServerID    *string              `json:"activeServerId,omitempty"`
	ColorScheme       *models.ColorScheme  `json:"colorScheme,omitempty"`
	Authentication    *bool                `json:"authentication,omitempty"`
	Listing           *models.ListingPatch `json:"listing,omitempty"`
	SearchConfig      *models.SearchConfig `json:"searchConfig,omitempty"`
	ClearSearchConfig bool                 `json:"clearSearchConfig,omitempty"`
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn().Err(err).Msg("failed to decode settings request")
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if req.ActiveServerID != nil && *req.ActiveServerID != "" {
		if _, err := h.store.Server(r.Context(), *req.ActiveServerID); err != nil {
			respondStoreError(w, err, "Failed to update settings")
			return
		}
	}

	settings, err := h.store.Store(r.Context(), models.SettingsPatch{
		ActiveServerID:    req.ActiveServerID,
		ColorScheme:       req.ColorScheme,
		Authentication:    req.Authentication,
		Listing:           req.Listing,
		SearchConfig:      req.SearchConfig,
		ClearSearchConfig: req.ClearSearchConfig,
	})
	if err != nil {
		respondStoreError(w, err, "Failed to update settings")
		return
	}

	RespondJSON(w, http.StatusOK, publicSettings(settings))
}

type settingsResponse struct {
	models.Settings
	Servers []serverResponse `json:"servers"`
}

func publicSettings(s models.Settings) settingsResponse {
	servers := make([]serverResponse, 0, len(s.Servers))
	for _, p := range s.Servers {
		servers = append(servers, publicServer(p))
	}
	if s.SearchConfig != nil {
		sc := *s.SearchConfig
		if sc.APIKey != "" {
			sc.APIKey = redacted
		}
		s.SearchConfig = &sc
	}
	return settingsResponse{Settings: s, Servers: servers}
}
