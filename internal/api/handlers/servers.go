// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/models"
)

const redacted = "<redacted>"

const pingTimeout = 15 * time.Second

// ClientPool hands out daemon clients per server profile.
type ClientPool interface {
	Get(ctx context.Context, profile models.ServerProfile) (domain.TorrentService, error)
	Remove(serverID string)
}

type ServersHandler struct {
	settings    *models.SettingsStore
	directories *models.DirectoriesStore
	clientPool  ClientPool
}

func NewServersHandler(settings *models.SettingsStore, directories *models.DirectoriesStore, clientPool ClientPool) *ServersHandler {
	return &ServersHandler{
		settings:    settings,
		directories: directories,
		clientPool:  clientPool,
	}
}

type serverResponse struct {
	models.ServerProfile
	Type        models.ServerType `json:"type"`
	Active      bool              `json:"active"`
	HasPassword bool              `json:"hasPassword"`
}

func publicServer(p models.ServerProfile) serverResponse {
	resp := serverResponse{ServerProfile: p, Type: p.ClientType(), HasPassword: p.Password != ""}
	if resp.HasPassword {
		resp.Password = redacted
	}
	return resp
}

func (h *ServersHandler) List(w http.ResponseWriter, r *http.Request) {
	settings := h.settings.Load(r.Context())
	active, _ := settings.ActiveServer()

	out := make([]serverResponse, 0, len(settings.Servers))
	for _, p := range settings.Servers {
		resp := publicServer(p)
		resp.Active = p.ID == active.ID
		out = append(out, resp)
	}
	RespondJSON(w, http.StatusOK, out)
}

func (h *ServersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.ServerInput
	if err := decodeJSON(r, &in); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	profile, err := h.settings.AddServer(r.Context(), in)
	if err != nil {
		respondStoreError(w, err, "Failed to add server")
		return
	}
	RespondJSON(w, http.StatusCreated, publicServer(profile))
}

func (h *ServersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "serverID")

	var in models.ServerInput
	if err := decodeJSON(r, &in); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if in.Password == redacted {
		existing, err := h.settings.Server(r.Context(), id)
		if err != nil {
			respondStoreError(w, err, "Failed to update server")
			return
		}
		in.Password = existing.Password
	}

	profile, err := h.settings.UpdateServer(r.Context(), id, in)
	if err != nil {
		respondStoreError(w, err, "Failed to update server")
		return
	}
	h.clientPool.Remove(id)

	RespondJSON(w, http.StatusOK, publicServer(profile))
}

func (h *ServersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "serverID")

	if _, err := h.settings.RemoveServer(r.Context(), id); err != nil {
		respondStoreError(w, err, "Failed to remove server")
		return
	}
	h.clientPool.Remove(id)

	if err := h.directories.PruneServer(r.Context(), id); err != nil {
		log.Warn().Err(err).Str("serverID", id).Msg("failed to prune saved directories")
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ServersHandler) Activate(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.SetActive(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		respondStoreError(w, err, "Failed to activate server")
		return
	}
	RespondJSON(w, http.StatusOK, publicSettings(settings))
}

// Test pings the daemon behind a stored profile.
func (h *ServersHandler) Test(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "serverID")
	profile, err := h.settings.Server(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, "Failed to test server")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	client, err := h.clientPool.Get(ctx, profile)
	if err == nil {
		err = client.Ping(ctx)
	}
	if err != nil {
		log.Debug().Err(err).Str("serverID", id).Msg("server test failed")
		RespondJSON(w, http.StatusOK, map[string]any{"connected": false, "error": err.Error()})
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"connected": true})
}
