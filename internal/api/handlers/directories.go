// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"strings"

	"github.com/autobrr/qremote/internal/models"
)

type DirectoriesHandler struct {
	settings    *models.SettingsStore
	directories *models.DirectoriesStore
}

func NewDirectoriesHandler(settings *models.SettingsStore, directories *models.DirectoriesStore) *DirectoriesHandler {
	return &DirectoriesHandler{
		settings:    settings,
		directories: directories,
	}
}

type directoryRequest struct {
	Path     string `json:"path"`
	ServerID string `json:"serverId,omitempty"`
}

type serverDirectoriesResponse struct {
	ServerID    string   `json:"serverId"`
	Directories []string `json:"directories"`
}

// List returns every saved directory, or the merged list for one server
// when serverId is given.
func (h *DirectoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	dirs := h.directories.Load(r.Context())

	serverID := r.URL.Query().Get("serverId")
	if serverID == "" {
		RespondJSON(w, http.StatusOK, dirs)
		return
	}

	if _, err := h.settings.Server(r.Context(), serverID); err != nil {
		respondStoreError(w, err, "Failed to load server")
		return
	}
	RespondJSON(w, http.StatusOK, serverDirectoriesResponse{
		ServerID:    serverID,
		Directories: dirs.ForServer(serverID),
	})
}

func (h *DirectoriesHandler) parse(w http.ResponseWriter, r *http.Request) (directoryRequest, bool) {
	var req directoryRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		RespondError(w, http.StatusBadRequest, "Path is required")
		return req, false
	}
	if req.ServerID != "" {
		if _, err := h.settings.Server(r.Context(), req.ServerID); err != nil {
			respondStoreError(w, err, "Failed to load server")
			return req, false
		}
	}
	return req, true
}

func (h *DirectoriesHandler) Add(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parse(w, r)
	if !ok {
		return
	}

	var (
		dirs models.Directories
		err  error
	)
	if req.ServerID == "" {
		dirs, err = h.directories.AddGlobal(r.Context(), req.Path)
	} else {
		dirs, err = h.directories.AddForServer(r.Context(), req.ServerID, req.Path)
	}
	if err != nil {
		respondStoreError(w, err, "Failed to save directory")
		return
	}
	RespondJSON(w, http.StatusOK, dirs)
}

func (h *DirectoriesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parse(w, r)
	if !ok {
		return
	}

	var (
		dirs models.Directories
		err  error
	)
	if req.ServerID == "" {
		dirs, err = h.directories.RemoveGlobal(r.Context(), req.Path)
	} else {
		dirs, err = h.directories.RemoveForServer(r.Context(), req.ServerID, req.Path)
	}
	if err != nil {
		respondStoreError(w, err, "Failed to remove directory")
		return
	}
	RespondJSON(w, http.StatusOK, dirs)
}
