// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/models"
)

const maxRequestBody = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondStoreError maps store and daemon errors to a status code.
func respondStoreError(w http.ResponseWriter, err error, fallback string) {
	var svcErr *domain.ServiceError
	switch {
	case errors.Is(err, models.ErrServerNotFound):
		RespondError(w, http.StatusNotFound, "Server not found")
	case errors.Is(err, models.ErrNoActiveServer):
		RespondError(w, http.StatusNotFound, "No server configured")
	case errors.Is(err, models.ErrInvalidHost), errors.Is(err, models.ErrInvalidSettings):
		RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTorrentNotFound):
		RespondError(w, http.StatusNotFound, "Torrent not found")
	case errors.As(err, &svcErr):
		if svcErr.IsUnauthorized() {
			RespondError(w, http.StatusBadGateway, "Torrent daemon rejected the credentials")
			return
		}
		RespondError(w, http.StatusBadGateway, err.Error())
	default:
		log.Error().Err(err).Msg(fallback)
		RespondError(w, http.StatusInternalServerError, fallback)
	}
}
