// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/autobrr/qremote/internal/bitfield"
	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/filetree"
	"github.com/autobrr/qremote/internal/listing"
	"github.com/autobrr/qremote/internal/models"
)

// activeServer is accepted wherever a server id is expected.
const activeServer = "active"

type TorrentsHandler struct {
	settings   *models.SettingsStore
	clientPool ClientPool
	timeout    time.Duration
}

func NewTorrentsHandler(settings *models.SettingsStore, clientPool ClientPool, timeout time.Duration) *TorrentsHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TorrentsHandler{
		settings:   settings,
		clientPool: clientPool,
		timeout:    timeout,
	}
}

func (h *TorrentsHandler) client(ctx context.Context, serverID string) (models.ServerProfile, domain.TorrentService, error) {
	var (
		profile models.ServerProfile
		err     error
	)
	if serverID == activeServer {
		profile, err = h.settings.ActiveServer(ctx)
	} else {
		profile, err = h.settings.Server(ctx, serverID)
	}
	if err != nil {
		return profile, nil, err
	}

	client, err := h.clientPool.Get(ctx, profile)
	return profile, client, err
}

type TorrentListResponse struct {
	ServerID    string                    `json:"serverId"`
	Total       int                       `json:"total"`
	Counts      map[models.Filter]int     `json:"counts"`
	Directories []listing.DirectoryCount  `json:"directories"`
	Listing     models.ListingPreferences `json:"listing"`
	Torrents    []domain.Torrent          `json:"torrents"`
}

// parseListing overlays query parameters on the stored preferences.
func parseListing(r *http.Request, prefs models.ListingPreferences) (models.ListingPreferences, error) {
	q := r.URL.Query()
	if v := q.Get("sort"); v != "" {
		prefs.Sort = models.SortKey(v)
	}
	if v := q.Get("direction"); v != "" {
		prefs.Direction = models.SortDirection(v)
	}
	if v := q.Get("filter"); v != "" {
		prefs.Filter = models.Filter(v)
	}
	if !prefs.Valid() {
		return prefs, errors.New("invalid sort, direction or filter")
	}
	return prefs, nil
}

func (h *TorrentsHandler) List(w http.ResponseWriter, r *http.Request) {
	prefs, err := parseListing(r, h.settings.Load(r.Context()).Listing)
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	query := listing.Query{Text: q.Get("q"), Expr: q.Get("expr")}
	query.Fuzzy, _ = strconv.ParseBool(q.Get("fuzzy"))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	profile, client, err := h.client(ctx, chi.URLParam(r, "serverID"))
	if err != nil {
		respondStoreError(w, err, "Failed to connect to server")
		return
	}

	torrents, err := client.ListTorrents(ctx, domain.ListingFields)
	if err != nil {
		respondStoreError(w, err, "Failed to list torrents")
		return
	}

	derived, err := listing.Derive(torrents, prefs, query, q.Get("dir"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	RespondJSON(w, http.StatusOK, TorrentListResponse{
		ServerID:    profile.ID,
		Total:       len(torrents),
		Counts:      listing.Counts(torrents),
		Directories: listing.Directories(torrents),
		Listing:     prefs,
		Torrents:    derived,
	})
}

type FileEntry struct {
	Name   string         `json:"name"`
	Path   string         `json:"path"`
	IsFile bool           `json:"isFile"`
	Stats  filetree.Stats `json:"stats"`
}

type FilesResponse struct {
	Path    string         `json:"path"`
	CanGoUp bool           `json:"canGoUp"`
	Stats   filetree.Stats `json:"stats"`
	Entries []FileEntry    `json:"entries"`
}

func (h *TorrentsHandler) Files(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	_, client, err := h.client(ctx, chi.URLParam(r, "serverID"))
	if err != nil {
		respondStoreError(w, err, "Failed to connect to server")
		return
	}

	files, err := client.TorrentFiles(ctx, domain.ParseTorrentID(chi.URLParam(r, "torrentID")))
	if err != nil {
		respondStoreError(w, err, "Failed to load files")
		return
	}

	browser := filetree.NewBrowser(filetree.Build(files))
	if err := browser.EnterFolder(r.URL.Query().Get("path")); err != nil {
		RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	tree := browser.Tree()
	children := tree.Children(browser.Current())
	entries := make([]FileEntry, 0, len(children))
	for _, id := range children {
		node := tree.Node(id)
		entries = append(entries, FileEntry{
			Name:   node.Name,
			Path:   node.Path,
			IsFile: node.IsFile,
			Stats:  tree.Stats(id),
		})
	}

	RespondJSON(w, http.StatusOK, FilesResponse{
		Path:    browser.Path(),
		CanGoUp: browser.CanGoUp(),
		Stats:   tree.Stats(browser.Current()),
		Entries: entries,
	})
}

type PiecesResponse struct {
	PieceCount int    `json:"pieceCount"`
	Have       int    `json:"have"`
	Complete   bool   `json:"complete"`
	Summary    string `json:"summary"`
	Pieces     string `json:"pieces"`
	Grid       []bool `json:"grid,omitempty"`
}

func (h *TorrentsHandler) Pieces(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	_, client, err := h.client(ctx, chi.URLParam(r, "serverID"))
	if err != nil {
		respondStoreError(w, err, "Failed to connect to server")
		return
	}

	id := domain.ParseTorrentID(chi.URLParam(r, "torrentID"))
	t, err := client.GetTorrent(ctx, id, []domain.Field{domain.FieldPieces, domain.FieldPieceCount})
	if err != nil {
		respondStoreError(w, err, "Failed to load pieces")
		return
	}

	summary := bitfield.Summarize(t.Pieces, t.PieceCount)
	resp := PiecesResponse{
		PieceCount: summary.Total,
		Have:       summary.Have,
		Complete:   summary.Complete(),
		Summary:    summary.String(),
		Pieces:     t.Pieces,
	}
	if grid, _ := strconv.ParseBool(r.URL.Query().Get("grid")); grid {
		resp.Grid = bitfield.Grid(t.Pieces, t.PieceCount)
	}
	RespondJSON(w, http.StatusOK, resp)
}
