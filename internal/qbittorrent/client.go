// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package qbittorrent adapts a qBittorrent WebUI to domain.TorrentService.
package qbittorrent

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qremote/internal/domain"
)

var (
	minWebAPIVersion      = semver.MustParse("2.0.0")
	pieceStatesMinVersion = semver.MustParse("2.0.2")

	ErrWebAPITooOld = errors.New("qBittorrent WebAPI is too old")
)

const minHealthCheckInterval = 20 * time.Second

type Config struct {
	URL       string
	Username  string
	Password  string
	Timeout   time.Duration
	ServerID  string
	BasicUser string
	BasicPass string
}

type Client struct {
	*qbt.Client
	serverID string
	host     string

	mu                 sync.RWMutex
	webAPIVersion      string
	supportsPieceState bool

	healthMu        sync.RWMutex
	lastHealthCheck time.Time
	isHealthy       bool
}

// NewClient logs in and reads the WebAPI version.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	qbtClient := qbt.NewClient(qbt.Config{
		Host:      cfg.URL,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Timeout:   int(timeout.Seconds()),
		BasicUser: cfg.BasicUser,
		BasicPass: cfg.BasicPass,
	})

	loginCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := qbtClient.LoginCtx(loginCtx); err != nil {
		return nil, &domain.ServiceError{StatusCode: loginStatus(err), Err: errors.Wrap(err, "failed to connect to qBittorrent")}
	}

	client := &Client{
		Client:   qbtClient,
		serverID: cfg.ServerID,
		host:     cfg.URL,
	}

	if err := client.RefreshCapabilities(loginCtx); err != nil {
		client.updateHealthStatus(false)
		return nil, err
	}
	client.updateHealthStatus(true)

	log.Debug().
		Str("serverID", cfg.ServerID).
		Str("host", cfg.URL).
		Str("webAPIVersion", client.GetWebAPIVersion()).
		Bool("supportsPieceStates", client.SupportsPieceStates()).
		Msg("qBittorrent client created successfully")

	return client, nil
}

// loginStatus recovers the HTTP status the library folds into its error text.
func loginStatus(err error) int {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "banned") || strings.Contains(msg, "403"):
		return 403
	case strings.Contains(msg, "bad credentials") || strings.Contains(msg, "401") || strings.Contains(msg, "fails."):
		return 401
	default:
		return 0
	}
}

// RefreshCapabilities fetches the WebAPI version and recalculates feature support.
func (c *Client) RefreshCapabilities(ctx context.Context) error {
	version, err := c.Client.GetWebAPIVersionCtx(ctx)
	if err != nil {
		return &domain.ServiceError{Err: errors.Wrap(err, "could not read WebAPI version")}
	}

	version = strings.TrimSpace(version)
	if version == "" {
		return &domain.ServiceError{Err: fmt.Errorf("web API version is empty")}
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		log.Warn().
			Str("serverID", c.serverID).
			Str("webAPIVersion", version).
			Err(err).
			Msg("Failed to parse qBittorrent WebAPI version; assuming current")
		c.mu.Lock()
		c.webAPIVersion = version
		c.supportsPieceState = true
		c.mu.Unlock()
		return nil
	}
	if v.LessThan(minWebAPIVersion) {
		return &domain.ServiceError{Err: fmt.Errorf("%w: %s < %s", ErrWebAPITooOld, v, minWebAPIVersion)}
	}

	c.mu.Lock()
	c.webAPIVersion = version
	c.supportsPieceState = !v.LessThan(pieceStatesMinVersion)
	c.mu.Unlock()
	return nil
}

func (c *Client) GetWebAPIVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.webAPIVersion
}

func (c *Client) SupportsPieceStates() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.supportsPieceState
}

func (c *Client) updateHealthStatus(healthy bool) {
	c.healthMu.Lock()
	defer c.healthMu.Unlock()
	c.isHealthy = healthy
	c.lastHealthCheck = time.Now()
}

func (c *Client) IsHealthy() bool {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.isHealthy
}

func (c *Client) GetLastHealthCheck() time.Time {
	c.healthMu.RLock()
	defer c.healthMu.RUnlock()
	return c.lastHealthCheck
}

// Ping is a health check; recent successful checks are reused.
func (c *Client) Ping(ctx context.Context) error {
	if c.IsHealthy() && time.Now().Add(-minHealthCheckInterval).Before(c.GetLastHealthCheck()) {
		return nil
	}

	if err := c.RefreshCapabilities(ctx); err != nil {
		c.updateHealthStatus(false)
		return err
	}

	c.updateHealthStatus(true)
	return nil
}

func (c *Client) ListTorrents(ctx context.Context, _ []domain.Field) ([]domain.Torrent, error) {
	torrents, err := c.Client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{Filter: qbt.TorrentFilterAll})
	if err != nil {
		c.updateHealthStatus(false)
		return nil, &domain.ServiceError{Err: errors.Wrap(err, "could not list torrents")}
	}

	out := make([]domain.Torrent, 0, len(torrents))
	for i := range torrents {
		out = append(out, mapTorrent(&torrents[i]))
	}
	return out, nil
}

func (c *Client) GetTorrent(ctx context.Context, id domain.TorrentID, fields []domain.Field) (*domain.Torrent, error) {
	hash := id.String()
	torrents, err := c.Client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{Hashes: []string{hash}})
	if err != nil {
		return nil, &domain.ServiceError{Err: errors.Wrapf(err, "could not get torrent %s", hash)}
	}
	if len(torrents) == 0 {
		return nil, &domain.ServiceError{Err: fmt.Errorf("%w: %s", domain.ErrTorrentNotFound, hash)}
	}

	t := mapTorrent(&torrents[0])
	if slices.Contains(fields, domain.FieldPieces) && c.SupportsPieceStates() {
		states, err := c.Client.GetTorrentPieceStatesCtx(ctx, hash)
		if err != nil {
			return nil, &domain.ServiceError{Err: errors.Wrapf(err, "could not get piece states for %s", hash)}
		}
		t.Pieces, t.PieceCount = encodePieceStates(states)
	}
	return &t, nil
}

func (c *Client) TorrentFiles(ctx context.Context, id domain.TorrentID) ([]domain.TorrentFile, error) {
	hash := id.String()
	files, err := c.Client.GetFilesInformationCtx(ctx, hash)
	if err != nil {
		return nil, &domain.ServiceError{Err: errors.Wrapf(err, "could not get files for %s", hash)}
	}
	if files == nil {
		return nil, &domain.ServiceError{Err: fmt.Errorf("%w: %s", domain.ErrTorrentNotFound, hash)}
	}
	return mapFiles(*files), nil
}
