// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package remote builds and caches torrent daemon clients for server
// profiles.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autobrr/qremote/internal/buildinfo"
	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/models"
	"github.com/autobrr/qremote/internal/qbittorrent"
	"github.com/autobrr/qremote/internal/transmission"
)

var ErrUnsupportedType = errors.New("unsupported server type")

// Factory creates a client for a profile.
type Factory func(ctx context.Context, profile models.ServerProfile) (domain.TorrentService, error)

// NewFactory returns the factory used outside of tests.
func NewFactory(timeout time.Duration) Factory {
	return func(ctx context.Context, profile models.ServerProfile) (domain.TorrentService, error) {
		return New(ctx, profile, timeout)
	}
}

func New(ctx context.Context, profile models.ServerProfile, timeout time.Duration) (domain.TorrentService, error) {
	switch profile.ClientType() {
	case models.ServerTypeTransmission:
		c, err := transmission.NewClient(transmission.Config{
			URL:       profile.URL,
			Username:  profile.Username,
			Password:  profile.Password,
			Timeout:   timeout,
			UserAgent: buildinfo.UserAgent,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case models.ServerTypeQBittorrent:
		c, err := qbittorrent.NewClient(ctx, qbittorrent.Config{
			URL:      profile.URL,
			Username: profile.Username,
			Password: profile.Password,
			Timeout:  timeout,
			ServerID: profile.ID,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, profile.Type)
	}
}
