// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	ErrServerNotFound = errors.New("server not found")
	ErrNoActiveServer = errors.New("no server configured")
	ErrInvalidHost    = errors.New("invalid server url")
)

type ServerType string

const (
	ServerTypeTransmission ServerType = "transmission"
	ServerTypeQBittorrent  ServerType = "qbittorrent"
)

func (t ServerType) Valid() bool {
	return t == "" || t == ServerTypeTransmission || t == ServerTypeQBittorrent
}

// ServerProfile is one configured daemon. Profiles are replaced as a whole
// on update; ID is generated once and never reused.
type ServerProfile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	URL       string     `json:"url"`
	Username  string     `json:"username,omitempty"`
	Password  string     `json:"password,omitempty"`
	Type      ServerType `json:"type,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ClientType returns the daemon flavour, Transmission when unset.
func (p ServerProfile) ClientType() ServerType {
	if p.Type == "" {
		return ServerTypeTransmission
	}
	return p.Type
}

// ServerInput is what a user supplies when adding or editing a profile.
type ServerInput struct {
	Name     string     `json:"name"`
	URL      string     `json:"url"`
	Username string     `json:"username,omitempty"`
	Password string     `json:"password,omitempty"`
	Type     ServerType `json:"type,omitempty"`
}

func (in ServerInput) normalize() (ServerInput, error) {
	host, err := validateAndNormalizeHost(in.URL)
	if err != nil {
		return in, err
	}
	in.URL = host

	in.Type = ServerType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	if !in.Type.Valid() {
		return in, fmt.Errorf("%w: unsupported server type %q", ErrInvalidHost, in.Type)
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		u, _ := url.Parse(host)
		in.Name = u.Host
	}
	in.Username = strings.TrimSpace(in.Username)
	return in, nil
}

func validateAndNormalizeHost(rawHost string) (string, error) {
	rawHost = strings.TrimSpace(rawHost)
	if rawHost == "" {
		return "", fmt.Errorf("%w: host cannot be empty", ErrInvalidHost)
	}

	if !strings.Contains(rawHost, "://") {
		rawHost = "http://" + rawHost
	}

	u, err := url.Parse(rawHost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHost, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q: must be http or https", ErrInvalidHost, u.Scheme)
	}

	if u.Host == "" {
		return "", fmt.Errorf("%w: URL must include a host", ErrInvalidHost)
	}

	return u.String(), nil
}
