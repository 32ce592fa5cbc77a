// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package transmission is a minimal Transmission RPC client implementing
// domain.TorrentService.
package transmission

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/hashicorp/go-version"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/autobrr/qremote/internal/domain"
)

const (
	sessionHeader  = "X-Transmission-Session-Id"
	defaultRPCPath = "/transmission/rpc"
	maxErrorBody   = 4 << 10
)

// 2.40 is the first release reporting every listing field.
var minDaemonVersion = version.Must(version.NewVersion("2.40"))

var (
	errSessionConflict = errors.New("session id rejected")
	ErrDaemonTooOld    = errors.New("transmission daemon is too old")
)

type Config struct {
	URL       string
	Username  string
	Password  string
	Timeout   time.Duration
	UserAgent string
	// HTTPClient overrides the default client; Timeout is ignored then.
	HTTPClient *http.Client
}

type Client struct {
	endpoint  string
	username  string
	password  string
	userAgent string
	http      *http.Client

	mu        sync.Mutex
	sessionID string
	tag       atomic.Int64
}

// NewClient validates the endpoint. A URL without a path talks to the
// daemon's default RPC path.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("invalid transmission url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid transmission url %q: scheme must be http or https", cfg.URL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid transmission url %q: missing host", cfg.URL)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = defaultRPCPath
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:  u.String(),
		username:  cfg.Username,
		password:  cfg.Password,
		userAgent: cfg.UserAgent,
		http:      httpClient,
	}, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Ping checks connectivity, credentials and the daemon version.
func (c *Client) Ping(ctx context.Context) error {
	args, _ := sjson.Set("{}", "fields", []string{"version", "rpc-version"})
	res, err := c.call(ctx, "session-get", args)
	if err != nil {
		return err
	}

	raw := res.Get("version").String()
	v, err := parseDaemonVersion(raw)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", c.endpoint).Str("version", raw).Msg("Could not parse transmission version")
		return nil
	}
	if v.LessThan(minDaemonVersion) {
		return &domain.ServiceError{Err: fmt.Errorf("%w: %s < %s", ErrDaemonTooOld, v, minDaemonVersion)}
	}
	return nil
}

// parseDaemonVersion reads strings like "4.0.5 (a6fe2a64aa)".
func parseDaemonVersion(raw string) (*version.Version, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, errors.New("empty version")
	}
	return version.NewVersion(fields[0])
}

func (c *Client) ListTorrents(ctx context.Context, fields []domain.Field) ([]domain.Torrent, error) {
	args, _ := sjson.Set("{}", "fields", fieldNames(fields))
	res, err := c.call(ctx, "torrent-get", args)
	if err != nil {
		return nil, err
	}

	list := res.Get("torrents").Array()
	out := make([]domain.Torrent, 0, len(list))
	for _, r := range list {
		out = append(out, decodeTorrent(r))
	}
	return out, nil
}

func (c *Client) GetTorrent(ctx context.Context, id domain.TorrentID, fields []domain.Field) (*domain.Torrent, error) {
	args, _ := sjson.Set("{}", "fields", fieldNames(fields))
	args, _ = sjson.Set(args, "ids", []any{idValue(id)})
	res, err := c.call(ctx, "torrent-get", args)
	if err != nil {
		return nil, err
	}

	list := res.Get("torrents").Array()
	if len(list) == 0 {
		return nil, &domain.ServiceError{Err: fmt.Errorf("%w: %s", domain.ErrTorrentNotFound, id)}
	}
	t := decodeTorrent(list[0])
	return &t, nil
}

func (c *Client) TorrentFiles(ctx context.Context, id domain.TorrentID) ([]domain.TorrentFile, error) {
	args, _ := sjson.Set("{}", "fields", []string{"id", "files", "fileStats"})
	args, _ = sjson.Set(args, "ids", []any{idValue(id)})
	res, err := c.call(ctx, "torrent-get", args)
	if err != nil {
		return nil, err
	}

	list := res.Get("torrents").Array()
	if len(list) == 0 {
		return nil, &domain.ServiceError{Err: fmt.Errorf("%w: %s", domain.ErrTorrentNotFound, id)}
	}
	return decodeFiles(list[0]), nil
}

func idValue(id domain.TorrentID) any {
	if n, ok := id.Int(); ok {
		return n
	}
	return id.String()
}

// call performs one RPC. A 409 carrying a fresh session id is answered by
// resending the request once.
func (c *Client) call(ctx context.Context, method, args string) (gjson.Result, error) {
	body, _ := sjson.SetBytes([]byte(`{}`), "method", method)
	body, _ = sjson.SetRawBytes(body, "arguments", []byte(args))
	body, _ = sjson.SetBytes(body, "tag", c.tag.Add(1))

	var resp []byte
	err := retry.Do(
		func() error {
			var err error
			resp, err = c.post(ctx, body)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errSessionConflict)
		}),
	)
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.ValidBytes(resp) {
		return gjson.Result{}, &domain.ServiceError{Body: truncate(resp), Err: errors.New("invalid json response")}
	}

	parsed := gjson.ParseBytes(resp)
	if result := parsed.Get("result").String(); result != "success" {
		if result == "" {
			result = "missing result"
		}
		return gjson.Result{}, &domain.ServiceError{Err: fmt.Errorf("%s: %s", method, result)}
	}
	return parsed.Get("arguments"), nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "could not build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if sid := c.session(); sid != "" {
		req.Header.Set(sessionHeader, sid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.ServiceError{Err: pkgerrors.Wrap(err, "transmission request failed")}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ServiceError{StatusCode: resp.StatusCode, Err: pkgerrors.Wrap(err, "could not read response")}
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		c.setSession(resp.Header.Get(sessionHeader))
		return nil, &domain.ServiceError{StatusCode: resp.StatusCode, Body: truncate(data), Err: errSessionConflict}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &domain.ServiceError{StatusCode: resp.StatusCode, Body: truncate(data)}
	}
	return data, nil
}

func (c *Client) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) setSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.sessionID {
		log.Trace().Str("endpoint", c.endpoint).Msg("Transmission session id rotated")
	}
	c.sessionID = id
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(b)
}
