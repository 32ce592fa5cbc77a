// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package transmission

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/autobrr/qremote/internal/domain"
)

// fakeDaemon enforces the session handshake and hands each decoded request
// to handle.
type fakeDaemon struct {
	sessionID string
	requests  atomic.Int32
	conflicts atomic.Int32
	handle    func(req gjson.Result) string
}

func (d *fakeDaemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.requests.Add(1)
	if r.Header.Get(sessionHeader) != d.sessionID {
		d.conflicts.Add(1)
		w.Header().Set(sessionHeader, d.sessionID)
		w.WriteHeader(http.StatusConflict)
		return
	}
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, d.handle(gjson.ParseBytes(body)))
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{URL: srv.URL, Username: "user", Password: "pass"})
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		want     string
		hasError bool
	}{
		{name: "default path", url: "http://localhost:9091", want: "http://localhost:9091/transmission/rpc"},
		{name: "root path", url: "http://localhost:9091/", want: "http://localhost:9091/transmission/rpc"},
		{name: "custom path", url: "https://seedbox.example.com/tr/rpc", want: "https://seedbox.example.com/tr/rpc"},
		{name: "bad scheme", url: "ftp://localhost", hasError: true},
		{name: "no host", url: "http://", hasError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(Config{URL: tt.url})
			if tt.hasError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Endpoint())
		})
	}
}

func TestSessionHandshake(t *testing.T) {
	daemon := &fakeDaemon{
		sessionID: "abc123",
		handle: func(req gjson.Result) string {
			return `{"result":"success","arguments":{"torrents":[]}}`
		},
	}
	c := newTestClient(t, daemon)

	_, err := c.ListTorrents(context.Background(), domain.ListingFields)
	require.NoError(t, err)
	assert.Equal(t, int32(2), daemon.requests.Load())
	assert.Equal(t, int32(1), daemon.conflicts.Load())

	_, err = c.ListTorrents(context.Background(), domain.ListingFields)
	require.NoError(t, err)
	assert.Equal(t, int32(3), daemon.requests.Load(), "session id is reused")
}

func TestSessionHandshakeGivesUpAfterOneRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set(sessionHeader, "always-new")
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := c.ListTorrents(context.Background(), nil)
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "pass", pass)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "401: Unauthorized")
	}))

	err := c.Ping(context.Background())
	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.True(t, svcErr.IsUnauthorized())
	assert.Equal(t, "401: Unauthorized", svcErr.Body)
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		version string
		tooOld  bool
	}{
		{name: "modern", version: "4.0.5 (a6fe2a64aa)"},
		{name: "minimum", version: "2.40"},
		{name: "too old", version: "2.33 (13000)", tooOld: true},
		{name: "unparseable", version: "nightly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			daemon := &fakeDaemon{
				sessionID: "s",
				handle: func(req gjson.Result) string {
					assert.Equal(t, "session-get", req.Get("method").String())
					return `{"result":"success","arguments":{"version":"` + tt.version + `","rpc-version":17}}`
				},
			}
			err := newTestClient(t, daemon).Ping(context.Background())
			if tt.tooOld {
				require.ErrorIs(t, err, ErrDaemonTooOld)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestListTorrents(t *testing.T) {
	daemon := &fakeDaemon{
		sessionID: "s",
		handle: func(req gjson.Result) string {
			assert.Equal(t, "torrent-get", req.Get("method").String())
			fields := req.Get("arguments.fields").Array()
			if assert.NotEmpty(t, fields) {
				assert.Equal(t, "id", fields[0].String())
			}
			assert.False(t, req.Get("arguments.ids").Exists())
			return `{"result":"success","arguments":{"torrents":[
				{"id":1,"name":"ubuntu.iso","status":6,"doneDate":1700000000,"percentDone":1,"uploadRatio":2.5,"peersSendingToUs":0,"sizeWhenDone":100,"leftUntilDone":0},
				{"id":2,"name":"debian.iso","status":4,"eta":-1,"rateDownload":2048,"extra":"ignored"}
			]}}`
		},
	}
	c := newTestClient(t, daemon)

	torrents, err := c.ListTorrents(context.Background(), []domain.Field{domain.FieldName, domain.FieldDoneDate})
	require.NoError(t, err)
	require.Len(t, torrents, 2)

	assert.Equal(t, domain.NumericID(1), torrents[0].ID)
	assert.Equal(t, domain.StatusSeed, torrents[0].Status)
	assert.Equal(t, int64(1700000000), torrents[0].DoneDate)
	assert.InDelta(t, 2.5, torrents[0].UploadRatio, 1e-9)
	assert.True(t, torrents[0].Completed())

	assert.Equal(t, "debian.iso", torrents[1].Name)
	assert.Equal(t, int64(-1), torrents[1].ETA)
	assert.Equal(t, int64(2048), torrents[1].RateDownload)
}

func TestGetTorrent(t *testing.T) {
	daemon := &fakeDaemon{
		sessionID: "s",
		handle: func(req gjson.Result) string {
			ids := req.Get("arguments.ids").Array()
			if len(ids) == 1 && ids[0].Int() == 7 {
				return `{"result":"success","arguments":{"torrents":[{"id":7,"pieces":"/w8=","pieceCount":16}]}}`
			}
			return `{"result":"success","arguments":{"torrents":[]}}`
		},
	}
	c := newTestClient(t, daemon)

	got, err := c.GetTorrent(context.Background(), domain.NumericID(7), []domain.Field{domain.FieldPieces, domain.FieldPieceCount})
	require.NoError(t, err)
	assert.Equal(t, "/w8=", got.Pieces)
	assert.Equal(t, 16, got.PieceCount)

	_, err = c.GetTorrent(context.Background(), domain.NumericID(8), nil)
	require.ErrorIs(t, err, domain.ErrTorrentNotFound)
}

func TestTorrentFiles(t *testing.T) {
	daemon := &fakeDaemon{
		sessionID: "s",
		handle: func(req gjson.Result) string {
			assert.Equal(t, "abcdef", req.Get("arguments.ids.0").String())
			return `{"result":"success","arguments":{"torrents":[{"id":3,
				"files":[{"name":"dir/a.mkv","length":100,"bytesCompleted":10},{"name":"dir/b.nfo","length":5,"bytesCompleted":5},{"name":"c.txt","length":1,"bytesCompleted":0}],
				"fileStats":[{"bytesCompleted":50,"wanted":true,"priority":1},{"bytesCompleted":5,"wanted":0,"priority":-1}]
			}]}}`
		},
	}
	c := newTestClient(t, daemon)

	files, err := c.TorrentFiles(context.Background(), domain.StringID("abcdef"))
	require.NoError(t, err)
	require.Len(t, files, 3)

	assert.Equal(t, domain.TorrentFile{ID: 0, Name: "dir/a.mkv", Length: 100, BytesCompleted: 50, Wanted: true, Priority: domain.PriorityHigh}, files[0])
	assert.Equal(t, domain.TorrentFile{ID: 1, Name: "dir/b.nfo", Length: 5, BytesCompleted: 5, Wanted: false, Priority: domain.PriorityLow}, files[1])
	assert.Equal(t, domain.TorrentFile{ID: 2, Name: "c.txt", Length: 1, Wanted: true, Priority: domain.PriorityNormal}, files[2])
}

func TestRPCFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err *domain.ServiceError)
	}{
		{
			name:   "result error",
			status: http.StatusOK,
			body:   `{"result":"no such method"}`,
			check: func(t *testing.T, err *domain.ServiceError) {
				assert.Zero(t, err.StatusCode)
				assert.Contains(t, err.Error(), "no such method")
			},
		},
		{
			name:   "invalid json",
			status: http.StatusOK,
			body:   `<html>`,
			check: func(t *testing.T, err *domain.ServiceError) {
				assert.Equal(t, "<html>", err.Body)
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   "boom",
			check: func(t *testing.T, err *domain.ServiceError) {
				assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
				assert.Equal(t, "boom", err.Body)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			_, err := c.ListTorrents(context.Background(), nil)
			var svcErr *domain.ServiceError
			require.True(t, errors.As(err, &svcErr))
			tt.check(t, svcErr)
		})
	}
}

func TestDecodeTorrentStringID(t *testing.T) {
	got := decodeTorrent(gjson.Parse(`{"hashString":"deadbeef","name":"x"}`))
	assert.Equal(t, domain.StringID("deadbeef"), got.ID)

	got = decodeTorrent(gjson.Parse(`{"id":"10","name":"x"}`))
	assert.Equal(t, domain.StringID("10"), got.ID, "string ids keep their representation")
	assert.False(t, got.ID.IsNumeric())

	got = decodeTorrent(gjson.Parse(`{"id":10,"name":"x"}`))
	assert.Equal(t, domain.NumericID(10), got.ID)
}
