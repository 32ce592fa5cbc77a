// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"errors"
	"testing"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/qremote/internal/bitfield"
	"github.com/autobrr/qremote/internal/domain"
)

func TestMapState(t *testing.T) {
	tests := []struct {
		state qbt.TorrentState
		want  domain.TorrentStatus
	}{
		{qbt.TorrentStatePausedDl, domain.StatusStopped},
		{qbt.TorrentStateStoppedUp, domain.StatusStopped},
		{qbt.TorrentStateError, domain.StatusStopped},
		{qbt.TorrentStateCheckingResumeData, domain.StatusCheck},
		{qbt.TorrentStateQueuedDl, domain.StatusDownloadWait},
		{qbt.TorrentStateQueuedUp, domain.StatusSeedWait},
		{qbt.TorrentStateStalledDl, domain.StatusDownload},
		{qbt.TorrentStateForcedUp, domain.StatusSeed},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.want, mapState(tt.state))
		})
	}
}

func TestMapTorrent(t *testing.T) {
	src := qbt.Torrent{
		Hash:         "abcdef",
		Name:         "ubuntu.iso",
		State:        qbt.TorrentStatePausedUp,
		Progress:     1,
		Size:         100,
		TotalSize:    120,
		AmountLeft:   0,
		AddedOn:      1700000000,
		CompletionOn: 1700000500,
		ETA:          8640000,
		Priority:     0,
		Ratio:        1.5,
		NumSeeds:     2,
		NumLeechs:    3,
		SavePath:     "/data/iso",
	}

	got := mapTorrent(&src)
	assert.Equal(t, domain.StringID("abcdef"), got.ID)
	assert.Equal(t, domain.StatusStopped, got.Status)
	assert.Equal(t, int64(-1), got.ETA)
	assert.Equal(t, int64(1700000500), got.DoneDate)
	assert.True(t, got.IsFinished)
	assert.True(t, got.Completed())
	assert.Equal(t, 2, got.PeersSendingToUs)
	assert.Equal(t, 3, got.PeersGettingFromUs)
	assert.Equal(t, "/data/iso", got.DownloadDir)
	assert.Equal(t, unqueuedPosition, got.QueuePosition, "priority 0 is outside the queue")

	src.CompletionOn = -1
	src.State = qbt.TorrentStateQueuedDl
	src.Priority = 4
	src.Progress = 0.5
	got = mapTorrent(&src)
	assert.Zero(t, got.DoneDate)
	assert.False(t, got.IsFinished)
	assert.Equal(t, 3, got.QueuePosition)

	src.Priority = 1
	first := mapTorrent(&src)
	src.Priority = 0
	unqueued := mapTorrent(&src)
	assert.Equal(t, 0, first.QueuePosition)
	assert.Less(t, first.QueuePosition, unqueued.QueuePosition, "queued torrents sort before unqueued ones")
}

func TestMapFiles(t *testing.T) {
	files := qbt.TorrentFiles{
		{Name: "dir/a.mkv", Size: 200, Progress: 0.5, Priority: 1},
		{Name: "dir/b.nfo", Size: 10, Progress: 0, Priority: 0},
		{Name: "c.txt", Size: 4, Progress: 1, Priority: 7},
	}

	got := mapFiles(files)
	require.Len(t, got, 3)
	assert.Equal(t, domain.TorrentFile{ID: 0, Name: "dir/a.mkv", Length: 200, BytesCompleted: 100, Wanted: true, Priority: domain.PriorityNormal}, got[0])
	assert.False(t, got[1].Wanted)
	assert.Equal(t, domain.PriorityHigh, got[2].Priority)
	assert.Equal(t, int64(4), got[2].BytesCompleted)
}

func TestEncodePieceStates(t *testing.T) {
	encoded, count := encodePieceStates([]qbt.PieceState{2, 0, 1, 2, 2, 2, 2, 2, 2})
	assert.Equal(t, 9, count)
	assert.Equal(t, bitfield.Summary{Have: 7, Total: 9}, bitfield.Summarize(encoded, count))
}

func TestLoginStatus(t *testing.T) {
	assert.Equal(t, 403, loginStatus(errors.New("User's IP is banned for too many failed login attempts")))
	assert.Equal(t, 401, loginStatus(errors.New("bad credentials")))
	assert.Equal(t, 0, loginStatus(errors.New("dial tcp: connection refused")))
}
