// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package qbittorrent

import (
	"math"

	qbt "github.com/autobrr/go-qbittorrent"

	"github.com/autobrr/qremote/internal/bitfield"
	"github.com/autobrr/qremote/internal/domain"
)

// qBittorrent reports this ETA for torrents that will never finish.
const etaInfinity = 8640000

const pieceDownloaded = 2

// unqueuedPosition places torrents outside the queue (priority 0) after
// every queued one.
const unqueuedPosition = math.MaxInt32

func mapState(state qbt.TorrentState) domain.TorrentStatus {
	switch state {
	case qbt.TorrentStateCheckingDl, qbt.TorrentStateCheckingUp, qbt.TorrentStateCheckingResumeData:
		return domain.StatusCheck
	case qbt.TorrentStateQueuedDl:
		return domain.StatusDownloadWait
	case qbt.TorrentStateQueuedUp:
		return domain.StatusSeedWait
	case qbt.TorrentStateDownloading, qbt.TorrentStateStalledDl, qbt.TorrentStateMetaDl,
		qbt.TorrentStateForcedDl, qbt.TorrentStateAllocating, qbt.TorrentStateMoving:
		return domain.StatusDownload
	case qbt.TorrentStateUploading, qbt.TorrentStateStalledUp, qbt.TorrentStateForcedUp:
		return domain.StatusSeed
	default:
		return domain.StatusStopped
	}
}

func isFinished(t *qbt.Torrent) bool {
	if t.Progress < 1 {
		return false
	}
	switch t.State {
	case qbt.TorrentStatePausedUp, qbt.TorrentStateStoppedUp:
		return true
	default:
		return false
	}
}

func mapTorrent(t *qbt.Torrent) domain.Torrent {
	eta := int64(t.ETA)
	if eta >= etaInfinity || eta < 0 {
		eta = -1
	}
	done := int64(t.CompletionOn)
	if done < 0 || done > math.MaxUint32-1 {
		done = 0
	}
	queue := unqueuedPosition
	if t.Priority > 0 {
		queue = int(t.Priority) - 1
	}

	return domain.Torrent{
		ID:                 domain.StringID(t.Hash),
		Name:               t.Name,
		Status:             mapState(t.State),
		QueuePosition:      queue,
		ActivityDate:       int64(t.LastActivity),
		AddedDate:          int64(t.AddedOn),
		DoneDate:           done,
		PercentDone:        float64(t.Progress),
		UploadRatio:        float64(t.Ratio),
		TotalSize:          int64(t.TotalSize),
		SizeWhenDone:       int64(t.Size),
		LeftUntilDone:      int64(t.AmountLeft),
		ETA:                eta,
		IsFinished:         isFinished(t),
		DownloadDir:        t.SavePath,
		PeersSendingToUs:   int(t.NumSeeds),
		PeersGettingFromUs: int(t.NumLeechs),
		RateDownload:       int64(t.DlSpeed),
		RateUpload:         int64(t.UpSpeed),
	}
}

// mapFiles translates priorities: 0 means skipped, 6 and 7 high.
func mapFiles(files qbt.TorrentFiles) []domain.TorrentFile {
	out := make([]domain.TorrentFile, 0, len(files))
	for i, f := range files {
		size := int64(f.Size)
		progress := float64(f.Progress)
		file := domain.TorrentFile{
			ID:             i,
			Name:           f.Name,
			Length:         size,
			BytesCompleted: int64(math.Round(progress * float64(size))),
			Wanted:         int(f.Priority) != 0,
			Priority:       domain.PriorityNormal,
		}
		if int(f.Priority) >= 6 {
			file.Priority = domain.PriorityHigh
		}
		out = append(out, file)
	}
	return out
}

func encodePieceStates(states []qbt.PieceState) (string, int) {
	have := make([]bool, len(states))
	for i, s := range states {
		have[i] = int(s) == pieceDownloaded
	}
	return bitfield.Encode(have), len(states)
}
