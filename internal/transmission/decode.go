// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package transmission

import (
	"github.com/tidwall/gjson"

	"github.com/autobrr/qremote/internal/domain"
)

// fieldNames always asks for the id. Domain field names match the RPC names.
func fieldNames(fields []domain.Field) []string {
	out := []string{string(domain.FieldID)}
	for _, f := range fields {
		if f == domain.FieldID {
			continue
		}
		out = append(out, string(f))
	}
	return out
}

// decodeTorrent is lenient: missing or mistyped fields keep their zero value.
func decodeTorrent(r gjson.Result) domain.Torrent {
	t := domain.Torrent{
		Name:                r.Get("name").String(),
		Status:              domain.TorrentStatus(r.Get("status").Int()),
		QueuePosition:       int(r.Get("queuePosition").Int()),
		ActivityDate:        r.Get("activityDate").Int(),
		AddedDate:           r.Get("addedDate").Int(),
		DoneDate:            r.Get("doneDate").Int(),
		PercentDone:         r.Get("percentDone").Float(),
		UploadRatio:         r.Get("uploadRatio").Float(),
		TotalSize:           r.Get("totalSize").Int(),
		SizeWhenDone:        r.Get("sizeWhenDone").Int(),
		LeftUntilDone:       r.Get("leftUntilDone").Int(),
		ETA:                 r.Get("eta").Int(),
		IsFinished:          r.Get("isFinished").Bool(),
		DownloadDir:         r.Get("downloadDir").String(),
		PeersSendingToUs:    int(r.Get("peersSendingToUs").Int()),
		PeersGettingFromUs:  int(r.Get("peersGettingFromUs").Int()),
		WebseedsSendingToUs: int(r.Get("webseedsSendingToUs").Int()),
		RateDownload:        r.Get("rateDownload").Int(),
		RateUpload:          r.Get("rateUpload").Int(),
		Pieces:              r.Get("pieces").String(),
		PieceCount:          int(r.Get("pieceCount").Int()),
	}

	switch id := r.Get("id"); id.Type {
	case gjson.Number:
		t.ID = domain.NumericID(id.Int())
	case gjson.String:
		t.ID = domain.StringID(id.String())
	default:
		if hash := r.Get("hashString"); hash.Exists() {
			t.ID = domain.StringID(hash.String())
		}
	}
	return t
}

// decodeFiles joins files and fileStats by position. Files without stats
// count as wanted at normal priority.
func decodeFiles(r gjson.Result) []domain.TorrentFile {
	files := r.Get("files").Array()
	stats := r.Get("fileStats").Array()

	out := make([]domain.TorrentFile, 0, len(files))
	for i, f := range files {
		file := domain.TorrentFile{
			ID:             i,
			Name:           f.Get("name").String(),
			Length:         f.Get("length").Int(),
			BytesCompleted: f.Get("bytesCompleted").Int(),
			Wanted:         true,
			Priority:       domain.PriorityNormal,
		}
		if i < len(stats) {
			s := stats[i]
			if v := s.Get("bytesCompleted"); v.Exists() {
				file.BytesCompleted = v.Int()
			}
			if v := s.Get("wanted"); v.Exists() {
				file.Wanted = v.Bool()
			}
			file.Priority = clampPriority(s.Get("priority").Int())
		}
		out = append(out, file)
	}
	return out
}

func clampPriority(p int64) domain.FilePriority {
	switch {
	case p < 0:
		return domain.PriorityLow
	case p > 0:
		return domain.PriorityHigh
	default:
		return domain.PriorityNormal
	}
}
