// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"bytes"
	"cmp"
	"encoding/json"
	"strconv"
)

// TorrentStatus is the daemon reported state, ordered the way Transmission
// numbers it.
type TorrentStatus int

const (
	StatusStopped TorrentStatus = iota
	StatusCheckWait
	StatusCheck
	StatusDownloadWait
	StatusDownload
	StatusSeedWait
	StatusSeed
)

func (s TorrentStatus) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusCheckWait:
		return "verify-queued"
	case StatusCheck:
		return "verifying"
	case StatusDownloadWait:
		return "download-queued"
	case StatusDownload:
		return "downloading"
	case StatusSeedWait:
		return "seed-queued"
	case StatusSeed:
		return "seeding"
	default:
		return "unknown"
	}
}

// TorrentID identifies a torrent on one server. Transmission hands out
// numbers, qBittorrent hashes. The two forms are never coerced into each
// other.
type TorrentID struct {
	num   int64
	str   string
	isStr bool
}

func NumericID(n int64) TorrentID { return TorrentID{num: n} }

func StringID(s string) TorrentID { return TorrentID{str: s, isStr: true} }

// ParseTorrentID reads user input: digits become a numeric id, anything else
// a string id.
func ParseTorrentID(s string) TorrentID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NumericID(n)
	}
	return StringID(s)
}

func (id TorrentID) IsNumeric() bool { return !id.isStr }

func (id TorrentID) Int() (int64, bool) { return id.num, !id.isStr }

func (id TorrentID) String() string {
	if id.isStr {
		return id.str
	}
	return strconv.FormatInt(id.num, 10)
}

// Compare orders numeric ids numerically and string ids lexically. Numeric
// ids sort before string ids.
func (id TorrentID) Compare(other TorrentID) int {
	switch {
	case !id.isStr && !other.isStr:
		return cmp.Compare(id.num, other.num)
	case id.isStr && other.isStr:
		return cmp.Compare(id.str, other.str)
	case !id.isStr:
		return -1
	default:
		return 1
	}
}

func (id TorrentID) MarshalJSON() ([]byte, error) {
	if id.isStr {
		return json.Marshal(id.str)
	}
	return []byte(strconv.FormatInt(id.num, 10)), nil
}

func (id *TorrentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return err
		}
		v = int64(f)
	}
	*id = NumericID(v)
	return nil
}

// Torrent is a possibly partial torrent record. Fields the daemon did not
// send keep their zero value.
type Torrent struct {
	ID                  TorrentID     `json:"id"`
	Name                string        `json:"name"`
	Status              TorrentStatus `json:"status"`
	QueuePosition       int           `json:"queuePosition"`
	ActivityDate        int64         `json:"activityDate"`
	AddedDate           int64         `json:"addedDate"`
	DoneDate            int64         `json:"doneDate"`
	PercentDone         float64       `json:"percentDone"`
	UploadRatio         float64       `json:"uploadRatio"`
	TotalSize           int64         `json:"totalSize"`
	SizeWhenDone        int64         `json:"sizeWhenDone"`
	LeftUntilDone       int64         `json:"leftUntilDone"`
	ETA                 int64         `json:"eta"`
	IsFinished          bool          `json:"isFinished"`
	DownloadDir         string        `json:"downloadDir"`
	PeersSendingToUs    int           `json:"peersSendingToUs"`
	PeersGettingFromUs  int           `json:"peersGettingFromUs"`
	WebseedsSendingToUs int           `json:"webseedsSendingToUs"`
	RateDownload        int64         `json:"rateDownload"`
	RateUpload          int64         `json:"rateUpload"`
	Pieces              string        `json:"pieces,omitempty"`
	PieceCount          int           `json:"pieceCount"`
}

// Completed reports whether nothing is left to download for the wanted files.
func (t Torrent) Completed() bool {
	return t.LeftUntilDone <= 0 && t.SizeWhenDone > 0
}

// FilePriority is the per-file download priority.
type FilePriority int

const (
	PriorityLow    FilePriority = -1
	PriorityNormal FilePriority = 0
	PriorityHigh   FilePriority = 1
)

func (p FilePriority) String() string {
	switch {
	case p < 0:
		return "Low"
	case p > 0:
		return "High"
	default:
		return "Normal"
	}
}

// TorrentFile is one entry of a torrent's flat file list. ID is the file's
// position in that list.
type TorrentFile struct {
	ID             int          `json:"id"`
	Name           string       `json:"name"`
	Length         int64        `json:"length"`
	BytesCompleted int64        `json:"bytesCompleted"`
	Wanted         bool         `json:"wanted"`
	Priority       FilePriority `json:"priority"`
}
