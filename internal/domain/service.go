// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrTorrentNotFound is returned when a daemon does not know the requested id.
var ErrTorrentNotFound = errors.New("torrent not found")

// Field names a torrent attribute that can be requested from a daemon.
type Field string

const (
	FieldID                  Field = "id"
	FieldName                Field = "name"
	FieldStatus              Field = "status"
	FieldQueuePosition       Field = "queuePosition"
	FieldActivityDate        Field = "activityDate"
	FieldAddedDate           Field = "addedDate"
	FieldDoneDate            Field = "doneDate"
	FieldPercentDone         Field = "percentDone"
	FieldUploadRatio         Field = "uploadRatio"
	FieldTotalSize           Field = "totalSize"
	FieldSizeWhenDone        Field = "sizeWhenDone"
	FieldLeftUntilDone       Field = "leftUntilDone"
	FieldETA                 Field = "eta"
	FieldIsFinished          Field = "isFinished"
	FieldDownloadDir         Field = "downloadDir"
	FieldPeersSendingToUs    Field = "peersSendingToUs"
	FieldPeersGettingFromUs  Field = "peersGettingFromUs"
	FieldWebseedsSendingToUs Field = "webseedsSendingToUs"
	FieldRateDownload        Field = "rateDownload"
	FieldRateUpload          Field = "rateUpload"
	FieldPieces              Field = "pieces"
	FieldPieceCount          Field = "pieceCount"
)

// ListingFields is what a listing screen needs to filter and sort.
var ListingFields = []Field{
	FieldID, FieldName, FieldStatus, FieldQueuePosition, FieldActivityDate,
	FieldAddedDate, FieldDoneDate, FieldPercentDone, FieldUploadRatio,
	FieldTotalSize, FieldSizeWhenDone, FieldLeftUntilDone, FieldETA,
	FieldIsFinished, FieldDownloadDir, FieldPeersSendingToUs,
	FieldPeersGettingFromUs, FieldWebseedsSendingToUs, FieldRateDownload,
	FieldRateUpload,
}

// TorrentService talks to one torrent daemon.
type TorrentService interface {
	Ping(ctx context.Context) error
	ListTorrents(ctx context.Context, fields []Field) ([]Torrent, error)
	GetTorrent(ctx context.Context, id TorrentID, fields []Field) (*Torrent, error)
	TorrentFiles(ctx context.Context, id TorrentID) ([]TorrentFile, error)
}

// ServiceError is returned by TorrentService implementations. StatusCode and
// Body are set when the daemon answered over HTTP.
type ServiceError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("torrent service: status %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("torrent service: status %d", e.StatusCode)
	case e.Err != nil:
		return "torrent service: " + e.Err.Error()
	default:
		return "torrent service error"
	}
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether the daemon rejected the credentials.
func (e *ServiceError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
