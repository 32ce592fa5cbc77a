// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package kv is the string keyed persistence used for user settings and
// background task state.
package kv

import (
	"context"
	"fmt"
	"io"
)

// Store persists opaque string values. Get reports found=false for keys that
// were never written or have been deleted.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Open returns the Store for backend at path. The returned closer releases
// the underlying database.
func Open(backend, path string) (Store, io.Closer, error) {
	switch backend {
	case BackendSQLite, "":
		s, closer, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return s, closer, nil
	case BackendBolt:
		s, err := OpenBolt(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendMemory:
		s := NewMemoryStore()
		return s, io.NopCloser(nil), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
