// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		file    string
	}{
		{name: "sqlite", backend: BackendSQLite, file: "kv.db"},
		{name: "bolt", backend: BackendBolt, file: "kv.bolt"},
		{name: "memory", backend: BackendMemory},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, closer, err := Open(tt.backend, filepath.Join(t.TempDir(), tt.file))
			require.NoError(t, err)
			defer closer.Close()

			_, found, err := store.Get(ctx, "user.settings")
			require.NoError(t, err)
			assert.False(t, found)

			require.NoError(t, store.Set(ctx, "user.settings", `{"servers":[]}`))
			require.NoError(t, store.Set(ctx, "user.settings", `{"servers":[{}]}`))

			value, found, err := store.Get(ctx, "user.settings")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, `{"servers":[{}]}`, value)

			require.NoError(t, store.Set(ctx, "empty", ""))
			value, found, err = store.Get(ctx, "empty")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Empty(t, value)

			require.NoError(t, store.Delete(ctx, "user.settings"))
			_, found, err = store.Get(ctx, "user.settings")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestBoltStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.bolt")

	store, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "internal.torrents-notifier", `{"servers":{}}`))
	require.NoError(t, store.Close())

	store, err = OpenBolt(path)
	require.NoError(t, err)
	defer store.Close()

	value, found, err := store.Get(ctx, "internal.torrents-notifier")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"servers":{}}`, value)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, _, err := Open("redis", "")
	assert.Error(t, err)
}
