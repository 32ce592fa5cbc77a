// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/qremote/internal/kv"
)

func TestNotifierStateIsMonotonic(t *testing.T) {
	ctx := t.Context()
	mem := kv.NewMemoryStore()
	store := NewNotifierStateStore(mem)

	assert.Zero(t, store.LastUpdate(ctx, "nas"))

	got, err := store.SetLastUpdate(ctx, "nas", 1700000000)
	require.NoError(t, err)
	assert.EqualValues(t, 1700000000, got)

	got, err = store.SetLastUpdate(ctx, "nas", 1600000000)
	require.NoError(t, err)
	assert.EqualValues(t, 1700000000, got, "watermark never moves backwards")
	assert.EqualValues(t, 1700000000, store.LastUpdate(ctx, "nas"))

	_, err = store.SetLastUpdate(ctx, "seedbox", 42)
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"servers":{"nas":{"lastUpdate":1700000000},"seedbox":{"lastUpdate":42}}}`,
		stored(t, mem, NotifierStateKey))
}

func TestNotifierStateHealsInvalidValue(t *testing.T) {
	ctx := t.Context()
	mem := kv.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, NotifierStateKey, `{"servers":[]}`))

	store := NewNotifierStateStore(mem)
	assert.Empty(t, store.Load(ctx).Servers)
	assert.JSONEq(t, `{"servers":{}}`, stored(t, mem, NotifierStateKey))
}
