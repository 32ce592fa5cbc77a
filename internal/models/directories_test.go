// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/qremote/internal/kv"
)

func TestDirectoriesStore(t *testing.T) {
	ctx := t.Context()
	mem := kv.NewMemoryStore()
	store := NewDirectoriesStore(mem)

	d := store.Load(ctx)
	assert.Empty(t, d.Global)
	assert.Empty(t, d.Servers)

	_, err := store.AddGlobal(ctx, "/data/movies")
	require.NoError(t, err)
	_, err = store.AddGlobal(ctx, " /data/movies ")
	require.NoError(t, err)
	_, err = store.AddGlobal(ctx, "/data/anime")
	require.NoError(t, err)
	_, err = store.AddForServer(ctx, "nas", "/mnt/tv")
	require.NoError(t, err)
	d, err = store.AddForServer(ctx, "nas", "/data/anime")
	require.NoError(t, err)

	assert.Equal(t, []string{"/data/anime", "/data/movies"}, d.Global)
	assert.Equal(t, []string{"/data/anime", "/data/movies", "/mnt/tv"}, d.ForServer("nas"))
	assert.Equal(t, []string{"/data/anime", "/data/movies"}, d.ForServer("other"))

	assert.JSONEq(t,
		`{"global":["/data/anime","/data/movies"],"servers":{"nas":["/data/anime","/mnt/tv"]}}`,
		stored(t, mem, DirectoriesKey))

	d, err = store.RemoveGlobal(ctx, "/data/movies")
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/anime"}, d.Global)

	d, err = store.RemoveForServer(ctx, "nas", "/mnt/tv")
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/anime"}, d.Servers["nas"])

	require.NoError(t, store.PruneServer(ctx, "nas"))
	assert.NotContains(t, store.Load(ctx).Servers, "nas")
}

func TestDirectoriesStoreHealsInvalidValue(t *testing.T) {
	ctx := t.Context()
	mem := kv.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, DirectoriesKey, `{"global":"oops"}`))

	d := NewDirectoriesStore(mem).Load(ctx)

	assert.Empty(t, d.Global)
	assert.JSONEq(t, `{"global":[],"servers":{}}`, stored(t, mem, DirectoriesKey))
}
