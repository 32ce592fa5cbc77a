// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/qremote/internal/models"
)

func TestSettingsPatch(t *testing.T) {
	patch, err := settingsPatch([]string{"colorScheme=dark", "sort=name", "filter=seeding", "authentication=true", "search.url=http://jackett:9117"})
	require.NoError(t, err)

	require.NotNil(t, patch.ColorScheme)
	assert.Equal(t, models.ColorSchemeDark, *patch.ColorScheme)
	require.NotNil(t, patch.Authentication)
	assert.True(t, *patch.Authentication)
	require.NotNil(t, patch.Listing)
	assert.Equal(t, models.SortName, *patch.Listing.Sort)
	assert.Nil(t, patch.Listing.Direction)
	assert.Equal(t, models.FilterSeeding, *patch.Listing.Filter)
	require.NotNil(t, patch.SearchConfig)
	assert.Equal(t, "http://jackett:9117", patch.SearchConfig.URL)

	patch, err = settingsPatch([]string{"search=none"})
	require.NoError(t, err)
	assert.True(t, patch.ClearSearchConfig)
	assert.Nil(t, patch.Listing)

	for _, bad := range []string{"colorScheme", "volume=11", "authentication=maybe", "search=jackett"} {
		_, err := settingsPatch([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestRedact(t *testing.T) {
	s := models.Settings{
		Servers:      []models.ServerProfile{{ID: "a", Password: "pw"}, {ID: "b"}},
		SearchConfig: &models.SearchConfig{APIKey: "key"},
	}

	got := redact(s)
	assert.Equal(t, redacted, got.Servers[0].Password)
	assert.Empty(t, got.Servers[1].Password)
	assert.Equal(t, redacted, got.SearchConfig.APIKey)

	assert.Equal(t, "pw", s.Servers[0].Password)
	assert.Equal(t, "key", s.SearchConfig.APIKey)
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024 * 1024, "5.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanBytes(tt.in))
	}
}

func TestPrintGrid(t *testing.T) {
	var buf bytes.Buffer
	printGrid(&buf, []bool{true, false, true, true, false}, 2)
	assert.Equal(t, "#.\n##\n.\n", buf.String())
}

func TestPrintYAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printYAML(&buf, models.Settings{ActiveServerID: "abc", Listing: models.DefaultListingPreferences()}))

	out := buf.String()
	assert.Contains(t, out, "activeServerId: abc")
	assert.Contains(t, out, "sort: queue")
	assert.NotContains(t, out, "{")
}

func TestCLIServerLifecycle(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QREMOTE__STORAGE", "bolt")

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := NewRootCommand()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"--config-dir", filepath.Join(dir, "config.toml")}, args...))
		require.NoError(t, cmd.Execute(), out.String())
		return out.String()
	}

	assert.Contains(t, run("servers", "add", "--name", "box", "--url", "box.lan:9091"), `Added server "box"`)
	assert.Contains(t, run("servers", "list"), "http://box.lan:9091")
	run("directories", "add", "/data", "--server", "box")
	assert.Contains(t, run("directories", "list", "--server", "box"), "/data")
	assert.Contains(t, run("settings", "set", "sort=name"), `"sort": "name"`)
	assert.Contains(t, run("servers", "remove", "box"), `Removed server "box"`)
	assert.NotContains(t, run("directories", "list"), "/data")
}
