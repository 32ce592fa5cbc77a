// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package filetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/qremote/internal/domain"
)

func sampleFiles() []domain.TorrentFile {
	return []domain.TorrentFile{
		{ID: 0, Name: "Show/Season 1/e01.mkv", Length: 100, BytesCompleted: 100, Wanted: true, Priority: domain.PriorityNormal},
		{ID: 1, Name: "Show/Season 1/e02.mkv", Length: 100, BytesCompleted: 50, Wanted: true, Priority: domain.PriorityHigh},
		{ID: 2, Name: "Show\\Season 2//e01.mkv", Length: 200, BytesCompleted: 0, Wanted: false, Priority: domain.PriorityLow},
		{ID: 3, Name: "/Show/info.nfo/", Length: 10, BytesCompleted: 10, Wanted: true, Priority: domain.PriorityNormal},
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "a/b/c", want: "a/b/c"},
		{in: "a\\b\\c", want: "a/b/c"},
		{in: "//a///b/", want: "a/b"},
		{in: "", want: ""},
		{in: "///", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestBuild(t *testing.T) {
	tree := Build(sampleFiles())

	assert.Equal(t, []int{0, 1, 2, 3}, tree.Node(Root).FileIDs)

	show, ok := tree.Resolve("Show")
	require.True(t, ok)
	assert.False(t, tree.Node(show).IsFile)
	assert.Equal(t, []int{0, 1, 2, 3}, tree.Node(show).FileIDs)

	s1, ok := tree.Resolve("Show/Season 1")
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, tree.Node(s1).FileIDs)
	assert.Equal(t, show, tree.Node(s1).Parent)

	s2, ok := tree.Resolve("Show/Season 2")
	require.True(t, ok)
	assert.Equal(t, []int{2}, tree.Node(s2).FileIDs)

	nfo, ok := tree.Resolve("Show/info.nfo")
	require.True(t, ok)
	assert.True(t, tree.Node(nfo).IsFile)
	assert.Equal(t, "info.nfo", tree.Node(nfo).Name)

	_, ok = tree.Resolve("Show/Season 3")
	assert.False(t, ok)
}

func TestBuildEdgeCases(t *testing.T) {
	t.Run("empty path attaches to root", func(t *testing.T) {
		tree := Build([]domain.TorrentFile{{ID: 7, Name: "", Length: 5}})
		assert.Equal(t, 1, tree.Len())
		assert.Equal(t, []int{7}, tree.Node(Root).FileIDs)
		assert.Equal(t, int64(5), tree.Stats(Root).TotalBytes)
	})

	t.Run("duplicate paths union ids", func(t *testing.T) {
		tree := Build([]domain.TorrentFile{
			{ID: 1, Name: "a/b.txt", Length: 1},
			{ID: 2, Name: "a/b.txt", Length: 2},
		})
		id, ok := tree.Resolve("a/b.txt")
		require.True(t, ok)
		assert.Equal(t, []int{1, 2}, tree.Node(id).FileIDs)
		assert.Equal(t, int64(3), tree.Stats(id).TotalBytes)
	})

	t.Run("file path reused as directory", func(t *testing.T) {
		tree := Build([]domain.TorrentFile{
			{ID: 1, Name: "a/b", Length: 1},
			{ID: 2, Name: "a/b/c", Length: 2},
		})
		id, ok := tree.Resolve("a/b")
		require.True(t, ok)
		assert.False(t, tree.Node(id).IsFile)
		assert.Equal(t, []int{1, 2}, tree.Node(id).FileIDs)
	})

	t.Run("no files", func(t *testing.T) {
		tree := Build(nil)
		assert.Equal(t, 1, tree.Len())
		assert.Empty(t, tree.Children(Root))
		stats := tree.Stats(Root)
		assert.Equal(t, PriorityNormal, stats.Priority)
		assert.False(t, stats.Wanted)
	})
}

func TestChildrenOrder(t *testing.T) {
	tree := Build([]domain.TorrentFile{
		{ID: 0, Name: "b.txt"},
		{ID: 1, Name: "Zeta/x"},
		{ID: 2, Name: "A.txt"},
		{ID: 3, Name: "alpha/y"},
	})

	var names []string
	for _, id := range tree.Children(Root) {
		names = append(names, tree.Node(id).Name)
	}
	assert.Equal(t, []string{"alpha", "Zeta", "A.txt", "b.txt"}, names)
}

func TestStats(t *testing.T) {
	tree := Build(sampleFiles())

	tests := []struct {
		path       string
		total      int64
		downloaded int64
		priority   PriorityLabel
		wanted     bool
		allWanted  bool
	}{
		{path: "", total: 410, downloaded: 160, priority: PriorityMixed, wanted: true, allWanted: false},
		{path: "Show/Season 1", total: 200, downloaded: 150, priority: PriorityMixed, wanted: true, allWanted: true},
		{path: "Show/Season 2", total: 200, downloaded: 0, priority: PriorityLow, wanted: false, allWanted: false},
		{path: "Show/Season 1/e02.mkv", total: 100, downloaded: 50, priority: PriorityHigh, wanted: true, allWanted: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id, ok := tree.Resolve(tt.path)
			require.True(t, ok)
			s := tree.Stats(id)
			assert.Equal(t, tt.total, s.TotalBytes)
			assert.Equal(t, tt.downloaded, s.DownloadedBytes)
			assert.Equal(t, tt.priority, s.Priority)
			assert.Equal(t, tt.wanted, s.Wanted)
			assert.Equal(t, tt.allWanted, s.AllWanted)
		})
	}
}

func TestStatsAggregateChildren(t *testing.T) {
	tree := Build(sampleFiles())

	var walk func(id NodeID)
	walk = func(id NodeID) {
		children := tree.Children(id)
		if len(children) == 0 {
			return
		}
		var total, done int64
		for _, c := range children {
			s := tree.Stats(c)
			total += s.TotalBytes
			done += s.DownloadedBytes
			walk(c)
		}
		s := tree.Stats(id)
		assert.Equal(t, s.TotalBytes, total, tree.Node(id).Path)
		assert.Equal(t, s.DownloadedBytes, done, tree.Node(id).Path)
	}
	walk(Root)
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.Progress())
	assert.InDelta(t, 0.5, Stats{TotalBytes: 10, DownloadedBytes: 5}.Progress(), 1e-9)
}

func TestBrowser(t *testing.T) {
	b := NewBrowser(Build(sampleFiles()))

	assert.False(t, b.CanGoUp())
	assert.False(t, b.HandleBack(true))

	require.NoError(t, b.EnterFolder("Show/Season 1"))
	assert.Equal(t, "Show/Season 1", b.Path())
	assert.True(t, b.CanGoUp())

	err := b.EnterFolder("Show/Missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Show/Season 1", b.Path())

	require.Error(t, b.EnterFolder("Show/info.nfo"))

	assert.False(t, b.HandleBack(false))
	assert.Equal(t, "Show/Season 1", b.Path())

	assert.True(t, b.HandleBack(true))
	assert.Equal(t, "Show", b.Path())

	b.GoUp()
	assert.Equal(t, Root, b.Current())
	b.GoUp()
	assert.Equal(t, Root, b.Current())
}

func TestBrowserReset(t *testing.T) {
	b := NewBrowser(Build(sampleFiles()))
	require.NoError(t, b.EnterFolder("Show/Season 2"))

	b.Reset(Build(sampleFiles()))
	assert.Equal(t, "Show/Season 2", b.Path())

	b.Reset(Build([]domain.TorrentFile{{ID: 0, Name: "Other/file"}}))
	assert.Equal(t, Root, b.Current())
}

func TestDirectoryFileIDsAreUnionOfChildren(t *testing.T) {
	tree := Build(sampleFiles())

	for i := 0; i < tree.Len(); i++ {
		id := NodeID(i)
		node := tree.Node(id)
		if node.IsFile {
			assert.Len(t, node.FileIDs, 1, node.Path)
			continue
		}
		if id == Root {
			continue
		}

		var union []int
		for _, child := range tree.Children(id) {
			union = append(union, tree.Node(child).FileIDs...)
		}
		assert.ElementsMatch(t, node.FileIDs, union, node.Path)
	}
}
