// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package filetree turns a torrent's flat file list into a directory tree.
// Nodes live in a flat arena and refer to each other by index.
package filetree

import (
	"cmp"
	"errors"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/autobrr/qremote/internal/domain"
)

var ErrNotFound = errors.New("path not found in file tree")

// NodeID indexes a node in its Tree.
type NodeID int

const (
	Root NodeID = 0
	// NoParent is the parent of the root node.
	NoParent NodeID = -1
)

type Node struct {
	Name string
	// Path is slash separated without leading or trailing slash; "" for root.
	Path   string
	IsFile bool
	Parent NodeID
	// FileIDs holds the ids of every file at or below this node, ascending.
	FileIDs []int

	children map[string]NodeID
}

// Tree is built once per file list snapshot and never modified afterwards.
type Tree struct {
	nodes []Node
	files map[int]domain.TorrentFile
}

// NormalizePath converts backslashes, collapses repeated slashes and trims
// leading and trailing ones.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	parts := strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
	return strings.Join(parts, "/")
}

func Build(files []domain.TorrentFile) *Tree {
	t := &Tree{
		nodes: []Node{{Parent: NoParent, children: map[string]NodeID{}}},
		files: make(map[int]domain.TorrentFile, len(files)),
	}
	ids := []map[int]struct{}{{}}

	for _, f := range files {
		t.files[f.ID] = f
		ids[Root][f.ID] = struct{}{}

		path := NormalizePath(f.Name)
		if path == "" {
			continue
		}

		segments := strings.Split(path, "/")
		current := Root
		for i, seg := range segments {
			last := i == len(segments)-1
			next, ok := t.nodes[current].children[seg]
			if !ok {
				next = NodeID(len(t.nodes))
				t.nodes = append(t.nodes, Node{
					Name:     seg,
					Path:     strings.Join(segments[:i+1], "/"),
					IsFile:   last,
					Parent:   current,
					children: map[string]NodeID{},
				})
				t.nodes[current].children[seg] = next
				ids = append(ids, map[int]struct{}{})
			} else if !last {
				// a path both named as a file and used as a directory is a directory
				t.nodes[next].IsFile = false
			}
			ids[next][f.ID] = struct{}{}
			current = next
		}
	}

	for i := range t.nodes {
		if len(t.nodes[i].children) > 0 {
			t.nodes[i].IsFile = false
		}
		t.nodes[i].FileIDs = slices.Sorted(maps.Keys(ids[i]))
	}
	return t
}

// Node returns a copy of the node with id.
func (t *Tree) Node(id NodeID) Node {
	return t.nodes[id]
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

// Resolve finds the node at path. The empty path is the root.
func (t *Tree) Resolve(path string) (NodeID, bool) {
	path = NormalizePath(path)
	current := Root
	if path == "" {
		return current, true
	}
	for _, seg := range strings.Split(path, "/") {
		next, ok := t.nodes[current].children[seg]
		if !ok {
			return 0, false
		}
		current = next
	}
	return current, true
}

// Children lists the direct children of id, directories first, then by
// case insensitive name.
func (t *Tree) Children(id NodeID) []NodeID {
	fold := cases.Fold()
	out := slices.Collect(maps.Values(t.nodes[id].children))
	slices.SortFunc(out, func(a, b NodeID) int {
		na, nb := &t.nodes[a], &t.nodes[b]
		if na.IsFile != nb.IsFile {
			if !na.IsFile {
				return -1
			}
			return 1
		}
		if c := strings.Compare(fold.String(na.Name), fold.String(nb.Name)); c != 0 {
			return c
		}
		return cmp.Compare(na.Name, nb.Name)
	})
	return out
}

// File returns the record a file id was built from.
func (t *Tree) File(id int) (domain.TorrentFile, bool) {
	f, ok := t.files[id]
	return f, ok
}
