// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package filetree

import "fmt"

// Browser is the navigation state of a file list view.
type Browser struct {
	tree    *Tree
	current NodeID
}

func NewBrowser(tree *Tree) *Browser {
	return &Browser{tree: tree, current: Root}
}

func (b *Browser) Tree() *Tree { return b.tree }

func (b *Browser) Current() NodeID { return b.current }

// Path is the path of the current folder.
func (b *Browser) Path() string { return b.tree.nodes[b.current].Path }

// EnterFolder moves to the directory at path.
func (b *Browser) EnterFolder(path string) error {
	id, ok := b.tree.Resolve(path)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	if b.tree.nodes[id].IsFile {
		return fmt.Errorf("%q is a file", path)
	}
	b.current = id
	return nil
}

func (b *Browser) CanGoUp() bool {
	return b.current != Root
}

// GoUp moves to the parent folder; at the root it stays put.
func (b *Browser) GoUp() {
	if b.CanGoUp() {
		b.current = b.tree.nodes[b.current].Parent
	}
}

// HandleBack consumes a platform back action when the file view is active
// and there is a folder to go up to. It reports whether it did.
func (b *Browser) HandleBack(viewActive bool) bool {
	if !viewActive || !b.CanGoUp() {
		return false
	}
	b.GoUp()
	return true
}

// Reset swaps in a tree rebuilt from fresh data, staying in the same folder
// when it still exists.
func (b *Browser) Reset(tree *Tree) {
	path := b.Path()
	b.tree = tree
	b.current = Root
	if id, ok := tree.Resolve(path); ok && !tree.nodes[id].IsFile {
		b.current = id
	}
}
