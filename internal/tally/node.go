// SPDX-License-Identifier: AGPL-3.0-or-later

package tally

import (
	"strings"

	"github.com/bartekus/whowrote/internal/blame"
)

// Prefixes of informational entries in Node.Errors.
const (
	ExcludedPrefix = "Excluded: "
	SkippedPrefix  = "Skipped: "
)

// IsExclusion reports whether an Errors entry records a deliberate skip
// rather than a failure.
func IsExclusion(msg string) bool {
	return strings.HasPrefix(msg, ExcludedPrefix) || strings.HasPrefix(msg, SkippedPrefix)
}

// FileEntry is the blame of one file directly inside a directory.
type FileEntry struct {
	Path  string
	Blame *blame.FileBlame
}

// Node is one walked directory.
//
// The walker fills Path, Files, Subdirs and Errors; Annotate fills Stats and
// Meta. Meta stays nil for directories without subdirectories.
type Node struct {
	Path    string
	Files   []FileEntry
	Subdirs []*Node
	Errors  []string

	Stats *Entry
	Meta  *Entry
}

// NewNode returns an empty node for path.
func NewNode(path string) *Node {
	return &Node{Path: path}
}

// AddFile records the blame of a file in this directory.
func (n *Node) AddFile(path string, fb *blame.FileBlame) {
	n.Files = append(n.Files, FileEntry{Path: path, Blame: fb})
}

// AddSubdir attaches a completed child directory.
func (n *Node) AddSubdir(child *Node) {
	n.Subdirs = append(n.Subdirs, child)
}

// AddError records a problem with one of this directory's direct entries.
func (n *Node) AddError(msg string) {
	n.Errors = append(n.Errors, msg)
}

// File returns the blame stored for path, or nil.
func (n *Node) File(path string) *blame.FileBlame {
	for _, f := range n.Files {
		if f.Path == path {
			return f.Blame
		}
	}
	return nil
}

// Subdir returns the direct child with the given path, or nil.
func (n *Node) Subdir(path string) *Node {
	for _, c := range n.Subdirs {
		if c.Path == path {
			return c
		}
	}
	return nil
}

// Effective is Meta when present, else Stats.
func (n *Node) Effective() *Entry {
	if n.Meta != nil {
		return n.Meta
	}
	return n.Stats
}

// Visit calls fn for n and every descendant, depth-first, parents first.
// It stops at the first error.
func (n *Node) Visit(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Subdirs {
		if err := c.Visit(fn); err != nil {
			return err
		}
	}
	return nil
}
