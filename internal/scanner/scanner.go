// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scanner walks a working copy and annotates every file in it.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-enry/go-enry/v2"

	"github.com/bartekus/whowrote/internal/blame"
	"github.com/bartekus/whowrote/internal/tally"
)

// sniffLen is how much of a file is read to decide whether it is binary.
const sniffLen = 8000

// Scanner builds the raw blame tree of a directory.
type Scanner struct {
	annotator blame.Annotator
	filter    compiled

	// OnFile, when set, is called after each file has been handled.
	OnFile func(path string)
}

// New creates a Scanner annotating files with annotator.
func New(annotator blame.Annotator, opts FilterOptions) *Scanner {
	return &Scanner{
		annotator: annotator,
		filter:    opts.compile(),
	}
}

// Walk returns the tree rooted at root. Only a root that is not a readable
// directory is an error; every problem below it is recorded in the owning
// node's Errors and the walk goes on.
func (s *Scanner) Walk(ctx context.Context, root string) (*tally.Node, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("walking %s: not a directory", abs)
	}

	return s.walkDir(ctx, abs, abs), nil
}

func (s *Scanner) walkDir(ctx context.Context, root, dir string) *tally.Node {
	node := tally.NewNode(dir)
	logger().Debug("walking directory", "path", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		// ReadDir still returns what it read before failing.
		node.AddError(fmt.Sprintf("ReadError: %s %v", dir, err))
	}

	for _, entry := range entries {
		name := entry.Name()
		if s.filter.excludedName(name) {
			continue
		}

		path := filepath.Join(dir, name)
		if len(s.filter.globs) > 0 {
			rel, err := filepath.Rel(root, path)
			if err == nil && s.filter.excludedGlob(filepath.ToSlash(rel)) {
				continue
			}
		}

		switch mode := entry.Type(); {
		case mode&fs.ModeSymlink != 0:
			node.AddError(tally.SkippedPrefix + path + " symbolic link")
		case mode.IsDir():
			node.AddSubdir(s.walkDir(ctx, root, path))
		case !mode.IsRegular():
			node.AddError(tally.SkippedPrefix + path + " not a regular file")
		default:
			s.visitFile(ctx, node, path)
		}
	}

	return node
}

func (s *Scanner) visitFile(ctx context.Context, node *tally.Node, path string) {
	if s.OnFile != nil {
		defer s.OnFile(path)
	}

	if s.filter.excludedExtension(path) {
		node.AddError(tally.ExcludedPrefix + path)
		return
	}

	if s.filter.bin {
		binary, err := isBinary(path)
		if err != nil {
			node.AddError(fmt.Sprintf("ReadError: %s %v", path, err))
			return
		}
		if binary {
			node.AddError(tally.ExcludedPrefix + path)
			return
		}
	}

	fb, err := s.annotator.Annotate(ctx, path)
	if err != nil {
		logger().Debug("annotation failed", "path", path, "err", err)
		node.AddError(err.Error())
		return
	}

	node.AddFile(path, fb)
}

func isBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, err
	}

	return enry.IsBinary(buf[:n]), nil
}

func logger() *slog.Logger {
	return slog.Default().With("package", "scanner")
}
