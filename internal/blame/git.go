// SPDX-License-Identifier: AGPL-3.0-or-later

package blame

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitAnnotator blames files of a git working copy at HEAD, in process.
// Lines are attributed to the author e-mail and the commit hash.
type GitAnnotator struct {
	Timeout time.Duration

	repos map[string]*gitRepo // by directory
}

type gitRepo struct {
	root string
	head *object.Commit
}

// NewGitAnnotator returns a GitAnnotator.
func NewGitAnnotator(timeout time.Duration) *GitAnnotator {
	return &GitAnnotator{
		Timeout: timeout,
		repos:   map[string]*gitRepo{},
	}
}

func (a *GitAnnotator) open(dir string) (*gitRepo, error) {
	if repo, ok := a.repos[dir]; ok {
		return repo, nil
	}

	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}

	ref, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	head, err := r.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("loading HEAD commit: %w", err)
	}

	repo := &gitRepo{root: wt.Filesystem.Root(), head: head}
	a.repos[dir] = repo
	return repo, nil
}

// Annotate blames path at HEAD.
func (a *GitAnnotator) Annotate(ctx context.Context, path string) (*FileBlame, error) {
	if path == "" {
		return nil, &AnnotateError{Kind: KindProcess, Detail: "path must not be empty"}
	}

	repo, err := a.open(filepath.Dir(path))
	if err != nil {
		return nil, &AnnotateError{Kind: KindCommand, Path: path, Detail: err.Error(), Err: err}
	}

	rel, err := filepath.Rel(repo.root, path)
	if err != nil {
		return nil, &AnnotateError{Kind: KindProcess, Path: path, Detail: err.Error(), Err: err}
	}

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	logger().Debug("running git blame", "path", path)

	type outcome struct {
		result *git.BlameResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := git.Blame(repo.head, filepath.ToSlash(rel))
		done <- outcome{result, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &AnnotateError{
				Kind:   KindTimeout,
				Path:   path,
				Detail: "no result after " + a.Timeout.String(),
				Err:    ctx.Err(),
			}
		}
		return nil, &AnnotateError{Kind: KindCommand, Path: path, Detail: ctx.Err().Error(), Err: ctx.Err()}
	}

	if out.err != nil {
		return nil, &AnnotateError{Kind: KindCommand, Path: path, Detail: out.err.Error(), Err: out.err}
	}

	fb := NewFileBlame()
	for _, line := range out.result.Lines {
		fb.Add(line.Author, line.Hash.String())
	}
	return fb, nil
}
