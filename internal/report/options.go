// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidSort   = errors.New("invalid sort key")
	ErrInvalidRows   = errors.New("invalid row limit")
	ErrInvalidFormat = errors.New("invalid report format")
)

// SortKey is the per-user metric rows are ranked by.
type SortKey int

const (
	SortLines SortKey = iota
	SortFiles
	SortRevisions
)

var sortNames = []string{"lines", "files", "revs"}

func (k SortKey) String() string {
	if k < 0 || int(k) >= len(sortNames) {
		return fmt.Sprintf("SortKey(%d)", int(k))
	}
	return sortNames[k]
}

// ParseSortKey accepts lines, files, revs (or revisions) and the numeric
// forms 0, 1 and 2.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lines", "0":
		return SortLines, nil
	case "files", "1":
		return SortFiles, nil
	case "revs", "revisions", "2":
		return SortRevisions, nil
	}
	return 0, fmt.Errorf("%w %q: want lines, files or revs", ErrInvalidSort, s)
}

// RowLimit caps the per-user rows of each section.
type RowLimit int

const (
	// AllRows shows every user.
	AllRows RowLimit = -1
	// NoRows shows the totals row only.
	NoRows RowLimit = 0
)

func (r RowLimit) String() string {
	switch {
	case r < 0:
		return "all"
	case r == NoRows:
		return "none"
	}
	return strconv.Itoa(int(r))
}

// ParseRowLimit accepts all, none or a non-negative integer.
func ParseRowLimit(s string) (RowLimit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return AllRows, nil
	case "none":
		return NoRows, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w %q: want all, none or a non-negative number", ErrInvalidRows, s)
	}
	return RowLimit(n), nil
}

// Format is the output flavour.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat accepts markdown (or md) and text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md", "":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w %q: want markdown or text", ErrInvalidFormat, s)
}

// Options controls rendering.
type Options struct {
	Sort       SortKey
	Rows       RowLimit
	Format     Format
	ShowErrors bool
}

// DefaultOptions sorts by lines, shows five rows, and renders Markdown.
func DefaultOptions() Options {
	return Options{
		Sort:   SortLines,
		Rows:   5,
		Format: FormatMarkdown,
	}
}
