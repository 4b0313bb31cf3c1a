// SPDX-License-Identifier: AGPL-3.0-or-later

// Package report renders an annotated tree as a ranked per-directory report.
package report

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/bartekus/whowrote/internal/tally"
)

// Render writes one section per directory of root, parents before children.
// Nodes must already be annotated.
func Render(w io.Writer, root *tally.Node, opts Options) error {
	var section func(*tally.Node) string
	switch opts.Format {
	case FormatMarkdown, "":
		section = func(n *tally.Node) string { return markdownSection(n, opts) }
	case FormatText:
		section = func(n *tally.Node) string { return textSection(n, opts) }
	default:
		return fmt.Errorf("%w %q", ErrInvalidFormat, opts.Format)
	}

	return root.Visit(func(n *tally.Node) error {
		if _, err := io.WriteString(w, section(n)); err != nil {
			return fmt.Errorf("writing section %s: %w", n.Path, err)
		}
		return nil
	})
}

// String renders the report into a string.
func String(root *tally.Node, opts Options) (string, error) {
	var b strings.Builder
	if err := Render(&b, root, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Rank orders the users of e by key, largest first. Equal users keep their
// first-seen order.
func Rank(e *tally.Entry, key SortKey) []string {
	users := e.Users()
	slices.SortStableFunc(users, func(a, b string) int {
		ua, _ := e.Lookup(a)
		ub, _ := e.Lookup(b)
		return cmp.Compare(metric(ub, key), metric(ua, key))
	})
	return users
}

// Truncate applies the row limit to ranked users.
func Truncate(users []string, rows RowLimit) []string {
	if rows < 0 || int(rows) >= len(users) {
		return users
	}
	return users[:rows]
}

func metric(u *tally.UserStats, key SortKey) int {
	switch key {
	case SortFiles:
		return u.Files.Size()
	case SortRevisions:
		return u.Revisions.Size()
	default:
		return u.Lines
	}
}

// percent is n as a whole percentage of total, rounded half away from zero.
func percent(n, total int) int {
	return int(math.Round(float64(n) * 100 / float64(total)))
}

// row is one ranked user with each metric and its share of the section.
type row struct {
	user                    string
	lines, files, revisions int
	pLines, pFiles, pRevs   int
}

// sectionRows ranks and truncates the users of e. It reports false when a
// denominator is zero and percentages cannot be computed.
func sectionRows(e *tally.Entry, opts Options) ([]row, bool) {
	if opts.Rows == NoRows {
		return nil, true
	}
	if e.Lines == 0 || e.Files == 0 || e.Revisions.Size() == 0 {
		logger().Warn("zero denominator, user rows omitted",
			"lines", e.Lines, "files", e.Files, "revisions", e.Revisions.Size())
		return nil, false
	}

	revs := e.Revisions.Size()
	return lo.Map(Truncate(Rank(e, opts.Sort), opts.Rows), func(name string, _ int) row {
		u, _ := e.Lookup(name)
		return row{
			user:      name,
			lines:     u.Lines,
			files:     u.Files.Size(),
			revisions: u.Revisions.Size(),
			pLines:    percent(u.Lines, e.Lines),
			pFiles:    percent(u.Files.Size(), e.Files),
			pRevs:     percent(u.Revisions.Size(), revs),
		}
	}), true
}

func caption(e *tally.Entry, opts Options) string {
	var shown string
	switch {
	case opts.Rows < 0:
		shown = "displaying all rows"
	case opts.Rows == NoRows:
		shown = "displaying totals only"
	default:
		shown = fmt.Sprintf("displaying top %d rows out of %d", opts.Rows, e.NumUsers())
	}
	return fmt.Sprintf("Sorted by %s, %s", opts.Sort, shown)
}

func degradedNote(e *tally.Entry) string {
	return fmt.Sprintf("cannot compute percentages (%d files, %d revisions)", e.Files, e.Revisions.Size())
}

func logger() *slog.Logger {
	return slog.Default().With("package", "report")
}
