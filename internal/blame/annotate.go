// SPDX-License-Identifier: AGPL-3.0-or-later

package blame

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"
)

// Annotator produces a FileBlame for one file.
//
// Implementations must not share mutable state with the caller: a failed
// annotation is returned as an error and the caller decides what to do with it.
type Annotator interface {
	Annotate(ctx context.Context, path string) (*FileBlame, error)
}

// Failure kinds reported in AnnotateError.
const (
	KindProcess = "ProcessError"
	KindCommand = "CommandError"
	KindParse   = "ParseError"
	KindTimeout = "TimeoutError"
)

// AnnotateError describes why a single file could not be annotated.
type AnnotateError struct {
	Kind   string
	Path   string
	Detail string
	Err    error
}

func (e *AnnotateError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: %s %s", e.Kind, e.Path, e.Detail)
}

func (e *AnnotateError) Unwrap() error {
	return e.Err
}

// ParseAnnotation reads annotation output where every line starts with a
// revision and a user, separated by whitespace, followed by the source line.
// Empty lines are ignored.
func ParseAnnotation(r io.Reader) (*FileBlame, error) {
	fb := NewFileBlame()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		rev, user, ok := splitRevisionUser(line)
		if !ok {
			return nil, fmt.Errorf("line %d: expected revision and user, got %q", lineNo, line)
		}
		fb.Add(user, rev)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading annotation: %w", err)
	}

	return fb, nil
}

// splitRevisionUser returns the first two whitespace-delimited fields of line.
func splitRevisionUser(line string) (string, string, bool) {
	rest := strings.TrimLeftFunc(line, unicode.IsSpace)

	rev, rest, found := cutSpace(rest)
	if !found {
		return "", "", false
	}

	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	user, _, _ := cutSpace(rest)
	if user == "" {
		return "", "", false
	}

	return rev, user, true
}

func cutSpace(s string) (string, string, bool) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i:], true
}

func logger() *slog.Logger {
	return slog.Default().With("package", "blame")
}
