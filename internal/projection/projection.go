// SPDX-License-Identifier: AGPL-3.0-or-later

// Package projection writes rendered output to disk and holds the small
// Markdown builders the report uses.
package projection

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AtomicWrite writes content to path atomically by writing to a temp file and renaming it.
func AtomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".whowrote-tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmpFile.Name()) }()

	if _, err := tmpFile.Write(content); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	// CreateTemp uses 0600.
	if err := os.Chmod(tmpFile.Name(), 0o644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return fmt.Errorf("moving temp file to %s: %w", path, err)
	}

	return nil
}

// SortedKeys returns the keys of m sorted lexicographically.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Align is the alignment of a Markdown table column.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

func (a Align) separator(header string) string {
	width := max(len(header), 3)
	if a == AlignRight {
		return strings.Repeat("-", width) + ":"
	}
	return strings.Repeat("-", width)
}

// RenderTable renders a Markdown table. Columns without an entry in align
// are left aligned.
// It assumes rows are already sorted if determinism is required.
func RenderTable(headers []string, align []Align, rows [][]string) string {
	var b strings.Builder

	// Header
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")

	// Separator
	b.WriteString("|")
	for i, h := range headers {
		a := AlignLeft
		if i < len(align) {
			a = align[i]
		}
		b.WriteString(" " + a.separator(h) + " |")
	}
	b.WriteString("\n")

	// Rows
	for _, row := range rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}

	return b.String()
}

// RenderList renders a simple unordered Markdown list.
func RenderList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}

// RenderHeader renders a Markdown header.
func RenderHeader(level int, text string) string {
	return fmt.Sprintf("%s %s\n\n", strings.Repeat("#", level), text)
}
