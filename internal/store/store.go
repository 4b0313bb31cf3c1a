// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store saves and loads annotated trees.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bartekus/whowrote/internal/projection"
	"github.com/bartekus/whowrote/internal/tally"
)

var (
	// ErrUnknownFormat is returned for paths without a .json, .yaml or .yml extension.
	ErrUnknownFormat = errors.New("unknown tree format")
	// ErrUnsupportedVersion is returned for trees written by a newer whowrote.
	ErrUnsupportedVersion = errors.New("unsupported tree version")
)

// Format is a tree encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Encode writes root to w.
func Encode(w io.Writer, root *tally.Node, f Format) error {
	doc := treeDoc{Version: formatVersion, Root: fromNode(root)}

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Decode reads a tree from r. JSON input may also be in the legacy
// positional layout.
func Decode(r io.Reader, f Format) (*tally.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading tree: %w", err)
	}

	var doc treeDoc
	switch f {
	case FormatJSON:
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("decoding tree: %w", err)
		}
		if _, ok := probe["root"]; !ok {
			if _, legacy := probe["path"]; legacy {
				logger().Debug("reading legacy tree layout")
				return decodeLegacy(data)
			}
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding tree: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding tree: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}

	if doc.Version > formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	if doc.Root == nil {
		return nil, errors.New("decoding tree: missing root")
	}
	return doc.Root.toNode(), nil
}

// Save writes root to path atomically, in the format its extension names.
func Save(path string, root *tally.Node) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, root, f); err != nil {
		return fmt.Errorf("encoding tree: %w", err)
	}
	if err := projection.AtomicWrite(path, buf.Bytes()); err != nil {
		return err
	}

	logger().Debug("saved tree", "path", path, "format", f, "bytes", buf.Len())
	return nil
}

// Load reads the tree stored at path.
func Load(path string) (*tally.Node, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tree file: %w", err)
	}
	defer func() { _ = file.Close() }()

	root, err := Decode(file, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

func logger() *slog.Logger {
	return slog.Default().With("package", "store")
}
