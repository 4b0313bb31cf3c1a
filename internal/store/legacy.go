// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bartekus/whowrote/internal/blame"
	"github.com/bartekus/whowrote/internal/projection"
	"github.com/bartekus/whowrote/internal/tally"
)

// ErrLegacyShape is returned when a legacy document has an unexpected layout.
var ErrLegacyShape = errors.New("malformed legacy tree")

// legacyNode is the positional layout written by the first whowrote:
// directories and files are keyed by path, file blames are
// {user: [lines, [revs]]} and stats/meta are
// [lines, files, [revs], {user: [lines, [files], [revs]]}].
type legacyNode struct {
	Path   string                                `json:"path"`
	Dirs   map[string]*legacyNode                `json:"dirs"`
	Files  map[string]map[string]json.RawMessage `json:"files"`
	Errors []string                              `json:"errors"`
	Stats  json.RawMessage                       `json:"stats"`
	Meta   json.RawMessage                       `json:"meta"`
}

func decodeLegacy(data []byte) (*tally.Node, error) {
	var root legacyNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decoding legacy tree: %w", err)
	}
	return root.toNode()
}

// toNode converts a legacy node. Maps are visited in sorted key order.
func (l *legacyNode) toNode() (*tally.Node, error) {
	n := tally.NewNode(l.Path)

	for _, path := range projection.SortedKeys(l.Files) {
		fb := blame.NewFileBlame()
		users := l.Files[path]
		for _, user := range projection.SortedKeys(users) {
			var pair []json.RawMessage
			if err := json.Unmarshal(users[user], &pair); err != nil || len(pair) != 2 {
				return nil, fmt.Errorf("%w: file %s user %s", ErrLegacyShape, path, user)
			}
			ul := fb.User(user)
			if err := json.Unmarshal(pair[0], &ul.Lines); err != nil {
				return nil, fmt.Errorf("%w: file %s user %s lines", ErrLegacyShape, path, user)
			}
			var revs []string
			if err := json.Unmarshal(pair[1], &revs); err != nil {
				return nil, fmt.Errorf("%w: file %s user %s revisions", ErrLegacyShape, path, user)
			}
			ul.Revisions.InsertSlice(revs)
		}
		n.AddFile(path, fb)
	}

	for _, path := range projection.SortedKeys(l.Dirs) {
		child := l.Dirs[path]
		if child == nil {
			continue
		}
		if child.Path == "" {
			child.Path = path
		}
		c, err := child.toNode()
		if err != nil {
			return nil, err
		}
		n.AddSubdir(c)
	}

	for _, msg := range l.Errors {
		n.AddError(msg)
	}

	var err error
	if n.Stats, err = legacyEntry(l.Stats); err != nil {
		return nil, fmt.Errorf("%s stats: %w", l.Path, err)
	}
	if n.Meta, err = legacyEntry(l.Meta); err != nil {
		return nil, fmt.Errorf("%s meta: %w", l.Path, err)
	}
	return n, nil
}

func legacyEntry(raw json.RawMessage) (*tally.Entry, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 4 {
		return nil, ErrLegacyShape
	}

	e := tally.NewEntry()
	var revs []string
	var users map[string][]json.RawMessage
	if json.Unmarshal(parts[0], &e.Lines) != nil ||
		json.Unmarshal(parts[1], &e.Files) != nil ||
		json.Unmarshal(parts[2], &revs) != nil ||
		json.Unmarshal(parts[3], &users) != nil {
		return nil, ErrLegacyShape
	}
	e.Revisions.InsertSlice(revs)

	for _, name := range projection.SortedKeys(users) {
		data := users[name]
		if len(data) != 3 {
			return nil, fmt.Errorf("%w: user %s", ErrLegacyShape, name)
		}
		u := e.User(name)
		var files, userRevs []string
		if json.Unmarshal(data[0], &u.Lines) != nil ||
			json.Unmarshal(data[1], &files) != nil ||
			json.Unmarshal(data[2], &userRevs) != nil {
			return nil, fmt.Errorf("%w: user %s", ErrLegacyShape, name)
		}
		u.Files.InsertSlice(files)
		u.Revisions.InsertSlice(userRevs)
	}

	return e, nil
}
