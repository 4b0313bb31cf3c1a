// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"slices"

	"github.com/hashicorp/go-set/v2"
	"github.com/samber/lo"

	"github.com/bartekus/whowrote/internal/blame"
	"github.com/bartekus/whowrote/internal/tally"
)

// formatVersion is written to every saved tree.
const formatVersion = 1

// treeDoc is the on-disk tree. Users and files are arrays so their order
// survives a round trip; sets are sorted lists.
type treeDoc struct {
	Version int      `json:"version" yaml:"version"`
	Root    *nodeDoc `json:"root" yaml:"root"`
}

type nodeDoc struct {
	Path   string     `json:"path" yaml:"path"`
	Files  []fileDoc  `json:"files,omitempty" yaml:"files,omitempty"`
	Dirs   []*nodeDoc `json:"dirs,omitempty" yaml:"dirs,omitempty"`
	Errors []string   `json:"errors,omitempty" yaml:"errors,omitempty"`
	Stats  *entryDoc  `json:"stats,omitempty" yaml:"stats,omitempty"`
	Meta   *entryDoc  `json:"meta,omitempty" yaml:"meta,omitempty"`
}

type fileDoc struct {
	Path  string        `json:"path" yaml:"path"`
	Users []fileUserDoc `json:"users" yaml:"users"`
}

type fileUserDoc struct {
	User      string   `json:"user" yaml:"user"`
	Lines     int      `json:"lines" yaml:"lines"`
	Revisions []string `json:"revisions" yaml:"revisions"`
}

type entryDoc struct {
	Lines     int       `json:"lines" yaml:"lines"`
	Files     int       `json:"files" yaml:"files"`
	Revisions []string  `json:"revisions" yaml:"revisions"`
	Users     []userDoc `json:"users" yaml:"users"`
}

type userDoc struct {
	User      string   `json:"user" yaml:"user"`
	Lines     int      `json:"lines" yaml:"lines"`
	Files     []string `json:"files" yaml:"files"`
	Revisions []string `json:"revisions" yaml:"revisions"`
}

func sorted(s *set.Set[string]) []string {
	out := s.Slice()
	slices.Sort(out)
	return out
}

func fromNode(n *tally.Node) *nodeDoc {
	return &nodeDoc{
		Path: n.Path,
		Files: lo.Map(n.Files, func(f tally.FileEntry, _ int) fileDoc {
			return fileDoc{
				Path: f.Path,
				Users: lo.Map(f.Blame.Users(), func(name string, _ int) fileUserDoc {
					u, _ := f.Blame.Lookup(name)
					return fileUserDoc{User: name, Lines: u.Lines, Revisions: sorted(u.Revisions)}
				}),
			}
		}),
		Dirs:   lo.Map(n.Subdirs, func(c *tally.Node, _ int) *nodeDoc { return fromNode(c) }),
		Errors: n.Errors,
		Stats:  fromEntry(n.Stats),
		Meta:   fromEntry(n.Meta),
	}
}

func fromEntry(e *tally.Entry) *entryDoc {
	if e == nil {
		return nil
	}
	return &entryDoc{
		Lines:     e.Lines,
		Files:     e.Files,
		Revisions: sorted(e.Revisions),
		Users: lo.Map(e.Users(), func(name string, _ int) userDoc {
			u, _ := e.Lookup(name)
			return userDoc{
				User:      name,
				Lines:     u.Lines,
				Files:     sorted(u.Files),
				Revisions: sorted(u.Revisions),
			}
		}),
	}
}

func (d *nodeDoc) toNode() *tally.Node {
	n := tally.NewNode(d.Path)
	for _, f := range d.Files {
		fb := blame.NewFileBlame()
		for _, u := range f.Users {
			ul := fb.User(u.User)
			ul.Lines += u.Lines
			ul.Revisions.InsertSlice(u.Revisions)
		}
		n.AddFile(f.Path, fb)
	}
	for _, c := range d.Dirs {
		if c != nil {
			n.AddSubdir(c.toNode())
		}
	}
	for _, msg := range d.Errors {
		n.AddError(msg)
	}
	n.Stats = d.Stats.toEntry()
	n.Meta = d.Meta.toEntry()
	return n
}

func (d *entryDoc) toEntry() *tally.Entry {
	if d == nil {
		return nil
	}
	e := tally.NewEntry()
	e.Lines = d.Lines
	e.Files = d.Files
	e.Revisions.InsertSlice(d.Revisions)
	for _, u := range d.Users {
		us := e.User(u.User)
		us.Lines += u.Lines
		us.Files.InsertSlice(u.Files)
		us.Revisions.InsertSlice(u.Revisions)
	}
	return e
}
