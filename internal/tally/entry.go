// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tally holds the walked directory tree and rolls per-user blame
// statistics up through it.
package tally

import (
	"github.com/hashicorp/go-set/v2"
)

// UserStats is one user's share of an Entry.
type UserStats struct {
	Lines     int
	Files     *set.Set[string]
	Revisions *set.Set[string]
}

// NewUserStats returns empty stats.
func NewUserStats() *UserStats {
	return &UserStats{
		Files:     set.New[string](4),
		Revisions: set.New[string](4),
	}
}

// Clone returns a deep copy.
func (u *UserStats) Clone() *UserStats {
	return &UserStats{
		Lines:     u.Lines,
		Files:     set.From(u.Files.Slice()),
		Revisions: set.From(u.Revisions.Slice()),
	}
}

func (u *UserStats) merge(o *UserStats) {
	u.Lines += o.Lines
	u.Files.InsertSet(o.Files)
	u.Revisions.InsertSet(o.Revisions)
}

// Entry summarizes blame over some set of files: either the files directly
// in one directory (stats) or a whole subtree (meta).
//
// Lines is always the sum of the per-user lines and Revisions the union of
// the per-user revisions.
type Entry struct {
	Lines     int
	Files     int
	Revisions *set.Set[string]

	order []string
	users map[string]*UserStats
}

// NewEntry returns an empty Entry.
func NewEntry() *Entry {
	return &Entry{
		Revisions: set.New[string](8),
		users:     map[string]*UserStats{},
	}
}

// User returns the stats for name, inserting empty stats if needed.
func (e *Entry) User(name string) *UserStats {
	u, ok := e.users[name]
	if !ok {
		u = NewUserStats()
		e.insert(name, u)
	}
	return u
}

// Lookup returns the stats for name without inserting.
func (e *Entry) Lookup(name string) (*UserStats, bool) {
	u, ok := e.users[name]
	return u, ok
}

// Users returns user names in first-seen order.
func (e *Entry) Users() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// NumUsers is the number of distinct users.
func (e *Entry) NumUsers() int {
	return len(e.order)
}

func (e *Entry) insert(name string, u *UserStats) {
	e.users[name] = u
	e.order = append(e.order, name)
}

// Clone returns a deep copy; mutating it never affects e.
func (e *Entry) Clone() *Entry {
	c := &Entry{
		Lines:     e.Lines,
		Files:     e.Files,
		Revisions: set.From(e.Revisions.Slice()),
		users:     make(map[string]*UserStats, len(e.users)),
	}
	for _, name := range e.order {
		c.insert(name, e.users[name].Clone())
	}
	return c
}

// Merge adds o into e. Users new to e are copied, never shared.
func (e *Entry) Merge(o *Entry) {
	e.Lines += o.Lines
	e.Files += o.Files
	e.Revisions.InsertSet(o.Revisions)

	for _, name := range o.order {
		theirs := o.users[name]
		if mine, ok := e.users[name]; ok {
			mine.merge(theirs)
		} else {
			e.insert(name, theirs.Clone())
		}
	}
}
