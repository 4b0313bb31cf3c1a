// SPDX-License-Identifier: AGPL-3.0-or-later

// Package blame annotates single files and tallies the annotated lines per user.
package blame

import (
	"github.com/hashicorp/go-set/v2"
)

// UserLines is what one user contributed to one file.
type UserLines struct {
	Lines     int
	Revisions *set.Set[string]
}

// FileBlame maps users to the lines they last changed in a single file.
// Users are kept in the order they were first seen.
type FileBlame struct {
	order []string
	users map[string]*UserLines
}

// NewFileBlame returns an empty FileBlame.
func NewFileBlame() *FileBlame {
	return &FileBlame{users: map[string]*UserLines{}}
}

// User returns the entry for name, inserting an empty one if needed.
func (b *FileBlame) User(name string) *UserLines {
	u, ok := b.users[name]
	if !ok {
		u = &UserLines{Revisions: set.New[string](4)}
		b.users[name] = u
		b.order = append(b.order, name)
	}
	return u
}

// Lookup returns the entry for name without inserting.
func (b *FileBlame) Lookup(name string) (*UserLines, bool) {
	u, ok := b.users[name]
	return u, ok
}

// Users returns user names in first-seen order.
func (b *FileBlame) Users() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Len is the number of distinct users.
func (b *FileBlame) Len() int {
	return len(b.order)
}

// Add attributes one annotated line to user at revision.
func (b *FileBlame) Add(user, revision string) {
	u := b.User(user)
	u.Lines++
	u.Revisions.Insert(revision)
}

// Lines is the total number of annotated lines.
func (b *FileBlame) Lines() int {
	total := 0
	for _, u := range b.users {
		total += u.Lines
	}
	return total
}
