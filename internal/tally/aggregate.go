// SPDX-License-Identifier: AGPL-3.0-or-later

package tally

// ComputeStats summarizes the files directly in n, ignoring subdirectories.
//
// Files counts (file, user) pairs, so a file touched by two users counts
// twice; UserStats.Files deduplicates per user.
func ComputeStats(n *Node) *Entry {
	stats := NewEntry()

	for _, f := range n.Files {
		for _, user := range f.Blame.Users() {
			data, _ := f.Blame.Lookup(user)

			stats.Files++
			stats.Lines += data.Lines
			stats.Revisions.InsertSet(data.Revisions)

			u := stats.User(user)
			u.Lines += data.Lines
			u.Files.Insert(f.Path)
			u.Revisions.InsertSet(data.Revisions)
		}
	}

	return stats
}

// ComputeMeta rolls n's own stats and the effective entry of every child
// into a fresh Entry. It returns nil when n has no subdirectories, and
// expects n.Stats and the children to be annotated already.
func ComputeMeta(n *Node) *Entry {
	if len(n.Subdirs) == 0 {
		return nil
	}

	var meta *Entry
	if n.Stats != nil {
		meta = n.Stats.Clone()
	} else {
		meta = NewEntry()
	}

	for _, child := range n.Subdirs {
		if eff := child.Effective(); eff != nil {
			meta.Merge(eff)
		}
	}

	return meta
}

// Annotate fills Stats for every node and Meta for every node with
// subdirectories, children before parents.
func Annotate(n *Node) *Node {
	n.Stats = ComputeStats(n)
	if len(n.Subdirs) == 0 {
		n.Meta = nil
		return n
	}

	for _, child := range n.Subdirs {
		Annotate(child)
	}
	n.Meta = ComputeMeta(n)

	return n
}
