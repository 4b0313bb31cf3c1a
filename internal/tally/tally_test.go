// SPDX-License-Identifier: AGPL-3.0-or-later

package tally_test

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/hashicorp/go-set/v2"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/whowrote/internal/blame"
	"github.com/bartekus/whowrote/internal/tally"
)

// blameOf builds a FileBlame from "user rev" pairs, one per annotated line.
func blameOf(lines ...string) *blame.FileBlame {
	fb := blame.NewFileBlame()
	for _, l := range lines {
		user, rev, _ := strings.Cut(l, " ")
		fb.Add(user, rev)
	}
	return fb
}

// repeat returns n copies of line.
func repeat(line string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = line
	}
	return out
}

func checkEntryConsistent(t *testing.T, e *tally.Entry) {
	t.Helper()

	lines := lo.SumBy(e.Users(), func(name string) int {
		u, _ := e.Lookup(name)
		return u.Lines
	})
	assert.Equal(t, e.Lines, lines, "lines must equal the per-user sum")

	revs := set.New[string](0)
	for _, name := range e.Users() {
		u, _ := e.Lookup(name)
		revs.InsertSet(u.Revisions)
	}
	assert.ElementsMatch(t, e.Revisions.Slice(), revs.Slice(), "revisions must equal the per-user union")
}

// Scenario: one file, annotated to alice with 10 lines across r1 and r2.
func TestComputeStats_SingleFile(t *testing.T) {
	node := tally.NewNode("/repo")
	file := "/repo/main.go"
	node.AddFile(file, blameOf(append(repeat("alice r1", 4), repeat("alice r2", 6)...)...))

	stats := tally.ComputeStats(node)

	assert.Equal(t, 10, stats.Lines)
	assert.Equal(t, 1, stats.Files)
	assert.ElementsMatch(t, []string{"r1", "r2"}, stats.Revisions.Slice())
	assert.Equal(t, []string{"alice"}, stats.Users())

	alice, ok := stats.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, 10, alice.Lines)
	assert.Equal(t, []string{file}, alice.Files.Slice())
	assert.ElementsMatch(t, []string{"r1", "r2"}, alice.Revisions.Slice())

	checkEntryConsistent(t, stats)
}

func TestComputeStats_CountsFileUserPairs(t *testing.T) {
	node := tally.NewNode("/repo")
	node.AddFile("/repo/a.go", blameOf("alice r1", "bob r2", "bob r2"))
	node.AddFile("/repo/b.go", blameOf("bob r3"))

	stats := tally.ComputeStats(node)

	assert.Equal(t, 4, stats.Lines)
	assert.Equal(t, 3, stats.Files)
	assert.Equal(t, []string{"alice", "bob"}, stats.Users())

	bob, _ := stats.Lookup("bob")
	assert.Equal(t, 3, bob.Lines)
	assert.ElementsMatch(t, []string{"/repo/a.go", "/repo/b.go"}, bob.Files.Slice())
	assert.ElementsMatch(t, []string{"r2", "r3"}, bob.Revisions.Slice())

	checkEntryConsistent(t, stats)
}

func TestComputeStats_IgnoresSubdirs(t *testing.T) {
	root := tally.NewNode("/repo")
	child := tally.NewNode("/repo/pkg")
	child.AddFile("/repo/pkg/a.go", blameOf("alice r1"))
	root.AddSubdir(child)

	stats := tally.ComputeStats(root)
	assert.Equal(t, 0, stats.Lines)
	assert.Equal(t, 0, stats.Files)
	assert.Equal(t, 0, stats.NumUsers())
}

func TestComputeMeta_Leaf(t *testing.T) {
	leaf := tally.NewNode("/repo")
	leaf.AddFile("/repo/a.go", blameOf("alice r1"))
	leaf.Stats = tally.ComputeStats(leaf)

	assert.Nil(t, tally.ComputeMeta(leaf))
}

// Scenario: a parent without files and two children with five lines each.
func TestAnnotate_ParentWithoutFiles(t *testing.T) {
	root := tally.NewNode("/repo")
	for i, user := range []string{"alice", "bob"} {
		child := tally.NewNode(fmt.Sprintf("/repo/d%d", i))
		child.AddFile(fmt.Sprintf("/repo/d%d/f.go", i), blameOf(repeat(user+" r1", 5)...))
		root.AddSubdir(child)
	}

	tally.Annotate(root)

	require.NotNil(t, root.Stats)
	require.NotNil(t, root.Meta)
	assert.Equal(t, 0, root.Stats.Lines)
	assert.Equal(t, 10, root.Meta.Lines)
	assert.Equal(t, 2, root.Meta.Files)
	assert.Equal(t, []string{"r1"}, root.Meta.Revisions.Slice())
	assert.Equal(t, []string{"alice", "bob"}, root.Meta.Users())

	for _, child := range root.Subdirs {
		assert.Nil(t, child.Meta, "leaf directories only carry stats")
		assert.Equal(t, 5, child.Stats.Lines)
	}
	checkEntryConsistent(t, root.Meta)
}

func buildTree() *tally.Node {
	root := tally.NewNode("/repo")
	root.AddFile("/repo/README", blameOf("alice r1", "alice r1", "carol r4"))

	lib := tally.NewNode("/repo/lib")
	lib.AddFile("/repo/lib/a.go", blameOf("alice r2", "bob r3", "bob r3"))

	deep := tally.NewNode("/repo/lib/deep")
	deep.AddFile("/repo/lib/deep/x.go", blameOf("bob r5", "dave r6"))
	deep.AddError("CommandError: /repo/lib/deep/broken.go exit status 1")
	lib.AddSubdir(deep)

	empty := tally.NewNode("/repo/empty")

	root.AddSubdir(lib)
	root.AddSubdir(empty)
	return root
}

func TestAnnotate_MetaRollsUpSubtree(t *testing.T) {
	root := tally.Annotate(buildTree())

	lib := root.Subdir("/repo/lib")
	require.NotNil(t, lib)
	deep := lib.Subdir("/repo/lib/deep")
	require.NotNil(t, deep)
	empty := root.Subdir("/repo/empty")
	require.NotNil(t, empty)

	assert.Nil(t, deep.Meta)
	assert.Nil(t, empty.Meta)
	require.NotNil(t, lib.Meta)
	require.NotNil(t, root.Meta)

	// meta = own stats + effective entries of direct children
	assert.Equal(t, lib.Stats.Lines+deep.Stats.Lines, lib.Meta.Lines)
	assert.Equal(t, lib.Stats.Files+deep.Stats.Files, lib.Meta.Files)
	assert.Equal(t, root.Stats.Lines+lib.Meta.Lines+empty.Stats.Lines, root.Meta.Lines)
	assert.Equal(t, root.Stats.Files+lib.Meta.Files+empty.Stats.Files, root.Meta.Files)
	assert.Equal(t, 8, root.Meta.Lines)
	assert.ElementsMatch(t, []string{"r1", "r2", "r3", "r4", "r5", "r6"}, root.Meta.Revisions.Slice())

	// Own stats come first, then children in order.
	assert.Equal(t, []string{"alice", "carol", "bob", "dave"}, root.Meta.Users())

	bob, _ := root.Meta.Lookup("bob")
	assert.Equal(t, 3, bob.Lines)
	assert.ElementsMatch(t, []string{"/repo/lib/a.go", "/repo/lib/deep/x.go"}, bob.Files.Slice())
	assert.ElementsMatch(t, []string{"r3", "r5"}, bob.Revisions.Slice())

	_ = root.Visit(func(n *tally.Node) error {
		checkEntryConsistent(t, n.Stats)
		if n.Meta != nil {
			checkEntryConsistent(t, n.Meta)
			assert.GreaterOrEqual(t, n.Meta.Lines, n.Stats.Lines)
			assert.GreaterOrEqual(t, n.Meta.Files, n.Stats.Files)
			assert.GreaterOrEqual(t, n.Meta.Revisions.Size(), n.Stats.Revisions.Size())
		}
		return nil
	})
}

func TestAnnotate_MetaDoesNotAliasChildren(t *testing.T) {
	root := tally.Annotate(buildTree())
	lib := root.Subdir("/repo/lib")
	deep := lib.Subdir("/repo/lib/deep")

	libBob, _ := lib.Meta.Lookup("bob")
	deepBob, _ := deep.Stats.Lookup("bob")
	require.NotSame(t, libBob, deepBob)

	rootDave, _ := root.Meta.Lookup("dave")
	rootDave.Lines += 100
	rootDave.Files.Insert("/elsewhere")

	deepDave, _ := deep.Stats.Lookup("dave")
	assert.Equal(t, 1, deepDave.Lines)
	assert.False(t, deepDave.Files.Contains("/elsewhere"))

	root.Meta.Revisions.Insert("r99")
	assert.False(t, root.Stats.Revisions.Contains("r99"))
	assert.False(t, lib.Meta.Revisions.Contains("r99"))
}

func TestAnnotate_Idempotent(t *testing.T) {
	root := tally.Annotate(buildTree())
	first := snapshot(root)

	tally.Annotate(root)
	assert.Equal(t, first, snapshot(root))
}

// snapshot flattens every entry of the tree into comparable strings.
func snapshot(root *tally.Node) []string {
	var out []string
	_ = root.Visit(func(n *tally.Node) error {
		out = append(out, n.Path+" stats "+describe(n.Stats))
		if n.Meta != nil {
			out = append(out, n.Path+" meta "+describe(n.Meta))
		}
		return nil
	})
	return out
}

func describe(e *tally.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d/%d/%v", e.Lines, e.Files, sorted(e.Revisions))
	for _, name := range e.Users() {
		u, _ := e.Lookup(name)
		fmt.Fprintf(&b, " %s:%d:%v:%v", name, u.Lines, sorted(u.Files), sorted(u.Revisions))
	}
	return b.String()
}

func sorted(s *set.Set[string]) []string {
	out := s.Slice()
	slices.Sort(out)
	return out
}

func TestIsExclusion(t *testing.T) {
	assert.True(t, tally.IsExclusion("Excluded: /repo/logo.png"))
	assert.True(t, tally.IsExclusion("Skipped: /repo/link symbolic link"))
	assert.False(t, tally.IsExclusion("CommandError: /repo/a.go exit status 1"))
}

func TestNode_Lookup(t *testing.T) {
	root := buildTree()

	assert.NotNil(t, root.File("/repo/README"))
	assert.Nil(t, root.File("/repo/missing"))
	assert.Nil(t, root.Subdir("/repo/missing"))
	assert.Nil(t, root.Effective())

	var paths []string
	_ = root.Visit(func(n *tally.Node) error {
		paths = append(paths, n.Path)
		return nil
	})
	assert.Equal(t, []string{"/repo", "/repo/lib", "/repo/lib/deep", "/repo/empty"}, paths)
}
