// SPDX-License-Identifier: AGPL-3.0-or-later

package scanner

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FilterOptions decides which directory entries are walked and annotated.
type FilterOptions struct {
	// ExcludeNames are basenames skipped silently, files and directories alike.
	ExcludeNames []string

	// ExcludeExtensions are file extensions (".png") recorded as excluded
	// instead of annotated. Matching is case-insensitive.
	ExcludeExtensions []string

	// ExcludeGlobs are doublestar patterns matched against the slash
	// separated path relative to the walk root. Matches are skipped silently.
	ExcludeGlobs []string

	// SkipBinary sniffs file content and records binary files as excluded.
	SkipBinary bool
}

// DefaultExcludeNames returns the names skipped by default: the directory
// self/parent links and version-control metadata.
func DefaultExcludeNames() []string {
	return []string{
		".",
		"..",
		".svn",
		".git",
		".hg",
		".bzr",
		"CVS",
		".DS_Store",
	}
}

// DefaultExcludeExtensions returns common binary formats (images, archives,
// documents and office files).
func DefaultExcludeExtensions() []string {
	return []string{
		".ai", ".doc", ".docx", ".gif", ".gz", ".ico", ".jpg", ".jpeg",
		".ods", ".odt", ".pdf", ".png", ".ppt", ".pptx", ".swc", ".tar",
		".tgz", ".tif", ".tiff", ".xls", ".xlsx", ".zip",
	}
}

// DefaultFilterOptions returns the default exclusions.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		ExcludeNames:      DefaultExcludeNames(),
		ExcludeExtensions: DefaultExcludeExtensions(),
	}
}

// Validate checks the glob patterns.
func (o FilterOptions) Validate() error {
	for _, g := range o.ExcludeGlobs {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("invalid exclude glob %q", g)
		}
	}
	return nil
}

// compiled is FilterOptions prepared for lookups during a walk.
type compiled struct {
	names map[string]bool
	exts  map[string]bool
	globs []string
	bin   bool
}

func (o FilterOptions) compile() compiled {
	c := compiled{
		names: make(map[string]bool, len(o.ExcludeNames)),
		exts:  make(map[string]bool, len(o.ExcludeExtensions)),
		globs: o.ExcludeGlobs,
		bin:   o.SkipBinary,
	}
	for _, n := range o.ExcludeNames {
		c.names[n] = true
	}
	for _, e := range o.ExcludeExtensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		c.exts[e] = true
	}
	return c
}

func (c compiled) excludedName(name string) bool {
	return c.names[name]
}

func (c compiled) excludedExtension(name string) bool {
	return c.exts[strings.ToLower(path.Ext(name))]
}

// excludedGlob matches rel, a slash separated path relative to the root.
func (c compiled) excludedGlob(rel string) bool {
	for _, g := range c.globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}
