package resolver

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Walker lists the PHP files under a set of roots, skipping excluded directories.
type Walker struct {
	dirGlobs []glob.Glob
}

// NewWalker compiles the directory exclusion patterns. Patterns are matched
// against a directory's base name.
func NewWalker(excludeDirs []string) (*Walker, error) {
	dirGlobs := make([]glob.Glob, 0, len(excludeDirs))
	for _, p := range excludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		dirGlobs = append(dirGlobs, g)
	}
	return &Walker{dirGlobs: dirGlobs}, nil
}

// Files returns every .php file under roots in lexical order. A root that is
// itself a file is returned as is.
func (w *Walker) Files(ctx context.Context, roots []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if path != root && w.excludedDir(filepath.Base(path)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !isPHPFile(path) || seen[path] {
				return nil
			}
			seen[path] = true
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (w *Walker) excludedDir(base string) bool {
	for _, g := range w.dirGlobs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func isPHPFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".php")
}

// NamespaceFilter matches FQCNs against namespace exclusion globs. The
// namespace separator acts as the glob separator, so `Vendor\*` matches direct
// members only and `Vendor\**` matches the whole subtree. Backslashes are
// rewritten to slashes before matching since glob treats them as escapes.
type NamespaceFilter struct {
	globs []glob.Glob
}

func NewNamespaceFilter(patterns []string) (*NamespaceFilter, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(nsPath(p), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid namespace exclude pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return &NamespaceFilter{globs: globs}, nil
}

// Excluded reports whether fqcn matches any pattern. A nil filter excludes nothing.
func (f *NamespaceFilter) Excluded(fqcn string) bool {
	if f == nil {
		return false
	}
	name := nsPath(fqcn)
	for _, g := range f.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func nsPath(s string) string {
	return strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(s), `\`), `\`, "/")
}
