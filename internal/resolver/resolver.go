// Package resolver finds the consumer declarations structurally related to a
// set of target classes. Any number of queries are answered by one walk over
// the source trees with one parse per file.
package resolver

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/agusespa/upgradescope/internal/parser"
	"github.com/agusespa/upgradescope/internal/types"
)

// Query asks for the dependents of Targets under the relation kinds in Kinds.
// An empty Kinds means every relation kind.
type Query struct {
	Targets []string
	Kinds   []types.RelationKind
}

func (q Query) wants(kind types.RelationKind) bool {
	if len(q.Kinds) == 0 {
		return true
	}
	for _, k := range q.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Options configures a Resolver.
type Options struct {
	ExcludeDirs       []string
	ExcludeNamespaces []string
	Logger            *slog.Logger
}

type Resolver struct {
	parser     *parser.PHPParser
	walker     *Walker
	namespaces *NamespaceFilter
	logger     *slog.Logger
}

func New(pp *parser.PHPParser, opts Options) (*Resolver, error) {
	walker, err := NewWalker(opts.ExcludeDirs)
	if err != nil {
		return nil, err
	}
	namespaces, err := NewNamespaceFilter(opts.ExcludeNamespaces)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		parser:     pp,
		walker:     walker,
		namespaces: namespaces,
		logger:     logger,
	}, nil
}

// Walker exposes the file walker so callers can list the same files the
// resolver sees.
func (r *Resolver) Walker() *Walker {
	return r.walker
}

// Namespaces exposes the namespace exclusion filter.
func (r *Resolver) Namespaces() *NamespaceFilter {
	return r.namespaces
}

// FindDependents answers a single query.
func (r *Resolver) FindDependents(ctx context.Context, roots []string, q Query) (*types.DependencyResult, types.FqcnPathMap, error) {
	results, paths, err := r.FindDependentsMulti(ctx, roots, []Query{q})
	if err != nil {
		return nil, nil, err
	}
	return results[0], paths, nil
}

// FindDependentsMulti answers every query in one pass. Each declaration found
// is tested against the union of all target sets and matches are fanned out
// to the queries whose own targets and relation kinds accept them. The
// returned path map covers every declaration seen, related or not. Files that
// fail to read or parse are skipped.
func (r *Resolver) FindDependentsMulti(ctx context.Context, roots []string, queries []Query) ([]*types.DependencyResult, types.FqcnPathMap, error) {
	results := make([]*types.DependencyResult, len(queries))
	for i := range results {
		results[i] = types.NewDependencyResult()
	}

	// union maps a case-folded target to the queries that asked for it. PHP
	// class names are case-insensitive.
	union := map[string]*target{}
	wantRefs := false
	for qi, q := range queries {
		for _, t := range q.Targets {
			t = types.NormalizeFQCN(t)
			key := strings.ToLower(t)
			if union[key] == nil {
				union[key] = &target{name: t}
			}
			union[key].queries = append(union[key].queries, qi)
		}
		if len(q.Targets) > 0 && q.wants(types.RelationReference) {
			wantRefs = true
		}
	}

	files, err := r.walker.Files(ctx, roots)
	if err != nil {
		return nil, nil, err
	}

	paths := types.FqcnPathMap{}
	skipped := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if !r.scanFile(path, union, queries, wantRefs, results, paths) {
			skipped++
		}
	}

	for _, res := range results {
		res.Normalize()
	}
	r.logger.Debug("dependency scan complete",
		"files", len(files),
		"skipped", skipped,
		"declarations", len(paths),
		"queries", len(queries),
		"targets", len(union))
	return results, paths, nil
}

// target is one queried class under the spelling the caller used.
type target struct {
	name    string
	queries []int
}

// scanFile reports false when the file was skipped.
func (r *Resolver) scanFile(path string, union map[string]*target, queries []Query, wantRefs bool, results []*types.DependencyResult, paths types.FqcnPathMap) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		r.logger.Debug("skipping unreadable file", "path", path, "error", err)
		return false
	}
	f, err := r.parser.Parse(path, content)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		r.logger.Debug("skipping unparsable file", "path", path, "error", err)
		return false
	}

	for _, d := range f.Declarations {
		fqcn := d.FQCN(f.Source)
		if fqcn == "" {
			continue
		}
		paths.Set(fqcn, path)
		if len(union) == 0 || r.namespaces.Excluded(fqcn) {
			continue
		}

		for kind, names := range relationsOf(d, f.Source, wantRefs) {
			for _, name := range names {
				if strings.EqualFold(name, fqcn) {
					continue
				}
				t, ok := union[strings.ToLower(name)]
				if !ok {
					continue
				}
				for _, qi := range t.queries {
					if queries[qi].wants(kind) {
						results[qi].Add(kind, t.name, fqcn)
					}
				}
			}
		}
	}
	return true
}
