// Package pipeline runs one upgrade analysis end to end: index both vendor
// versions, classify what changed, keep what can break consumers, find the
// consumers that depend on it and decide whether each usage still holds.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/agusespa/upgradescope/internal/bcfilter"
	"github.com/agusespa/upgradescope/internal/cache"
	"github.com/agusespa/upgradescope/internal/classify"
	"github.com/agusespa/upgradescope/internal/history"
	"github.com/agusespa/upgradescope/internal/logging"
	"github.com/agusespa/upgradescope/internal/parser"
	"github.com/agusespa/upgradescope/internal/resolution"
	"github.com/agusespa/upgradescope/internal/resolver"
	"github.com/agusespa/upgradescope/internal/types"
	"github.com/agusespa/upgradescope/internal/usage"
)

// ErrNoInput is returned when a required input root is missing.
var ErrNoInput = errors.New("no input")

type Options struct {
	Before            string
	After             string
	Consumers         []string
	ExcludeNamespaces []string
	ExcludeDirs       []string

	// Cache is consulted before and written after a run when set.
	Cache *cache.Store
	// History enables the patch phase when set.
	History *history.Retriever

	Logger *slog.Logger
	// Progress, when set, is called with a short label as each phase starts.
	Progress func(phase string)
}

func (o Options) validate() error {
	if o.Before == "" {
		return fmt.Errorf("%w: before tree not set", ErrNoInput)
	}
	if o.After == "" {
		return fmt.Errorf("%w: after tree not set", ErrNoInput)
	}
	if len(o.Consumers) == 0 {
		return fmt.Errorf("%w: no consumer tree", ErrNoInput)
	}
	for _, root := range append([]string{o.Before, o.After}, o.Consumers...) {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNoInput, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrNoInput, root)
		}
	}
	return nil
}

// CacheKey identifies a run by its input roots, exclusion filters and flags.
func (o Options) CacheKey() string {
	inputs := []string{"before=" + absPath(o.Before), "after=" + absPath(o.After)}
	for _, c := range o.Consumers {
		inputs = append(inputs, "consumer="+absPath(c))
	}
	var excludes []string
	for _, p := range o.ExcludeNamespaces {
		excludes = append(excludes, "ns="+p)
	}
	for _, p := range o.ExcludeDirs {
		excludes = append(excludes, "dir="+p)
	}
	flags := []string{"history=" + strconv.FormatBool(o.History != nil)}
	return cache.Key(inputs, excludes, flags)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Run executes every phase in order. A cancelled context aborts the run and
// discards partial results.
func Run(ctx context.Context, opts Options) (*types.Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := logging.OrDiscard(opts.Logger)

	key := opts.CacheKey()
	if opts.Cache != nil {
		cached, err := opts.Cache.Get(key)
		switch {
		case err == nil:
			logger.Info("using cached result", "run_id", cached.RunID, "cache", opts.Cache.Path())
			return cached, nil
		case !errors.Is(err, cache.ErrMiss):
			logger.Warn("cache read failed", "error", err)
		}
	}

	pp, err := parser.NewPHPParser()
	if err != nil {
		return nil, err
	}
	defer pp.Close()

	res, err := resolver.New(pp, resolver.Options{
		ExcludeDirs:       opts.ExcludeDirs,
		ExcludeNamespaces: opts.ExcludeNamespaces,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure resolver: %w", err)
	}

	r := &run{
		opts:     opts,
		logger:   logger,
		resolver: res,
		sources:  NewSources(pp),
		warnings: &types.Warnings{},
		result: &types.Result{
			RunID:       uuid.NewString(),
			GeneratedAt: time.Now().UTC(),
			Before:      opts.Before,
			After:       opts.After,
			Consumers:   append([]string(nil), opts.Consumers...),
		},
	}
	defer r.sources.Close()

	for _, phase := range []struct {
		name string
		fn   func(context.Context) error
	}{
		{"index", r.index},
		{"classify", r.classify},
		{"dependents", r.dependents},
		{"history", r.history},
	} {
		if phase.name == "history" && opts.History == nil {
			continue
		}
		if opts.Progress != nil {
			opts.Progress(phase.name)
		}
		start := time.Now()
		logger.Info("phase started", "phase", phase.name)
		if err := phase.fn(ctx); err != nil {
			return nil, fmt.Errorf("%s phase: %w", phase.name, err)
		}
		logger.Info("phase finished", "phase", phase.name, "elapsed", time.Since(start).Round(time.Millisecond))
	}

	r.assemble()
	result := r.result
	if len(result.Warnings) > 0 {
		logger.Warn("run finished with warnings", "count", len(result.Warnings))
	}

	if opts.Cache != nil {
		if err := opts.Cache.Put(key, result); err != nil {
			logger.Warn("cache write failed", "error", err)
		}
	}
	return result, nil
}

// changed is the working state of one changed vendor class.
type changed struct {
	fqcn       string
	beforePath string
	afterPath  string
	after      *types.ClassLikeInfo
	summary    bcfilter.Summary
	change     *types.ClassChange
}

type run struct {
	opts     Options
	logger   *slog.Logger
	resolver *resolver.Resolver
	sources  *Sources
	warnings *types.Warnings
	result   *types.Result

	before  types.FqcnPathMap
	after   types.FqcnPathMap
	changed []*changed
	deleted []*types.DeletedClass
}

// index maps every FQCN of both vendor versions to its declaring file.
func (r *run) index(ctx context.Context) error {
	var err error
	if r.before, err = r.indexTree(ctx, r.opts.Before); err != nil {
		return err
	}
	if r.after, err = r.indexTree(ctx, r.opts.After); err != nil {
		return err
	}
	r.logger.Info("vendor trees indexed", "before", len(r.before), "after", len(r.after))
	return nil
}

func (r *run) indexTree(ctx context.Context, root string) (types.FqcnPathMap, error) {
	files, err := r.resolver.Walker().Files(ctx, []string{root})
	if err != nil {
		return nil, err
	}
	names := types.FqcnPathMap{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Partially parsed files still contribute the declarations that were
		// recovered; the diagnostic records the failure.
		fqcns, err := r.sources.Names(path)
		if err != nil {
			r.diagnose(path, err)
		}
		for _, fqcn := range fqcns {
			if r.resolver.Namespaces().Excluded(fqcn) {
				continue
			}
			names.Set(fqcn, path)
		}
	}
	return names, nil
}

func (r *run) diagnose(path string, err error) {
	r.logger.Debug("file diagnostic", "path", path, "error", err)
	r.result.Diagnostics = append(r.result.Diagnostics, types.Diagnostic{Path: path, Message: err.Error()})
}

// classify compares every class present in the before tree with its after
// counterpart. Classes only present after are additions and cannot break a
// consumer, so they are not visited.
func (r *run) classify(ctx context.Context) error {
	locator := bcfilter.LocatorFunc(r.locateAfter)

	for _, fqcn := range r.before.Names() {
		if err := ctx.Err(); err != nil {
			return err
		}
		beforePath, _ := r.before.Lookup(fqcn)
		afterPath, ok := r.after.Lookup(fqcn)
		if !ok {
			r.deleted = append(r.deleted, &types.DeletedClass{FQCN: fqcn, Path: beforePath})
			continue
		}

		if sameContent(beforePath, afterPath) {
			continue
		}

		c := &changed{fqcn: fqcn, beforePath: beforePath, afterPath: afterPath}
		before, berr := r.sources.Class(beforePath, fqcn)
		after, aerr := r.sources.Class(afterPath, fqcn)
		if berr != nil || aerr != nil {
			// Unparsable on either side: most severe verdict, nothing to filter.
			c.change = &types.ClassChange{FQCN: fqcn, Path: afterPath, Verdict: types.VerdictLogic}
			r.changed = append(r.changed, c)
			continue
		}
		c.after = after

		cls := classify.Classify(before, after)
		if len(cls.Details) == 0 {
			continue
		}
		breaking := bcfilter.BreakingDetails(cls.Details)
		breaking = bcfilter.FilterInheritedRemovals(after, breaking, locator, r.warnings)
		c.summary = bcfilter.Summarize(breaking)
		c.change = &types.ClassChange{
			FQCN:      fqcn,
			Path:      afterPath,
			Verdict:   cls.Verdict,
			Details:   cls.Lines(),
			BCDetails: classify.Strings(c.summary.Breaking),
		}
		r.changed = append(r.changed, c)
	}

	breaking := 0
	for _, c := range r.changed {
		if c.summary.HasBreaking() {
			breaking++
		}
	}
	r.logger.Info("classification complete",
		"changed", len(r.changed),
		"breaking", breaking,
		"deleted", len(r.deleted))
	return nil
}

// sameContent reports whether both files read and hold identical bytes.
func sameContent(a, b string) bool {
	ac, err := os.ReadFile(a)
	if err != nil {
		return false
	}
	bc, err := os.ReadFile(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ac, bc)
}

func (r *run) locateAfter(fqcn string) (*types.ClassLikeInfo, error) {
	path, ok := r.after.Lookup(fqcn)
	if !ok {
		return nil, bcfilter.ErrClassNotFound
	}
	return r.sources.Class(path, fqcn)
}

// dependents runs one resolver pass over all consumer trees answering one
// query per breaking class plus one for the deleted classes, then checks
// every related declaration.
func (r *run) dependents(ctx context.Context) error {
	var queries []resolver.Query
	var targets []*changed
	for _, c := range r.changed {
		if c.summary.HasBreaking() {
			queries = append(queries, resolver.Query{Targets: []string{c.fqcn}})
			targets = append(targets, c)
		}
	}
	deletedQuery := -1
	if len(r.deleted) > 0 {
		q := resolver.Query{}
		for _, d := range r.deleted {
			q.Targets = append(q.Targets, d.FQCN)
		}
		deletedQuery = len(queries)
		queries = append(queries, q)
	}

	if len(queries) > 0 {
		results, paths, err := r.resolver.FindDependentsMulti(ctx, r.opts.Consumers, queries)
		if err != nil {
			return err
		}
		for i, c := range targets {
			r.checkChanged(c, results[i], paths)
		}
		if deletedQuery >= 0 {
			r.checkDeleted(results[deletedQuery], paths)
		}
	}
	return nil
}

// relatedDependents lists each dependent of target once, sorted, along with
// every relation kind that linked it in reporting order.
func relatedDependents(deps *types.DependencyResult, target string) ([]string, map[string][]types.RelationKind) {
	kinds := map[string][]types.RelationKind{}
	var order []string
	for _, kind := range types.AllRelations {
		for _, dep := range deps.Dependents(kind, target) {
			if _, seen := kinds[dep]; !seen {
				order = append(order, dep)
			}
			kinds[dep] = append(kinds[dep], kind)
		}
	}
	sort.Strings(order)
	return order, kinds
}

func (r *run) checkChanged(c *changed, deps *types.DependencyResult, paths types.FqcnPathMap) {
	target := usage.Target{
		FQCN:               c.fqcn,
		Changed:            c.summary.ChangedMethods,
		ConstructorChanged: c.summary.ConstructorChanged,
	}
	madeFinal := false
	for _, d := range c.summary.Breaking {
		if d.Kind == classify.ClassMadeFinal {
			madeFinal = true
		}
	}

	order, kinds := relatedDependents(deps, c.fqcn)
	var items []types.Item
	for _, name := range order {
		dep, ok := r.dependent(name, paths)
		if !ok {
			continue
		}
		for _, kind := range kinds[name] {
			u := usage.Analyze(target, dep.Decl, dep.File.Source, kind)
			items = append(items, resolution.CheckUsage(resolution.Pair{
				Vendor:          c.after,
				Dependent:       &dep.Info,
				DependentSource: dep.Text,
				Relation:        kind,
				Usage:           u,
			})...)
			if kind == types.RelationExtends && madeFinal {
				if it, ok := resolution.CheckClassFinal(c.after, name); ok {
					items = append(items, it)
				}
			}
		}
		items = append(items, resolution.CheckRemovedMembers(c.summary.Removals, name, kinds[name][0], dep.Text)...)
	}
	c.change.Items = dedupeItems(items)
}

func (r *run) checkDeleted(deps *types.DependencyResult, paths types.FqcnPathMap) {
	for _, d := range r.deleted {
		order, kinds := relatedDependents(deps, d.FQCN)
		for _, name := range order {
			path, ok := paths.Lookup(name)
			if !ok {
				r.warnings.Addf("deleted class %s: no file recorded for dependent %s", d.FQCN, name)
				continue
			}
			f, err := r.sources.File(path)
			if f == nil {
				r.warnings.Addf("deleted class %s: dependent %s: %v", d.FQCN, name, err)
				continue
			}
			d.Items = append(d.Items, resolution.CheckDeletedClass(d.FQCN, name, kinds[name][0], f.Source))
		}
	}
}

func (r *run) dependent(name string, paths types.FqcnPathMap) (*Dependent, bool) {
	path, ok := paths.Lookup(name)
	if !ok {
		r.warnings.Addf("dependent %s: no file recorded", name)
		return nil, false
	}
	dep, err := r.sources.Dependent(path, name)
	if err != nil {
		r.warnings.Addf("dependent %s: %v", name, err)
		return nil, false
	}
	return dep, true
}

// history attaches the vendor patch of every changed class. A missing git
// binary is reported once and ends the phase.
func (r *run) history(ctx context.Context) error {
	patches := map[string]*types.Patch{}
	for _, c := range r.changed {
		if err := ctx.Err(); err != nil {
			return err
		}
		pairKey := c.beforePath + "\x00" + c.afterPath
		patch, ok := patches[pairKey]
		if !ok {
			var err error
			patch, err = r.opts.History.Patch(ctx, c.beforePath, c.afterPath)
			if errors.Is(err, history.ErrGitUnavailable) {
				r.warnings.Addf("history skipped: %v", err)
				return nil
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.warnings.Addf("history for %s: %v", c.fqcn, err)
			}
			patches[pairKey] = patch
		}
		c.change.Patch = patch
	}
	return nil
}

// assemble copies the working state into the result in FQCN order.
func (r *run) assemble() {
	for _, c := range r.changed {
		r.result.ChangedClasses = append(r.result.ChangedClasses, *c.change)
	}
	for _, d := range r.deleted {
		r.result.DeletedClasses = append(r.result.DeletedClasses, *d)
	}
	r.result.Tally()
	r.result.Warnings = r.warnings.All()
}

// dedupeItems drops repeats that arise when one dependent is related to a
// class through several relation kinds.
func dedupeItems(items []types.Item) []types.Item {
	seen := map[string]bool{}
	out := items[:0]
	for _, it := range items {
		key := string(it.Type) + "\x00" + it.Dependent + "\x00" + it.Member + "\x00" + it.Note
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}
