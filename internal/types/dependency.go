package types

import (
	"fmt"
	"sort"
	"strings"
)

// RelationKind connects a dependent declaration to a target.
type RelationKind string

const (
	RelationExtends    RelationKind = "extends"
	RelationImplements RelationKind = "implements"
	RelationTraitUse   RelationKind = "trait"
	RelationReference  RelationKind = "reference"
)

// AllRelations lists every relation kind in reporting order.
var AllRelations = []RelationKind{RelationExtends, RelationImplements, RelationTraitUse, RelationReference}

// ParseRelationKind accepts the CLI spellings of a relation kind.
func ParseRelationKind(s string) (RelationKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "extends", "extend":
		return RelationExtends, nil
	case "implements", "implement":
		return RelationImplements, nil
	case "trait", "trait-use", "uses":
		return RelationTraitUse, nil
	case "reference", "ref", "general":
		return RelationReference, nil
	}
	return "", fmt.Errorf("unknown relation kind %q", s)
}

// DependencyResult maps target FQCN to its sorted, deduplicated dependents for each relation kind.
type DependencyResult struct {
	Extends    map[string][]string `json:"extends"`
	Implements map[string][]string `json:"implements"`
	TraitUse   map[string][]string `json:"trait_use"`
	References map[string][]string `json:"references"`
}

func NewDependencyResult() *DependencyResult {
	return &DependencyResult{
		Extends:    map[string][]string{},
		Implements: map[string][]string{},
		TraitUse:   map[string][]string{},
		References: map[string][]string{},
	}
}

// For returns the map holding the given relation kind.
func (r *DependencyResult) For(kind RelationKind) map[string][]string {
	switch kind {
	case RelationExtends:
		return r.Extends
	case RelationImplements:
		return r.Implements
	case RelationTraitUse:
		return r.TraitUse
	default:
		return r.References
	}
}

// Add records dependent as related to target; callers must call Normalize before reading.
func (r *DependencyResult) Add(kind RelationKind, target, dependent string) {
	m := r.For(kind)
	m[target] = append(m[target], dependent)
}

// Dependents returns the dependents of target under kind.
func (r *DependencyResult) Dependents(kind RelationKind, target string) []string {
	return r.For(kind)[target]
}

// Merge unions other into r key by key.
func (r *DependencyResult) Merge(other *DependencyResult) {
	if other == nil {
		return
	}
	for _, kind := range AllRelations {
		dst := r.For(kind)
		for target, deps := range other.For(kind) {
			dst[target] = append(dst[target], deps...)
		}
	}
	r.Normalize()
}

// Normalize sorts and deduplicates every dependent list.
func (r *DependencyResult) Normalize() {
	for _, kind := range AllRelations {
		m := r.For(kind)
		for target, deps := range m {
			m[target] = dedupeSorted(deps)
		}
	}
}

// IsEmpty reports whether no relation was recorded.
func (r *DependencyResult) IsEmpty() bool {
	for _, kind := range AllRelations {
		if len(r.For(kind)) > 0 {
			return false
		}
	}
	return true
}

func dedupeSorted(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}

// FqcnPathMap records which file declares each FQCN.
type FqcnPathMap map[string]string

// Set records fqcn as declared in path. The first declaration seen wins.
func (m FqcnPathMap) Set(fqcn, path string) {
	key := NormalizeFQCN(fqcn)
	if _, ok := m[key]; ok {
		return
	}
	m[key] = path
}

// Lookup returns the declaring file of fqcn.
func (m FqcnPathMap) Lookup(fqcn string) (string, bool) {
	p, ok := m[NormalizeFQCN(fqcn)]
	return p, ok
}

// Merge copies entries missing from m.
func (m FqcnPathMap) Merge(other FqcnPathMap) {
	for k, v := range other {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
}

// Names returns the recorded FQCNs in lexical order.
func (m FqcnPathMap) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// NormalizeFQCN strips the leading namespace separator.
func NormalizeFQCN(fqcn string) string {
	return strings.TrimPrefix(strings.TrimSpace(fqcn), `\`)
}

// ShortName returns the last segment of a fully qualified name.
func ShortName(fqcn string) string {
	fqcn = NormalizeFQCN(fqcn)
	if i := strings.LastIndex(fqcn, `\`); i >= 0 {
		return fqcn[i+1:]
	}
	return fqcn
}

// NamespaceOf returns everything before the last separator.
func NamespaceOf(fqcn string) string {
	fqcn = NormalizeFQCN(fqcn)
	if i := strings.LastIndex(fqcn, `\`); i >= 0 {
		return fqcn[:i]
	}
	return ""
}
