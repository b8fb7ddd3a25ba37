// Package bcfilter narrows a classifier detail list to the changes that can
// break a consumer.
package bcfilter

import (
	"sort"
	"strings"

	"github.com/agusespa/upgradescope/internal/classify"
	"github.com/agusespa/upgradescope/internal/types"
)

// safeKinds are strictly additive or loosening changes. Everything else,
// including kinds the classifier may add later, is treated as breaking.
var safeKinds = map[classify.DetailKind]bool{
	classify.ClassAdded:                 true,
	classify.MethodAdded:                true,
	classify.PropertyAdded:              true,
	classify.ConstantAdded:              true,
	classify.MethodReturnTypeAdded:      true,
	classify.MethodOptionalParamAdded:   true,
	classify.MethodVisibilityLoosened:   true,
	classify.PropertyVisibilityLoosened: true,
	classify.ConstantVisibilityLoosened: true,
	classify.MethodBodyChanged:          true,
}

// IsSafe reports whether a detail kind is on the known-safe list.
func IsSafe(kind classify.DetailKind) bool {
	return safeKinds[kind]
}

// BreakingDetails drops the known-safe details and keeps the rest in order.
func BreakingDetails(details []classify.Detail) []classify.Detail {
	var out []classify.Detail
	for _, d := range details {
		if safeKinds[d.Kind] {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Removals returns the member-removal details.
func Removals(details []classify.Detail) []classify.Detail {
	var out []classify.Detail
	for _, d := range details {
		if d.Kind.IsRemoval() {
			out = append(out, d)
		}
	}
	return out
}

// MethodSet holds method names keyed case-insensitively, remembering the
// spelling first seen.
type MethodSet map[string]string

func (s MethodSet) Add(name string) {
	key := strings.ToLower(name)
	if _, ok := s[key]; !ok {
		s[key] = name
	}
}

func (s MethodSet) Has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

// Canonical returns the stored spelling of name.
func (s MethodSet) Canonical(name string) (string, bool) {
	v, ok := s[strings.ToLower(name)]
	return v, ok
}

// Names returns the stored spellings in lexical order.
func (s MethodSet) Names() []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ChangedMethods returns the names of methods whose signature changed among
// the given details. Every constructor-related detail collapses into a single
// __construct entry and sets constructorChanged. Body-only changes, additions
// and removals do not count.
func ChangedMethods(details []classify.Detail) (methods MethodSet, constructorChanged bool) {
	methods = MethodSet{}
	for _, d := range details {
		if d.Kind == classify.ConstructorChanged {
			constructorChanged = true
			methods.Add(types.ConstructorName)
			continue
		}
		if d.Kind.Family() != classify.FamilyMethod || d.Member == "" {
			continue
		}
		switch d.Kind {
		case classify.MethodAdded, classify.MethodRemoved, classify.MethodBodyChanged:
			continue
		}
		if strings.EqualFold(d.Member, types.ConstructorName) {
			constructorChanged = true
			methods.Add(types.ConstructorName)
			continue
		}
		methods.Add(d.Member)
	}
	return methods, constructorChanged
}

// Summary is the filtered view of one class's details.
type Summary struct {
	Breaking           []classify.Detail
	Removals           []classify.Detail
	ChangedMethods     MethodSet
	ConstructorChanged bool
}

// Summarize applies every filter in this package to details.
func Summarize(details []classify.Detail) Summary {
	breaking := BreakingDetails(details)
	methods, ctor := ChangedMethods(breaking)
	return Summary{
		Breaking:           breaking,
		Removals:           Removals(breaking),
		ChangedMethods:     methods,
		ConstructorChanged: ctor,
	}
}

// HasBreaking reports whether anything survived filtering.
func (s Summary) HasBreaking() bool {
	return len(s.Breaking) > 0
}
