package bcfilter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agusespa/upgradescope/internal/classify"
	"github.com/agusespa/upgradescope/internal/types"
)

func mapLocator(classes ...*types.ClassLikeInfo) Locator {
	byName := map[string]*types.ClassLikeInfo{}
	for _, c := range classes {
		byName[c.FQCN] = c
	}
	return LocatorFunc(func(fqcn string) (*types.ClassLikeInfo, error) {
		if c, ok := byName[fqcn]; ok {
			return c, nil
		}
		return nil, ErrClassNotFound
	})
}

func TestFilterInheritedRemovals(t *testing.T) {
	parent := &types.ClassLikeInfo{
		FQCN: `V\Base`,
		Methods: []types.MethodInfo{
			{Name: "moved", Visibility: types.Protected},
			{Name: "hidden", Visibility: types.Private},
		},
		Properties: []types.PropertyInfo{{Name: "p", Visibility: types.Public}},
		Constants:  []types.ConstantInfo{{Name: "K", Visibility: types.Private}},
	}
	child := &types.ClassLikeInfo{FQCN: `V\Child`, Parents: []string{`V\Base`}}

	details := classify.ParseDetails([]string{
		`Method removed: V\Child::moved`,
		`Method removed: V\Child::hidden`,
		`Method removed: V\Child::gone`,
		`Property removed: V\Child::$p`,
		`Constant removed: V\Child::K`,
		`Method param added: V\Child::other ($x)`,
	})

	var warnings types.Warnings
	out := FilterInheritedRemovals(child, details, mapLocator(parent), &warnings)

	assert.Equal(t, []string{
		`Method removed: V\Child::hidden`,
		`Method removed: V\Child::gone`,
		`Constant removed: V\Child::K`,
		`Method param added: V\Child::other ($x)`,
	}, classify.Strings(out))
	assert.Zero(t, warnings.Len())
}

func TestFilterInheritedRemovals_QualifiesRelativeParent(t *testing.T) {
	parent := &types.ClassLikeInfo{
		FQCN:    `V\Base`,
		Methods: []types.MethodInfo{{Name: "moved", Visibility: types.Public}},
	}
	child := &types.ClassLikeInfo{FQCN: `V\Child`, Parents: []string{"Base"}}
	details := classify.ParseDetails([]string{`Method removed: V\Child::moved`})

	var warnings types.Warnings
	out := FilterInheritedRemovals(child, details, mapLocator(parent), &warnings)
	assert.Empty(t, out)
	assert.Zero(t, warnings.Len())
}

func TestFilterInheritedRemovals_ParentMissing(t *testing.T) {
	child := &types.ClassLikeInfo{FQCN: `V\Child`, Parents: []string{`Other\Base`}}
	details := classify.ParseDetails([]string{`Method removed: V\Child::moved`})

	var warnings types.Warnings
	out := FilterInheritedRemovals(child, details, mapLocator(), &warnings)
	assert.Equal(t, details, out)
	assert.Equal(t, 1, warnings.Len())
	assert.Contains(t, warnings.All()[0], `Other\Base`)
}

func TestFilterInheritedRemovals_ParentUnparsable(t *testing.T) {
	child := &types.ClassLikeInfo{FQCN: `V\Child`, Parents: []string{`V\Base`}}
	details := classify.ParseDetails([]string{`Property removed: V\Child::$p`})
	broken := LocatorFunc(func(string) (*types.ClassLikeInfo, error) {
		return nil, errors.New("syntax error")
	})

	var warnings types.Warnings
	out := FilterInheritedRemovals(child, details, broken, &warnings)
	assert.Equal(t, details, out)
	assert.Equal(t, 1, warnings.Len())
}

func TestFilterInheritedRemovals_NoParentOrNoRemovals(t *testing.T) {
	details := classify.ParseDetails([]string{`Method removed: A::f`})
	var warnings types.Warnings

	orphan := &types.ClassLikeInfo{FQCN: "A"}
	assert.Equal(t, details, FilterInheritedRemovals(orphan, details, nil, &warnings))

	child := &types.ClassLikeInfo{FQCN: "A", Parents: []string{"B"}}
	other := classify.ParseDetails([]string{`Method param added: A::f ($x)`})
	assert.Equal(t, other, FilterInheritedRemovals(child, other, nil, &warnings))
	assert.Zero(t, warnings.Len())
}
