package bcfilter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agusespa/upgradescope/internal/classify"
	"github.com/agusespa/upgradescope/internal/types"
)

// ErrClassNotFound is returned by a Locator that has no declaration for a name.
var ErrClassNotFound = errors.New("class not found")

// Locator loads the structural record of a declaration by FQCN.
type Locator interface {
	Locate(fqcn string) (*types.ClassLikeInfo, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(fqcn string) (*types.ClassLikeInfo, error)

func (f LocatorFunc) Locate(fqcn string) (*types.ClassLikeInfo, error) {
	return f(fqcn)
}

// FilterInheritedRemovals drops member-removal details for members that are
// still reachable through the immediate parent of child, i.e. declared there
// with non-private visibility. When the parent cannot be loaded the details
// are returned unchanged and a warning is recorded.
func FilterInheritedRemovals(child *types.ClassLikeInfo, details []classify.Detail, loc Locator, warnings *types.Warnings) []classify.Detail {
	if child == nil || child.Parent() == "" || len(Removals(details)) == 0 {
		return details
	}

	parent, err := locateParent(child, loc)
	if err != nil {
		warnings.Addf("removal filter: parent %s of %s: %v", child.Parent(), child.FQCN, err)
		return details
	}

	out := make([]classify.Detail, 0, len(details))
	for _, d := range details {
		if d.Kind.IsRemoval() && inheritedFrom(parent, d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// locateParent tries the parent name as recorded and, for an unqualified
// name, qualified against the child's namespace.
func locateParent(child *types.ClassLikeInfo, loc Locator) (*types.ClassLikeInfo, error) {
	if loc == nil {
		return nil, ErrClassNotFound
	}
	name := types.NormalizeFQCN(child.Parent())
	candidates := []string{name}
	if ns := types.NamespaceOf(child.FQCN); ns != "" && !strings.Contains(name, `\`) {
		candidates = append(candidates, ns+`\`+name)
	}

	var lastErr error
	for _, c := range candidates {
		info, err := loc.Locate(c)
		if err == nil && info != nil {
			return info, nil
		}
		if err == nil {
			err = ErrClassNotFound
		}
		lastErr = err
	}
	return nil, fmt.Errorf("tried %s: %w", strings.Join(candidates, ", "), lastErr)
}

func inheritedFrom(parent *types.ClassLikeInfo, d classify.Detail) bool {
	switch d.Kind {
	case classify.MethodRemoved:
		m, ok := parent.Method(d.Member)
		return ok && m.Visibility != types.Private
	case classify.PropertyRemoved:
		p, ok := parent.Property(d.Member)
		return ok && p.Visibility != types.Private
	case classify.ConstantRemoved:
		c, ok := parent.Constant(d.Member)
		return ok && c.Visibility != types.Private
	}
	return false
}
