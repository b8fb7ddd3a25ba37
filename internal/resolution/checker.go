// Package resolution decides, for every detected usage of a changed vendor
// member, whether the consumer already satisfies the new contract. Checks are
// structural and textual: a resolved item is provably unaffected, an
// unresolved one needs attention.
package resolution

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agusespa/upgradescope/internal/classify"
	"github.com/agusespa/upgradescope/internal/phpast"
	"github.com/agusespa/upgradescope/internal/types"
)

const (
	noteVendorMissing = "vendor method not found"
	noteManualCount   = "argument unpacking; check arg count manually"
)

// Pair is one (changed vendor class, related dependent) combination.
type Pair struct {
	// Vendor is the new snapshot of the changed class.
	Vendor *types.ClassLikeInfo
	// Dependent is the consumer declaration; DependentSource is its text.
	Dependent       *types.ClassLikeInfo
	DependentSource []byte
	Relation        types.RelationKind
	Usage           *types.UsageInfo
}

// CheckUsage produces one item per detected usage in p. Pairs without usage
// produce nothing.
func CheckUsage(p Pair) []types.Item {
	if p.Vendor == nil || p.Dependent == nil || !p.Usage.HasAnyUsage() {
		return nil
	}
	c := &checker{pair: p}

	if p.Usage.OverridesConstructor {
		c.constructorOverride()
	}
	for _, name := range types.SortedKeys(p.Usage.OverriddenMethods) {
		c.override(types.ItemOverride, name)
	}
	for _, name := range types.SortedKeys(p.Usage.ImplementedMethods) {
		c.override(types.ItemInterfaceImpl, name)
	}
	if p.Usage.UsesTrait {
		c.traitUse()
	}
	for _, site := range p.Usage.Calls {
		c.callSite(site)
	}
	return c.items
}

type checker struct {
	pair  Pair
	items []types.Item
}

func (c *checker) add(it types.Item) {
	it.Dependent = c.pair.Dependent.FQCN
	it.Relation = c.pair.Relation
	c.items = append(c.items, it)
}

// override compares a consumer re-declaration with the vendor's new signature.
func (c *checker) override(kind types.ItemType, name string) {
	vendor, ok := c.pair.Vendor.Method(name)
	if !ok {
		c.add(types.Item{Type: kind, Member: name, Note: noteVendorMissing})
		return
	}
	consumer, ok := c.pair.Dependent.Method(name)
	if !ok {
		c.add(types.Item{Type: kind, Member: name, Note: "consumer declaration not found"})
		return
	}
	if vendor.IsFinal && kind == types.ItemOverride {
		c.add(types.Item{
			Type:   types.ItemFinalOverride,
			Member: vendor.Name,
			Note:   "vendor method is now final and cannot be overridden",
		})
		return
	}

	ok, note := SignatureCompatible(vendor, consumer)
	it := types.Item{Type: kind, Member: vendor.Name, Resolved: ok, Note: note}
	if !ok {
		it.ParamDiff = ParamDiff(vendor.Params, consumer.Params)
	}
	c.add(it)
}

// SignatureCompatible reports whether a consumer re-declaration matches the
// vendor signature: equal required parameter counts, and at every position
// present on both sides either no types or equal normalized types.
func SignatureCompatible(vendor, consumer types.MethodInfo) (bool, string) {
	vr, cr := vendor.RequiredParamCount(), consumer.RequiredParamCount()
	if vr != cr {
		return false, fmt.Sprintf("required params: vendor %d, consumer %d", vr, cr)
	}
	shared := min(len(vendor.Params), len(consumer.Params))
	for i := 0; i < shared; i++ {
		v, cp := vendor.Params[i], consumer.Params[i]
		if v.Type == "" && cp.Type == "" {
			continue
		}
		if !phpast.TypesEqual(v.Type, cp.Type) {
			return false, fmt.Sprintf("param %d type: vendor %s, consumer %s", i+1, typeOrNone(v.Type), typeOrNone(cp.Type))
		}
	}
	return true, "signature compatible"
}

func typeOrNone(t string) string {
	if t == "" {
		return "none"
	}
	return t
}

// constructorOverride checks that an overriding constructor still forwards
// to the vendor constructor. The argument check itself is the parent call item.
func (c *checker) constructorOverride() {
	it := types.Item{Type: types.ItemCtorOverride, Member: types.ConstructorName}
	if _, called := c.pair.Usage.ParentCalledMethods[types.ConstructorName]; called {
		it.Resolved = true
		it.Note = "overrides constructor and calls parent::__construct"
	} else {
		it.Note = "overrides constructor without calling parent::__construct"
	}
	c.add(it)
}

// traitUse flags abstract trait methods the consumer does not implement.
func (c *checker) traitUse() {
	var missing []string
	for _, m := range c.pair.Vendor.Methods {
		if !m.IsAbstract {
			continue
		}
		if _, ok := c.pair.Dependent.Method(m.Name); !ok {
			missing = append(missing, m.Name)
		}
	}
	it := types.Item{Type: types.ItemTraitUse, Member: types.ShortName(c.pair.Vendor.FQCN)}
	if len(missing) == 0 {
		it.Resolved = true
		it.Note = "composes changed trait; every abstract trait method is implemented"
	} else {
		sort.Strings(missing)
		it.Note = "must implement abstract trait methods: " + strings.Join(missing, ", ")
	}
	c.add(it)
}

func (c *checker) callSite(site types.CallSite) {
	kind := itemTypeForCall(site)
	it := types.Item{Type: kind, Member: site.Method}

	vendor, ok := c.pair.Vendor.Method(site.Method)
	switch {
	case !ok:
		it.Note = noteVendorMissing
	case site.Unpacked:
		it.Note = noteManualCount
	default:
		it.Resolved, it.Note = ArgumentsCompatible(vendor, site)
	}
	it.Note = fmt.Sprintf("line %d: %s", site.Line, it.Note)
	c.add(it)
}

func itemTypeForCall(site types.CallSite) types.ItemType {
	switch site.Kind {
	case types.CallParent:
		if site.Method == types.ConstructorName {
			return types.ItemCtorParentCall
		}
		return types.ItemParentCall
	case types.CallStatic:
		return types.ItemStaticCall
	case types.CallNew:
		return types.ItemInstantiation
	default:
		return types.ItemInstanceCall
	}
}

// ArgumentsCompatible judges a call site against the vendor's current
// signature. With named arguments every required parameter must be covered
// positionally or by name and no unknown name may be passed; otherwise the
// positional count must reach the required count.
func ArgumentsCompatible(vendor types.MethodInfo, site types.CallSite) (bool, string) {
	required := vendor.RequiredParamCount()
	if len(site.Named) == 0 {
		if site.Positional >= required {
			return true, fmt.Sprintf("%d args, vendor requires %d", site.Positional, required)
		}
		return false, fmt.Sprintf("insufficient argument count: %d args, vendor requires %d", site.Positional, required)
	}

	named := map[string]bool{}
	for _, n := range site.Named {
		named[n] = true
	}
	known := map[string]bool{}
	for _, p := range vendor.Params {
		known[p.Name] = true
	}

	var missing, unknown []string
	for i, p := range vendor.Params {
		if !p.IsRequired() || i < site.Positional {
			continue
		}
		if !named[p.Name] {
			missing = append(missing, "$"+p.Name)
		}
	}
	if !vendor.HasVariadic() {
		for _, n := range site.Named {
			if !known[n] {
				unknown = append(unknown, "$"+n)
			}
		}
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing required: "+strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		problems = append(problems, "unknown named: "+strings.Join(unknown, ", "))
	}
	if len(problems) > 0 {
		return false, strings.Join(problems, "; ")
	}
	return true, "named arguments cover every required parameter"
}

// CheckClassFinal reports an extending dependent of a class that is now final.
func CheckClassFinal(vendor *types.ClassLikeInfo, dependent string) (types.Item, bool) {
	if vendor == nil || !vendor.IsFinal {
		return types.Item{}, false
	}
	return types.Item{
		Type:      types.ItemClassFinal,
		Dependent: dependent,
		Relation:  types.RelationExtends,
		Note:      "vendor class is now final and cannot be extended",
	}, true
}

// CheckRemovedMembers emits one item per removal detail. A removal is
// resolved when the member's identifier never occurs in src.
func CheckRemovedMembers(removals []classify.Detail, dependent string, relation types.RelationKind, src []byte) []types.Item {
	var items []types.Item
	for _, d := range removals {
		if !d.Kind.IsRemoval() || d.Member == "" {
			continue
		}
		it := types.Item{
			Type:      types.ItemRemovedMember,
			Dependent: dependent,
			Relation:  relation,
			Member:    memberLabel(d),
		}
		if line, found := MemberOccurs(d.Kind, d.Member, src); found {
			it.Note = fmt.Sprintf("line %d still references removed %s", line, memberLabel(d))
		} else {
			it.Resolved = true
			it.Note = "removed member is not referenced"
		}
		items = append(items, it)
	}
	return items
}

func memberLabel(d classify.Detail) string {
	if d.Kind == classify.PropertyRemoved {
		return "$" + d.Member
	}
	return d.Member
}

// MemberOccurs searches src for a word-boundary occurrence of a member
// identifier and returns the 1-based line of the first hit. Methods match
// case-insensitively. Properties match as $name or as ->name not followed by
// a call parenthesis. Constants match case-sensitively.
func MemberOccurs(kind classify.DetailKind, member string, src []byte) (int, bool) {
	quoted := regexp.QuoteMeta(member)
	switch kind {
	case classify.MethodRemoved:
		return firstMatch(regexp.MustCompile(`(?i)\b`+quoted+`\b`), src, nil)
	case classify.PropertyRemoved:
		sigil := regexp.MustCompile(`\$` + quoted + `\b`)
		if line, ok := firstMatch(sigil, src, nil); ok {
			return line, true
		}
		access := regexp.MustCompile(`(?:->|\?->)\s*` + quoted + `\b`)
		return firstMatch(access, src, notCall)
	default:
		return firstMatch(regexp.MustCompile(`\b`+quoted+`\b`), src, nil)
	}
}

// notCall accepts a match whose next non-space byte is not "(".
func notCall(src []byte, end int) bool {
	for i := end; i < len(src); i++ {
		switch src[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case '(':
			return false
		default:
			return true
		}
	}
	return true
}

func firstMatch(re *regexp.Regexp, src []byte, accept func([]byte, int) bool) (int, bool) {
	for _, loc := range re.FindAllIndex(src, -1) {
		if accept != nil && !accept(src, loc[1]) {
			continue
		}
		return 1 + strings.Count(string(src[:loc[0]]), "\n"), true
	}
	return 0, false
}

// CheckDeletedClass is resolved when the deleted class's short name no longer
// occurs as a word anywhere in the dependent's file.
func CheckDeletedClass(fqcn, dependent string, relation types.RelationKind, fileSource []byte) types.Item {
	it := types.Item{
		Type:      types.ItemDeletedClass,
		Dependent: dependent,
		Relation:  relation,
		Member:    types.ShortName(fqcn),
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(types.ShortName(fqcn)) + `\b`)
	if line, found := firstMatch(re, fileSource, nil); found {
		it.Note = fmt.Sprintf("line %d still references deleted class %s", line, types.ShortName(fqcn))
		return it
	}
	it.Resolved = true
	it.Note = "deleted class is no longer referenced"
	return it
}
