// Package usage reports how one consumer declaration touches the changed
// members of one vendor class. Matching is by name only, without type
// inference, so it over-reports; the resolution checker makes the final call.
package usage

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/agusespa/upgradescope/internal/bcfilter"
	"github.com/agusespa/upgradescope/internal/phpast"
	"github.com/agusespa/upgradescope/internal/types"
)

// Target describes the vendor side of an analysis.
type Target struct {
	FQCN               string
	Changed            bcfilter.MethodSet
	ConstructorChanged bool
}

// Analyze walks the consumer declaration d under the given relation kind.
func Analyze(target Target, d phpast.Declaration, src []byte, relation types.RelationKind) *types.UsageInfo {
	a := &analyzer{
		target:   target,
		fqcn:     types.NormalizeFQCN(target.FQCN),
		src:      src,
		ctx:      d.Context,
		relation: relation,
		usage:    types.NewUsageInfo(),
	}
	if a.target.Changed == nil {
		a.target.Changed = bcfilter.MethodSet{}
	}

	body := phpast.Field(d.Node, "body")
	if body == nil {
		body = phpast.FirstOfKind(d.Node, "declaration_list", "enum_declaration_list")
	}
	a.declarations(body)
	phpast.Walk(body, src, a.visit)

	if relation == types.RelationTraitUse {
		a.usage.UsesTrait = true
	}
	return a.usage
}

type analyzer struct {
	target   Target
	fqcn     string
	src      []byte
	ctx      *phpast.NameContext
	relation types.RelationKind
	usage    *types.UsageInfo
	declared map[string]bool
}

// declarations looks at the consumer's own method declarations.
func (a *analyzer) declarations(body *sitter.Node) {
	a.declared = map[string]bool{}
	for _, member := range phpast.NamedChildren(body) {
		if member.Kind() != "method_declaration" {
			continue
		}
		name := phpast.NameText(phpast.Field(member, "name"), a.src)
		a.declared[strings.ToLower(name)] = true

		if strings.EqualFold(name, types.ConstructorName) {
			if a.target.ConstructorChanged && a.relation == types.RelationExtends {
				a.usage.OverridesConstructor = true
			}
			continue
		}
		canonical, ok := a.target.Changed.Canonical(name)
		if !ok {
			continue
		}
		switch a.relation {
		case types.RelationExtends, types.RelationTraitUse:
			a.usage.OverriddenMethods[canonical] = struct{}{}
		case types.RelationImplements:
			a.usage.ImplementsInterface = true
			a.usage.ImplementedMethods[canonical] = struct{}{}
		}
	}
}

func (a *analyzer) visit(n *sitter.Node) bool {
	switch n.Kind() {
	case "scoped_call_expression":
		a.scopedCall(n)
	case "object_creation_expression":
		a.instantiation(n)
	case "member_call_expression", "nullsafe_member_call_expression":
		a.instanceCall(n)
	}
	return true
}

func (a *analyzer) scopedCall(n *sitter.Node) {
	scope := phpast.Field(n, "scope")
	method := phpast.NameText(phpast.Field(n, "name"), a.src)
	if scope == nil || method == "" {
		return
	}
	scopeText := phpast.NameText(scope, a.src)
	isCtor := strings.EqualFold(method, types.ConstructorName)

	switch {
	case strings.EqualFold(scopeText, "parent"):
		if a.relation != types.RelationExtends {
			return
		}
		if isCtor {
			if a.target.ConstructorChanged {
				a.usage.ParentCalledMethods[types.ConstructorName] = struct{}{}
				a.record(types.CallParent, types.ConstructorName, n)
			}
			return
		}
		if canonical, ok := a.target.Changed.Canonical(method); ok {
			a.usage.ParentCalledMethods[canonical] = struct{}{}
			a.record(types.CallParent, canonical, n)
		}

	case phpast.IsRelativeScope(scopeText):
		// self:: and static:: reach the vendor method only when it is inherited.
		if a.relation != types.RelationExtends || isCtor || a.declared[strings.ToLower(method)] {
			return
		}
		if canonical, ok := a.target.Changed.Canonical(method); ok {
			a.usage.StaticCalled[canonical] = struct{}{}
			a.record(types.CallStatic, canonical, n)
		}

	case phpast.IsNameNode(scope) && a.resolvesToTarget(scopeText):
		if isCtor {
			return
		}
		if canonical, ok := a.target.Changed.Canonical(method); ok {
			a.usage.StaticCalled[canonical] = struct{}{}
			a.record(types.CallStatic, canonical, n)
		}
	}
}

func (a *analyzer) instantiation(n *sitter.Node) {
	if !a.target.ConstructorChanged {
		return
	}
	class := phpast.FirstOfKind(n, "name", "qualified_name")
	if class == nil || !a.resolvesToTarget(phpast.NameText(class, a.src)) {
		return
	}
	a.usage.CallsConstructor = true
	a.record(types.CallNew, types.ConstructorName, n)
}

func (a *analyzer) instanceCall(n *sitter.Node) {
	method := phpast.NameText(phpast.Field(n, "name"), a.src)
	canonical, ok := a.target.Changed.Canonical(method)
	if !ok || canonical == types.ConstructorName {
		return
	}
	a.usage.InstanceCalled[canonical] = struct{}{}
	a.record(types.CallInstance, canonical, n)
}

func (a *analyzer) resolvesToTarget(name string) bool {
	return strings.EqualFold(a.ctx.Resolve(name), a.fqcn)
}

func (a *analyzer) record(kind types.CallKind, method string, call *sitter.Node) {
	site := types.CallSite{Kind: kind, Method: method, Line: phpast.Line(call)}
	args := phpast.Field(call, "arguments")
	if args == nil {
		args = phpast.FirstOfKind(call, "arguments")
	}
	countArguments(args, a.src, &site)
	a.usage.Calls = append(a.usage.Calls, site)
}

// countArguments tallies positional, named and spread arguments.
func countArguments(args *sitter.Node, src []byte, site *types.CallSite) {
	for _, arg := range phpast.NamedChildren(args) {
		switch arg.Kind() {
		case "variadic_placeholder":
			site.Unpacked = true
			continue
		case "argument":
		default:
			continue
		}
		if name := phpast.Field(arg, "name"); name != nil {
			site.Named = append(site.Named, strings.TrimPrefix(phpast.NameText(name, src), "$"))
			continue
		}
		if phpast.HasToken(arg, "...") || phpast.FirstOfKind(arg, "variadic_unpacking") != nil {
			site.Unpacked = true
			continue
		}
		site.Positional++
	}
}
