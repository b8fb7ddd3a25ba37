package resolver

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/agusespa/upgradescope/internal/phpast"
	"github.com/agusespa/upgradescope/internal/types"
)

// relations holds the resolved names a declaration points at, per relation kind.
type relations map[types.RelationKind][]string

// relationsOf reads the header clauses and body of a declaration. General
// references are collected only when withRefs is set since they require a
// full body walk.
func relationsOf(d phpast.Declaration, src []byte, withRefs bool) relations {
	rel := relations{}
	for _, c := range phpast.NamedChildren(d.Node) {
		switch c.Kind() {
		case "base_clause":
			rel[types.RelationExtends] = append(rel[types.RelationExtends], clauseNames(c, src, d.Context)...)
		case "class_interface_clause":
			rel[types.RelationImplements] = append(rel[types.RelationImplements], clauseNames(c, src, d.Context)...)
		}
	}

	body := phpast.Field(d.Node, "body")
	if body == nil {
		body = phpast.FirstOfKind(d.Node, "declaration_list", "enum_declaration_list")
	}
	for _, member := range phpast.NamedChildren(body) {
		if member.Kind() == "use_declaration" {
			rel[types.RelationTraitUse] = append(rel[types.RelationTraitUse], clauseNames(member, src, d.Context)...)
		}
	}

	if withRefs && body != nil {
		refs := map[string]bool{}
		collectReferences(body, src, d.Context, refs)
		for name := range refs {
			rel[types.RelationReference] = append(rel[types.RelationReference], name)
		}
	}
	return rel
}

func clauseNames(n *sitter.Node, src []byte, ctx *phpast.NameContext) []string {
	var out []string
	for _, c := range phpast.NamedChildren(n) {
		if phpast.IsNameNode(c) {
			out = append(out, ctx.Resolve(phpast.NameText(c, src)))
		}
	}
	return out
}

// collectReferences gathers every class-name position under n, resolved
// through ctx. Trait-use declarations are skipped, and so are string
// literals, function call targets and member names, since none of those can
// name a class.
func collectReferences(n *sitter.Node, src []byte, ctx *phpast.NameContext, out map[string]bool) {
	namedIndex := 0
	for _, fc := range phpast.FieldChildren(n) {
		c := fc.Node
		if !c.IsNamed() || phpast.IsNonSemantic(c, src) {
			continue
		}
		index := namedIndex
		namedIndex++

		switch c.Kind() {
		case "use_declaration", "string", "encapsed_string", "heredoc", "nowdoc", "shell_command_expression":
			continue
		}
		if phpast.IsNameNode(c) {
			if nonClassPosition(n.Kind(), fc.Field, index) {
				continue
			}
			name := phpast.NameText(c, src)
			if name == "" || phpast.IsBuiltinType(name) {
				continue
			}
			out[ctx.Resolve(name)] = true
			continue
		}
		collectReferences(c, src, ctx, out)
	}
}

// nonClassPosition reports whether a name child at the given field or named
// child index of a parent kind is something other than a class reference.
func nonClassPosition(parentKind, field string, index int) bool {
	switch parentKind {
	case "function_call_expression":
		return field == "function"
	case "member_call_expression", "nullsafe_member_call_expression",
		"member_access_expression", "nullsafe_member_access_expression",
		"scoped_call_expression", "scoped_property_access_expression":
		return field == "name"
	case "class_constant_access_expression":
		return index > 0
	case "argument":
		return field == "name"
	case "method_declaration", "function_definition", "const_element", "property_element",
		"enum_case", "named_label_statement", "goto_statement", "namespace_definition",
		"namespace_use_clause", "declare_directive":
		return true
	}
	return false
}
