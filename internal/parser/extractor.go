package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/agusespa/upgradescope/internal/hasher"
	"github.com/agusespa/upgradescope/internal/phpast"
	"github.com/agusespa/upgradescope/internal/types"
)

// Extract parses content and returns the structural record of every class-like
// declaration in it. Files with syntax errors yield no records and an error
// wrapping ErrParse.
func (pp *PHPParser) Extract(path string, content []byte) ([]types.ClassLikeInfo, error) {
	f, err := pp.Parse(path, content)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		return nil, err
	}
	return ExtractFile(f), nil
}

// ExtractNames returns the FQCN of every class-like declaration in content.
// Names are returned even when the tree has errors, alongside the error, so a
// bulk index can record the diagnostic and keep what it could read.
func (pp *PHPParser) ExtractNames(path string, content []byte) ([]string, error) {
	f, err := pp.Parse(path, content)
	if f == nil {
		return nil, err
	}
	defer f.Close()

	names := make([]string, 0, len(f.Declarations))
	for _, d := range f.Declarations {
		if name := d.FQCN(f.Source); name != "" {
			names = append(names, name)
		}
	}
	return names, err
}

// ExtractFile builds records for every declaration of an already parsed file.
func ExtractFile(f *File) []types.ClassLikeInfo {
	out := make([]types.ClassLikeInfo, 0, len(f.Declarations))
	for _, d := range f.Declarations {
		out = append(out, ExtractDeclaration(d, f.Source))
	}
	return out
}

// ExtractDeclaration builds the structural record of one declaration.
func ExtractDeclaration(d phpast.Declaration, src []byte) types.ClassLikeInfo {
	n := d.Node
	ctx := d.Context
	info := types.ClassLikeInfo{
		Name:      d.Name(src),
		FQCN:      d.FQCN(src),
		Kind:      classKind(n.Kind()),
		StartLine: phpast.Line(n),
		EndLine:   phpast.EndLine(n),
	}

	for _, c := range phpast.NamedChildren(n) {
		switch c.Kind() {
		case "final_modifier":
			info.IsFinal = true
		case "abstract_modifier":
			info.IsAbstract = true
		case "readonly_modifier":
			info.IsReadonly = true
		case "base_clause":
			info.Parents = append(info.Parents, resolvedNames(c, src, ctx)...)
		case "class_interface_clause":
			info.Interfaces = append(info.Interfaces, resolvedNames(c, src, ctx)...)
		}
	}

	body := phpast.Field(n, "body")
	if body == nil {
		body = phpast.FirstOfKind(n, "declaration_list", "enum_declaration_list")
	}
	for _, member := range phpast.NamedChildren(body) {
		switch member.Kind() {
		case "method_declaration":
			m := extractMethod(member, src, ctx)
			if info.Kind == types.KindInterface {
				m.IsAbstract = true
			}
			info.Methods = append(info.Methods, m)
			if m.IsConstructor() {
				info.Properties = append(info.Properties, promotedProperties(m)...)
			}
		case "property_declaration":
			info.Properties = append(info.Properties, extractProperties(member, src, ctx)...)
		case "const_declaration":
			info.Constants = append(info.Constants, extractConstants(member, src, ctx)...)
		case "enum_case":
			info.Constants = append(info.Constants, extractEnumCase(member, src))
		case "use_declaration":
			info.Traits = append(info.Traits, resolvedNames(member, src, ctx)...)
		}
	}
	return info
}

func classKind(nodeKind string) types.ClassKind {
	switch nodeKind {
	case phpast.KindInterfaceDecl:
		return types.KindInterface
	case phpast.KindTraitDecl:
		return types.KindTrait
	case phpast.KindEnumDecl:
		return types.KindEnum
	default:
		return types.KindClass
	}
}

// resolvedNames resolves every name child of a clause such as "extends A, B".
func resolvedNames(n *sitter.Node, src []byte, ctx *phpast.NameContext) []string {
	var out []string
	for _, c := range phpast.NamedChildren(n) {
		if phpast.IsNameNode(c) {
			out = append(out, ctx.Resolve(phpast.NameText(c, src)))
		}
	}
	return out
}

type modifiers struct {
	visibility types.Visibility
	isStatic   bool
	isAbstract bool
	isFinal    bool
	isReadonly bool
}

func readModifiers(n *sitter.Node, src []byte) modifiers {
	m := modifiers{visibility: types.Public}
	for _, c := range phpast.Children(n) {
		switch c.Kind() {
		case "visibility_modifier":
			m.visibility = parseVisibility(phpast.Text(c, src))
		case "static_modifier":
			m.isStatic = true
		case "abstract_modifier":
			m.isAbstract = true
		case "final_modifier":
			m.isFinal = true
		case "readonly_modifier":
			m.isReadonly = true
		}
	}
	return m
}

func parseVisibility(s string) types.Visibility {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "private"):
		return types.Private
	case strings.HasPrefix(s, "protected"):
		return types.Protected
	default:
		return types.Public
	}
}

func extractMethod(n *sitter.Node, src []byte, ctx *phpast.NameContext) types.MethodInfo {
	mods := readModifiers(n, src)
	m := types.MethodInfo{
		Name:       phpast.NameText(phpast.Field(n, "name"), src),
		Visibility: mods.visibility,
		IsStatic:   mods.isStatic,
		IsAbstract: mods.isAbstract,
		IsFinal:    mods.isFinal,
		Line:       phpast.Line(n),
	}
	m.Params = ExtractParams(phpast.Field(n, "parameters"), src, ctx)
	if rt := phpast.Field(n, "return_type"); rt != nil {
		m.ReturnType = phpast.NormalizeType(phpast.Text(rt, src), ctx.Resolve)
	}
	if body := phpast.Field(n, "body"); body != nil {
		m.BodyDigest = hasher.Digest(body, src)
	}
	return m
}

// ExtractParams reads a formal_parameters node.
func ExtractParams(params *sitter.Node, src []byte, ctx *phpast.NameContext) []types.ParamInfo {
	var out []types.ParamInfo
	for _, p := range phpast.NamedChildren(params) {
		switch p.Kind() {
		case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
		default:
			continue
		}
		info := types.ParamInfo{
			Name:       paramName(p, src),
			IsVariadic: p.Kind() == "variadic_parameter" || phpast.HasToken(p, "..."),
			IsByRef:    isByRef(p),
			HasDefault: phpast.Field(p, "default_value") != nil,
		}
		if t := phpast.Field(p, "type"); t != nil {
			info.Type = phpast.NormalizeType(phpast.Text(t, src), ctx.Resolve)
		}
		if p.Kind() == "property_promotion_parameter" {
			info.PromotedVisibility = types.Public
			if v := phpast.Field(p, "visibility"); v != nil {
				info.PromotedVisibility = parseVisibility(phpast.Text(v, src))
			} else if v := phpast.FirstOfKind(p, "visibility_modifier"); v != nil {
				info.PromotedVisibility = parseVisibility(phpast.Text(v, src))
			}
			info.PromotedReadonly = phpast.FirstOfKind(p, "readonly_modifier") != nil
		}
		out = append(out, info)
	}
	return out
}

func paramName(p *sitter.Node, src []byte) string {
	name := phpast.Field(p, "name")
	if name == nil {
		name = phpast.FirstOfKind(p, "variable_name")
	}
	if name != nil && name.Kind() == "by_ref" {
		if v := phpast.FirstOfKind(name, "variable_name"); v != nil {
			name = v
		}
	}
	return strings.TrimPrefix(phpast.NameText(name, src), "$")
}

func isByRef(p *sitter.Node) bool {
	if phpast.Field(p, "reference_modifier") != nil || phpast.FirstOfKind(p, "reference_modifier", "by_ref") != nil {
		return true
	}
	return phpast.HasToken(p, "&")
}

func promotedProperties(ctor types.MethodInfo) []types.PropertyInfo {
	var out []types.PropertyInfo
	for _, p := range ctor.Params {
		if p.PromotedVisibility == "" {
			continue
		}
		out = append(out, types.PropertyInfo{
			Name:       p.Name,
			Visibility: p.PromotedVisibility,
			Type:       p.Type,
			IsReadonly: p.PromotedReadonly,
			Promoted:   true,
		})
	}
	return out
}

func extractProperties(n *sitter.Node, src []byte, ctx *phpast.NameContext) []types.PropertyInfo {
	mods := readModifiers(n, src)
	var typ string
	if t := phpast.Field(n, "type"); t != nil {
		typ = phpast.NormalizeType(phpast.Text(t, src), ctx.Resolve)
	}
	var out []types.PropertyInfo
	for _, el := range phpast.AllOfKind(n, "property_element") {
		nameNode := phpast.Field(el, "name")
		if nameNode == nil {
			nameNode = phpast.FirstOfKind(el, "variable_name")
		}
		var valueNodes []*sitter.Node
		for _, c := range phpast.NamedChildren(el) {
			if nameNode != nil && c.StartByte() == nameNode.StartByte() {
				continue
			}
			valueNodes = append(valueNodes, c)
		}
		out = append(out, types.PropertyInfo{
			Name:          strings.TrimPrefix(phpast.NameText(nameNode, src), "$"),
			Visibility:    mods.visibility,
			Type:          typ,
			DefaultDigest: hasher.DigestAll(valueNodes, src),
			IsStatic:      mods.isStatic,
			IsReadonly:    mods.isReadonly,
		})
	}
	return out
}

func extractConstants(n *sitter.Node, src []byte, ctx *phpast.NameContext) []types.ConstantInfo {
	mods := readModifiers(n, src)
	var typ string
	if t := phpast.Field(n, "type"); t != nil {
		typ = phpast.NormalizeType(phpast.Text(t, src), ctx.Resolve)
	}
	var out []types.ConstantInfo
	for _, el := range phpast.AllOfKind(n, "const_element") {
		parts := phpast.NamedChildren(el)
		if len(parts) == 0 {
			continue
		}
		out = append(out, types.ConstantInfo{
			Name:        phpast.NameText(parts[0], src),
			Type:        typ,
			ValueDigest: hasher.DigestAll(parts[1:], src),
			Visibility:  mods.visibility,
			IsFinal:     mods.isFinal,
		})
	}
	return out
}

func extractEnumCase(n *sitter.Node, src []byte) types.ConstantInfo {
	return types.ConstantInfo{
		Name:        phpast.NameText(phpast.Field(n, "name"), src),
		ValueDigest: hasher.Digest(phpast.Field(n, "value"), src),
		Visibility:  types.Public,
		IsEnumCase:  true,
	}
}
