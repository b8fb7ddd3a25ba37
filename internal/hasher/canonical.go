package hasher

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/agusespa/upgradescope/internal/phpast"
)

// punctuation tokens carry no meaning once the tree is built.
var punctuation = map[string]bool{
	"(": true, ")": true, "{": true, "}": true, "[": true, "]": true,
	",": true, ";": true, ":": true, "?>": true, "<?php": true, "<?=": true,
	"endif": true, "endwhile": true, "endfor": true, "endforeach": true,
	"endswitch": true, "enddeclare": true,
}

// structuralTags lists statement and expression forms that render as their tag
// followed by every field-labelled child and keyword/operator token.
var structuralTags = map[string]string{
	"while_statement":                        "while",
	"do_statement":                           "do",
	"for_statement":                          "for",
	"foreach_statement":                      "foreach",
	"pair":                                   "pair",
	"switch_statement":                       "switch",
	"switch_block":                           "cases",
	"case_statement":                         "case",
	"default_statement":                      "default",
	"try_statement":                          "try",
	"catch_clause":                           "catch",
	"finally_clause":                         "finally",
	"type_list":                              "types",
	"break_statement":                        "break",
	"continue_statement":                     "continue",
	"unset_statement":                        "unset",
	"global_declaration":                     "global",
	"function_static_declaration":            "static",
	"static_variable_declaration":            "staticvar",
	"goto_statement":                         "goto",
	"named_label_statement":                  "label",
	"exit_statement":                         "exit",
	"echo_statement":                         "echo",
	"function_definition":                    "func",
	"const_declaration":                      "const",
	"const_element":                          "constel",
	"anonymous_function":                     "closure",
	"anonymous_function_creation_expression": "closure",
	"anonymous_function_use_clause":          "uses",
	"arrow_function":                         "fn",
	"formal_parameters":                      "params",
	"simple_parameter":                       "param",
	"variadic_parameter":                     "vparam",
	"property_promotion_parameter":           "pparam",
	"static_modifier":                        "staticmod",
	"reference_modifier":                     "ref",
	"match_expression":                       "match",
	"match_block":                            "arms",
	"match_conditional_expression":           "arm",
	"match_condition_list":                   "conds",
	"match_default_expression":               "armdefault",
	"clone_expression":                       "clone",
	"throw_expression":                       "throw",
	"yield_expression":                       "yield",
	"include_expression":                     "include",
	"include_once_expression":                "include_once",
	"require_expression":                     "require",
	"require_once_expression":                "require_once",
	"print_intrinsic":                        "print",
	"error_suppression_expression":           "silence",
	"list_literal":                           "list",
	"sequence_expression":                    "seq",
	"dynamic_variable_name":                  "varvar",
	"anonymous_class":                        "anonclass",
	"declaration_list":                       "members",
	"method_declaration":                     "method",
	"property_declaration":                   "property",
	"property_element":                       "propel",
	"use_declaration":                        "traituse",
	"attribute_list":                         "attrs",
	"attribute_group":                        "attrgroup",
	"attribute":                              "attr",
	"else_if_clause":                         "elseif",
	"else_clause":                            "else",
	"variadic_unpacking":                     "spread",
	"visibility_modifier":                    "vis",
	"readonly_modifier":                      "readonly",
	"final_modifier":                         "final",
	"abstract_modifier":                      "abstract",
}

type renderer struct {
	src []byte
	b   strings.Builder
}

// Canonical renders n into a deterministic string that captures operator and
// call kinds together with their content: call targets, ordered and named
// arguments, literal values and branch conditions. Comments, the override
// marker, formatting and purely syntactic variation (parentheses, array()
// versus [], quote style) do not affect the result.
func Canonical(n *sitter.Node, src []byte) string {
	r := &renderer{src: src}
	r.node(n)
	return r.b.String()
}

func (r *renderer) write(parts ...string) {
	for _, p := range parts {
		r.b.WriteString(p)
	}
}

func (r *renderer) text(n *sitter.Node) string {
	return phpast.Text(n, r.src)
}

func (r *renderer) node(n *sitter.Node) {
	if n == nil || phpast.IsNonSemantic(n, r.src) {
		return
	}

	switch kind := n.Kind(); kind {
	// Pragmas and file framing are not semantic.
	case "declare_statement", "php_tag", "empty_statement":
		return

	// Leaves.
	case "name", "qualified_name", "namespace_name":
		r.write(phpast.NameText(n, r.src))
	case "variable_name":
		r.write("$", strings.TrimPrefix(r.text(n), "$"))
	case "relative_scope":
		r.write(strings.ToLower(r.text(n)))
	case "integer", "float":
		r.write("num:", strings.ToLower(strings.ReplaceAll(r.text(n), "_", "")))
	case "boolean", "null":
		r.write(strings.ToLower(r.text(n)))
	case "string", "string_value", "string_content":
		r.write("str:", quote(unquote(r.text(n))))
	case "encapsed_string":
		r.encapsed(n)
	case "heredoc", "nowdoc":
		r.write(kind, "(", quote(r.text(phpast.Field(n, "value"))), r.heredocBody(n), ")")
	case "escape_sequence":
		r.write(r.text(n))
	case "shell_command_expression":
		r.write("shell(", quote(r.text(n)), ")")
	case "text":
		r.write("html(", quote(strings.TrimSpace(r.text(n))), ")")
	case "primitive_type", "named_type", "optional_type", "union_type",
		"intersection_type", "disjunctive_normal_form_type", "bottom_type", "cast_type":
		r.write("type:", phpast.NormalizeType(r.text(n), nil))

	// Syntactic grouping.
	case "parenthesized_expression":
		for _, c := range phpast.NamedChildren(n) {
			r.node(c)
		}
	case "program", "compound_statement", "colon_block":
		r.block(n)
	case "expression_statement":
		r.list(phpast.NamedChildren(n), ";")

	// Operators.
	case "assignment_expression":
		r.fields(n, "assign", "left", "right")
	case "reference_assignment_expression":
		r.fields(n, "refassign", "left", "right")
	case "augmented_assignment_expression":
		r.fields(n, "augassign:"+r.operator(n), "left", "right")
	case "binary_expression":
		r.fields(n, "bin:"+strings.ToLower(r.operator(n)), "left", "right")
	case "unary_op_expression":
		r.write("unary(", r.operator(n), ",")
		r.list(phpast.NamedChildren(n), ",")
		r.write(")")
	case "update_expression":
		r.update(n)
	case "cast_expression":
		r.fields(n, "cast:"+strings.ToLower(phpast.NameText(phpast.Field(n, "type"), r.src)), "value")
	case "conditional_expression":
		r.fields(n, "ternary", "condition", "body", "alternative")

	// Calls and access.
	case "function_call_expression":
		r.fields(n, "call", "function", "arguments")
	case "member_call_expression", "nullsafe_member_call_expression":
		r.fields(n, callTag(kind), "object", "name", "arguments")
	case "scoped_call_expression":
		r.fields(n, "scall", "scope", "name", "arguments")
	case "member_access_expression", "nullsafe_member_access_expression":
		r.fields(n, callTag(kind), "object", "name")
	case "scoped_property_access_expression":
		r.fields(n, "sprop", "scope", "name")
	case "class_constant_access_expression":
		r.write("cconst(")
		r.list(phpast.NamedChildren(n), ",")
		r.write(")")
	case "object_creation_expression":
		r.write("new(")
		r.list(phpast.NamedChildren(n), ",")
		r.write(")")
	case "arguments":
		r.write("args[")
		r.list(phpast.NamedChildren(n), ",")
		r.write("]")
	case "argument":
		r.argument(n)
	case "subscript_expression":
		r.write("idx(")
		r.list(phpast.NamedChildren(n), ",")
		r.write(")")
	case "array_creation_expression":
		r.write("array[")
		r.list(phpast.NamedChildren(n), ",")
		r.write("]")
	case "array_element_initializer":
		r.arrayElement(n)

	// Control flow with conditions.
	case "if_statement":
		if phpast.Field(n, "condition") == nil {
			r.structural(n)
			return
		}
		r.write("if(")
		r.node(phpast.Field(n, "condition"))
		r.write(";")
		r.node(phpast.Field(n, "body"))
		for _, c := range phpast.NamedChildren(n) {
			switch c.Kind() {
			case "else_if_clause", "else_clause":
				r.write(";")
				r.node(c)
			}
		}
		r.write(")")
	case "return_statement":
		r.write("return(")
		r.list(phpast.NamedChildren(n), ",")
		r.write(")")

	default:
		r.structural(n)
	}
}

// structural is the catch-all arm: the node's tag followed by every child,
// field-labelled where the grammar names the field, with keyword and operator
// tokens kept and punctuation dropped. No node kind is ever skipped.
func (r *renderer) structural(n *sitter.Node) {
	tag, ok := structuralTags[n.Kind()]
	if !ok {
		tag = n.Kind()
	}
	children := phpast.FieldChildren(n)
	if len(children) == 0 {
		if n.IsNamed() {
			r.write(tag, ":", quote(r.text(n)))
		} else {
			r.write(r.text(n))
		}
		return
	}
	r.write(tag, "(")
	first := true
	for _, fc := range children {
		c := fc.Node
		if phpast.IsNonSemantic(c, r.src) {
			continue
		}
		if !c.IsNamed() {
			tok := strings.ToLower(c.Kind())
			if punctuation[tok] {
				continue
			}
			if !first {
				r.write(",")
			}
			r.write("'", tok, "'")
			first = false
			continue
		}
		if !first {
			r.write(",")
		}
		if fc.Field != "" {
			r.write(fc.Field, "=")
		}
		r.node(c)
		first = false
	}
	r.write(")")
}

// fields renders tag over the named grammar fields of n. Grammar revisions
// that do not expose the fields fall through to the structural arm so content
// is never dropped.
func (r *renderer) fields(n *sitter.Node, tag string, names ...string) {
	children := make([]*sitter.Node, len(names))
	found := false
	for i, name := range names {
		children[i] = phpast.Field(n, name)
		found = found || children[i] != nil
	}
	if !found {
		r.structural(n)
		return
	}
	r.write(tag, "(")
	for i, c := range children {
		if i > 0 {
			r.write(",")
		}
		r.node(c)
	}
	r.write(")")
}

func (r *renderer) block(n *sitter.Node) {
	r.write("{")
	r.list(phpast.NamedChildren(n), ";")
	r.write("}")
}

func (r *renderer) list(nodes []*sitter.Node, sep string) {
	first := true
	for _, c := range nodes {
		rendered := Canonical(c, r.src)
		if rendered == "" {
			continue
		}
		if !first {
			r.write(sep)
		}
		r.write(rendered)
		first = false
	}
}

func (r *renderer) operator(n *sitter.Node) string {
	if op := phpast.Field(n, "operator"); op != nil {
		return r.text(op)
	}
	for _, c := range phpast.Children(n) {
		if !c.IsNamed() && !punctuation[c.Kind()] {
			return c.Kind()
		}
	}
	return "?"
}

func (r *renderer) update(n *sitter.Node) {
	children := phpast.Children(n)
	if len(children) == 0 {
		return
	}
	position := "post"
	if !children[0].IsNamed() {
		position = "pre"
	}
	r.write("update(", position, ",", r.operator(n), ",")
	r.list(phpast.NamedChildren(n), ",")
	r.write(")")
}

func (r *renderer) argument(n *sitter.Node) {
	if name := phpast.Field(n, "name"); name != nil {
		r.write(r.text(name), ":")
	}
	if phpast.HasToken(n, "...") {
		r.write("...")
	}
	if phpast.HasToken(n, "&") || phpast.FirstOfKind(n, "reference_modifier") != nil {
		r.write("&")
	}
	nameNode := phpast.Field(n, "name")
	first := true
	for _, c := range phpast.NamedChildren(n) {
		if nameNode != nil && c.StartByte() == nameNode.StartByte() && c.EndByte() == nameNode.EndByte() {
			continue
		}
		if c.Kind() == "reference_modifier" {
			continue
		}
		if !first {
			r.write(",")
		}
		r.node(c)
		first = false
	}
}

func (r *renderer) arrayElement(n *sitter.Node) {
	named := phpast.NamedChildren(n)
	if phpast.HasToken(n, "=>") && len(named) >= 2 {
		r.node(named[0])
		r.write("=>")
		if phpast.HasToken(n, "&") {
			r.write("&")
		}
		r.list(named[1:], ",")
		return
	}
	if phpast.HasToken(n, "...") {
		r.write("...")
	}
	if phpast.HasToken(n, "&") {
		r.write("&")
	}
	r.list(named, ",")
}

func (r *renderer) encapsed(n *sitter.Node) {
	parts := phpast.NamedChildren(n)
	literal := true
	for _, p := range parts {
		switch p.Kind() {
		case "string_content", "string_value", "escape_sequence":
		default:
			literal = false
		}
	}
	if literal {
		var b strings.Builder
		for _, p := range parts {
			if p.Kind() == "escape_sequence" {
				b.WriteString("{esc:" + r.text(p) + "}")
				continue
			}
			b.WriteString(r.text(p))
		}
		r.write("str:", quote(b.String()))
		return
	}
	r.write("interp(")
	for i, p := range parts {
		if i > 0 {
			r.write(",")
		}
		switch p.Kind() {
		case "string_content", "string_value", "escape_sequence":
			r.write(quote(r.text(p)))
		default:
			r.node(p)
		}
	}
	r.write(")")
}

func (r *renderer) heredocBody(n *sitter.Node) string {
	body := phpast.FirstOfKind(n, "heredoc_body", "nowdoc_body")
	if body == nil {
		return ""
	}
	return "," + quote(r.text(body))
}

func callTag(kind string) string {
	switch kind {
	case "member_call_expression":
		return "mcall"
	case "nullsafe_member_call_expression":
		return "nsmcall"
	case "member_access_expression":
		return "prop"
	default:
		return "nsprop"
	}
}

// unquote strips single or double quotes and resolves the escapes that make
// 'a' and "a" spell the same value.
func unquote(s string) string {
	if len(s) >= 2 {
		switch {
		case s[0] == '\'' && s[len(s)-1] == '\'':
			s = s[1 : len(s)-1]
			return strings.NewReplacer(`\\`, `\`, `\'`, `'`).Replace(s)
		case s[0] == '"' && s[len(s)-1] == '"':
			return s[1 : len(s)-1]
		}
	}
	return s
}

func quote(s string) string {
	return "\"" + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + "\""
}
