// Package phpast holds the tree-sitter plumbing shared by every component that
// reads PHP syntax trees: child iteration, normalization predicates, namespace
// and import resolution, and type-string normalization.
package phpast

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Class-like declaration node kinds.
const (
	KindClassDecl     = "class_declaration"
	KindInterfaceDecl = "interface_declaration"
	KindTraitDecl     = "trait_declaration"
	KindEnumDecl      = "enum_declaration"
)

// IsClassLike reports whether n declares a class, interface, trait or enum.
func IsClassLike(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case KindClassDecl, KindInterfaceDecl, KindTraitDecl, KindEnumDecl:
		return true
	}
	return false
}

// Text returns the source text spanned by n.
func Text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(src)
}

// Line returns the 1-based start line of n.
func Line(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPosition().Row) + 1
}

// EndLine returns the 1-based end line of n.
func EndLine(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.EndPosition().Row) + 1
}

// Children returns every child of n, named and anonymous.
func Children(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := n.ChildCount()
	out := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		if c := n.Child(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// NamedChildren returns the named children of n, skipping comments.
func NamedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := n.NamedChildCount()
	out := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		c := n.NamedChild(i)
		if c == nil || IsComment(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FieldChild pairs a child node with the grammar field it fills, if any.
type FieldChild struct {
	Field string
	Node  *sitter.Node
}

// FieldChildren returns every child of n together with its field name.
func FieldChildren(n *sitter.Node) []FieldChild {
	if n == nil {
		return nil
	}
	cursor := n.Walk()
	defer cursor.Close()

	var out []FieldChild
	if !cursor.GotoFirstChild() {
		return nil
	}
	for {
		node := cursor.Node()
		if node != nil {
			out = append(out, FieldChild{Field: cursor.FieldName(), Node: node})
		}
		if !cursor.GotoNextSibling() {
			break
		}
	}
	return out
}

// Field is shorthand for ChildByFieldName that tolerates a nil receiver.
func Field(n *sitter.Node, name string) *sitter.Node {
	if n == nil {
		return nil
	}
	return n.ChildByFieldName(name)
}

// FirstOfKind returns the first named child whose kind is one of kinds.
func FirstOfKind(n *sitter.Node, kinds ...string) *sitter.Node {
	for _, c := range NamedChildren(n) {
		for _, k := range kinds {
			if c.Kind() == k {
				return c
			}
		}
	}
	return nil
}

// AllOfKind returns the named children whose kind is one of kinds.
func AllOfKind(n *sitter.Node, kinds ...string) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range NamedChildren(n) {
		for _, k := range kinds {
			if c.Kind() == k {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// HasToken reports whether n has an anonymous child token equal to tok (case-insensitive).
func HasToken(n *sitter.Node, tok string) bool {
	for _, c := range Children(n) {
		if !c.IsNamed() && strings.EqualFold(c.Kind(), tok) {
			return true
		}
	}
	return false
}

// Walk visits n and its descendants in source order. Comments and the override
// marker are never visited. Returning false from fn skips the node's subtree.
func Walk(n *sitter.Node, src []byte, fn func(*sitter.Node) bool) {
	if n == nil || IsNonSemantic(n, src) {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, src, fn)
	}
}

// NameText returns the text of a name or qualified_name node without whitespace.
func NameText(n *sitter.Node, src []byte) string {
	return strings.Join(strings.Fields(Text(n, src)), "")
}

// IsNameNode reports whether n is a bare or namespace-qualified name.
func IsNameNode(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case "name", "qualified_name":
		return true
	}
	return false
}
