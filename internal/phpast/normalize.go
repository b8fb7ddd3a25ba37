package phpast

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// OverrideAttribute is the no-op marker attribute that only asserts a parent
// method exists. It never changes behavior.
const OverrideAttribute = "Override"

// IsComment reports whether n is a comment node.
func IsComment(n *sitter.Node) bool {
	return n != nil && n.Kind() == "comment"
}

// IsOverrideMarker reports whether n is an #[\Override] attribute, or an
// attribute group/list made only of such attributes.
func IsOverrideMarker(n *sitter.Node, src []byte) bool {
	if n == nil {
		return false
	}
	switch n.Kind() {
	case "attribute":
		name := FirstOfKind(n, "name", "qualified_name")
		if name == nil {
			return false
		}
		return strings.EqualFold(strings.TrimPrefix(NameText(name, src), `\`), OverrideAttribute)
	case "attribute_group", "attribute_list":
		inner := NamedChildren(n)
		if len(inner) == 0 {
			return false
		}
		for _, c := range inner {
			if !IsOverrideMarker(c, src) {
				return false
			}
		}
		return true
	}
	return false
}

// IsNonSemantic reports whether n must be ignored by every digest and equality
// check: comments and the override marker.
func IsNonSemantic(n *sitter.Node, src []byte) bool {
	return IsComment(n) || IsOverrideMarker(n, src)
}
