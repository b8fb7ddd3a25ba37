package phpast

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// builtinTypes never resolve against a namespace.
var builtinTypes = map[string]bool{
	"array": true, "bool": true, "callable": true, "false": true, "float": true,
	"int": true, "iterable": true, "mixed": true, "never": true, "null": true,
	"object": true, "string": true, "true": true, "void": true,
	"self": true, "static": true, "parent": true,
}

// IsBuiltinType reports whether name is a reserved type or relative class keyword.
func IsBuiltinType(name string) bool {
	return builtinTypes[strings.ToLower(name)]
}

// IsRelativeScope reports whether name is self, static or parent.
func IsRelativeScope(name string) bool {
	switch strings.ToLower(name) {
	case "self", "static", "parent":
		return true
	}
	return false
}

// NameContext is the namespace and class imports in effect at a point in a file.
type NameContext struct {
	Namespace string
	// Uses maps a lowercased alias to the imported FQCN.
	Uses map[string]string
}

func NewNameContext(namespace string) *NameContext {
	return &NameContext{Namespace: strings.Trim(namespace, `\`), Uses: map[string]string{}}
}

// Clone returns an independent copy.
func (c *NameContext) Clone() *NameContext {
	out := NewNameContext(c.Namespace)
	for k, v := range c.Uses {
		out.Uses[k] = v
	}
	return out
}

// AddUse records an import. An empty alias means the last segment of fqcn.
func (c *NameContext) AddUse(fqcn, alias string) {
	fqcn = strings.Trim(fqcn, `\`)
	if fqcn == "" {
		return
	}
	if alias == "" {
		alias = fqcn
		if i := strings.LastIndex(fqcn, `\`); i >= 0 {
			alias = fqcn[i+1:]
		}
	}
	c.Uses[strings.ToLower(alias)] = fqcn
}

// Qualify returns the FQCN of a declaration named short in this namespace.
func (c *NameContext) Qualify(short string) string {
	if c.Namespace == "" {
		return short
	}
	return c.Namespace + `\` + short
}

// Resolve turns a class name as written in source into an FQCN. Builtin types
// and relative scopes are returned lowercased and unqualified.
func (c *NameContext) Resolve(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, `\`) {
		return strings.TrimPrefix(name, `\`)
	}
	if IsBuiltinType(name) {
		return strings.ToLower(name)
	}
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, `namespace\`) {
		return c.Qualify(name[len(`namespace\`):])
	}
	if i := strings.Index(name, `\`); i >= 0 {
		if fq, ok := c.Uses[strings.ToLower(name[:i])]; ok {
			return fq + name[i:]
		}
		return c.Qualify(name)
	}
	if fq, ok := c.Uses[lower]; ok {
		return fq
	}
	return c.Qualify(name)
}

// ApplyUseDeclaration records the class imports of a namespace_use_declaration.
// Function and constant imports are ignored.
func (c *NameContext) ApplyUseDeclaration(n *sitter.Node, src []byte) {
	if n == nil || n.Kind() != "namespace_use_declaration" {
		return
	}
	if importsNonClass(n) {
		return
	}
	prefix := ""
	if ns := FirstOfKind(n, "namespace_name"); ns != nil {
		prefix = strings.Trim(NameText(ns, src), `\`)
	}
	for _, child := range NamedChildren(n) {
		switch child.Kind() {
		case "namespace_use_clause":
			c.applyUseClause(child, src, "")
		case "namespace_use_group", "namespace_use_group_clause":
			for _, clause := range NamedChildren(child) {
				c.applyUseClause(clause, src, prefix)
			}
		}
	}
}

func (c *NameContext) applyUseClause(clause *sitter.Node, src []byte, prefix string) {
	if importsNonClass(clause) {
		return
	}
	var target, alias string
	aliasNode := Field(clause, "alias")
	if aliasNode != nil {
		alias = NameText(aliasNode, src)
	}
	for _, part := range NamedChildren(clause) {
		if aliasNode != nil && part.StartByte() == aliasNode.StartByte() {
			continue
		}
		switch part.Kind() {
		case "name", "qualified_name", "namespace_name":
			if target == "" {
				target = NameText(part, src)
			} else if alias == "" {
				alias = NameText(part, src)
			}
		}
	}
	if target == "" {
		return
	}
	if prefix != "" {
		target = prefix + `\` + strings.TrimPrefix(target, `\`)
	}
	c.AddUse(target, alias)
}

func importsNonClass(n *sitter.Node) bool {
	if typ := Field(n, "type"); typ != nil {
		switch typ.Kind() {
		case "function", "const":
			return true
		}
	}
	return HasToken(n, "function") || HasToken(n, "const")
}

// Declaration is a class-like declaration node paired with the name context
// that was in effect where it appeared.
type Declaration struct {
	Node    *sitter.Node
	Context *NameContext
}

// Name returns the declared short name.
func (d Declaration) Name(src []byte) string {
	return NameText(Field(d.Node, "name"), src)
}

// FQCN returns the declared fully qualified name.
func (d Declaration) FQCN(src []byte) string {
	return d.Context.Qualify(d.Name(src))
}

// Declarations returns every class-like declaration in a file with its name
// context. Both the braced and the statement form of namespaces are handled.
// Function bodies are not searched.
func Declarations(root *sitter.Node, src []byte) []Declaration {
	var out []Declaration
	ctx := NewNameContext("")
	collectDeclarations(root, src, &ctx, &out)
	return out
}

func collectDeclarations(n *sitter.Node, src []byte, ctx **NameContext, out *[]Declaration) {
	for _, child := range NamedChildren(n) {
		switch child.Kind() {
		case "namespace_definition":
			name := strings.Trim(NameText(Field(child, "name"), src), `\`)
			if body := Field(child, "body"); body != nil {
				inner := NewNameContext(name)
				collectDeclarations(body, src, &inner, out)
				continue
			}
			*ctx = NewNameContext(name)
		case "namespace_use_declaration":
			(*ctx).ApplyUseDeclaration(child, src)
		case KindClassDecl, KindInterfaceDecl, KindTraitDecl, KindEnumDecl:
			*out = append(*out, Declaration{Node: child, Context: (*ctx).Clone()})
		case "function_definition", "method_declaration", "anonymous_function",
			"anonymous_function_creation_expression", "arrow_function":
			continue
		default:
			if child.NamedChildCount() > 0 {
				collectDeclarations(child, src, ctx, out)
			}
		}
	}
}
