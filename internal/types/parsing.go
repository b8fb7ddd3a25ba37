package types

import (
	"fmt"
	"strings"
)

// ClassKind is the flavour of a class-like declaration.
type ClassKind string

const (
	KindClass     ClassKind = "class"
	KindInterface ClassKind = "interface"
	KindTrait     ClassKind = "trait"
	KindEnum      ClassKind = "enum"
)

// Visibility of a member. An undeclared visibility is normalized to public.
type Visibility string

const (
	Public    Visibility = "public"
	Protected Visibility = "protected"
	Private   Visibility = "private"
)

// Rank orders visibilities from most to least open.
func (v Visibility) Rank() int {
	switch v {
	case Private:
		return 2
	case Protected:
		return 1
	default:
		return 0
	}
}

// ClassLikeInfo is the structural snapshot of one class, interface, trait or enum
// as declared in a single parse of a single file. Values are rebuilt wholesale
// whenever the file changes and are never mutated after extraction.
type ClassLikeInfo struct {
	Name       string    `json:"name"`
	FQCN       string    `json:"fqcn"`
	Kind       ClassKind `json:"kind"`
	IsFinal    bool      `json:"is_final"`
	IsAbstract bool      `json:"is_abstract"`
	IsReadonly bool      `json:"is_readonly"`
	// Parents holds the extended type. Classes have at most one; interfaces may extend several.
	Parents    []string       `json:"parents,omitempty"`
	Interfaces []string       `json:"interfaces,omitempty"`
	Traits     []string       `json:"traits,omitempty"`
	Methods    []MethodInfo   `json:"methods,omitempty"`
	Properties []PropertyInfo `json:"properties,omitempty"`
	Constants  []ConstantInfo `json:"constants,omitempty"`
	StartLine  int            `json:"start_line"`
	EndLine    int            `json:"end_line"`
}

// Parent returns the single direct parent of a class, or "" when there is none.
func (c *ClassLikeInfo) Parent() string {
	if len(c.Parents) == 0 {
		return ""
	}
	return c.Parents[0]
}

func (c *ClassLikeInfo) Method(name string) (MethodInfo, bool) {
	for _, m := range c.Methods {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return MethodInfo{}, false
}

func (c *ClassLikeInfo) Property(name string) (PropertyInfo, bool) {
	name = strings.TrimPrefix(name, "$")
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyInfo{}, false
}

func (c *ClassLikeInfo) Constant(name string) (ConstantInfo, bool) {
	for _, k := range c.Constants {
		if k.Name == name {
			return k, true
		}
	}
	return ConstantInfo{}, false
}

// ParamInfo describes one formal parameter.
type ParamInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	IsVariadic bool   `json:"is_variadic,omitempty"`
	IsByRef    bool   `json:"is_by_ref,omitempty"`
	HasDefault bool   `json:"has_default,omitempty"`
	// PromotedVisibility is set for constructor-promoted parameters.
	PromotedVisibility Visibility `json:"promoted_visibility,omitempty"`
	PromotedReadonly   bool       `json:"promoted_readonly,omitempty"`
}

// IsRequired reports whether a caller must supply the parameter.
func (p ParamInfo) IsRequired() bool {
	return !p.HasDefault && !p.IsVariadic
}

// ShapeEquals compares the structural shape of two parameters. Default values
// are not part of the shape.
func (p ParamInfo) ShapeEquals(o ParamInfo) bool {
	return p.Name == o.Name &&
		p.Type == o.Type &&
		p.IsVariadic == o.IsVariadic &&
		p.IsByRef == o.IsByRef
}

func (p ParamInfo) String() string {
	var b strings.Builder
	if p.Type != "" {
		b.WriteString(p.Type)
		b.WriteString(" ")
	}
	if p.IsByRef {
		b.WriteString("&")
	}
	if p.IsVariadic {
		b.WriteString("...")
	}
	b.WriteString("$")
	b.WriteString(p.Name)
	if p.HasDefault {
		b.WriteString(" = …")
	}
	return b.String()
}

// MethodInfo is the structural snapshot of one method.
type MethodInfo struct {
	Name       string      `json:"name"`
	Visibility Visibility  `json:"visibility"`
	IsStatic   bool        `json:"is_static,omitempty"`
	IsAbstract bool        `json:"is_abstract,omitempty"`
	IsFinal    bool        `json:"is_final,omitempty"`
	Params     []ParamInfo `json:"params,omitempty"`
	ReturnType string      `json:"return_type,omitempty"`
	BodyDigest string      `json:"body_digest,omitempty"`
	Line       int         `json:"line"`
}

// IsConstructor reports whether the method is the class constructor.
func (m MethodInfo) IsConstructor() bool {
	return strings.EqualFold(m.Name, ConstructorName)
}

// ConstructorName is the reserved constructor method name.
const ConstructorName = "__construct"

// SignatureEquals compares modifiers, parameter shape and return type.
func (m MethodInfo) SignatureEquals(o MethodInfo) bool {
	if m.Visibility != o.Visibility ||
		m.IsStatic != o.IsStatic ||
		m.IsAbstract != o.IsAbstract ||
		m.IsFinal != o.IsFinal ||
		m.ReturnType != o.ReturnType ||
		len(m.Params) != len(o.Params) {
		return false
	}
	for i := range m.Params {
		if !m.Params[i].ShapeEquals(o.Params[i]) {
			return false
		}
	}
	return true
}

func (m MethodInfo) BodyEquals(o MethodInfo) bool {
	return m.BodyDigest == o.BodyDigest
}

// RequiredParamCount counts parameters without a default that are not variadic.
func (m MethodInfo) RequiredParamCount() int {
	n := 0
	for _, p := range m.Params {
		if p.IsRequired() {
			n++
		}
	}
	return n
}

// HasVariadic reports whether the last parameter collects extra arguments.
func (m MethodInfo) HasVariadic() bool {
	return len(m.Params) > 0 && m.Params[len(m.Params)-1].IsVariadic
}

// Signature renders a readable one-line signature.
func (m MethodInfo) Signature() string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.String()
	}
	sig := fmt.Sprintf("%s function %s(%s)", m.Visibility, m.Name, strings.Join(params, ", "))
	if m.ReturnType != "" {
		sig += ": " + m.ReturnType
	}
	return sig
}

// PropertyInfo is the structural snapshot of one property. Constructor-promoted
// parameters are folded in with Promoted set.
type PropertyInfo struct {
	Name          string     `json:"name"`
	Visibility    Visibility `json:"visibility"`
	Type          string     `json:"type,omitempty"`
	DefaultDigest string     `json:"default_digest,omitempty"`
	IsStatic      bool       `json:"is_static,omitempty"`
	IsReadonly    bool       `json:"is_readonly,omitempty"`
	Promoted      bool       `json:"promoted,omitempty"`
}

func (p PropertyInfo) SignatureEquals(o PropertyInfo) bool {
	return p.Name == o.Name &&
		p.Visibility == o.Visibility &&
		p.Type == o.Type &&
		p.IsStatic == o.IsStatic &&
		p.IsReadonly == o.IsReadonly
}

func (p PropertyInfo) ValueEquals(o PropertyInfo) bool {
	return p.DefaultDigest == o.DefaultDigest
}

// ConstantInfo is the structural snapshot of one class constant or enum case.
type ConstantInfo struct {
	Name        string     `json:"name"`
	Type        string     `json:"type,omitempty"`
	ValueDigest string     `json:"value_digest,omitempty"`
	Visibility  Visibility `json:"visibility"`
	IsFinal     bool       `json:"is_final,omitempty"`
	IsEnumCase  bool       `json:"is_enum_case,omitempty"`
}

func (c ConstantInfo) SignatureEquals(o ConstantInfo) bool {
	return c.Name == o.Name &&
		c.Type == o.Type &&
		c.Visibility == o.Visibility &&
		c.IsFinal == o.IsFinal &&
		c.IsEnumCase == o.IsEnumCase
}

func (c ConstantInfo) ValueEquals(o ConstantInfo) bool {
	return c.ValueDigest == o.ValueDigest
}

// Diagnostic records a per-file failure that was tolerated.
type Diagnostic struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return d.Message
	}
	return d.Path + ": " + d.Message
}
