package classify

import (
	"strings"
)

// DetailKind enumerates every change the classifier can report. The prefix
// text of each kind is stable and appears verbatim in reports and JSON output.
type DetailKind int

const (
	KindUnknown DetailKind = iota

	ClassAdded
	ClassRemoved
	ClassMadeFinal
	ClassMadeAbstract
	ClassKindChanged
	ParentChanged
	InterfaceAdded
	InterfaceRemoved
	TraitAdded
	TraitRemoved

	MethodAdded
	MethodRemoved
	MethodBodyChanged
	MethodVisibilityLoosened
	MethodVisibilityTightened
	MethodMadeStatic
	MethodMadeNonStatic
	MethodMadeAbstract
	MethodMadeFinal
	MethodParamAdded
	MethodOptionalParamAdded
	MethodParamRemoved
	MethodParamRenamed
	MethodParamTypeChanged
	MethodParamMadeRequired
	MethodParamMadeOptional
	MethodParamVariadicChanged
	MethodParamByRefChanged
	MethodReturnTypeAdded
	MethodReturnTypeRemoved
	MethodReturnTypeChanged
	ConstructorChanged

	PropertyAdded
	PropertyRemoved
	PropertyTypeChanged
	PropertyDefaultChanged
	PropertyVisibilityLoosened
	PropertyVisibilityTightened
	PropertyMadeStatic
	PropertyMadeNonStatic
	PropertyMadeReadonly
	PropertyMadeNonReadonly

	ConstantAdded
	ConstantRemoved
	ConstantValueChanged
	ConstantTypeChanged
	ConstantVisibilityLoosened
	ConstantVisibilityTightened
	ConstantMadeFinal
)

var prefixes = map[DetailKind]string{
	ClassAdded:        "Class added",
	ClassRemoved:      "Class removed",
	ClassMadeFinal:    "Class made final",
	ClassMadeAbstract: "Class made abstract",
	ClassKindChanged:  "Class kind changed",
	ParentChanged:     "Parent changed",
	InterfaceAdded:    "Interface added",
	InterfaceRemoved:  "Interface removed",
	TraitAdded:        "Trait added",
	TraitRemoved:      "Trait removed",

	MethodAdded:                "Method added",
	MethodRemoved:              "Method removed",
	MethodBodyChanged:          "Method body changed",
	MethodVisibilityLoosened:   "Method visibility loosened",
	MethodVisibilityTightened:  "Method visibility tightened",
	MethodMadeStatic:           "Method made static",
	MethodMadeNonStatic:        "Method made non-static",
	MethodMadeAbstract:         "Method made abstract",
	MethodMadeFinal:            "Method made final",
	MethodParamAdded:           "Method param added",
	MethodOptionalParamAdded:   "Method optional param added",
	MethodParamRemoved:         "Method param removed",
	MethodParamRenamed:         "Method param renamed",
	MethodParamTypeChanged:     "Method param type changed",
	MethodParamMadeRequired:    "Method param made required",
	MethodParamMadeOptional:    "Method param made optional",
	MethodParamVariadicChanged: "Method param variadic changed",
	MethodParamByRefChanged:    "Method param by-ref changed",
	MethodReturnTypeAdded:      "Method return type added",
	MethodReturnTypeRemoved:    "Method return type removed",
	MethodReturnTypeChanged:    "Method return type changed",
	ConstructorChanged:         "Constructor changed",

	PropertyAdded:               "Property added",
	PropertyRemoved:             "Property removed",
	PropertyTypeChanged:         "Property type changed",
	PropertyDefaultChanged:      "Property default changed",
	PropertyVisibilityLoosened:  "Property visibility loosened",
	PropertyVisibilityTightened: "Property visibility tightened",
	PropertyMadeStatic:          "Property made static",
	PropertyMadeNonStatic:       "Property made non-static",
	PropertyMadeReadonly:        "Property made readonly",
	PropertyMadeNonReadonly:     "Property made non-readonly",

	ConstantAdded:               "Constant added",
	ConstantRemoved:             "Constant removed",
	ConstantValueChanged:        "Constant value changed",
	ConstantTypeChanged:         "Constant type changed",
	ConstantVisibilityLoosened:  "Constant visibility loosened",
	ConstantVisibilityTightened: "Constant visibility tightened",
	ConstantMadeFinal:           "Constant made final",
}

var byPrefix = func() map[string]DetailKind {
	m := make(map[string]DetailKind, len(prefixes))
	for k, p := range prefixes {
		m[p] = k
	}
	return m
}()

// Prefix returns the stable text of k, or "" for KindUnknown.
func (k DetailKind) Prefix() string {
	return prefixes[k]
}

// MarshalText encodes k as its prefix so JSON output stays readable.
func (k DetailKind) MarshalText() ([]byte, error) {
	if p := k.Prefix(); p != "" {
		return []byte(p), nil
	}
	return []byte("unknown"), nil
}

// Family groups detail kinds for presentation.
type Family string

const (
	FamilyClass    Family = "class"
	FamilyMethod   Family = "method"
	FamilyProperty Family = "property"
	FamilyConstant Family = "constant"
	FamilyOther    Family = "other"
)

func (k DetailKind) Family() Family {
	switch {
	case k >= ClassAdded && k <= TraitRemoved:
		return FamilyClass
	case k >= MethodAdded && k <= ConstructorChanged:
		return FamilyMethod
	case k >= PropertyAdded && k <= PropertyMadeNonReadonly:
		return FamilyProperty
	case k >= ConstantAdded && k <= ConstantMadeFinal:
		return FamilyConstant
	default:
		return FamilyOther
	}
}

// IsRemoval reports whether k removes a member.
func (k DetailKind) IsRemoval() bool {
	switch k {
	case MethodRemoved, PropertyRemoved, ConstantRemoved:
		return true
	}
	return false
}

// IsBehavioral reports whether k describes a change in value or executable
// code rather than in a declared contract.
func (k DetailKind) IsBehavioral() bool {
	switch k {
	case MethodBodyChanged, PropertyDefaultChanged, ConstantValueChanged:
		return true
	}
	return false
}

// Detail is one typed change line. Member is the bare member name; property
// members are rendered with their sigil. Extra carries a qualifier such as a
// parameter name or the old and new types.
type Detail struct {
	Kind   DetailKind `json:"kind"`
	Class  string     `json:"class"`
	Member string     `json:"member,omitempty"`
	Extra  string     `json:"extra,omitempty"`
	// raw keeps the original text of a detail whose prefix is not recognized.
	raw string
}

func (d Detail) String() string {
	if d.Kind == KindUnknown {
		return d.raw
	}
	var b strings.Builder
	b.WriteString(d.Kind.Prefix())
	b.WriteString(": ")
	b.WriteString(d.Class)
	if d.Member != "" {
		b.WriteString("::")
		if d.Kind.Family() == FamilyProperty {
			b.WriteString("$")
		}
		b.WriteString(d.Member)
	}
	if d.Extra != "" {
		b.WriteString(" (")
		b.WriteString(d.Extra)
		b.WriteString(")")
	}
	return b.String()
}

// ParseDetail maps rendered text back to a Detail. Text with an unknown prefix
// yields KindUnknown and is kept verbatim.
func ParseDetail(s string) Detail {
	prefix, rest, ok := strings.Cut(s, ": ")
	if !ok {
		return Detail{raw: s}
	}
	kind, known := byPrefix[prefix]
	if !known {
		return Detail{raw: s}
	}

	d := Detail{Kind: kind}
	if i := strings.Index(rest, " ("); i >= 0 && strings.HasSuffix(rest, ")") {
		d.Extra = rest[i+2 : len(rest)-1]
		rest = rest[:i]
	}
	class, member, _ := strings.Cut(rest, "::")
	d.Class = class
	d.Member = strings.TrimPrefix(member, "$")
	return d
}

// ParseDetails maps every line of a rendered detail list.
func ParseDetails(lines []string) []Detail {
	out := make([]Detail, len(lines))
	for i, l := range lines {
		out[i] = ParseDetail(l)
	}
	return out
}

// Strings renders a detail list.
func Strings(details []Detail) []string {
	out := make([]string, len(details))
	for i, d := range details {
		out[i] = d.String()
	}
	return out
}
