// Package classify compares two structural snapshots of a class-like
// declaration and reports every change as a typed detail plus an overall
// cosmetic, signature or logic verdict.
package classify

import (
	"fmt"
	"strings"

	"github.com/agusespa/upgradescope/internal/parser"
	"github.com/agusespa/upgradescope/internal/types"
)

// Classification is the outcome of comparing one declaration across versions.
type Classification struct {
	FQCN    string        `json:"fqcn"`
	Details []Detail      `json:"details"`
	Verdict types.Verdict `json:"verdict"`
}

// Lines renders the details in order.
func (c Classification) Lines() []string {
	return Strings(c.Details)
}

// Classify compares before and after. A nil side means the declaration does
// not exist in that version.
func Classify(before, after *types.ClassLikeInfo) Classification {
	switch {
	case before == nil && after == nil:
		return Classification{Verdict: types.VerdictCosmetic}
	case before == nil:
		return Classification{
			FQCN:    after.FQCN,
			Details: []Detail{{Kind: ClassAdded, Class: after.FQCN}},
			Verdict: types.VerdictSignature,
		}
	case after == nil:
		return Classification{
			FQCN:    before.FQCN,
			Details: []Detail{{Kind: ClassRemoved, Class: before.FQCN}},
			Verdict: types.VerdictSignature,
		}
	}

	d := &differ{class: after.FQCN}
	d.classLevel(before, after)
	d.methods(before, after)
	d.properties(before, after)
	d.constants(before, after)

	return Classification{
		FQCN:    after.FQCN,
		Details: d.details,
		Verdict: verdictOf(d.details),
	}
}

func verdictOf(details []Detail) types.Verdict {
	v := types.VerdictCosmetic
	for _, d := range details {
		if d.Kind.IsBehavioral() {
			v = v.Max(types.VerdictLogic)
		} else {
			v = v.Max(types.VerdictSignature)
		}
	}
	return v
}

type differ struct {
	class   string
	details []Detail
}

func (d *differ) add(kind DetailKind, member, extra string) {
	d.details = append(d.details, Detail{Kind: kind, Class: d.class, Member: member, Extra: extra})
}

func (d *differ) classLevel(before, after *types.ClassLikeInfo) {
	if before.Kind != after.Kind {
		d.add(ClassKindChanged, "", fmt.Sprintf("%s -> %s", before.Kind, after.Kind))
	}
	if !before.IsFinal && after.IsFinal {
		d.add(ClassMadeFinal, "", "")
	}
	if !before.IsAbstract && after.IsAbstract {
		d.add(ClassMadeAbstract, "", "")
	}
	if after.Kind == types.KindInterface {
		for _, p := range missing(before.Parents, after.Parents) {
			d.add(InterfaceRemoved, "", p)
		}
		for _, p := range missing(after.Parents, before.Parents) {
			d.add(InterfaceAdded, "", p)
		}
	} else if !strings.EqualFold(before.Parent(), after.Parent()) {
		d.add(ParentChanged, "", fmt.Sprintf("%s -> %s", orNone(before.Parent()), orNone(after.Parent())))
	}
	for _, i := range missing(before.Interfaces, after.Interfaces) {
		d.add(InterfaceRemoved, "", i)
	}
	for _, i := range missing(after.Interfaces, before.Interfaces) {
		d.add(InterfaceAdded, "", i)
	}
	for _, t := range missing(before.Traits, after.Traits) {
		d.add(TraitRemoved, "", t)
	}
	for _, t := range missing(after.Traits, before.Traits) {
		d.add(TraitAdded, "", t)
	}
}

func (d *differ) methods(before, after *types.ClassLikeInfo) {
	for _, old := range before.Methods {
		cur, ok := after.Method(old.Name)
		if !ok {
			d.add(MethodRemoved, old.Name, "")
			continue
		}
		d.method(old, cur)
	}
	for _, cur := range after.Methods {
		if _, ok := before.Method(cur.Name); !ok {
			d.add(MethodAdded, cur.Name, "")
		}
	}
}

func (d *differ) method(old, cur types.MethodInfo) {
	name := cur.Name
	if old.IsConstructor() && !old.SignatureEquals(cur) {
		d.add(ConstructorChanged, types.ConstructorName, "")
	}

	switch {
	case cur.Visibility.Rank() < old.Visibility.Rank():
		d.add(MethodVisibilityLoosened, name, fmt.Sprintf("%s -> %s", old.Visibility, cur.Visibility))
	case cur.Visibility.Rank() > old.Visibility.Rank():
		d.add(MethodVisibilityTightened, name, fmt.Sprintf("%s -> %s", old.Visibility, cur.Visibility))
	}
	if !old.IsStatic && cur.IsStatic {
		d.add(MethodMadeStatic, name, "")
	}
	if old.IsStatic && !cur.IsStatic {
		d.add(MethodMadeNonStatic, name, "")
	}
	if !old.IsAbstract && cur.IsAbstract {
		d.add(MethodMadeAbstract, name, "")
	}
	if !old.IsFinal && cur.IsFinal {
		d.add(MethodMadeFinal, name, "")
	}

	d.params(name, old.Params, cur.Params)

	switch {
	case old.ReturnType == "" && cur.ReturnType != "":
		d.add(MethodReturnTypeAdded, name, cur.ReturnType)
	case old.ReturnType != "" && cur.ReturnType == "":
		d.add(MethodReturnTypeRemoved, name, old.ReturnType)
	case old.ReturnType != cur.ReturnType:
		d.add(MethodReturnTypeChanged, name, fmt.Sprintf("%s -> %s", old.ReturnType, cur.ReturnType))
	}

	if !old.BodyEquals(cur) {
		d.add(MethodBodyChanged, name, "")
	}
}

// params compares parameter lists position by position.
func (d *differ) params(method string, old, cur []types.ParamInfo) {
	shared := min(len(old), len(cur))
	for i := 0; i < shared; i++ {
		o, c := old[i], cur[i]
		if o.Name != c.Name {
			d.add(MethodParamRenamed, method, fmt.Sprintf("$%s -> $%s", o.Name, c.Name))
		}
		if o.Type != c.Type {
			d.add(MethodParamTypeChanged, method, fmt.Sprintf("$%s: %s -> %s", c.Name, orNone(o.Type), orNone(c.Type)))
		}
		if o.IsVariadic != c.IsVariadic {
			d.add(MethodParamVariadicChanged, method, "$"+c.Name)
		}
		if o.IsByRef != c.IsByRef {
			d.add(MethodParamByRefChanged, method, "$"+c.Name)
		}
		if o.HasDefault && !c.HasDefault && !c.IsVariadic {
			d.add(MethodParamMadeRequired, method, "$"+c.Name)
		}
		if !o.HasDefault && c.HasDefault {
			d.add(MethodParamMadeOptional, method, "$"+c.Name)
		}
	}
	for _, c := range cur[shared:] {
		if c.IsRequired() {
			d.add(MethodParamAdded, method, "$"+c.Name)
		} else {
			d.add(MethodOptionalParamAdded, method, "$"+c.Name)
		}
	}
	for _, o := range old[shared:] {
		d.add(MethodParamRemoved, method, "$"+o.Name)
	}
}

func (d *differ) properties(before, after *types.ClassLikeInfo) {
	for _, old := range before.Properties {
		cur, ok := after.Property(old.Name)
		if !ok {
			d.add(PropertyRemoved, old.Name, "")
			continue
		}
		name := old.Name
		if old.Type != cur.Type {
			d.add(PropertyTypeChanged, name, fmt.Sprintf("%s -> %s", orNone(old.Type), orNone(cur.Type)))
		}
		switch {
		case cur.Visibility.Rank() < old.Visibility.Rank():
			d.add(PropertyVisibilityLoosened, name, fmt.Sprintf("%s -> %s", old.Visibility, cur.Visibility))
		case cur.Visibility.Rank() > old.Visibility.Rank():
			d.add(PropertyVisibilityTightened, name, fmt.Sprintf("%s -> %s", old.Visibility, cur.Visibility))
		}
		if !old.IsStatic && cur.IsStatic {
			d.add(PropertyMadeStatic, name, "")
		}
		if old.IsStatic && !cur.IsStatic {
			d.add(PropertyMadeNonStatic, name, "")
		}
		if !old.IsReadonly && cur.IsReadonly {
			d.add(PropertyMadeReadonly, name, "")
		}
		if old.IsReadonly && !cur.IsReadonly {
			d.add(PropertyMadeNonReadonly, name, "")
		}
		if !old.ValueEquals(cur) {
			d.add(PropertyDefaultChanged, name, "")
		}
	}
	for _, cur := range after.Properties {
		if _, ok := before.Property(cur.Name); !ok {
			d.add(PropertyAdded, cur.Name, "")
		}
	}
}

func (d *differ) constants(before, after *types.ClassLikeInfo) {
	for _, old := range before.Constants {
		cur, ok := after.Constant(old.Name)
		if !ok {
			d.add(ConstantRemoved, old.Name, "")
			continue
		}
		name := old.Name
		if old.Type != cur.Type {
			d.add(ConstantTypeChanged, name, fmt.Sprintf("%s -> %s", orNone(old.Type), orNone(cur.Type)))
		}
		switch {
		case cur.Visibility.Rank() < old.Visibility.Rank():
			d.add(ConstantVisibilityLoosened, name, fmt.Sprintf("%s -> %s", old.Visibility, cur.Visibility))
		case cur.Visibility.Rank() > old.Visibility.Rank():
			d.add(ConstantVisibilityTightened, name, fmt.Sprintf("%s -> %s", old.Visibility, cur.Visibility))
		}
		if !old.IsFinal && cur.IsFinal {
			d.add(ConstantMadeFinal, name, "")
		}
		if !old.ValueEquals(cur) {
			d.add(ConstantValueChanged, name, "")
		}
	}
	for _, cur := range after.Constants {
		if _, ok := before.Constant(cur.Name); !ok {
			d.add(ConstantAdded, cur.Name, "")
		}
	}
}

// missing returns the entries of a that are absent from b, compared case-insensitively.
func missing(a, b []string) []string {
	var out []string
	for _, x := range a {
		found := false
		for _, y := range b {
			if strings.EqualFold(x, y) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, x)
		}
	}
	return out
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// FileClassification is the per-file outcome of ClassifyFile.
type FileClassification struct {
	Path        string             `json:"path"`
	Classes     []Classification   `json:"classes"`
	Verdict     types.Verdict      `json:"verdict"`
	Diagnostics []types.Diagnostic `json:"diagnostics,omitempty"`
}

// Classifier classifies whole files.
type Classifier struct {
	parser *parser.PHPParser
}

func NewClassifier(pp *parser.PHPParser) *Classifier {
	return &Classifier{parser: pp}
}

// ClassifyFile compares every declaration of two versions of one file. A nil
// side means the file does not exist in that version. When either side fails
// to parse the whole file is treated as a logic change and a diagnostic is
// recorded instead of a per-class comparison.
func (c *Classifier) ClassifyFile(path string, before, after []byte) FileClassification {
	out := FileClassification{Path: path, Verdict: types.VerdictCosmetic}

	var beforeClasses, afterClasses []types.ClassLikeInfo
	for _, side := range []struct {
		label   string
		content []byte
		dst     *[]types.ClassLikeInfo
	}{
		{"before", before, &beforeClasses},
		{"after", after, &afterClasses},
	} {
		if side.content == nil {
			continue
		}
		classes, err := c.parser.Extract(path, side.content)
		if err != nil {
			out.Diagnostics = append(out.Diagnostics, types.Diagnostic{
				Path:    path,
				Message: fmt.Sprintf("%s version unparsable: %v", side.label, err),
			})
			continue
		}
		*side.dst = classes
	}
	if len(out.Diagnostics) > 0 {
		out.Verdict = types.VerdictLogic
		return out
	}

	afterByName := indexByFQCN(afterClasses)
	seen := map[string]bool{}
	for i := range beforeClasses {
		b := &beforeClasses[i]
		seen[b.FQCN] = true
		cls := Classify(b, afterByName[b.FQCN])
		if len(cls.Details) > 0 {
			out.Classes = append(out.Classes, cls)
			out.Verdict = out.Verdict.Max(cls.Verdict)
		}
	}
	for i := range afterClasses {
		a := &afterClasses[i]
		if seen[a.FQCN] {
			continue
		}
		cls := Classify(nil, a)
		out.Classes = append(out.Classes, cls)
		out.Verdict = out.Verdict.Max(cls.Verdict)
	}
	return out
}

func indexByFQCN(classes []types.ClassLikeInfo) map[string]*types.ClassLikeInfo {
	m := make(map[string]*types.ClassLikeInfo, len(classes))
	for i := range classes {
		m[classes[i].FQCN] = &classes[i]
	}
	return m
}
