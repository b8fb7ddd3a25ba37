package resolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agusespa/upgradescope/internal/bcfilter"
	"github.com/agusespa/upgradescope/internal/classify"
	"github.com/agusespa/upgradescope/internal/parser"
	"github.com/agusespa/upgradescope/internal/types"
	"github.com/agusespa/upgradescope/internal/usage"
)

func method(name string, params ...types.ParamInfo) types.MethodInfo {
	return types.MethodInfo{Name: name, Visibility: types.Public, Params: params}
}

func param(name, typ string) types.ParamInfo {
	return types.ParamInfo{Name: name, Type: typ}
}

func optional(name, typ string) types.ParamInfo {
	return types.ParamInfo{Name: name, Type: typ, HasDefault: true}
}

func TestSignatureCompatible(t *testing.T) {
	vendor := method("save", param("a", "int"), param("b", "A|B"))

	ok, _ := SignatureCompatible(vendor, method("save", param("x", "int"), param("y", `B|\A`)))
	assert.True(t, ok, "two matching-typed params resolve regardless of names and union order")

	ok, note := SignatureCompatible(vendor, method("save", param("a", "int")))
	assert.False(t, ok)
	assert.Contains(t, note, "required params: vendor 2, consumer 1")

	ok, note = SignatureCompatible(vendor, method("save", param("a", "int"), param("b", "A|C")))
	assert.False(t, ok)
	assert.Contains(t, note, "param 2 type")

	ok, _ = SignatureCompatible(method("f", param("a", "")), method("f", param("a", "")))
	assert.True(t, ok)

	ok, _ = SignatureCompatible(method("f", param("a", "int")), method("f", param("a", "")))
	assert.False(t, ok)

	ok, _ = SignatureCompatible(vendor, method("save", param("a", "int"), param("b", "A|B"), optional("c", "int")))
	assert.True(t, ok, "extra optional params do not change the required count")
}

func TestArgumentsCompatible(t *testing.T) {
	vendor := method("send", param("to", "string"), param("body", "string"), optional("cc", "array"))

	tests := []struct {
		name     string
		site     types.CallSite
		resolved bool
		note     string
	}{
		{"positional sufficient", types.CallSite{Positional: 2}, true, "2 args"},
		{"positional insufficient", types.CallSite{Positional: 1}, false, "insufficient argument count"},
		{"named complete", types.CallSite{Named: []string{"body", "to"}}, true, "named arguments"},
		{"mixed complete", types.CallSite{Positional: 1, Named: []string{"body"}}, true, "named arguments"},
		{"positional covers both required", types.CallSite{Positional: 2, Named: []string{"cc"}}, true, "named arguments"},
		{"mixed missing after positional", types.CallSite{Positional: 1, Named: []string{"cc"}}, false, "missing required: $body"},
		{"named missing", types.CallSite{Named: []string{"to"}}, false, "missing required: $body"},
		{"named unknown", types.CallSite{Positional: 2, Named: []string{"bcc"}}, false, "unknown named: $bcc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, note := ArgumentsCompatible(vendor, tt.site)
			assert.Equal(t, tt.resolved, ok)
			assert.Contains(t, note, tt.note)
		})
	}

	variadic := method("log", param("msg", "string"), types.ParamInfo{Name: "ctx", IsVariadic: true})
	ok, _ := ArgumentsCompatible(variadic, types.CallSite{Named: []string{"msg", "extra"}})
	assert.True(t, ok, "a variadic vendor parameter collects unknown names")
}

func TestParamDiff(t *testing.T) {
	diff := ParamDiff(
		[]types.ParamInfo{param("a", "int"), param("b", "string")},
		[]types.ParamInfo{param("a", "int")},
	)
	assert.Equal(t, []string{"  int $a", "+ string $b"}, diff)

	diff = ParamDiff(
		[]types.ParamInfo{param("a", "int")},
		[]types.ParamInfo{param("a", "string")},
	)
	assert.Equal(t, []string{"- string $a", "+ int $a"}, diff)
}

// scenario extracts vendor and consumer, runs usage analysis and checks the pair.
func scenario(t *testing.T, vendorBefore, vendorAfter, consumer string, relation types.RelationKind) []types.Item {
	t.Helper()
	pp, err := parser.NewPHPParser()
	require.NoError(t, err)
	defer pp.Close()

	before, err := pp.Extract("vendor.php", []byte(vendorBefore))
	require.NoError(t, err)
	after, err := pp.Extract("vendor.php", []byte(vendorAfter))
	require.NoError(t, err)
	cls := classify.Classify(&before[0], &after[0])
	summary := bcfilter.Summarize(cls.Details)

	f, err := pp.Parse("consumer.php", []byte(consumer))
	require.NoError(t, err)
	defer f.Close()
	decl := f.Declarations[0]
	dependent := parser.ExtractDeclaration(decl, f.Source)

	u := usage.Analyze(usage.Target{
		FQCN:               after[0].FQCN,
		Changed:            summary.ChangedMethods,
		ConstructorChanged: summary.ConstructorChanged,
	}, decl, f.Source, relation)

	return CheckUsage(Pair{
		Vendor:          &after[0],
		Dependent:       &dependent,
		DependentSource: f.Source,
		Relation:        relation,
		Usage:           u,
	})
}

const twoParamVendorBefore = `<?php
namespace Vendor;
class Base { public function save(int $a) {} }
`

const twoParamVendorAfter = `<?php
namespace Vendor;
class Base { public function save(int $a, string $b) {} }
`

func TestScenario_OverrideWithTwoMatchingParams(t *testing.T) {
	items := scenario(t, twoParamVendorBefore, twoParamVendorAfter, `<?php
namespace App;
class Child extends \Vendor\Base { public function save(int $a, string $b) {} }
`, types.RelationExtends)

	require.Len(t, items, 1)
	assert.Equal(t, types.ItemOverride, items[0].Type)
	assert.Equal(t, `App\Child`, items[0].Dependent)
	assert.True(t, items[0].Resolved)
}

func TestScenario_OverrideWithOneParam(t *testing.T) {
	items := scenario(t, twoParamVendorBefore, twoParamVendorAfter, `<?php
namespace App;
class Child extends \Vendor\Base { public function save(int $a) {} }
`, types.RelationExtends)

	require.Len(t, items, 1)
	assert.False(t, items[0].Resolved)
	assert.Equal(t, []string{"  int $a", "+ string $b"}, items[0].ParamDiff)
}

func TestScenario_NamedCallMissingRequired(t *testing.T) {
	items := scenario(t, twoParamVendorBefore, twoParamVendorAfter, `<?php
namespace App;
class User { public function run(\Vendor\Base $b) { $b->save(a: 1); } }
`, types.RelationReference)

	require.Len(t, items, 1)
	assert.Equal(t, types.ItemInstanceCall, items[0].Type)
	assert.False(t, items[0].Resolved)
	assert.Contains(t, items[0].Note, "missing required")
}

func TestScenario_PositionalCallSufficient(t *testing.T) {
	items := scenario(t, twoParamVendorBefore, twoParamVendorAfter, `<?php
namespace App;
class User { public function run(\Vendor\Base $b) { $b->save($whatever, $names); } }
`, types.RelationReference)

	require.Len(t, items, 1)
	assert.True(t, items[0].Resolved)
}

func TestScenario_SpreadNeedsManualCheck(t *testing.T) {
	items := scenario(t, twoParamVendorBefore, twoParamVendorAfter, `<?php
namespace App;
class User { public function run(\Vendor\Base $b, array $args) { $b->save(...$args); } }
`, types.RelationReference)

	require.Len(t, items, 1)
	assert.False(t, items[0].Resolved)
	assert.Contains(t, items[0].Note, "check arg count manually")
}

const ctorVendorBefore = `<?php
namespace Vendor;
class Base { public function __construct(string $a) {} }
`

const ctorVendorAfter = `<?php
namespace Vendor;
class Base { public function __construct(string $a, string $b) {} }
`

func TestScenario_ConstructorChangeWithoutTouch(t *testing.T) {
	items := scenario(t, ctorVendorBefore, ctorVendorAfter, `<?php
namespace App;
class Child extends \Vendor\Base { public function run() {} }
`, types.RelationExtends)

	assert.Empty(t, items)
}

func TestScenario_ConstructorInstantiationInsufficient(t *testing.T) {
	items := scenario(t, ctorVendorBefore, ctorVendorAfter, `<?php
namespace App;
use Vendor\Base;
class Child extends Base { public function make() { return new Base('x'); } }
`, types.RelationExtends)

	require.Len(t, items, 1)
	assert.Equal(t, types.ItemInstantiation, items[0].Type)
	assert.False(t, items[0].Resolved)
	assert.Contains(t, items[0].Note, "insufficient argument count")
}

func TestScenario_ConstructorOverride(t *testing.T) {
	items := scenario(t, ctorVendorBefore, ctorVendorAfter, `<?php
namespace App;
class Child extends \Vendor\Base {
    public function __construct() { parent::__construct('a', 'b'); }
}
`, types.RelationExtends)

	require.Len(t, items, 2)
	assert.Equal(t, types.ItemCtorOverride, items[0].Type)
	assert.True(t, items[0].Resolved)
	assert.Equal(t, types.ItemCtorParentCall, items[1].Type)
	assert.True(t, items[1].Resolved)
}

func TestScenario_FinalOverride(t *testing.T) {
	items := scenario(t,
		"<?php\nnamespace Vendor;\nclass Base { public function save() {} }\n",
		"<?php\nnamespace Vendor;\nclass Base { final public function save() {} }\n",
		"<?php\nnamespace App;\nclass Child extends \\Vendor\\Base { public function save() {} }\n",
		types.RelationExtends)

	require.Len(t, items, 1)
	assert.Equal(t, types.ItemFinalOverride, items[0].Type)
	assert.False(t, items[0].Resolved)
}

func TestScenario_InterfaceImplementation(t *testing.T) {
	items := scenario(t,
		"<?php\nnamespace Vendor;\ninterface Shape { public function area(): float; }\n",
		"<?php\nnamespace Vendor;\ninterface Shape { public function area(int $scale): float; }\n",
		"<?php\nnamespace App;\nclass Square implements \\Vendor\\Shape { public function area(): float { return 1.0; } }\n",
		types.RelationImplements)

	require.Len(t, items, 1)
	assert.Equal(t, types.ItemInterfaceImpl, items[0].Type)
	assert.False(t, items[0].Resolved)
}

func TestCheckUsage_VendorMethodMissing(t *testing.T) {
	u := types.NewUsageInfo()
	u.Calls = append(u.Calls, types.CallSite{Kind: types.CallInstance, Method: "gone", Line: 3})
	u.InstanceCalled["gone"] = struct{}{}

	items := CheckUsage(Pair{
		Vendor:    &types.ClassLikeInfo{FQCN: `Vendor\A`},
		Dependent: &types.ClassLikeInfo{FQCN: `App\B`},
		Relation:  types.RelationReference,
		Usage:     u,
	})
	require.Len(t, items, 1)
	assert.False(t, items[0].Resolved)
	assert.Equal(t, "line 3: vendor method not found", items[0].Note)
}

func TestCheckUsage_NoUsage(t *testing.T) {
	assert.Nil(t, CheckUsage(Pair{
		Vendor:    &types.ClassLikeInfo{},
		Dependent: &types.ClassLikeInfo{},
		Usage:     types.NewUsageInfo(),
	}))
}

func TestCheckRemovedMembers(t *testing.T) {
	src := []byte(`<?php
class C {
    public function run($o) {
        $o->legacyCall();
        return $o->count + self::LIMIT;
    }
}
`)
	removals := classify.ParseDetails([]string{
		`Method removed: V\A::LegacyCall`,
		`Method removed: V\A::legacy`,
		`Property removed: V\A::$count`,
		`Property removed: V\A::$run`,
		`Constant removed: V\A::LIMIT`,
		`Constant removed: V\A::limit`,
	})

	items := CheckRemovedMembers(removals, `App\C`, types.RelationReference, src)
	require.Len(t, items, 6)

	byMember := map[string]types.Item{}
	for _, it := range items {
		byMember[it.Member] = it
	}
	assert.False(t, byMember["LegacyCall"].Resolved, "method match is case-insensitive")
	assert.Contains(t, byMember["LegacyCall"].Note, "line 4")
	assert.True(t, byMember["legacy"].Resolved, "word boundary")
	assert.False(t, byMember["$count"].Resolved)
	assert.True(t, byMember["$run"].Resolved, "a method named run is not the property")
	assert.False(t, byMember["LIMIT"].Resolved)
	assert.True(t, byMember["limit"].Resolved, "constants are case-sensitive")
}

func TestCheckDeletedClass(t *testing.T) {
	unresolved := CheckDeletedClass(`Vendor\Old`, `App\A`, types.RelationReference,
		[]byte("<?php\nnamespace App;\nclass A {\n  // still mentions Old here\n}\n"))
	assert.False(t, unresolved.Resolved)
	assert.Contains(t, unresolved.Note, "line 4")

	resolved := CheckDeletedClass(`Vendor\Old`, `App\A`, types.RelationReference,
		[]byte("<?php\nnamespace App;\nclass A { public function Older() {} }\n"))
	assert.True(t, resolved.Resolved)
	assert.Equal(t, types.ItemDeletedClass, resolved.Type)
}

func TestCheckClassFinal(t *testing.T) {
	_, ok := CheckClassFinal(&types.ClassLikeInfo{FQCN: "A"}, "B")
	assert.False(t, ok)

	it, ok := CheckClassFinal(&types.ClassLikeInfo{FQCN: "A", IsFinal: true}, "B")
	require.True(t, ok)
	assert.Equal(t, types.ItemClassFinal, it.Type)
	assert.False(t, it.Resolved)
}
