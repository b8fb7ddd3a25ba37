package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agusespa/upgradescope/internal/bcfilter"
	"github.com/agusespa/upgradescope/internal/parser"
	"github.com/agusespa/upgradescope/internal/types"
)

func analyzeSource(t *testing.T, target Target, relation types.RelationKind, code string) *types.UsageInfo {
	t.Helper()
	pp, err := parser.NewPHPParser()
	require.NoError(t, err)
	defer pp.Close()

	f, err := pp.Parse("consumer.php", []byte(code))
	require.NoError(t, err)
	defer f.Close()
	require.Len(t, f.Declarations, 1)
	return Analyze(target, f.Declarations[0], f.Source, relation)
}

func changed(names ...string) bcfilter.MethodSet {
	s := bcfilter.MethodSet{}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

func TestAnalyze_Extends(t *testing.T) {
	target := Target{FQCN: `Vendor\Base`, Changed: changed("__construct", "save", "load"), ConstructorChanged: true}
	u := analyzeSource(t, target, types.RelationExtends, `<?php
namespace App;
use Vendor\Base;
class Child extends Base
{
    public function __construct() { parent::__construct('a', b: 2); }
    public function SAVE($x) { return parent::save($x, ...$rest); }
    public function other() { return static::load(); }
    public function untouched() { return $this->keep(); }
}
`)

	assert.True(t, u.HasAnyUsage())
	assert.True(t, u.OverridesConstructor)
	assert.False(t, u.CallsConstructor)
	assert.Equal(t, []string{"save"}, types.SortedKeys(u.OverriddenMethods))
	assert.Equal(t, []string{"__construct", "save"}, types.SortedKeys(u.ParentCalledMethods))
	assert.Equal(t, []string{"load"}, types.SortedKeys(u.StaticCalled))
	assert.Empty(t, u.InstanceCalled)

	ctorCalls := u.CallsTo(types.CallParent, "__construct")
	require.Len(t, ctorCalls, 1)
	assert.Equal(t, 1, ctorCalls[0].Positional)
	assert.Equal(t, []string{"b"}, ctorCalls[0].Named)

	saveCalls := u.CallsTo(types.CallParent, "save")
	require.Len(t, saveCalls, 1)
	assert.Equal(t, 1, saveCalls[0].Positional)
	assert.True(t, saveCalls[0].Unpacked)
}

func TestAnalyze_ConstructorOnlyTriggersOnTouch(t *testing.T) {
	target := Target{FQCN: `Vendor\Base`, Changed: changed("__construct"), ConstructorChanged: true}

	u := analyzeSource(t, target, types.RelationExtends, `<?php
namespace App;
class Child extends \Vendor\Base
{
    public function run() { return 1; }
}
`)
	assert.False(t, u.HasAnyUsage())
	assert.Empty(t, u.Calls)

	u = analyzeSource(t, target, types.RelationExtends, `<?php
namespace App;
use Vendor\Base;
class Child extends Base
{
    public function make() { return new Base('x'); }
}
`)
	assert.True(t, u.CallsConstructor)
	calls := u.CallsTo(types.CallNew, "__construct")
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].Positional)
}

func TestAnalyze_Reference(t *testing.T) {
	target := Target{FQCN: `Vendor\Client`, Changed: changed("send", "make")}
	u := analyzeSource(t, target, types.RelationReference, `<?php
namespace App;
use Vendor\Client as Http;
class Service
{
    public function send() {}
    public function run(Http $c)
    {
        Http::make(1, 2);
        \Other\Client::make();
        $c->send('x');
        $c?->SEND();
        $c->other();
    }
}
`)
	assert.Empty(t, u.OverriddenMethods, "declarations outside an extends relation are not overrides")
	assert.Equal(t, []string{"make"}, types.SortedKeys(u.StaticCalled))
	assert.Equal(t, []string{"send"}, types.SortedKeys(u.InstanceCalled))
	assert.Len(t, u.CallsTo(types.CallStatic, "make"), 1)
	assert.Len(t, u.CallsTo(types.CallInstance, "send"), 2)
}

func TestAnalyze_Implements(t *testing.T) {
	target := Target{FQCN: `Vendor\Shape`, Changed: changed("area")}
	u := analyzeSource(t, target, types.RelationImplements, `<?php
namespace App;
class Square implements \Vendor\Shape
{
    public function area(int $scale): float { return 1.0; }
    public function name(): string { return 'square'; }
}
`)
	assert.True(t, u.ImplementsInterface)
	assert.Equal(t, []string{"area"}, types.SortedKeys(u.ImplementedMethods))
	assert.Empty(t, u.OverriddenMethods)
}

func TestAnalyze_TraitUse(t *testing.T) {
	target := Target{FQCN: `Vendor\Helpers`, Changed: changed("help")}
	u := analyzeSource(t, target, types.RelationTraitUse, `<?php
namespace App;
class Tool
{
    use \Vendor\Helpers;
    public function help() {}
}
`)
	assert.True(t, u.UsesTrait)
	assert.Equal(t, []string{"help"}, types.SortedKeys(u.OverriddenMethods))
}

func TestAnalyze_NoChangedMethods(t *testing.T) {
	u := analyzeSource(t, Target{FQCN: `Vendor\Base`}, types.RelationExtends, `<?php
class Child extends Vendor\Base { public function f() { parent::f(); $this->g(); } }
`)
	assert.False(t, u.HasAnyUsage())
}

func TestAnalyze_CaseInsensitiveClassNames(t *testing.T) {
	target := Target{FQCN: `Vendor\Client`, Changed: changed("__construct", "make"), ConstructorChanged: true}
	u := analyzeSource(t, target, types.RelationReference, `<?php
namespace App;
class Service
{
    public function run()
    {
        $c = new \vendor\CLIENT(1);
        \VENDOR\client::make();
    }
}
`)
	assert.True(t, u.CallsConstructor)
	assert.Equal(t, []string{"make"}, types.SortedKeys(u.StaticCalled))
}
