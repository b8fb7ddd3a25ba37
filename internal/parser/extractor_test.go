package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agusespa/upgradescope/internal/types"
)

func TestNewPHPParser(t *testing.T) {
	parser, err := NewPHPParser()
	require.NoError(t, err)
	defer parser.Close()

	assert.Equal(t, "PHP", parser.Language())
	assert.Equal(t, []string{".php"}, parser.SupportedExtensions())
	assert.True(t, parser.Supports("src/Foo.php"))
	assert.True(t, parser.Supports("src/Foo.PHP"))
	assert.False(t, parser.Supports("src/Foo.phtml"))
}

func TestPHPParser_Extract(t *testing.T) {
	parser, err := NewPHPParser()
	require.NoError(t, err)
	defer parser.Close()

	code := []byte(`<?php
namespace Vendor\Http;

use Vendor\Contracts\Responsable;
use Vendor\Support\Macroable as Macros;

final class Response extends BaseResponse implements Responsable, \Stringable
{
    use Macros;

    public const VERSION = '1.1';
    protected static ?array $headers = null;
    private $body = 'x', $status = 200;

    public function __construct(private readonly string $content, int $status = 200) {}

    public static function make(string $content, ?Request $request = null, ...$rest): static
    {
        return new static($content);
    }

    abstract protected function send(array &$out);
}
`)

	classes, err := parser.Extract("Response.php", code)
	require.NoError(t, err)
	require.Len(t, classes, 1)

	c := classes[0]
	assert.Equal(t, "Response", c.Name)
	assert.Equal(t, `Vendor\Http\Response`, c.FQCN)
	assert.Equal(t, types.KindClass, c.Kind)
	assert.True(t, c.IsFinal)
	assert.Equal(t, `Vendor\Http\BaseResponse`, c.Parent())
	assert.Equal(t, []string{`Vendor\Contracts\Responsable`, "Stringable"}, c.Interfaces)
	assert.Equal(t, []string{`Vendor\Support\Macroable`}, c.Traits)

	factory, ok := c.Method("make")
	require.True(t, ok)
	assert.True(t, factory.IsStatic)
	assert.Equal(t, types.Public, factory.Visibility)
	assert.Equal(t, "static", factory.ReturnType)
	require.Len(t, factory.Params, 3)
	assert.Equal(t, "content", factory.Params[0].Name)
	assert.Equal(t, "string", factory.Params[0].Type)
	assert.True(t, factory.Params[0].IsRequired())
	assert.Equal(t, `Vendor\Http\Request|null`, factory.Params[1].Type)
	assert.True(t, factory.Params[1].HasDefault)
	assert.True(t, factory.Params[2].IsVariadic)
	assert.Equal(t, 1, factory.RequiredParamCount())
	assert.NotEmpty(t, factory.BodyDigest)

	send, ok := c.Method("send")
	require.True(t, ok)
	assert.True(t, send.IsAbstract)
	assert.Equal(t, types.Protected, send.Visibility)
	assert.Empty(t, send.BodyDigest)
	require.Len(t, send.Params, 1)
	assert.True(t, send.Params[0].IsByRef)

	ctor, ok := c.Method("__construct")
	require.True(t, ok)
	assert.True(t, ctor.IsConstructor())
	require.Len(t, ctor.Params, 2)
	assert.Equal(t, types.Private, ctor.Params[0].PromotedVisibility)
	assert.True(t, ctor.Params[0].PromotedReadonly)

	content, ok := c.Property("content")
	require.True(t, ok)
	assert.True(t, content.Promoted)
	assert.True(t, content.IsReadonly)

	headers, ok := c.Property("$headers")
	require.True(t, ok)
	assert.True(t, headers.IsStatic)
	assert.Equal(t, types.Protected, headers.Visibility)
	assert.Equal(t, "array|null", headers.Type)

	body, ok := c.Property("body")
	require.True(t, ok)
	status, ok := c.Property("status")
	require.True(t, ok)
	assert.Equal(t, types.Private, status.Visibility)
	assert.NotEqual(t, body.DefaultDigest, status.DefaultDigest)

	version, ok := c.Constant("VERSION")
	require.True(t, ok)
	assert.NotEmpty(t, version.ValueDigest)
}

func TestPHPParser_ExtractKinds(t *testing.T) {
	parser, err := NewPHPParser()
	require.NoError(t, err)
	defer parser.Close()

	code := []byte(`<?php
namespace App;

interface Shape { public function area(): float; }
trait Named { public function name(): string { return static::class; } }
enum Suit: string {
    case Hearts = 'H';
    case Spades = 'S';
}
abstract class Base {}
`)

	classes, err := parser.Extract("kinds.php", code)
	require.NoError(t, err)
	require.Len(t, classes, 4)

	byName := map[string]types.ClassLikeInfo{}
	for _, c := range classes {
		byName[c.FQCN] = c
	}

	shape := byName[`App\Shape`]
	assert.Equal(t, types.KindInterface, shape.Kind)
	area, ok := shape.Method("area")
	require.True(t, ok)
	assert.True(t, area.IsAbstract)

	assert.Equal(t, types.KindTrait, byName[`App\Named`].Kind)

	suit := byName[`App\Suit`]
	assert.Equal(t, types.KindEnum, suit.Kind)
	require.Len(t, suit.Constants, 2)
	assert.True(t, suit.Constants[0].IsEnumCase)
	assert.NotEqual(t, suit.Constants[0].ValueDigest, suit.Constants[1].ValueDigest)

	assert.True(t, byName[`App\Base`].IsAbstract)
}

func TestPHPParser_BracedNamespaces(t *testing.T) {
	parser, err := NewPHPParser()
	require.NoError(t, err)
	defer parser.Close()

	code := []byte(`<?php
namespace One {
    class A {}
}
namespace Two {
    use One\A;
    class B extends A {}
}
`)

	classes, err := parser.Extract("multi.php", code)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, `One\A`, classes[0].FQCN)
	assert.Equal(t, `Two\B`, classes[1].FQCN)
	assert.Equal(t, `One\A`, classes[1].Parent())
}

func TestPHPParser_BodyDigestIgnoresFormatting(t *testing.T) {
	parser, err := NewPHPParser()
	require.NoError(t, err)
	defer parser.Close()

	before := []byte(`<?php
class A {
    public function run($x) { return $x + 1; }
}
`)
	after := []byte(`<?php
class A {
    // Adds one.
    #[\Override]
    public function run($x)
    {
        return $x
            + 1;
    }
}
`)
	changed := []byte(`<?php
class A {
    public function run($x) { return $x - 1; }
}
`)

	b, err := parser.Extract("a.php", before)
	require.NoError(t, err)
	a, err := parser.Extract("a.php", after)
	require.NoError(t, err)
	c, err := parser.Extract("a.php", changed)
	require.NoError(t, err)

	runBefore, _ := b[0].Method("run")
	runAfter, _ := a[0].Method("run")
	runChanged, _ := c[0].Method("run")
	assert.NotEmpty(t, runBefore.BodyDigest)
	assert.Equal(t, runBefore.BodyDigest, runAfter.BodyDigest)
	assert.NotEqual(t, runBefore.BodyDigest, runChanged.BodyDigest)
}

func TestPHPParser_SyntaxError(t *testing.T) {
	parser, err := NewPHPParser()
	require.NoError(t, err)
	defer parser.Close()

	code := []byte(`<?php
namespace App;
class Broken {
    public function x( { }
}
`)

	classes, err := parser.Extract("broken.php", code)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
	assert.Nil(t, classes)

	_, err = parser.ExtractNames("broken.php", code)
	assert.True(t, errors.Is(err, ErrParse))
	assert.Contains(t, err.Error(), "broken.php")
}

func TestPHPParser_ExtractNames(t *testing.T) {
	parser, err := NewPHPParser()
	require.NoError(t, err)
	defer parser.Close()

	names, err := parser.ExtractNames("x.php", []byte("<?php\nnamespace A\\B;\nclass C {}\ninterface D {}\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{`A\B\C`, `A\B\D`}, names)
}
