package phpast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"empty", "", ""},
		{"builtin", "int", "int"},
		{"builtin mixed case", "String", "string"},
		{"leading separator", `\Foo\Bar`, `Foo\Bar`},
		{"nullable", "?int", "int|null"},
		{"union sorted", "B|A", "A|B"},
		{"union with spaces", "string | int", "int|string"},
		{"intersection sorted", "Countable&ArrayAccess", "ArrayAccess&Countable"},
		{"dnf", "(B&A)|null", "(A&B)|null"},
		{"duplicate members", "int|int", "int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeType(tt.raw, nil))
		})
	}
}

func TestNormalizeType_ResolvesNames(t *testing.T) {
	ctx := NewNameContext(`App\Http`)
	ctx.AddUse(`Vendor\Http\Request`, "")

	assert.Equal(t, `Vendor\Http\Request`, NormalizeType("Request", ctx.Resolve))
	assert.Equal(t, `App\Http\Response|null`, NormalizeType("?Response", ctx.Resolve))
	assert.Equal(t, "self", NormalizeType("self", ctx.Resolve))
}

func TestTypesEqual(t *testing.T) {
	assert.True(t, TypesEqual("A|B", "B|A"))
	assert.True(t, TypesEqual(`\A|B`, "B|A"))
	assert.True(t, TypesEqual("A&B", "B&A"))
	assert.True(t, TypesEqual("", ""))
	assert.False(t, TypesEqual("A|B", "A|C"))
	assert.False(t, TypesEqual("A", ""))
}
