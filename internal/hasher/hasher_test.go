package hasher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agusespa/upgradescope/internal/hasher"
	"github.com/agusespa/upgradescope/internal/parser"
)

func digestOf(t *testing.T, code string) string {
	t.Helper()
	pp, err := parser.NewPHPParser()
	require.NoError(t, err)
	defer pp.Close()

	f, err := pp.Parse("x.php", []byte(code))
	require.NoError(t, err)
	defer f.Close()
	return hasher.Digest(f.Root, f.Source)
}

func TestDigest_Deterministic(t *testing.T) {
	code := "<?php\n$a = foo($b, [1, 2]);\n"
	assert.Equal(t, digestOf(t, code), digestOf(t, code))
	assert.NotEmpty(t, digestOf(t, code))
}

func TestDigest_Equivalences(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"whitespace", "<?php\n$a=1+2;", "<?php\n$a  =  1\n  + 2 ;"},
		{"line comment", "<?php\n$a = 1;", "<?php\n// set a\n$a = 1;"},
		{"block comment", "<?php\n$a = f(1);", "<?php\n$a = f(/* one */ 1);"},
		{"override marker", "<?php\nclass A { function f() {} }", "<?php\nclass A { #[\\Override] function f() {} }"},
		{"array syntax", "<?php\n$a = array(1, 2);", "<?php\n$a = [1, 2];"},
		{"quote style", "<?php\n$a = 'text';", "<?php\n$a = \"text\";"},
		{"redundant parens", "<?php\n$a = ($b);", "<?php\n$a = $b;"},
		{"numeric separators", "<?php\n$a = 1_000;", "<?php\n$a = 1000;"},
		{"declare pragma", "<?php\n$a = 1;", "<?php\ndeclare(strict_types=1);\n$a = 1;"},
		{"trailing comma", "<?php\nf($a, $b);", "<?php\nf($a, $b,);"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, digestOf(t, tt.a), digestOf(t, tt.b))
		})
	}
}

func TestDigest_Differences(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"operator", "<?php\n$a = $b + 1;", "<?php\n$a = $b - 1;"},
		{"call target", "<?php\nfoo($a);", "<?php\nbar($a);"},
		{"method target", "<?php\n$x->save();", "<?php\n$x->store();"},
		{"argument order", "<?php\nf($a, $b);", "<?php\nf($b, $a);"},
		{"literal value", "<?php\n$a = 'x';", "<?php\n$a = 'y';"},
		{"escape vs literal", "<?php\n$a = 'a\\n';", "<?php\n$a = \"a\\n\";"},
		{"variable name", "<?php\n$a = 1;", "<?php\n$b = 1;"},
		{"named argument", "<?php\nf(a: 1);", "<?php\nf(b: 1);"},
		{"static vs instance", "<?php\nA::f();", "<?php\n$a->f();"},
		{"nullsafe", "<?php\n$a?->f();", "<?php\n$a->f();"},
		{"increment position", "<?php\n$i++;", "<?php\n++$i;"},
		{"cast", "<?php\n$a = (int) $b;", "<?php\n$a = (string) $b;"},
		{"array keys", "<?php\n$a = ['k' => 1];", "<?php\n$a = ['j' => 1];"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, digestOf(t, tt.a), digestOf(t, tt.b))
		})
	}
}

func TestDigest_Nil(t *testing.T) {
	assert.Equal(t, "", hasher.Digest(nil, nil))
	assert.Equal(t, "", hasher.DigestString(""))
	assert.Equal(t, "", hasher.DigestAll(nil, nil))
}
