package bcfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agusespa/upgradescope/internal/classify"
)

func TestBreakingDetails(t *testing.T) {
	details := classify.ParseDetails([]string{
		`Method added: V\A::g`,
		`Method return type added: V\A::f (void)`,
		`Method optional param added: V\A::f ($x)`,
		`Method visibility loosened: V\A::h (protected -> public)`,
		`Method body changed: V\A::f`,
		`Property added: V\A::$p`,
		`Method param added: V\A::f ($y)`,
		`Property removed: V\A::$q`,
		`Something new: V\A::f`,
	})

	breaking := classify.Strings(BreakingDetails(details))
	assert.Equal(t, []string{
		`Method param added: V\A::f ($y)`,
		`Property removed: V\A::$q`,
		`Something new: V\A::f`,
	}, breaking)
}

func TestRemovals(t *testing.T) {
	details := classify.ParseDetails([]string{
		`Method removed: V\A::f`,
		`Property removed: V\A::$p`,
		`Constant removed: V\A::K`,
		`Method param added: V\A::g ($y)`,
	})
	assert.Len(t, Removals(details), 3)
}

func TestChangedMethods(t *testing.T) {
	details := classify.ParseDetails([]string{
		`Constructor changed: V\A::__construct`,
		`Method param added: V\A::__construct ($b)`,
		`Method param type changed: V\A::__CONSTRUCT ($a: int -> string)`,
		`Method param added: V\A::save ($force)`,
		`Method made static: V\A::Save`,
		`Method removed: V\A::gone`,
		`Method body changed: V\A::run`,
		`Property type changed: V\A::$p (int -> string)`,
	})

	methods, ctor := ChangedMethods(details)
	assert.True(t, ctor)
	assert.Equal(t, []string{"__construct", "save"}, methods.Names())
	assert.True(t, methods.Has("SAVE"))
	assert.False(t, methods.Has("gone"))
	assert.False(t, methods.Has("run"))
}

func TestChangedMethods_ConstructorParamOnly(t *testing.T) {
	methods, ctor := ChangedMethods(classify.ParseDetails([]string{
		`Method param made required: V\A::__construct ($a)`,
	}))
	assert.True(t, ctor)
	assert.Equal(t, []string{"__construct"}, methods.Names())
}

func TestSummarize(t *testing.T) {
	s := Summarize(classify.ParseDetails([]string{
		`Method body changed: V\A::f`,
		`Method added: V\A::g`,
	}))
	assert.False(t, s.HasBreaking())
	assert.Empty(t, s.ChangedMethods)
	assert.False(t, s.ConstructorChanged)

	s = Summarize(classify.ParseDetails([]string{
		`Method removed: V\A::f`,
		`Method param removed: V\A::g ($x)`,
	}))
	require.True(t, s.HasBreaking())
	assert.Len(t, s.Removals, 1)
	assert.True(t, s.ChangedMethods.Has("g"))
}

func TestIsSafe(t *testing.T) {
	assert.True(t, IsSafe(classify.MethodBodyChanged))
	assert.False(t, IsSafe(classify.KindUnknown))
	assert.False(t, IsSafe(classify.ClassMadeFinal))
}
