package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		text    string
		outputs []string
		inputs  []string
	}{
		{"c : a, b", []string{"c"}, []string{"a", "b"}},
		{"x,y:z", []string{"x", "y"}, []string{"z"}},
		{"  a , b ", nil, []string{"a", "b"}},
		{" : a", nil, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			spec, err := ParseSpec(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.outputs, spec.Outputs)
			assert.Equal(t, tt.inputs, spec.Inputs)
		})
	}
}

func TestParseSpecInvalid(t *testing.T) {
	for _, text := range []string{"", "c :", "a : b : c", "a, , b", "c : a, a", "x, x : a", "c : a b"} {
		t.Run(text, func(t *testing.T) {
			_, err := ParseSpec(text)
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestSpecBuilderAndString(t *testing.T) {
	spec := In("a", "b").Out("c")
	assert.Equal(t, MustSpec("c : a, b"), spec)
	assert.Equal(t, "c : a, b", spec.String())
	assert.Equal(t, "a", In("a").String())
}

func TestRegisterInvalidSpecPanics(t *testing.T) {
	g := quiet()
	assert.Panics(t, func() {
		g.Flow(In(), func(context.Context, Args) (Result, error) { return NoOutput(), nil })
	})
	assert.Panics(t, func() {
		g.Flow(In("a").Out("b", "b"), func(context.Context, Args) (Result, error) { return NoOutput(), nil })
	})
	assert.Panics(t, func() { MustSpec("a : ") })
	assert.Panics(t, func() { g.Flow(In("a"), nil) })
}

func TestCheckOrder(t *testing.T) {
	noop := func(context.Context, Args) (Result, error) { return NoOutput(), nil }

	g := quiet().
		Inputs(map[string]any{"a": 1}).
		Flow(MustSpec("b : a"), noop).
		Flow(MustSpec("c : b"), noop)
	assert.NoError(t, g.CheckOrder())

	g.Flow(MustSpec("e : d"), noop).Flow(MustSpec("d : a"), noop)
	err := g.CheckOrder()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnorderedInput)
	assert.Contains(t, err.Error(), `reads "d"`)
}

func TestArgs(t *testing.T) {
	args := Args{
		names:   []string{"n", "s"},
		values:  []any{3, "x"},
		changed: []bool{true, false},
	}

	assert.Equal(t, 2, args.Len())
	assert.Equal(t, "s", args.Name(1))
	assert.Equal(t, 3, Get[int](args, 0))
	assert.Equal(t, "", Get[string](args, 0))
	assert.True(t, args.Changed(0))
	assert.False(t, args.Changed(1))

	s, ok := Lookup[string](args, "s")
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	_, ok = Lookup[int](args, "missing")
	assert.False(t, ok)

	values := args.Values()
	values[0] = 99
	assert.Equal(t, 3, args.Value(0))
}
