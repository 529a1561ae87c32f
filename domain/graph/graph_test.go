package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autopad-go/domain/action"
	"autopad-go/domain/match"
)

func TestNew_Valid(t *testing.T) {
	states := States[string]{
		"A": {On(match.Always, nil, "B")},
		"B": {
			On(match.Never, nil, Terminal),
			On(match.Always, nil, "A"),
		},
	}

	g, err := New(states, Terminal)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"A", "B"}, g.Names())
	assert.Equal(t, Terminal, g.Terminal())
	assert.True(t, g.Has("A"))
	assert.False(t, g.Has(Terminal))

	rules, ok := g.Rules("B")
	require.True(t, ok)
	assert.Len(t, rules, 2)
	assert.Equal(t, Terminal, rules[0].Next)
}

func TestNew_MissingTarget(t *testing.T) {
	states := States[string]{
		"A": {On(match.Always, nil, "A"), On(match.Always, nil, "Z")},
	}

	_, err := New(states, Terminal)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"Z"}, ve.Missing)
	assert.Empty(t, ve.Unused)
	assert.Contains(t, err.Error(), "missing states: Z")
}

func TestNew_UnusedState(t *testing.T) {
	states := States[string]{
		"A": {On(match.Always, nil, "A")},
		"B": {On(match.Always, nil, "A")},
	}

	_, err := New(states, Terminal)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Empty(t, ve.Missing)
	assert.Equal(t, []string{"B"}, ve.Unused)
}

func TestNew_ReportsEverythingSorted(t *testing.T) {
	states := States[string]{
		"A": {On(match.Always, nil, "A"), On(match.Always, nil, "Y"), On(match.Always, nil, "X")},
		"D": {On(match.Always, nil, "A")},
		"C": {On(match.Always, nil, "X")},
	}

	_, err := New(states, Terminal)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"X", "Y"}, ve.Missing)
	assert.Equal(t, []string{"C", "D"}, ve.Unused)
	assert.Equal(t, "invalid state graph: missing states: X, Y; unused states: C, D", err.Error())
}

func TestNew_InitialStateMustBeReachable(t *testing.T) {
	states := States[string]{
		"INITIAL": {On(match.Always, nil, "B")},
		"B":       {On(match.Always, action.Exit(0), Terminal)},
	}

	_, err := New(states, Terminal)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"INITIAL"}, ve.Unused)
}

func TestNew_TerminalIsNotMissing(t *testing.T) {
	states := States[string]{
		"A": {On(match.Always, nil, "A"), On(match.Never, nil, Terminal)},
	}

	_, err := New(states, Terminal)
	assert.NoError(t, err)
}

func TestNew_TerminalAsStateRejected(t *testing.T) {
	states := States[string]{
		"A":      {On(match.Always, nil, Terminal)},
		Terminal: {On(match.Always, nil, "A")},
	}

	_, err := New(states, Terminal)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, Terminal, ve.Reserved)
	assert.Empty(t, ve.Missing)
	assert.Empty(t, ve.Unused)
	assert.Equal(t, "invalid state graph: terminal TERMINAL used as a state", err.Error())
}

func TestNew_NonStringStates(t *testing.T) {
	const done = -1
	states := States[int]{
		1: {On(match.Always, nil, 2)},
		2: {On(match.Always, nil, 1), On(match.Always, nil, 7)},
	}

	_, err := New(states, done)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"7"}, ve.Missing)
}

func TestOn_NilActionIsNothing(t *testing.T) {
	r := On[string](match.Always, nil, "A")
	require.NotNil(t, r.Action)
	res, err := r.Action.Run(context.Background(), &action.Device{})
	require.NoError(t, err)
	assert.False(t, res.Terminated())
}

func TestMerge(t *testing.T) {
	a := States[string]{"A": {On(match.Always, nil, "B")}}
	b := States[string]{"B": {On(match.Always, nil, "A")}}

	merged, err := Merge(a, b)
	require.NoError(t, err)
	assert.Len(t, merged, 2)

	_, err = Merge(a, a)
	assert.EqualError(t, err, "duplicate state A")
}
