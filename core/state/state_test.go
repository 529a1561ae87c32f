package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPhase_String(t *testing.T) {
	tests := []struct {
		phase    RunPhase
		expected string
	}{
		{PhaseIdle, "Idle"},
		{PhaseValidating, "Validating"},
		{PhaseRunning, "Running"},
		{PhaseCompleted, "Completed"},
		{PhaseQuit, "Quit"},
		{PhaseStalled, "Stalled"},
		{PhaseFaulted, "Faulted"},
		{RunPhase(99), "Unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.phase.String())
		})
	}
}

func TestRunPhase_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     RunPhase
		to       RunPhase
		expected bool
	}{
		{"Idle -> Validating", PhaseIdle, PhaseValidating, true},
		{"Idle -> Running (invalid)", PhaseIdle, PhaseRunning, false},

		{"Validating -> Running", PhaseValidating, PhaseRunning, true},
		{"Validating -> Faulted", PhaseValidating, PhaseFaulted, true},
		{"Validating -> Stalled (invalid)", PhaseValidating, PhaseStalled, false},

		{"Running -> Completed", PhaseRunning, PhaseCompleted, true},
		{"Running -> Quit", PhaseRunning, PhaseQuit, true},
		{"Running -> Stalled", PhaseRunning, PhaseStalled, true},
		{"Running -> Faulted", PhaseRunning, PhaseFaulted, true},
		{"Running -> Validating (invalid)", PhaseRunning, PhaseValidating, false},

		{"Completed -> Running (invalid)", PhaseCompleted, PhaseRunning, false},
		{"Faulted -> Idle (invalid)", PhaseFaulted, PhaseIdle, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRunPhase_IsTerminal(t *testing.T) {
	for _, p := range []RunPhase{PhaseCompleted, PhaseQuit, PhaseStalled, PhaseFaulted} {
		assert.True(t, p.IsTerminal(), p.String())
		assert.Empty(t, p.ValidTransitions(), p.String())
	}
	for _, p := range []RunPhase{PhaseIdle, PhaseValidating, PhaseRunning} {
		assert.False(t, p.IsTerminal(), p.String())
	}
}

func TestRunPhase_IsFailure(t *testing.T) {
	assert.True(t, PhaseStalled.IsFailure())
	assert.True(t, PhaseFaulted.IsFailure())
	assert.False(t, PhaseCompleted.IsFailure())
	assert.False(t, PhaseQuit.IsFailure())
}

func TestMachine_Transition(t *testing.T) {
	var m Machine
	assert.Equal(t, PhaseIdle, m.Phase())

	old, err := m.Transition(PhaseValidating)
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, old)

	_, err = m.Transition(PhaseCompleted)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, PhaseValidating, te.From)
	assert.Equal(t, PhaseCompleted, te.To)
	assert.Equal(t, "invalid phase transition from Validating to Completed", err.Error())
	assert.Equal(t, PhaseValidating, m.Phase())

	_, err = m.Transition(PhaseRunning)
	require.NoError(t, err)
	_, err = m.Transition(PhaseStalled)
	require.NoError(t, err)
	assert.Equal(t, PhaseStalled, m.Phase())
}
