package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMachine() *StateMachine {
	return NewStateMachine("idle", map[string][]string{
		"idle":     {"checking"},
		"checking": {"done", "failed"},
		"done":     {"checking"},
		"failed":   {"checking"},
	})
}

func TestStateMachine_Transition(t *testing.T) {
	sm := testMachine()

	require.NoError(t, sm.Transition("checking"))
	require.NoError(t, sm.Transition("done"))
	assert.Equal(t, "done", sm.Current())

	require.NoError(t, sm.Transition("checking"))
	assert.Equal(t, "checking", sm.Current())
}

func TestStateMachine_RejectsInvalidTransition(t *testing.T) {
	sm := testMachine()

	err := sm.Transition("done")
	assert.Error(t, err)
	assert.Equal(t, "idle", sm.Current())
}

func TestStateMachine_GetAllowedTransitions(t *testing.T) {
	sm := testMachine()

	assert.ElementsMatch(t, []string{"done", "failed"}, sm.GetAllowedTransitions("checking"))
	assert.Empty(t, sm.GetAllowedTransitions("unknown"))
	assert.False(t, sm.CanTransition("unknown", "idle"))
}
