package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "start", StateStart.String())
	assert.Equal(t, "up-to-date", StateUpToDate.String())
	assert.Equal(t, "rolled-back", StateRolledBack.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "unknown", State(-1).String())
	assert.Equal(t, "unknown", State(len(stateNames)).String())
}

func TestStateTerminal(t *testing.T) {
	for s := StateStart; s <= StateDone; s++ {
		assert.Equal(t, s == StateDone || s == StateFailed, s.Terminal(), s.String())
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "no changes", OutcomeNoChanges.String())
	assert.Equal(t, "applied", OutcomeApplied.String())
}

func TestFinishedSessionDoesNotMove(t *testing.T) {
	s := newSession("master", "origin", "")
	s.transition(StateValidated)
	s.transition(StateFailed)
	s.transition(StateRolledBack)

	assert.Equal(t, StateFailed, s.State)
	assert.Equal(t, []State{StateStart, StateValidated, StateFailed}, s.History)
}
