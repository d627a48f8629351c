package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_CallBudget(t *testing.T) {
	r := newRun(7)
	for i := 0; i < maxAgentCalls; i++ {
		assert.True(t, r.countCall(), "call %d should fit the budget", i+1)
	}
	assert.False(t, r.countCall(), "call past the budget must be refused")
}

func TestRun_Lifecycle(t *testing.T) {
	r := newRun(1)
	assert.Equal(t, StateRunning, r.State())
	assert.True(t, r.FinishedAt().IsZero())

	r.Log("orchestrator", "starting")
	r.Log("writer", "drafting")

	entries := r.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, "orchestrator", entries[0].Source)

	// Entries returns a copy; mutating it must not touch the log.
	entries[0].Message = "tampered"
	assert.Equal(t, "starting", r.Entries()[0].Message)

	r.fail("gateway down")
	assert.Equal(t, StateFailed, r.State())
	assert.Equal(t, "gateway down", r.Failure())
	assert.False(t, r.FinishedAt().IsZero())
}
