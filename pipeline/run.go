// Package pipeline orchestrates stage execution: single-call stages, the
// multi-agent data-analysis and publication pipelines, and the peer-review
// sweep. It drives the model gateway through the retry layer and records an
// append-only run log for the UI and for diagnostics.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle of one stage run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// maxAgentCalls bounds the number of model calls a single run may make.
// Pipelines are finite by construction; this guards against a plan or
// outline that balloons past anything the topologies intend.
const maxAgentCalls = 64

// LogEntry is one line of a run's append-only activity log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // agent or subsystem name
	Message   string    `json:"message"`
}

// Run tracks one execution of a stage pipeline. Safe for concurrent
// observation while the pipeline appends to the log.
type Run struct {
	ID        string    `json:"id"`
	Stage     int       `json:"stage"`
	StartedAt time.Time `json:"started_at"`

	mu         sync.Mutex
	state      State
	finishedAt time.Time
	failure    string
	calls      int
	log        []LogEntry
}

func newRun(stage int) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Stage:     stage,
		StartedAt: time.Now(),
		state:     StateRunning,
	}
}

// State returns the run's current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Failure returns the terminal failure message, if the run failed.
func (r *Run) Failure() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failure
}

// FinishedAt returns when the run reached a terminal state.
func (r *Run) FinishedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finishedAt
}

// Log appends one entry to the run's activity log. Entries are never
// mutated or removed.
func (r *Run) Log(source, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, LogEntry{Timestamp: time.Now(), Source: source, Message: message})
}

// Entries returns a copy of the activity log.
func (r *Run) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogEntry, len(r.log))
	copy(out, r.log)
	return out
}

func (r *Run) succeed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateSucceeded
	r.finishedAt = time.Now()
}

func (r *Run) fail(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateFailed
	r.failure = msg
	r.finishedAt = time.Now()
}

// countCall enforces the per-run call budget.
func (r *Run) countCall() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls >= maxAgentCalls {
		return false
	}
	r.calls++
	return true
}
