package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for project operations.
var (
	ErrTitleRequired   = errors.New("title is required")
	ErrStageOutOfRange = errors.New("stage number out of range")
	ErrStageRegression = errors.New("current stage may not decrease")
	ErrProjectArchived = errors.New("project is archived")
)

// Project status constants.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Operating modes. Empty means the user has not chosen one yet.
const (
	ModeManual    = "manual"
	ModeAutomated = "automated"
)

// Project is the root aggregate: one research project walking the fixed
// ten-stage workflow.
type Project struct {
	// ID uniquely identifies the project.
	ID string `json:"id"`

	// Title is the human-readable display name.
	Title string `json:"title"`

	// Description provides additional context.
	Description string `json:"description,omitempty"`

	// Field is the research domain tag (e.g., "soil science").
	Field string `json:"field,omitempty"`

	// CurrentStage is the 1-based stage the project is working on.
	// It only increases, except via explicit deletion of progress.
	CurrentStage int `json:"current_stage"`

	// Mode is the operating mode: manual, automated, or empty.
	Mode string `json:"mode,omitempty"`

	// Status is "active" or "archived".
	Status string `json:"status"`

	// Notebook is the user's free-text scratch space.
	Notebook string `json:"notebook,omitempty"`

	// CreatedAt is when the project was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the project was last modified.
	UpdatedAt time.Time `json:"updated_at"`

	// ArchivedAt is when the project was archived, if it was.
	ArchivedAt *time.Time `json:"archived_at,omitempty"`

	// Stages holds per-stage records keyed by stage number. Records for
	// CurrentStage and earlier always exist, possibly empty.
	Stages map[int]*StageRecord `json:"stages"`

	// mu serializes mutation against Snapshot, so the background
	// checkpointer can persist the project while a pipeline run mutates it.
	mu sync.RWMutex
}

// HistoryEntry preserves an overwritten stage output.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Output    string    `json:"output"`
}

// ProvenanceEntry records one model call made on behalf of a stage,
// for auditability.
type ProvenanceEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Prompt    string          `json:"prompt"` // prompt descriptor, not full text
	Config    json.RawMessage `json:"config,omitempty"`
	Output    string          `json:"output"`
}

// StageRecord is the persisted state for one workflow stage.
type StageRecord struct {
	// Input is the raw user input for the stage, if any.
	Input string `json:"input,omitempty"`

	// Output is the raw model output, if any.
	Output string `json:"output,omitempty"`

	// Summary is the condensed output, produced by summarization at
	// stage-completion time. Derived, never hand-authored except via
	// explicit edit.
	Summary string `json:"summary,omitempty"`

	// History holds prior outputs pushed aside by an overwrite, oldest
	// first.
	History []HistoryEntry `json:"history,omitempty"`

	// Provenance is the ordered log of model calls for this stage.
	Provenance []ProvenanceEntry `json:"provenance,omitempty"`
}

// NewProject creates an active project positioned at stage 1.
func NewProject(title, description, field string) (*Project, error) {
	if title == "" {
		return nil, ErrTitleRequired
	}

	now := time.Now()
	p := &Project{
		ID:           uuid.New().String(),
		Title:        title,
		Description:  description,
		Field:        field,
		CurrentStage: 1,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
		Stages:       make(map[int]*StageRecord),
	}
	p.ensureStage(1)
	return p, nil
}

// IsArchived returns true if the project has been soft-deleted.
func (p *Project) IsArchived() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status == StatusArchived
}

// Archive soft-deletes the project.
func (p *Project) Archive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.Status = StatusArchived
	p.ArchivedAt = &now
	p.UpdatedAt = now
}

// Snapshot returns the project's JSON encoding, taken under the aggregate
// lock so it is consistent even while another goroutine mutates the project.
func (p *Project) Snapshot() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return json.Marshal(p)
}

// Stage returns the record for stage n, creating an empty one if the stage
// is reachable (n <= CurrentStage) and the record is missing.
func (p *Project) Stage(n int) (*StageRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stageLocked(n)
}

func (p *Project) stageLocked(n int) (*StageRecord, error) {
	if n < 1 || n > StageCount {
		return nil, fmt.Errorf("%w: %d", ErrStageOutOfRange, n)
	}
	if n > p.CurrentStage {
		return nil, fmt.Errorf("%w: stage %d not yet reachable (current %d)",
			ErrStageOutOfRange, n, p.CurrentStage)
	}
	return p.ensureStage(n), nil
}

func (p *Project) ensureStage(n int) *StageRecord {
	if p.Stages == nil {
		p.Stages = make(map[int]*StageRecord)
	}
	if p.Stages[n] == nil {
		p.Stages[n] = &StageRecord{}
	}
	return p.Stages[n]
}

// RecordInput stores the raw user input for a stage.
func (p *Project) RecordInput(n int, input string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, err := p.stageLocked(n)
	if err != nil {
		return err
	}
	rec.Input = input
	p.UpdatedAt = time.Now()
	return nil
}

// RecordOutput sets a stage's output, pushing any prior output onto the
// record's history.
func (p *Project) RecordOutput(n int, output string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, err := p.stageLocked(n)
	if err != nil {
		return err
	}
	if rec.Output != "" {
		rec.History = append(rec.History, HistoryEntry{
			Timestamp: time.Now(),
			Output:    rec.Output,
		})
	}
	rec.Output = output
	p.UpdatedAt = time.Now()
	return nil
}

// RecordProvenance appends a model-call record to a stage's provenance log.
// Safe to call from concurrent agent workers.
func (p *Project) RecordProvenance(n int, entry ProvenanceEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, err := p.stageLocked(n)
	if err != nil {
		return err
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	rec.Provenance = append(rec.Provenance, entry)
	return nil
}

// CompleteStage sets the stage's summary and advances CurrentStage to the
// next stage. The stage index is monotonic: completing an earlier,
// re-opened stage never moves CurrentStage backwards.
func (p *Project) CompleteStage(n int, summary string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Status == StatusArchived {
		return ErrProjectArchived
	}
	rec, err := p.stageLocked(n)
	if err != nil {
		return err
	}
	rec.Summary = summary

	next := n + 1
	if next > StageCount {
		next = StageCount
	}
	if next > p.CurrentStage {
		p.CurrentStage = next
		p.ensureStage(p.CurrentStage)
	}
	p.UpdatedAt = time.Now()
	return nil
}

// SetCurrentStage moves the cursor forward. Moving backwards is rejected;
// deleting progress is an explicit separate operation.
func (p *Project) SetCurrentStage(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 1 || n > StageCount {
		return fmt.Errorf("%w: %d", ErrStageOutOfRange, n)
	}
	if n < p.CurrentStage {
		return ErrStageRegression
	}
	for i := p.CurrentStage; i <= n; i++ {
		p.ensureStage(i)
	}
	p.CurrentStage = n
	p.UpdatedAt = time.Now()
	return nil
}

// DeleteProgressFrom discards stage data at and after stage n and moves the
// cursor back. This is the one sanctioned way CurrentStage decreases.
func (p *Project) DeleteProgressFrom(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n < 1 || n > StageCount {
		return fmt.Errorf("%w: %d", ErrStageOutOfRange, n)
	}
	for i := n; i <= StageCount; i++ {
		delete(p.Stages, i)
	}
	if p.CurrentStage > n {
		p.CurrentStage = n
	}
	p.ensureStage(p.CurrentStage)
	p.UpdatedAt = time.Now()
	return nil
}
