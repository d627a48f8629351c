package workflow

import (
	"errors"
	"testing"
)

func newTestProject(t *testing.T) *Project {
	t.Helper()
	p, err := NewProject("Soil Microbes", "Microbial diversity study", "soil science")
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	return p
}

func TestNewProject(t *testing.T) {
	t.Run("starts at stage 1", func(t *testing.T) {
		p := newTestProject(t)
		if p.CurrentStage != 1 {
			t.Errorf("CurrentStage = %d, want 1", p.CurrentStage)
		}
		if p.Status != StatusActive {
			t.Errorf("Status = %q, want %q", p.Status, StatusActive)
		}
		if p.ID == "" {
			t.Error("expected a generated ID")
		}
		if p.Stages[1] == nil {
			t.Error("expected an empty record for stage 1")
		}
	})

	t.Run("requires title", func(t *testing.T) {
		if _, err := NewProject("", "", ""); !errors.Is(err, ErrTitleRequired) {
			t.Errorf("err = %v, want ErrTitleRequired", err)
		}
	})
}

func TestStage_Reachability(t *testing.T) {
	p := newTestProject(t)

	if _, err := p.Stage(0); !errors.Is(err, ErrStageOutOfRange) {
		t.Errorf("Stage(0) err = %v, want ErrStageOutOfRange", err)
	}
	if _, err := p.Stage(StageCount + 1); !errors.Is(err, ErrStageOutOfRange) {
		t.Errorf("Stage(%d) err = %v, want ErrStageOutOfRange", StageCount+1, err)
	}
	if _, err := p.Stage(2); !errors.Is(err, ErrStageOutOfRange) {
		t.Errorf("Stage(2) on a stage-1 project err = %v, want ErrStageOutOfRange", err)
	}
	if _, err := p.Stage(1); err != nil {
		t.Errorf("Stage(1) err = %v", err)
	}
}

func TestRecordOutput_PushesHistory(t *testing.T) {
	p := newTestProject(t)

	if err := p.RecordOutput(1, "first draft"); err != nil {
		t.Fatalf("RecordOutput: %v", err)
	}
	rec := p.Stages[1]
	if len(rec.History) != 0 {
		t.Errorf("first write should not create history, got %d entries", len(rec.History))
	}

	if err := p.RecordOutput(1, "second draft"); err != nil {
		t.Fatalf("RecordOutput: %v", err)
	}
	if rec.Output != "second draft" {
		t.Errorf("Output = %q, want %q", rec.Output, "second draft")
	}
	if len(rec.History) != 1 || rec.History[0].Output != "first draft" {
		t.Errorf("History = %+v, want one entry holding the first draft", rec.History)
	}
	if rec.History[0].Timestamp.IsZero() {
		t.Error("history entry should be timestamped")
	}
}

func TestCompleteStage_MonotonicCursor(t *testing.T) {
	p := newTestProject(t)

	if err := p.CompleteStage(1, "refined question summary"); err != nil {
		t.Fatalf("CompleteStage: %v", err)
	}
	if p.CurrentStage != 2 {
		t.Fatalf("CurrentStage = %d, want 2", p.CurrentStage)
	}
	if p.Stages[1].Summary != "refined question summary" {
		t.Errorf("Summary = %q", p.Stages[1].Summary)
	}
	if p.Stages[2] == nil {
		t.Error("advancing should create the next stage record")
	}

	// Re-completing an earlier stage never moves the cursor backwards.
	if err := p.CompleteStage(1, "revised summary"); err != nil {
		t.Fatalf("CompleteStage: %v", err)
	}
	if p.CurrentStage != 2 {
		t.Errorf("CurrentStage = %d after re-completing stage 1, want 2", p.CurrentStage)
	}

	// Completing the final stage pins the cursor at the last stage.
	for i := 2; i <= StageCount; i++ {
		if err := p.SetCurrentStage(i); err != nil {
			t.Fatalf("SetCurrentStage(%d): %v", i, err)
		}
	}
	if err := p.CompleteStage(StageCount, "done"); err != nil {
		t.Fatalf("CompleteStage(final): %v", err)
	}
	if p.CurrentStage != StageCount {
		t.Errorf("CurrentStage = %d, want %d", p.CurrentStage, StageCount)
	}
}

func TestSetCurrentStage_RejectsRegression(t *testing.T) {
	p := newTestProject(t)
	if err := p.SetCurrentStage(3); err != nil {
		t.Fatalf("SetCurrentStage(3): %v", err)
	}
	if err := p.SetCurrentStage(2); !errors.Is(err, ErrStageRegression) {
		t.Errorf("err = %v, want ErrStageRegression", err)
	}
}

func TestDeleteProgressFrom(t *testing.T) {
	p := newTestProject(t)
	for i := 1; i <= 4; i++ {
		if err := p.SetCurrentStage(i); err != nil {
			t.Fatalf("SetCurrentStage(%d): %v", i, err)
		}
		if err := p.RecordOutput(i, "output"); err != nil {
			t.Fatalf("RecordOutput(%d): %v", i, err)
		}
	}

	if err := p.DeleteProgressFrom(3); err != nil {
		t.Fatalf("DeleteProgressFrom: %v", err)
	}
	if p.CurrentStage != 3 {
		t.Errorf("CurrentStage = %d, want 3", p.CurrentStage)
	}
	if p.Stages[2].Output != "output" {
		t.Error("stage 2 data should survive")
	}
	if p.Stages[3] == nil || p.Stages[3].Output != "" {
		t.Error("stage 3 should be reset to an empty record")
	}
	if p.Stages[4] != nil {
		t.Error("stage 4 record should be gone")
	}
}

func TestArchive(t *testing.T) {
	p := newTestProject(t)
	p.Archive()

	if !p.IsArchived() {
		t.Error("expected archived")
	}
	if p.ArchivedAt == nil {
		t.Error("ArchivedAt should be set")
	}
	if err := p.CompleteStage(1, "s"); !errors.Is(err, ErrProjectArchived) {
		t.Errorf("CompleteStage on archived err = %v, want ErrProjectArchived", err)
	}
}

func TestRecordProvenance(t *testing.T) {
	p := newTestProject(t)
	if err := p.RecordProvenance(1, ProvenanceEntry{Prompt: "refine question", Output: "..."}); err != nil {
		t.Fatalf("RecordProvenance: %v", err)
	}
	prov := p.Stages[1].Provenance
	if len(prov) != 1 {
		t.Fatalf("Provenance length = %d, want 1", len(prov))
	}
	if prov[0].Timestamp.IsZero() {
		t.Error("missing timestamp should be filled in")
	}
}

func TestStageLookups(t *testing.T) {
	if len(Stages()) != StageCount {
		t.Fatalf("Stages() length = %d, want %d", len(Stages()), StageCount)
	}

	s, ok := StageByNumber(7)
	if !ok || s.Slug != "data-analysis" || !s.Agentic {
		t.Errorf("StageByNumber(7) = %+v, ok=%v", s, ok)
	}
	if _, ok := StageByNumber(11); ok {
		t.Error("StageByNumber(11) should not resolve")
	}

	s, ok = StageBySlug("peer-review")
	if !ok || s.Number != 9 || !s.Aggregate {
		t.Errorf("StageBySlug(peer-review) = %+v, ok=%v", s, ok)
	}
	if _, ok := StageBySlug("unknown"); ok {
		t.Error("unknown slug should not resolve")
	}
}

func TestProject_SnapshotDuringMutation(t *testing.T) {
	p := newTestProject(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if err := p.RecordOutput(1, "revised output"); err != nil {
				t.Errorf("RecordOutput: %v", err)
				return
			}
			if err := p.RecordProvenance(1, ProvenanceEntry{Prompt: "fast/draft", Output: "ok"}); err != nil {
				t.Errorf("RecordProvenance: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		data, err := p.Snapshot()
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if len(data) == 0 {
			t.Fatal("Snapshot returned empty document")
		}
	}
	<-done
}
