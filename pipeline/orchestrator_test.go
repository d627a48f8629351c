package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicsci/inquiry/llm"
	"github.com/mosaicsci/inquiry/llm/testutil"
	"github.com/mosaicsci/inquiry/pipeline"
	"github.com/mosaicsci/inquiry/workflow"
)

const validStage1JSON = `{"research_question": "Does cover cropping raise microbial diversity?", "uniqueness_score": 0.7, "rationale": "narrows scope"}`

// downErr is non-retryable, so scripted failures return immediately instead
// of sleeping through backoff.
func downErr() error {
	return llm.NewError(llm.ErrAuth, errors.New("service credentials rejected"))
}

func ok(content string) testutil.Step {
	return testutil.Step{Response: &llm.Response{Content: content}}
}

func fail() testutil.Step {
	return testutil.Step{Err: downErr()}
}

func newTestOrchestrator(gw pipeline.Gateway) *pipeline.Orchestrator {
	return pipeline.New(gw,
		pipeline.WithLogger(slog.New(slog.DiscardHandler)),
		pipeline.WithPacing(0),
	)
}

// projectAt builds a project positioned at the given stage, with outputs and
// summaries recorded for every earlier stage.
func projectAt(t *testing.T, stage int) *workflow.Project {
	t.Helper()
	p, err := workflow.NewProject("Cover Crops", "Microbial diversity study", "soil science")
	require.NoError(t, err)
	for i := 1; i < stage; i++ {
		require.NoError(t, p.SetCurrentStage(i))
		require.NoError(t, p.RecordOutput(i, fmt.Sprintf("Output of stage %d.", i)))
		p.Stages[i].Summary = fmt.Sprintf("Summary of stage %d.", i)
	}
	require.NoError(t, p.SetCurrentStage(stage))
	return p
}

func TestRunStage_SingleStageSuccess(t *testing.T) {
	mock := &testutil.MockGateway{
		ByRole: map[string][]testutil.Step{
			"fast":       {ok(validStage1JSON)},
			"summarizer": {ok("Refined the question; novelty 0.7.")},
		},
	}
	o := newTestOrchestrator(mock)
	p := projectAt(t, 1)

	run, err := o.RunStage(context.Background(), p, 1, "soil microbes and cover crops")
	require.NoError(t, err)

	assert.Equal(t, pipeline.StateSucceeded, run.State())
	assert.Equal(t, validStage1JSON, p.Stages[1].Output)
	assert.Equal(t, "Refined the question; novelty 0.7.", p.Stages[1].Summary)
	assert.Equal(t, 2, p.CurrentStage)
	assert.Equal(t, "soil microbes and cover crops", p.Stages[1].Input)
	assert.Len(t, p.Stages[1].Provenance, 2)

	// The structured stage asks for JSON explicitly.
	reqs := mock.Requests()
	require.NotEmpty(t, reqs)
	assert.Equal(t, "fast", reqs[0].Role)
	assert.Equal(t, "application/json", reqs[0].ResponseMIMEType)
}

func TestRunStage_RepairRecoversInvalidOutput(t *testing.T) {
	mock := &testutil.MockGateway{
		ByRole: map[string][]testutil.Step{
			"fast": {
				ok("Sure! Here is a great question for you."),
				ok(validStage1JSON),
			},
			"summarizer": {ok("summary")},
		},
	}
	o := newTestOrchestrator(mock)
	p := projectAt(t, 1)

	run, err := o.RunStage(context.Background(), p, 1, "soil microbes")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateSucceeded, run.State())
	assert.Equal(t, validStage1JSON, p.Stages[1].Output)
	assert.Equal(t, 2, mock.RoleCalls("fast"))

	var sawValidator bool
	for _, e := range run.Entries() {
		if e.Source == "validator" {
			sawValidator = true
		}
	}
	assert.True(t, sawValidator, "run log should record the rejection")
}

func TestRunStage_RepairFailureKeepsRawOutput(t *testing.T) {
	mock := &testutil.MockGateway{
		ByRole: map[string][]testutil.Step{
			"fast": {
				ok("First answer, not JSON."),
				ok("Second answer, still not JSON."),
			},
			"summarizer": {ok("summary")},
		},
	}
	o := newTestOrchestrator(mock)
	p := projectAt(t, 1)

	run, err := o.RunStage(context.Background(), p, 1, "soil microbes")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateSucceeded, run.State())
	assert.Equal(t, "First answer, not JSON.", p.Stages[1].Output)
}

func TestRunStage_FreeTextStageSkipsValidation(t *testing.T) {
	mock := &testutil.MockGateway{
		ByRole: map[string][]testutil.Step{
			"writer":     {ok("## Experimental Setup\n\nPlot pairs...")},
			"summarizer": {ok("summary")},
		},
	}
	o := newTestOrchestrator(mock)
	p := projectAt(t, 4)

	_, err := o.RunStage(context.Background(), p, 4, "")
	require.NoError(t, err)
	assert.Equal(t, "## Experimental Setup\n\nPlot pairs...", p.Stages[4].Output)

	reqs := mock.Requests()
	require.NotEmpty(t, reqs)
	assert.Equal(t, "writer", reqs[0].Role)
	assert.Empty(t, reqs[0].ResponseMIMEType)
}

func TestRunStage_LiteratureReviewEnablesWebSearch(t *testing.T) {
	mock := &testutil.MockGateway{
		ByRole: map[string][]testutil.Step{
			"writer":     {ok("## References\n\n1. Smith 2020")},
			"summarizer": {ok("summary")},
		},
	}
	o := newTestOrchestrator(mock)
	p := projectAt(t, 2)

	_, err := o.RunStage(context.Background(), p, 2, "")
	require.NoError(t, err)

	reqs := mock.Requests()
	require.NotEmpty(t, reqs)
	assert.True(t, reqs[0].WebSearch)
}

func TestRunStage_SummarizerFailureDegradesToTruncation(t *testing.T) {
	mock := &testutil.MockGateway{
		ByRole: map[string][]testutil.Step{
			"fast":       {ok(validStage1JSON)},
			"summarizer": {fail()},
		},
	}
	o := newTestOrchestrator(mock)
	p := projectAt(t, 1)

	run, err := o.RunStage(context.Background(), p, 1, "soil microbes")
	require.NoError(t, err, "summarization alone never fails the stage")
	assert.Equal(t, pipeline.StateSucceeded, run.State())
	assert.Equal(t, validStage1JSON, p.Stages[1].Summary)
	assert.Equal(t, 2, p.CurrentStage)
}

func TestRunStage_ArchivedProjectRejected(t *testing.T) {
	o := newTestOrchestrator(&testutil.MockGateway{})
	p := projectAt(t, 1)
	p.Archive()

	_, err := o.RunStage(context.Background(), p, 1, "x")
	assert.ErrorIs(t, err, workflow.ErrProjectArchived)
}

func TestRunStage_UnreachableStageRejected(t *testing.T) {
	o := newTestOrchestrator(&testutil.MockGateway{})
	p := projectAt(t, 1)

	_, err := o.RunStage(context.Background(), p, 3, "")
	assert.ErrorIs(t, err, workflow.ErrStageOutOfRange)
}

func TestRunStage_CancellationAborts(t *testing.T) {
	mock := &testutil.MockGateway{}
	o := newTestOrchestrator(mock)
	p := projectAt(t, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := o.RunStage(ctx, p, 4, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, pipeline.StateFailed, run.State())
	assert.Empty(t, p.Stages[4].Output)
	assert.Equal(t, 4, p.CurrentStage)
}
