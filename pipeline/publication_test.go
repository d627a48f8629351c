package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicsci/inquiry/chart"
	"github.com/mosaicsci/inquiry/llm"
	"github.com/mosaicsci/inquiry/llm/testutil"
	"github.com/mosaicsci/inquiry/pipeline"
	"github.com/mosaicsci/inquiry/workflow"
)

const twoSectionOutline = `{"sections": [
	{"title": "Introduction", "brief": "motivation and question"},
	{"title": "Results", "brief": "findings with figures"}
]}`

// publicationProject positions a project at stage 10 with one rendered chart
// in the analysis stage output.
func publicationProject(t *testing.T) *workflow.Project {
	t.Helper()
	p := projectAt(t, 10)
	a := &chart.Artifact{
		Title: "Yield by treatment",
		Type:  chart.KindBar,
		Data: chart.Data{
			Labels:   []string{"control", "low", "high"},
			Datasets: []chart.Dataset{{Label: "yield", Data: []float64{4.2, 5.1, 6.3}}},
		},
		Status: chart.StatusSuccess,
	}
	p.Stages[7].Output = "# Data Analysis\n\n## Figure 1: Yield by treatment\n\n" +
		chart.FormatBlock(a) + "\n\n## Findings\n\nYield rises.\n"
	return p
}

func TestRunStage_PublicationFullPipeline(t *testing.T) {
	mock := &testutil.MockGateway{
		ByRole: map[string][]testutil.Step{
			"planner": {ok(twoSectionOutline)},
			"writer": {
				ok("This project asked whether cover cropping raises diversity."),
				ok("Yield increased with treatment intensity. [CHART-1]"),
			},
			"captioner":     {ok("Mean yield per treatment group; yield rises with intensity.")},
			"bibliographer": {ok("1. Smith, J. (2020). Cover crops and soil biota.")},
			"editor":        {ok("# Final Manuscript\n\nEdited prose with [CHART-1] intact.")},
			"summarizer":    {ok("manuscript summary")},
		},
	}
	o := newTestOrchestrator(mock)
	p := publicationProject(t)

	run, err := o.RunStage(context.Background(), p, 10, "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateSucceeded, run.State())
	assert.Equal(t, "# Final Manuscript\n\nEdited prose with [CHART-1] intact.", p.Stages[10].Output)

	assert.Equal(t, 2, mock.RoleCalls("writer"))
	assert.Equal(t, 1, mock.RoleCalls("captioner"))

	// The editor sees the fully assembled draft: sections, spliced caption,
	// and the unified reference list.
	var editorReq llm.Request
	for _, req := range mock.Requests() {
		if req.Role == "editor" {
			editorReq = req
		}
	}
	require.NotEmpty(t, editorReq.Messages)
	draft := editorReq.Messages[len(editorReq.Messages)-1].Content
	assert.Contains(t, draft, "## Introduction")
	assert.Contains(t, draft, "## Results")
	assert.Contains(t, draft, "[CHART-1]\n\n*Figure 1: Mean yield per treatment group; yield rises with intensity.*")
	assert.Contains(t, draft, "## References\n\n1. Smith, J. (2020).")
	assert.Equal(t, 120*time.Second, editorReq.Timeout, "final edit gets an extended budget")
}

func TestRunStage_PublicationOutlineFailureIsTerminal(t *testing.T) {
	mock := &testutil.MockGateway{
		ByRole: map[string][]testutil.Step{
			"planner": {fail()},
		},
	}
	o := newTestOrchestrator(mock)
	p := publicationProject(t)

	run, err := o.RunStage(context.Background(), p, 10, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outline")
	assert.Equal(t, pipeline.StateFailed, run.State())
}

func TestRunStage_PublicationDegradesAfterOutline(t *testing.T) {
	// Every post-outline agent fails; the manuscript still assembles from
	// what survived.
	mock := &testutil.MockGateway{
		ByRole: map[string][]testutil.Step{
			"planner": {ok(twoSectionOutline)},
			"writer": {
				fail(),
				ok("Yield increased with treatment intensity. [CHART-1]"),
			},
			"captioner":     {fail()},
			"bibliographer": {fail()},
			"editor":        {fail()},
			"summarizer":    {ok("summary")},
		},
	}
	o := newTestOrchestrator(mock)
	p := publicationProject(t)

	run, err := o.RunStage(context.Background(), p, 10, "")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateSucceeded, run.State())

	output := p.Stages[10].Output
	assert.Contains(t, output, "## Introduction\n\n_This section could not be generated._")
	assert.Contains(t, output, "Yield increased with treatment intensity.")
	// A failed caption degrades to the figure title.
	assert.Contains(t, output, "*Figure 1: Yield by treatment*")
	// No bibliography section when the bibliographer is down.
	assert.NotContains(t, output, "## References")
}

func TestRunStage_PublicationSkipsBibliographyWithoutLiterature(t *testing.T) {
	mock := &testutil.MockGateway{
		ByRole: map[string][]testutil.Step{
			"planner":    {ok(`{"sections": [{"title": "Introduction", "brief": "b"}]}`)},
			"writer":     {ok("Prose without figure references.")},
			"editor":     {fail()},
			"summarizer": {ok("summary")},
		},
	}
	o := newTestOrchestrator(mock)
	p := publicationProject(t)
	p.Stages[2].Output = ""

	_, err := o.RunStage(context.Background(), p, 10, "")
	require.NoError(t, err)

	assert.Equal(t, 0, mock.RoleCalls("bibliographer"))
	assert.NotContains(t, p.Stages[10].Output, "## References")
}

func TestRunStage_PublicationWithoutPlaceholdersSkipsCaptioning(t *testing.T) {
	mock := &testutil.MockGateway{
		ByRole: map[string][]testutil.Step{
			"planner":       {ok(`{"sections": [{"title": "Introduction", "brief": "b"}]}`)},
			"writer":        {ok("Prose without figure references.")},
			"bibliographer": {ok("1. Smith 2020.")},
			"editor":        {ok("final")},
			"summarizer":    {ok("summary")},
		},
	}
	o := newTestOrchestrator(mock)
	p := publicationProject(t)

	_, err := o.RunStage(context.Background(), p, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 0, mock.RoleCalls("captioner"))
}
