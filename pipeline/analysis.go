package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mosaicsci/inquiry/chart"
	"github.com/mosaicsci/inquiry/llm"
	"github.com/mosaicsci/inquiry/prompts"
	"github.com/mosaicsci/inquiry/validate"
	"github.com/mosaicsci/inquiry/workflow"
)

// maxAnalyses caps how many planned analyses the pipeline will build, even
// if the planner proposes more.
const maxAnalyses = 4

// previewRows bounds the dataset preview shown to the planner. The builder
// sees the full dataset; the planner only needs shape and a sample.
const previewRows = 10

// analysisIntent is one planned analysis decoded from the planner's output.
// Kind is not the planner's to choose; it is derived from the dataset by a
// fixed heuristic after decoding.
type analysisIntent struct {
	Title       string   `json:"title"`
	Columns     []string `json:"columns"`
	Description string   `json:"description"`

	Kind chart.Kind `json:"-"`
}

// runAnalysis executes the data-analysis pipeline: a planner proposes a
// handful of analyses over the collected dataset, a builder produces one
// chart per analysis, each chart is validated and dry-run rendered, and a
// summarizer writes findings over the charts that survived. A failed chart
// is skipped, not fatal; a failed plan is fatal.
func (o *Orchestrator) runAnalysis(ctx context.Context, p *workflow.Project, run *Run, input string) (string, error) {
	dataset := input
	if dataset == "" {
		if rec := p.Stages[6]; rec != nil {
			dataset = rec.Input
		}
	}
	if strings.TrimSpace(dataset) == "" {
		return "", fmt.Errorf("no dataset: supply CSV input or complete data collection first")
	}

	preview, err := datasetPreview(dataset)
	if err != nil {
		return "", fmt.Errorf("parse dataset: %w", err)
	}

	compiled := workflow.RenderContext(workflow.BuildContext(p, 7, o.recencyWindow))

	intents, err := o.planAnalyses(ctx, p, run, preview, compiled)
	if err != nil {
		return "", fmt.Errorf("analysis planning: %w", err)
	}
	assignKinds(intents, dataset)
	run.Log("planner", fmt.Sprintf("planned %d analyses", len(intents)))

	var artifacts []*chart.Artifact
	var failed []string
	for i, intent := range intents {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		artifact, err := o.buildChart(ctx, p, run, intent, dataset)
		if err != nil {
			run.Log("builder", fmt.Sprintf("analysis %d (%s) skipped: %v", i+1, intent.Title, err))
			failed = append(failed, intent.Title)
			continue
		}
		run.Log("builder", fmt.Sprintf("analysis %d (%s) rendered", i+1, intent.Title))
		artifacts = append(artifacts, artifact)
	}

	if len(artifacts) == 0 {
		return "", fmt.Errorf("all %d planned analyses failed", len(intents))
	}

	// The findings summary covers only charts that actually built.
	descriptions := make([]string, len(artifacts))
	for i, a := range artifacts {
		descriptions[i] = fmt.Sprintf("%d. %s (%s chart)", i+1, a.Title, a.Type)
	}
	findings, err := o.call(ctx, p, run, 7, llm.Request{
		Role: "summarizer",
		Messages: []llm.Message{
			{Role: "system", Content: prompts.SummarizerSystem},
			{Role: "user", Content: prompts.SummarizeAnalyses(descriptions)},
		},
	}, o.retry, "findings")
	if err != nil {
		return "", fmt.Errorf("findings summary: %w", err)
	}

	return composeAnalysisOutput(artifacts, failed, findings), nil
}

// planAnalyses runs the planner and decodes its validated plan.
func (o *Orchestrator) planAnalyses(ctx context.Context, p *workflow.Project, run *Run, preview, compiled string) ([]analysisIntent, error) {
	raw, err := o.call(ctx, p, run, 7, llm.Request{
		Role:             "planner",
		ResponseMIMEType: "application/json",
		Messages: []llm.Message{
			{Role: "system", Content: prompts.PlannerSystem},
			{Role: "user", Content: prompts.Plan(preview, compiled)},
		},
	}, o.retry, "plan")
	if err != nil {
		return nil, err
	}

	parsed, verr := validate.Validate(raw, prompts.PlanContract)
	if verr != nil {
		return nil, verr
	}

	encoded, err := json.Marshal(parsed["analyses"])
	if err != nil {
		return nil, err
	}
	var intents []analysisIntent
	if err := json.Unmarshal(encoded, &intents); err != nil {
		return nil, validate.NewError(validate.KindWrongElementType, "analyses", err.Error())
	}

	if len(intents) > maxAnalyses {
		intents = intents[:maxAnalyses]
	}
	for i := range intents {
		if len(intents[i].Columns) > 3 {
			intents[i].Columns = intents[i].Columns[:3]
		}
	}
	return intents, nil
}

// buildChart runs the builder for one intent and validates the payload all
// the way through a renderer dry run.
func (o *Orchestrator) buildChart(ctx context.Context, p *workflow.Project, run *Run, intent analysisIntent, dataset string) (*chart.Artifact, error) {
	raw, err := o.call(ctx, p, run, 7, llm.Request{
		Role:             "builder",
		ResponseMIMEType: "application/json",
		Messages: []llm.Message{
			{Role: "system", Content: prompts.BuilderSystem},
			{Role: "user", Content: prompts.BuildChart(intent.Title, intent.Description, string(intent.Kind), intent.Columns, dataset)},
		},
	}, o.retry, "chart")
	if err != nil {
		return nil, err
	}

	artifact, verr := validate.ChartArtifact(raw)
	if verr != nil {
		return nil, verr
	}
	if artifact.Title == "" {
		artifact.Title = intent.Title
	}
	// The declared kind is authoritative. A builder that picked a different
	// type gets overridden, with the render re-verified for the final kind.
	if intent.Kind != "" && artifact.Type != intent.Kind {
		run.Log("builder", fmt.Sprintf("%s: builder chose %s chart, using declared %s", intent.Title, artifact.Type, intent.Kind))
		artifact.Type = intent.Kind
		if err := chart.DryRun(artifact); err != nil {
			return nil, err
		}
	}
	return artifact, nil
}

// assignKinds derives each intent's chart kind from the dataset columns it
// references: a non-numeric first column or a handful of rows reads as
// categorical (bar), two numeric columns as a scatter, and a single numeric
// series over many rows as a line.
func assignKinds(intents []analysisIntent, dataset string) {
	reader := csv.NewReader(strings.NewReader(strings.TrimSpace(dataset)))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil || len(records) < 2 {
		for i := range intents {
			intents[i].Kind = chart.KindBar
		}
		return
	}

	header := records[0]
	rows := records[1:]
	numeric := make(map[string]bool, len(header))
	for ci, name := range header {
		isNumeric := true
		for _, row := range rows {
			if ci >= len(row) {
				isNumeric = false
				break
			}
			if _, err := strconv.ParseFloat(strings.TrimSpace(row[ci]), 64); err != nil {
				isNumeric = false
				break
			}
		}
		numeric[strings.TrimSpace(name)] = isNumeric
	}

	for i := range intents {
		categorical := false
		continuous := 0
		for j, col := range intents[i].Columns {
			if numeric[strings.TrimSpace(col)] {
				continuous++
			} else if j == 0 {
				// The first referenced column is the X axis.
				categorical = true
			}
		}
		intents[i].Kind = chart.ChooseKind(categorical, len(rows), continuous)
	}
}

// datasetPreview renders the CSV header plus the first rows for the
// planner's prompt, annotated with row and column counts.
func datasetPreview(dataset string) (string, error) {
	reader := csv.NewReader(strings.NewReader(strings.TrimSpace(dataset)))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return "", err
	}
	if len(records) < 2 {
		return "", fmt.Errorf("dataset needs a header row and at least one data row")
	}

	shown := records
	truncated := false
	if len(shown) > previewRows+1 {
		shown = shown[:previewRows+1]
		truncated = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d rows x %d columns\n\n", len(records)-1, len(records[0]))
	for _, row := range shown {
		b.WriteString(strings.Join(row, ", "))
		b.WriteByte('\n')
	}
	if truncated {
		fmt.Fprintf(&b, "... (%d more rows)\n", len(records)-1-previewRows)
	}
	return b.String(), nil
}

// composeAnalysisOutput assembles the stage output: numbered figures as
// chart blocks, skip notes for failed analyses, and the findings summary.
func composeAnalysisOutput(artifacts []*chart.Artifact, failed []string, findings string) string {
	var b strings.Builder
	b.WriteString("# Data Analysis\n\n")

	for i, a := range artifacts {
		fmt.Fprintf(&b, "## Figure %s: %s\n\n%s\n\n", strconv.Itoa(i+1), a.Title, chart.FormatBlock(a))
	}

	if len(failed) > 0 {
		b.WriteString("## Skipped\n\n")
		for _, title := range failed {
			fmt.Fprintf(&b, "- %s (chart generation failed)\n", title)
		}
		b.WriteByte('\n')
	}

	b.WriteString("## Findings\n\n")
	b.WriteString(strings.TrimSpace(findings))
	b.WriteByte('\n')
	return b.String()
}
