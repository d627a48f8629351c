package prompts

import (
	"fmt"
	"strings"

	"github.com/mosaicsci/inquiry/validate"
)

// Agent personas for the multi-agent stages.
const (
	PlannerSystem = "You are a data analysis planner. Given a dataset preview " +
		"and the project's hypothesis, propose the small set of analyses that " +
		"best test it. Respond only with the requested JSON."

	BuilderSystem = "You are a chart builder. Given one analysis intent and the " +
		"dataset, produce a single chart payload as JSON. Use only values " +
		"present in the data; never invent numbers."

	SummarizerSystem = "You are a concise scientific summarizer. Condense the " +
		"given material into a short summary that preserves every decision, " +
		"number, and conclusion a later stage would need."

	WriterSystem = "You are an academic writer drafting one section of a " +
		"research paper. Write polished prose grounded strictly in the project " +
		"log; do not introduce findings the log does not support."

	CaptionerSystem = "You are a figure captioner. Write one self-contained " +
		"caption for the described figure: what it shows, and the key takeaway."

	ReviewerSystem = "You are a skeptical peer reviewer. Assess the given stage " +
		"output for rigor, internal consistency, and overreach. Be specific " +
		"and constructive."

	BibliographerSystem = "You are a bibliographer. Collect the references " +
		"cited across the draft into a single deduplicated, consistently " +
		"formatted reference list."

	EditorSystem = "You are the final editor. Merge the draft sections into " +
		"one coherent manuscript: fix transitions, unify terminology and " +
		"tense, and keep every figure placeholder exactly where it stands."
)

// PlanContract is the shape contract for the planner's analysis plan.
var PlanContract = validate.Contract{
	Required:       []string{"analyses"},
	NonEmptyArrays: []string{"analyses"},
}

// OutlineContract is the shape contract for the publication outline.
var OutlineContract = validate.Contract{
	Required:       []string{"sections"},
	NonEmptyArrays: []string{"sections"},
}

// Plan asks the planner for 2-4 analysis intents over the dataset preview.
func Plan(preview, context string) string {
	return fmt.Sprintf(`Project background:

%s

Dataset preview:

%s

Propose 2 to 4 analyses that test the hypothesis. Each analysis uses at
most 3 columns. Respond with JSON:
{
  "analyses": [
    {"title": "...", "columns": ["col", ...], "description": "what this shows"}
  ]
}`, context, preview)
}

// BuildChart asks the builder for one chart payload for a planned analysis.
func BuildChart(title, description, kind string, columns []string, dataset string) string {
	return fmt.Sprintf(`Analysis: %s
Goal: %s
Columns: %s
Chart type: %s

Dataset (CSV):

%s

Produce exactly one chart as JSON:
{
  "title": "...",
  "type": %q,
  "data": {
    "labels": ["...", ...],
    "datasets": [{"label": "...", "data": [numbers only]}]
  }
}
Use exactly the chart type given above. Every element of "data" arrays must
be a JSON number, not a string.`,
		title, description, strings.Join(columns, ", "), kind, dataset, kind)
}

// SummarizeStage asks for the condensed summary recorded at stage completion.
func SummarizeStage(stageTitle, output string) string {
	return fmt.Sprintf(`Summarize the output of the "%s" stage in at most 150
words, preserving every concrete decision and number:

%s`, stageTitle, output)
}

// SummarizeAnalyses asks for a findings summary over the charts that built
// successfully.
func SummarizeAnalyses(descriptions []string) string {
	return fmt.Sprintf(`The following analyses were produced:

%s

Write a findings summary: what each chart shows and what the set of
results says about the hypothesis. Plain markdown prose.`,
		strings.Join(descriptions, "\n"))
}

// Outline asks for the publication's section plan.
func Outline(context string) string {
	return fmt.Sprintf(`Full project log:

%s

Plan the sections of the final paper. Respond with JSON:
{
  "sections": [
    {"title": "...", "brief": "one sentence on what this section covers"}
  ]
}
Use a conventional structure (introduction, methods, results, discussion)
adapted to this project.`, context)
}

// WriteSection asks a writer for one section's prose.
func WriteSection(title, brief, context string) string {
	return fmt.Sprintf(`Full project log:

%s

Write the "%s" section. Scope: %s

Where a figure belongs, insert a placeholder of the form [CHART-1],
[CHART-2], ... referring to the numbered figures from the analysis stage.
Markdown prose, no top-level title.`, context, title, brief)
}

// Caption asks for a caption for one figure.
func Caption(index int, title, description string) string {
	return fmt.Sprintf(`Figure %d: "%s".
The figure was produced by this analysis: %s

Write the caption.`, index, title, description)
}

// Bibliography asks for the unified reference list over the draft.
func Bibliography(draft string) string {
	return fmt.Sprintf(`Draft manuscript:

%s

Extract every reference cited in the draft and in the project's
literature review, deduplicate, and emit a single "References" section as
a numbered markdown list.`, draft)
}

// Edit asks the editor to merge the assembled draft into a final manuscript.
func Edit(assembled string) string {
	return fmt.Sprintf(`Assembled draft with figure placeholders:

%s

Produce the final manuscript: smooth transitions between sections, unify
terminology and tense, and fix inconsistencies. Keep every [CHART-n]
placeholder exactly as written and in place. Output the complete
manuscript in markdown.`, assembled)
}

// Review asks the reviewer to critique one completed stage.
func Review(stageTitle, output, context string) string {
	return fmt.Sprintf(`Project background:

%s

Stage under review: %s

%s

Write a peer-review assessment of this stage: strengths, weaknesses,
and concrete revision suggestions. Markdown prose.`, context, stageTitle, output)
}
