// Package prompts builds the prompt text and shape contracts for each
// workflow stage and agent role.
package prompts

import (
	"fmt"

	"github.com/mosaicsci/inquiry/validate"
)

// SystemInstruction is the shared persona for single-call stages.
const SystemInstruction = "You are a rigorous research assistant guiding a " +
	"scientist through a structured research workflow. Be precise, cite " +
	"reasoning, and follow the requested output format exactly."

// ForStage returns the user prompt for a single-call stage, given the
// user's input and the rendered context of prior stages.
func ForStage(stageNumber int, input, context string) string {
	switch stageNumber {
	case 1:
		return researchQuestionPrompt(input)
	case 2:
		return literatureReviewPrompt(input, context)
	case 3:
		return hypothesisPrompt(context)
	case 4:
		return methodologyPrompt(context)
	case 5:
		return dataPlanPrompt(context)
	case 6:
		return dataCollectionPrompt(input, context)
	case 8:
		return conclusionsPrompt(context)
	default:
		return ""
	}
}

// ContractForStage returns the shape contract for a structured stage, or
// ok=false when the stage's output is free text.
func ContractForStage(stageNumber int) (validate.Contract, bool) {
	switch stageNumber {
	case 1:
		return validate.Contract{
			Required:      []string{"research_question", "uniqueness_score"},
			NumericRanges: map[string][2]float64{"uniqueness_score": {0, 1}},
		}, true
	case 3:
		return validate.Contract{
			Required:       []string{"hypothesis", "variables"},
			NonEmptyArrays: []string{"variables"},
		}, true
	default:
		return validate.Contract{}, false
	}
}

// StructuredStage reports whether a stage requests JSON output.
func StructuredStage(stageNumber int) bool {
	_, ok := ContractForStage(stageNumber)
	return ok
}

func researchQuestionPrompt(input string) string {
	return fmt.Sprintf(`The researcher describes their interest as:

%s

Refine this into a focused, testable research question. Respond with JSON:
{
  "research_question": "the refined question",
  "uniqueness_score": 0.0 to 1.0 estimating how novel this question is,
  "rationale": "one paragraph explaining the refinement"
}`, input)
}

func literatureReviewPrompt(input, context string) string {
	prompt := fmt.Sprintf(`Prior work on this project:

%s

Produce a literature review for the research question above: summarize the
state of the field, identify 5-8 key references with full citations, and
note the gap this project addresses. Format the references as a numbered
list under a "References" heading.`, context)
	if input != "" {
		prompt += fmt.Sprintf("\n\nThe researcher supplied this additional source material:\n\n%s", input)
	}
	return prompt
}

func hypothesisPrompt(context string) string {
	return fmt.Sprintf(`Prior work on this project:

%s

Formulate a primary hypothesis. Respond with JSON:
{
  "hypothesis": "the testable hypothesis statement",
  "null_hypothesis": "the corresponding null hypothesis",
  "variables": [{"name": "...", "role": "independent|dependent|controlled"}]
}`, context)
}

func methodologyPrompt(context string) string {
	return fmt.Sprintf(`Prior work on this project:

%s

Design the methodology to test the hypothesis: experimental setup,
sampling strategy, measurement procedure, and analysis approach. Write it
as structured markdown with clear section headings.`, context)
}

func dataPlanPrompt(context string) string {
	return fmt.Sprintf(`Prior work on this project:

%s

Produce a data collection plan: which variables to record, units,
expected ranges, sample sizes, and a tabular template the researcher can
fill in as CSV (first row = column headers).`, context)
}

func dataCollectionPrompt(input, context string) string {
	return fmt.Sprintf(`Prior work on this project:

%s

The researcher collected the following data (CSV):

%s

Comment on data quality: completeness, apparent outliers, and whether the
data suffices to test the hypothesis. Do not fabricate values.`, context, input)
}

func conclusionsPrompt(context string) string {
	return fmt.Sprintf(`Full project log:

%s

Write the conclusions: restate the hypothesis, state whether the analysis
supports it, discuss limitations, and propose follow-up work. Plain
markdown prose.`, context)
}
