package workflow

import (
	"fmt"
	"strings"
)

// DefaultRecencyWindow is how many of the most recently completed stages
// contribute full output to a prompt; older stages contribute summaries.
const DefaultRecencyWindow = 2

// ContextBlock is one prior stage's contribution to a prompt.
type ContextBlock struct {
	// Stage is the source stage number.
	Stage int

	// Title is the stage title, for header tagging.
	Title string

	// Text is the stage content: full output or condensed summary.
	Text string

	// Summarized is true when Text is the condensed summary.
	Summarized bool
}

// BuildContext assembles prompt context for targetStage from stages
// 1..targetStage-1. Stages inside the recency window contribute full
// output; older stages contribute their summary, falling back to full
// output when no summary was ever produced. Deterministic and
// side-effect-free. window <= 0 uses DefaultRecencyWindow.
func BuildContext(p *Project, targetStage, window int) []ContextBlock {
	if window <= 0 {
		window = DefaultRecencyWindow
	}

	var blocks []ContextBlock
	for i := 1; i < targetStage && i <= StageCount; i++ {
		rec := p.Stages[i]
		if rec == nil || (rec.Output == "" && rec.Summary == "") {
			continue
		}
		stage, _ := StageByNumber(i)

		text := rec.Output
		summarized := false
		if targetStage-i > window && rec.Summary != "" {
			text = rec.Summary
			summarized = true
		}
		if text == "" {
			text = rec.Summary
			summarized = true
		}

		blocks = append(blocks, ContextBlock{
			Stage:      i,
			Title:      stage.Title,
			Text:       text,
			Summarized: summarized,
		})
	}
	return blocks
}

// AggregateLog renders the labeled log of all prior stages for narrative
// stages (conclusions, peer review, publication): each block is tagged
// with its stage number and title, in stage order.
func AggregateLog(p *Project, targetStage int) string {
	blocks := BuildContext(p, targetStage, 0)

	var b strings.Builder
	for _, block := range blocks {
		fmt.Fprintf(&b, "## Stage %d: %s\n\n%s\n\n", block.Stage, block.Title, block.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderContext flattens context blocks into prompt text, tagging each
// block with its source stage.
func RenderContext(blocks []ContextBlock) string {
	var b strings.Builder
	for _, block := range blocks {
		fmt.Fprintf(&b, "[Stage %d: %s]\n%s\n\n", block.Stage, block.Title, block.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
