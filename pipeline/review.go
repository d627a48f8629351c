package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mosaicsci/inquiry/llm"
	"github.com/mosaicsci/inquiry/prompts"
	"github.com/mosaicsci/inquiry/workflow"
)

// runReview executes the peer-review sweep: one reviewer call per completed
// prior stage, in stage order. A single failed review degrades to a note in
// the report; the sweep fails only if every review fails.
func (o *Orchestrator) runReview(ctx context.Context, p *workflow.Project, run *Run) (string, error) {
	compiled := workflow.RenderContext(workflow.BuildContext(p, 9, o.recencyWindow))

	var sections []string
	reviewed, succeeded := 0, 0
	for n := 1; n < 9; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rec := p.Stages[n]
		if rec == nil || rec.Output == "" {
			continue
		}
		if reviewed > 0 && o.pacing > 0 {
			// Reviews pace the same way publication writers do; eight
			// back-to-back large calls can trip service rate limits.
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(o.pacing):
			}
		}
		reviewed++
		stage, _ := workflow.StageByNumber(n)

		review, err := o.call(ctx, p, run, 9, llm.Request{
			Role: "reviewer",
			Messages: []llm.Message{
				{Role: "system", Content: prompts.ReviewerSystem},
				{Role: "user", Content: prompts.Review(stage.Title, rec.Output, compiled)},
			},
		}, o.retry, "review-"+stage.Slug)
		if err != nil {
			run.Log("reviewer", fmt.Sprintf("review of stage %d failed: %v", n, err))
			sections = append(sections, fmt.Sprintf(
				"## Review of Stage %d: %s\n\n_Review unavailable._", n, stage.Title))
			continue
		}
		succeeded++
		sections = append(sections, fmt.Sprintf(
			"## Review of Stage %d: %s\n\n%s", n, stage.Title, strings.TrimSpace(review)))
	}

	if reviewed == 0 {
		return "", fmt.Errorf("nothing to review: no prior stage has output")
	}
	if succeeded == 0 {
		return "", fmt.Errorf("all %d stage reviews failed", reviewed)
	}

	run.Log("reviewer", fmt.Sprintf("reviewed %d of %d stages", succeeded, reviewed))
	return "# Peer Review\n\n" + strings.Join(sections, "\n\n") + "\n", nil
}
