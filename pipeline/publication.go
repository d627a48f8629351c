package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mosaicsci/inquiry/chart"
	"github.com/mosaicsci/inquiry/llm"
	"github.com/mosaicsci/inquiry/prompts"
	"github.com/mosaicsci/inquiry/validate"
	"github.com/mosaicsci/inquiry/workflow"
)

// maxSections caps the outline length.
const maxSections = 8

// outlineSection is one planned paper section.
type outlineSection struct {
	Title string `json:"title"`
	Brief string `json:"brief"`
}

var chartPlaceholder = regexp.MustCompile(`\[CHART-(\d+)\]`)

// runPublication executes the publication pipeline: an outline plans the
// paper's sections, writers draft them one at a time with pacing between
// calls, captioners annotate referenced figures concurrently, a
// bibliographer unifies references, and a patient editor merges the whole
// into the final manuscript. Every step after the outline degrades rather
// than failing the run.
func (o *Orchestrator) runPublication(ctx context.Context, p *workflow.Project, run *Run) (string, error) {
	aggregate := workflow.AggregateLog(p, 10)

	sections, err := o.planOutline(ctx, p, run, aggregate)
	if err != nil {
		return "", fmt.Errorf("outline: %w", err)
	}
	run.Log("outliner", fmt.Sprintf("planned %d sections", len(sections)))

	drafts := make([]string, len(sections))
	for i, section := range sections {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if i > 0 && o.pacing > 0 {
			// Writers run sequentially with a gap so a burst of large calls
			// doesn't trip service rate limits mid-draft.
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(o.pacing):
			}
		}

		draft, err := o.call(ctx, p, run, 10, llm.Request{
			Role: "writer",
			Messages: []llm.Message{
				{Role: "system", Content: prompts.WriterSystem},
				{Role: "user", Content: prompts.WriteSection(section.Title, section.Brief, aggregate)},
			},
		}, o.retry, "section")
		if err != nil {
			run.Log("writer", fmt.Sprintf("section %q failed: %v", section.Title, err))
			draft = "_This section could not be generated._"
		}
		drafts[i] = fmt.Sprintf("## %s\n\n%s", section.Title, strings.TrimSpace(draft))
	}

	assembled := strings.Join(drafts, "\n\n")
	assembled = o.captionFigures(ctx, p, run, assembled)

	// Citations originate in the literature review; without its output the
	// bibliographer has nothing to unify.
	if rec := p.Stages[2]; rec != nil && strings.TrimSpace(rec.Output) != "" {
		if bib := o.buildBibliography(ctx, p, run, assembled); bib != "" {
			assembled += "\n\n## References\n\n" + strings.TrimSpace(bib)
		}
	} else {
		run.Log("bibliographer", "no literature review on record, skipping references")
	}

	final, err := o.call(ctx, p, run, 10, llm.Request{
		Role:    "editor",
		Timeout: editorTimeout,
		Messages: []llm.Message{
			{Role: "system", Content: prompts.EditorSystem},
			{Role: "user", Content: prompts.Edit(assembled)},
		},
	}, o.patient, "edit")
	if err != nil {
		// The unedited assembly is still a usable manuscript.
		run.Log("editor", fmt.Sprintf("final edit unavailable (%v), keeping assembled draft", err))
		return assembled, nil
	}
	return final, nil
}

// planOutline runs the outliner and decodes its validated section plan.
func (o *Orchestrator) planOutline(ctx context.Context, p *workflow.Project, run *Run, aggregate string) ([]outlineSection, error) {
	raw, err := o.call(ctx, p, run, 10, llm.Request{
		Role:             "planner",
		ResponseMIMEType: "application/json",
		Messages: []llm.Message{
			{Role: "system", Content: prompts.PlannerSystem},
			{Role: "user", Content: prompts.Outline(aggregate)},
		},
	}, o.retry, "outline")
	if err != nil {
		return nil, err
	}

	parsed, verr := validate.Validate(raw, prompts.OutlineContract)
	if verr != nil {
		return nil, verr
	}

	encoded, err := json.Marshal(parsed["sections"])
	if err != nil {
		return nil, err
	}
	var sections []outlineSection
	if err := json.Unmarshal(encoded, &sections); err != nil {
		return nil, validate.NewError(validate.KindWrongElementType, "sections", err.Error())
	}
	if len(sections) > maxSections {
		sections = sections[:maxSections]
	}
	return sections, nil
}

// captionFigures finds [CHART-n] placeholders in the draft, captions the
// referenced figures with a bounded concurrent fan-out, and splices each
// caption in after its placeholder. A failed caption degrades to the
// figure title.
func (o *Orchestrator) captionFigures(ctx context.Context, p *workflow.Project, run *Run, draft string) string {
	var artifacts []*chart.Artifact
	if rec := p.Stages[7]; rec != nil {
		artifacts = chart.ParseBlocks(rec.Output)
	}
	if len(artifacts) == 0 {
		return draft
	}

	referenced := make(map[int]bool)
	for _, m := range chartPlaceholder.FindAllStringSubmatch(draft, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= len(artifacts) {
			referenced[n] = true
		}
	}
	if len(referenced) == 0 {
		return draft
	}

	captions := make(map[int]string, len(referenced))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.captionLimit)
	for n := range referenced {
		g.Go(func() error {
			a := artifacts[n-1]
			caption, err := o.call(gctx, p, run, 10, llm.Request{
				Role: "captioner",
				Messages: []llm.Message{
					{Role: "system", Content: prompts.CaptionerSystem},
					{Role: "user", Content: prompts.Caption(n, a.Title, string(a.Type)+" chart")},
				},
			}, o.retry, "caption")
			if err != nil {
				run.Log("captioner", fmt.Sprintf("figure %d caption failed: %v", n, err))
				caption = a.Title
			}
			mu.Lock()
			captions[n] = strings.TrimSpace(caption)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; Wait only observes cancellation.
	_ = g.Wait()

	return chartPlaceholder.ReplaceAllStringFunc(draft, func(m string) string {
		sub := chartPlaceholder.FindStringSubmatch(m)
		n, _ := strconv.Atoi(sub[1])
		caption, ok := captions[n]
		if !ok {
			return m
		}
		return fmt.Sprintf("%s\n\n*Figure %d: %s*", m, n, caption)
	})
}

// buildBibliography collects references across the draft. Returns "" when
// the bibliographer is unavailable; a manuscript without a unified
// reference list is degraded, not failed.
func (o *Orchestrator) buildBibliography(ctx context.Context, p *workflow.Project, run *Run, draft string) string {
	bib, err := o.call(ctx, p, run, 10, llm.Request{
		Role: "bibliographer",
		Messages: []llm.Message{
			{Role: "system", Content: prompts.BibliographerSystem},
			{Role: "user", Content: prompts.Bibliography(draft)},
		},
	}, o.retry, "bibliography")
	if err != nil {
		run.Log("bibliographer", fmt.Sprintf("bibliography failed: %v", err))
		return ""
	}
	// Strip a heading the model may have added; the caller supplies one.
	bib = strings.TrimSpace(bib)
	bib = strings.TrimPrefix(bib, "## References")
	bib = strings.TrimPrefix(bib, "# References")
	return strings.TrimSpace(bib)
}
