package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mosaicsci/inquiry/chart"
	"github.com/mosaicsci/inquiry/workflow"
)

var chartPlaceholder = regexp.MustCompile(`\[CHART-(\d+)\]`)

// RenderMarkdown renders the project as one markdown report. Chart blocks
// and [CHART-n] placeholders become embedded PNG data URIs; charts that
// fail to render degrade to a note rather than aborting the export.
func RenderMarkdown(p *workflow.Project) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", p.Description)
	}
	if p.Field != "" {
		fmt.Fprintf(&b, "**Field:** %s  \n", p.Field)
	}
	fmt.Fprintf(&b, "**Created:** %s  \n", p.CreatedAt.Format(time.DateOnly))
	fmt.Fprintf(&b, "**Progress:** stage %d of %d\n\n", p.CurrentStage, workflow.StageCount)

	// Figures are numbered across the whole project in analysis order so
	// placeholders written by later stages resolve consistently.
	var figures []*chart.Artifact
	if rec := p.Stages[7]; rec != nil {
		figures = chart.ParseBlocks(rec.Output)
	}
	images := renderFigures(figures)

	for _, stage := range workflow.Stages() {
		rec := p.Stages[stage.Number]
		if rec == nil || rec.Output == "" {
			continue
		}

		fmt.Fprintf(&b, "## %s\n\n", stage.Title)

		output := rec.Output
		output = replaceChartBlocks(output, figures, images)
		output = replacePlaceholders(output, images)
		b.WriteString(strings.TrimSpace(output))
		b.WriteString("\n\n")
	}

	return strings.TrimSpace(b.String()) + "\n", nil
}

// renderFigures renders each artifact to an embedded image tag, indexed by
// 1-based figure number. A failed render maps to an explanatory note.
func renderFigures(figures []*chart.Artifact) map[int]string {
	images := make(map[int]string, len(figures))
	for i, a := range figures {
		uri, err := chart.DataURI(a)
		if err != nil {
			images[i+1] = fmt.Sprintf("_Figure %d (%s) could not be rendered._", i+1, a.Title)
			continue
		}
		images[i+1] = fmt.Sprintf("![%s](%s)", a.Title, uri)
	}
	return images
}

// replaceChartBlocks swaps fenced chart blocks for their rendered images,
// in document order.
func replaceChartBlocks(output string, figures []*chart.Artifact, images map[int]string) string {
	if len(figures) == 0 {
		return output
	}
	idx := 0
	return chartBlockPattern.ReplaceAllStringFunc(output, func(string) string {
		idx++
		if img, ok := images[idx]; ok {
			return img
		}
		return ""
	})
}

var chartBlockPattern = regexp.MustCompile("(?s)```chart\\s*\\n.*?```")

// replacePlaceholders swaps [CHART-n] references for their rendered images.
func replacePlaceholders(output string, images map[int]string) string {
	return chartPlaceholder.ReplaceAllStringFunc(output, func(m string) string {
		sub := chartPlaceholder.FindStringSubmatch(m)
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			return m
		}
		if img, ok := images[n]; ok {
			return img
		}
		return m
	})
}
