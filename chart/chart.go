// Package chart defines the chart artifact contract produced by the
// data-analysis pipeline and renders artifacts through a real charting
// library. The dry run exists because LLM output can satisfy a schema and
// still be unusable by the renderer.
package chart

import (
	"fmt"
	"math"
	"strconv"
)

// Kind enumerates the supported chart types.
type Kind string

const (
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindScatter Kind = "scatter"
)

// IsValid checks if a kind string is a known chart type.
func (k Kind) IsValid() bool {
	switch k {
	case KindBar, KindLine, KindScatter:
		return true
	}
	return false
}

// Status marks whether an artifact survived its rendering sub-step.
type Status string

const (
	// StatusSuccess means the artifact rendered and may be referenced by
	// downstream summarization and embedding steps.
	StatusSuccess Status = "success"

	// StatusFailedSkipped means the artifact failed a sub-step and was
	// dropped from user-facing output. It stays in the run log for
	// diagnostics.
	StatusFailedSkipped Status = "failed_skipped"
)

// Dataset is one named numeric series.
type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// Data carries categorical or time labels plus one or more numeric series.
type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Artifact is one chart produced by a per-item rendering sub-step.
type Artifact struct {
	Title  string `json:"title"`
	Type   Kind   `json:"type"`
	Data   Data   `json:"data"`
	Status Status `json:"status,omitempty"`
}

// Validate checks the artifact's internal consistency: a known kind,
// non-empty labels, and series whose lengths match the label axis.
func (a *Artifact) Validate() error {
	if !a.Type.IsValid() {
		return fmt.Errorf("unknown chart type %q", a.Type)
	}
	if len(a.Data.Labels) == 0 {
		return fmt.Errorf("chart has no labels")
	}
	if len(a.Data.Datasets) == 0 {
		return fmt.Errorf("chart has no datasets")
	}
	for i, ds := range a.Data.Datasets {
		if len(ds.Data) == 0 {
			return fmt.Errorf("dataset %d (%q) is empty", i, ds.Label)
		}
		if len(ds.Data) != len(a.Data.Labels) {
			return fmt.Errorf("dataset %d (%q) has %d points for %d labels",
				i, ds.Label, len(ds.Data), len(a.Data.Labels))
		}
		for j, v := range ds.Data {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("dataset %d (%q) point %d is not finite", i, ds.Label, j)
			}
		}
	}
	return nil
}

// ChooseKind picks a chart type for a visualization intent using a fixed
// heuristic: categorical or few-point data renders as bars, continuous or
// time-series data as a line, and two continuous variables as a scatter.
func ChooseKind(categorical bool, points, continuousVars int) Kind {
	switch {
	case categorical || points <= 6:
		return KindBar
	case continuousVars >= 2:
		return KindScatter
	default:
		return KindLine
	}
}

// xValues derives a numeric X axis from the labels, falling back to
// 1..n indices when labels are not numeric.
func (a *Artifact) xValues() []float64 {
	xs := make([]float64, len(a.Data.Labels))
	numeric := true
	for i, label := range a.Data.Labels {
		v, err := strconv.ParseFloat(label, 64)
		if err != nil {
			numeric = false
			break
		}
		xs[i] = v
	}
	if !numeric {
		for i := range xs {
			xs[i] = float64(i + 1)
		}
	}
	return xs
}
