// Package workflow defines the research project aggregate: the fixed
// ten-stage workflow, per-stage records with history and provenance, and
// the context compiler that assembles prompt context from prior stages.
package workflow

// Stage describes one step of the fixed research workflow.
type Stage struct {
	// Number is the 1-based stage position.
	Number int `json:"number"`

	// Slug is the stable identifier used in storage keys and CLI args.
	Slug string `json:"slug"`

	// Title is the human-readable stage name.
	Title string `json:"title"`

	// Aggregate marks stages that synthesize the full project narrative
	// and therefore receive the labeled log of all prior stages.
	Aggregate bool `json:"aggregate"`

	// Agentic marks stages driven by a multi-agent pipeline rather than a
	// single model call.
	Agentic bool `json:"agentic"`
}

// The fixed workflow. Order is load-bearing: stage N's context is compiled
// from stages 1..N-1.
var stages = []Stage{
	{Number: 1, Slug: "research-question", Title: "Research Question"},
	{Number: 2, Slug: "literature-review", Title: "Literature Review"},
	{Number: 3, Slug: "hypothesis", Title: "Hypothesis"},
	{Number: 4, Slug: "methodology", Title: "Methodology"},
	{Number: 5, Slug: "data-plan", Title: "Data Collection Plan"},
	{Number: 6, Slug: "data-collection", Title: "Data Collection"},
	{Number: 7, Slug: "data-analysis", Title: "Data Analysis", Agentic: true},
	{Number: 8, Slug: "conclusions", Title: "Conclusions", Aggregate: true},
	{Number: 9, Slug: "peer-review", Title: "Peer Review", Aggregate: true, Agentic: true},
	{Number: 10, Slug: "publication", Title: "Publication", Aggregate: true, Agentic: true},
}

// StageCount is the number of workflow stages.
const StageCount = 10

// Stages returns the full ordered stage list.
func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}

// StageByNumber returns the stage with the given 1-based number.
// ok is false for numbers outside [1, StageCount].
func StageByNumber(n int) (Stage, bool) {
	if n < 1 || n > len(stages) {
		return Stage{}, false
	}
	return stages[n-1], true
}

// StageBySlug returns the stage with the given slug.
func StageBySlug(slug string) (Stage, bool) {
	for _, s := range stages {
		if s.Slug == slug {
			return s, true
		}
	}
	return Stage{}, false
}
