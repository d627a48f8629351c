package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mosaicsci/inquiry/llm"
	"github.com/mosaicsci/inquiry/prompts"
	"github.com/mosaicsci/inquiry/retry"
	"github.com/mosaicsci/inquiry/validate"
	"github.com/mosaicsci/inquiry/workflow"
)

// Gateway is the model-call surface the orchestrator depends on. Satisfied
// by llm.Client; tests substitute a scripted implementation.
type Gateway interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// editorTimeout extends the gateway budget for the final editing pass,
// which reads the entire assembled draft.
const editorTimeout = 120 * time.Second

// summaryFallbackLen truncates raw output for the stage summary when the
// summarizer itself is unavailable.
const summaryFallbackLen = 500

// Orchestrator executes stage pipelines against a model gateway.
type Orchestrator struct {
	gw      Gateway
	logger  *slog.Logger
	retry   retry.Options
	patient retry.Options

	recencyWindow int
	pacing        time.Duration
	captionLimit  int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithRetryOptions sets the standard retry policy.
func WithRetryOptions(opts retry.Options) Option {
	return func(o *Orchestrator) { o.retry = opts }
}

// WithPatientOptions sets the retry policy for slow aggregate calls.
func WithPatientOptions(opts retry.Options) Option {
	return func(o *Orchestrator) { o.patient = opts }
}

// WithPacing sets the delay between consecutive section-writer calls.
func WithPacing(d time.Duration) Option {
	return func(o *Orchestrator) { o.pacing = d }
}

// WithCaptionConcurrency bounds the caption fan-out.
func WithCaptionConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.captionLimit = n
		}
	}
}

// WithRecencyWindow overrides how many recent stages contribute full output
// to compiled context.
func WithRecencyWindow(n int) Option {
	return func(o *Orchestrator) { o.recencyWindow = n }
}

// New creates an orchestrator over the given gateway.
func New(gw Gateway, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gw:            gw,
		logger:        slog.Default(),
		retry:         retry.DefaultOptions(),
		patient:       retry.PatientOptions(),
		recencyWindow: workflow.DefaultRecencyWindow,
		pacing:        2 * time.Second,
		captionLimit:  3,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunStage executes stage n of the project and returns the completed run.
// On success the project's stage output, summary, provenance, and cursor
// are updated in memory; persisting the project is the caller's concern.
// Cancellation via ctx aborts between model calls and returns ctx.Err().
func (o *Orchestrator) RunStage(ctx context.Context, p *workflow.Project, n int, input string) (*Run, error) {
	if p.IsArchived() {
		return nil, workflow.ErrProjectArchived
	}
	if _, err := p.Stage(n); err != nil {
		return nil, err
	}
	stage, _ := workflow.StageByNumber(n)

	run := newRun(n)
	run.Log("orchestrator", fmt.Sprintf("starting stage %d (%s)", n, stage.Title))

	if input != "" {
		if err := p.RecordInput(n, input); err != nil {
			return nil, err
		}
	}

	var output string
	var err error
	switch n {
	case 7:
		output, err = o.runAnalysis(ctx, p, run, input)
	case 9:
		output, err = o.runReview(ctx, p, run)
	case 10:
		output, err = o.runPublication(ctx, p, run)
	default:
		output, err = o.runSingle(ctx, p, run, stage, input)
	}
	if err != nil {
		run.fail(err.Error())
		run.Log("orchestrator", fmt.Sprintf("stage %d failed: %v", n, err))
		return run, err
	}

	if err := p.RecordOutput(n, output); err != nil {
		run.fail(err.Error())
		return run, err
	}

	summary := o.summarize(ctx, p, run, stage, output)
	if err := p.CompleteStage(n, summary); err != nil {
		run.fail(err.Error())
		return run, err
	}

	run.succeed()
	run.Log("orchestrator", fmt.Sprintf("stage %d complete", n))
	return run, nil
}

// runSingle executes a one-call stage: compile context, prompt, validate
// structured output where the stage demands it.
func (o *Orchestrator) runSingle(ctx context.Context, p *workflow.Project, run *Run, stage workflow.Stage, input string) (string, error) {
	compiled := o.compileContext(p, stage)

	prompt := prompts.ForStage(stage.Number, input, compiled)
	if prompt == "" {
		return "", fmt.Errorf("stage %d has no single-call prompt", stage.Number)
	}

	req := llm.Request{
		Role: roleForStage(stage.Number),
		Messages: []llm.Message{
			{Role: "system", Content: prompts.SystemInstruction},
			{Role: "user", Content: prompt},
		},
	}
	if prompts.StructuredStage(stage.Number) {
		req.ResponseMIMEType = "application/json"
	}
	if stage.Number == 2 {
		req.WebSearch = true
	}

	raw, err := o.call(ctx, p, run, stage.Number, req, o.retry, stage.Slug)
	if err != nil {
		return "", err
	}

	contract, structured := prompts.ContractForStage(stage.Number)
	if !structured {
		return raw, nil
	}

	if _, verr := validate.Validate(raw, contract); verr != nil {
		run.Log("validator", fmt.Sprintf("output rejected (%s), requesting repair", verr.Kind))
		repaired, rerr := o.repair(ctx, p, run, stage.Number, req, raw, verr)
		if rerr == nil {
			return repaired, nil
		}
		// Degrade to the raw text rather than losing the model's work.
		run.Log("validator", fmt.Sprintf("repair failed (%v), keeping raw output", rerr))
	}
	return raw, nil
}

// repair re-asks once with the validation failure appended. Malformed or
// mis-shaped output is usually a formatting slip the model can fix.
func (o *Orchestrator) repair(ctx context.Context, p *workflow.Project, run *Run, stageNum int, req llm.Request, raw string, verr *validate.Error) (string, error) {
	contract, _ := prompts.ContractForStage(stageNum)

	req.Messages = append(req.Messages,
		llm.Message{Role: "assistant", Content: raw},
		llm.Message{Role: "user", Content: fmt.Sprintf(
			"That response failed validation: %v. Reply again with only the corrected JSON.", verr)},
	)

	repaired, err := o.call(ctx, p, run, stageNum, req, o.retry, "repair")
	if err != nil {
		return "", err
	}
	if _, verr := validate.Validate(repaired, contract); verr != nil {
		return "", verr
	}
	return repaired, nil
}

// summarize produces the condensed stage summary recorded at completion.
// When the summarizer is unavailable the summary degrades to a truncation
// of the raw output; completion never fails on summarization alone.
func (o *Orchestrator) summarize(ctx context.Context, p *workflow.Project, run *Run, stage workflow.Stage, output string) string {
	req := llm.Request{
		Role: "summarizer",
		Messages: []llm.Message{
			{Role: "system", Content: prompts.SummarizerSystem},
			{Role: "user", Content: prompts.SummarizeStage(stage.Title, output)},
		},
	}

	summary, err := o.call(ctx, p, run, stage.Number, req, o.retry, "summarize")
	if err != nil {
		run.Log("summarizer", fmt.Sprintf("summarization unavailable (%v), truncating output", err))
		if len(output) > summaryFallbackLen {
			return output[:summaryFallbackLen] + "..."
		}
		return output
	}
	return summary
}

// compileContext assembles the prior-stage context a stage prompt needs.
func (o *Orchestrator) compileContext(p *workflow.Project, stage workflow.Stage) string {
	if stage.Aggregate {
		return workflow.AggregateLog(p, stage.Number)
	}
	return workflow.RenderContext(workflow.BuildContext(p, stage.Number, o.recencyWindow))
}

// call performs one retried gateway call, logging retries to the run and
// recording provenance on the project.
func (o *Orchestrator) call(ctx context.Context, p *workflow.Project, run *Run, stageNum int, req llm.Request, opts retry.Options, label string) (string, error) {
	if !run.countCall() {
		return "", fmt.Errorf("run exceeded %d model calls", maxAgentCalls)
	}

	opts.Source = req.Role
	opts.OnLog = run.Log

	resp, err := retry.Do(ctx, opts, func(ctx context.Context) (*llm.Response, error) {
		return o.gw.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}

	o.logger.Debug("agent call complete",
		"stage", stageNum,
		"role", req.Role,
		"label", label,
		"tokens", resp.Usage.TotalTokens)

	// The project aggregate is lock-protected, so caption workers may
	// record provenance concurrently.
	perr := p.RecordProvenance(stageNum, workflow.ProvenanceEntry{
		Prompt: fmt.Sprintf("%s/%s", req.Role, label),
		Output: resp.Content,
	})
	if perr != nil {
		o.logger.Warn("provenance record failed", "stage", stageNum, "error", perr)
	}

	return resp.Content, nil
}

// roleForStage maps a single-call stage to the semantic model role that
// serves it. Heavyweight synthesis stages use the writer tier; the rest run
// on the fast tier.
func roleForStage(n int) string {
	switch n {
	case 2, 4, 8:
		return "writer"
	default:
		return "fast"
	}
}
