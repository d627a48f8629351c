package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mosaicsci/inquiry/workflow"
)

func newStatusCommand(env *Env) *cobra.Command {
	var showSummaries bool

	cmd := &cobra.Command{
		Use:   "status <project-id>",
		Short: "Show a project's stage progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.loadProject(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}

			fmt.Printf("## %s\n\n", p.Title)
			if p.Description != "" {
				fmt.Printf("%s\n\n", p.Description)
			}
			fmt.Printf("**Status**: %s\n", p.Status)
			if p.Mode != "" {
				fmt.Printf("**Mode**: %s\n", p.Mode)
			}
			fmt.Printf("**Current stage**: %d of %d (%s)\n", p.CurrentStage, workflow.StageCount, stageTitle(p.CurrentStage))
			fmt.Printf("**Created**: %s\n", p.CreatedAt.Format("2006-01-02 15:04"))
			fmt.Printf("**Updated**: %s\n\n", p.UpdatedAt.Format("2006-01-02 15:04"))

			fmt.Println("### Stages")
			fmt.Println()
			for _, stage := range workflow.Stages() {
				marker := stageMarker(p, stage.Number)
				fmt.Printf("%s Stage %d: %s", marker, stage.Number, stage.Title)

				rec := p.Stages[stage.Number]
				if rec != nil {
					var notes []string
					if len(rec.History) > 0 {
						notes = append(notes, fmt.Sprintf("%d prior version(s)", len(rec.History)))
					}
					if len(rec.Provenance) > 0 {
						notes = append(notes, fmt.Sprintf("%d model call(s)", len(rec.Provenance)))
					}
					if len(notes) > 0 {
						fmt.Printf(" (%s)", strings.Join(notes, ", "))
					}
				}
				fmt.Println()

				if showSummaries && rec != nil && rec.Summary != "" {
					fmt.Printf("    %s\n", rec.Summary)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showSummaries, "summaries", "s", false, "Show per-stage summaries")
	return cmd
}

// stageMarker renders a stage's progress indicator: done, current, or not
// yet reached.
func stageMarker(p *workflow.Project, n int) string {
	switch {
	case n < p.CurrentStage:
		return "[x]"
	case n == p.CurrentStage:
		return "[>]"
	default:
		return "[ ]"
	}
}
