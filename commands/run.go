package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mosaicsci/inquiry/workflow"
)

func newRunCommand(env *Env) *cobra.Command {
	var (
		stageNum  int
		inputFile string
		inputText string
		auto      bool
	)

	cmd := &cobra.Command{
		Use:   "run <project-id>",
		Short: "Run the project's current stage (or a reachable earlier one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := env.loadProject(ctx, args[0], false)
			if err != nil {
				return err
			}

			input := inputText
			if inputFile != "" {
				data, err := os.ReadFile(inputFile)
				if err != nil {
					return fmt.Errorf("read input file: %w", err)
				}
				input = string(data)
			}

			n := stageNum
			if n == 0 {
				n = p.CurrentStage
			}

			env.Checkpointer.Track(p)
			defer env.Checkpointer.Release(ctx, p.ID)

			for {
				if err := runOneStage(cmd, env, p, n, input); err != nil {
					return err
				}

				if !auto || p.Mode != workflow.ModeAutomated {
					break
				}
				if p.CurrentStage <= n || n >= workflow.StageCount {
					break
				}
				n = p.CurrentStage
				input = "" // user input applies only to the first stage run

				// Automated mode pauses where the workflow needs data the
				// model cannot produce.
				if n == 6 {
					fmt.Println("Paused: data collection needs your dataset. Re-run with --input-file.")
					break
				}
			}

			return env.Store.SaveProject(ctx, p)
		},
	}

	cmd.Flags().IntVarP(&stageNum, "stage", "n", 0, "Stage number to run (default: current stage)")
	cmd.Flags().StringVarP(&inputFile, "input-file", "i", "", "File with user input for the stage (e.g., CSV data)")
	cmd.Flags().StringVar(&inputText, "input", "", "Inline user input for the stage")
	cmd.Flags().BoolVar(&auto, "auto", false, "In automated mode, keep running consecutive stages")
	return cmd
}

func runOneStage(cmd *cobra.Command, env *Env, p *workflow.Project, n int, input string) error {
	stage, ok := workflow.StageByNumber(n)
	if !ok {
		return fmt.Errorf("%w: %d", workflow.ErrStageOutOfRange, n)
	}

	fmt.Printf("Running stage %d: %s...\n", n, stage.Title)

	run, err := env.Orchestrator.RunStage(cmd.Context(), p, n, input)
	if run != nil {
		for _, entry := range run.Entries() {
			fmt.Printf("  [%s] %s\n", entry.Source, entry.Message)
		}
	}
	if err != nil {
		// Persist partial progress (provenance, inputs) before reporting.
		if saveErr := env.Store.SaveProject(cmd.Context(), p); saveErr != nil {
			env.Logger.Warn("save after failed run", "project", p.ID, "error", saveErr)
		}
		return fmt.Errorf("stage %d failed: %w", n, err)
	}

	rec := p.Stages[n]
	if rec != nil && rec.Summary != "" {
		fmt.Printf("\nSummary: %s\n", strings.TrimSpace(rec.Summary))
	}
	fmt.Printf("Stage %d complete. Project is now at stage %d.\n\n", n, p.CurrentStage)
	return nil
}
