package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mosaicsci/inquiry/workflow"
)

func newCreateCommand(env *Env) *cobra.Command {
	var (
		description string
		field       string
		mode        string
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a new research project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))

			p, err := workflow.NewProject(title, description, field)
			if err != nil {
				return err
			}

			switch mode {
			case "":
			case workflow.ModeManual, workflow.ModeAutomated:
				p.Mode = mode
			default:
				return fmt.Errorf("unknown mode %q (want %s or %s)",
					mode, workflow.ModeManual, workflow.ModeAutomated)
			}

			if err := env.Store.CreateProject(cmd.Context(), p); err != nil {
				return err
			}

			fmt.Printf("Created project %s\n", p.ID)
			fmt.Printf("Title: %s\n", p.Title)
			if p.Field != "" {
				fmt.Printf("Field: %s\n", p.Field)
			}
			fmt.Printf("Stage: 1 of %d (%s)\n", workflow.StageCount, stageTitle(1))
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	cmd.Flags().StringVarP(&field, "field", "f", "", "Research field (e.g., \"soil science\")")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Operating mode: manual or automated")
	return cmd
}

func stageTitle(n int) string {
	stage, ok := workflow.StageByNumber(n)
	if !ok {
		return "?"
	}
	return stage.Title
}
