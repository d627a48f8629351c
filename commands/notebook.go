package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mosaicsci/inquiry/workflow"
)

func newNotebookCommand(env *Env) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "notebook <project-id> [text]",
		Short: "Show or append to the project's scratch notebook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.loadProject(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}

			if clear {
				p.Notebook = ""
				p.UpdatedAt = time.Now()
				if err := env.Store.SaveProject(cmd.Context(), p); err != nil {
					return err
				}
				fmt.Println("Notebook cleared.")
				return nil
			}

			if len(args) == 1 {
				if p.Notebook == "" {
					fmt.Println("Notebook is empty.")
					return nil
				}
				fmt.Println(p.Notebook)
				return nil
			}

			note := strings.TrimSpace(strings.Join(args[1:], " "))
			if p.Notebook != "" {
				p.Notebook += "\n"
			}
			p.Notebook += note
			p.UpdatedAt = time.Now()

			if err := env.Store.SaveProject(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Println("Noted.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Erase the notebook")
	return cmd
}

func newModeCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "mode <project-id> <manual|automated>",
		Short: "Set the project's operating mode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.loadProject(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}

			mode := strings.ToLower(args[1])
			if mode != workflow.ModeManual && mode != workflow.ModeAutomated {
				return fmt.Errorf("unknown mode %q (want %s or %s)",
					mode, workflow.ModeManual, workflow.ModeAutomated)
			}
			p.Mode = mode
			p.UpdatedAt = time.Now()

			if err := env.Store.SaveProject(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Printf("Mode set to %s.\n", mode)
			return nil
		},
	}
}
