package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newArchiveCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <project-id>",
		Short: "Archive a project (soft delete; export still works)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.loadProject(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}

			p.Archive()
			if err := env.Store.SaveProject(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Printf("Archived %s\n", p.Title)
			return nil
		},
	}
}

func newDeleteCommand(env *Env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Permanently delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.loadProject(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}

			if !force && !confirm(fmt.Sprintf("Permanently delete %q? This cannot be undone", p.Title)) {
				fmt.Println("Aborted.")
				return nil
			}

			if err := env.Store.DeleteProject(cmd.Context(), p.ID); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", p.Title)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")
	return cmd
}

func newRollbackCommand(env *Env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rollback <project-id> <stage>",
		Short: "Discard progress at and after a stage, moving the cursor back",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.loadProject(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}

			var n int
			if _, err := fmt.Sscanf(args[1], "%d", &n); err != nil {
				return fmt.Errorf("invalid stage number %q", args[1])
			}

			if !force && !confirm(fmt.Sprintf(
				"Discard all work from stage %d onward in %q?", n, p.Title)) {
				fmt.Println("Aborted.")
				return nil
			}

			if err := p.DeleteProgressFrom(n); err != nil {
				return err
			}
			if err := env.Store.SaveProject(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Printf("Project is back at stage %d (%s).\n", p.CurrentStage, stageTitle(p.CurrentStage))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")
	return cmd
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
