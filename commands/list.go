package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mosaicsci/inquiry/workflow"
)

func newListCommand(env *Env) *cobra.Command {
	var includeArchived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List research projects, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := env.Store.ListProjects(cmd.Context())
			if err != nil {
				return err
			}

			shown := 0
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTAGE\tSTATUS\tCREATED")
			for _, p := range projects {
				if p.IsArchived() && !includeArchived {
					continue
				}
				shown++
				fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n",
					p.ID, p.Title, p.CurrentStage, workflow.StageCount,
					p.Status, p.CreatedAt.Format(time.DateOnly))
			}
			w.Flush()

			if shown == 0 {
				fmt.Println("No projects. Create one with: inquiry create <title>")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&includeArchived, "all", "a", false, "Include archived projects")
	return cmd
}
