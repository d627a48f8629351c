package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mosaicsci/inquiry/fetch"
)

func newFetchCommand(env *Env) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "fetch <url>...",
		Short: "Fetch web sources as markdown for the literature review",
		Long: `Fetch retrieves one or more web pages, extracts the article content,
and converts it to markdown. With --project, the result is stored as
input to the project's literature-review stage; otherwise it prints to
stdout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			collector := fetch.NewCollector()

			var refs []*fetch.Reference
			for _, url := range args {
				ref, err := collector.Collect(ctx, url)
				if err != nil {
					env.Logger.Warn("fetch failed", "url", url, "error", err)
					fmt.Printf("Skipped %s: %v\n", url, err)
					continue
				}
				fmt.Printf("Fetched %s (%s)\n", ref.Title, url)
				refs = append(refs, ref)
			}
			if len(refs) == 0 {
				return fmt.Errorf("no sources could be fetched")
			}

			material := fetch.FormatForPrompt(refs)

			if projectID == "" {
				fmt.Println()
				fmt.Println(material)
				return nil
			}

			p, err := env.loadProject(ctx, projectID, false)
			if err != nil {
				return err
			}
			rec, err := p.Stage(2)
			if err != nil {
				return fmt.Errorf("literature review not reachable yet: %w", err)
			}
			if rec.Input != "" {
				rec.Input += "\n\n"
			}
			rec.Input += material
			p.UpdatedAt = time.Now()

			if err := env.Store.SaveProject(ctx, p); err != nil {
				return err
			}
			fmt.Printf("Stored %d source(s) as literature-review input for %s\n", len(refs), p.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Attach fetched sources to this project's literature review")
	return cmd
}
