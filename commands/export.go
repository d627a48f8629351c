package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mosaicsci/inquiry/export"
)

func newExportCommand(env *Env) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Export a project as a markdown report or JSON dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.loadProject(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}

			f := export.Format(format)
			if _, ok := export.GetFormatInfo(f); !ok {
				return fmt.Errorf("unsupported format %q (supported: %v)", format, export.ListFormats())
			}

			if out == "" {
				data, err := export.Export(p, f)
				if err != nil {
					return err
				}
				fmt.Print(string(data))
				return nil
			}

			path, err := export.WriteFile(p, f, out)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %s to %s\n", p.Title, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatMarkdown), "Export format: markdown or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	return cmd
}
