package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mosaicsci/inquiry/llm"
	"github.com/mosaicsci/inquiry/workflow"
)

func newAskCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <project-id> <question>",
		Short: "Ask a question about the project, answered from its accumulated state",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := env.loadProject(ctx, args[0], true)
			if err != nil {
				return err
			}
			question := strings.TrimSpace(strings.Join(args[1:], " "))
			if question == "" {
				return fmt.Errorf("question is empty")
			}

			blocks := workflow.BuildContext(p, p.CurrentStage, workflow.DefaultRecencyWindow)

			var b strings.Builder
			fmt.Fprintf(&b, "You are assisting with the research project %q.\n", p.Title)
			b.WriteString("Answer the question using the project state below. ")
			b.WriteString("If the project state does not cover it, say so.\n\n")
			if rendered := workflow.RenderContext(blocks); rendered != "" {
				b.WriteString(rendered)
				b.WriteString("\n\n")
			}
			b.WriteString("Question: ")
			b.WriteString(question)

			stream, err := env.Gateway.Stream(ctx, llm.Request{
				Role:     "fast",
				Messages: []llm.Message{{Role: "user", Content: b.String()}},
			})
			if err != nil {
				return fmt.Errorf("start answer stream: %w", err)
			}
			defer stream.Close()

			out := cmd.OutOrStdout()
			for {
				chunk, err := stream.Recv()
				if err == io.EOF {
					break
				}
				if err != nil {
					return fmt.Errorf("stream answer: %w", err)
				}
				fmt.Fprint(out, chunk)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	return cmd
}
