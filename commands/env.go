// Package commands provides the CLI commands for inquiry. Each command
// operates on the shared environment wired up at application start.
package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mosaicsci/inquiry/llm"
	"github.com/mosaicsci/inquiry/pipeline"
	"github.com/mosaicsci/inquiry/storage"
	"github.com/mosaicsci/inquiry/workflow"
)

// Streamer is the streaming gateway surface the ask command depends on.
// Satisfied by llm.Client.
type Streamer interface {
	Stream(ctx context.Context, req llm.Request) (*llm.Stream, error)
}

// Env holds the wired dependencies commands operate on.
type Env struct {
	Store        *storage.Store
	Orchestrator *pipeline.Orchestrator
	Checkpointer *storage.Checkpointer
	Gateway      Streamer
	Logger       *slog.Logger
}

// NewRootCommand builds the full command tree over the environment.
func NewRootCommand(env *Env) *cobra.Command {
	root := &cobra.Command{
		Use:   "inquiry",
		Short: "Research workflow copilot",
		Long: `Inquiry guides a research project through a fixed ten-stage workflow,
from research question to publication, using model-driven stage pipelines.

Projects are persisted locally; each stage builds on the context of the
stages before it.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newCreateCommand(env),
		newListCommand(env),
		newStatusCommand(env),
		newRunCommand(env),
		newExportCommand(env),
		newArchiveCommand(env),
		newDeleteCommand(env),
		newRollbackCommand(env),
		newFetchCommand(env),
		newAskCommand(env),
		newNotebookCommand(env),
		newModeCommand(env),
	)
	return root
}

// loadProject fetches a project and rejects archived ones for mutating
// commands.
func (e *Env) loadProject(ctx context.Context, id string, allowArchived bool) (*workflow.Project, error) {
	p, err := e.Store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsArchived() && !allowArchived {
		return nil, workflow.ErrProjectArchived
	}
	return p, nil
}
