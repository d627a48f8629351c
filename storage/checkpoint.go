package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mosaicsci/inquiry/workflow"
)

// DefaultCheckpointInterval is how often the checkpointer flushes dirty
// projects during a long pipeline run.
const DefaultCheckpointInterval = 60 * time.Second

// Checkpointer periodically persists in-flight projects so a crash mid-run
// loses at most one interval of progress. Save failures are logged and
// retried on the next tick; they never interrupt the pipeline.
type Checkpointer struct {
	store    *Store
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	tracked map[string]*workflow.Project
}

// NewCheckpointer creates a checkpointer over the store. interval <= 0
// uses DefaultCheckpointInterval.
func NewCheckpointer(store *Store, logger *slog.Logger, interval time.Duration) *Checkpointer {
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checkpointer{
		store:    store,
		logger:   logger,
		interval: interval,
		tracked:  make(map[string]*workflow.Project),
	}
}

// Track registers a project for periodic persistence.
func (c *Checkpointer) Track(p *workflow.Project) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracked[p.ID] = p
}

// Release stops tracking a project, flushing it one last time.
func (c *Checkpointer) Release(ctx context.Context, id string) {
	c.mu.Lock()
	p := c.tracked[id]
	delete(c.tracked, id)
	c.mu.Unlock()

	if p != nil {
		if err := c.store.SaveProject(ctx, p); err != nil {
			c.logger.Warn("final checkpoint failed", "project", id, "error", err)
		}
	}
}

// Run flushes tracked projects every interval until ctx is cancelled.
func (c *Checkpointer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.flush(ctx)
		}
	}
}

func (c *Checkpointer) flush(ctx context.Context) {
	c.mu.Lock()
	snapshot := make([]*workflow.Project, 0, len(c.tracked))
	for _, p := range c.tracked {
		snapshot = append(snapshot, p)
	}
	c.mu.Unlock()

	for _, p := range snapshot {
		if err := c.store.SaveProject(ctx, p); err != nil {
			c.logger.Warn("checkpoint failed, will retry next interval",
				"project", p.ID, "error", err)
		}
	}
}
