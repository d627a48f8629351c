// Package storage persists research projects in NATS KV. Each project is
// one document under its ID; writes replace the whole record, so the last
// writer wins and readers always see a complete project.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/mosaicsci/inquiry/workflow"
)

// BucketProjects is the KV bucket holding project documents.
const BucketProjects = "INQUIRY_PROJECTS"

// Store provides project persistence backed by NATS KV.
type Store struct {
	projects jetstream.KeyValue
}

// NewStore creates a Store over the given JetStream context, creating the
// projects bucket if it doesn't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	projects, err := getOrCreateBucket(ctx, js, BucketProjects)
	if err != nil {
		return nil, fmt.Errorf("create projects bucket: %w", err)
	}
	return &Store{projects: projects}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Inquiry %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// CreateProject stores a new project. Fails with ErrConflict if a project
// with the same ID already exists.
func (s *Store) CreateProject(ctx context.Context, p *workflow.Project) error {
	data, err := p.Snapshot()
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	if _, err := s.projects.Create(ctx, p.ID, data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return ErrConflict
		}
		return fmt.Errorf("store project: %w", err)
	}
	return nil
}

// SaveProject writes the full project document, replacing any prior
// revision. The document is snapshotted under the project's lock, so a
// background checkpoint flush is safe against a concurrently running
// pipeline.
func (s *Store) SaveProject(ctx context.Context, p *workflow.Project) error {
	data, err := p.Snapshot()
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	if _, err := s.projects.Put(ctx, p.ID, data); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (*workflow.Project, error) {
	entry, err := s.projects.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	var p workflow.Project
	if err := json.Unmarshal(entry.Value(), &p); err != nil {
		return nil, fmt.Errorf("unmarshal project: %w", err)
	}
	return &p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]*workflow.Project, error) {
	keys, err := s.projects.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list project keys: %w", err)
	}

	projects := make([]*workflow.Project, 0, len(keys))
	for _, key := range keys {
		entry, err := s.projects.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var p workflow.Project
		if err := json.Unmarshal(entry.Value(), &p); err != nil {
			continue
		}
		projects = append(projects, &p)
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

// DeleteProject removes a project document entirely. Archiving is the
// usual path; deletion is for projects the user wants gone.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if err := s.projects.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) ||
		(err != nil && strings.Contains(err.Error(), "key not found"))
}
