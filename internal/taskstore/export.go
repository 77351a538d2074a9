// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package taskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 100000

// ExportYAML writes the tasks matching opts to dir/tasks.yaml and returns
// the file path.
func (s *Store) ExportYAML(ctx context.Context, dir string, opts ListOptions) (string, error) {
	tasks, err := s.exportTasks(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(tasks)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return writeExport(dir, "tasks.yaml", data)
}

// ExportJSON writes the tasks matching opts to dir/tasks.json and returns
// the file path.
func (s *Store) ExportJSON(ctx context.Context, dir string, opts ListOptions) (string, error) {
	tasks, err := s.exportTasks(ctx, opts)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return writeExport(dir, "tasks.json", data)
}

func (s *Store) exportTasks(ctx context.Context, opts ListOptions) ([]Task, error) {
	opts.MaxResults = exportLimit
	tasks, err := s.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

func writeExport(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
