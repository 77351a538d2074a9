// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-agent/internal/research"
	"github.com/pdiddy/research-agent/pkg/types"
)

// File is the on-disk representation of a research request and its
// report. A saved file can be re-rendered later without querying
// providers again.
type File struct {
	Request research.Request     `yaml:"request"`
	Report  types.ResearchReport `yaml:"report"`
	Summary Summary              `yaml:"summary"`
}

// Summary stores result statistics and a timestamp.
type Summary struct {
	Total             int                     `yaml:"total"`
	DuplicatesRemoved int                     `yaml:"duplicates_removed"`
	Confidence        string                  `yaml:"confidence"`
	Failures          []types.ProviderFailure `yaml:"failures,omitempty"`
	Timestamp         time.Time               `yaml:"timestamp"`
}

// WriteFile saves the request and report to a YAML file, creating parent
// directories as needed.
func WriteFile(path string, req research.Request, rep types.ResearchReport) error {
	f := File{
		Request: req,
		Report:  rep,
		Summary: Summary{
			Total:             len(rep.Results),
			DuplicatesRemoved: rep.Methodology.DuplicatesRemoved,
			Confidence:        Confidence(rep.Results),
			Failures:          rep.Methodology.Failures,
			Timestamp:         time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("marshaling report file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile loads a previously saved report file from disk.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing report file: %w", err)
	}
	return &f, nil
}
