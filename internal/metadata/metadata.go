// SPDX-License-Identifier: MPL-2.0

// Package metadata records which blueprint each environment was built from.
// Runtimes do not keep that information, so it lives in one JSON file per
// environment.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/thresh/thresh/internal/issue"
)

// BlueprintUnknown is returned by BlueprintName when no metadata exists.
const BlueprintUnknown = "unknown"

type (
	// EnvironmentMetadata is the record written after a successful provision.
	EnvironmentMetadata struct {
		EnvironmentName    string    `json:"environmentName"`
		BlueprintName      string    `json:"blueprintName"`
		CreatedAt          time.Time `json:"createdAt"`
		Base               string    `json:"base"`
		Description        string    `json:"description,omitempty"`
		DistributionSource string    `json:"distributionSource,omitempty"`
	}

	// Store reads and writes metadata files in a directory.
	Store struct {
		dir string
	}
)

// NewStore creates a store rooted at dir. The directory is created on the
// first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the metadata directory.
func (s *Store) Dir() string { return s.dir }

// Save writes m, replacing any previous record for the same environment.
func (s *Store) Save(m EnvironmentMetadata) error {
	if err := checkName(m.EnvironmentName); err != nil {
		return err
	}
	m.CreatedAt = m.CreatedAt.UTC()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+m.EnvironmentName+".json-*")
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(tmpName, s.path(m.EnvironmentName)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Load reads the record for name. A missing record is an
// *issue.NotFoundError.
func (s *Store) Load(name string) (*EnvironmentMetadata, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &issue.NotFoundError{Kind: issue.KindEnvironment, Name: name}
		}
		return nil, fmt.Errorf("read metadata for %s: %w", name, err)
	}
	var m EnvironmentMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", name, err)
	}
	return &m, nil
}

// BlueprintName returns the blueprint recorded for name, or
// BlueprintUnknown when there is no readable record.
func (s *Store) BlueprintName(name string) string {
	m, err := s.Load(name)
	if err != nil || m.BlueprintName == "" {
		return BlueprintUnknown
	}
	return m.BlueprintName
}

// Delete removes the record for name. Deleting a missing record is not an
// error.
func (s *Store) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete metadata for %s: %w", name, err)
	}
	return nil
}

// List returns every readable record sorted by environment name.
func (s *Store) List() ([]EnvironmentMetadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []EnvironmentMetadata{}, nil
		}
		return nil, fmt.Errorf("read metadata directory: %w", err)
	}

	out := make([]EnvironmentMetadata, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || strings.HasPrefix(name, ".") || e.IsDir() {
			continue
		}
		m, err := s.Load(name)
		if err != nil {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnvironmentName < out[j].EnvironmentName })
	return out, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid environment name %q", name)
	}
	return nil
}
