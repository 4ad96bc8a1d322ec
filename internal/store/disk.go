package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore keeps one JSON file per stage under a directory. It is the
// default backend: artifacts stay greppable and hand-editable for
// diagnosis.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a disk store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Read loads and unmarshals the stage artifact.
func (s *DiskStore) Read(stage string, out any) error {
	data, err := os.ReadFile(s.path(stage))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read artifact %s: %w", stage, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode artifact %s: %w", stage, err)
	}
	return nil
}

// Write marshals and stores the stage artifact, creating the directory on
// first use. The write goes through a temp file and rename so readers never
// observe a half-written artifact.
func (s *DiskStore) Write(stage string, artifact any) error {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", stage, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp := s.path(stage) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", stage, err)
	}
	if err := os.Rename(tmp, s.path(stage)); err != nil {
		return fmt.Errorf("commit artifact %s: %w", stage, err)
	}
	return nil
}

func (s *DiskStore) path(stage string) string {
	// Stage names are fixed identifiers, but sanitize anyway.
	name := strings.ReplaceAll(stage, string(filepath.Separator), "_")
	return filepath.Join(s.dir, name+".json")
}
