package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileRepository implements Repository with one JSON file per collection.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a new FileRepository for the given directory.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Load reads the report saved for collection.
func (r *FileRepository) Load(ctx context.Context, collection string) (Report, error) {
	var rep Report
	data, err := os.ReadFile(r.Path(collection))
	if err != nil {
		return rep, err
	}
	if err := json.Unmarshal(data, &rep); err != nil {
		return rep, fmt.Errorf("decode report: %w", err)
	}
	return rep, nil
}

// Save persists the report atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (r *FileRepository) Save(ctx context.Context, rep Report) error {
	if rep.Collection == "" {
		return fmt.Errorf("report has no collection")
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}

	path := r.Path(rep.Collection)
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmp, path)
}

// Path returns the report file for collection.
func (r *FileRepository) Path(collection string) string {
	return filepath.Join(r.dir, filepath.Base(collection)+".json")
}
