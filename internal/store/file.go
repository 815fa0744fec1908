package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/transfer"
)

// ErrQuotaExceeded is returned by a save whose payload is larger than the
// persister's quota. The previously stored dataset is kept.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// FileStore keeps the dataset as one AppData JSON document on disk, the
// same bytes Export produces.
type FileStore struct {
	path  string
	quota int64
}

// OpenFile returns a FileStore for path. The file need not exist yet; its
// directory is created if missing.
func OpenFile(path string, quota int64) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{path: path, quota: quota}, nil
}

// Path returns the file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads and validates the file.
func (f *FileStore) Load(ctx context.Context) (model.Dataset, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.Dataset{}, model.ErrNoDataset
	}
	if err != nil {
		return model.Dataset{}, fmt.Errorf("read %s: %w", f.path, err)
	}
	d, _, err := transfer.Decode(data)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return d, nil
}

// Save writes d through a temporary file and a rename, so a reader never
// sees a partial document.
func (f *FileStore) Save(ctx context.Context, d model.Dataset) error {
	data, err := transfer.Export(d, time.UnixMilli(d.LastUpdated))
	if err != nil {
		return err
	}
	if f.quota > 0 && int64(len(data)) > f.quota {
		return fmt.Errorf("%w: %d bytes over a %d byte quota", ErrQuotaExceeded, len(data), f.quota)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tally-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// Clear deletes the file.
func (f *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", f.path, err)
	}
	return nil
}

// Usage returns the file size against the quota.
func (f *FileStore) Usage(ctx context.Context) (Usage, error) {
	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return newUsage("json", f.path, 0, f.quota), nil
	}
	if err != nil {
		return Usage{}, fmt.Errorf("stat %s: %w", f.path, err)
	}
	return newUsage("json", f.path, info.Size(), f.quota), nil
}
