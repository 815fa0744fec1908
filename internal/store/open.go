package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/roach88/tally/internal/model"
)

// Drivers accepted by OpenBackend.
const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
)

// Backend is a persister with the housekeeping the CLI needs.
type Backend interface {
	Load(ctx context.Context) (model.Dataset, error)
	Save(ctx context.Context, d model.Dataset) error
	Clear(ctx context.Context) error
	Usage(ctx context.Context) (Usage, error)
	io.Closer
}

// OpenBackend opens the persister for driver at path.
func OpenBackend(driver, path string, quota int64) (Backend, error) {
	switch driver {
	case DriverSQLite, "":
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		s, err := Open(path, WithQuota(quota))
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverJSON:
		f, err := OpenFile(path, quota)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q (want %s or %s)", driver, DriverSQLite, DriverJSON)
	}
}

// Close is a no-op; the file is only open during Load and Save.
func (f *FileStore) Close() error {
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
