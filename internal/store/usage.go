package store

import (
	"context"
	"fmt"
)

// DefaultQuota is the byte budget storage usage is reported against.
const DefaultQuota int64 = 5 * 1024 * 1024

// Usage reports how much of the storage budget is in use.
type Usage struct {
	Backend string  `json:"backend"`
	Path    string  `json:"path,omitempty"`
	Used    int64   `json:"used"`
	Quota   int64   `json:"quota"`
	Percent float64 `json:"percent"`
}

func newUsage(backend, path string, used, quota int64) Usage {
	u := Usage{Backend: backend, Path: path, Used: used, Quota: quota}
	if quota > 0 {
		u.Percent = float64(used) / float64(quota) * 100
	}
	return u
}

// Usage returns the database size against the quota.
func (s *Store) Usage(ctx context.Context) (Usage, error) {
	var pages, size int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pages); err != nil {
		return Usage{}, fmt.Errorf("page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&size); err != nil {
		return Usage{}, fmt.Errorf("page_size: %w", err)
	}
	return newUsage("sqlite", s.path, pages*size, s.quota), nil
}
