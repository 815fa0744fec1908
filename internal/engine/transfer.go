package engine

import (
	"context"
	"fmt"

	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/transfer"
)

// Clearer is implemented by persisters that can drop their stored state.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Export renders the current dataset as AppData JSON.
func (e *Engine) Export() ([]byte, error) {
	return transfer.Export(e.Snapshot(), e.now())
}

// Import replaces the dataset with a decoded AppData payload. A rejected
// payload leaves both the snapshot and the stored state untouched and
// returns a *transfer.ValidationError. The fixes applied while normalizing
// the payload are returned on success.
func (e *Engine) Import(ctx context.Context, payload []byte) ([]string, error) {
	d, fixes, err := transfer.Decode(payload)
	if err != nil {
		e.log.Warn("import rejected", "error", err)
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.commitLocked(ctx, "import", d, e.now())
	e.log.Info("dataset imported", "types", len(d.Types), "subjects", len(d.Subjects),
		"entries", len(d.TimeEntries), "fixes", len(fixes))
	return fixes, nil
}

// Clear drops stored state and resets to the default dataset. An open
// session is abandoned without an entry.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.persist.(Clearer); ok {
		if err := c.Clear(ctx); err != nil {
			return fmt.Errorf("clear storage: %w", err)
		}
	}
	now := e.now()
	e.commitLocked(ctx, "clear", model.DefaultDataset(now), now)
	e.log.Info("dataset cleared")
	return nil
}
