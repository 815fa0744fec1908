package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/transfer"
)

// Memory keeps the last saved snapshot in process. Usage is measured as
// the size of the snapshot's AppData encoding.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Memory struct {
	mu    sync.Mutex
	data  *model.Dataset
	saves int
	quota int64
	fail  error
}

// NewMemory creates an empty store. A zero quota means unlimited.
func NewMemory(quota int64) *Memory {
	return &Memory{quota: quota}
}

// NewMemoryWith creates a store already holding d.
func NewMemoryWith(d model.Dataset) *Memory {
	c := d.Clone()
	return &Memory{data: &c}
}

// Load returns a copy of the stored snapshot.
func (m *Memory) Load(ctx context.Context) (model.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return model.Dataset{}, model.ErrNoDataset
	}
	return m.data.Clone(), nil
}

// Save stores a copy of d.
func (m *Memory) Save(ctx context.Context, d model.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	if m.quota > 0 {
		size, err := encodedSize(d)
		if err != nil {
			return err
		}
		if size > m.quota {
			return fmt.Errorf("%w: %d bytes over a %d byte quota", ErrQuotaExceeded, size, m.quota)
		}
	}
	c := d.Clone()
	m.data = &c
	m.saves++
	return nil
}

// Clear drops the stored snapshot.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// FailWith makes every later Save return err. Pass nil to recover.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Saves returns how many saves succeeded.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Usage returns the encoded size of the stored snapshot.
func (m *Memory) Usage(ctx context.Context) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var used int64
	if m.data != nil {
		size, err := encodedSize(*m.data)
		if err != nil {
			return Usage{}, err
		}
		used = size
	}
	return newUsage("memory", "", used, m.quota), nil
}

func encodedSize(d model.Dataset) (int64, error) {
	data, err := transfer.Export(d, time.UnixMilli(d.LastUpdated))
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}
