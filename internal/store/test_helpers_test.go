package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/testutil"
)

// createTestStore opens a fresh SQLite store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleWithHistory is the sample dataset with s2 tracking and two entries.
func sampleWithHistory() model.Dataset {
	d := testutil.SampleDataset()
	start := testutil.Reference.Add(-5 * time.Minute).UnixMilli()
	d.Subjects[1].IsActive = true
	d.Subjects[1].StartTime = &start
	d.TimeEntries = []model.TimeEntry{
		testutil.Entry("e1", "s1", testutil.Reference.Add(-3*time.Hour), 600),
		testutil.Entry("e2", "s3", testutil.Reference.Add(-2*time.Hour), 1800),
	}
	d.RecomputeTotals()
	return d
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
