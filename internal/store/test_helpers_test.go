package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/kerntest/internal/harness"
	"github.com/roach88/kerntest/internal/report"
	"github.com/roach88/kerntest/internal/supervisor"
)

// createTestStore creates a new on-disk store for testing.
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

// createTestOutcome builds an outcome with one passing, one failing and one
// erroring case.
func createTestOutcome(id string, started time.Time) *harness.Outcome {
	suite := report.NewTestSuite("KernelTests")
	suite.StartCase("Alloc", "alloc_basic")
	suite.StartCase("Alloc", "alloc_oom").Fail(&report.Location{File: "alloc.c", Line: 42}, "expected non-null")
	suite.StartCase("Paging", "map_kernel").SetError("page fault")

	return &harness.Outcome{
		RunID:    id,
		Started:  started,
		Duration: 1500 * time.Millisecond,
		Suite:    suite,
		VM:       &supervisor.Result{Booted: true, ExitedOnQuit: true, QEMUVersion: "8.2.2"},
	}
}
