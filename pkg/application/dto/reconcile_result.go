package dto

import (
	"time"
)

// ReconcileResult summarizes one reconciliation pass.
// Total = Inserted + Updated + Unchanged + Skipped, kit children included.
type ReconcileResult struct {
	RunID       string
	Total       int
	Inserted    int
	Updated     int
	Unchanged   int
	Skipped     int
	Orders      int
	SkippedRows []SkippedRow
	Cycles      []string
	StartedAt   time.Time
	FinishedAt  time.Time
	Cancelled   bool
}

// SkippedRow explains why a snapshot row or kit child was not reconciled
type SkippedRow struct {
	Key    string
	Reason string
}

// Duration is how long the pass ran
func (r *ReconcileResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Skip records a skipped row
func (r *ReconcileResult) Skip(key, reason string) {
	r.Skipped++
	r.Total++
	r.SkippedRows = append(r.SkippedRows, SkippedRow{Key: key, Reason: reason})
}
