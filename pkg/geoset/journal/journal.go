// Package journal records pipeline runs and per-stage outcomes so a
// machine (or a human with sqlite3) can answer "when did this dataset
// last build, and which stages actually ran".
package journal

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one invocation of the pipeline for a dataset.
type Run struct {
	ID         string
	Dataset    string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// StageRecord is the outcome of one stage within a run.
type StageRecord struct {
	RunID    string
	Stage    string
	Status   string
	Duration time.Duration
	Error    string
}

// Journal persists runs and stage records.
type Journal interface {
	Close() error

	BeginRun(ctx context.Context, dataset string) (Run, error)
	FinishRun(ctx context.Context, runID, status string) error
	RecordStage(ctx context.Context, rec StageRecord) error

	Runs(ctx context.Context, dataset string, limit int) ([]Run, error)
	StageRecords(ctx context.Context, runID string) ([]StageRecord, error)
}

// MonotonicEntropy is not safe for concurrent use, so the shared
// reader is mutex-guarded.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a lexicographically sortable run identifier.
func NewRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}
