// Package memstore is an in-memory journal.Journal for tests.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cognicore/geoset/pkg/geoset/journal"
)

// Journal keeps runs and stage records in memory.
type Journal struct {
	mu      sync.RWMutex
	runs    []journal.Run
	records []journal.StageRecord
}

// New creates an empty in-memory journal.
func New() *Journal {
	return &Journal{}
}

// Close implements journal.Journal.
func (j *Journal) Close() error { return nil }

func (j *Journal) BeginRun(ctx context.Context, dataset string) (journal.Run, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	run := journal.Run{
		ID:        journal.NewRunID(),
		Dataset:   dataset,
		Status:    journal.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	j.runs = append(j.runs, run)
	return run, nil
}

func (j *Journal) FinishRun(ctx context.Context, runID, status string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i := range j.runs {
		if j.runs[i].ID == runID {
			j.runs[i].Status = status
			j.runs[i].FinishedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("unknown run %s", runID)
}

func (j *Journal) RecordStage(ctx context.Context, rec journal.StageRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i := range j.records {
		if j.records[i].RunID == rec.RunID && j.records[i].Stage == rec.Stage {
			j.records[i] = rec
			return nil
		}
	}
	j.records = append(j.records, rec)
	return nil
}

func (j *Journal) Runs(ctx context.Context, dataset string, limit int) ([]journal.Run, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []journal.Run
	for i := len(j.runs) - 1; i >= 0; i-- {
		if j.runs[i].Dataset == dataset {
			out = append(out, j.runs[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (j *Journal) StageRecords(ctx context.Context, runID string) ([]journal.StageRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []journal.StageRecord
	for _, rec := range j.records {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out, nil
}
