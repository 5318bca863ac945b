// Package geoset assembles the dataset acquisition pipeline: download
// a series archive, extract and split its annotation tables, drop the
// configured columns, and clean up intermediates.
package geoset

import (
	"context"

	"github.com/cognicore/geoset/internal/log"
	"github.com/cognicore/geoset/pkg/geoset/config"
	"github.com/cognicore/geoset/pkg/geoset/fetch"
	"github.com/cognicore/geoset/pkg/geoset/journal"
	"github.com/cognicore/geoset/pkg/geoset/pipeline"
	"github.com/cognicore/geoset/pkg/geoset/stages"
)

// Options configures a Geoset instance.
type Options struct {
	Config  config.Config
	Fetcher fetch.Fetcher   // nil means plain HTTP
	Journal journal.Journal // nil disables run journaling
	Cache   pipeline.Cache  // nil means artifact-existence caching
}

// Geoset runs the acquisition pipeline for one dataset.
type Geoset struct {
	cfg     config.Config
	fetcher fetch.Fetcher
	journal journal.Journal
	cache   pipeline.Cache
}

// New creates a Geoset instance with the given dependencies.
func New(opts Options) *Geoset {
	f := opts.Fetcher
	if f == nil {
		f = &fetch.HTTPFetcher{}
	}
	return &Geoset{
		cfg:     opts.Config,
		fetcher: f,
		journal: opts.Journal,
		cache:   opts.Cache,
	}
}

// Close releases the journal, if any.
func (g *Geoset) Close() error {
	if g.journal == nil {
		return nil
	}
	return g.journal.Close()
}

// Stages builds the four-stage chain in execution order.
func (g *Geoset) Stages() []pipeline.Stage {
	layout := stages.Layout{DestDir: g.cfg.DestDir, Dataset: g.cfg.Dataset}
	return []pipeline.Stage{
		&stages.Download{Layout: layout, URLTemplate: g.cfg.URLTemplate, Fetcher: g.fetcher},
		&stages.Extract{Layout: layout},
		&stages.Preprocess{Layout: layout, Patterns: g.cfg.PreprocessPatterns, DropColumns: g.cfg.DropColumns},
		&stages.Cleanup{Layout: layout},
	}
}

// Run executes the pipeline once. Completed stages are skipped, the
// first failure aborts the rest of the chain, and the outcome is
// recorded in the journal when one is configured.
func (g *Geoset) Run(ctx context.Context) (*pipeline.Report, error) {
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}

	ex := &pipeline.Executor{Cache: g.cache}
	report, runErr := ex.Run(ctx, g.Stages())

	if g.journal != nil && report != nil {
		g.record(ctx, report, runErr)
	}
	return report, runErr
}

// record writes the run outcome to the journal. Journaling is
// observability, so its failures are logged, not returned.
func (g *Geoset) record(ctx context.Context, report *pipeline.Report, runErr error) {
	logger := log.FromContext(ctx)

	run, err := g.journal.BeginRun(ctx, g.cfg.Dataset)
	if err != nil {
		logger.Warn("journal unavailable", "err", err)
		return
	}

	for _, res := range report.Results {
		rec := journal.StageRecord{
			RunID:    run.ID,
			Stage:    res.Stage,
			Status:   string(res.Status),
			Duration: res.Duration,
		}
		if res.Status == pipeline.StatusFailed && runErr != nil {
			rec.Error = runErr.Error()
		}
		if err := g.journal.RecordStage(ctx, rec); err != nil {
			logger.Warn("journal write failed", "stage", res.Stage, "err", err)
		}
	}

	status := journal.RunSucceeded
	if runErr != nil {
		status = journal.RunFailed
	}
	if err := g.journal.FinishRun(ctx, run.ID, status); err != nil {
		logger.Warn("journal write failed", "run", run.ID, "err", err)
	}
}
