package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cognicore/geoset/internal/log"
)

// Status of one stage within a run.
type Status string

const (
	StatusRan     Status = "ran"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// StageResult records what happened to one stage.
type StageResult struct {
	Stage    string
	Status   Status
	Duration time.Duration
}

// Report lists per-stage results in declaration order for the stages
// the executor reached.
type Report struct {
	Results []StageResult
}

// Ran returns the names of stages whose run action executed.
func (r *Report) Ran() []string { return r.withStatus(StatusRan) }

// Skipped returns the names of stages satisfied from cache.
func (r *Report) Skipped() []string { return r.withStatus(StatusSkipped) }

func (r *Report) withStatus(s Status) []string {
	var names []string
	for _, res := range r.Results {
		if res.Status == s {
			names = append(names, res.Stage)
		}
	}
	return names
}

// Executor runs stage chains. The zero value is usable and checks
// completion with ArtifactCache.
type Executor struct {
	Cache Cache
}

// Run validates the chain, decides which stages still need to run, and
// executes them in declaration order. Execution is strictly sequential
// and fail-fast: the first stage failure stops the run and no later
// stage's action executes.
//
// Need is decided from the end of the chain backwards: a stage runs
// only if its own outputs are incomplete, and the requirements of a
// complete stage are not revisited. A finishing stage may therefore
// delete upstream intermediates (the archive, extraction markers)
// without forcing the whole chain to rebuild on the next invocation.
func (e *Executor) Run(ctx context.Context, stages []Stage) (*Report, error) {
	cache := e.Cache
	if cache == nil {
		cache = ArtifactCache{}
	}

	index := make(map[string]int, len(stages))
	for i, s := range stages {
		if _, dup := index[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate stage %q", s.Name())
		}
		for _, req := range s.Requires() {
			if _, ok := index[req]; !ok {
				return nil, fmt.Errorf("stage %q requires %q, which is not declared before it", s.Name(), req)
			}
		}
		index[s.Name()] = i
	}

	needed := e.plan(cache, stages, index)

	logger := log.FromContext(ctx)
	report := &Report{}
	for i, s := range stages {
		if !needed[i] {
			logger.Info("stage up to date", "stage", s.Name())
			report.Results = append(report.Results, StageResult{Stage: s.Name(), Status: StatusSkipped})
			continue
		}

		for _, req := range s.Requires() {
			for _, a := range stages[index[req]].Outputs() {
				if !a.Valid() {
					return report, &MissingDependencyError{Stage: s.Name(), Input: a.Path}
				}
			}
		}

		logger.Info("stage running", "stage", s.Name())
		start := time.Now()
		if err := s.Run(ctx); err != nil {
			report.Results = append(report.Results, StageResult{
				Stage:    s.Name(),
				Status:   StatusFailed,
				Duration: time.Since(start),
			})
			return report, &StageError{Stage: s.Name(), Err: err}
		}

		for _, a := range s.Outputs() {
			if !a.Valid() {
				return report, &OutputMissingError{Stage: s.Name(), Path: a.Path}
			}
		}
		took := time.Since(start)
		report.Results = append(report.Results, StageResult{Stage: s.Name(), Status: StatusRan, Duration: took})
		logger.Info("stage done", "stage", s.Name(), "took", took.Round(time.Millisecond))
	}
	return report, nil
}

// plan marks the stages whose run actions are still required. Sinks
// (stages nothing depends on) seed the walk; an incomplete stage pulls
// in its incomplete requirements, recursively.
func (e *Executor) plan(cache Cache, stages []Stage, index map[string]int) []bool {
	requiredBy := make([]int, len(stages))
	for _, s := range stages {
		for _, req := range s.Requires() {
			requiredBy[index[req]]++
		}
	}

	needed := make([]bool, len(stages))
	var mark func(i int)
	mark = func(i int) {
		if needed[i] || cache.Complete(stages[i].Outputs()) {
			return
		}
		needed[i] = true
		for _, req := range stages[i].Requires() {
			mark(index[req])
		}
	}
	for i := range stages {
		if requiredBy[i] == 0 {
			mark(i)
		}
	}
	return needed
}
