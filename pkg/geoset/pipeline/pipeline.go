// Package pipeline runs a dependency-ordered chain of stages with
// artifact-based completion caching: a stage whose declared outputs
// already exist on disk is skipped, so re-running a finished or
// half-finished pipeline resumes instead of starting over.
package pipeline

import (
	"context"
	"os"
)

// Stage is one unit of work.
//
// Requires names upstream stages whose outputs must exist before this
// stage runs; stages may only reference stages declared before them.
// Outputs declares the artifacts the run action is expected to
// produce; they double as the stage's completion signal.
type Stage interface {
	Name() string
	Requires() []string
	Outputs() []Artifact
	Run(ctx context.Context) error
}

// Artifact is a filesystem path used both as pipeline payload and as a
// completion signal. A sentinel artifact is a marker file that must
// also be non-empty, so a half-created output directory is never
// mistaken for finished work.
type Artifact struct {
	Path     string
	Sentinel bool
}

// File declares a plain file (or directory) artifact, valid when it
// exists.
func File(path string) Artifact { return Artifact{Path: path} }

// Sentinel declares a marker-file artifact, valid when it exists with
// non-zero size.
func Sentinel(path string) Artifact { return Artifact{Path: path, Sentinel: true} }

// Valid reports whether the artifact satisfies its validity predicate.
func (a Artifact) Valid() bool {
	fi, err := os.Stat(a.Path)
	if err != nil {
		return false
	}
	if a.Sentinel {
		return fi.Mode().IsRegular() && fi.Size() > 0
	}
	return true
}

// Cache decides whether a stage's declared outputs count as complete.
// It is an interface so richer policies (content hashes, timestamps)
// can replace the plain existence check without touching stage logic.
type Cache interface {
	Complete(outputs []Artifact) bool
}

// ArtifactCache is the default Cache: complete means every declared
// artifact is valid. A stage that declares no outputs is never
// complete, since it has nothing to show for a previous run.
type ArtifactCache struct{}

func (ArtifactCache) Complete(outputs []Artifact) bool {
	if len(outputs) == 0 {
		return false
	}
	for _, a := range outputs {
		if !a.Valid() {
			return false
		}
	}
	return true
}
