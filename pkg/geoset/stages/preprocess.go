package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cognicore/geoset/internal/log"
	"github.com/cognicore/geoset/pkg/geoset/pipeline"
	"github.com/cognicore/geoset/pkg/geoset/table"
)

// Preprocess finds tables under the dataset dir by filename pattern,
// drops the configured columns, and writes each result as a sibling
// file with a _preprocessed suffix.
type Preprocess struct {
	Layout
	Patterns    []string
	DropColumns []string
}

func (p *Preprocess) Name() string       { return PreprocessName }
func (p *Preprocess) Requires() []string { return []string{ExtractName} }

// Outputs is the preprocessed sibling of every current pattern match.
// Before extraction has run this is empty, which the cache reads as
// incomplete.
func (p *Preprocess) Outputs() []pipeline.Artifact {
	var outs []pipeline.Artifact
	for _, match := range p.matches() {
		outs = append(outs, pipeline.File(preprocessedName(match)))
	}
	return outs
}

func (p *Preprocess) Run(ctx context.Context) error {
	logger := log.FromContext(ctx)
	for _, match := range p.matches() {
		t, err := loadTSV(match)
		if err != nil {
			return fmt.Errorf("load %s: %w", match, err)
		}

		out := preprocessedName(match)
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := t.Drop(p.DropColumns...).WriteTSV(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("table preprocessed", "in", match, "out", out)
	}
	return nil
}

// matches resolves every pattern recursively under the dataset dir,
// skipping previously generated _preprocessed files.
func (p *Preprocess) matches() []string {
	dsDir := p.DatasetDir()
	fsys := os.DirFS(dsDir)

	seen := map[string]bool{}
	var files []string
	for _, pattern := range p.Patterns {
		hits, err := doublestar.Glob(fsys, "**/"+pattern)
		if err != nil {
			continue
		}
		for _, h := range hits {
			full := filepath.Join(dsDir, filepath.FromSlash(h))
			if seen[full] || isPreprocessed(full) {
				continue
			}
			seen[full] = true
			files = append(files, full)
		}
	}
	sort.Strings(files)
	return files
}

func loadTSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return table.ReadTSV(f, false)
}

func preprocessedName(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_preprocessed" + ext
}

func isPreprocessed(path string) bool {
	ext := filepath.Ext(path)
	return strings.HasSuffix(strings.TrimSuffix(path, ext), "_preprocessed")
}
