package stages

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cognicore/geoset/internal/log"
	"github.com/cognicore/geoset/pkg/geoset/pipeline"
)

// Cleanup removes the raw archive and every intermediate .txt file
// under the dataset dir (decompressed annotation files and the
// extraction sentinel included), then writes done.txt listing what it
// deleted. The split .tsv tables and the preprocessed outputs stay.
type Cleanup struct {
	Layout
}

func (c *Cleanup) Name() string       { return CleanupName }
func (c *Cleanup) Requires() []string { return []string{PreprocessName} }

func (c *Cleanup) Outputs() []pipeline.Artifact {
	return []pipeline.Artifact{pipeline.Sentinel(c.DoneLog())}
}

func (c *Cleanup) Run(ctx context.Context) error {
	var deleted []string

	if _, err := os.Stat(c.ArchivePath()); err == nil {
		if err := os.Remove(c.ArchivePath()); err != nil {
			return err
		}
		deleted = append(deleted, c.ArchivePath())
	}

	dsDir := c.DatasetDir()
	hits, err := doublestar.Glob(os.DirFS(dsDir), "**/*.txt")
	if err != nil {
		return err
	}
	for _, h := range hits {
		full := filepath.Join(dsDir, filepath.FromSlash(h))
		if err := os.Remove(full); err != nil {
			return err
		}
		deleted = append(deleted, full)
	}

	var sb strings.Builder
	sb.WriteString("Pipeline completed.\nTemporary files deleted:\n")
	for _, d := range deleted {
		sb.WriteString(" - " + d + "\n")
	}
	if err := os.WriteFile(c.DoneLog(), []byte(sb.String()), 0o644); err != nil {
		return err
	}

	log.FromContext(ctx).Info("cleanup done", "deleted", len(deleted))
	return nil
}
