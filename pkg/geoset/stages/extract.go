package stages

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/geoset/internal/log"
	"github.com/cognicore/geoset/pkg/geoset/archive"
	"github.com/cognicore/geoset/pkg/geoset/pipeline"
	"github.com/cognicore/geoset/pkg/geoset/soft"
)

// Extract walks the downloaded tar, gunzips every .gz member into its
// own directory under the dataset dir, splits each decompressed
// annotation file into per-section .tsv tables, and finally writes the
// extracts.txt sentinel. A failure on any member aborts the stage.
type Extract struct {
	Layout
}

func (e *Extract) Name() string       { return ExtractName }
func (e *Extract) Requires() []string { return []string{DownloadName} }

// Outputs declares only the sentinel: the table files vary per archive
// and the sentinel is written last, after all of them exist.
func (e *Extract) Outputs() []pipeline.Artifact {
	return []pipeline.Artifact{pipeline.Sentinel(e.ExtractMarker())}
}

func (e *Extract) Run(ctx context.Context) error {
	dsDir := e.DatasetDir()
	if err := os.MkdirAll(dsDir, 0o755); err != nil {
		return err
	}

	logger := log.FromContext(ctx)
	members := 0
	err := archive.Walk(e.ArchivePath(), func(name string, r io.Reader) error {
		if !strings.HasSuffix(name, ".gz") {
			return nil
		}
		members++

		base := filepath.Base(name)
		inner := strings.TrimSuffix(base, ".gz")
		stem := strings.TrimSuffix(inner, filepath.Ext(inner))

		memberDir := filepath.Join(dsDir, stem)
		if err := os.MkdirAll(memberDir, 0o755); err != nil {
			return err
		}

		plain := filepath.Join(memberDir, inner)
		if err := archive.Gunzip(plain, r); err != nil {
			return fmt.Errorf("member %s: %w", name, err)
		}

		n, err := e.splitTables(plain, memberDir)
		if err != nil {
			return fmt.Errorf("member %s: %w", name, err)
		}
		logger.Info("member extracted", "member", base, "tables", n)
		return nil
	})
	if err != nil {
		return err
	}

	marker := fmt.Sprintf(
		"Extracted %d members of %s into %s.\nEach section was written as a separate .tsv table.\n",
		members, e.Dataset, dsDir)
	return os.WriteFile(e.ExtractMarker(), []byte(marker), 0o644)
}

// splitTables parses one decompressed annotation file and writes each
// of its sections as {label}.tsv next to it.
func (e *Extract) splitTables(path, dir string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	doc, err := soft.Split(f)
	f.Close()
	if err != nil {
		return 0, err
	}

	for _, label := range doc.Labels() {
		out, err := os.Create(filepath.Join(dir, label+".tsv"))
		if err != nil {
			return 0, err
		}
		if err := doc.Table(label).WriteTSV(out); err != nil {
			out.Close()
			return 0, err
		}
		if err := out.Close(); err != nil {
			return 0, err
		}
	}
	return doc.Len(), nil
}
