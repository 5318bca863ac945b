package stages

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/cognicore/geoset/internal/log"
	"github.com/cognicore/geoset/pkg/geoset/fetch"
	"github.com/cognicore/geoset/pkg/geoset/pipeline"
)

// Download fetches the dataset archive into {dest}/{dataset}.tar.
// The write goes through a temp file and a rename, so an interrupted
// download never leaves an archive that looks complete.
type Download struct {
	Layout
	URLTemplate string // "{dataset}" is replaced with the dataset name
	Fetcher     fetch.Fetcher
}

func (d *Download) Name() string       { return DownloadName }
func (d *Download) Requires() []string { return nil }

func (d *Download) Outputs() []pipeline.Artifact {
	return []pipeline.Artifact{pipeline.File(d.ArchivePath())}
}

// URL resolves the template for this dataset.
func (d *Download) URL() string {
	return strings.ReplaceAll(d.URLTemplate, "{dataset}", d.Dataset)
}

func (d *Download) Run(ctx context.Context) error {
	body, err := d.Fetcher.Fetch(ctx, d.URL())
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(d.DestDir, 0o755); err != nil {
		return err
	}

	tmp := d.ArchivePath() + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, d.ArchivePath()); err != nil {
		os.Remove(tmp)
		return err
	}

	log.FromContext(ctx).Info("archive downloaded",
		"dataset", d.Dataset,
		"size", humanize.Bytes(uint64(n)))
	return nil
}
