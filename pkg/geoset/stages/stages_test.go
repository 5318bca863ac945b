package stages

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/geoset/pkg/geoset/fetch"
)

const annotation = "[Heading]\nIllumina\n[Probes]\nProbe_Id\tDefinition\tSynonyms\nP1\tfoo\ts1\nP2\tbar\ts2\n"

type stubFetcher struct {
	data []byte
	err  error
	url  string
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	s.url = url
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// buildArchive writes a tar whose members are gzipped payloads.
func buildArchive(t *testing.T, path string, members map[string][]byte) {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, data := range members {
		var gzBuf bytes.Buffer
		gz := gzip.NewWriter(&gzBuf)
		_, err := gz.Write(data)
		require.NoError(t, err)
		require.NoError(t, gz.Close())

		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(gzBuf.Len()),
		}))
		_, err = tw.Write(gzBuf.Bytes())
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestDownloadStage(t *testing.T) {
	layout := Layout{DestDir: t.TempDir(), Dataset: "GSE68849"}
	f := &stubFetcher{data: []byte("tar-bytes")}
	d := &Download{
		Layout:      layout,
		URLTemplate: "https://example.org/geo/download/?acc={dataset}&format=file",
		Fetcher:     f,
	}

	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, "https://example.org/geo/download/?acc=GSE68849&format=file", f.url)
	data, err := os.ReadFile(layout.ArchivePath())
	require.NoError(t, err)
	assert.Equal(t, "tar-bytes", string(data))
	assert.NoFileExists(t, layout.ArchivePath()+".part")
}

func TestDownloadStagePropagatesFetchError(t *testing.T) {
	layout := Layout{DestDir: t.TempDir(), Dataset: "GSE68849"}
	d := &Download{
		Layout:      layout,
		URLTemplate: "https://example.org/{dataset}",
		Fetcher:     &stubFetcher{err: &fetch.DownloadError{URL: "x", Status: 503}},
	}

	err := d.Run(context.Background())
	var de *fetch.DownloadError
	require.ErrorAs(t, err, &de)
	assert.NoFileExists(t, layout.ArchivePath())
}

func TestExtractStage(t *testing.T) {
	layout := Layout{DestDir: t.TempDir(), Dataset: "GSE68849"}
	require.NoError(t, os.MkdirAll(layout.DestDir, 0o755))
	buildArchive(t, layout.ArchivePath(), map[string][]byte{
		"GSM1680828_annotation.txt.gz": []byte(annotation),
		"README":                       []byte("not compressed, ignored"),
	})

	e := &Extract{Layout: layout}
	require.NoError(t, e.Run(context.Background()))

	memberDir := filepath.Join(layout.DatasetDir(), "GSM1680828_annotation")
	assert.FileExists(t, filepath.Join(memberDir, "GSM1680828_annotation.txt"))

	probes, err := os.ReadFile(filepath.Join(memberDir, "Probes.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "Probe_Id\tDefinition\tSynonyms\nP1\tfoo\ts1\nP2\tbar\ts2\n", string(probes))

	heading, err := os.ReadFile(filepath.Join(memberDir, "Heading.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "Illumina\n", string(heading))

	marker, err := os.Stat(layout.ExtractMarker())
	require.NoError(t, err)
	assert.Positive(t, marker.Size())
}

func TestExtractStageAbortsOnCorruptMember(t *testing.T) {
	layout := Layout{DestDir: t.TempDir(), Dataset: "GSE68849"}

	// A .gz member that is not actually gzip data.
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "bad.txt.gz", Mode: 0o644, Size: 7}))
	_, err := tw.Write([]byte("garbage"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, os.WriteFile(layout.ArchivePath(), buf.Bytes(), 0o644))

	e := &Extract{Layout: layout}
	require.Error(t, e.Run(context.Background()))
	assert.NoFileExists(t, layout.ExtractMarker())
}

func TestPreprocessStage(t *testing.T) {
	layout := Layout{DestDir: t.TempDir(), Dataset: "GSE68849"}
	memberDir := filepath.Join(layout.DatasetDir(), "GSM1680828_annotation")
	require.NoError(t, os.MkdirAll(memberDir, 0o755))
	src := filepath.Join(memberDir, "Probes.tsv")
	require.NoError(t, os.WriteFile(src, []byte("Probe_Id\tDefinition\tSpecies\nP1\tfoo\thuman\n"), 0o644))

	p := &Preprocess{
		Layout:      layout,
		Patterns:    []string{"Probes.tsv"},
		DropColumns: []string{"Definition", "Obsolete_Probe_Id"},
	}

	outs := p.Outputs()
	require.Len(t, outs, 1)
	want := filepath.Join(memberDir, "Probes_preprocessed.tsv")
	assert.Equal(t, want, outs[0].Path)

	require.NoError(t, p.Run(context.Background()))

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "Probe_Id\tSpecies\nP1\thuman\n", string(data))
}

func TestPreprocessOutputsEmptyBeforeExtraction(t *testing.T) {
	layout := Layout{DestDir: t.TempDir(), Dataset: "GSE68849"}
	p := &Preprocess{Layout: layout, Patterns: []string{"Probes.tsv"}}
	assert.Empty(t, p.Outputs())
}

func TestPreprocessSkipsItsOwnOutputs(t *testing.T) {
	layout := Layout{DestDir: t.TempDir(), Dataset: "GSE68849"}
	dir := layout.DatasetDir()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Probes.tsv"), []byte("A\tB\n1\t2\n"), 0o644))

	p := &Preprocess{Layout: layout, Patterns: []string{"*.tsv"}, DropColumns: []string{"B"}}
	require.NoError(t, p.Run(context.Background()))
	// Second run with a wildcard must not preprocess the preprocessed file.
	require.NoError(t, p.Run(context.Background()))

	assert.FileExists(t, filepath.Join(dir, "Probes_preprocessed.tsv"))
	assert.NoFileExists(t, filepath.Join(dir, "Probes_preprocessed_preprocessed.tsv"))
}

func TestCleanupStage(t *testing.T) {
	layout := Layout{DestDir: t.TempDir(), Dataset: "GSE68849"}
	memberDir := filepath.Join(layout.DatasetDir(), "GSM1680828_annotation")
	require.NoError(t, os.MkdirAll(memberDir, 0o755))

	require.NoError(t, os.WriteFile(layout.ArchivePath(), []byte("tar"), 0o644))
	require.NoError(t, os.WriteFile(layout.ExtractMarker(), []byte("done"), 0o644))
	plain := filepath.Join(memberDir, "GSM1680828_annotation.txt")
	require.NoError(t, os.WriteFile(plain, []byte("raw"), 0o644))
	tsv := filepath.Join(memberDir, "Probes_preprocessed.tsv")
	require.NoError(t, os.WriteFile(tsv, []byte("A\n1\n"), 0o644))

	c := &Cleanup{Layout: layout}
	require.NoError(t, c.Run(context.Background()))

	assert.NoFileExists(t, layout.ArchivePath())
	assert.NoFileExists(t, layout.ExtractMarker())
	assert.NoFileExists(t, plain)
	assert.FileExists(t, tsv)

	logData, err := os.ReadFile(layout.DoneLog())
	require.NoError(t, err)
	assert.Contains(t, string(logData), layout.ArchivePath())
	assert.Contains(t, string(logData), plain)
}

func TestCleanupIsRepeatable(t *testing.T) {
	layout := Layout{DestDir: t.TempDir(), Dataset: "GSE68849"}
	require.NoError(t, os.MkdirAll(layout.DatasetDir(), 0o755))

	c := &Cleanup{Layout: layout}
	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, c.Run(context.Background()))
	assert.FileExists(t, layout.DoneLog())
}
