package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "GSE68849", cfg.Dataset)
	assert.Equal(t, "data", cfg.DestDir)
	assert.Equal(t, []string{"Probes.tsv"}, cfg.PreprocessPatterns)
	assert.Len(t, cfg.DropColumns, 7)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("GEOSET_DATASET", "GSE12345")
	t.Setenv("GEOSET_DEST_DIR", "/tmp/series")
	t.Setenv("GEOSET_DROP_COLUMNS", "Synonyms,Definition")

	cfg, err := FromEnv(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "GSE12345", cfg.Dataset)
	assert.Equal(t, "/tmp/series", cfg.DestDir)
	assert.Equal(t, []string{"Synonyms", "Definition"}, cfg.DropColumns)
	// Fields without env vars keep their defaults.
	assert.Equal(t, DefaultURLTemplate, cfg.URLTemplate)
	assert.Equal(t, []string{"Probes.tsv"}, cfg.PreprocessPatterns)
}

func TestFromEnvWithoutVariablesMatchesDefaults(t *testing.T) {
	for _, v := range []string{"DATASET", "DEST_DIR", "URL_TEMPLATE", "PREPROCESS_PATTERNS", "DROP_COLUMNS", "JOURNAL_PATH"} {
		t.Setenv("GEOSET_"+v, "")
		require.NoError(t, os.Unsetenv("GEOSET_"+v))
	}

	cfg, err := FromEnv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geoset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dataset: GSE99999
preprocess_patterns:
  - Probes.tsv
  - Controls.tsv
journal_path: runs.db
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "GSE99999", cfg.Dataset)
	assert.Equal(t, "data", cfg.DestDir, "omitted fields keep defaults")
	assert.Equal(t, []string{"Probes.tsv", "Controls.tsv"}, cfg.PreprocessPatterns)
	assert.Equal(t, "runs.db", cfg.JournalPath)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Dataset = " "
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.DestDir = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.URLTemplate = "https://example.org/fixed"
	assert.Error(t, cfg.Validate())
}
