// Package config holds the pipeline configuration and its loaders.
package config

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultURLTemplate is the NCBI GEO series download endpoint;
// "{dataset}" is replaced with the series accession.
const DefaultURLTemplate = "https://www.ncbi.nlm.nih.gov/geo/download/?acc={dataset}&format=file"

// Config is the full pipeline configuration.
type Config struct {
	Dataset     string `yaml:"dataset" env:"DATASET, default=GSE68849"`
	DestDir     string `yaml:"dest_dir" env:"DEST_DIR, default=data"`
	URLTemplate string `yaml:"url_template" env:"URL_TEMPLATE"`

	// Filename patterns resolved recursively under the dataset dir to
	// select tables for preprocessing.
	PreprocessPatterns []string `yaml:"preprocess_patterns" env:"PREPROCESS_PATTERNS"`

	// Column names removed from every preprocessed table. Names absent
	// from a table are ignored.
	DropColumns []string `yaml:"drop_columns" env:"DROP_COLUMNS"`

	// JournalPath is an optional SQLite file recording runs; empty
	// disables journaling.
	JournalPath string `yaml:"journal_path" env:"JOURNAL_PATH"`
}

// Default returns the configuration the original GSE68849 workflow
// shipped with.
func Default() Config {
	return Config{
		Dataset:            "GSE68849",
		DestDir:            "data",
		URLTemplate:        DefaultURLTemplate,
		PreprocessPatterns: []string{"Probes.tsv"},
		DropColumns: []string{
			"Definition",
			"Ontology_Component",
			"Ontology_Process",
			"Ontology_Function",
			"Synonyms",
			"Obsolete_Probe_Id",
			"Probe_Sequence",
		},
	}
}

// FromEnv builds a config from GEOSET_* environment variables on top
// of the defaults. The target must start zero-valued: envconfig does
// not overwrite fields that already hold a value, so the scalar
// defaults live in the struct tags and the list fields are backfilled
// afterwards.
func FromEnv(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper("GEOSET_", envconfig.OsLookuper()),
	}); err != nil {
		return Config{}, err
	}

	def := Default()
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = def.URLTemplate
	}
	if len(cfg.PreprocessPatterns) == 0 {
		cfg.PreprocessPatterns = def.PreprocessPatterns
	}
	if len(cfg.DropColumns) == 0 {
		cfg.DropColumns = def.DropColumns
	}
	return cfg, nil
}

// LoadFile overlays a YAML file onto the defaults. Fields omitted in
// the file keep their default values.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	return cfg, nil
}

// Validate rejects configs the pipeline cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Dataset) == "" {
		return errors.New("dataset name is required")
	}
	if strings.TrimSpace(c.DestDir) == "" {
		return errors.New("destination folder is required")
	}
	if !strings.Contains(c.URLTemplate, "{dataset}") {
		return errors.New("url_template must contain {dataset}")
	}
	return nil
}
