// Command geoset downloads a GEO series archive and prepares its
// annotation tables: extract, split into per-section .tsv files, drop
// configured columns, clean up intermediates.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/cognicore/geoset/internal/log"
	"github.com/cognicore/geoset/pkg/geoset"
	"github.com/cognicore/geoset/pkg/geoset/config"
	"github.com/cognicore/geoset/pkg/geoset/journal"
	"github.com/cognicore/geoset/pkg/geoset/journal/sqlite"
)

func main() {
	cmd := &cli.Command{
		Name:  "geoset",
		Usage: "fetch and prepare GEO series datasets",
		Commands: []*cli.Command{
			runCommand(),
			historyCommand(),
		},
	}

	ctx := context.Background()
	logger := log.New("geoset")
	ctx = log.IntoContext(ctx, logger)

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run the acquisition pipeline for one dataset",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML config file"},
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Usage: "series accession, e.g. GSE68849"},
			&cli.StringFlag{Name: "dest", Usage: "destination folder"},
			&cli.StringSliceFlag{Name: "pattern", Usage: "filename pattern to preprocess (repeatable)"},
			&cli.StringSliceFlag{Name: "drop-column", Usage: "column to drop during preprocessing (repeatable)"},
			&cli.StringFlag{Name: "journal", Usage: "SQLite run journal path"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}

			var j journal.Journal
			if cfg.JournalPath != "" {
				j, err = sqlite.Open(ctx, cfg.JournalPath)
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
			}

			g := geoset.New(geoset.Options{Config: cfg, Journal: j})
			defer g.Close()

			report, err := g.Run(ctx)
			if err != nil {
				return err
			}
			log.FromContext(ctx).Info("pipeline complete",
				"dataset", cfg.Dataset,
				"ran", len(report.Ran()),
				"skipped", len(report.Skipped()))
			return nil
		},
	}
}

// loadConfig reads the config file (or the GEOSET_* environment) and
// applies any explicitly set flags on top.
func loadConfig(ctx context.Context, cmd *cli.Command) (config.Config, error) {
	var cfg config.Config
	var err error
	if path := cmd.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.FromEnv(ctx)
	}
	if err != nil {
		return config.Config{}, err
	}

	if cmd.IsSet("dataset") {
		cfg.Dataset = cmd.String("dataset")
	}
	if cmd.IsSet("dest") {
		cfg.DestDir = cmd.String("dest")
	}
	if cmd.IsSet("pattern") {
		cfg.PreprocessPatterns = cmd.StringSlice("pattern")
	}
	if cmd.IsSet("drop-column") {
		cfg.DropColumns = cmd.StringSlice("drop-column")
	}
	if cmd.IsSet("journal") {
		cfg.JournalPath = cmd.String("journal")
	}
	return cfg, cfg.Validate()
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "list journaled runs for a dataset",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "journal", Usage: "SQLite run journal path", Required: true},
			&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Value: "GSE68849"},
			&cli.IntFlag{Name: "limit", Value: 10},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			j, err := sqlite.Open(ctx, cmd.String("journal"))
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.Runs(ctx, cmd.String("dataset"), int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			for _, run := range runs {
				fmt.Printf("%s  %-9s  %s\n", run.ID, run.Status, humanize.Time(run.StartedAt))
				recs, err := j.StageRecords(ctx, run.ID)
				if err != nil {
					return err
				}
				for _, rec := range recs {
					line := fmt.Sprintf("    %-10s %s", rec.Stage, rec.Status)
					if rec.Status == "ran" {
						line += fmt.Sprintf(" (%s)", rec.Duration)
					}
					if rec.Error != "" {
						line += " " + rec.Error
					}
					fmt.Println(line)
				}
			}
			return nil
		},
	}
}
