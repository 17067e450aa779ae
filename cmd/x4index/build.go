package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/dshills/exfor-index/internal/doi"
	"github.com/dshills/exfor-index/internal/indexer"
	"github.com/dshills/exfor-index/internal/logging"
	"github.com/dshills/exfor-index/internal/metrics"
	"github.com/dshills/exfor-index/internal/parser"
	"github.com/dshills/exfor-index/internal/report"
	"github.com/dshills/exfor-index/internal/storage"
)

// DefaultDOIFile is the DOI table read after a build when --doi is not given
const DefaultDOIFile = "x4doi.txt"

// doiSource names the DOI table to load after a build. A missing default
// file is skipped; a missing explicit one fails the command.
type doiSource struct {
	path     string
	explicit bool
}

func newBuildCmd(a *app) *cobra.Command {
	var doiFile string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the index from an unpacked EXFOR database",
		Long: `Build indexes every entry file below --db into --out: the SQLite index
index.tbl and the JSON archives of errors, coupled, monitored and counted
reactions. Existing outputs are only replaced with --force.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := doiSource{path: doiFile, explicit: cmd.Flags().Changed("doi")}
			return a.runBuild(cmd.Context(), cmd.OutOrStdout(), a.cfg.DB, a.cfg.Layout(), src)
		},
	}

	cmd.Flags().StringVar(&a.db, "db", "", "Database root holding the entry files (default $X4INDEX_DB or ./db)")
	a.addOutFlag(cmd)
	cmd.Flags().StringVar(&doiFile, "doi", DefaultDOIFile, "DOI cross-reference table loaded after the build")
	cmd.Flags().StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the build")
	return cmd
}

// runBuild builds the index of the entries below db into layout, prints the
// summary to w and loads the DOI table
func (a *app) runBuild(ctx context.Context, w io.Writer, db string, layout storage.Layout, src doiSource) error {
	info, err := os.Stat(db)
	if err != nil {
		return fmt.Errorf("database root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("database root %s is not a directory", db)
	}

	dbfs := osfs.New(db)
	writer := storage.NewWriter(layout)
	writer.SetLogger(a.logger)

	builder := indexer.NewBuilder(dbfs, parser.New(dbfs), writer)
	builder.SetLogger(a.logger)

	if a.cfg.MetricsAddr != "" {
		m := metrics.New()
		builder.SetMetrics(m)

		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := m.Serve(metricsCtx, a.cfg.MetricsAddr, a.logger); err != nil {
				a.logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	opts := a.cfg.BuildOptions()
	if logging.IsTerminal(os.Stderr) {
		opts.OnProgress = func(done, total int) {
			fmt.Fprintf(os.Stderr, "\rindexed %d/%d chunks", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	summary, err := builder.Build(ctx, opts)
	if err != nil {
		return err
	}
	if err := report.Summary(w, summary); err != nil {
		return err
	}

	return a.loadDOIs(ctx, w, layout, src)
}

func (a *app) loadDOIs(ctx context.Context, w io.Writer, layout storage.Layout, src doiSource) error {
	if src.path == "" {
		return nil
	}

	store, err := layout.OpenIndex()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	n, err := doi.Load(ctx, store, src.path)
	if errors.Is(err, fs.ErrNotExist) && !src.explicit {
		a.logger.Warn("DOI table not found, skipping cross-reference", slog.String("file", src.path))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Inserted %d DOI records from %s into %s\n", n, src.path, layout.Path(layout.Index))
	return nil
}
