package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/exfor-index/internal/indexer"
	"github.com/dshills/exfor-index/internal/report"
	"github.com/dshills/exfor-index/internal/storage"
)

func newErrorsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Inspect the entry files that failed to index",
	}
	cmd.PersistentFlags().StringVar(&a.out, "out", "", "Index directory (default $X4INDEX_OUT or .)")

	view := &cobra.Command{
		Use:   "view",
		Short: "Print the errors grouped by kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := a.errorGroups()
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No errors recorded")
				return nil
			}
			return report.View(cmd.OutOrStdout(), groups)
		},
	}

	export := &cobra.Command{
		Use:   "export CSV",
		Short: "Write the errors grouped by kind to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := a.errorGroups()
			if err != nil {
				return err
			}
			if err := a.exportErrors(args[0], groups); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d error kinds to %s\n", len(groups), args[0])
			return nil
		},
	}

	cmd.AddCommand(view, export)
	return cmd
}

func (a *app) errorGroups() ([]report.Group, error) {
	layout := a.cfg.Layout()
	records, err := storage.LoadErrors(layout.FS(), layout)
	if err != nil {
		return nil, err
	}
	return report.GroupErrors(records), nil
}

func (a *app) exportErrors(path string, groups []report.Group) (err error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !a.cfg.Force {
		flags |= os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s (use --force)", indexer.ErrRefuseOverwrite, path)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return report.ExportCSV(f, groups)
}
