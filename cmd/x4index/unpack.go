package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/dshills/exfor-index/internal/unpack"
)

func newUnpackCmd(a *app) *cobra.Command {
	var (
		justUnpack bool
		doiFile    string
	)

	cmd := &cobra.Command{
		Use:   "unpack MASTER.zip",
		Short: "Unpack an EXFOR master archive, then build its index",
		Long: `Unpack splits the backup file of an IAEA EXFOR master archive into one
file per entry below unpack_<name>/<tag>/db next to the archive, then builds
the index and loads the DOI table into <tag> unless --just-unpack is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			master := args[0]
			if _, err := os.Stat(master); err != nil {
				return fmt.Errorf("master archive: %w", err)
			}

			layout, err := unpack.NewLayout(master)
			if err != nil {
				return err
			}
			if err := layout.Prepare(a.cfg.Force); err != nil {
				return err
			}

			u := unpack.New(a.cfg.Workers)
			u.SetLogger(a.logger)
			n, err := u.Unpack(cmd.Context(), master, osfs.New(layout.DB))
			if err != nil {
				return err
			}
			a.logger.Info("unpacked master archive",
				slog.String("db", layout.DB),
				slog.Int("entries", n))
			fmt.Fprintf(cmd.OutOrStdout(), "In total %d entries have been extracted to %s\n", n, layout.DB)

			if justUnpack {
				return nil
			}
			src := doiSource{path: doiFile, explicit: cmd.Flags().Changed("doi")}
			return a.runBuild(cmd.Context(), cmd.OutOrStdout(), layout.DB, layout.Index(), src)
		},
	}

	cmd.Flags().BoolVar(&justUnpack, "just-unpack", false, "Stop after unpacking; do not build the index")
	cmd.Flags().StringVar(&doiFile, "doi", DefaultDOIFile, "DOI cross-reference table loaded after the build")
	return cmd
}

func newDOICmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doi FILE",
		Short: "Replace the DOI cross-reference table of a built index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := doiSource{path: args[0], explicit: true}
			return a.loadDOIs(cmd.Context(), cmd.OutOrStdout(), a.cfg.Layout(), src)
		},
	}
	a.addOutFlag(cmd)
	return cmd
}
