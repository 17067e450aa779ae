package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/exfor-index/internal/config"
	"github.com/dshills/exfor-index/internal/logging"
	"github.com/dshills/exfor-index/internal/storage"
)

// app carries the state shared by every subcommand. Flag values land in the
// raw fields and are folded into cfg by setup.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	configPath  string
	verbose     bool
	force       bool
	workers     int
	logFormat   string
	db          string
	out         string
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	a := &app{logger: slog.Default()}

	root := &cobra.Command{
		Use:   "x4index",
		Short: "Build and query an index of the EXFOR nuclear reaction database",
		Long: `x4index unpacks an EXFOR master archive, indexes every entry file into a
SQLite table plus JSON archives of coupled, monitored and counted reactions,
and serves the result to MCP clients.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetVersionTemplate(fmt.Sprintf("x4index {{.Version}}\nBuild Time: %s\nBuild Mode: %s\nSQLite Driver: %s\n",
		buildTime, storage.BuildMode, storage.DriverName))

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	pf.BoolVarP(&a.force, "force", "f", false, "Overwrite existing outputs")
	pf.StringVar(&a.configPath, "config", "", "YAML config file (default $"+config.EnvConfig+")")
	pf.IntVar(&a.workers, "workers", 0, "Worker goroutines (default 3/4 of the CPUs)")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: auto, text or json")

	root.AddCommand(
		newBuildCmd(a),
		newUnpackCmd(a),
		newDOICmd(a),
		newErrorsCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads the configuration, applies explicitly set flags over it and
// builds the logger
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("force") {
		cfg.Force = a.force
	}
	if flags.Changed("workers") {
		cfg.Workers = a.workers
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if flags.Changed("db") {
		cfg.DB = a.db
	}
	if flags.Changed("out") {
		cfg.Out = a.out
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = a.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Verbose: a.verbose,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)
	return nil
}

// addOutFlag registers --out on cmd
func (a *app) addOutFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.out, "out", "", "Index directory (default $"+config.EnvOut+" or .)")
}
