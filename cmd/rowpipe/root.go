package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"rowpipe/internal/config"
	"rowpipe/internal/logging"
)

// Version is set at build time.
var Version = "0.1.0"

type rootOptions struct {
	logLevel  string
	logFormat string
	envFile   string
	logger    *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "rowpipe",
		Short: "Streaming row pipelines and CSV type inference",
		Long: `rowpipe reads rows from CSV files (local, gzip or http) or SQL queries,
applies filter/limit/projection steps, converts each value into the
destination schema and bulk loads the result.

Pipelines are YAML or JSON files; any key can be overridden with a
ROWPIPE_ environment variable (ROWPIPE_STORAGE__DB__DSN=...).`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.logger = logging.Setup(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
			if opts.envFile != "" {
				return config.LoadEnvFile(opts.envFile)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file with ROWPIPE_* overrides")

	cmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(),
		newPreviewCmd(),
		newInferCmd(opts),
	)
	return cmd
}
