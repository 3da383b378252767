package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rowpipe/internal/config"
	"rowpipe/internal/etl"
	"rowpipe/internal/logging"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pipeline and load its rows",
		Example: `  rowpipe run --config pipelines/payments.yaml
  rowpipe run --config p.yaml --table staging.payments --batch-size 20000
  ROWPIPE_STORAGE__DB__DSN=postgres://... rowpipe run --config p.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := config.LoadWithFlags(cfgPath, cmd.Flags())
			if err != nil {
				return err
			}

			ctx, logger := logging.WithRun(cmd.Context(), root.logger, p.Job)

			b, err := etl.SetupMetrics(p.Metrics, p.Job)
			if err != nil {
				return err
			}
			if b != nil {
				logger.Info("metrics enabled", "backend", p.Metrics.Backend)
			}

			sum, err := etl.Run(ctx, p, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "read=%d loaded=%d batches=%d elapsed=%s\n",
				sum.Read, sum.Loaded, sum.Batches, sum.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfgPath, "config", "", "pipeline config path (YAML or JSON)")
	f.String("job", "", "override job")
	f.String("source", "", "override source.location")
	f.String("table", "", "override storage.db.table")
	f.String("dsn", "", "override storage.db.dsn")
	f.Int("batch-size", 0, "override runtime.batch_size")
	f.String("metrics-backend", "", "override metrics.backend (none, pushgateway, datadog)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
