package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"rowpipe/internal/config"
	"rowpipe/internal/datasource/httpds"
	"rowpipe/internal/ddl"
	"rowpipe/internal/metrics"
	"rowpipe/internal/metrics/datadog"
	"rowpipe/internal/metrics/prompush"
	"rowpipe/internal/pipeline"
	"rowpipe/internal/rows"
	"rowpipe/internal/storage"
)

// Test seams.
var (
	newRepositoryFn = storage.New
	openSourceFn    = OpenSource
)

// Summary reports what a run did.
type Summary struct {
	Read    int
	Loaded  int64
	Batches int64
	Elapsed time.Duration
}

// ValidationError carries the blocking issues that stopped a run.
type ValidationError struct {
	Issues []config.Issue
}

func (e *ValidationError) Error() string {
	errs := make([]error, 0, len(e.Issues))
	for _, iss := range e.Issues {
		if iss.Severity == config.SeverityError {
			errs = append(errs, iss)
		}
	}
	return fmt.Sprintf("etl: invalid pipeline: %v", errors.Join(errs...))
}

// SetupMetrics installs the backend selected by m and returns it; "none"
// leaves the no-op backend in place and returns nil.
func SetupMetrics(m config.Metrics, job string) (metrics.Backend, error) {
	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case "", "none":
		return nil, nil
	case "pushgateway":
		b, err = prompush.NewBackend(job, m.URL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:      m.Addr,
			Namespace: "rowpipe.",
			Tags:      []string{"job:" + job},
		})
	default:
		return nil, fmt.Errorf("etl: unknown metrics backend %q", m.Backend)
	}
	if err != nil {
		return nil, err
	}
	metrics.SetBackend(b)
	return b, nil
}

// Run validates p, builds its cursor chain and loads every row into the
// configured storage backend. Progress is logged every runtime.notify_every
// rows and counted in metrics under p.Job.
func Run(ctx context.Context, p config.Pipeline, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if issues := config.ValidatePipeline(p); config.HasErrors(issues) {
		return Summary{}, &ValidationError{Issues: issues}
	}

	start := time.Now()
	sum, err := run(ctx, p, logger)
	sum.Elapsed = time.Since(start)
	metrics.RecordStep(p.Job, "load", err, sum.Elapsed)
	if ferr := metrics.Flush(); ferr != nil {
		logger.Warn("metrics flush failed", "err", ferr)
	}
	if err != nil {
		return sum, err
	}

	rate := 0.0
	if secs := sum.Elapsed.Seconds(); secs > 0 {
		rate = float64(sum.Loaded) / secs
	}
	logger.Info("run complete",
		"read", sum.Read,
		"loaded", sum.Loaded,
		"batches", sum.Batches,
		"elapsed", sum.Elapsed.Truncate(time.Millisecond),
		"rows_per_sec", int64(rate),
	)
	return sum, nil
}

func run(ctx context.Context, p config.Pipeline, logger *slog.Logger) (Summary, error) {
	var sum Summary

	client := httpds.NewClient(httpds.Config{MaxRetries: 3, Logger: logger})
	chain, err := Build(ctx, p, client)
	if err != nil {
		return sum, err
	}

	reported := 0
	notifier := pipeline.Notify(chain.Cursor, p.Runtime.NotifyEvery, func(n int) {
		metrics.RecordRow(p.Job, metrics.KindRead, int64(n-reported))
		reported = n
		logger.Info("progress", "rows", n)
	})
	defer notifier.Close()

	var columns []string
	if chain.Schema != nil {
		columns = chain.Schema.Names()
	}

	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:    p.Storage.Kind,
		DSN:     p.Storage.DB.DSN,
		Table:   p.Storage.DB.Table,
		Columns: columns,
	})
	if err != nil {
		return sum, fmt.Errorf("etl: storage: %w", err)
	}
	defer repo.Close()

	if p.Storage.DB.AutoCreateTable {
		d, err := ddl.ParseDialect(p.Storage.Kind)
		if err != nil {
			return sum, err
		}
		def := ddl.FromSchema(p.Storage.DB.Table, chain.Schema, d)
		if err := storage.EnsureTable(ctx, p.Storage.Kind, repo, def); err != nil {
			return sum, fmt.Errorf("etl: %w", err)
		}
	}

	copyFn := func(ctx context.Context, cols []string, batch [][]any) (int64, error) {
		n, err := repo.CopyFrom(ctx, cols, batch)
		if err == nil {
			sum.Batches++
			metrics.RecordBatches(p.Job, 1)
		}
		return n, err
	}

	loaded, err := storage.Load(ctx, notifier, columns, p.Runtime.BatchSize, copyFn, logger)
	sum.Loaded = loaded
	sum.Read = notifier.Count()
	metrics.RecordRow(p.Job, metrics.KindLoaded, loaded)
	if err != nil {
		return sum, fmt.Errorf("etl: load: %w", err)
	}
	if err := notifier.Close(); err != nil {
		return sum, fmt.Errorf("etl: close source: %w", err)
	}
	return sum, nil
}

// Preview builds p's chain and writes a mapping report for each of the first
// n rows to w. Without a destination schema the raw values are written.
func Preview(ctx context.Context, p config.Pipeline, n int, w io.Writer) error {
	chain, err := Build(ctx, p, nil)
	if err != nil {
		return err
	}
	defer chain.Cursor.Close()

	cur := rows.Cursor(pipeline.Limit(chain.Cursor, n))
	for {
		ok, err := cur.Read()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		fmt.Fprintf(w, "row %d\n", cur.Depth())
		if chain.Mapping != nil {
			lines, err := chain.Mapping.Report()
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Fprintf(w, "  %s\n", l)
			}
			continue
		}
		names, err := rows.Names(cur)
		if err != nil {
			return err
		}
		for i, name := range names {
			v, err := cur.Value(i)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  %d.[%s] %q\n", i, name, rows.Stringify(v))
		}
	}
}
