package etl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rowpipe/internal/config"
	"rowpipe/internal/datasource"
	"rowpipe/internal/datasource/httpds"
	"rowpipe/internal/ddl"
	"rowpipe/internal/infer"
	"rowpipe/internal/metrics"
	"rowpipe/internal/rows"
	"rowpipe/internal/source/csvsrc"
)

// InferOptions configures Infer.
type InferOptions struct {
	// Name is the table name used in the rendered DDL.
	Name string
	// MaxRows caps the rows sampled per location; 0 samples everything.
	MaxRows     int
	Parallelism int
	Dialect     ddl.Dialect
	CSV         csvsrc.Options
	Client      *httpds.Client
	Logger      *slog.Logger
	// Job labels the step metric; empty means "infer".
	Job string
}

// InferOptionsFor derives Infer options from a pipeline: sampling comes from
// its runtime section, the table name and dialect from its storage.
func InferOptionsFor(p config.Pipeline) (InferOptions, error) {
	csv, err := CSVOptions(p.Source)
	if err != nil {
		return InferOptions{}, err
	}
	opts := InferOptions{
		Name:        p.Storage.DB.Table,
		MaxRows:     p.Runtime.SampleRows,
		Parallelism: p.Runtime.Parallelism,
		CSV:         csv,
		Job:         p.Job,
	}
	if d, err := ddl.ParseDialect(p.Storage.Kind); err == nil {
		opts.Dialect = d
	}
	return opts, nil
}

// Inferred is the result of Infer.
type Inferred struct {
	Table infer.Table
	DDL   string
}

// Infer samples every CSV location and renders a CREATE TABLE statement for
// the merged columns.
func Infer(ctx context.Context, locations []string, opts InferOptions) (Inferred, error) {
	if len(locations) == 0 {
		return Inferred{}, fmt.Errorf("etl: infer: no locations")
	}
	if opts.Dialect == "" {
		opts.Dialect = ddl.SQLServer
	}
	if opts.Name == "" {
		opts.Name = "inferred"
	}
	job := opts.Job
	if job == "" {
		job = "infer"
	}

	sources := make([]infer.Source, len(locations))
	for i, loc := range locations {
		sources[i] = func(ctx context.Context) (rows.Cursor, error) {
			rc, err := datasource.Open(ctx, loc, opts.Client)
			if err != nil {
				return nil, err
			}
			return csvsrc.New(rc, opts.CSV), nil
		}
	}

	start := time.Now()
	t, err := infer.InferTable(ctx, opts.Name, sources, infer.Options{
		MaxRows:     opts.MaxRows,
		Parallelism: opts.Parallelism,
		Renderer:    opts.Dialect,
		Logger:      opts.Logger,
	})
	metrics.RecordStep(job, "infer", err, time.Since(start))
	if err != nil {
		return Inferred{}, err
	}

	sql, err := opts.Dialect.CreateTableSQL(ddl.FromInferred(t, opts.Dialect))
	if err != nil {
		return Inferred{}, err
	}
	return Inferred{Table: t, DDL: sql}, nil
}
