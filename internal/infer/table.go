package infer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"rowpipe/internal/rows"
)

// Source opens a row cursor on demand. Sources are opened by the worker that
// scans them, so nothing is read until a worker slot is free.
type Source func(ctx context.Context) (rows.Cursor, error)

// Options tunes InferTable.
type Options struct {
	// MaxRows caps the rows sampled per source; 0 samples everything.
	MaxRows int
	// Parallelism bounds concurrent source scans; 0 uses GOMAXPROCS.
	Parallelism int
	// Renderer renders column types; nil uses SQLServer.
	Renderer Renderer
	Logger   *slog.Logger
}

// Table is an inferred table definition.
type Table struct {
	Name    string
	Columns []Column
}

// Schema returns the table as a destination schema for smart mapping.
func (t Table) Schema() rows.Schema {
	s := make(rows.Schema, len(t.Columns))
	for i, c := range t.Columns {
		s[i] = rows.Column{Ordinal: i, Name: c.Name, Type: c.Type()}
	}
	return s
}

// partial is one source's private sample set.
type partial struct {
	source  int
	samples []*Sample // in source ordinal order
	rows    int
}

// checkEvery is how many rows a worker scans between cancellation checks.
const checkEvery = 1024

// InferTable samples every source concurrently and infers one table from the
// union of their columns, matched by name case-insensitively. Each worker
// fills a private sample set and hands it to a single merge step over a
// channel; classification runs once every worker has finished. Column order is
// deterministic: by source, then by ordinal within the source.
//
// Cancelling ctx stops new sources from being scheduled; scans in flight stop
// at their next checkpoint.
func InferTable(ctx context.Context, name string, sources []Source, opts Options) (Table, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	render := opts.Renderer
	if render == nil {
		render = SQLServer{}
	}
	par := opts.Parallelism
	if par <= 0 {
		par = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(par)

	results := make(chan partial)
	merged := make(chan []partial, 1)
	go func() {
		var all []partial
		for p := range results {
			all = append(all, p)
		}
		merged <- all
	}()

schedule:
	for i, src := range sources {
		select {
		case <-gctx.Done():
			break schedule
		default:
		}
		g.Go(func() error {
			p, err := scan(gctx, i, src, opts.MaxRows)
			if err != nil {
				return fmt.Errorf("infer: source %d: %w", i, err)
			}
			logger.Debug("sampled source", "table", name, "source", i, "rows", p.rows, "columns", len(p.samples))
			select {
			case results <- p:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	err := g.Wait()
	close(results)
	parts := <-merged
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return Table{}, err
	}

	t := Table{Name: name}
	total := 0
	for _, s := range mergeSamples(parts) {
		c := Classify(s)
		c.SQLType = render.Render(c)
		t.Columns = append(t.Columns, c)
	}
	for _, p := range parts {
		total += p.rows
	}
	logger.Info("inferred table",
		"table", name,
		"sources", len(sources),
		"rows", total,
		"columns", len(t.Columns),
		"elapsed", time.Since(start).Truncate(time.Millisecond),
	)
	return t, nil
}

// mergeSamples folds per-source samples into one sample per column name, in
// source then ordinal order.
func mergeSamples(parts []partial) []*Sample {
	sort.Slice(parts, func(i, j int) bool { return parts[i].source < parts[j].source })
	var out []*Sample
	index := make(map[string]*Sample)
	for _, p := range parts {
		for _, s := range p.samples {
			key := rows.Key(s.Name)
			acc, ok := index[key]
			if !ok {
				acc = NewSample(s.Name)
				index[key] = acc
				out = append(out, acc)
			}
			acc.Merge(s)
		}
	}
	return out
}

func scan(ctx context.Context, idx int, src Source, maxRows int) (p partial, err error) {
	p.source = idx
	c, err := src(ctx)
	if err != nil {
		return p, err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for maxRows <= 0 || p.rows < maxRows {
		if p.rows%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return p, err
			}
		}
		ok, err := c.Read()
		if err != nil {
			return p, err
		}
		if !ok {
			break
		}
		if p.samples == nil {
			if p.samples, err = newSamples(c); err != nil {
				return p, err
			}
		}
		for i, s := range p.samples {
			v, err := c.Value(i)
			if err != nil {
				return p, err
			}
			if v == nil {
				s.AddNull()
				continue
			}
			s.Add(rows.Stringify(v))
		}
		p.rows++
	}
	if p.samples == nil {
		// No rows; the header alone still contributes (all-null) columns.
		p.samples, err = newSamples(c)
	}
	return p, err
}

func newSamples(c rows.Cursor) ([]*Sample, error) {
	names, err := rows.Names(c)
	if err != nil {
		return nil, err
	}
	out := make([]*Sample, len(names))
	for i, n := range names {
		out[i] = NewSample(n)
	}
	return out, nil
}
