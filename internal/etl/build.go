// Package etl wires a config.Pipeline into a running cursor chain: it opens
// the source, applies the configured decorator steps, maps rows into the
// destination schema and loads them into a storage backend. It also drives
// type inference over CSV locations.
package etl

import (
	"context"
	"fmt"
	"slices"

	"rowpipe/internal/config"
	"rowpipe/internal/datasource"
	"rowpipe/internal/datasource/httpds"
	"rowpipe/internal/mapping"
	"rowpipe/internal/pipeline"
	"rowpipe/internal/rows"
	"rowpipe/internal/source/csvsrc"
	"rowpipe/internal/source/sqlsrc"
	"rowpipe/internal/transform"
)

// CSVOptions converts the csv settings of src.
func CSVOptions(src config.Source) (csvsrc.Options, error) {
	mode, err := csvsrc.ParseHeaderMode(src.Header)
	if err != nil {
		return csvsrc.Options{}, err
	}
	comma := ','
	if r := []rune(src.Comma); len(r) == 1 {
		comma = r[0]
	} else if len(r) > 1 {
		return csvsrc.Options{}, fmt.Errorf("etl: comma must be one character, got %q", src.Comma)
	}
	return csvsrc.Options{
		Comma:          comma,
		Header:         mode,
		LazyQuotes:     true,
		TrimSpace:      src.TrimSpace,
		NormalizeNames: src.NormalizeNames,
		HeaderMap:      src.HeaderMap,
	}, nil
}

// OpenSource opens the configured row source. client serves http(s) CSV
// locations and may be nil.
func OpenSource(ctx context.Context, src config.Source, client *httpds.Client) (rows.Cursor, error) {
	switch src.Kind {
	case "csv", "":
		opts, err := CSVOptions(src)
		if err != nil {
			return nil, err
		}
		rc, err := datasource.Open(ctx, src.Location, client)
		if err != nil {
			return nil, fmt.Errorf("etl: open %s: %w", src.Location, err)
		}
		return csvsrc.New(rc, opts), nil
	case "sql":
		cur, err := sqlsrc.Open(ctx, src.Driver, src.DSN, src.Query)
		if err != nil {
			return nil, err
		}
		return cur, nil
	}
	return nil, fmt.Errorf("etl: unknown source kind %q", src.Kind)
}

// ApplySteps decorates cur with each step in order. On error the partial
// chain, including cur, is closed.
func ApplySteps(cur rows.Cursor, steps []config.Step) (rows.Cursor, error) {
	for i, st := range steps {
		next, err := applyStep(cur, st)
		if err != nil {
			_ = cur.Close()
			return nil, fmt.Errorf("etl: steps[%d] (%s): %w", i, st.Kind, err)
		}
		cur = next
	}
	return cur, nil
}

func applyStep(cur rows.Cursor, st config.Step) (rows.Cursor, error) {
	opts := st.Options
	switch st.Kind {
	case "alias":
		return pipeline.Alias(cur, opts.StringMap("names"))

	case "filter":
		if keys := opts.StringSlice("require"); len(keys) > 0 {
			cur = pipeline.Filter(cur, pipeline.Require(keys...))
		}
		eq := opts.StringMap("equals")
		for _, k := range sortedKeys(eq) {
			cur = pipeline.Filter(cur, pipeline.Equals(k, eq[k]))
		}
		ne := opts.StringMap("not_equals")
		for _, k := range sortedKeys(ne) {
			cur = pipeline.Filter(cur, pipeline.Not(pipeline.Equals(k, ne[k])))
		}
		if keys := opts.StringSlice("dedup"); len(keys) > 0 {
			cur = pipeline.Filter(cur, pipeline.Dedup(keys...))
		}
		return cur, nil

	case "limit":
		return pipeline.Limit(cur, opts.Int("rows", -1)), nil

	case "add":
		var cols []pipeline.Computed
		consts := opts.StringMap("constants")
		for _, name := range sortedKeys(consts) {
			v := consts[name]
			cols = append(cols, pipeline.Computed{Name: name, Fn: func(rows.Cursor) (any, error) { return v, nil }})
		}
		if name := opts.String("row_number", ""); name != "" {
			cols = append(cols, pipeline.Computed{Name: name, Fn: func(c rows.Cursor) (any, error) {
				return int64(c.Depth()), nil
			}})
		}
		if len(cols) == 0 {
			return cur, nil
		}
		return pipeline.AddColumns(cur, cols...)

	case "project":
		as := opts.StringMap("as")
		var ps []pipeline.Projection
		for _, name := range opts.StringSlice("columns") {
			if to, ok := as[name]; ok && to != "" {
				ps = append(ps, pipeline.SelectAs(name, to))
			} else {
				ps = append(ps, pipeline.Select(name))
			}
		}
		if len(ps) == 0 {
			return nil, fmt.Errorf("no columns to project")
		}
		return pipeline.Project(cur, ps...)

	case "unpivot":
		return pipeline.Unpivot(cur, opts.Int("dims", 0), opts.String("pivot", "column"), opts.String("value", "value"))
	}
	return nil, fmt.Errorf("unknown step kind %q", st.Kind)
}

// Chain is a built cursor chain.
type Chain struct {
	// Cursor is the outermost cursor; closing it closes the whole chain.
	Cursor rows.Cursor
	// Schema is the destination schema, nil when rows pass through unmapped.
	Schema rows.Schema
	// Mapping is the smart mapping decorator, nil without a destination.
	Mapping *mapping.Cursor
}

// Build opens p's source and applies its steps and destination mapping.
func Build(ctx context.Context, p config.Pipeline, client *httpds.Client) (*Chain, error) {
	schema, err := p.Schema()
	if err != nil {
		return nil, fmt.Errorf("etl: destination: %w", err)
	}
	group, err := transform.ByName(p.Transforms)
	if err != nil {
		return nil, err
	}

	cur, err := openSourceFn(ctx, p.Source, client)
	if err != nil {
		return nil, err
	}
	if cur, err = ApplySteps(cur, p.Steps); err != nil {
		return nil, err
	}
	if schema == nil {
		return &Chain{Cursor: cur}, nil
	}

	m, err := mapping.New(cur, schema, group)
	if err != nil {
		_ = cur.Close()
		return nil, fmt.Errorf("etl: mapping: %w", err)
	}
	return &Chain{Cursor: m, Schema: schema, Mapping: m}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
