// Package config defines the pipeline configuration model for rowpipe.
//
// A pipeline file (YAML or JSON) names a row source, an ordered list of
// decorator steps, a destination schema for smart mapping, and a storage
// sink. Load reads it with koanf and overlays ROWPIPE_* environment
// variables.
//
// Example (trimmed):
//
//	job: payments
//	source: { kind: csv, location: https://example.com/payments.csv, header: detect }
//	steps:
//	  - { kind: filter, options: { require: [id] } }
//	  - { kind: limit,  options: { rows: 1000 } }
//	destination:
//	  - { name: id,     type: int }
//	  - { name: amount, type: decimal, nullable: true }
//	storage: { kind: sqlite, db: { dsn: out.db, table: payments, auto_create_table: true } }
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"rowpipe/internal/rows"
)

// Pipeline is the top-level configuration object.
type Pipeline struct {
	// Job names the run; it labels metrics and log lines.
	Job string `koanf:"job" json:"job"`

	Source Source `koanf:"source" json:"source"`

	// Steps are applied to the source cursor in order.
	Steps []Step `koanf:"steps" json:"steps"`

	// Destination is the schema rows are mapped into. Empty means the source
	// columns pass through as text.
	Destination []Field `koanf:"destination" json:"destination"`

	// Transforms selects the coercion group: "default" or "none".
	Transforms string `koanf:"transforms" json:"transforms"`

	Storage Storage       `koanf:"storage" json:"storage"`
	Runtime RuntimeConfig `koanf:"runtime" json:"runtime"`
	Metrics Metrics       `koanf:"metrics" json:"metrics"`
}

// Source describes where rows come from.
type Source struct {
	// Kind is "csv" or "sql".
	Kind string `koanf:"kind" json:"kind"`

	// Location is a path, "-", file:// or http(s):// URL (csv only).
	Location       string `koanf:"location" json:"location"`
	Comma          string `koanf:"comma" json:"comma"`
	Header         string `koanf:"header" json:"header"` // present, absent or detect
	NormalizeNames bool   `koanf:"normalize_names" json:"normalize_names"`
	TrimSpace      bool   `koanf:"trim_space" json:"trim_space"`

	// HeaderMap renames raw header cells before the directory is built.
	HeaderMap map[string]string `koanf:"header_map" json:"header_map"`

	// Driver, DSN and Query configure a "sql" source.
	Driver string `koanf:"driver" json:"driver"`
	DSN    string `koanf:"dsn" json:"dsn"`
	Query  string `koanf:"query" json:"query"`
}

// Step is one decorator in the chain. Options are interpreted per kind.
type Step struct {
	// Kind is alias, filter, limit, add, project or unpivot.
	Kind    string  `koanf:"kind" json:"kind"`
	Options Options `koanf:"options" json:"options"`
}

// Field declares one destination column.
type Field struct {
	Name     string   `koanf:"name" json:"name"`
	Type     string   `koanf:"type" json:"type"`
	Nullable bool     `koanf:"nullable" json:"nullable"`
	Symbols  []string `koanf:"symbols" json:"symbols"` // enum only
}

// Storage selects the sink.
type Storage struct {
	// Kind is a registered storage kind: postgres, mssql or sqlite.
	Kind string   `koanf:"kind" json:"kind"`
	DB   DBConfig `koanf:"db" json:"db"`
}

// DBConfig configures the database sink.
type DBConfig struct {
	DSN   string `koanf:"dsn" json:"dsn"`
	Table string `koanf:"table" json:"table"`

	// AutoCreateTable creates the table from the destination schema before
	// loading.
	AutoCreateTable bool `koanf:"auto_create_table" json:"auto_create_table"`
}

// RuntimeConfig controls batching, progress reporting and inference.
type RuntimeConfig struct {
	BatchSize   int `koanf:"batch_size" json:"batch_size"`
	NotifyEvery int `koanf:"notify_every" json:"notify_every"`
	SampleRows  int `koanf:"sample_rows" json:"sample_rows"`
	Parallelism int `koanf:"parallelism" json:"parallelism"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is none, pushgateway or datadog.
	Backend string `koanf:"backend" json:"backend"`
	URL     string `koanf:"url" json:"url"`   // pushgateway
	Addr    string `koanf:"addr" json:"addr"` // datadog agent
}

// Schema converts the destination fields into a rows.Schema. It returns nil
// when no destination is configured.
func (p Pipeline) Schema() (rows.Schema, error) {
	if len(p.Destination) == 0 {
		return nil, nil
	}
	s := make(rows.Schema, len(p.Destination))
	for i, f := range p.Destination {
		t, err := f.RowType()
		if err != nil {
			return nil, fmt.Errorf("destination[%d]: %w", i, err)
		}
		s[i] = rows.Column{Ordinal: i, Name: f.Name, Type: t}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// RowType resolves the field's declared type.
func (f Field) RowType() (rows.Type, error) {
	k, err := rows.ParseKind(f.Type)
	if err != nil {
		return rows.Type{}, err
	}
	t := rows.Type{Kind: k, Nullable: f.Nullable}
	if k == rows.KindEnum {
		if len(f.Symbols) == 0 {
			return rows.Type{}, fmt.Errorf("enum column %q has no symbols", f.Name)
		}
		t.Enum = &rows.EnumDef{Name: f.Name, Symbols: append([]string(nil), f.Symbols...)}
	}
	return t, nil
}

// Options fetches typed values from a free-form step options map. Getters
// return def when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the integer value for key or def. YAML decodes integers as int
// and JSON as float64; environment overrides arrive as strings.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		var i int
		if _, err := fmt.Sscan(strings.TrimSpace(n), &i); err == nil {
			return i
		}
	}
	return def
}

// StringMap returns the string values of an object-valued key. Non-string
// values are skipped. A missing key yields an empty map.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	switch m := o[key].(type) {
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				res[k] = s
			}
		}
	case map[string]string:
		for k, v := range m {
			res[k] = v
		}
	}
	return res
}

// StringSlice returns the strings of an array-valued key, or nil.
func (o Options) StringSlice(key string) []string {
	switch vv := o[key].(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vv
	}
	return nil
}

// Has reports whether key is set.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// UnmarshalJSON decodes a missing or null options object to an empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
