package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/pflag"

	"rowpipe/internal/rows"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const pipelineYAML = `
job: payments
source:
  kind: csv
  location: testdata/payments.csv
  header: detect
  comma: ";"
  normalize_names: true
  header_map:
    Amount EUR: amount
steps:
  - kind: filter
    options:
      require: [id]
      equals: { status: paid }
  - kind: limit
    options:
      rows: 100
destination:
  - { name: id, type: int }
  - { name: amount, type: decimal, nullable: true }
  - { name: status, type: enum, symbols: [paid, refunded] }
storage:
  kind: sqlite
  db:
    dsn: out.db
    table: payments
    auto_create_table: true
runtime:
  batch_size: 250
`

func TestLoad_YAML(t *testing.T) {
	p, err := Load(writeFile(t, "pipeline.yaml", pipelineYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if p.Job != "payments" {
		t.Fatalf("job = %q, want payments", p.Job)
	}
	if p.Source.Kind != "csv" || p.Source.Header != "detect" || p.Source.Comma != ";" || !p.Source.NormalizeNames {
		t.Fatalf("source = %#v", p.Source)
	}
	if got := p.Source.HeaderMap["Amount EUR"]; got != "amount" {
		t.Fatalf("header_map[Amount EUR] = %q, want amount", got)
	}
	if len(p.Steps) != 2 || p.Steps[0].Kind != "filter" || p.Steps[1].Kind != "limit" {
		t.Fatalf("steps = %#v", p.Steps)
	}
	if got := p.Steps[0].Options.StringSlice("require"); !reflect.DeepEqual(got, []string{"id"}) {
		t.Fatalf("filter require = %v, want [id]", got)
	}
	if got := p.Steps[0].Options.StringMap("equals"); got["status"] != "paid" {
		t.Fatalf("filter equals = %v", got)
	}
	if got := p.Steps[1].Options.Int("rows", 0); got != 100 {
		t.Fatalf("limit rows = %d, want 100", got)
	}
	if !p.Storage.DB.AutoCreateTable || p.Storage.DB.Table != "payments" {
		t.Fatalf("storage = %#v", p.Storage)
	}

	// Overridden and defaulted runtime values.
	if p.Runtime.BatchSize != 250 {
		t.Fatalf("batch_size = %d, want 250", p.Runtime.BatchSize)
	}
	if p.Runtime.NotifyEvery != 10000 || p.Runtime.SampleRows != 1000 || p.Runtime.Parallelism != 4 {
		t.Fatalf("runtime defaults not applied: %#v", p.Runtime)
	}
	if p.Transforms != "default" || p.Metrics.Backend != "none" {
		t.Fatalf("transforms=%q metrics=%q, want default/none", p.Transforms, p.Metrics.Backend)
	}
}

func TestLoad_JSON(t *testing.T) {
	const js = `{
	  "job": "j",
	  "source": {"kind": "sql", "driver": "sqlite", "dsn": "in.db", "query": "SELECT 1"},
	  "steps": [{"kind": "project", "options": {"columns": ["a", "b"]}}],
	  "storage": {"kind": "postgres", "db": {"dsn": "postgres://x", "table": "public.t"}}
	}`
	p, err := Load(writeFile(t, "pipeline.json", js))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Source.Kind != "sql" || p.Source.Query != "SELECT 1" {
		t.Fatalf("source = %#v", p.Source)
	}
	if got := p.Steps[0].Options.StringSlice("columns"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("project columns = %v", got)
	}
	if p.Source.Header != "present" {
		t.Fatalf("header default = %q, want present", p.Source.Header)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ROWPIPE_JOB", "from-env")
	t.Setenv("ROWPIPE_STORAGE__DB__DSN", "env.db")
	t.Setenv("ROWPIPE_RUNTIME__BATCH_SIZE", "42")

	p, err := Load(writeFile(t, "pipeline.yaml", pipelineYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Job != "from-env" {
		t.Fatalf("job = %q, want from-env", p.Job)
	}
	if p.Storage.DB.DSN != "env.db" {
		t.Fatalf("dsn = %q, want env.db", p.Storage.DB.DSN)
	}
	if p.Runtime.BatchSize != 42 {
		t.Fatalf("batch_size = %d, want 42", p.Runtime.BatchSize)
	}
	if p.Storage.DB.Table != "payments" {
		t.Fatalf("sibling key lost: table = %q", p.Storage.DB.Table)
	}
}

func TestLoadWithFlags(t *testing.T) {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.String("job", "", "")
	fs.Int("batch-size", 0, "")
	fs.String("table", "", "")
	fs.Bool("dry-run", false, "")
	if err := fs.Parse([]string{"--batch-size", "7", "--dry-run"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	p, err := LoadWithFlags(writeFile(t, "pipeline.yaml", pipelineYAML), fs)
	if err != nil {
		t.Fatalf("LoadWithFlags: %v", err)
	}
	if p.Runtime.BatchSize != 7 {
		t.Fatalf("batch_size = %d, want 7 from flag", p.Runtime.BatchSize)
	}
	if p.Storage.DB.Table != "payments" {
		t.Fatalf("unset --table overrode the file: table = %q", p.Storage.DB.Table)
	}
	if p.Job == "" {
		t.Fatalf("unset --job cleared the file value")
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("ROWPIPE_JOB", "shell")
	envPath := writeFile(t, "rowpipe.env", "ROWPIPE_JOB=dotenv\n")

	if err := LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	p, err := Load(writeFile(t, "pipeline.yaml", pipelineYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Job != "dotenv" {
		t.Fatalf("job = %q, want dotenv", p.Job)
	}

	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("LoadEnvFile(missing) error = nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("Load(missing) error = nil, want error")
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"ROWPIPE_JOB":                 "job",
		"ROWPIPE_STORAGE__DB__DSN":    "storage.db.dsn",
		"ROWPIPE_RUNTIME__BATCH_SIZE": "runtime.batch_size",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPipelineSchema(t *testing.T) {
	p := Pipeline{Destination: []Field{
		{Name: "id", Type: "int"},
		{Name: "amount", Type: "numeric", Nullable: true},
		{Name: "status", Type: "enum", Symbols: []string{"paid", "refunded"}},
	}}
	s, err := p.Schema()
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if len(s) != 3 {
		t.Fatalf("schema len = %d, want 3", len(s))
	}
	if s[0].Type != rows.Int || s[0].Ordinal != 0 {
		t.Fatalf("s[0] = %#v", s[0])
	}
	if s[1].Type != rows.Decimal.OrNull() || s[1].Ordinal != 1 {
		t.Fatalf("s[1] = %#v", s[1])
	}
	if s[2].Type.Kind != rows.KindEnum || s[2].Type.Enum == nil || len(s[2].Type.Enum.Symbols) != 2 {
		t.Fatalf("s[2] = %#v", s[2])
	}

	if s, err := (Pipeline{}).Schema(); err != nil || s != nil {
		t.Fatalf("empty destination = (%v, %v), want (nil, nil)", s, err)
	}

	bad := Pipeline{Destination: []Field{{Name: "a", Type: "int"}, {Name: "A", Type: "text"}}}
	if _, err := bad.Schema(); err == nil {
		t.Fatalf("duplicate destination names accepted")
	}
	if _, err := (Pipeline{Destination: []Field{{Name: "e", Type: "enum"}}}).Schema(); err == nil {
		t.Fatalf("enum without symbols accepted")
	}
}

func TestOptions_Getters(t *testing.T) {
	t.Parallel()

	o := Options{
		"s":     "x",
		"b":     true,
		"yaml":  7,
		"json":  float64(8),
		"env":   " 9 ",
		"map":   map[string]any{"a": "1", "skip": 2},
		"slice": []any{"a", 2, "b"},
	}
	if o.String("s", "d") != "x" || o.String("b", "d") != "d" {
		t.Fatalf("String getter wrong")
	}
	if !o.Bool("b", false) || o.Bool("s", false) {
		t.Fatalf("Bool getter wrong")
	}
	if o.Int("yaml", 0) != 7 || o.Int("json", 0) != 8 || o.Int("env", 0) != 9 || o.Int("s", -1) != -1 {
		t.Fatalf("Int getter wrong")
	}
	if got := o.StringMap("map"); !reflect.DeepEqual(got, map[string]string{"a": "1"}) {
		t.Fatalf("StringMap = %v", got)
	}
	if got := o.StringMap("missing"); got == nil || len(got) != 0 {
		t.Fatalf("StringMap(missing) = %v, want empty map", got)
	}
	if got := o.StringSlice("slice"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("StringSlice = %v", got)
	}
	if o.StringSlice("missing") != nil {
		t.Fatalf("StringSlice(missing) != nil")
	}
	if !o.Has("s") || o.Has("missing") {
		t.Fatalf("Has wrong")
	}
}

func TestOptions_UnmarshalNull(t *testing.T) {
	t.Parallel()

	var st Step
	if err := json.Unmarshal([]byte(`{"kind":"limit","options":null}`), &st); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if st.Options == nil {
		t.Fatalf("null options decoded to nil map")
	}
}
