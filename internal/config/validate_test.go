package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validPipeline() Pipeline {
	return Pipeline{
		Job:    "payments",
		Source: Source{Kind: "csv", Location: "in.csv", Header: "present", Comma: ","},
		Steps: []Step{
			{Kind: "filter", Options: Options{"require": []any{"id"}}},
			{Kind: "limit", Options: Options{"rows": 10}},
		},
		Destination: []Field{{Name: "id", Type: "int"}, {Name: "amount", Type: "decimal", Nullable: true}},
		Transforms:  "default",
		Storage: Storage{Kind: "sqlite", DB: DBConfig{
			DSN: "out.db", Table: "payments", AutoCreateTable: true,
		}},
		Runtime: RuntimeConfig{BatchSize: 100, NotifyEvery: 1000, SampleRows: 100, Parallelism: 2},
		Metrics: Metrics{Backend: "none"},
	}
}

func TestValidatePipeline_ValidMinimal(t *testing.T) {
	if issues := ValidatePipeline(validPipeline()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidatePipeline_Findings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Pipeline)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"missing job", func(p *Pipeline) { p.Job = " " }, SeverityError, "job", "must not be empty"},
		{"csv without location", func(p *Pipeline) { p.Source.Location = "" }, SeverityError, "source.location", "requires a location"},
		{"bad header mode", func(p *Pipeline) { p.Source.Header = "sometimes" }, SeverityError, "source.header", "unknown header mode"},
		{"multi-char comma", func(p *Pipeline) { p.Source.Comma = ";;" }, SeverityError, "source.comma", "single character"},
		{"unknown source", func(p *Pipeline) { p.Source.Kind = "xls" }, SeverityError, "source.kind", "unknown source kind"},
		{"sql without query", func(p *Pipeline) {
			p.Source = Source{Kind: "sql", Driver: "sqlite", DSN: "in.db"}
		}, SeverityError, "source.query", "requires a query"},
		{"unknown step", func(p *Pipeline) { p.Steps = append(p.Steps, Step{Kind: "join"}) }, SeverityError, "steps[2].kind", "unknown step kind"},
		{"limit without rows", func(p *Pipeline) { p.Steps[1].Options = Options{} }, SeverityError, "steps[1].options.rows", "requires rows"},
		{"negative limit", func(p *Pipeline) { p.Steps[1].Options = Options{"rows": -1} }, SeverityWarning, "steps[1].options.rows", "no limit"},
		{"empty filter", func(p *Pipeline) { p.Steps[0].Options = Options{} }, SeverityWarning, "steps[0].options", "no predicates"},
		{"project without columns", func(p *Pipeline) {
			p.Steps = []Step{{Kind: "project", Options: Options{}}}
		}, SeverityError, "steps[0].options.columns", "at least one column"},
		{"unpivot without names", func(p *Pipeline) {
			p.Steps = []Step{{Kind: "unpivot", Options: Options{"dims": 1}}}
		}, SeverityError, "steps[0].options", "pivot and value"},
		{"bad destination type", func(p *Pipeline) { p.Destination[1].Type = "blob" }, SeverityError, "destination[1].type", "unknown type"},
		{"duplicate destination", func(p *Pipeline) { p.Destination[1].Name = "ID" }, SeverityError, "destination[1].name", "duplicates destination[0]"},
		{"unknown transforms", func(p *Pipeline) { p.Transforms = "fancy" }, SeverityError, "transforms", "unknown transform group"},
		{"unknown storage", func(p *Pipeline) { p.Storage.Kind = "mysql" }, SeverityWarning, "storage.kind", "unknown storage kind"},
		{"missing dsn", func(p *Pipeline) { p.Storage.DB.DSN = "" }, SeverityError, "storage.db.dsn", "must not be empty"},
		{"auto create without destination", func(p *Pipeline) { p.Destination = nil }, SeverityError, "storage.db.auto_create_table", "destination schema"},
		{"zero batch", func(p *Pipeline) { p.Runtime.BatchSize = 0 }, SeverityError, "runtime.batch_size", "must be positive"},
		{"negative parallelism", func(p *Pipeline) { p.Runtime.Parallelism = -2 }, SeverityError, "runtime.parallelism", "must not be negative"},
		{"pushgateway without url", func(p *Pipeline) { p.Metrics.Backend = "pushgateway" }, SeverityError, "metrics.url", "requires url"},
		{"datadog without addr", func(p *Pipeline) { p.Metrics.Backend = "datadog" }, SeverityError, "metrics.addr", "requires addr"},
		{"unknown metrics", func(p *Pipeline) { p.Metrics.Backend = "graphite" }, SeverityError, "metrics.backend", "unknown metrics backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPipeline()
			tt.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(issues, tt.sev, tt.path, tt.msg) {
				t.Fatalf("expected %s at %s containing %q; got %+v", tt.sev, tt.path, tt.msg, issues)
			}
		})
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors(nil) {
		t.Fatalf("HasErrors(nil) = true")
	}
	warn := []Issue{{SeverityWarning, "x", "y"}}
	if HasErrors(warn) {
		t.Fatalf("warnings reported as errors")
	}
	if !HasErrors(append(warn, Issue{SeverityError, "a", "b"})) {
		t.Fatalf("error not detected")
	}
	if got := (Issue{SeverityError, "job", "empty"}).Error(); got != "error at job: empty" {
		t.Fatalf("Issue.Error() = %q", got)
	}
}
