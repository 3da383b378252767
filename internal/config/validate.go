package config

import (
	"fmt"
	"strings"

	"rowpipe/internal/rows"
	"rowpipe/internal/source/csvsrc"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// config, e.g. "steps[1].options.rows".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline statically checks p and returns every finding. It does
// not open sources or connect to databases.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and log lines",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateSteps(p.Steps)...)
	issues = append(issues, validateDestination(p.Destination)...)
	switch strings.ToLower(strings.TrimSpace(p.Transforms)) {
	case "", "default", "none", "identity":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "transforms",
			Message:  fmt.Sprintf("unknown transform group %q; want default or none", p.Transforms),
		})
	}
	issues = append(issues, validateStorage(p.Storage, len(p.Destination) > 0)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	switch s.Kind {
	case "csv":
		if strings.TrimSpace(s.Location) == "" {
			issues = append(issues, Issue{SeverityError, "source.location", "csv source requires a location"})
		}
		if _, err := csvsrc.ParseHeaderMode(s.Header); err != nil {
			issues = append(issues, Issue{SeverityError, "source.header", err.Error()})
		}
		if n := len([]rune(s.Comma)); n > 1 {
			issues = append(issues, Issue{SeverityError, "source.comma", fmt.Sprintf("comma must be a single character, got %q", s.Comma)})
		}
	case "sql":
		if strings.TrimSpace(s.Driver) == "" {
			issues = append(issues, Issue{SeverityError, "source.driver", "sql source requires a driver"})
		}
		if strings.TrimSpace(s.DSN) == "" {
			issues = append(issues, Issue{SeverityError, "source.dsn", "sql source requires a dsn"})
		}
		if strings.TrimSpace(s.Query) == "" {
			issues = append(issues, Issue{SeverityError, "source.query", "sql source requires a query"})
		}
	case "":
		issues = append(issues, Issue{SeverityError, "source.kind", "source.kind must not be empty"})
	default:
		issues = append(issues, Issue{SeverityError, "source.kind", fmt.Sprintf("unknown source kind %q; want csv or sql", s.Kind)})
	}
	return issues
}

func validateSteps(steps []Step) []Issue {
	var issues []Issue
	for i, st := range steps {
		path := fmt.Sprintf("steps[%d]", i)
		opts := st.Options
		switch st.Kind {
		case "alias":
			if len(opts.StringMap("names")) == 0 {
				issues = append(issues, Issue{SeverityWarning, path + ".options.names", "alias step renames nothing"})
			}
		case "filter":
			if len(opts.StringSlice("require")) == 0 && len(opts.StringSlice("dedup")) == 0 &&
				len(opts.StringMap("equals")) == 0 && len(opts.StringMap("not_equals")) == 0 {
				issues = append(issues, Issue{SeverityWarning, path + ".options", "filter step has no predicates; every row passes"})
			}
		case "limit":
			if !opts.Has("rows") {
				issues = append(issues, Issue{SeverityError, path + ".options.rows", "limit step requires rows"})
			} else if opts.Int("rows", 0) < 0 {
				issues = append(issues, Issue{SeverityWarning, path + ".options.rows", "negative rows means no limit"})
			}
		case "add":
			if len(opts.StringMap("constants")) == 0 && opts.String("row_number", "") == "" {
				issues = append(issues, Issue{SeverityWarning, path + ".options", "add step adds no columns"})
			}
		case "project":
			if len(opts.StringSlice("columns")) == 0 {
				issues = append(issues, Issue{SeverityError, path + ".options.columns", "project step requires at least one column"})
			}
		case "unpivot":
			if opts.Int("dims", -1) < 0 {
				issues = append(issues, Issue{SeverityError, path + ".options.dims", "unpivot step requires a non-negative dims"})
			}
			if opts.String("pivot", "") == "" || opts.String("value", "") == "" {
				issues = append(issues, Issue{SeverityError, path + ".options", "unpivot step requires pivot and value column names"})
			}
		case "":
			issues = append(issues, Issue{SeverityError, path + ".kind", "step kind must not be empty"})
		default:
			issues = append(issues, Issue{SeverityError, path + ".kind", fmt.Sprintf("unknown step kind %q", st.Kind)})
		}
	}
	return issues
}

func validateDestination(fields []Field) []Issue {
	var issues []Issue
	seen := map[string]int{}
	for i, f := range fields {
		path := fmt.Sprintf("destination[%d]", i)
		if strings.TrimSpace(f.Name) == "" {
			issues = append(issues, Issue{SeverityError, path + ".name", "destination column name must not be empty"})
			continue
		}
		if j, dup := seen[rows.Key(f.Name)]; dup {
			issues = append(issues, Issue{SeverityError, path + ".name", fmt.Sprintf("column %q duplicates destination[%d]", f.Name, j)})
		}
		seen[rows.Key(f.Name)] = i
		if _, err := f.RowType(); err != nil {
			issues = append(issues, Issue{SeverityError, path + ".type", err.Error()})
		}
	}
	return issues
}

func validateStorage(s Storage, hasDestination bool) []Issue {
	var issues []Issue

	switch s.Kind {
	case "postgres", "mssql", "sqlite":
	case "":
		issues = append(issues, Issue{SeverityError, "storage.kind", "storage.kind must not be empty"})
		return issues
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "storage.db.dsn", "storage.db.dsn must not be empty"})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, Issue{SeverityError, "storage.db.table", "storage.db.table must not be empty"})
	}
	if s.DB.AutoCreateTable && !hasDestination {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.auto_create_table",
			Message:  "auto_create_table needs a destination schema to derive column types",
		})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.BatchSize <= 0 {
		issues = append(issues, Issue{SeverityError, "runtime.batch_size", fmt.Sprintf("batch_size=%d; must be positive", r.BatchSize)})
	}
	if r.NotifyEvery < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.notify_every", "notify_every must not be negative"})
	}
	if r.SampleRows < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.sample_rows", "sample_rows must not be negative"})
	}
	if r.Parallelism < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.parallelism", "parallelism must not be negative"})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(m.URL) == "" {
			return []Issue{{SeverityError, "metrics.url", "pushgateway backend requires url"}}
		}
	case "datadog":
		if strings.TrimSpace(m.Addr) == "" {
			return []Issue{{SeverityError, "metrics.addr", "datadog backend requires addr"}}
		}
	default:
		return []Issue{{SeverityError, "metrics.backend", fmt.Sprintf("unknown metrics backend %q", m.Backend)}}
	}
	return nil
}
