package infer

import (
	"strings"

	"rowpipe/internal/rows"
)

// Sample is the deduplicated, trimmed set of values observed for one column.
// Blank and NULL values are not part of the set; they only mark the column
// nullable.
type Sample struct {
	Name     string
	seen     map[string]struct{}
	values   []string
	nullable bool
}

// NewSample returns an empty sample for column name.
func NewSample(name string) *Sample {
	return &Sample{Name: name, seen: make(map[string]struct{})}
}

// Add records one raw value.
func (s *Sample) Add(raw string) {
	if rows.IsBlankString(raw) {
		s.nullable = true
		return
	}
	v := strings.TrimSpace(raw)
	if _, dup := s.seen[v]; dup {
		return
	}
	s.seen[v] = struct{}{}
	s.values = append(s.values, v)
}

// AddNull marks the column nullable.
func (s *Sample) AddNull() { s.nullable = true }

// Merge folds o into s.
func (s *Sample) Merge(o *Sample) {
	s.nullable = s.nullable || o.nullable
	for _, v := range o.values {
		s.Add(v)
	}
}

// Values returns the distinct non-null values in first-seen order.
func (s *Sample) Values() []string { return append([]string(nil), s.values...) }

// Len returns the number of distinct non-null values.
func (s *Sample) Len() int { return len(s.values) }

// Nullable reports whether a blank or NULL value was seen.
func (s *Sample) Nullable() bool { return s.nullable }
