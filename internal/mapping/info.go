// Package mapping presents an arbitrary source cursor under a caller-supplied
// destination schema, joining columns by name and coercing values into the
// destination types.
package mapping

import (
	"fmt"

	"rowpipe/internal/rows"
)

// ColumnMapping pairs a source column with its destination, if any.
type ColumnMapping struct {
	Source      rows.Column
	Destination *rows.Column
}

func (m ColumnMapping) String() string {
	if m.Destination == nil {
		return fmt.Sprintf("%s -> <unmapped>", m.Source)
	}
	return fmt.Sprintf("%s -> %s", m.Source, *m.Destination)
}

// Info holds the translation tables of a name join between a source and a
// destination schema. It is built once and never mutated.
type Info struct {
	mappings  []ColumnMapping
	dest      rows.Schema
	srcDir    *rows.Directory
	srcToDest []int // -1 when the source column has no destination
	destToSrc []int // -1 when the destination column has no source
	transform []bool
	nonText   []int
}

// NewInfo joins source column names to dest by case-insensitive name. Source
// columns are typed as text. Duplicate names on either side fail.
func NewInfo(sourceNames []string, dest rows.Schema) (*Info, error) {
	if err := dest.Validate(); err != nil {
		return nil, fmt.Errorf("mapping: destination schema: %w", err)
	}
	srcDir, err := rows.NewDirectory(sourceNames)
	if err != nil {
		return nil, fmt.Errorf("mapping: source schema: %w", err)
	}
	destDir, err := dest.Directory()
	if err != nil {
		return nil, err
	}

	info := &Info{
		mappings:  make([]ColumnMapping, len(sourceNames)),
		dest:      dest,
		srcDir:    srcDir,
		srcToDest: make([]int, len(sourceNames)),
		destToSrc: make([]int, len(dest)),
		transform: make([]bool, len(sourceNames)),
	}
	for i := range info.destToSrc {
		info.destToSrc[i] = -1
	}
	for i, name := range sourceNames {
		src := rows.Column{Ordinal: i, Name: name, Type: rows.String}
		info.mappings[i] = ColumnMapping{Source: src}
		info.srcToDest[i] = -1

		d, err := destDir.Ordinal(name)
		if err != nil {
			continue
		}
		dc := dest[d]
		info.mappings[i].Destination = &dc
		info.srcToDest[i] = d
		info.destToSrc[d] = i
		if !dc.Type.IsText() {
			info.transform[i] = true
			info.nonText = append(info.nonText, i)
		}
	}
	return info, nil
}

// Mappings returns one entry per source column, in source order.
func (i *Info) Mappings() []ColumnMapping { return append([]ColumnMapping(nil), i.mappings...) }

// SourceOrdinal translates a destination ordinal.
func (i *Info) SourceOrdinal(dest int) (int, bool) {
	if dest < 0 || dest >= len(i.destToSrc) || i.destToSrc[dest] < 0 {
		return -1, false
	}
	return i.destToSrc[dest], true
}

// DestOrdinal translates a source ordinal.
func (i *Info) DestOrdinal(src int) (int, bool) {
	if src < 0 || src >= len(i.srcToDest) || i.srcToDest[src] < 0 {
		return -1, false
	}
	return i.srcToDest[src], true
}

// DestByName returns the destination ordinal a source column name maps to.
func (i *Info) DestByName(name string) (int, bool) {
	src, err := i.srcDir.Ordinal(name)
	if err != nil {
		return -1, false
	}
	return i.DestOrdinal(src)
}

// SourceByName looks a name up among the source columns.
func (i *Info) SourceByName(name string) (int, bool) {
	src, err := i.srcDir.Ordinal(name)
	return src, err == nil
}

// NeedsTransform reports whether values of source column src are coerced.
func (i *Info) NeedsTransform(src int) bool {
	return src >= 0 && src < len(i.transform) && i.transform[src]
}

// NonText returns the source ordinals whose destination type is not text.
func (i *Info) NonText() []int { return append([]int(nil), i.nonText...) }

// SourceLen returns the number of source columns.
func (i *Info) SourceLen() int { return len(i.srcToDest) }

// Unmatched returns the destination columns no source column feeds.
func (i *Info) Unmatched() []rows.Column {
	var out []rows.Column
	for d, s := range i.destToSrc {
		if s < 0 {
			out = append(out, i.dest[d])
		}
	}
	return out
}
