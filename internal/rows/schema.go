package rows

import "fmt"

// Column describes one column of a schema.
type Column struct {
	Ordinal int
	Name    string
	Type    Type
}

func (c Column) String() string {
	return fmt.Sprintf("%d.[%s](%s)", c.Ordinal, c.Name, c.Type)
}

// Schema is an ordered list of column descriptors.
type Schema []Column

// NewSchema builds a Schema from names and types given in ordinal order.
func NewSchema(names []string, types []Type) (Schema, error) {
	if len(names) != len(types) {
		return nil, fmt.Errorf("rows: %d names but %d types", len(names), len(types))
	}
	s := make(Schema, len(names))
	for i := range names {
		s[i] = Column{Ordinal: i, Name: names[i], Type: types[i]}
	}
	return s, s.Validate()
}

// Validate checks that ordinals are dense 0..N-1 in order and that names are
// unique after normalization.
func (s Schema) Validate() error {
	for i, c := range s {
		if c.Ordinal != i {
			return fmt.Errorf("rows: column %q has ordinal %d at position %d", c.Name, c.Ordinal, i)
		}
	}
	_, err := s.Directory()
	return err
}

// Names returns the column names in ordinal order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Directory builds the name/ordinal directory of s.
func (s Schema) Directory() (*Directory, error) {
	return NewDirectory(s.Names())
}
