package query

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCollection indicates a pipeline referenced a collection that
	// was never registered with the schema.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrUnknownField indicates a match, sort, lookup, or reshape stage named
	// a field the collection does not declare. This is a configuration error
	// on the caller's side, never a storage failure.
	ErrUnknownField = errors.New("unknown field")
)

// Schema maps logical collection and field names onto tables and columns.
// Pipelines are validated against it at compile time so that a typo surfaces
// as ErrUnknownField instead of a malformed statement reaching the store.
type Schema struct {
	collections map[string]*Collection
}

// NewSchema returns an empty schema registry.
func NewSchema() *Schema {
	return &Schema{collections: make(map[string]*Collection)}
}

// Collection registers a logical collection backed by the given table and
// returns it for field registration.
func (s *Schema) Collection(name, table string) *Collection {
	c := &Collection{
		name:    name,
		table:   table,
		columns: make(map[string]string),
	}
	s.collections[name] = c
	return c
}

func (s *Schema) collection(name string) (*Collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return c, nil
}

// Collection describes one queryable collection: its backing table and the
// logical-field-to-column mapping, kept in registration order so compiled
// statements are deterministic.
type Collection struct {
	name    string
	table   string
	fields  []string
	columns map[string]string
}

// Field registers a logical field and its backing column.
func (c *Collection) Field(name, column string) *Collection {
	if _, exists := c.columns[name]; !exists {
		c.fields = append(c.fields, name)
	}
	c.columns[name] = column
	return c
}

// Fields returns the registered logical field names in registration order.
func (c *Collection) Fields() []string {
	out := make([]string, len(c.fields))
	copy(out, c.fields)
	return out
}

func (c *Collection) column(field string) (string, error) {
	col, ok := c.columns[field]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrUnknownField, c.name, field)
	}
	return col, nil
}
