// Package normalize decomposes flat tables into third normal form, driven
// by the dependencies and relationships discovered during analysis.
package normalize

import (
	"sort"

	"tabnorm/internal/graph"
	"tabnorm/internal/table"
)

// Schema is the normalized output: the decomposed tables, their primary
// keys, the foreign-key graph over them, and a parents-first creation order.
type Schema struct {
	Tables map[string]*table.Table
	// Keys maps table name to primary key columns.
	Keys  map[string][]string
	Graph *graph.Graph
	// Order lists tables parents-first for DDL generation.
	Order []string
	// Provenance maps each derived table to the source table it came from.
	// Source tables map to themselves.
	Provenance map[string]string
}

// TableNames returns the schema's table names sorted.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PrimaryKey returns the primary key of a table, or nil.
func (s *Schema) PrimaryKey(name string) []string {
	return s.Keys[name]
}
