package schema

import (
	"cmp"
	"slices"
)

// TypeCount is the number of fields declared with one type name
type TypeCount struct {
	Type  string `json:"type" yaml:"type"`
	Count int    `json:"count" yaml:"count"`
}

// Stats summarizes the size of a model
type Stats struct {
	Version     string      `json:"version" yaml:"version"`
	Tables      int         `json:"tables" yaml:"tables"`
	Fields      int         `json:"fields" yaml:"fields"`
	Indexes     int         `json:"indexes" yaml:"indexes"`
	Constraints int         `json:"constraints" yaml:"constraints"`
	ForeignKeys int         `json:"foreign_keys" yaml:"foreign_keys"`
	DataTypes   []TypeCount `json:"datatypes" yaml:"datatypes"`
}

// Stats counts tables, fields, indexes and constraints. DataTypes is ordered
// by descending count, then type name.
func (m *Model) Stats() Stats {
	s := Stats{Version: m.Version, Tables: len(m.tables)}
	counts := make(map[string]int)

	for _, t := range m.tables {
		s.Fields += len(t.Fields)
		s.Indexes += len(t.Indexes)
		s.Constraints += len(t.Constraints)
		for _, c := range t.Constraints {
			if c.Kind == ConstraintForeignKey {
				s.ForeignKeys++
			}
		}
		for _, f := range t.Fields {
			counts[f.TypeName]++
		}
	}

	for name, n := range counts {
		s.DataTypes = append(s.DataTypes, TypeCount{Type: name, Count: n})
	}
	slices.SortFunc(s.DataTypes, func(a, b TypeCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})
	return s
}
