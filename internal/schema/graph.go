package schema

import (
	"errors"
	"slices"
	"strings"
)

// ForwardEdge is a foreign key seen from the referencing table
type ForwardEdge struct {
	Source       string
	Constraint   string
	Fields       []string
	Target       string
	TargetFields []string
}

// BackwardEdge is a foreign key seen from the referenced table
type BackwardEdge struct {
	Target       string
	Constraint   string
	Source       string
	SourceFields []string
	Fields       []string
}

// RelationshipGraph indexes every resolvable foreign key of a model in both
// directions. It is read-only once built.
type RelationshipGraph struct {
	forward  map[string][]ForwardEdge
	backward map[string][]BackwardEdge
	edges    []ForwardEdge
	issues   []*IntegrityError
}

// buildGraph runs as a second pass over the fully materialized table set so
// forward, self and mutual references all resolve the same way.
func buildGraph(m *Model) *RelationshipGraph {
	g := &RelationshipGraph{
		forward:  make(map[string][]ForwardEdge),
		backward: make(map[string][]BackwardEdge),
	}

	for _, t := range m.tables {
		for _, c := range t.Constraints {
			if c.Kind != ConstraintForeignKey {
				continue
			}
			if _, ok := m.byName[c.TargetTable]; !ok {
				g.issues = append(g.issues, &IntegrityError{
					Table:      t.Name,
					Constraint: c.Name,
					Fields:     c.Fields,
					Target:     c.TargetTable,
				})
				continue
			}

			fwd := ForwardEdge{
				Source:       t.Name,
				Constraint:   c.Name,
				Fields:       c.Fields,
				Target:       c.TargetTable,
				TargetFields: c.TargetFields,
			}
			g.forward[t.Name] = append(g.forward[t.Name], fwd)
			g.edges = append(g.edges, fwd)
			g.backward[c.TargetTable] = append(g.backward[c.TargetTable], BackwardEdge{
				Target:       c.TargetTable,
				Constraint:   c.Name,
				Source:       t.Name,
				SourceFields: c.Fields,
				Fields:       c.TargetFields,
			})
		}
	}

	// Edges were appended in table declaration order, so a stable sort on the
	// folded source name keeps constraint order within each source table.
	for target, edges := range g.backward {
		slices.SortStableFunc(edges, func(a, b BackwardEdge) int {
			return strings.Compare(fold(a.Source), fold(b.Source))
		})
		g.backward[target] = edges
	}

	return g
}

// References returns the foreign keys declared on table, in constraint
// declaration order. Unknown tables yield an empty result.
func (g *RelationshipGraph) References(table string) []ForwardEdge {
	return slices.Clone(g.forward[table])
}

// ReferencedBy returns the foreign keys that target table, ordered by source
// table name (case-insensitive) then by source constraint order
func (g *RelationshipGraph) ReferencedBy(table string) []BackwardEdge {
	return slices.Clone(g.backward[table])
}

// Edges returns every resolved foreign key in declaration order
func (g *RelationshipGraph) Edges() []ForwardEdge {
	return slices.Clone(g.edges)
}

// Issues returns the dangling foreign keys found while building the graph.
// Those edges are absent from the graph.
func (g *RelationshipGraph) Issues() []*IntegrityError {
	return slices.Clone(g.issues)
}

// Err joins all integrity issues into one error, or returns nil
func (g *RelationshipGraph) Err() error {
	if len(g.issues) == 0 {
		return nil
	}
	errs := make([]error, len(g.issues))
	for i, issue := range g.issues {
		errs[i] = issue
	}
	return errors.Join(errs...)
}
