// Package diff computes structural differences between two schema models.
//
// All comparisons match identifiers exactly (case-sensitive), unlike search,
// which folds case.
package diff

import (
	"slices"
	"strings"

	"github.com/tordrt/p6schema/internal/schema"
)

// Change is an entity present on both sides with different attributes
type Change[T any] struct {
	Name       string   `json:"name" yaml:"name"`
	Left       T        `json:"left" yaml:"left"`
	Right      T        `json:"right" yaml:"right"`
	Attributes []string `json:"attributes" yaml:"attributes"`
}

// Delta is the added/removed/changed triple for one entity kind
type Delta[T any] struct {
	Added   []T         `json:"added" yaml:"added"`
	Removed []T         `json:"removed" yaml:"removed"`
	Changed []Change[T] `json:"changed,omitempty" yaml:"changed,omitempty"`
}

// Empty reports whether the delta records no difference
func (d Delta[T]) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = name(it)
	}
	return out
}

// TableDiff holds the differences of one table present on both sides
type TableDiff struct {
	Name        string                   `json:"table" yaml:"table"`
	Fields      Delta[schema.Field]      `json:"fields" yaml:"fields"`
	Indexes     Delta[schema.Index]      `json:"indexes" yaml:"indexes"`
	Constraints Delta[schema.Constraint] `json:"constraints" yaml:"constraints"`
}

// AddedFields returns the names of fields only on the right side
func (t TableDiff) AddedFields() []string {
	return names(t.Fields.Added, func(f schema.Field) string { return f.Name })
}

// RemovedFields returns the names of fields only on the left side
func (t TableDiff) RemovedFields() []string {
	return names(t.Fields.Removed, func(f schema.Field) string { return f.Name })
}

// Empty reports whether the table has no differences
func (t TableDiff) Empty() bool {
	return t.Fields.Empty() && t.Indexes.Empty() && t.Constraints.Empty()
}

// Summary identifies one side of a comparison
type Summary struct {
	Family  schema.Family `json:"family" yaml:"family"`
	Version string        `json:"version" yaml:"version"`
	Source  string        `json:"source" yaml:"source"`
	Tables  int           `json:"tables" yaml:"tables"`
}

// Result is the structural delta from Left to Right. "Added" means present
// only in Right.
type Result struct {
	Left          Summary     `json:"schema1" yaml:"schema1"`
	Right         Summary     `json:"schema2" yaml:"schema2"`
	AddedTables   []string    `json:"added_tables" yaml:"added_tables"`
	RemovedTables []string    `json:"removed_tables" yaml:"removed_tables"`
	Modified      []TableDiff `json:"modified_tables" yaml:"modified_tables"`
}

// Empty reports whether the two models are structurally identical
func (r *Result) Empty() bool {
	return len(r.AddedTables) == 0 && len(r.RemovedTables) == 0 && len(r.Modified) == 0
}

// Modification returns the diff for the named table, if it changed
func (r *Result) Modification(table string) (TableDiff, bool) {
	for _, td := range r.Modified {
		if td.Name == table {
			return td, true
		}
	}
	return TableDiff{}, false
}

// Compare computes the structural delta between left and right. Added and
// removed table lists and the modified list are sorted by name; tables with
// no differences are omitted.
func Compare(left, right *schema.Model) *Result {
	res := &Result{
		Left:          summarize(left),
		Right:         summarize(right),
		AddedTables:   []string{},
		RemovedTables: []string{},
		Modified:      []TableDiff{},
	}

	for _, rt := range right.Tables() {
		if _, err := left.Table(rt.Name); err != nil {
			res.AddedTables = append(res.AddedTables, rt.Name)
		}
	}

	for _, lt := range left.Tables() {
		rt, err := right.Table(lt.Name)
		if err != nil {
			res.RemovedTables = append(res.RemovedTables, lt.Name)
			continue
		}
		if td := compareTables(lt, rt); !td.Empty() {
			res.Modified = append(res.Modified, td)
		}
	}

	slices.Sort(res.AddedTables)
	slices.Sort(res.RemovedTables)
	slices.SortFunc(res.Modified, func(a, b TableDiff) int {
		return strings.Compare(a.Name, b.Name)
	})
	return res
}

func summarize(m *schema.Model) Summary {
	return Summary{Family: m.Family, Version: m.Version, Source: m.Source, Tables: m.Len()}
}

func compareTables(left, right *schema.Table) TableDiff {
	return TableDiff{
		Name:        left.Name,
		Fields:      compareByName(left.Fields, right.Fields, fieldName, fieldAttributes),
		Indexes:     compareByName(left.Indexes, right.Indexes, indexName, indexAttributes),
		Constraints: compareByName(left.Constraints, right.Constraints, schema.Constraint.Identity, nil),
	}
}

// compareByName matches items by key. Items on both sides are reported as
// changed when attrs lists at least one differing attribute. A nil attrs means
// the key is the whole identity, so matching items never count as changed.
// Duplicate keys on one side count once.
func compareByName[T any](left, right []T, key func(T) string, attrs func(a, b T) []string) Delta[T] {
	d := Delta[T]{Added: []T{}, Removed: []T{}}

	leftByKey := make(map[string]T, len(left))
	for _, it := range left {
		if _, dup := leftByKey[key(it)]; !dup {
			leftByKey[key(it)] = it
		}
	}
	rightByKey := make(map[string]T, len(right))
	for _, it := range right {
		if _, dup := rightByKey[key(it)]; !dup {
			rightByKey[key(it)] = it
		}
	}

	seen := make(map[string]bool, len(left))
	for _, it := range left {
		k := key(it)
		if seen[k] {
			continue
		}
		seen[k] = true

		other, ok := rightByKey[k]
		if !ok {
			d.Removed = append(d.Removed, it)
			continue
		}
		if attrs == nil {
			continue
		}
		if changed := attrs(it, other); len(changed) > 0 {
			d.Changed = append(d.Changed, Change[T]{Name: k, Left: it, Right: other, Attributes: changed})
		}
	}

	added := make(map[string]bool, len(right))
	for _, it := range right {
		k := key(it)
		if _, ok := leftByKey[k]; ok || added[k] {
			continue
		}
		added[k] = true
		d.Added = append(d.Added, it)
	}

	return d
}

func fieldName(f schema.Field) string { return f.Name }

func indexName(i schema.Index) string { return i.Name }

func fieldAttributes(a, b schema.Field) []string {
	var attrs []string
	if a.Type != b.Type || a.TypeName != b.TypeName {
		attrs = append(attrs, "type")
	}
	if a.Length != b.Length {
		attrs = append(attrs, "length")
	}
	if a.Nullable != b.Nullable {
		attrs = append(attrs, "nullable")
	}
	if a.Description != b.Description {
		attrs = append(attrs, "description")
	}
	return attrs
}

func indexAttributes(a, b schema.Index) []string {
	var attrs []string
	if !slices.Equal(a.Fields, b.Fields) {
		attrs = append(attrs, "fields")
	}
	if a.Unique != b.Unique {
		attrs = append(attrs, "unique")
	}
	return attrs
}
