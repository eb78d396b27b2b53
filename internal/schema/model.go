package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Model is the validated, immutable in-memory representation of one schema
// source. The relationship graph and search index are built on first use and
// memoized for the lifetime of the model.
type Model struct {
	Family        Family
	Version       string
	Build         string
	MinProVersion string
	DBType        string
	Source        string

	tables []*Table
	byName map[string]*Table

	graphOnce sync.Once
	graph     *RelationshipGraph

	indexOnce sync.Once
	index     *SearchIndex
}

// NewModel validates raw loader output and builds a Model. Every problem found
// is reported in one *LoadError. Foreign key targets are not checked here; see
// Graph.
func NewModel(raw *RawSchema) (*Model, error) {
	if raw == nil {
		return nil, &LoadError{Problems: []string{"no schema records"}}
	}

	m := &Model{
		Family:        raw.Family,
		Version:       raw.Version,
		Build:         raw.Build,
		MinProVersion: raw.MinProVersion,
		DBType:        raw.DBType,
		Source:        raw.Source,
		tables:        make([]*Table, 0, len(raw.Tables)),
		byName:        make(map[string]*Table, len(raw.Tables)),
	}

	var problems []string
	for i := range raw.Tables {
		rt := &raw.Tables[i]
		if strings.TrimSpace(rt.Name) == "" {
			problems = append(problems, fmt.Sprintf("table #%d has no name", i+1))
			continue
		}
		if _, dup := m.byName[rt.Name]; dup {
			problems = append(problems, fmt.Sprintf("duplicate table %s", rt.Name))
			continue
		}

		table, tableProblems := buildTable(rt)
		problems = append(problems, tableProblems...)
		m.tables = append(m.tables, table)
		m.byName[table.Name] = table
	}

	if len(problems) > 0 {
		return nil, &LoadError{Source: raw.Source, Problems: problems}
	}
	return m, nil
}

func buildTable(rt *RawTable) (*Table, []string) {
	t := &Table{
		Name:        rt.Name,
		Title:       rt.Title,
		Description: rt.Description,
		Tablespace:  rt.Tablespace,
		Type:        rt.Type,
		Ordinal:     rt.Ordinal,
		Fields:      make([]Field, 0, len(rt.Fields)),
		fieldPos:    make(map[string]int, len(rt.Fields)),
	}

	var problems []string
	for i, rf := range rt.Fields {
		if strings.TrimSpace(rf.Name) == "" {
			problems = append(problems, fmt.Sprintf("%s: field #%d has no name", rt.Name, i+1))
			continue
		}
		key := strings.ToLower(rf.Name)
		if _, dup := t.fieldPos[key]; dup {
			problems = append(problems, fmt.Sprintf("%s: duplicate field %s", rt.Name, rf.Name))
			continue
		}

		f, err := buildField(rf)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s.%s: %v", rt.Name, rf.Name, err))
			continue
		}
		t.fieldPos[key] = len(t.Fields)
		t.Fields = append(t.Fields, f)
	}

	for _, ri := range rt.Indexes {
		for _, name := range ri.Fields {
			if !t.HasField(name) {
				problems = append(problems, fmt.Sprintf("%s: index %s references unknown field %s", rt.Name, ri.Name, name))
			}
		}
		t.Indexes = append(t.Indexes, Index{
			Name:       ri.Name,
			Fields:     slices.Clone(ri.Fields),
			Unique:     ri.Unique,
			Tablespace: ri.Tablespace,
		})
	}

	for _, rc := range rt.Constraints {
		c := Constraint{
			Name:         rc.Name,
			Kind:         ParseConstraintKind(rc.Type),
			Tag:          rc.Type,
			Fields:       slices.Clone(rc.Fields),
			TargetTable:  rc.TargetTable,
			TargetFields: slices.Clone(rc.TargetFields),
			DeleteRule:   rc.DeleteRule,
		}
		if c.Kind == ConstraintForeignKey {
			if c.TargetTable == "" {
				problems = append(problems, fmt.Sprintf("%s: foreign key %s has no target table", rt.Name, rc.Name))
			}
			if len(c.Fields) != len(c.TargetFields) {
				problems = append(problems, fmt.Sprintf("%s: foreign key %s maps %d fields to %d target fields",
					rt.Name, rc.Name, len(c.Fields), len(c.TargetFields)))
			}
		}
		t.Constraints = append(t.Constraints, c)
	}

	for _, tr := range rt.Triggers {
		t.Triggers = append(t.Triggers, Trigger(tr))
	}

	return t, problems
}

func buildField(rf RawField) (Field, error) {
	f := Field{
		Name:        rf.Name,
		Type:        ParseDataType(rf.DataType),
		TypeName:    rf.DataType,
		Nullable:    !rf.NotNull,
		Default:     rf.Default,
		Identity:    rf.Identity,
		Description: rf.Description,
	}

	var err error
	if f.Precision, err = parseSize("precision", rf.Precision); err != nil {
		return f, err
	}
	if f.Scale, err = parseSize("scale", rf.Scale); err != nil {
		return f, err
	}
	if f.Length, err = parseSize("length", rf.CharLength); err != nil {
		return f, err
	}
	if f.Length == 0 {
		f.Length = f.Precision
	}
	return f, nil
}

func parseSize(attr, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", attr, s)
	}
	return n, nil
}

// Tables returns all tables in declaration order
func (m *Model) Tables() []*Table {
	return slices.Clone(m.tables)
}

// TableNames returns all table names in declaration order
func (m *Model) TableNames() []string {
	names := make([]string, len(m.tables))
	for i, t := range m.tables {
		names[i] = t.Name
	}
	return names
}

// Len returns the number of tables
func (m *Model) Len() int {
	return len(m.tables)
}

// Table returns the table with exactly the given name
func (m *Model) Table(name string) (*Table, error) {
	if t, ok := m.byName[name]; ok {
		return t, nil
	}
	return nil, &NotFoundError{Kind: "table", Name: name}
}

// Lookup resolves a user-typed table name: an exact match first, then a
// case-insensitive match if exactly one table qualifies
func (m *Model) Lookup(name string) (*Table, error) {
	if t, ok := m.byName[name]; ok {
		return t, nil
	}
	var found *Table
	for _, t := range m.tables {
		if strings.EqualFold(t.Name, name) {
			if found != nil {
				return nil, fmt.Errorf("table name '%s' is ambiguous (%s, %s)", name, found.Name, t.Name)
			}
			found = t
		}
	}
	if found == nil {
		return nil, &NotFoundError{Kind: "table", Name: name}
	}
	return found, nil
}

// Graph returns the model's relationship graph, building it on first call
func (m *Model) Graph() *RelationshipGraph {
	m.graphOnce.Do(func() {
		m.graph = buildGraph(m)
	})
	return m.graph
}

// Index returns the model's search index, building it on first call
func (m *Model) Index() *SearchIndex {
	m.indexOnce.Do(func() {
		m.index = buildSearchIndex(m)
	})
	return m.index
}

// TableConstraint pairs a constraint with its owning table
type TableConstraint struct {
	Table string
	Constraint
}

// Constraints lists constraints across all tables in declaration order,
// restricted to the given kinds when any are passed
func (m *Model) Constraints(kinds ...ConstraintKind) []TableConstraint {
	var out []TableConstraint
	for _, t := range m.tables {
		for _, c := range t.Constraints {
			if len(kinds) > 0 && !slices.Contains(kinds, c.Kind) {
				continue
			}
			out = append(out, TableConstraint{Table: t.Name, Constraint: c})
		}
	}
	return out
}

// TableField pairs a field with its owning table
type TableField struct {
	Table string
	Field
}

// Fields lists every field in declaration order. When tables are given, only
// fields of those tables (exact names) are listed.
func (m *Model) Fields(tables ...string) []TableField {
	var out []TableField
	for _, t := range m.tables {
		if len(tables) > 0 && !slices.Contains(tables, t.Name) {
			continue
		}
		for _, f := range t.Fields {
			out = append(out, TableField{Table: t.Name, Field: f})
		}
	}
	return out
}
