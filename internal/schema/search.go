package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// SearchKind restricts a search to one entity kind, or all of them
type SearchKind int

const (
	SearchAll SearchKind = iota
	SearchTables
	SearchFields
	SearchRelationships
)

// ParseSearchKind accepts all, table, field, rel and relationship
func ParseSearchKind(s string) (SearchKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return SearchAll, nil
	case "table", "tables":
		return SearchTables, nil
	case "field", "fields":
		return SearchFields, nil
	case "rel", "rels", "relationship", "relationships":
		return SearchRelationships, nil
	default:
		return SearchAll, fmt.Errorf("invalid search type: %s (must be table, field, rel, relationship or all)", s)
	}
}

func (k SearchKind) String() string {
	switch k {
	case SearchTables:
		return "table"
	case SearchFields:
		return "field"
	case SearchRelationships:
		return "relationship"
	default:
		return "all"
	}
}

func (k SearchKind) includes(other SearchKind) bool {
	return k == SearchAll || k == other
}

// TableHit is a matching table
type TableHit struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// FieldHit is a matching field, qualified by its table
type FieldHit struct {
	Table       string   `json:"table" yaml:"table"`
	Field       string   `json:"field" yaml:"field"`
	Type        DataType `json:"type" yaml:"type"`
	TypeName    string   `json:"datatype" yaml:"datatype"`
	Description string   `json:"description" yaml:"description"`
}

// RelationshipHit is a matching foreign key edge
type RelationshipHit struct {
	SourceTable  string   `json:"source_table" yaml:"source_table"`
	Constraint   string   `json:"constraint" yaml:"constraint"`
	Fields       []string `json:"fields" yaml:"fields"`
	TargetTable  string   `json:"target_table" yaml:"target_table"`
	TargetFields []string `json:"target_fields" yaml:"target_fields"`
}

// String renders the edge as "SOURCE.f1,f2 -> TARGET.g1,g2"
func (h RelationshipHit) String() string {
	return RenderEdge(h.SourceTable, h.Fields, h.TargetTable, h.TargetFields)
}

// RenderEdge renders a foreign key edge in its searchable form
func RenderEdge(source string, fields []string, target string, targetFields []string) string {
	return fmt.Sprintf("%s.%s -> %s.%s", source, strings.Join(fields, ","), target, strings.Join(targetFields, ","))
}

// SearchResults groups matches by kind, each in declaration order
type SearchResults struct {
	Tables        []TableHit        `json:"tables" yaml:"tables"`
	Fields        []FieldHit        `json:"fields" yaml:"fields"`
	Relationships []RelationshipHit `json:"relationships" yaml:"relationships"`
}

// Len returns the total number of matches
func (r SearchResults) Len() int {
	return len(r.Tables) + len(r.Fields) + len(r.Relationships)
}

type searchUnit[T any] struct {
	hit  T
	keys []string // folded searchable text
}

func (u searchUnit[T]) matches(q string) bool {
	if q == "" {
		return true
	}
	for _, k := range u.keys {
		if strings.Contains(k, q) {
			return true
		}
	}
	return false
}

// SearchIndex holds pre-folded search units for tables, fields and
// relationships of one model
type SearchIndex struct {
	tables        []searchUnit[TableHit]
	fields        []searchUnit[FieldHit]
	relationships []searchUnit[RelationshipHit]
}

func buildSearchIndex(m *Model) *SearchIndex {
	idx := &SearchIndex{}

	for _, t := range m.tables {
		idx.tables = append(idx.tables, searchUnit[TableHit]{
			hit:  TableHit{Name: t.Name, Description: t.Description},
			keys: []string{fold(t.Name), fold(t.Description)},
		})
		for _, f := range t.Fields {
			idx.fields = append(idx.fields, searchUnit[FieldHit]{
				hit: FieldHit{
					Table:       t.Name,
					Field:       f.Name,
					Type:        f.Type,
					TypeName:    f.TypeName,
					Description: f.Description,
				},
				keys: []string{fold(t.Name + "." + f.Name)},
			})
		}
	}

	for _, e := range m.Graph().Edges() {
		hit := RelationshipHit{
			SourceTable:  e.Source,
			Constraint:   e.Constraint,
			Fields:       e.Fields,
			TargetTable:  e.Target,
			TargetFields: e.TargetFields,
		}
		keys := []string{fold(hit.String())}
		if e.Constraint != "" {
			keys = append(keys, fold(e.Constraint))
		}
		idx.relationships = append(idx.relationships, searchUnit[RelationshipHit]{hit: hit, keys: keys})
	}

	return idx
}

// Search returns every unit of the requested kind whose searchable text
// contains query, ignoring case. An empty query matches everything.
func (idx *SearchIndex) Search(query string, kind SearchKind) SearchResults {
	q := fold(query)
	var res SearchResults
	if kind.includes(SearchTables) {
		res.Tables = collect(idx.tables, q)
	}
	if kind.includes(SearchFields) {
		res.Fields = collect(idx.fields, q)
	}
	if kind.includes(SearchRelationships) {
		res.Relationships = collect(idx.relationships, q)
	}
	return res
}

func collect[T any](units []searchUnit[T], q string) []T {
	var hits []T
	for _, u := range units {
		if u.matches(q) {
			hits = append(hits, u.hit)
		}
	}
	return hits
}

// fold case-folds s. Casers are stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
