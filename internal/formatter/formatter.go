// Package formatter renders schema views as text, JSON, YAML, CSV and markdown.
package formatter

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/tordrt/p6schema/internal/diff"
	"github.com/tordrt/p6schema/internal/registry"
	"github.com/tordrt/p6schema/internal/schema"
)

// Output format names accepted by New
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Formatter renders each view the CLI offers
type Formatter interface {
	Schemas(dir string, entries []*registry.Entry) error
	Info(m *schema.Model) error
	Tables(tables []*schema.Table) error
	Describe(t *schema.Table) error
	Relationships(rel Relationships) error
	Search(query string, kind schema.SearchKind, res schema.SearchResults) error
	Compare(res *diff.Result) error
	Fields(fields []schema.TableField) error
	Constraints(constraints []schema.TableConstraint) error
	Stats(s schema.Stats) error
}

// New returns the formatter for format, writing to w
func New(format string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return NewTextFormatter(w), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	case FormatYAML, "yml":
		return NewYAMLFormatter(w), nil
	case FormatCSV:
		return NewCSVFormatter(w), nil
	default:
		return nil, fmt.Errorf("invalid format: %s (must be text, json, yaml or csv)", format)
	}
}

// Relationships is the relationships view of one table: the foreign keys it
// declares and the foreign keys that point at it
type Relationships struct {
	Table    string
	Outgoing []schema.ForwardEdge
	Incoming []schema.BackwardEdge
}

// NewRelationships collects the relationships view of table from m's graph
func NewRelationships(m *schema.Model, table string) Relationships {
	g := m.Graph()
	return Relationships{
		Table:    table,
		Outgoing: g.References(table),
		Incoming: g.ReferencedBy(table),
	}
}

// SortTables returns a copy of tables ordered by name
func SortTables(tables []*schema.Table) []*schema.Table {
	sorted := slices.Clone(tables)
	slices.SortFunc(sorted, func(a, b *schema.Table) int { return strings.Compare(a.Name, b.Name) })
	return sorted
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func joinFields(fields []string) string {
	return strings.Join(fields, ",")
}

func lengthString(f schema.Field) string {
	if f.Length == 0 {
		return ""
	}
	return strconv.Itoa(f.Length)
}

func nullability(f schema.Field) string {
	if f.Nullable {
		return "NULL"
	}
	return "NOT NULL"
}

// constraintType is the declared tag, or the kind name when none was declared
func constraintType(c schema.Constraint) string {
	if c.Tag != "" {
		return strings.ToUpper(c.Tag)
	}
	return c.Kind.String()
}

func uniqueness(i schema.Index) string {
	if i.Unique {
		return "UNIQUE"
	}
	return "NONUNIQUE"
}
