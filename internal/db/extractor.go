// Package db reads schema snapshots from live PostgreSQL, MySQL and SQLite
// catalogs. Every reader is read-only and produces the same raw records as the
// XML loader.
package db

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/tordrt/p6schema/internal/schema"
)

// Extractor reads a raw schema snapshot from a database catalog.
// If tables is empty, every base table is read.
type Extractor interface {
	ExtractSchema(ctx context.Context, tables []string) (*schema.RawSchema, error)
}

var (
	_ Extractor = (*PostgresExtractor)(nil)
	_ Extractor = (*MySQLExtractor)(nil)
	_ Extractor = (*SQLiteExtractor)(nil)
)

// keyColumn is one column of a named key constraint, as catalogs report them:
// one row per column, ordered by position within the constraint
type keyColumn struct {
	Constraint   string
	Type         string
	Column       string
	TargetTable  string
	TargetColumn string
	DeleteRule   string
}

// groupConstraints folds per-column catalog rows into constraints, keeping the
// order in which constraint names first appear
func groupConstraints(rows []keyColumn) []schema.RawConstraint {
	var out []schema.RawConstraint
	pos := make(map[string]int)

	for _, r := range rows {
		i, ok := pos[r.Constraint]
		if !ok {
			i = len(out)
			pos[r.Constraint] = i
			out = append(out, schema.RawConstraint{
				Name:        r.Constraint,
				Type:        constraintType(r.Type),
				TargetTable: r.TargetTable,
				DeleteRule:  r.DeleteRule,
			})
		}
		c := &out[i]
		c.Fields = append(c.Fields, r.Column)
		if r.TargetColumn != "" {
			c.TargetFields = append(c.TargetFields, r.TargetColumn)
		}
	}
	return out
}

// constraintType maps SQL constraint_type values to the declared tags used by
// schema description files
func constraintType(sqlType string) string {
	switch strings.ToUpper(strings.TrimSpace(sqlType)) {
	case "PRIMARY KEY":
		return "PRIMARY"
	case "FOREIGN KEY":
		return "FOREIGN"
	default:
		return strings.ToUpper(strings.TrimSpace(sqlType))
	}
}

// sizeOf renders an optional catalog number the way description files do
func sizeOf(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

var declaredSize = regexp.MustCompile(`^\s*([^(]+?)\s*\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)`)

// splitDeclaredType splits "VARCHAR(40)" or "DECIMAL(10,2)" into the base type
// name and its size. Character types report a length, everything else a
// precision and scale.
func splitDeclaredType(declared string) (base, length, precision, scale string) {
	m := declaredSize.FindStringSubmatch(declared)
	if m == nil {
		return strings.TrimSpace(declared), "", "", ""
	}
	base = m[1]
	if schema.ParseDataType(base) == schema.DataTypeString {
		return base, m[2], "", ""
	}
	return base, "", m[2], m[3]
}
