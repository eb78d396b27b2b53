package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/tordrt/p6schema/internal/diff"
	"github.com/tordrt/p6schema/internal/registry"
	"github.com/tordrt/p6schema/internal/schema"
)

// CSVFormatter writes tabular views as CSV with a header row. Views without
// a natural row shape are rejected.
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a CSV formatter writing to w
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

func (f *CSVFormatter) write(header []string, rows [][]string) error {
	cw := csv.NewWriter(f.writer)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

func unsupported(view string) error {
	return fmt.Errorf("csv output is not supported for %s", view)
}

func (f *CSVFormatter) Schemas(_ string, entries []*registry.Entry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Key.String(), e.Key.Family.DisplayName(), e.Key.Version, e.Source})
	}
	return f.write([]string{"key", "application", "version", "path"}, rows)
}

func (f *CSVFormatter) Info(*schema.Model) error {
	return unsupported("info")
}

func (f *CSVFormatter) Tables(tables []*schema.Table) error {
	rows := make([][]string, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, []string{t.Name, t.Description, strconv.Itoa(len(t.Fields))})
	}
	return f.write([]string{"name", "description", "field_count"}, rows)
}

// Describe writes the table's fields
func (f *CSVFormatter) Describe(t *schema.Table) error {
	fields := make([]schema.TableField, 0, len(t.Fields))
	for _, fd := range t.Fields {
		fields = append(fields, schema.TableField{Table: t.Name, Field: fd})
	}
	return f.Fields(fields)
}

func (f *CSVFormatter) Relationships(rel Relationships) error {
	rows := make([][]string, 0, len(rel.Outgoing)+len(rel.Incoming))
	for _, e := range rel.Outgoing {
		rows = append(rows, []string{"outgoing", e.Constraint, e.Source, joinFields(e.Fields), e.Target, joinFields(e.TargetFields)})
	}
	for _, e := range rel.Incoming {
		rows = append(rows, []string{"incoming", e.Constraint, e.Source, joinFields(e.SourceFields), e.Target, joinFields(e.Fields)})
	}
	return f.write([]string{"direction", "constraint", "table", "fields", "references_table", "references_fields"}, rows)
}

func (f *CSVFormatter) Search(_ string, kind schema.SearchKind, res schema.SearchResults) error {
	switch kind {
	case schema.SearchTables:
		rows := make([][]string, 0, len(res.Tables))
		for _, h := range res.Tables {
			rows = append(rows, []string{h.Name, h.Description})
		}
		return f.write([]string{"name", "description"}, rows)
	case schema.SearchFields:
		rows := make([][]string, 0, len(res.Fields))
		for _, h := range res.Fields {
			rows = append(rows, []string{h.Table, h.Field, h.TypeName, h.Description})
		}
		return f.write([]string{"table", "field", "datatype", "description"}, rows)
	default:
		return unsupported("search --type " + kind.String())
	}
}

func (f *CSVFormatter) Compare(*diff.Result) error {
	return unsupported("compare")
}

func (f *CSVFormatter) Fields(fields []schema.TableField) error {
	rows := make([][]string, 0, len(fields))
	for _, tf := range fields {
		rows = append(rows, []string{
			tf.Table,
			tf.Name,
			tf.TypeName,
			lengthString(tf.Field),
			strconv.FormatBool(!tf.Nullable),
			tf.Description,
		})
	}
	return f.write([]string{"table", "field", "datatype", "length", "notnull", "description"}, rows)
}

func (f *CSVFormatter) Constraints(constraints []schema.TableConstraint) error {
	rows := make([][]string, 0, len(constraints))
	for _, tc := range constraints {
		rows = append(rows, []string{
			tc.Table,
			tc.Name,
			constraintType(tc.Constraint),
			joinFields(tc.Fields),
			tc.TargetTable,
			joinFields(tc.TargetFields),
		})
	}
	return f.write([]string{"table", "name", "type", "fields", "target_table", "target_fields"}, rows)
}

func (f *CSVFormatter) Stats(s schema.Stats) error {
	rows := make([][]string, 0, len(s.DataTypes))
	for _, tc := range s.DataTypes {
		rows = append(rows, []string{tc.Type, strconv.Itoa(tc.Count)})
	}
	return f.write([]string{"datatype", "count"}, rows)
}
