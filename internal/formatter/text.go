package formatter

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/tordrt/p6schema/internal/diff"
	"github.com/tordrt/p6schema/internal/registry"
	"github.com/tordrt/p6schema/internal/schema"
)

var (
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
	changedColor = color.New(color.FgYellow)
	headingColor = color.New(color.Bold)
)

// TextFormatter renders views as aligned plain-text tables
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

func (f *TextFormatter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(f.writer, format, args...)
}

func (f *TextFormatter) println(args ...any) {
	_, _ = fmt.Fprintln(f.writer, args...)
}

func (f *TextFormatter) rule(width int) {
	f.println(strings.Repeat("-", width))
}

// Schemas lists registered schemas, or explains how to add some
func (f *TextFormatter) Schemas(dir string, entries []*registry.Entry) error {
	if len(entries) == 0 {
		f.printf("No schemas found in: %s\n", dir)
		f.println()
		f.println("To add schemas, place files matching pattern:")
		f.println("  eppm_YY_MM_schema.xml  (e.g., eppm_24_12_schema.xml)")
		f.println("  ppm_YY_MM_schema.xml   (e.g., ppm_23_04_schema.xml)")
		return nil
	}

	f.printf("Available Schemas (%d):\n", len(entries))
	f.printf("  %-15s %-11s %-10s %s\n", "Key", "Application", "Version", "Path")
	f.printf("  %s\n", strings.Repeat("-", 70))
	for _, e := range entries {
		f.printf("  %-15s %-11s %-10s %s\n", e.Key.String(), e.Key.Family.DisplayName(), e.Key.Version, e.Source)
	}
	f.println()
	f.println("Usage: p6schema <command> <key>")
	f.println("  Example: p6schema info eppm:24.12")
	f.println("  Example: p6schema tables ppm:23.04")
	return nil
}

// Info prints the schema header attributes
func (f *TextFormatter) Info(m *schema.Model) error {
	f.println("Schema Information:")
	if m.Family != "" {
		f.printf("  Application:   %s\n", m.Family.DisplayName())
	}
	f.printf("  Version:       %s\n", m.Version)
	f.printf("  DB Type:       %s\n", m.DBType)
	f.printf("  Build Version: %s\n", m.Build)
	if m.MinProVersion != "" {
		f.printf("  Min Pro Ver:   %s\n", m.MinProVersion)
	}
	f.printf("  Tables:        %d\n", m.Len())
	f.printf("  Source:        %s\n", m.Source)
	return nil
}

// Tables prints one line per table with its field count
func (f *TextFormatter) Tables(tables []*schema.Table) error {
	f.printf("%-40s %6s  %s\n", "Table Name", "Fields", "Description")
	f.rule(80)
	for _, t := range tables {
		f.printf("%-40s %6d  %s\n", t.Name, len(t.Fields), truncate(t.Description, 30))
	}
	return nil
}

// Describe prints a table's fields, indexes, constraints and triggers
func (f *TextFormatter) Describe(t *schema.Table) error {
	f.printf("\nTable: %s\n", t.Name)
	if t.Title != "" {
		f.printf("Title: %s\n", t.Title)
	}
	if t.Description != "" {
		f.printf("Description: %s\n", t.Description)
	}
	if t.Tablespace != "" {
		f.printf("Tablespace: %s\n", t.Tablespace)
	}

	f.printf("\nFields (%d):\n", len(t.Fields))
	f.printf("  %-35s %-12s %-8s %-8s %s\n", "Name", "Type", "Length", "Null", "Description")
	f.printf("  %s\n", strings.Repeat("-", 90))
	for _, fld := range t.Fields {
		f.printf("  %-35s %-12s %-8s %-8s %s\n", fld.Name, fld.TypeName, lengthString(fld), nullability(fld), truncate(fld.Description, 35))
	}

	if len(t.Indexes) > 0 {
		f.printf("\nIndexes (%d):\n", len(t.Indexes))
		for _, i := range t.Indexes {
			f.printf("  %s: %s (%s)\n", i.Name, joinFields(i.Fields), uniqueness(i))
		}
	}

	if len(t.Constraints) > 0 {
		f.printf("\nConstraints (%d):\n", len(t.Constraints))
		for _, c := range t.Constraints {
			switch c.Kind {
			case schema.ConstraintPrimaryKey:
				f.printf("  PK: %s (%s)\n", c.Name, joinFields(c.Fields))
			case schema.ConstraintForeignKey:
				f.printf("  FK: %s (%s) -> %s(%s)\n", c.Name, joinFields(c.Fields), c.TargetTable, joinFields(c.TargetFields))
			default:
				f.printf("  %s: %s (%s)\n", constraintType(c), c.Name, joinFields(c.Fields))
			}
		}
	}

	if len(t.Triggers) > 0 {
		f.printf("\nTriggers (%d):\n", len(t.Triggers))
		for _, tr := range t.Triggers {
			f.printf("  %s: %s\n", tr.Name, tr.Set)
		}
	}
	return nil
}

// Relationships prints outgoing references sorted by target, then incoming ones
func (f *TextFormatter) Relationships(rel Relationships) error {
	f.printf("\nRelationships for: %s\n", rel.Table)
	f.println(strings.Repeat("=", 60))

	outgoing := slices.Clone(rel.Outgoing)
	slices.SortStableFunc(outgoing, func(a, b schema.ForwardEdge) int { return strings.Compare(a.Target, b.Target) })

	f.printf("\nReferences (%d):\n", len(outgoing))
	if len(outgoing) > 0 {
		f.printf("  %-25s    %-25s %s\n", "This Table", "Referenced Table", "Fields")
		f.printf("  %s\n", strings.Repeat("-", 70))
		for _, e := range outgoing {
			f.printf("  %-25s -> %-25s (%s)\n", joinFields(e.Fields), e.Target, joinFields(e.TargetFields))
		}
	} else {
		f.println("  (none)")
	}

	f.printf("\nReferenced By (%d):\n", len(rel.Incoming))
	if len(rel.Incoming) > 0 {
		f.printf("  %-25s %-25s    %s\n", "Referencing Table", "Fields", "This Table")
		f.printf("  %s\n", strings.Repeat("-", 70))
		for _, e := range rel.Incoming {
			f.printf("  %-25s %-25s -> %s\n", e.Source, joinFields(e.SourceFields), joinFields(e.Fields))
		}
	} else {
		f.println("  (none)")
	}

	f.println("\nSummary:")
	f.printf("  References %d table(s)\n", len(outgoing))
	f.printf("  Referenced by %d table(s)\n", len(rel.Incoming))
	return nil
}

// Search prints hits grouped by kind
func (f *TextFormatter) Search(query string, kind schema.SearchKind, res schema.SearchResults) error {
	all := kind == schema.SearchAll
	if all {
		f.printf("Search results for '%s' (%d matches):\n\n", query, res.Len())
	}

	if len(res.Tables) > 0 {
		f.printf("Tables (%d):\n", len(res.Tables))
		for _, h := range res.Tables {
			f.printf("  %s: %s\n", h.Name, truncate(h.Description, 50))
		}
		if all {
			f.println()
		}
	}

	if len(res.Fields) > 0 {
		f.printf("Fields (%d):\n", len(res.Fields))
		for _, h := range res.Fields {
			f.printf("  %s.%s (%s)\n", h.Table, h.Field, h.TypeName)
		}
		if all {
			f.println()
		}
	}

	if len(res.Relationships) > 0 {
		f.printf("Relationships (%d):\n", len(res.Relationships))
		for _, h := range res.Relationships {
			f.printf("  %s\n", h.String())
		}
	}

	if res.Len() == 0 {
		switch kind {
		case schema.SearchTables:
			f.printf("No tables matching '%s'\n", query)
		case schema.SearchFields:
			f.printf("No fields matching '%s'\n", query)
		case schema.SearchRelationships:
			f.printf("No relationships matching '%s'\n", query)
		default:
			f.printf("No results matching '%s'\n", query)
		}
	}
	return nil
}

// Compare prints the diff with + for additions, - for removals and ~ for
// changes, colored when the terminal allows it
func (f *TextFormatter) Compare(res *diff.Result) error {
	_, _ = headingColor.Fprintln(f.writer, "Schema Comparison")
	f.printf("  Schema 1: %s (%d tables)\n", res.Left.Version, res.Left.Tables)
	f.printf("  Schema 2: %s (%d tables)\n", res.Right.Version, res.Right.Tables)
	f.println()

	if res.Empty() {
		f.println("No differences.")
		return nil
	}

	if len(res.AddedTables) > 0 {
		f.printf("Tables added in %s (%d):\n", res.Right.Version, len(res.AddedTables))
		for _, name := range res.AddedTables {
			_, _ = addedColor.Fprintf(f.writer, "  + %s\n", name)
		}
		f.println()
	}

	if len(res.RemovedTables) > 0 {
		f.printf("Tables removed in %s (%d):\n", res.Right.Version, len(res.RemovedTables))
		for _, name := range res.RemovedTables {
			_, _ = removedColor.Fprintf(f.writer, "  - %s\n", name)
		}
		f.println()
	}

	if len(res.Modified) > 0 {
		f.printf("Tables with changes (%d):\n", len(res.Modified))
		for _, td := range res.Modified {
			f.printf("  %s:\n", td.Name)
			f.tableChanges(td)
		}
	}
	return nil
}

func (f *TextFormatter) tableChanges(td diff.TableDiff) {
	for _, fld := range td.Fields.Added {
		_, _ = addedColor.Fprintf(f.writer, "    + %s\n", fld.Name)
	}
	for _, fld := range td.Fields.Removed {
		_, _ = removedColor.Fprintf(f.writer, "    - %s\n", fld.Name)
	}
	for _, c := range td.Fields.Changed {
		_, _ = changedColor.Fprintf(f.writer, "    ~ %s (%s)\n", c.Name, strings.Join(c.Attributes, ", "))
	}

	for _, i := range td.Indexes.Added {
		_, _ = addedColor.Fprintf(f.writer, "    + index %s (%s)\n", i.Name, joinFields(i.Fields))
	}
	for _, i := range td.Indexes.Removed {
		_, _ = removedColor.Fprintf(f.writer, "    - index %s (%s)\n", i.Name, joinFields(i.Fields))
	}
	for _, c := range td.Indexes.Changed {
		_, _ = changedColor.Fprintf(f.writer, "    ~ index %s (%s)\n", c.Name, strings.Join(c.Attributes, ", "))
	}

	for _, c := range td.Constraints.Added {
		_, _ = addedColor.Fprintf(f.writer, "    + constraint %s %s\n", c.Name, c.Identity())
	}
	for _, c := range td.Constraints.Removed {
		_, _ = removedColor.Fprintf(f.writer, "    - constraint %s %s\n", c.Name, c.Identity())
	}
}

// Fields prints one line per field
func (f *TextFormatter) Fields(fields []schema.TableField) error {
	f.printf("%-30s %-35s %-12s %-8s\n", "Table", "Field", "Type", "Length")
	f.rule(90)
	for _, tf := range fields {
		f.printf("%-30s %-35s %-12s %-8s\n", tf.Table, tf.Name, tf.TypeName, lengthString(tf.Field))
	}
	return nil
}

// Constraints prints one line per constraint
func (f *TextFormatter) Constraints(constraints []schema.TableConstraint) error {
	f.printf("%-30s %-8s %-30s %-40s\n", "Table", "Type", "Fields", "References")
	f.rule(110)
	for _, tc := range constraints {
		ref := ""
		if tc.TargetTable != "" {
			ref = fmt.Sprintf("%s(%s)", tc.TargetTable, joinFields(tc.TargetFields))
		}
		f.printf("%-30s %-8s %-30s %-40s\n", tc.Table, constraintType(tc.Constraint), joinFields(tc.Fields), ref)
	}
	return nil
}

// Stats prints totals and the field type histogram
func (f *TextFormatter) Stats(s schema.Stats) error {
	f.printf("Schema Statistics: %s\n", s.Version)
	f.printf("  Tables:       %d\n", s.Tables)
	f.printf("  Fields:       %d\n", s.Fields)
	f.printf("  Indexes:      %d\n", s.Indexes)
	f.printf("  Constraints:  %d\n", s.Constraints)
	f.printf("  Foreign Keys: %d\n", s.ForeignKeys)
	f.println("\nField Data Types:")
	for _, tc := range s.DataTypes {
		f.printf("  %-15s %6d\n", tc.Type, tc.Count)
	}
	return nil
}
