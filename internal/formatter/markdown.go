package formatter

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/tordrt/p6schema/internal/schema"
)

// MarkdownFormatter formats a schema as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes every table of m in declaration order
func (f *MarkdownFormatter) Format(m *schema.Model) error {
	title := "# Schema"
	if m.Version != "" {
		title = fmt.Sprintf("# Schema %s", m.Version)
	}
	_, _ = fmt.Fprintln(f.writer, title)
	_, _ = fmt.Fprintln(f.writer)

	g := m.Graph()
	for _, t := range m.Tables() {
		if err := f.FormatTable(t, g); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable writes one table section. Incoming references are listed when
// g is not nil.
func (f *MarkdownFormatter) FormatTable(t *schema.Table, g *schema.RelationshipGraph) error {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", t.Name)
	if t.Description != "" {
		_, _ = fmt.Fprintf(f.writer, "%s\n\n", t.Description)
	}

	f.formatFields(t)
	f.formatIndexes(t)

	if g == nil {
		return nil
	}
	f.formatReferences(g.References(t.Name))
	f.formatReferencedBy(g.ReferencedBy(t.Name))
	return nil
}

func (f *MarkdownFormatter) formatFields(t *schema.Table) {
	_, _ = fmt.Fprintln(f.writer, "### Fields")
	_, _ = fmt.Fprintln(f.writer)

	pk := t.PrimaryKey()
	for _, fd := range t.Fields {
		typeStr := fd.TypeName
		if l := lengthString(fd); l != "" {
			typeStr = fmt.Sprintf("%s(%s)", fd.TypeName, l)
		}

		attrs := fieldAttributes(fd, pk)
		line := fmt.Sprintf("- **%s:** %s", fd.Name, typeStr)
		if attrs != "" {
			line += ", " + attrs
		}
		if fd.Description != "" {
			line += " - " + fd.Description
		}
		_, _ = fmt.Fprintln(f.writer, line)
	}
	_, _ = fmt.Fprintln(f.writer)
}

func fieldAttributes(fd schema.Field, pk []string) string {
	var attrs []string
	if slices.Contains(pk, fd.Name) {
		attrs = append(attrs, "PK")
	}
	if !fd.Nullable {
		attrs = append(attrs, "NOT NULL")
	}
	if fd.Identity {
		attrs = append(attrs, "IDENTITY")
	}
	if fd.Default != "" {
		attrs = append(attrs, "DEFAULT "+fd.Default)
	}
	return strings.Join(attrs, ", ")
}

func (f *MarkdownFormatter) formatIndexes(t *schema.Table) {
	if len(t.Indexes) == 0 {
		return
	}
	_, _ = fmt.Fprintln(f.writer, "### Indexes")
	_, _ = fmt.Fprintln(f.writer)
	for _, idx := range t.Indexes {
		if idx.Unique {
			_, _ = fmt.Fprintf(f.writer, "- %s on (%s), unique\n", idx.Name, strings.Join(idx.Fields, ", "))
		} else {
			_, _ = fmt.Fprintf(f.writer, "- %s on (%s)\n", idx.Name, strings.Join(idx.Fields, ", "))
		}
	}
	_, _ = fmt.Fprintln(f.writer)
}

func (f *MarkdownFormatter) formatReferences(edges []schema.ForwardEdge) {
	if len(edges) == 0 {
		return
	}
	_, _ = fmt.Fprintln(f.writer, "### References")
	_, _ = fmt.Fprintln(f.writer)
	for _, e := range edges {
		_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s (%s)\n",
			joinFields(e.Fields), e.Target, joinFields(e.TargetFields), e.Constraint)
	}
	_, _ = fmt.Fprintln(f.writer)
}

func (f *MarkdownFormatter) formatReferencedBy(edges []schema.BackwardEdge) {
	if len(edges) == 0 {
		return
	}
	_, _ = fmt.Fprintln(f.writer, "### Referenced by")
	_, _ = fmt.Fprintln(f.writer)
	for _, e := range edges {
		_, _ = fmt.Fprintf(f.writer, "- %s.%s → %s (%s)\n",
			e.Source, joinFields(e.SourceFields), joinFields(e.Fields), e.Constraint)
	}
	_, _ = fmt.Fprintln(f.writer)
}
