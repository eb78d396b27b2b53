package formatter

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/tordrt/p6schema/internal/schema"
)

const overviewFile = "_overview.md"

// MultiFileFormatter writes a schema as a directory of markdown files: an
// overview plus one file per table
type MultiFileFormatter struct {
	fs        afero.Fs
	OutputDir string
}

// NewMultiFileFormatter creates a multi-file formatter writing under outputDir
func NewMultiFileFormatter(fs afero.Fs, outputDir string) *MultiFileFormatter {
	return &MultiFileFormatter{fs: fs, OutputDir: outputDir}
}

// Format writes the overview and every table file
func (f *MultiFileFormatter) Format(m *schema.Model) error {
	if err := f.fs.MkdirAll(f.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeOverview(m); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	g := m.Graph()
	for _, t := range m.Tables() {
		if err := f.writeTableFile(t, g); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", t.Name, err)
		}
	}
	return nil
}

// TableFile returns the path of the file written for table
func (f *MultiFileFormatter) TableFile(table string) string {
	return filepath.Join(f.OutputDir, table+".md")
}

func (f *MultiFileFormatter) writeOverview(m *schema.Model) error {
	file, err := f.fs.Create(filepath.Join(f.OutputDir, overviewFile))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	_, _ = fmt.Fprintf(file, "# Schema Overview\n\n")
	if m.Version != "" {
		_, _ = fmt.Fprintf(file, "Version: %s\n\n", m.Version)
	}
	_, _ = fmt.Fprintf(file, "Each table has a corresponding file: `<table_name>.md`\n\n")
	_, _ = fmt.Fprintf(file, "## Tables\n\n")

	g := m.Graph()
	for _, t := range SortTables(m.Tables()) {
		_, _ = fmt.Fprintf(file, "- **%s**", t.Name)
		if targets := referencedTables(g.References(t.Name)); len(targets) > 0 {
			_, _ = fmt.Fprintf(file, " (references: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintf(file, "\n")
	}
	return nil
}

// referencedTables lists distinct targets in first-seen order
func referencedTables(edges []schema.ForwardEdge) []string {
	var targets []string
	for _, e := range edges {
		if !slices.Contains(targets, e.Target) {
			targets = append(targets, e.Target)
		}
	}
	return targets
}

func (f *MultiFileFormatter) writeTableFile(t *schema.Table, g *schema.RelationshipGraph) error {
	file, err := f.fs.Create(f.TableFile(t.Name))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	return NewMarkdownFormatter(file).FormatTable(t, g)
}
