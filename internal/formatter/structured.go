package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/p6schema/internal/diff"
	"github.com/tordrt/p6schema/internal/registry"
	"github.com/tordrt/p6schema/internal/schema"
)

// StructuredFormatter renders views as JSON or YAML documents
type StructuredFormatter struct {
	encode func(v any) error
}

// NewJSONFormatter writes indented JSON to w
func NewJSONFormatter(w io.Writer) *StructuredFormatter {
	return &StructuredFormatter{encode: func(v any) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	}}
}

// NewYAMLFormatter writes YAML to w
func NewYAMLFormatter(w io.Writer) *StructuredFormatter {
	return &StructuredFormatter{encode: func(v any) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	}}
}

type schemaRow struct {
	Key         string `json:"key" yaml:"key"`
	Application string `json:"application" yaml:"application"`
	Version     string `json:"version" yaml:"version"`
	Path        string `json:"path" yaml:"path"`
}

type infoDoc struct {
	Application   string `json:"application,omitempty" yaml:"application,omitempty"`
	Version       string `json:"version" yaml:"version"`
	DBType        string `json:"dbtype" yaml:"dbtype"`
	BuildVersion  string `json:"build_version" yaml:"build_version"`
	MinProVersion string `json:"min_pro_version,omitempty" yaml:"min_pro_version,omitempty"`
	Tables        int    `json:"tables" yaml:"tables"`
	Source        string `json:"source" yaml:"source"`
}

type tableRow struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Fields      int    `json:"fields" yaml:"fields"`
}

// TableDoc is the full structured form of one table
type TableDoc struct {
	Name        string              `json:"name" yaml:"name"`
	Title       string              `json:"title" yaml:"title"`
	Description string              `json:"description" yaml:"description"`
	Tablespace  string              `json:"tablespace" yaml:"tablespace"`
	Type        string              `json:"type,omitempty" yaml:"type,omitempty"`
	Fields      []schema.Field      `json:"fields" yaml:"fields"`
	Indexes     []schema.Index      `json:"indexes" yaml:"indexes"`
	Constraints []schema.Constraint `json:"constraints" yaml:"constraints"`
	Triggers    []schema.Trigger    `json:"triggers" yaml:"triggers"`
}

// NewTableDoc copies t into its structured form
func NewTableDoc(t *schema.Table) TableDoc {
	return TableDoc{
		Name:        t.Name,
		Title:       t.Title,
		Description: t.Description,
		Tablespace:  t.Tablespace,
		Type:        t.Type,
		Fields:      orEmpty(t.Fields),
		Indexes:     orEmpty(t.Indexes),
		Constraints: orEmpty(t.Constraints),
		Triggers:    orEmpty(t.Triggers),
	}
}

type outgoingRow struct {
	Constraint       string   `json:"constraint" yaml:"constraint"`
	Fields           []string `json:"fields" yaml:"fields"`
	ReferencesTable  string   `json:"references_table" yaml:"references_table"`
	ReferencesFields []string `json:"references_fields" yaml:"references_fields"`
}

type incomingRow struct {
	Table            string   `json:"table" yaml:"table"`
	Constraint       string   `json:"constraint" yaml:"constraint"`
	Fields           []string `json:"fields" yaml:"fields"`
	ReferencesFields []string `json:"references_fields" yaml:"references_fields"`
}

type relationshipsDoc struct {
	Table    string        `json:"table" yaml:"table"`
	Outgoing []outgoingRow `json:"outgoing" yaml:"outgoing"`
	Incoming []incomingRow `json:"incoming" yaml:"incoming"`
}

type fieldRow struct {
	Table       string `json:"table" yaml:"table"`
	Field       string `json:"field" yaml:"field"`
	DataType    string `json:"datatype" yaml:"datatype"`
	Length      int    `json:"length" yaml:"length"`
	NotNull     bool   `json:"notnull" yaml:"notnull"`
	Description string `json:"description" yaml:"description"`
}

type constraintRow struct {
	Table        string   `json:"table" yaml:"table"`
	Name         string   `json:"name" yaml:"name"`
	Type         string   `json:"type" yaml:"type"`
	Fields       []string `json:"fields" yaml:"fields"`
	TargetTable  string   `json:"target_table" yaml:"target_table"`
	TargetFields []string `json:"target_fields" yaml:"target_fields"`
}

// ExportDocument is the whole-schema export. Tables are keyed by name.
type ExportDocument struct {
	Application   string              `json:"application,omitempty" yaml:"application,omitempty"`
	Version       string              `json:"version" yaml:"version"`
	DBType        string              `json:"dbtype" yaml:"dbtype"`
	BuildVersion  string              `json:"build_version" yaml:"build_version"`
	MinProVersion string              `json:"min_pro_version" yaml:"min_pro_version"`
	TableCount    int                 `json:"table_count" yaml:"table_count"`
	Tables        map[string]TableDoc `json:"tables" yaml:"tables"`
}

// NewExportDocument builds the export form of m
func NewExportDocument(m *schema.Model) ExportDocument {
	doc := ExportDocument{
		Application:   applicationName(m.Family),
		Version:       m.Version,
		DBType:        m.DBType,
		BuildVersion:  m.Build,
		MinProVersion: m.MinProVersion,
		TableCount:    m.Len(),
		Tables:        make(map[string]TableDoc, m.Len()),
	}
	for _, t := range m.Tables() {
		doc.Tables[t.Name] = NewTableDoc(t)
	}
	return doc
}

func applicationName(f schema.Family) string {
	if f == "" {
		return ""
	}
	return f.DisplayName()
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Export writes the whole-schema document
func (f *StructuredFormatter) Export(m *schema.Model) error {
	return f.encode(NewExportDocument(m))
}

func (f *StructuredFormatter) Schemas(_ string, entries []*registry.Entry) error {
	rows := make([]schemaRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, schemaRow{
			Key:         e.Key.String(),
			Application: e.Key.Family.DisplayName(),
			Version:     e.Key.Version,
			Path:        e.Source,
		})
	}
	return f.encode(rows)
}

func (f *StructuredFormatter) Info(m *schema.Model) error {
	return f.encode(infoDoc{
		Application:   applicationName(m.Family),
		Version:       m.Version,
		DBType:        m.DBType,
		BuildVersion:  m.Build,
		MinProVersion: m.MinProVersion,
		Tables:        m.Len(),
		Source:        m.Source,
	})
}

func (f *StructuredFormatter) Tables(tables []*schema.Table) error {
	rows := make([]tableRow, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, tableRow{Name: t.Name, Description: t.Description, Fields: len(t.Fields)})
	}
	return f.encode(rows)
}

func (f *StructuredFormatter) Describe(t *schema.Table) error {
	return f.encode(NewTableDoc(t))
}

func (f *StructuredFormatter) Relationships(rel Relationships) error {
	doc := relationshipsDoc{
		Table:    rel.Table,
		Outgoing: make([]outgoingRow, 0, len(rel.Outgoing)),
		Incoming: make([]incomingRow, 0, len(rel.Incoming)),
	}
	for _, e := range rel.Outgoing {
		doc.Outgoing = append(doc.Outgoing, outgoingRow{
			Constraint:       e.Constraint,
			Fields:           e.Fields,
			ReferencesTable:  e.Target,
			ReferencesFields: e.TargetFields,
		})
	}
	for _, e := range rel.Incoming {
		doc.Incoming = append(doc.Incoming, incomingRow{
			Table:            e.Source,
			Constraint:       e.Constraint,
			Fields:           e.SourceFields,
			ReferencesFields: e.Fields,
		})
	}
	return f.encode(doc)
}

// Search writes a grouped object for SearchAll and a flat list otherwise
func (f *StructuredFormatter) Search(_ string, kind schema.SearchKind, res schema.SearchResults) error {
	switch kind {
	case schema.SearchTables:
		return f.encode(orEmpty(res.Tables))
	case schema.SearchFields:
		return f.encode(orEmpty(res.Fields))
	case schema.SearchRelationships:
		return f.encode(orEmpty(res.Relationships))
	default:
		return f.encode(schema.SearchResults{
			Tables:        orEmpty(res.Tables),
			Fields:        orEmpty(res.Fields),
			Relationships: orEmpty(res.Relationships),
		})
	}
}

func (f *StructuredFormatter) Compare(res *diff.Result) error {
	return f.encode(res)
}

func (f *StructuredFormatter) Fields(fields []schema.TableField) error {
	rows := make([]fieldRow, 0, len(fields))
	for _, tf := range fields {
		rows = append(rows, fieldRow{
			Table:       tf.Table,
			Field:       tf.Name,
			DataType:    tf.TypeName,
			Length:      tf.Length,
			NotNull:     !tf.Nullable,
			Description: tf.Description,
		})
	}
	return f.encode(rows)
}

func (f *StructuredFormatter) Constraints(constraints []schema.TableConstraint) error {
	rows := make([]constraintRow, 0, len(constraints))
	for _, tc := range constraints {
		rows = append(rows, constraintRow{
			Table:        tc.Table,
			Name:         tc.Name,
			Type:         constraintType(tc.Constraint),
			Fields:       orEmpty(tc.Fields),
			TargetTable:  tc.TargetTable,
			TargetFields: orEmpty(tc.TargetFields),
		})
	}
	return f.encode(rows)
}

func (f *StructuredFormatter) Stats(s schema.Stats) error {
	s.DataTypes = orEmpty(s.DataTypes)
	return f.encode(s)
}
