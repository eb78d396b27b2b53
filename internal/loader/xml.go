// Package loader reads P6 schema description files into flat raw records.
package loader

import (
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tordrt/p6schema/internal/schema"
)

type xmlSchema struct {
	Version       string     `xml:"VERSION,attr"`
	DBType        string     `xml:"DBTYPE,attr"`
	BuildVersion  string     `xml:"BUILD_VERSION_ID,attr"`
	MinProVersion string     `xml:"MIN_PRO_VERSION,attr"`
	Tables        []xmlTable `xml:"TABLE"`
}

type xmlTable struct {
	Name        string          `xml:"NAME,attr"`
	Description string          `xml:"DESC,attr"`
	Title       string          `xml:"TITLE,attr"`
	TableType   string          `xml:"TABLETYPE,attr"`
	Tablespace  string          `xml:"TABLESPACE,attr"`
	Ordinal     string          `xml:"ORDINAL,attr"`
	Fields      []xmlField      `xml:"FIELD"`
	Indexes     []xmlIndex      `xml:"INDEX"`
	Constraints []xmlConstraint `xml:"CONSTRAINT"`
	Triggers    []xmlTrigger    `xml:"TRIGGER"`
}

type xmlField struct {
	Name          string `xml:"NAME,attr"`
	DataType      string `xml:"DATATYPE,attr"`
	CharLength    string `xml:"CHARLENGTH,attr"`
	DataPrecision string `xml:"DATAPRECISION,attr"`
	DataScale     string `xml:"DATASCALE,attr"`
	NotNull       string `xml:"NOTNULL,attr"`
	Default       string `xml:"DEFAULT,attr"`
	Description   string `xml:"DESC,attr"`
	IDColumn      string `xml:"IDCOLUMN,attr"`
}

type xmlIndex struct {
	Name       string `xml:"NAME,attr"`
	Fields     string `xml:"FIELD,attr"`
	Uniqueness string `xml:"UNIQUENESS,attr"`
	Tablespace string `xml:"TABLESPACE,attr"`
}

type xmlConstraint struct {
	Name         string `xml:"NAME,attr"`
	Type         string `xml:"TYPE,attr"`
	Fields       string `xml:"FIELDS,attr"`
	TargetTable  string `xml:"TARGETTABLE,attr"`
	TargetFields string `xml:"TARGETFIELDS,attr"`
	DeleteRule   string `xml:"DELETERULE,attr"`
}

type xmlTrigger struct {
	Name        string `xml:"NAME,attr"`
	Set         string `xml:"SET,attr"`
	Target      string `xml:"TARGET,attr"`
	Description string `xml:"DESC,attr"`
}

// ReadXML decodes a schema description document. source is recorded on the
// result for display only.
func ReadXML(r io.Reader, source string) (*schema.RawSchema, error) {
	var doc xmlSchema
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}

	raw := &schema.RawSchema{
		Version:       doc.Version,
		Build:         doc.BuildVersion,
		MinProVersion: doc.MinProVersion,
		DBType:        doc.DBType,
		Source:        source,
		Tables:        make([]schema.RawTable, 0, len(doc.Tables)),
	}
	for _, t := range doc.Tables {
		raw.Tables = append(raw.Tables, convertTable(t))
	}
	return raw, nil
}

// LoadFile reads the schema file at path. The family is inferred from the file
// name: names starting with "ppm" are PPM, everything else EPPM.
func LoadFile(fsys afero.Fs, path string) (*schema.RawSchema, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer func() { _ = f.Close() }()

	raw, err := ReadXML(f, path)
	if err != nil {
		return nil, err
	}
	raw.Family = FamilyFromFileName(path)
	return raw, nil
}

// FamilyFromFileName infers the application family from a schema file name
func FamilyFromFileName(path string) schema.Family {
	if strings.HasPrefix(strings.ToLower(filepath.Base(path)), "ppm") {
		return schema.FamilyPPM
	}
	return schema.FamilyEPPM
}

func convertTable(t xmlTable) schema.RawTable {
	rt := schema.RawTable{
		Name:        t.Name,
		Title:       t.Title,
		Description: t.Description,
		Tablespace:  t.Tablespace,
		Type:        withDefault(t.TableType, "NORMAL"),
		Ordinal:     t.Ordinal,
	}

	for _, f := range t.Fields {
		rt.Fields = append(rt.Fields, schema.RawField{
			Name:        f.Name,
			DataType:    f.DataType,
			CharLength:  f.CharLength,
			Precision:   f.DataPrecision,
			Scale:       f.DataScale,
			NotNull:     isYes(f.NotNull),
			Default:     f.Default,
			Description: f.Description,
			Identity:    isYes(f.IDColumn),
		})
	}

	for _, i := range t.Indexes {
		rt.Indexes = append(rt.Indexes, schema.RawIndex{
			Name:       i.Name,
			Fields:     splitList(i.Fields),
			Unique:     strings.EqualFold(strings.TrimSpace(i.Uniqueness), "UNIQUE"),
			Tablespace: i.Tablespace,
		})
	}

	for _, c := range t.Constraints {
		rt.Constraints = append(rt.Constraints, schema.RawConstraint{
			Name:         c.Name,
			Type:         c.Type,
			Fields:       splitList(c.Fields),
			TargetTable:  strings.TrimSpace(c.TargetTable),
			TargetFields: splitList(c.TargetFields),
			DeleteRule:   c.DeleteRule,
		})
	}

	for _, tr := range t.Triggers {
		rt.Triggers = append(rt.Triggers, schema.RawTrigger{
			Name:        tr.Name,
			Set:         tr.Set,
			Target:      tr.Target,
			Description: tr.Description,
		})
	}

	return rt
}

// splitList splits a comma-separated attribute, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isYes(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "Y")
}

func withDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
