package schema

import (
	"fmt"
	"strings"
)

// Family identifies the application family a schema belongs to
type Family string

const (
	FamilyEPPM Family = "eppm"
	FamilyPPM  Family = "ppm"
)

// ParseFamily parses a family label case-insensitively
func ParseFamily(s string) (Family, error) {
	switch Family(strings.ToLower(strings.TrimSpace(s))) {
	case FamilyEPPM:
		return FamilyEPPM, nil
	case FamilyPPM:
		return FamilyPPM, nil
	default:
		return "", fmt.Errorf("unknown application family: %q (must be eppm or ppm)", s)
	}
}

// DisplayName returns the upper-case label used in listings
func (f Family) DisplayName() string {
	return strings.ToUpper(string(f))
}

// DataType is the normalized category of a field's declared type
type DataType int

const (
	DataTypeOther DataType = iota
	DataTypeString
	DataTypeInteger
	DataTypeDouble
	DataTypeDate
)

var dataTypeNames = map[DataType]string{
	DataTypeOther:   "other",
	DataTypeString:  "string",
	DataTypeInteger: "integer",
	DataTypeDouble:  "double",
	DataTypeDate:    "date",
}

// declared type keyword -> category; anything unlisted is DataTypeOther
var dataTypeKeywords = map[string]DataType{
	"string":    DataTypeString,
	"varchar":   DataTypeString,
	"varchar2":  DataTypeString,
	"nvarchar":  DataTypeString,
	"nvarchar2": DataTypeString,
	"char":      DataTypeString,
	"nchar":     DataTypeString,
	"character": DataTypeString,
	"text":      DataTypeString,
	"integer":   DataTypeInteger,
	"int":       DataTypeInteger,
	"int2":      DataTypeInteger,
	"int4":      DataTypeInteger,
	"int8":      DataTypeInteger,
	"smallint":  DataTypeInteger,
	"bigint":    DataTypeInteger,
	"tinyint":   DataTypeInteger,
	"mediumint": DataTypeInteger,
	"double":    DataTypeDouble,
	"float":     DataTypeDouble,
	"real":      DataTypeDouble,
	"numeric":   DataTypeDouble,
	"decimal":   DataTypeDouble,
	"number":    DataTypeDouble,
	"date":      DataTypeDate,
	"datetime":  DataTypeDate,
	"timestamp": DataTypeDate,
	"time":      DataTypeDate,
}

// ParseDataType classifies a declared type name such as "STRING",
// "character varying" or "decimal(10,2)"
func ParseDataType(declared string) DataType {
	word := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexAny(word, " ("); i >= 0 {
		word = word[:i]
	}
	if dt, ok := dataTypeKeywords[word]; ok {
		return dt
	}
	return DataTypeOther
}

func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return dataTypeNames[DataTypeOther]
}

// MarshalText renders the category name in JSON and YAML output
func (d DataType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText reads a category name written by MarshalText
func (d *DataType) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for dt, n := range dataTypeNames {
		if n == name {
			*d = dt
			return nil
		}
	}
	return fmt.Errorf("unknown data type: %q", text)
}

// ConstraintKind distinguishes primary keys, foreign keys and everything else
type ConstraintKind int

const (
	ConstraintOther ConstraintKind = iota
	ConstraintPrimaryKey
	ConstraintForeignKey
)

// ParseConstraintKind maps a declared constraint type to its kind
func ParseConstraintKind(tag string) ConstraintKind {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "PRIMARY", "PRIMARY KEY", "PK":
		return ConstraintPrimaryKey
	case "FOREIGN", "FOREIGN KEY", "FK":
		return ConstraintForeignKey
	default:
		return ConstraintOther
	}
}

// MarshalText renders the kind name in JSON and YAML output
func (k ConstraintKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText reads a kind name written by MarshalText
func (k *ConstraintKind) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "PRIMARY":
		*k = ConstraintPrimaryKey
	case "FOREIGN":
		*k = ConstraintForeignKey
	case "OTHER":
		*k = ConstraintOther
	default:
		return fmt.Errorf("unknown constraint kind: %q", text)
	}
	return nil
}

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintPrimaryKey:
		return "PRIMARY"
	case ConstraintForeignKey:
		return "FOREIGN"
	default:
		return "OTHER"
	}
}

// Field represents a table column
type Field struct {
	Name        string   `json:"name" yaml:"name"`
	Type        DataType `json:"type" yaml:"type"`
	TypeName    string   `json:"datatype" yaml:"datatype"` // declared type, as read
	Length      int      `json:"length" yaml:"length"`     // character length, or precision when no length is declared
	Precision   int      `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale       int      `json:"scale,omitempty" yaml:"scale,omitempty"`
	Nullable    bool     `json:"nullable" yaml:"nullable"`
	Default     string   `json:"default,omitempty" yaml:"default,omitempty"`
	Identity    bool     `json:"identity,omitempty" yaml:"identity,omitempty"`
	Description string   `json:"description" yaml:"description"`
}

// Index represents a table index. Field order is the key order.
type Index struct {
	Name       string   `json:"name" yaml:"name"`
	Fields     []string `json:"fields" yaml:"fields"`
	Unique     bool     `json:"unique" yaml:"unique"`
	Tablespace string   `json:"tablespace,omitempty" yaml:"tablespace,omitempty"`
}

// Constraint represents a primary key, foreign key or other declared constraint
type Constraint struct {
	Name         string         `json:"name" yaml:"name"`
	Kind         ConstraintKind `json:"kind" yaml:"kind"`
	Tag          string         `json:"type" yaml:"type"` // declared type, e.g. "PRIMARY" or "UNIQUE"
	Fields       []string       `json:"fields" yaml:"fields"`
	TargetTable  string         `json:"target_table,omitempty" yaml:"target_table,omitempty"`
	TargetFields []string       `json:"target_fields,omitempty" yaml:"target_fields,omitempty"`
	DeleteRule   string         `json:"delete_rule,omitempty" yaml:"delete_rule,omitempty"`
}

// Identity returns the structural identity of the constraint: its variant tag,
// its ordered field list and, for foreign keys, its target. The name is not part
// of the identity.
func (c Constraint) Identity() string {
	var b strings.Builder
	b.WriteString(c.tagOrKind())
	b.WriteString("(")
	b.WriteString(strings.Join(c.Fields, ","))
	b.WriteString(")")
	if c.Kind == ConstraintForeignKey {
		b.WriteString("->")
		b.WriteString(c.TargetTable)
		b.WriteString("(")
		b.WriteString(strings.Join(c.TargetFields, ","))
		b.WriteString(")")
	}
	return b.String()
}

func (c Constraint) tagOrKind() string {
	if c.Kind == ConstraintOther && c.Tag != "" {
		return strings.ToUpper(c.Tag)
	}
	return c.Kind.String()
}

// Trigger represents a trigger declared on a table
type Trigger struct {
	Name        string `json:"name" yaml:"name"`
	Set         string `json:"set" yaml:"set"`
	Target      string `json:"target" yaml:"target"`
	Description string `json:"description" yaml:"description"`
}

// Table represents a schema table. Its slices are owned by the Model and
// must not be modified by callers.
type Table struct {
	Name        string
	Title       string
	Description string
	Tablespace  string
	Type        string
	Ordinal     string
	Fields      []Field
	Indexes     []Index
	Constraints []Constraint
	Triggers    []Trigger

	fieldPos map[string]int // folded field name -> position in Fields
}

// Field looks a field up by name, case-insensitively
func (t *Table) Field(name string) (*Field, bool) {
	i, ok := t.fieldPos[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return &t.Fields[i], true
}

// HasField reports whether the table declares the named field
func (t *Table) HasField(name string) bool {
	_, ok := t.fieldPos[strings.ToLower(name)]
	return ok
}

// FieldNames returns field names in declaration order
func (t *Table) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// PrimaryKey returns the fields of the first primary key constraint, if any
func (t *Table) PrimaryKey() []string {
	for _, c := range t.Constraints {
		if c.Kind == ConstraintPrimaryKey {
			return c.Fields
		}
	}
	return nil
}

// ForeignKeys returns the table's foreign key constraints in declaration order
func (t *Table) ForeignKeys() []Constraint {
	var fks []Constraint
	for _, c := range t.Constraints {
		if c.Kind == ConstraintForeignKey {
			fks = append(fks, c)
		}
	}
	return fks
}
