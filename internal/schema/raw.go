package schema

// RawSchema is the flat record set produced by a loader, before validation.
// Numeric attributes are kept as the strings the source declared.
type RawSchema struct {
	Family        Family
	Version       string
	Build         string
	MinProVersion string
	DBType        string
	Source        string
	Tables        []RawTable
}

// RawTable is one table record with its nested field, index, constraint and
// trigger records
type RawTable struct {
	Name        string
	Title       string
	Description string
	Tablespace  string
	Type        string
	Ordinal     string
	Fields      []RawField
	Indexes     []RawIndex
	Constraints []RawConstraint
	Triggers    []RawTrigger
}

// RawField is a field record
type RawField struct {
	Name        string
	DataType    string
	CharLength  string
	Precision   string
	Scale       string
	NotNull     bool
	Default     string
	Description string
	Identity    bool
}

// RawIndex is an index record
type RawIndex struct {
	Name       string
	Fields     []string
	Unique     bool
	Tablespace string
}

// RawConstraint is a constraint record. Type is the declared constraint type
// ("PRIMARY", "FOREIGN", ...).
type RawConstraint struct {
	Name         string
	Type         string
	Fields       []string
	TargetTable  string
	TargetFields []string
	DeleteRule   string
}

// RawTrigger is a trigger record
type RawTrigger struct {
	Name        string
	Set         string
	Target      string
	Description string
}
