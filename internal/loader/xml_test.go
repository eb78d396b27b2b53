package loader

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/p6schema/internal/schema"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<SCHEMA VERSION="24.12" DBTYPE="ORACLE" BUILD_VERSION_ID="2412.0000.0000.0006" MIN_PRO_VERSION="24.12">
  <TABLE NAME="PROJECT" DESC="Projects" TITLE="Project" TABLESPACE="PMDB_DAT1" ORDINAL="10">
    <FIELD NAME="proj_id" DATATYPE="INTEGER" DATAPRECISION="10" NOTNULL="Y" IDCOLUMN="Y"/>
    <FIELD NAME="proj_short_name" DATATYPE="STRING" CHARLENGTH="40" NOTNULL="Y" DESC="Project ID"/>
    <FIELD NAME="clndr_id" DATATYPE="INTEGER"/>
    <INDEX NAME="ndx_project_name" FIELD="proj_short_name, proj_id" UNIQUENESS="UNIQUE" TABLESPACE="PMDB_NDX1"/>
    <CONSTRAINT NAME="pk_project" TYPE="PRIMARY" FIELDS="proj_id"/>
    <CONSTRAINT NAME="fk_project_clndr" TYPE="FOREIGN" FIELDS="clndr_id" TARGETTABLE="CALENDAR" TARGETFIELDS="clndr_id" DELETERULE="SET NULL"/>
    <TRIGGER NAME="prj_upd" SET="UPDATE" TARGET="PROJECT" DESC="audit"/>
  </TABLE>
  <TABLE NAME="CALENDAR">
    <FIELD NAME="clndr_id" DATATYPE="INTEGER" NOTNULL="N"/>
  </TABLE>
</SCHEMA>`

func TestReadXML(t *testing.T) {
	raw, err := ReadXML(strings.NewReader(sampleXML), "sample.xml")
	require.NoError(t, err)

	assert.Equal(t, "24.12", raw.Version)
	assert.Equal(t, "ORACLE", raw.DBType)
	assert.Equal(t, "2412.0000.0000.0006", raw.Build)
	assert.Equal(t, "24.12", raw.MinProVersion)
	assert.Equal(t, "sample.xml", raw.Source)
	require.Len(t, raw.Tables, 2)

	project := raw.Tables[0]
	assert.Equal(t, "PROJECT", project.Name)
	assert.Equal(t, "Project", project.Title)
	assert.Equal(t, "NORMAL", project.Type)
	assert.Equal(t, "PMDB_DAT1", project.Tablespace)

	require.Len(t, project.Fields, 3)
	assert.Equal(t, schema.RawField{Name: "proj_id", DataType: "INTEGER", Precision: "10", NotNull: true, Identity: true}, project.Fields[0])
	assert.Equal(t, "40", project.Fields[1].CharLength)
	assert.False(t, project.Fields[2].NotNull)

	require.Len(t, project.Indexes, 1)
	assert.Equal(t, schema.RawIndex{
		Name:       "ndx_project_name",
		Fields:     []string{"proj_short_name", "proj_id"},
		Unique:     true,
		Tablespace: "PMDB_NDX1",
	}, project.Indexes[0])

	require.Len(t, project.Constraints, 2)
	assert.Equal(t, schema.RawConstraint{
		Name:         "fk_project_clndr",
		Type:         "FOREIGN",
		Fields:       []string{"clndr_id"},
		TargetTable:  "CALENDAR",
		TargetFields: []string{"clndr_id"},
		DeleteRule:   "SET NULL",
	}, project.Constraints[1])

	require.Len(t, project.Triggers, 1)
	assert.Equal(t, "UPDATE", project.Triggers[0].Set)
}

func TestReadXMLBuildsModel(t *testing.T) {
	raw, err := ReadXML(strings.NewReader(sampleXML), "sample.xml")
	require.NoError(t, err)

	m, err := schema.NewModel(raw)
	require.NoError(t, err)
	assert.Empty(t, m.Graph().Issues())
	assert.Len(t, m.Graph().ReferencedBy("CALENDAR"), 1)
}

func TestReadXMLMalformed(t *testing.T) {
	_, err := ReadXML(strings.NewReader("<SCHEMA><TABLE"), "broken.xml")
	assert.ErrorContains(t, err, "failed to parse broken.xml")
}

func TestLoadFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "schemas/ppm_23_04_schema.xml", []byte(sampleXML), 0o644))

	raw, err := LoadFile(fsys, "schemas/ppm_23_04_schema.xml")
	require.NoError(t, err)
	assert.Equal(t, schema.FamilyPPM, raw.Family)
	assert.Equal(t, "schemas/ppm_23_04_schema.xml", raw.Source)

	_, err = LoadFile(fsys, "schemas/missing.xml")
	assert.ErrorContains(t, err, "failed to open schema file")
}

func TestFamilyFromFileName(t *testing.T) {
	assert.Equal(t, schema.FamilyEPPM, FamilyFromFileName("/x/pmSchema.xml"))
	assert.Equal(t, schema.FamilyPPM, FamilyFromFileName("/x/ppmSchema.xml"))
	assert.Equal(t, schema.FamilyEPPM, FamilyFromFileName("eppm_24_12_schema.xml"))
	assert.Equal(t, schema.FamilyPPM, FamilyFromFileName("PPM_23_04_schema.xml"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}
