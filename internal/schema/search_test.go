package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchEmptyQueryMatchesEverything(t *testing.T) {
	m := mustModel(t, sampleRaw())
	res := m.Index().Search("", SearchAll)

	var tables []string
	for _, h := range res.Tables {
		tables = append(tables, h.Name)
	}
	assert.Equal(t, m.TableNames(), tables)

	var fields []string
	for _, h := range res.Fields {
		fields = append(fields, h.Table+"."+h.Field)
	}
	assert.Equal(t, []string{
		"TASK.task_id", "TASK.proj_id", "TASK.wbs_id", "TASK.task_name",
		"PROJECT.proj_id", "PROJECT.proj_short_name",
		"PROJWBS.wbs_id", "PROJWBS.proj_id", "PROJWBS.parent_wbs_id",
	}, fields)

	var rels []string
	for _, h := range res.Relationships {
		rels = append(rels, h.String())
	}
	assert.Equal(t, []string{
		"TASK.proj_id -> PROJECT.proj_id",
		"TASK.wbs_id -> PROJWBS.wbs_id",
		"PROJWBS.parent_wbs_id -> PROJWBS.wbs_id",
		"PROJWBS.proj_id -> PROJECT.proj_id",
	}, rels)

	assert.Equal(t, 3+9+4, res.Len())
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	idx := mustModel(t, sampleRaw()).Index()

	res := idx.Search("proj", SearchTables)
	require.Len(t, res.Tables, 2)
	assert.Equal(t, "PROJECT", res.Tables[0].Name)
	assert.Equal(t, "PROJWBS", res.Tables[1].Name)
	assert.Nil(t, res.Fields)
	assert.Nil(t, res.Relationships)

	res = idx.Search("BREAKDOWN", SearchTables)
	require.Len(t, res.Tables, 1)
	assert.Equal(t, "PROJWBS", res.Tables[0].Name)
}

func TestSearchFieldsByQualifiedName(t *testing.T) {
	idx := mustModel(t, sampleRaw()).Index()

	res := idx.Search("task.PROJ", SearchFields)
	require.Len(t, res.Fields, 1)
	assert.Equal(t, FieldHit{Table: "TASK", Field: "proj_id", Type: DataTypeInteger, TypeName: "INTEGER"}, res.Fields[0])

	res = idx.Search("wbs_id", SearchFields)
	require.Len(t, res.Fields, 3)
	assert.Equal(t, "TASK", res.Fields[0].Table)
	assert.Equal(t, "parent_wbs_id", res.Fields[2].Field)
}

func TestSearchRelationships(t *testing.T) {
	idx := mustModel(t, sampleRaw()).Index()

	res := idx.Search("-> projwbs", SearchRelationships)
	require.Len(t, res.Relationships, 2)
	assert.Equal(t, "fk_task_wbs", res.Relationships[0].Constraint)
	assert.Equal(t, "fk_projwbs_parent", res.Relationships[1].Constraint)

	res = idx.Search("FK_PROJWBS_PROJ", SearchRelationships)
	require.Len(t, res.Relationships, 1)
	assert.Equal(t, "PROJECT", res.Relationships[0].TargetTable)
}

func TestSearchKindSubset(t *testing.T) {
	idx := mustModel(t, sampleRaw()).Index()

	for _, q := range []string{"", "proj", "task", "zzz"} {
		all := idx.Search(q, SearchAll)
		first := idx.Search(q, SearchTables)
		second := idx.Search(q, SearchTables)

		assert.Equal(t, first, second, "query %q", q)
		assert.Subset(t, all.Tables, first.Tables, "query %q", q)
		assert.Equal(t, all.Fields, idx.Search(q, SearchFields).Fields, "query %q", q)
		assert.Equal(t, all.Relationships, idx.Search(q, SearchRelationships).Relationships, "query %q", q)
	}
}

func TestSearchNoMatch(t *testing.T) {
	res := mustModel(t, sampleRaw()).Index().Search("zzz", SearchAll)
	assert.Equal(t, 0, res.Len())
}

func TestSearchOmitsDanglingRelationships(t *testing.T) {
	m := mustModel(t, &RawSchema{Tables: []RawTable{{
		Name:        "TASK",
		Fields:      []RawField{field("clndr_id", "INTEGER")},
		Constraints: []RawConstraint{fk("fk_task_clndr", []string{"clndr_id"}, "CALENDAR", []string{"clndr_id"})},
	}}})

	assert.Empty(t, m.Index().Search("", SearchRelationships).Relationships)
}

func TestParseSearchKind(t *testing.T) {
	tests := []struct {
		in      string
		want    SearchKind
		wantErr bool
	}{
		{"all", SearchAll, false},
		{"", SearchAll, false},
		{"table", SearchTables, false},
		{"FIELD", SearchFields, false},
		{"rel", SearchRelationships, false},
		{"relationship", SearchRelationships, false},
		{"index", SearchAll, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSearchKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
