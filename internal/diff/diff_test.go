package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/p6schema/internal/schema"
)

func model(t *testing.T, version string, tables ...schema.RawTable) *schema.Model {
	t.Helper()
	m, err := schema.NewModel(&schema.RawSchema{Family: schema.FamilyEPPM, Version: version, Tables: tables})
	require.NoError(t, err)
	return m
}

func fields(names ...string) []schema.RawField {
	out := make([]schema.RawField, len(names))
	for i, n := range names {
		out[i] = schema.RawField{Name: n, DataType: "STRING", CharLength: "40"}
	}
	return out
}

func fullModel(t *testing.T) *schema.Model {
	return model(t, "24.12",
		schema.RawTable{
			Name:    "PROJECT",
			Fields:  fields("proj_id", "proj_name"),
			Indexes: []schema.RawIndex{{Name: "ndx_project_name", Fields: []string{"proj_name"}}},
			Constraints: []schema.RawConstraint{
				{Name: "pk_project", Type: "PRIMARY", Fields: []string{"proj_id"}},
			},
		},
		schema.RawTable{
			Name:   "TASK",
			Fields: fields("task_id", "proj_id"),
			Constraints: []schema.RawConstraint{
				{Name: "fk_task_proj", Type: "FOREIGN", Fields: []string{"proj_id"}, TargetTable: "PROJECT", TargetFields: []string{"proj_id"}},
			},
		},
	)
}

func TestCompareAddedTableAndField(t *testing.T) {
	m1 := model(t, "23.12", schema.RawTable{Name: "PROJECT", Fields: fields("proj_id", "proj_name")})
	m2 := model(t, "24.12",
		schema.RawTable{Name: "PROJECT", Fields: fields("proj_id", "proj_name", "remote_client_ip")},
		schema.RawTable{Name: "BODEFLABELS", Fields: fields("label_id")},
	)

	res := Compare(m1, m2)

	assert.Equal(t, []string{"BODEFLABELS"}, res.AddedTables)
	assert.Empty(t, res.RemovedTables)
	require.Len(t, res.Modified, 1)

	project := res.Modified[0]
	assert.Equal(t, "PROJECT", project.Name)
	assert.Equal(t, []string{"remote_client_ip"}, project.AddedFields())
	assert.Empty(t, project.RemovedFields())
	assert.Empty(t, project.Fields.Changed)

	assert.Equal(t, "23.12", res.Left.Version)
	assert.Equal(t, 2, res.Right.Tables)
}

func TestCompareWithItselfIsEmpty(t *testing.T) {
	m := fullModel(t)

	res := Compare(m, m)
	assert.True(t, res.Empty())
	assert.Empty(t, res.AddedTables)
	assert.Empty(t, res.RemovedTables)
	assert.Empty(t, res.Modified)
}

func TestCompareIsAntiSymmetric(t *testing.T) {
	m1 := model(t, "23.12",
		schema.RawTable{Name: "PROJECT", Fields: fields("proj_id", "old_field")},
		schema.RawTable{Name: "LEGACY", Fields: fields("id")},
	)
	m2 := model(t, "24.12",
		schema.RawTable{Name: "PROJECT", Fields: fields("proj_id", "new_field")},
		schema.RawTable{Name: "BODEFLABELS", Fields: fields("id")},
	)

	forward := Compare(m1, m2)
	backward := Compare(m2, m1)

	assert.Equal(t, forward.AddedTables, backward.RemovedTables)
	assert.Equal(t, forward.RemovedTables, backward.AddedTables)

	fwd, ok := forward.Modification("PROJECT")
	require.True(t, ok)
	bwd, ok := backward.Modification("PROJECT")
	require.True(t, ok)
	assert.Equal(t, fwd.AddedFields(), bwd.RemovedFields())
	assert.Equal(t, fwd.RemovedFields(), bwd.AddedFields())
	assert.Equal(t, []string{"new_field"}, fwd.AddedFields())
	assert.Equal(t, []string{"old_field"}, fwd.RemovedFields())
}

func TestCompareChangedField(t *testing.T) {
	m1 := model(t, "1", schema.RawTable{Name: "PROJECT", Fields: []schema.RawField{
		{Name: "proj_name", DataType: "STRING", CharLength: "40", Description: "Name"},
		{Name: "proj_id", DataType: "INTEGER"},
	}})
	m2 := model(t, "2", schema.RawTable{Name: "PROJECT", Fields: []schema.RawField{
		{Name: "proj_name", DataType: "STRING", CharLength: "100", NotNull: true, Description: "Name"},
		{Name: "proj_id", DataType: "DOUBLE"},
	}})

	res := Compare(m1, m2)
	td, ok := res.Modification("PROJECT")
	require.True(t, ok)

	assert.Empty(t, td.AddedFields())
	assert.Empty(t, td.RemovedFields())
	require.Len(t, td.Fields.Changed, 2)
	assert.Equal(t, "proj_name", td.Fields.Changed[0].Name)
	assert.Equal(t, []string{"length", "nullable"}, td.Fields.Changed[0].Attributes)
	assert.Equal(t, 40, td.Fields.Changed[0].Left.Length)
	assert.Equal(t, 100, td.Fields.Changed[0].Right.Length)
	assert.Equal(t, []string{"type"}, td.Fields.Changed[1].Attributes)
}

func TestCompareIsCaseSensitive(t *testing.T) {
	m1 := model(t, "1", schema.RawTable{Name: "PROJECT", Fields: fields("proj_id")})
	m2 := model(t, "2", schema.RawTable{Name: "project", Fields: fields("PROJ_ID")})

	res := Compare(m1, m2)
	assert.Equal(t, []string{"project"}, res.AddedTables)
	assert.Equal(t, []string{"PROJECT"}, res.RemovedTables)

	m3 := model(t, "3", schema.RawTable{Name: "PROJECT", Fields: fields("PROJ_ID")})
	td, ok := Compare(m1, m3).Modification("PROJECT")
	require.True(t, ok)
	assert.Equal(t, []string{"PROJ_ID"}, td.AddedFields())
	assert.Equal(t, []string{"proj_id"}, td.RemovedFields())
}

func TestCompareIndexes(t *testing.T) {
	m1 := model(t, "1", schema.RawTable{
		Name:   "TASK",
		Fields: fields("task_id", "proj_id"),
		Indexes: []schema.RawIndex{
			{Name: "ndx_a", Fields: []string{"proj_id", "task_id"}},
			{Name: "ndx_gone", Fields: []string{"task_id"}},
		},
	})
	m2 := model(t, "2", schema.RawTable{
		Name:   "TASK",
		Fields: fields("task_id", "proj_id"),
		Indexes: []schema.RawIndex{
			{Name: "ndx_a", Fields: []string{"task_id", "proj_id"}, Unique: true},
			{Name: "ndx_new", Fields: []string{"proj_id"}},
		},
	})

	td, ok := Compare(m1, m2).Modification("TASK")
	require.True(t, ok)

	require.Len(t, td.Indexes.Added, 1)
	assert.Equal(t, "ndx_new", td.Indexes.Added[0].Name)
	require.Len(t, td.Indexes.Removed, 1)
	assert.Equal(t, "ndx_gone", td.Indexes.Removed[0].Name)
	require.Len(t, td.Indexes.Changed, 1)
	assert.Equal(t, []string{"fields", "unique"}, td.Indexes.Changed[0].Attributes)
	assert.True(t, td.Fields.Empty())
}

func TestCompareConstraintsByIdentity(t *testing.T) {
	base := func(version string, c schema.RawConstraint) *schema.Model {
		return model(t, version,
			schema.RawTable{Name: "PROJECT", Fields: fields("proj_id", "alt_id")},
			schema.RawTable{Name: "TASK", Fields: fields("proj_id", "alt_id"), Constraints: []schema.RawConstraint{c}},
		)
	}
	fk := schema.RawConstraint{Name: "fk_task_proj", Type: "FOREIGN", Fields: []string{"proj_id", "alt_id"}, TargetTable: "PROJECT", TargetFields: []string{"proj_id", "alt_id"}}

	renamed := fk
	renamed.Name = "fk_task_project"
	_, changed := Compare(base("1", fk), base("2", renamed)).Modification("TASK")
	assert.False(t, changed, "a rename alone does not change the constraint identity")

	reordered := fk
	reordered.Fields = []string{"alt_id", "proj_id"}
	td, ok := Compare(base("1", fk), base("2", reordered)).Modification("TASK")
	require.True(t, ok)
	require.Len(t, td.Constraints.Removed, 1)
	require.Len(t, td.Constraints.Added, 1)
	assert.Empty(t, td.Constraints.Changed)
	assert.Equal(t, []string{"proj_id", "alt_id"}, td.Constraints.Removed[0].Fields)
	assert.Equal(t, []string{"alt_id", "proj_id"}, td.Constraints.Added[0].Fields)

	retargeted := fk
	retargeted.TargetTable = "TASK"
	td, ok = Compare(base("1", fk), base("2", retargeted)).Modification("TASK")
	require.True(t, ok)
	assert.Len(t, td.Constraints.Removed, 1)
	assert.Len(t, td.Constraints.Added, 1)
}

func TestCompareSortsTables(t *testing.T) {
	m1 := model(t, "1", schema.RawTable{Name: "ZED"}, schema.RawTable{Name: "ALPHA"})
	m2 := model(t, "2", schema.RawTable{Name: "MIKE"}, schema.RawTable{Name: "BRAVO"})

	res := Compare(m1, m2)
	assert.Equal(t, []string{"BRAVO", "MIKE"}, res.AddedTables)
	assert.Equal(t, []string{"ALPHA", "ZED"}, res.RemovedTables)
}
