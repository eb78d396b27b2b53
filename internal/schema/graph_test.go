package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphReferences(t *testing.T) {
	m := mustModel(t, sampleRaw())
	g := m.Graph()

	assert.Empty(t, g.Issues())
	assert.NoError(t, g.Err())

	refs := g.References("TASK")
	require.Len(t, refs, 2)
	assert.Equal(t, ForwardEdge{
		Source:       "TASK",
		Constraint:   "fk_task_proj",
		Fields:       []string{"proj_id"},
		Target:       "PROJECT",
		TargetFields: []string{"proj_id"},
	}, refs[0])
	assert.Equal(t, "PROJWBS", refs[1].Target)

	assert.Empty(t, g.References("PROJECT"))
	assert.Empty(t, g.References("NO_SUCH_TABLE"))
	assert.Empty(t, g.ReferencedBy("NO_SUCH_TABLE"))
}

func TestGraphEdgesAreSymmetric(t *testing.T) {
	m := mustModel(t, sampleRaw())
	g := m.Graph()

	for _, table := range m.Tables() {
		for _, fwd := range g.References(table.Name) {
			assert.Contains(t, g.ReferencedBy(fwd.Target), BackwardEdge{
				Target:       fwd.Target,
				Constraint:   fwd.Constraint,
				Source:       fwd.Source,
				SourceFields: fwd.Fields,
				Fields:       fwd.TargetFields,
			})
		}
	}
}

func TestGraphReferencedByOrder(t *testing.T) {
	m := mustModel(t, &RawSchema{Tables: []RawTable{
		{
			Name:   "zeta",
			Fields: []RawField{field("proj_id", "INTEGER")},
			Constraints: []RawConstraint{
				fk("fk_zeta", []string{"proj_id"}, "PROJECT", []string{"proj_id"}),
			},
		},
		{
			Name:   "TASK",
			Fields: []RawField{field("proj_id", "INTEGER"), field("alt_proj_id", "INTEGER")},
			Constraints: []RawConstraint{
				fk("fk_task_2", []string{"alt_proj_id"}, "PROJECT", []string{"proj_id"}),
				fk("fk_task_1", []string{"proj_id"}, "PROJECT", []string{"proj_id"}),
			},
		},
		{Name: "PROJECT", Fields: []RawField{field("proj_id", "INTEGER")}},
		{
			Name:   "alpha",
			Fields: []RawField{field("proj_id", "INTEGER")},
			Constraints: []RawConstraint{
				fk("fk_alpha", []string{"proj_id"}, "PROJECT", []string{"proj_id"}),
			},
		},
	}})

	var got []string
	for _, e := range m.Graph().ReferencedBy("PROJECT") {
		got = append(got, e.Source+"/"+e.Constraint)
	}
	assert.Equal(t, []string{"alpha/fk_alpha", "TASK/fk_task_2", "TASK/fk_task_1", "zeta/fk_zeta"}, got)
}

func TestGraphSelfReference(t *testing.T) {
	g := mustModel(t, sampleRaw()).Graph()

	var selfRefs int
	for _, e := range g.ReferencedBy("PROJWBS") {
		if e.Source == "PROJWBS" {
			selfRefs++
			assert.Equal(t, "fk_projwbs_parent", e.Constraint)
			assert.Equal(t, []string{"parent_wbs_id"}, e.SourceFields)
			assert.Equal(t, []string{"wbs_id"}, e.Fields)
		}
	}
	assert.Equal(t, 1, selfRefs)
}

func TestGraphDanglingReference(t *testing.T) {
	m := mustModel(t, &RawSchema{Tables: []RawTable{
		{
			Name:   "TASK",
			Fields: []RawField{field("task_id", "INTEGER"), field("proj_id", "INTEGER"), field("clndr_id", "INTEGER")},
			Constraints: []RawConstraint{
				fk("fk_task_clndr", []string{"clndr_id"}, "CALENDAR", []string{"clndr_id"}),
				fk("fk_task_proj", []string{"proj_id"}, "PROJECT", []string{"proj_id"}),
			},
		},
		{Name: "PROJECT", Fields: []RawField{field("proj_id", "INTEGER")}},
	}})
	g := m.Graph()

	issues := g.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, &IntegrityError{
		Table:      "TASK",
		Constraint: "fk_task_clndr",
		Fields:     []string{"clndr_id"},
		Target:     "CALENDAR",
	}, issues[0])
	assert.ErrorContains(t, g.Err(), "references missing table CALENDAR")

	refs := g.References("TASK")
	require.Len(t, refs, 1)
	assert.Equal(t, "PROJECT", refs[0].Target)
	assert.Empty(t, g.ReferencedBy("CALENDAR"))
}

func TestGraphCollectsEveryDanglingReference(t *testing.T) {
	m := mustModel(t, &RawSchema{Tables: []RawTable{{
		Name:   "TASK",
		Fields: []RawField{field("a", "INTEGER"), field("b", "INTEGER")},
		Constraints: []RawConstraint{
			fk("fk_a", []string{"a"}, "MISSING_A", []string{"a"}),
			fk("fk_b", []string{"b"}, "MISSING_B", []string{"b"}),
		},
	}}})

	issues := m.Graph().Issues()
	require.Len(t, issues, 2)
	assert.Equal(t, "MISSING_A", issues[0].Target)
	assert.Equal(t, "MISSING_B", issues[1].Target)
}

func TestGraphIsMemoized(t *testing.T) {
	m := mustModel(t, sampleRaw())
	assert.Same(t, m.Graph(), m.Graph())
	assert.Same(t, m.Index(), m.Index())
}

func TestGraphTargetLookupIsExact(t *testing.T) {
	m := mustModel(t, &RawSchema{Tables: []RawTable{
		{
			Name:        "TASK",
			Fields:      []RawField{field("proj_id", "INTEGER")},
			Constraints: []RawConstraint{fk("fk_task_proj", []string{"proj_id"}, "project", []string{"proj_id"})},
		},
		{Name: "PROJECT", Fields: []RawField{field("proj_id", "INTEGER")}},
	}})

	g := m.Graph()
	assert.Len(t, g.Issues(), 1)
	assert.Empty(t, g.References("TASK"))
}
