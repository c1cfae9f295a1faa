package query

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_LeafPredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		q      Query
		sql    string
		args   []any
		column string
	}{
		{
			"label", Label("NP"),
			"SELECT id FROM nodes WHERE label = ? OR label LIKE ?",
			[]any{"NP", "NP-%"}, "id",
		},
		{
			"exact label", ExactLabel("N_P"),
			"SELECT id FROM nodes WHERE label = ?",
			[]any{"N_P"}, "id",
		},
		{
			"dash tag", DashTag("ACC"),
			"SELECT id FROM nodes WHERE label LIKE ? OR label LIKE ?",
			[]any{"%-ACC-%", "%-ACC"}, "id",
		},
		{
			"text", Text("dog"),
			"SELECT node_id FROM metadata WHERE key = ? AND value = ?",
			[]any{TextKey, "dog"}, "node_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rel, err := Compile(tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, rel.SQL)
			assert.Equal(t, tt.args, rel.Args)
			assert.Equal(t, tt.column, rel.Column())
		})
	}
}

func TestCompile_Closures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		q      Query
		table  string
		cond   string
		column string
	}{
		{Idoms(Label("N")), "dominance", "depth = 1", "ancestor"},
		{Doms(Label("N")), "dominance", "depth > 0", "ancestor"},
		{Sprec(Label("N")), "precedence", "distance > 0", "left"},
		{Isprec(Label("N")), "precedence", "distance = 1", "left"},
	}
	for _, tt := range tests {
		rel, err := Compile(tt.q)
		require.NoError(t, err)
		assert.Contains(t, rel.SQL, "FROM "+tt.table+" WHERE "+tt.cond, tt.q.String())
		assert.Equal(t, tt.column, rel.Column())
		assert.Equal(t, []any{"N", "N-%"}, rel.Args)
	}
}

func TestCompile_Combinators(t *testing.T) {
	t.Parallel()

	and, err := Compile(And(Label("NP"), Idoms(Text("dog"))))
	require.NoError(t, err)
	assert.Contains(t, and.SQL, " JOIN ")
	assert.Equal(t, []any{"NP", "NP-%", TextKey, "dog"}, and.Args)
	assert.Equal(t, "id", and.Column())

	or, err := Compile(Or(Text("a"), DashTag("B")))
	require.NoError(t, err)
	assert.Contains(t, or.SQL, " UNION ")
	assert.Equal(t, []any{TextKey, "a", "%-B-%", "%-B"}, or.Args)

	not, err := Compile(Not(Label("D")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(not.SQL, "SELECT id FROM nodes WHERE id NOT IN ("))
	assert.Equal(t, []any{"D", "D-%"}, not.Args)
}

func TestCompile_NestedAndUsesDistinctAliases(t *testing.T) {
	t.Parallel()
	rel, err := Compile(And(And(Label("A"), Label("B")), And(Label("C"), Label("D"))))
	require.NoError(t, err)
	for _, a := range []string{"AS t1", "AS t2", "AS t3", "AS t4", "AS t5", "AS t6"} {
		assert.Equal(t, 1, strings.Count(rel.SQL, a+" "), a)
	}
	assert.Len(t, rel.Args, 8)
}

func TestCompile_Errors(t *testing.T) {
	t.Parallel()
	re := LabelRegexp(regexp.MustCompile("^N"))
	under := Label("N_P")
	pct := DashTag("A%")
	md := HasMetadata("CASE", "dat")

	tests := []struct {
		name    string
		q       Query
		culprit Query
		want    error
	}{
		{"regexp", re, re, ErrUnsupportedInIndexMode},
		{"regexp under not", Not(Doms(re)), re, ErrUnsupportedInIndexMode},
		{"underscore", under, under, ErrIllegalPattern},
		{"percent in dash tag", Or(Label("A"), pct), pct, ErrIllegalPattern},
		{"metadata", And(Label("A"), md), md, ErrNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.q)
			require.ErrorIs(t, err, tt.want)
			var qerr *Error
			require.ErrorAs(t, err, &qerr)
			assert.Equal(t, "compile", qerr.Op)
			assert.Same(t, tt.culprit, qerr.Query)
		})
	}
}

func TestRelation_Column(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "rowid", Relation{}.Column())
	assert.Equal(t, "id", Relation{Columns: []string{"ancestor", "id"}}.Column())
	assert.Equal(t, "left", Relation{Columns: []string{"right", "left"}}.Column())

	sql, args := Relation{SQL: "SELECT node_id FROM metadata", Columns: []string{"node_id"}}.Ordered()
	assert.Equal(t, `SELECT DISTINCT "node_id" AS id FROM (SELECT node_id FROM metadata) ORDER BY id`, sql)
	assert.Nil(t, args)
}
