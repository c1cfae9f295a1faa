package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor/format"
	"github.com/jward/arbor/query"
	"github.com/jward/arbor/tree"
)

const scenarioTree = `(IP (NP (D a) (N dog)) (VBD chased) (NP-ACC (D the) (ADJ speedy) (N+N mailman)))`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func mustParse(t *testing.T, s string) *tree.Node {
	t.Helper()
	n, err := format.Parse(s)
	require.NoError(t, err)
	return n
}

func insert(t *testing.T, s *Store, trees ...string) []int64 {
	t.Helper()
	var nodes []*tree.Node
	for _, src := range trees {
		nodes = append(nodes, mustParse(t, src))
	}
	ids, err := s.InsertTrees(context.Background(), nodes)
	require.NoError(t, err)
	return ids
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"nodes", "dominance", "precedence", "metadata", "roots", "corpus_metadata", "index_info"} {
		var name string
		err := s.DB().QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_IdempotentKeepsBuildID(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.BuildID(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	require.NoError(t, s.Migrate())
	second, err := s.BuildID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNewStore_InMemory(t *testing.T) {
	t.Parallel()
	s, err := NewStore("")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate())

	ids := insert(t, s, scenarioTree)
	got, err := s.RootIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ids, got)
	assert.Empty(t, s.Path())
}

// =============================================================================
// Insertion
// =============================================================================

func TestInsertTrees_PreorderIDs(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	ids := insert(t, s, scenarioTree)
	require.Equal(t, []int64{1}, ids)

	want := []string{"IP", "NP", "D", "N", "VBD", "NP-ACC", "D", "ADJ", "N+N"}
	for i, label := range want {
		got, err := s.Label(ctx, int64(i+1))
		require.NoError(t, err)
		assert.Equal(t, label, got, "node %d", i+1)
	}
}

func TestInsertTrees_IDsContinueAcrossTransactions(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	first := insert(t, s, scenarioTree)
	second := insert(t, s, `(IP (XP x) (WP w) (ZP z))`, `(CP (C that))`)

	assert.Equal(t, []int64{1}, first)
	assert.Equal(t, []int64{10, 14}, second)

	roots, err := s.RootIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 10, 14}, roots)
}

func TestInsertTrees_AllOrNothing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.DB().Exec(`CREATE TRIGGER boom BEFORE INSERT ON nodes WHEN NEW.label = 'BOOM'
		BEGIN SELECT RAISE(ABORT, 'boom'); END`)
	require.NoError(t, err)

	good := mustParse(t, scenarioTree)
	bad := mustParse(t, `(IP (BOOM x))`)
	_, err = s.InsertTrees(ctx, []*tree.Node{good, bad})
	require.Error(t, err)

	roots, err := s.RootIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, roots)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&n))
	assert.Zero(t, n)
}

func TestInsertTrees_LeafTextUnderReservedKey(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	insert(t, s, `(NP (D a) (N dog))`)

	var text, kind string
	err := s.DB().QueryRow(`SELECT value, kind FROM metadata WHERE node_id = 3 AND key = ?`, TextKey).Scan(&text, &kind)
	require.NoError(t, err)
	assert.Equal(t, "dog", text)
	assert.Equal(t, kindString, kind)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM metadata WHERE node_id = 1`).Scan(&count))
	assert.Zero(t, count, "non-terminals carry no text row")
}

// =============================================================================
// Closure correctness
// =============================================================================

// path returns the number of parent-to-child steps from a down to b, or
// -1 when a does not dominate b.
func path(a, b *tree.Node) int {
	for d := 0; b != nil; d++ {
		if b == a {
			return d
		}
		b = b.Parent()
	}
	return -1
}

// sisterDistance returns how many positions right of a b sits, or -1.
func sisterDistance(a, b *tree.Node) int {
	if a == b {
		return 0
	}
	if a.Parent() == nil || a.Parent() != b.Parent() {
		return -1
	}
	ia, _ := a.ParentIndex()
	ib, _ := b.ParentIndex()
	if ib < ia {
		return -1
	}
	return ib - ia
}

func TestClosure_MatchesTreeStructure(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	src := `(IP (NP (D a) (N dog)) (VBD chased) (NP-ACC (D the) (ADJ speedy) (N+N mailman)) (PP (P over) (NP (D the) (N fence))))`
	root := mustParse(t, src)
	_, err := s.InsertTrees(ctx, []*tree.Node{root})
	require.NoError(t, err)

	var nodes []*tree.Node
	for n := range root.Nodes() {
		nodes = append(nodes, n)
	}
	id := func(i int) int64 { return int64(i + 1) }

	for i, a := range nodes {
		dom, err := s.Dominance(ctx, id(i))
		require.NoError(t, err)
		got := make(map[int64]int)
		for _, e := range dom {
			got[e.To] = e.Distance
		}
		prec, err := s.Precedence(ctx, id(i))
		require.NoError(t, err)
		gotPrec := make(map[int64]int)
		for _, e := range prec {
			gotPrec[e.To] = e.Distance
		}

		for j, b := range nodes {
			if d := path(a, b); d >= 0 {
				assert.Equal(t, d, got[id(j)], "dominance(%d,%d)", i+1, j+1)
			} else {
				assert.NotContains(t, got, id(j), "dominance(%d,%d)", i+1, j+1)
			}
			if d := sisterDistance(a, b); d >= 0 {
				assert.Equal(t, d, gotPrec[id(j)], "precedence(%d,%d)", i+1, j+1)
			} else {
				assert.NotContains(t, gotPrec, id(j), "precedence(%d,%d)", i+1, j+1)
			}
		}
	}
}

// =============================================================================
// Reconstitution
// =============================================================================

func TestReconstitute_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	sources := []string{
		scenarioTree,
		`( (IP-MAT (NP-SBJ-1 (PRO he)) (VBD left) (NP *T*-1) (, ,) (. .)) (ID ex,1))`,
		`(CP (C 0) (IP=2 (NP *pro*) (VB go)))`,
	}
	for _, src := range sources {
		want := mustParse(t, src)
		ids, err := s.InsertTrees(ctx, []*tree.Node{want})
		require.NoError(t, err)

		got, err := s.Reconstitute(ctx, ids[0])
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "round trip of %s:\n%s", src, format.Node(format.Penn{}, got))
	}
}

func TestReconstitute_MetadataTypesAndNesting(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	leaf, err := tree.NewLeaf("N", "dog", nil)
	require.NoError(t, err)
	leaf.Metadata().SetLemma("cafe\u0301")
	require.NoError(t, leaf.Metadata().Set("frequency", 12))
	require.NoError(t, leaf.Metadata().Set("rare", true))
	require.NoError(t, leaf.Metadata().Set("score", 0.25))
	require.NoError(t, leaf.Metadata().SetPath("GLOSS:EN", "dog"))
	require.NoError(t, leaf.Metadata().SetPath("GLOSS:DE", "Hund"))
	root, err := tree.NewNonTerminal("NP", []*tree.Node{leaf}, nil)
	require.NoError(t, err)
	root.Metadata().SetID("meta-1")

	ids, err := s.InsertTrees(ctx, []*tree.Node{root})
	require.NoError(t, err)
	got, err := s.Reconstitute(ctx, ids[0])
	require.NoError(t, err)

	require.True(t, root.Equal(got))
	md := got.Child(0).Metadata()
	freq, _ := md.Get("FREQUENCY")
	assert.Equal(t, 12, freq)
	rare, _ := md.Get("rare")
	assert.Equal(t, true, rare)
	gloss, ok := md.Get("GLOSS")
	require.True(t, ok)
	assert.Equal(t, "Hund", gloss.(*tree.Metadata).String("DE"))
	assert.Equal(t, "meta-1", got.Metadata().ID())
}

func TestReconstitute_KeepsEmptyNestedMetadata(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	root := mustParse(t, `(IP (NP (N dog)))`)
	require.NoError(t, root.Metadata().Set("EXTRA", tree.NewMetadata()))
	require.NoError(t, root.Child(0).Metadata().SetPath("ALT:EMPTY", tree.NewMetadata()))

	ids, err := s.InsertTrees(ctx, []*tree.Node{root})
	require.NoError(t, err)
	got, err := s.Reconstitute(ctx, ids[0])
	require.NoError(t, err)

	require.True(t, root.Equal(got))
	assert.Equal(t, []string{"EXTRA"}, got.Metadata().Keys())
	extra, ok := got.Metadata().Get("EXTRA")
	require.True(t, ok)
	assert.Equal(t, 0, extra.(*tree.Metadata).Len())
	alt, ok := got.Child(0).Metadata().Get("ALT")
	require.True(t, ok)
	assert.True(t, alt.(*tree.Metadata).Has("EMPTY"))
}

func TestReconstitute_LemmaEquivalence(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	composed, err := tree.NewLeaf("N", "café", nil)
	require.NoError(t, err)
	composed.Metadata().SetLemma("caf\u00e9")

	ids, err := s.InsertTrees(ctx, []*tree.Node{composed})
	require.NoError(t, err)
	got, err := s.Reconstitute(ctx, ids[0])
	require.NoError(t, err)

	decomposed, err := tree.NewLeaf("N", "café", nil)
	require.NoError(t, err)
	decomposed.Metadata().SetLemma("cafe\u0301")

	assert.True(t, got.Equal(decomposed))
	lemma, _ := got.Metadata().Lemma()
	assert.Equal(t, "cafe\u0301", lemma)
}

func TestReconstitute_SubtreeAndMissing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	insert(t, s, scenarioTree)

	got, err := s.Reconstitute(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, "(NP-ACC (D the)\n        (ADJ speedy)\n        (N+N mailman))", format.Node(format.Penn{}, got))
	assert.Nil(t, got.Parent())

	_, err = s.Reconstitute(ctx, 999)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

// =============================================================================
// Compiled queries
// =============================================================================

func selectIDs(t *testing.T, s *Store, q query.Query) []int64 {
	t.Helper()
	rel, err := query.Compile(q)
	require.NoError(t, err)
	ids, err := s.Select(context.Background(), rel, query.Kind(q))
	require.NoError(t, err)
	return ids
}

func TestSelect_Scenario(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insert(t, s, scenarioTree)

	assert.Equal(t, []int64{2, 6}, selectIDs(t, s, query.Label("NP")))
	assert.Equal(t, []int64{2}, selectIDs(t, s, query.ExactLabel("NP")))
	assert.Equal(t, []int64{6}, selectIDs(t, s, query.DashTag("ACC")))
	assert.Equal(t, []int64{6}, selectIDs(t, s, query.Idoms(query.Label("ADJ"))))
	assert.Equal(t, []int64{1, 6}, selectIDs(t, s, query.Doms(query.Label("ADJ"))))
	assert.Equal(t, []int64{4}, selectIDs(t, s, query.Text("dog")))
}

func TestSelect_LikeIsCaseSensitive(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insert(t, s, `(IP (np-x a) (NP-Y b))`)

	assert.Equal(t, []int64{3}, selectIDs(t, s, query.Label("NP")))
	assert.Equal(t, []int64{2}, selectIDs(t, s, query.Label("np")))
}

func TestMatchingRoots(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	insert(t, s, scenarioTree, `(IP (XP x) (WP w) (ZP z))`, `(NP (N cat))`)

	rel, err := query.Compile(query.Label("NP"))
	require.NoError(t, err)
	roots, err := s.MatchingRoots(ctx, rel, "label")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 14}, roots)

	owners, err := s.RootsOf(ctx, []int64{2, 15, 99})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{2: 1, 15: 14}, owners)
}

// =============================================================================
// Corpus metadata
// =============================================================================

func TestCorpusMetadata_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	md := tree.NewMetadata()
	require.NoError(t, md.Set("name", "ycoe"))
	require.NoError(t, md.Set("trees", 3))
	require.NoError(t, md.SetPath("SOURCE:URL", "https://example.org"))
	require.NoError(t, md.Set("NOTES", tree.NewMetadata()))
	require.NoError(t, s.SetCorpusMetadata(ctx, md))

	got, err := s.CorpusMetadata(ctx)
	require.NoError(t, err)
	assert.True(t, md.Equal(got))
}
