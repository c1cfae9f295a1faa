package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	t.Parallel()
	for _, k := range []string{"old_tag", "Old-Tag", " OLD-TAG ", "old-tag"} {
		assert.Equal(t, "OLD-TAG", NormalizeKey(k), k)
	}
}

func TestMetadata_SetGet(t *testing.T) {
	t.Parallel()
	m := NewMetadata()

	require.NoError(t, m.Set("case", "dative"))
	require.NoError(t, m.Set("YEAR", int64(1150)))
	require.NoError(t, m.Set("weight", float32(0.5)))
	require.NoError(t, m.Set("checked", true))

	v, ok := m.Get("CASE")
	require.True(t, ok)
	assert.Equal(t, "dative", v)
	v, _ = m.Get("year")
	assert.Equal(t, 1150, v)
	v, _ = m.Get("WEIGHT")
	assert.Equal(t, 0.5, v)
	assert.Equal(t, "true", m.String("checked"))
	assert.Equal(t, []string{"CASE", "YEAR", "WEIGHT", "CHECKED"}, m.Keys())

	// Overwriting keeps the original position.
	require.NoError(t, m.Set("Case", "genitive"))
	assert.Equal(t, []string{"CASE", "YEAR", "WEIGHT", "CHECKED"}, m.Keys())
	assert.Equal(t, "genitive", m.String("case"))

	m.Delete("year")
	m.Delete("missing")
	assert.False(t, m.Has("YEAR"))
	assert.Equal(t, 3, m.Len())
}

func TestMetadata_Rejects(t *testing.T) {
	t.Parallel()
	m := NewMetadata()

	require.ErrorIs(t, m.Set("bad key", "x"), ErrIllegalMetadataKey)
	require.ErrorIs(t, m.Set("", "x"), ErrIllegalMetadataKey)
	require.ErrorIs(t, m.Set("TAGS", []string{"a"}), ErrIllegalMetadataValue)
	var nested *Metadata
	require.ErrorIs(t, m.Set("NESTED", nested), ErrIllegalMetadataValue)
	assert.Equal(t, 0, m.Len())
}

func TestMetadata_NilReadsEmpty(t *testing.T) {
	t.Parallel()
	var m *Metadata
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Keys())
	assert.False(t, m.Has("ID"))
	assert.Equal(t, AbsentID, m.ID())
	assert.Empty(t, m.Flatten())
	assert.Equal(t, 0, m.Clone().Len())
}

func TestMetadata_NestedPaths(t *testing.T) {
	t.Parallel()
	m := NewMetadata()
	require.NoError(t, m.SetPath("ALT:GLOSS", "house"))
	require.NoError(t, m.SetPath("ALT:POS", "N"))
	require.NoError(t, m.Set("CASE", "dative"))

	assert.Equal(t, []Entry{
		{Key: "ALT:GLOSS", Value: "house"},
		{Key: "ALT:POS", Value: "N"},
		{Key: "CASE", Value: "dative"},
	}, m.Flatten())
	assert.Equal(t, "GLOSS=house,POS=N", m.String("ALT"))

	// A scalar in the way is replaced by nested metadata.
	require.NoError(t, m.SetPath("CASE:OLD", "dat"))
	assert.Equal(t, "OLD=dat", m.String("CASE"))
}

func TestMetadata_FlattenKeepsEmptyNested(t *testing.T) {
	t.Parallel()
	m := NewMetadata()
	empty := NewMetadata()
	require.NoError(t, m.Set("EXTRA", empty))
	require.NoError(t, m.SetPath("ALT:NONE", NewMetadata()))
	require.NoError(t, m.SetPath("ALT:POS", "N"))

	got := m.Flatten()
	require.Len(t, got, 3)
	assert.Equal(t, "EXTRA", got[0].Key)
	assert.Same(t, empty, got[0].Value)
	assert.Equal(t, "ALT:NONE", got[1].Key)
	assert.Equal(t, Entry{Key: "ALT:POS", Value: "N"}, got[2])
}

func TestMetadata_CloneIsDeep(t *testing.T) {
	t.Parallel()
	m := NewMetadata()
	require.NoError(t, m.SetPath("ALT:GLOSS", "house"))

	c := m.Clone()
	require.True(t, m.Equal(c))
	require.NoError(t, c.SetPath("ALT:GLOSS", "home"))
	assert.Equal(t, "GLOSS=house", m.String("ALT"))
	assert.False(t, m.Equal(c))
}

func TestMetadata_EqualIgnoresOrder(t *testing.T) {
	t.Parallel()
	a, b := NewMetadata(), NewMetadata()
	require.NoError(t, a.Set("A", 1))
	require.NoError(t, a.Set("B", "x"))
	require.NoError(t, b.Set("B", "x"))
	require.NoError(t, b.Set("A", 1))
	assert.True(t, a.Equal(b))

	require.NoError(t, b.Set("A", "1"))
	assert.False(t, a.Equal(b))
}

func TestMetadata_LemmaIsNFD(t *testing.T) {
	t.Parallel()
	composed := "ma\u00f0ur"
	decomposed := "fe\u0301lagi"
	precomposed := "f\u00e9lagi"

	a, b := NewMetadata(), NewMetadata()
	a.SetLemma(precomposed)
	b.SetLemma(decomposed)
	la, _ := a.Lemma()
	lb, _ := b.Lemma()
	assert.Equal(t, decomposed, la)
	assert.Equal(t, la, lb)
	assert.True(t, a.Equal(b))

	a.SetLemma(composed)
	l, ok := a.Lemma()
	require.True(t, ok)
	assert.Equal(t, composed, l)

	// Other keys keep their form.
	require.NoError(t, a.Set("GLOSS", precomposed))
	assert.Equal(t, precomposed, a.String("GLOSS"))
}

func TestMetadata_ReservedAccessors(t *testing.T) {
	t.Parallel()
	m := NewMetadata()
	assert.Equal(t, AbsentID, m.ID())
	_, ok := m.Index()
	assert.False(t, ok)
	assert.Equal(t, "", m.IdxType())

	m.SetID("t-1")
	m.SetIndex(4, IdxGap)
	m.SetSource("a.psd")
	assert.Equal(t, "t-1", m.ID())
	idx, ok := m.Index()
	require.True(t, ok)
	assert.Equal(t, 4, idx)
	assert.Equal(t, IdxGap, m.IdxType())
	assert.Equal(t, "a.psd", m.Source())
}

func TestLabelAndIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in        string
		label     string
		idxType   string
		idx       int
		ok, isErr bool
	}{
		{"NP-SBJ-1", "NP-SBJ", IdxRegular, 1, true, false},
		{"NP=3", "NP", IdxGap, 3, true, false},
		{"NP-SBJ", "NP-SBJ", "", 0, false, false},
		{"NP-", "NP-", "", 0, false, false},
		{"ADVP=X", "ADVP=X", "", 0, false, false},
		{"A=1=2", "", "", 0, false, true},
	}
	for _, tt := range tests {
		label, typ, idx, ok, err := LabelAndIndex(tt.in)
		if tt.isErr {
			require.ErrorIs(t, err, ErrMalformedTree, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.label, label, tt.in)
		assert.Equal(t, tt.idxType, typ, tt.in)
		assert.Equal(t, tt.idx, idx, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
