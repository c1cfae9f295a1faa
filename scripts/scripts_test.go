package scripts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor/format"
	"github.com/jward/arbor/internal/runtime"
	"github.com/jward/arbor/scripts"
	"github.com/jward/arbor/tree"
)

func transform(t *testing.T, name, src string) *tree.Node {
	t.Helper()
	root, err := format.Parse(src)
	require.NoError(t, err)
	rt := runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS))
	require.NoError(t, rt.Transform(context.Background(), name, root))
	return root
}

func TestNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"icepahc_case", "icepahc_lemma", "icepahc_year", "strip_dash_tags"}, scripts.Names())
}

func TestIcepahcCase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src       string
		wantLabel string
		wantCase  string
	}{
		{"(N-N foo)", "N", "nominative"},
		{"(N-A foo)", "N", "accusative"},
		{"(N-G foo)", "N", "genitive"},
		{"(N-D foo)", "N", "dative"},
		{"(NPR-D Jón)", "NPR", "dative"},
		{"(N-X foo)", "N-X", ""},
		{"(VB-D foo)", "VB-D", ""},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			root := transform(t, "icepahc_case", tt.src)
			assert.Equal(t, tt.wantLabel, root.Label())
			assert.Equal(t, tt.wantCase, root.Metadata().String("CASE"))
		})
	}
}

func TestIcepahcCase_Nested(t *testing.T) {
	t.Parallel()
	root := transform(t, "icepahc_case", "(NP-SBJ (D-N hinn) (N-N maður))")

	assert.Equal(t, "NP-SBJ", root.Label())
	assert.Equal(t, "D", root.Child(0).Label())
	assert.Equal(t, "nominative", root.Child(0).Metadata().String("CASE"))
	assert.Equal(t, "nominative", root.Child(1).Metadata().String("CASE"))
}

func TestIcepahcLemma(t *testing.T) {
	t.Parallel()
	root := transform(t, "icepahc_lemma", "(IP (NP (N maður-maður)) (VBD fór-fara) (NP *pro*) (ADV svo))")

	n := root.Child(0).Child(0)
	assert.Equal(t, "maður", n.Text())
	lemma, ok := n.Metadata().Lemma()
	require.True(t, ok)
	assert.Equal(t, "maður", lemma)

	assert.Equal(t, "fór", root.Child(1).Text())
	assert.Equal(t, "*pro*", root.Child(2).Text())
	assert.False(t, root.Child(3).Metadata().Has("LEMMA"))
}

func TestIcepahcYear(t *testing.T) {
	t.Parallel()
	root, err := format.Parse("(IP (N foo))")
	require.NoError(t, err)
	root.Metadata().SetSource("corpus/1150.firstgrammar.sci-lin.psd")

	rt := runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS))
	require.NoError(t, rt.Transform(context.Background(), "icepahc_year", root))

	year, ok := root.Metadata().Get("YEAR")
	require.True(t, ok)
	assert.Equal(t, 1150, year)
}

func TestIcepahcYear_NoSource(t *testing.T) {
	t.Parallel()
	root, err := format.Parse("(IP (N foo))")
	require.NoError(t, err)

	rt := runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS))
	assert.Error(t, rt.Transform(context.Background(), "icepahc_year", root))
}

func TestStripDashTags(t *testing.T) {
	t.Parallel()
	root := transform(t, "strip_dash_tags", "(IP-MAT (NP-SBJ-1 (PRO he)) (VBD left) (NP-OB1 *T*-1))")

	assert.Equal(t, "(IP (NP-1 (PRO he))\n    (VBD left)\n    (NP *T*-1))", format.Node(format.Penn{}, root))
}
