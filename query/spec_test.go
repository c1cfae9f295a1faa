package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"label", "label: NP", `label("NP")`},
		{"exact", "label: NP\nexact: true", `label("NP", exact=True)`},
		{"regexp", "regexp: ^N", `label(/^N/)`},
		{"empty text", `text: ""`, `text("")`},
		{"metadata", "has_metadata: {key: CASE, value: dat}", `has_metadata("CASE", "dat")`},
		{
			"nested",
			"and:\n  - label: NP\n  - idoms:\n      label: ADJ\n",
			`(label("NP") & idoms(label("ADJ")))`,
		},
		{
			"three-way or",
			"or: [{label: A}, {dash_tag: B}, {text: c}]",
			`((label("A") | dash_tag("B")) | text("c"))`,
		},
		{
			"wrappers",
			"not: {doms: {sprec: {isprec: {label: X}}}}",
			`~doms(sprec(isprec(label("X"))))`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q, err := ParseYAML([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.String())
		})
	}
}

func TestParseYAML_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		invalid bool
	}{
		{"empty", "{}", true},
		{"unknown key only", "foo: 1", true},
		{"two expressions", "label: NP\ndash_tag: ACC", true},
		{"one operand", "and: [{label: NP}]", true},
		{"empty nested", "not: {}", true},
		{"bad operand", "or: [{label: A}, {}]", true},
		{"bad regexp", "regexp: '('", false},
		{"bad yaml", "and: [", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseYAML([]byte(tt.in))
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidSpec)
			} else {
				assert.NotErrorIs(t, err, ErrInvalidSpec)
			}
		})
	}
}
