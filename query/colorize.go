package query

import (
	"fmt"
	"slices"

	"github.com/jward/arbor/tree"
)

// Palette is the ColorBrewer Set1 qualitative scheme. Its size caps the
// number of highlight groups.
var Palette = []string{
	"#e41a1c", "#377eb8", "#4daf4a", "#984ea3", "#ff7f00",
	"#ffff33", "#a65628", "#f781bf", "#999999",
}

// Highlight maps highlight groups of a colorized query to colors.
type Highlight struct {
	Query     Query
	Numbering *Numbering
	// Colors maps sub-expression numbers to palette entries.
	Colors map[int]string
}

// NewHighlight numbers q and assigns a palette color to each of its match
// groups.
func NewHighlight(q Query) (*Highlight, error) {
	num := Enumerate(q)
	var groups []int
	for _, g := range MatchGroups(q, num) {
		// A reused sub-expression shares one number and one color.
		if !slices.Contains(groups, g) {
			groups = append(groups, g)
		}
	}
	if len(groups) > len(Palette) {
		return nil, &Error{
			Op:    "colorize",
			Query: q,
			Err:   fmt.Errorf("%d groups, palette has %d: %w", len(groups), len(Palette), ErrTooManyMatchGroups),
		}
	}
	h := &Highlight{Query: q, Numbering: num, Colors: make(map[int]string, len(groups))}
	for i, g := range groups {
		h.Colors[g] = Palette[i]
	}
	return h, nil
}

// Mark clears previous marks on every node under root and evaluates the
// query in marking mode at each node.
func (h *Highlight) Mark(root *tree.Node) error {
	for n := range root.Nodes() {
		n.ClearMatches()
	}
	for n := range root.Nodes() {
		if _, err := MatchMarking(h.Query, n, h.Numbering); err != nil {
			return err
		}
	}
	return nil
}

// Colorize marks root with q and returns the group colors.
func Colorize(q Query, root *tree.Node) (*Highlight, error) {
	h, err := NewHighlight(q)
	if err != nil {
		return nil, err
	}
	if err := h.Mark(root); err != nil {
		return nil, err
	}
	return h, nil
}

// NodeColors returns the colors of the groups that matched n, in group
// number order.
func (h *Highlight) NodeColors(n *tree.Node) []string {
	var out []string
	for _, m := range n.Matches() {
		if c, ok := h.Colors[m]; ok && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// QueryColor returns the color assigned to sub-expression q.
func (h *Highlight) QueryColor(q Query) (string, bool) {
	c, ok := h.Colors[h.Numbering.Index(q)]
	return c, ok
}
