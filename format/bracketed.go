package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jward/arbor/tree"
)

// Penn renders the Penn-style bracketed format:
//
//	( (IP (NP-SBJ (D the) (N dog))
//	      (VBD barked))
//	  (ID ex-1))
//
// Trace leaves print their index after the text, other nodes after the
// label.
type Penn struct{}

func (Penn) Leaf(n *tree.Node, _ int) []string {
	idx := indexSuffix(n.Metadata())
	if tree.IsTrace(n) {
		return []string{"(", n.Label(), " ", n.Text(), idx, ")"}
	}
	return []string{"(", n.Label(), idx, " ", n.Text(), ")"}
}

func (Penn) Tree(n *tree.Node, indent int, walk Walk) []string {
	pre := "(" + n.Label() + indexSuffix(n.Metadata()) + " "
	inner := indent + len(pre)
	return childBlock(pre, n, inner, walk)
}

func (Penn) Corpus(roots []*tree.Node, walk Walk) []string {
	return bracketedCorpus(roots, walk)
}

// Icepahc is Penn with the leaf lemma appended to its text ("dog-dog").
type Icepahc struct{ Penn }

func (p Icepahc) Leaf(n *tree.Node, indent int) []string {
	out := p.Penn.Leaf(n, indent)
	if lemma, ok := n.Metadata().Lemma(); ok {
		out = append(out[:len(out)-1], "-", lemma, ")")
	}
	return out
}

// Deep renders every metadata entry (except ID) in a META block and leaf
// text under ORTHO.
type Deep struct{}

func (d Deep) Leaf(n *tree.Node, indent int) []string {
	out := []string{"(" + n.Label() + " "}
	out = append(out, d.meta(n, indent+len(n.Label())+2)...)
	return append(out, "(ORTHO "+n.Text()+")", ")")
}

func (d Deep) Tree(n *tree.Node, indent int, walk Walk) []string {
	inner := indent + len(n.Label()) + 2
	out := []string{"(" + n.Label() + " "}
	out = append(out, d.meta(n, inner)...)
	return append(out, childBlock("", n, inner, walk)...)
}

func (Deep) Corpus(roots []*tree.Node, walk Walk) []string {
	return bracketedCorpus(roots, walk)
}

func (Deep) meta(n *tree.Node, indent int) []string {
	var items []tree.Entry
	for _, e := range n.Metadata().Flatten() {
		if e.Key != tree.KeyID {
			items = append(items, e)
		}
	}
	if len(items) == 0 {
		return nil
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	parts := make([][]string, len(items))
	for i, e := range items {
		parts[i] = []string{fmt.Sprintf("(%s %s)", e.Key, tree.FormatValue(e.Value))}
	}
	out := []string{"(META "}
	out = append(out, intersperse(parts, "\n"+strings.Repeat(" ", indent+6))...)
	return append(out, ")\n"+strings.Repeat(" ", indent))
}

// childBlock renders n's children one per line at column inner, after pre.
func childBlock(pre string, n *tree.Node, inner int, walk Walk) []string {
	parts := make([][]string, 0, n.Len())
	for _, c := range n.Children() {
		parts = append(parts, walk(c, inner))
	}
	var out []string
	if pre != "" {
		out = append(out, pre)
	}
	out = append(out, intersperse(parts, "\n"+strings.Repeat(" ", inner))...)
	return append(out, ")")
}

// bracketedCorpus wraps each root as "( tree\n  (ID x))" and separates
// roots with a blank line. Roots without an ID omit the ID line.
func bracketedCorpus(roots []*tree.Node, walk Walk) []string {
	parts := make([][]string, len(roots))
	for i, r := range roots {
		p := []string{"( "}
		p = append(p, walk(r, 2)...)
		if id := r.Metadata().ID(); id != tree.AbsentID {
			p = append(p, "\n  (ID "+id+")")
		}
		parts[i] = append(p, ")")
	}
	return intersperse(parts, "\n\n")
}
