// Package format renders trees and corpora as text and reads bracketed
// treebank files.
//
// A Formatter supplies the textual shape of leaves, non-terminals and
// corpora; Format supplies the walk. Bracketed styles (Penn, Icepahc,
// Deep) indent children under their parent's label. Object styles (JSON,
// YAML) emit {label, text, metadata, children} records.
package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/jward/arbor/tree"
)

// Walk renders a node and its subtree at an indent column.
type Walk func(n *tree.Node, indent int) []string

// Formatter renders text fragments; fragments are concatenated as-is.
type Formatter interface {
	Leaf(n *tree.Node, indent int) []string
	Tree(n *tree.Node, indent int, walk Walk) []string
	Corpus(roots []*tree.Node, walk Walk) []string
}

// Walker returns the tree walk for f, dispatching on the node variant.
func Walker(f Formatter) Walk {
	var walk Walk
	walk = func(n *tree.Node, indent int) []string {
		switch n.Kind() {
		case tree.KindLeaf:
			return f.Leaf(n, indent)
		case tree.KindNonTerminal:
			return f.Tree(n, indent, walk)
		default:
			panic(fmt.Sprintf("format: unknown node kind %v", n.Kind()))
		}
	}
	return walk
}

// Format writes roots to w as a corpus in f's style.
func Format(w io.Writer, f Formatter, roots ...*tree.Node) error {
	for _, frag := range f.Corpus(roots, Walker(f)) {
		if _, err := io.WriteString(w, frag); err != nil {
			return fmt.Errorf("format: write: %w", err)
		}
	}
	return nil
}

// String renders roots as a corpus in f's style.
func String(f Formatter, roots ...*tree.Node) string {
	var b strings.Builder
	_ = Format(&b, f, roots...)
	return b.String()
}

// Node renders a single subtree without corpus or root wrapping.
func Node(f Formatter, n *tree.Node) string {
	return strings.Join(Walker(f)(n, 0), "")
}

// ByName returns the formatter registered under name.
func ByName(name string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "penn", "bracketed":
		return Penn{}, nil
	case "icepahc":
		return Icepahc{}, nil
	case "deep":
		return Deep{}, nil
	case "json":
		return JSON{}, nil
	case "yaml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("format: unknown formatter %q", name)
	}
}

func indexSuffix(md *tree.Metadata) string {
	idx, ok := md.Index()
	if !ok {
		return ""
	}
	if md.IdxType() == tree.IdxGap {
		return fmt.Sprintf("=%d", idx)
	}
	return fmt.Sprintf("-%d", idx)
}

func intersperse(parts [][]string, sep string) []string {
	var out []string
	for i, p := range parts {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, p...)
	}
	return out
}
