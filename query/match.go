package query

import (
	"fmt"
	"strings"

	"github.com/jward/arbor/tree"
)

// Match reports whether n itself satisfies q.
func Match(q Query, n *tree.Node) (bool, error) {
	e := evaluator{}
	return e.match(q, n)
}

// MatchMarking evaluates q against n like Match and, for every
// sub-expression that matches a node along the way, records its number
// from num on that node. Both sides of an Or are always evaluated.
func MatchMarking(q Query, n *tree.Node, num *Numbering) (bool, error) {
	e := evaluator{num: num}
	return e.match(q, n)
}

// MatchTree reports whether any node of the subtree rooted at root
// satisfies q.
func MatchTree(q Query, root *tree.Node) (bool, error) {
	e := evaluator{}
	for n := range root.Nodes() {
		ok, err := e.match(q, n)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Select returns the nodes of the subtree rooted at root that satisfy q,
// in pre-order.
func Select(q Query, root *tree.Node) ([]*tree.Node, error) {
	e := evaluator{}
	var out []*tree.Node
	for n := range root.Nodes() {
		ok, err := e.match(q, n)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// evaluator marks matches when num is set.
type evaluator struct {
	num *Numbering
}

func (e *evaluator) match(q Query, n *tree.Node) (bool, error) {
	ok, err := e.eval(q, n)
	if err != nil {
		return false, err
	}
	if ok && e.num != nil {
		if i := e.num.Index(q); i >= 0 {
			n.AddMatch(i)
		}
	}
	return ok, nil
}

func (e *evaluator) eval(q Query, n *tree.Node) (bool, error) {
	switch x := q.(type) {
	case *LabelExpr:
		return matchLabel(x, n.Label()), nil
	case *DashTagExpr:
		return matchDashTag(x.Tag, n.Label()), nil
	case *TextExpr:
		return n.IsLeaf() && n.Text() == x.Text, nil
	case *HasMetadataExpr:
		return false, &Error{Op: "match", Query: q, Err: ErrNotImplemented}
	case *AndExpr:
		ok, err := e.match(x.Left, n)
		if err != nil || !ok {
			return false, err
		}
		return e.match(x.Right, n)
	case *OrExpr:
		l, err := e.match(x.Left, n)
		if err != nil {
			return false, err
		}
		if l && e.num == nil {
			return true, nil
		}
		r, err := e.match(x.Right, n)
		if err != nil {
			return false, err
		}
		return l || r, nil
	case *NotExpr:
		ok, err := e.match(x.Query, n)
		return !ok && err == nil, err
	case *IdomsExpr:
		return e.any(x.Query, n.Children())
	case *DomsExpr:
		var desc []*tree.Node
		for d := range n.Nodes() {
			if d != n {
				desc = append(desc, d)
			}
		}
		return e.any(x.Query, desc)
	case *SprecExpr:
		later, err := laterSisters(n)
		if err != nil {
			return false, err
		}
		return e.any(x.Query, later)
	case *IsprecExpr:
		later, err := laterSisters(n)
		if err != nil || len(later) == 0 {
			return false, err
		}
		return e.match(x.Query, later[0])
	default:
		return false, &Error{Op: "match", Query: q, Err: fmt.Errorf("unknown expression %T", q)}
	}
}

func (e *evaluator) any(q Query, nodes []*tree.Node) (bool, error) {
	for _, c := range nodes {
		ok, err := e.match(q, c)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// laterSisters returns the sisters to the right of n, nearest first.
// Roots have none.
func laterSisters(n *tree.Node) ([]*tree.Node, error) {
	p := n.Parent()
	if p == nil {
		return nil, nil
	}
	i, err := n.ParentIndex()
	if err != nil {
		return nil, err
	}
	return p.Children()[i+1:], nil
}

func matchLabel(q *LabelExpr, label string) bool {
	switch {
	case q.Regexp != nil:
		return q.Regexp.MatchString(label)
	case label == q.Pattern:
		return true
	case q.Exact:
		return false
	default:
		return strings.HasPrefix(label, q.Pattern+"-")
	}
}

func matchDashTag(tag, label string) bool {
	t := "-" + tag
	return strings.Contains(label, t+"-") || strings.HasSuffix(label, t)
}
