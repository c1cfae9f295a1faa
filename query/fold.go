package query

import "fmt"

// Fold visits every sub-expression of q in post-order (operands before
// the expression that holds them, left before right), threading acc
// through fn.
func Fold[A any](q Query, acc A, fn func(Query, A) A) A {
	switch x := q.(type) {
	case *LabelExpr, *DashTagExpr, *TextExpr, *HasMetadataExpr:
	case *AndExpr:
		acc = Fold(x.Right, Fold(x.Left, acc, fn), fn)
	case *OrExpr:
		acc = Fold(x.Right, Fold(x.Left, acc, fn), fn)
	case *NotExpr:
		acc = Fold(x.Query, acc, fn)
	case *IdomsExpr:
		acc = Fold(x.Query, acc, fn)
	case *DomsExpr:
		acc = Fold(x.Query, acc, fn)
	case *SprecExpr:
		acc = Fold(x.Query, acc, fn)
	case *IsprecExpr:
		acc = Fold(x.Query, acc, fn)
	default:
		panic(fmt.Sprintf("query: unknown expression %T", q))
	}
	return fn(q, acc)
}

// Numbering assigns each sub-expression of a query a stable index.
type Numbering struct {
	index map[Query]int
	order []Query
}

// Enumerate numbers the sub-expressions of q from 0 in post-order. A
// sub-expression value reused in several places keeps its last number.
func Enumerate(q Query) *Numbering {
	return Fold(q, &Numbering{index: make(map[Query]int)}, func(x Query, n *Numbering) *Numbering {
		n.index[x] = len(n.order)
		n.order = append(n.order, x)
		return n
	})
}

// Index returns the number of sub-expression q, or -1 if q is not part of
// the numbered query.
func (n *Numbering) Index(q Query) int {
	if i, ok := n.index[q]; ok {
		return i
	}
	return -1
}

// Query returns the sub-expression numbered i.
func (n *Numbering) Query(i int) Query {
	return n.order[i]
}

// Len returns the number of visited sub-expressions.
func (n *Numbering) Len() int { return len(n.order) }

// IsMarking reports whether q highlights the nodes it matches. Leaf
// predicates mark, structural wrappers do not, Not marks when its operand
// does, and And and Or mark when both operands do.
func IsMarking(q Query) bool {
	switch x := q.(type) {
	case *LabelExpr, *DashTagExpr, *TextExpr, *HasMetadataExpr:
		return true
	case *AndExpr:
		return IsMarking(x.Left) && IsMarking(x.Right)
	case *OrExpr:
		return IsMarking(x.Left) && IsMarking(x.Right)
	case *NotExpr:
		return IsMarking(x.Query)
	default:
		return false
	}
}

// MatchGroups returns the numbers of the sub-expressions that receive a
// highlight color. A conjunction of two marking queries is one group;
// disjunctions contribute both sides; negations contribute nothing;
// wrappers pass their operand's groups through.
func MatchGroups(q Query, num *Numbering) []int {
	switch x := q.(type) {
	case *LabelExpr, *DashTagExpr, *TextExpr, *HasMetadataExpr:
		return []int{num.Index(q)}
	case *AndExpr:
		if IsMarking(x.Left) && IsMarking(x.Right) {
			return []int{num.Index(q)}
		}
		return append(MatchGroups(x.Left, num), MatchGroups(x.Right, num)...)
	case *OrExpr:
		return append(MatchGroups(x.Left, num), MatchGroups(x.Right, num)...)
	case *NotExpr:
		return nil
	case *IdomsExpr:
		return MatchGroups(x.Query, num)
	case *DomsExpr:
		return MatchGroups(x.Query, num)
	case *SprecExpr:
		return MatchGroups(x.Query, num)
	case *IsprecExpr:
		return MatchGroups(x.Query, num)
	default:
		panic(fmt.Sprintf("query: unknown expression %T", q))
	}
}
