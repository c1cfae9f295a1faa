package query

import (
	"fmt"
	"regexp"
	"strconv"
)

// Query is a query expression. The interface is sealed: only the
// expression types of this package implement it, so consumers can switch
// exhaustively over them.
type Query interface {
	fmt.Stringer
	queryNode()
}

// LabelExpr matches node labels. With Regexp set the pattern is searched
// in the label and Exact is ignored; otherwise the label must equal
// Pattern, or (unless Exact) Pattern followed by dash tags.
type LabelExpr struct {
	Pattern string
	Exact   bool
	Regexp  *regexp.Regexp
}

// DashTagExpr matches labels carrying -Tag as a dash tag.
type DashTagExpr struct {
	Tag string
}

// TextExpr matches leaves whose text is Text.
type TextExpr struct {
	Text string
}

// HasMetadataExpr matches nodes carrying Key with Value. It is reserved
// and evaluates to ErrNotImplemented in both modes.
type HasMetadataExpr struct {
	Key   string
	Value string
}

// AndExpr matches when both operands match.
type AndExpr struct {
	Left, Right Query
}

// OrExpr matches when either operand matches.
type OrExpr struct {
	Left, Right Query
}

// NotExpr matches when Query does not.
type NotExpr struct {
	Query Query
}

// IdomsExpr matches nodes with a child satisfying Query.
type IdomsExpr struct {
	Query Query
}

// DomsExpr matches nodes with a proper descendant satisfying Query.
type DomsExpr struct {
	Query Query
}

// SprecExpr matches nodes with a later sister satisfying Query.
type SprecExpr struct {
	Query Query
}

// IsprecExpr matches nodes whose immediate right sister satisfies Query.
type IsprecExpr struct {
	Query Query
}

func (*LabelExpr) queryNode()       {}
func (*DashTagExpr) queryNode()     {}
func (*TextExpr) queryNode()        {}
func (*HasMetadataExpr) queryNode() {}
func (*AndExpr) queryNode()         {}
func (*OrExpr) queryNode()          {}
func (*NotExpr) queryNode()         {}
func (*IdomsExpr) queryNode()       {}
func (*DomsExpr) queryNode()        {}
func (*SprecExpr) queryNode()       {}
func (*IsprecExpr) queryNode()      {}

// ---- Builders ----

// Label matches pattern and pattern-TAG labels.
func Label(pattern string) *LabelExpr { return &LabelExpr{Pattern: pattern} }

// ExactLabel matches only labels equal to pattern.
func ExactLabel(pattern string) *LabelExpr { return &LabelExpr{Pattern: pattern, Exact: true} }

// LabelRegexp matches labels containing a match of re. It cannot be
// compiled to SQL.
func LabelRegexp(re *regexp.Regexp) *LabelExpr { return &LabelExpr{Regexp: re} }

// DashTag matches labels carrying -tag.
func DashTag(tag string) *DashTagExpr { return &DashTagExpr{Tag: tag} }

// Text matches leaves with the given text.
func Text(s string) *TextExpr { return &TextExpr{Text: s} }

// HasMetadata is reserved for metadata predicates.
func HasMetadata(key, value string) *HasMetadataExpr {
	return &HasMetadataExpr{Key: key, Value: value}
}

// And conjoins its operands, folding left: And(a, b, c) is ((a & b) & c).
func And(a, b Query, more ...Query) *AndExpr {
	q := &AndExpr{Left: a, Right: b}
	for _, m := range more {
		q = &AndExpr{Left: q, Right: m}
	}
	return q
}

// Or disjoins its operands, folding left.
func Or(a, b Query, more ...Query) *OrExpr {
	q := &OrExpr{Left: a, Right: b}
	for _, m := range more {
		q = &OrExpr{Left: q, Right: m}
	}
	return q
}

// Not negates q.
func Not(q Query) *NotExpr { return &NotExpr{Query: q} }

// Idoms matches parents of nodes satisfying q.
func Idoms(q Query) *IdomsExpr { return &IdomsExpr{Query: q} }

// Doms matches ancestors of nodes satisfying q.
func Doms(q Query) *DomsExpr { return &DomsExpr{Query: q} }

// Sprec matches earlier sisters of nodes satisfying q.
func Sprec(q Query) *SprecExpr { return &SprecExpr{Query: q} }

// Isprec matches immediate left sisters of nodes satisfying q.
func Isprec(q Query) *IsprecExpr { return &IsprecExpr{Query: q} }

// Precedes is q > (r1, r2, ...): q and, for each ri, Sprec(ri).
func Precedes(q, r Query, more ...Query) *AndExpr {
	return expand(q, func(x Query) Query { return Sprec(x) }, r, more)
}

// ImmediatelyPrecedes is q >> (r1, r2, ...): q and, for each ri, Isprec(ri).
func ImmediatelyPrecedes(q, r Query, more ...Query) *AndExpr {
	return expand(q, func(x Query) Query { return Isprec(x) }, r, more)
}

// ImmediatelyDominates is q ^ (r1, r2, ...): q and, for each ri, Idoms(ri).
func ImmediatelyDominates(q, r Query, more ...Query) *AndExpr {
	return expand(q, func(x Query) Query { return Idoms(x) }, r, more)
}

func expand(q Query, wrap func(Query) Query, r Query, more []Query) *AndExpr {
	rhs := wrap(r)
	for _, m := range more {
		rhs = &AndExpr{Left: rhs, Right: wrap(m)}
	}
	return &AndExpr{Left: q, Right: rhs}
}

// ---- Rendering ----

func (q *LabelExpr) String() string {
	switch {
	case q.Regexp != nil:
		return "label(/" + q.Regexp.String() + "/)"
	case q.Exact:
		return "label(" + strconv.Quote(q.Pattern) + ", exact=True)"
	default:
		return "label(" + strconv.Quote(q.Pattern) + ")"
	}
}

func (q *DashTagExpr) String() string { return "dash_tag(" + strconv.Quote(q.Tag) + ")" }

func (q *TextExpr) String() string { return "text(" + strconv.Quote(q.Text) + ")" }

func (q *HasMetadataExpr) String() string {
	return "has_metadata(" + strconv.Quote(q.Key) + ", " + strconv.Quote(q.Value) + ")"
}

func (q *AndExpr) String() string { return "(" + q.Left.String() + " & " + q.Right.String() + ")" }

func (q *OrExpr) String() string { return "(" + q.Left.String() + " | " + q.Right.String() + ")" }

func (q *NotExpr) String() string { return "~" + q.Query.String() }

func (q *IdomsExpr) String() string { return "idoms(" + q.Query.String() + ")" }

func (q *DomsExpr) String() string { return "doms(" + q.Query.String() + ")" }

func (q *SprecExpr) String() string { return "sprec(" + q.Query.String() + ")" }

func (q *IsprecExpr) String() string { return "isprec(" + q.Query.String() + ")" }

// Kind returns the short name of q's expression type, such as "label" or
// "and".
func Kind(q Query) string {
	switch q.(type) {
	case *LabelExpr:
		return "label"
	case *DashTagExpr:
		return "dash_tag"
	case *TextExpr:
		return "text"
	case *HasMetadataExpr:
		return "has_metadata"
	case *AndExpr:
		return "and"
	case *OrExpr:
		return "or"
	case *NotExpr:
		return "not"
	case *IdomsExpr:
		return "idoms"
	case *DomsExpr:
		return "doms"
	case *SprecExpr:
		return "sprec"
	case *IsprecExpr:
		return "isprec"
	default:
		return fmt.Sprintf("%T", q)
	}
}
