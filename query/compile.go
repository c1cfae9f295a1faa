package query

import (
	"fmt"
	"slices"
	"strings"
)

// TextKey is the metadata key under which the index stores leaf text.
const TextKey = "text"

// joinColumns lists, in order of preference, the identifying columns a
// compiled relation may expose.
var joinColumns = []string{"id", "left", "ancestor", "parent", "node_id"}

// Relation is a compiled query: a SELECT over the index tables yielding
// one column of node ids. Values are always bound through Args.
type Relation struct {
	SQL     string
	Args    []any
	Columns []string
}

// Column returns the identifying column of r: the first of id, left,
// ancestor, parent or node_id it exposes, else rowid.
func (r Relation) Column() string {
	for _, c := range joinColumns {
		if slices.Contains(r.Columns, c) {
			return c
		}
	}
	return "rowid"
}

// Ordered returns SQL yielding r's ids once each, ascending.
func (r Relation) Ordered() (string, []any) {
	c := quote(r.Column())
	return fmt.Sprintf("SELECT DISTINCT %s AS id FROM (%s) ORDER BY id", c, r.SQL), r.Args
}

// Compile translates q into a relation over the index tables nodes,
// dominance, precedence and metadata. Failures are *Error values naming
// the offending sub-expression.
func Compile(q Query) (Relation, error) {
	c := &compiler{}
	return c.compile(q)
}

type compiler struct {
	aliases int
}

func (c *compiler) alias() string {
	c.aliases++
	return fmt.Sprintf("t%d", c.aliases)
}

func (c *compiler) compile(q Query) (Relation, error) {
	switch x := q.(type) {
	case *LabelExpr:
		return compileLabel(x)
	case *DashTagExpr:
		if err := checkPattern(x.Tag); err != nil {
			return Relation{}, &Error{Op: "compile", Query: q, Err: err}
		}
		return Relation{
			SQL:     "SELECT id FROM nodes WHERE label LIKE ? OR label LIKE ?",
			Args:    []any{"%-" + x.Tag + "-%", "%-" + x.Tag},
			Columns: []string{"id"},
		}, nil
	case *TextExpr:
		return Relation{
			SQL:     "SELECT node_id FROM metadata WHERE key = ? AND value = ?",
			Args:    []any{TextKey, x.Text},
			Columns: []string{"node_id"},
		}, nil
	case *HasMetadataExpr:
		return Relation{}, &Error{Op: "compile", Query: q, Err: ErrNotImplemented}
	case *AndExpr:
		return c.compileAnd(x)
	case *OrExpr:
		l, r, err := c.operands(x.Left, x.Right)
		if err != nil {
			return Relation{}, err
		}
		return Relation{
			SQL: fmt.Sprintf("SELECT %s AS id FROM (%s) UNION SELECT %s FROM (%s)",
				quote(l.Column()), l.SQL, quote(r.Column()), r.SQL),
			Args:    concat(l.Args, r.Args),
			Columns: []string{"id"},
		}, nil
	case *NotExpr:
		inner, err := c.compile(x.Query)
		if err != nil {
			return Relation{}, err
		}
		return Relation{
			SQL:     fmt.Sprintf("SELECT id FROM nodes WHERE id NOT IN (%s)", project(inner)),
			Args:    inner.Args,
			Columns: []string{"id"},
		}, nil
	case *IdomsExpr:
		return c.closure(x.Query, "dominance", "ancestor", "descendant", "depth = 1")
	case *DomsExpr:
		return c.closure(x.Query, "dominance", "ancestor", "descendant", "depth > 0")
	case *SprecExpr:
		return c.closure(x.Query, "precedence", "left", "right", "distance > 0")
	case *IsprecExpr:
		return c.closure(x.Query, "precedence", "left", "right", "distance = 1")
	default:
		return Relation{}, &Error{Op: "compile", Query: q, Err: fmt.Errorf("unknown expression %T", q)}
	}
}

func compileLabel(q *LabelExpr) (Relation, error) {
	if q.Regexp != nil {
		return Relation{}, &Error{Op: "compile", Query: q, Err: ErrUnsupportedInIndexMode}
	}
	if q.Exact {
		return Relation{
			SQL:     "SELECT id FROM nodes WHERE label = ?",
			Args:    []any{q.Pattern},
			Columns: []string{"id"},
		}, nil
	}
	if err := checkPattern(q.Pattern); err != nil {
		return Relation{}, &Error{Op: "compile", Query: q, Err: err}
	}
	return Relation{
		SQL:     "SELECT id FROM nodes WHERE label = ? OR label LIKE ?",
		Args:    []any{q.Pattern, q.Pattern + "-%"},
		Columns: []string{"id"},
	}, nil
}

// compileAnd joins the two aliased sub-results on their identifying
// columns. SQLite rejects arbitrarily nested INTERSECT compounds, so
// conjunction is a join rather than a set intersection.
func (c *compiler) compileAnd(q *AndExpr) (Relation, error) {
	l, r, err := c.operands(q.Left, q.Right)
	if err != nil {
		return Relation{}, err
	}
	la, ra := c.alias(), c.alias()
	lc := la + "." + quote(l.Column())
	rc := ra + "." + quote(r.Column())
	return Relation{
		SQL: fmt.Sprintf("SELECT %s AS id FROM (%s) AS %s JOIN (%s) AS %s ON %s = %s",
			lc, l.SQL, la, r.SQL, ra, lc, rc),
		Args:    concat(l.Args, r.Args),
		Columns: []string{"id"},
	}, nil
}

func (c *compiler) operands(a, b Query) (Relation, Relation, error) {
	l, err := c.compile(a)
	if err != nil {
		return Relation{}, Relation{}, err
	}
	r, err := c.compile(b)
	if err != nil {
		return Relation{}, Relation{}, err
	}
	return l, r, nil
}

// closure selects the distinct proj column of a closure table whose
// match column is in the inner result and whose distance satisfies cond.
func (c *compiler) closure(inner Query, table, proj, match, cond string) (Relation, error) {
	sub, err := c.compile(inner)
	if err != nil {
		return Relation{}, err
	}
	return Relation{
		SQL: fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s AND %s IN (%s)",
			quote(proj), table, cond, quote(match), project(sub)),
		Args:    sub.Args,
		Columns: []string{proj},
	}, nil
}

// project narrows r to its identifying column for use under IN.
func project(r Relation) string {
	return fmt.Sprintf("SELECT %s FROM (%s)", quote(r.Column()), r.SQL)
}

func checkPattern(p string) error {
	if strings.ContainsAny(p, "%_") {
		return fmt.Errorf("%q contains %% or _: %w", p, ErrIllegalPattern)
	}
	return nil
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func concat(a, b []any) []any {
	out := make([]any, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}
