package format

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/jward/arbor/tree"
)

// Reader reads bracketed trees one root at a time. A root is either a
// labelled tree, (IP ...), or a label-less wrapper holding one tree plus
// optional (ID x) and (METADATA (K V) ...) entries.
type Reader struct {
	r      *bufio.Reader
	source string
	// Lemmas splits a trailing "-lemma" off leaf text into LEMMA.
	Lemmas bool
}

// NewReader returns a Reader over r. source, when non-empty, is recorded
// as SOURCE metadata on every root.
func NewReader(r io.Reader, source string) *Reader {
	return &Reader{r: bufio.NewReader(r), source: source}
}

// sexpr is either a token or a list.
type sexpr struct {
	tok  string
	list []sexpr
	leaf bool
}

// Next returns the next root tree, or io.EOF when input is exhausted.
func (rd *Reader) Next() (*tree.Node, error) {
	e, err := rd.readExpr()
	if err != nil {
		return nil, err
	}
	if e.leaf {
		return nil, fmt.Errorf("read: stray token %q outside a tree: %w", e.tok, tree.ErrMalformedTree)
	}
	root, err := rd.buildRoot(e.list)
	if err != nil {
		return nil, err
	}
	if rd.source != "" {
		root.Metadata().SetSource(rd.source)
	}
	return root, nil
}

// ReadAll returns every remaining root.
func (rd *Reader) ReadAll() ([]*tree.Node, error) {
	var out []*tree.Node
	for {
		t, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("tree %d: %w", len(out), err)
		}
		out = append(out, t)
	}
}

// Parse reads exactly one tree from s.
func Parse(s string) (*tree.Node, error) {
	t, err := NewReader(strings.NewReader(s), "").Next()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: no tree: %w", tree.ErrMalformedTree)
	}
	return t, err
}

// ParseAll reads every tree in s.
func ParseAll(s string) ([]*tree.Node, error) {
	return NewReader(strings.NewReader(s), "").ReadAll()
}

func (rd *Reader) readExpr() (sexpr, error) {
	var stack [][]sexpr
	for {
		tok, err := rd.token()
		if errors.Is(err, io.EOF) && len(stack) > 0 {
			return sexpr{}, fmt.Errorf("read: unbalanced parentheses: %w", tree.ErrMalformedTree)
		}
		if err != nil {
			return sexpr{}, err
		}
		switch tok {
		case "(":
			stack = append(stack, nil)
		case ")":
			if len(stack) == 0 {
				return sexpr{}, fmt.Errorf("read: unexpected ')': %w", tree.ErrMalformedTree)
			}
			done := sexpr{list: stack[len(stack)-1]}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return done, nil
			}
			stack[len(stack)-1] = append(stack[len(stack)-1], done)
		default:
			if len(stack) == 0 {
				return sexpr{tok: tok, leaf: true}, nil
			}
			stack[len(stack)-1] = append(stack[len(stack)-1], sexpr{tok: tok, leaf: true})
		}
	}
}

func (rd *Reader) token() (string, error) {
	var b strings.Builder
	for {
		r, _, err := rd.r.ReadRune()
		if err != nil {
			if b.Len() > 0 && errors.Is(err, io.EOF) {
				return b.String(), nil
			}
			return "", err
		}
		switch {
		case r == '(' || r == ')':
			if b.Len() > 0 {
				_ = rd.r.UnreadRune()
				return b.String(), nil
			}
			return string(r), nil
		case unicode.IsSpace(r):
			if b.Len() > 0 {
				return b.String(), nil
			}
		default:
			b.WriteRune(r)
		}
	}
}

func (rd *Reader) buildRoot(l []sexpr) (*tree.Node, error) {
	if len(l) > 0 && l[0].leaf {
		return rd.build(l)
	}
	var body []sexpr
	md := tree.NewMetadata()
	id := ""
	for _, e := range l {
		switch {
		case len(e.list) == 2 && e.list[0].tok == tree.KeyID && e.list[1].leaf:
			id = e.list[1].tok
		case len(e.list) > 0 && e.list[0].tok == "METADATA":
			for _, kv := range e.list[1:] {
				if len(kv.list) != 2 || !kv.list[0].leaf || !kv.list[1].leaf {
					return nil, fmt.Errorf("read: bad METADATA entry: %w", tree.ErrMalformedTree)
				}
				if err := md.Set(kv.list[0].tok, kv.list[1].tok); err != nil {
					return nil, fmt.Errorf("read: %w", err)
				}
			}
		default:
			if body != nil {
				return nil, fmt.Errorf("read: root wrapper holds more than one tree: %w", tree.ErrMalformedTree)
			}
			body = e.list
		}
	}
	if body == nil {
		return nil, fmt.Errorf("read: root wrapper holds no tree: %w", tree.ErrMalformedTree)
	}
	t, err := rd.build(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", idOr(id), err)
	}
	for _, e := range md.Flatten() {
		if err := t.Metadata().Set(e.Key, e.Value); err != nil {
			return nil, err
		}
	}
	if id != "" {
		t.Metadata().SetID(id)
	}
	return t, nil
}

func idOr(id string) string {
	if id == "" {
		return tree.AbsentID
	}
	return id
}

func (rd *Reader) build(l []sexpr) (*tree.Node, error) {
	if len(l) < 2 {
		return nil, fmt.Errorf("read: node has too few children: %w", tree.ErrMalformedTree)
	}
	if !l[0].leaf {
		return nil, fmt.Errorf("read: node has no label: %w", tree.ErrMalformedTree)
	}
	label := l[0].tok
	if l[1].leaf {
		if len(l) != 2 {
			return nil, fmt.Errorf("read: leaf %s has too many children: %w", label, tree.ErrMalformedTree)
		}
		return rd.leaf(label, l[1].tok)
	}
	children := make([]*tree.Node, 0, len(l)-1)
	for _, e := range l[1:] {
		if e.leaf {
			return nil, fmt.Errorf("read: %s mixes text and children: %w", label, tree.ErrMalformedTree)
		}
		c, err := rd.build(e.list)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return tree.NewNonTerminal(label, children, nil)
}

func (rd *Reader) leaf(label, text string) (*tree.Node, error) {
	n, err := tree.NewLeaf(label, text, nil)
	if err != nil {
		return nil, err
	}
	if rd.Lemmas && !tree.IsEmptyCategory(n) {
		if i := strings.LastIndex(n.Text(), "-"); i > 0 {
			lemma := n.Text()[i+1:]
			if err := n.SetText(n.Text()[:i]); err != nil {
				return nil, err
			}
			n.Metadata().SetLemma(lemma)
		}
	}
	return n, nil
}
