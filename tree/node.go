package tree

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Kind discriminates the two node variants.
type Kind uint8

const (
	KindLeaf Kind = iota + 1
	KindNonTerminal
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindNonTerminal:
		return "nonterminal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Node is a constituency tree node: either a Leaf carrying text or a
// NonTerminal carrying one or more ordered children.
//
// Children are owned top-down. The parent link is a non-owning back
// pointer maintained by the splicing methods; a node is never listed as
// a child of two parents.
type Node struct {
	kind     Kind
	label    string
	text     string
	children []*Node
	parent   *Node
	metadata *Metadata
	matches  []int
}

// NewLeaf builds a leaf. A trailing movement index is taken from text
// when text is a trace (*T*-1), otherwise from label (NP-SBJ-1).
func NewLeaf(label, text string, md *Metadata) (*Node, error) {
	n := &Node{kind: KindLeaf, text: strings.TrimSpace(text), metadata: orEmpty(md)}
	var err error
	if IsTraceString(n.text) {
		n.text, err = n.takeIndex(n.text)
		n.label = strings.TrimSpace(label)
	} else {
		n.label, err = n.takeIndex(strings.TrimSpace(label))
	}
	if err != nil {
		return nil, fmt.Errorf("new leaf: %w", err)
	}
	if n.label == "" {
		return nil, fmt.Errorf("new leaf %q: empty label: %w", text, ErrMalformedTree)
	}
	return n, nil
}

// NewNonTerminal builds a non-terminal over children, detaching each
// child from any previous parent.
func NewNonTerminal(label string, children []*Node, md *Metadata) (*Node, error) {
	return newNonTerminal(label, children, md, true)
}

// Assemble builds a node exactly as given, without movement-index
// parsing: a leaf when children is empty, otherwise a non-terminal. It is
// meant for rebuilding trees from a serialized form that already carries
// INDEX metadata.
func Assemble(label, text string, children []*Node, md *Metadata) (*Node, error) {
	if len(children) > 0 {
		return newNonTerminal(label, children, md, false)
	}
	n := &Node{kind: KindLeaf, label: strings.TrimSpace(label), text: text, metadata: orEmpty(md)}
	if n.label == "" {
		return nil, fmt.Errorf("assemble leaf %q: empty label: %w", text, ErrMalformedTree)
	}
	return n, nil
}

func newNonTerminal(label string, children []*Node, md *Metadata, parse bool) (*Node, error) {
	n := &Node{kind: KindNonTerminal, metadata: orEmpty(md), label: strings.TrimSpace(label)}
	if parse {
		var err error
		if n.label, err = n.takeIndex(n.label); err != nil {
			return nil, fmt.Errorf("new nonterminal: %w", err)
		}
	}
	if n.label == "" {
		return nil, fmt.Errorf("new nonterminal: empty label: %w", ErrMalformedTree)
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("new nonterminal %s: no children: %w", n.label, ErrMalformedTree)
	}
	leaving := map[*Node]int{}
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("new nonterminal %s: child %d is nil: %w", n.label, i, ErrMalformedTree)
		}
		if slices.Contains(children[:i], c) {
			return nil, fmt.Errorf("new nonterminal %s: child %d repeated: %w", n.label, i, ErrMalformedTree)
		}
		if c.parent != nil {
			leaving[c.parent]++
		}
	}
	// Nothing moves unless every old parent keeps a child.
	for p, k := range leaving {
		if k == len(p.children) {
			return nil, fmt.Errorf("new nonterminal %s: would leave %s childless: %w", n.label, p.label, ErrMalformedTree)
		}
	}
	for _, c := range children {
		if err := c.detach(); err != nil {
			return nil, err
		}
		c.parent = n
	}
	n.children = slices.Clone(children)
	return n, nil
}

func (n *Node) takeIndex(s string) (string, error) {
	base, typ, idx, ok, err := LabelAndIndex(s)
	if err != nil {
		return "", err
	}
	if ok {
		n.metadata.SetIndex(idx, typ)
	}
	return base, nil
}

func orEmpty(md *Metadata) *Metadata {
	if md == nil {
		return NewMetadata()
	}
	return md
}

// Kind returns the variant discriminant.
func (n *Node) Kind() Kind { return n.kind }

// IsLeaf reports whether n is a Leaf.
func (n *Node) IsLeaf() bool { return n.kind == KindLeaf }

// IsNonTerminal reports whether n is a NonTerminal.
func (n *Node) IsNonTerminal() bool { return n.kind == KindNonTerminal }

// Label returns the node label without any movement index.
func (n *Node) Label() string { return n.label }

// SetLabel replaces the label. Empty labels are rejected.
func (n *Node) SetLabel(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("set label: %w", ErrMalformedTree)
	}
	n.label = label
	return nil
}

// Text returns leaf text; non-terminals have none.
func (n *Node) Text() string { return n.text }

// SetText replaces leaf text.
func (n *Node) SetText(text string) error {
	if !n.IsLeaf() {
		return fmt.Errorf("set text on %s: not a leaf: %w", n.label, ErrMalformedTree)
	}
	n.text = text
	return nil
}

// Metadata returns the node's metadata, never nil.
func (n *Node) Metadata() *Metadata { return n.metadata }

// SetMetadata replaces the node's metadata; nil clears it.
func (n *Node) SetMetadata(md *Metadata) { n.metadata = orEmpty(md) }

// ---- Navigation ----

// Parent returns the enclosing node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the ordered children. The slice is a copy; use the
// splicing methods to change the tree.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// Len returns the number of children.
func (n *Node) Len() int { return len(n.children) }

// Child returns the i'th child.
func (n *Node) Child(i int) *Node { return n.children[i] }

// Root walks parent links to the top of the tree.
func (n *Node) Root() *Node {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// ParentIndex returns n's position among its parent's children, or -1
// for a root. A parent that does not list n is an invariant violation.
func (n *Node) ParentIndex() (int, error) {
	if n.parent == nil {
		return -1, nil
	}
	for i, c := range n.parent.children {
		if c == n {
			return i, nil
		}
	}
	return 0, fmt.Errorf("node %s missing from parent %s: %w", n.label, n.parent.label, ErrInvariantViolation)
}

// LeftSibling returns the sister immediately before n, or nil.
func (n *Node) LeftSibling() (*Node, error) {
	i, err := n.ParentIndex()
	if err != nil || i <= 0 {
		return nil, err
	}
	return n.parent.children[i-1], nil
}

// RightSibling returns the sister immediately after n, or nil.
func (n *Node) RightSibling() (*Node, error) {
	i, err := n.ParentIndex()
	if err != nil || i < 0 || i >= len(n.parent.children)-1 {
		return nil, err
	}
	return n.parent.children[i+1], nil
}

// Nodes yields n and every node below it in depth-first pre-order.
func (n *Node) Nodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield)
	}
}

func (n *Node) walk(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, c := range n.children {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

// ---- Splicing ----

// Append adds child as the last child of n.
func (n *Node) Append(child *Node) error {
	return n.Insert(len(n.children), child)
}

// Insert places child at position i, detaching it from its old parent.
func (n *Node) Insert(i int, child *Node) error {
	if err := n.adoptable(child); err != nil {
		return err
	}
	if i < 0 || i > len(n.children) {
		return fmt.Errorf("insert into %s: index %d out of range", n.label, i)
	}
	if err := child.detach(); err != nil {
		return err
	}
	// detaching may have shifted n's own children
	i = min(i, len(n.children))
	n.children = slices.Insert(n.children, i, child)
	child.parent = n
	return nil
}

// Remove detaches and returns the i'th child. A non-terminal keeps at
// least one child.
func (n *Node) Remove(i int) (*Node, error) {
	if i < 0 || i >= len(n.children) {
		return nil, fmt.Errorf("remove from %s: index %d out of range", n.label, i)
	}
	if len(n.children) == 1 {
		return nil, fmt.Errorf("remove last child of %s: %w", n.label, ErrMalformedTree)
	}
	c := n.children[i]
	n.children = slices.Delete(n.children, i, i+1)
	c.parent = nil
	return c, nil
}

// Replace swaps the i'th child for child and returns the old one.
func (n *Node) Replace(i int, child *Node) (*Node, error) {
	if err := n.adoptable(child); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(n.children) {
		return nil, fmt.Errorf("replace in %s: index %d out of range", n.label, i)
	}
	old := n.children[i]
	if old == child {
		return old, nil
	}
	if err := child.detach(); err != nil {
		return nil, err
	}
	// detaching may have shifted n's own children
	i = slices.Index(n.children, old)
	n.children[i] = child
	child.parent = n
	old.parent = nil
	return old, nil
}

func (n *Node) adoptable(child *Node) error {
	if !n.IsNonTerminal() {
		return fmt.Errorf("splice into leaf %s: %w", n.label, ErrMalformedTree)
	}
	if child == nil {
		return fmt.Errorf("splice nil child into %s: %w", n.label, ErrMalformedTree)
	}
	for a := n; a != nil; a = a.parent {
		if a == child {
			return fmt.Errorf("splice %s into its own subtree: %w", child.label, ErrInvariantViolation)
		}
	}
	return nil
}

// detach severs n from its parent. Leaving the parent childless is refused.
func (n *Node) detach() error {
	if n.parent == nil {
		return nil
	}
	i, err := n.ParentIndex()
	if err != nil {
		return err
	}
	p := n.parent
	if len(p.children) == 1 {
		return fmt.Errorf("move %s out of %s: would leave it childless: %w", n.label, p.label, ErrMalformedTree)
	}
	p.children = slices.Delete(p.children, i, i+1)
	n.parent = nil
	return nil
}

// ---- Match marks ----

// AddMatch records that the query sub-expression numbered idx matched n.
func (n *Node) AddMatch(idx int) {
	if i, found := slices.BinarySearch(n.matches, idx); !found {
		n.matches = slices.Insert(n.matches, i, idx)
	}
}

// Matches returns the recorded sub-expression numbers in ascending order.
func (n *Node) Matches() []int { return slices.Clone(n.matches) }

// ClearMatches forgets recorded matches.
func (n *Node) ClearMatches() { n.matches = nil }

// ---- Equality ----

// Equal reports structural equality: same variant, label, metadata, text
// and children in order. Parents and match marks are ignored.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.kind != o.kind || n.label != o.label || n.text != o.text || !n.metadata.Equal(o.metadata) {
		return false
	}
	if len(n.children) != len(o.children) {
		return false
	}
	for i := range n.children {
		if !n.children[i].Equal(o.children[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep, parentless copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	c := &Node{kind: n.kind, label: n.label, text: n.text, metadata: n.metadata.Clone()}
	for _, ch := range n.children {
		cc := ch.Clone()
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c
}
