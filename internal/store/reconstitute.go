package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jward/arbor/tree"
)

// ErrNodeNotFound is returned when reconstituting an id the index does
// not hold.
var ErrNodeNotFound = errors.New("node not found")

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// subtree is the raw relational content below one node.
type subtree struct {
	labels   map[int64]string
	children map[int64][]int64
	meta     map[int64][]MetadataRow
}

// Reconstitute rebuilds the subtree rooted at node id. Children are
// ordered by id, which is their original order because ids are assigned
// in pre-order. Leaf text comes back from the reserved text key; other
// metadata is un-flattened into nested maps.
//
// The result is a copy: mutating it never changes the index.
func (s *Store) Reconstitute(ctx context.Context, id int64) (*tree.Node, error) {
	st, err := s.loadSubtree(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reconstitute %d: %w", id, err)
	}
	n, err := st.build(id)
	if err != nil {
		return nil, fmt.Errorf("reconstitute %d: %w", id, err)
	}
	reconstituted.Inc()
	return n, nil
}

func (s *Store) loadSubtree(ctx context.Context, id int64) (*subtree, error) {
	st := &subtree{
		labels:   make(map[int64]string),
		children: make(map[int64][]int64),
		meta:     make(map[int64][]MetadataRow),
	}

	nodes, err := s.queryNodes(ctx,
		`SELECT n.id, n.label FROM dominance d JOIN nodes n ON n.id = d.descendant
		 WHERE d.ancestor = ? ORDER BY n.id`, id)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrNodeNotFound
	}
	for _, n := range nodes {
		st.labels[n.ID] = n.Label
	}

	edges, err := s.queryEdges(ctx,
		`SELECT c.ancestor, c.descendant, c.depth FROM dominance d
		 JOIN dominance c ON c.descendant = d.descendant AND c.depth = 1
		 WHERE d.ancestor = ? AND d.depth > 0
		 ORDER BY c.descendant`, id)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		st.children[e.From] = append(st.children[e.From], e.To)
	}

	rows, err := s.queryMetadata(ctx,
		`SELECT m.node_id, m.key, m.value, m.kind FROM dominance d
		 JOIN metadata m ON m.node_id = d.descendant
		 WHERE d.ancestor = ? ORDER BY m.node_id, m.rowid`, id)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		st.meta[r.NodeID] = append(st.meta[r.NodeID], *r)
	}
	return st, nil
}

func (st *subtree) build(id int64) (*tree.Node, error) {
	md := tree.NewMetadata()
	var text string
	for _, r := range st.meta[id] {
		if r.Key == TextKey {
			text = r.Value
			continue
		}
		v, err := decodeValue(r.Value, r.Kind)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", id, err)
		}
		if err := md.SetPath(r.Key, v); err != nil {
			return nil, fmt.Errorf("node %d: %w", id, err)
		}
	}

	kids := st.children[id]
	children := make([]*tree.Node, 0, len(kids))
	for _, c := range kids {
		cn, err := st.build(c)
		if err != nil {
			return nil, err
		}
		children = append(children, cn)
	}
	return tree.Assemble(st.labels[id], text, children, md)
}

func scanNode(sc scanner) (*Node, error) {
	n := &Node{}
	if err := sc.Scan(&n.ID, &n.Label); err != nil {
		return nil, err
	}
	return n, nil
}

func scanEdge(sc scanner) (*Edge, error) {
	e := &Edge{}
	if err := sc.Scan(&e.From, &e.To, &e.Distance); err != nil {
		return nil, err
	}
	return e, nil
}

func scanMetadata(sc scanner) (*MetadataRow, error) {
	m := &MetadataRow{}
	if err := sc.Scan(&m.NodeID, &m.Key, &m.Value, &m.Kind); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) queryNodes(ctx context.Context, query string, args ...any) ([]*Node, error) {
	return queryRows(ctx, s.db, scanNode, query, args...)
}

func (s *Store) queryEdges(ctx context.Context, query string, args ...any) ([]*Edge, error) {
	return queryRows(ctx, s.db, scanEdge, query, args...)
}

func (s *Store) queryMetadata(ctx context.Context, query string, args ...any) ([]*MetadataRow, error) {
	return queryRows(ctx, s.db, scanMetadata, query, args...)
}

// queryRows runs query and scans every row with scan. Rows are closed
// before returning, releasing the connection.
func queryRows[T any](ctx context.Context, db *sql.DB, scan func(scanner) (*T, error), query string, args ...any) ([]*T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Label returns the label of node id.
func (s *Store) Label(ctx context.Context, id int64) (string, error) {
	n, err := scanNode(s.db.QueryRowContext(ctx, `SELECT id, label FROM nodes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("label %d: %w", id, ErrNodeNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("label %d: %w", id, err)
	}
	return n.Label, nil
}

// Dominance returns the dominance rows with the given ancestor, ordered
// by descendant.
func (s *Store) Dominance(ctx context.Context, ancestor int64) ([]*Edge, error) {
	edges, err := s.queryEdges(ctx,
		`SELECT ancestor, descendant, depth FROM dominance WHERE ancestor = ? ORDER BY descendant`, ancestor)
	if err != nil {
		return nil, fmt.Errorf("dominance %d: %w", ancestor, err)
	}
	return edges, nil
}

// Precedence returns the precedence rows with the given left node,
// ordered by right.
func (s *Store) Precedence(ctx context.Context, left int64) ([]*Edge, error) {
	edges, err := s.queryEdges(ctx,
		`SELECT "left", "right", distance FROM precedence WHERE "left" = ? ORDER BY "right"`, left)
	if err != nil {
		return nil, fmt.Errorf("precedence %d: %w", left, err)
	}
	return edges, nil
}
