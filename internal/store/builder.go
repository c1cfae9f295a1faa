package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jward/arbor/tree"
)

// Builder inserts trees into the index inside one transaction. It owns
// the node-id counter: ids are handed out in pre-order, strictly
// increasing, so reconstitution can order children by id.
//
// A Builder holds the Store's only connection until Commit or Rollback.
// Only one Builder may be open per Store, and the Store must not be
// read from while it is.
type Builder struct {
	tx      *sql.Tx
	nextID  int64
	nextOrd int64

	insNode *sql.Stmt
	insDom  *sql.Stmt
	insPrec *sql.Stmt
	insMeta *sql.Stmt
	insRoot *sql.Stmt

	trees int
	nodes int
}

// Begin opens a transaction and seeds the id counter past every node
// already in the index.
func (s *Store) Begin(ctx context.Context) (*Builder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	b := &Builder{tx: tx}
	if err := b.init(ctx); err != nil {
		tx.Rollback()
		return nil, err
	}
	return b, nil
}

func (b *Builder) init(ctx context.Context) error {
	var maxID, maxOrd sql.NullInt64
	if err := b.tx.QueryRowContext(ctx, `SELECT MAX(id) FROM nodes`).Scan(&maxID); err != nil {
		return fmt.Errorf("begin: max node id: %w", err)
	}
	if err := b.tx.QueryRowContext(ctx, `SELECT MAX(ordinal) FROM roots`).Scan(&maxOrd); err != nil {
		return fmt.Errorf("begin: max root ordinal: %w", err)
	}
	b.nextID = maxID.Int64 + 1
	b.nextOrd = maxOrd.Int64 + 1

	stmts := []struct {
		dst **sql.Stmt
		sql string
	}{
		{&b.insNode, `INSERT INTO nodes (id, label) VALUES (?, ?)`},
		{&b.insDom, `INSERT INTO dominance (ancestor, descendant, depth) VALUES (?, ?, ?)`},
		{&b.insPrec, `INSERT INTO precedence ("left", "right", distance) VALUES (?, ?, ?)`},
		{&b.insMeta, `INSERT INTO metadata (node_id, key, value, kind) VALUES (?, ?, ?, ?)`},
		{&b.insRoot, `INSERT INTO roots (ordinal, node_id) VALUES (?, ?)`},
	}
	for _, st := range stmts {
		p, err := b.tx.PrepareContext(ctx, st.sql)
		if err != nil {
			return fmt.Errorf("begin: prepare: %w", err)
		}
		*st.dst = p
	}
	return nil
}

// Insert writes root and its subtree and appends it to the roots
// relation. It returns the root's node id.
func (b *Builder) Insert(ctx context.Context, root *tree.Node) (int64, error) {
	start := time.Now()
	before := b.nodes
	id, err := b.insertNode(ctx, root, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("insert tree %s: %w", root.Metadata().ID(), err)
	}
	if _, err := b.insRoot.ExecContext(ctx, b.nextOrd, id); err != nil {
		return 0, fmt.Errorf("insert tree %s: root: %w", root.Metadata().ID(), err)
	}
	b.nextOrd++
	b.trees++
	insertDuration.Observe(time.Since(start).Seconds())
	nodesInserted.Add(float64(b.nodes - before))
	return id, nil
}

// insertNode writes n with the next id. ancestors and left hold the ids
// of n's ancestors and left sisters, nearest first, so closure rows come
// straight from the lists.
func (b *Builder) insertNode(ctx context.Context, n *tree.Node, ancestors, left []int64) (int64, error) {
	id := b.nextID
	b.nextID++
	b.nodes++

	if _, err := b.insNode.ExecContext(ctx, id, n.Label()); err != nil {
		return 0, fmt.Errorf("node %d: %w", id, err)
	}
	if _, err := b.insDom.ExecContext(ctx, id, id, 0); err != nil {
		return 0, fmt.Errorf("node %d: dominance: %w", id, err)
	}
	for d, a := range ancestors {
		if _, err := b.insDom.ExecContext(ctx, a, id, d+1); err != nil {
			return 0, fmt.Errorf("node %d: dominance: %w", id, err)
		}
	}
	if _, err := b.insPrec.ExecContext(ctx, id, id, 0); err != nil {
		return 0, fmt.Errorf("node %d: precedence: %w", id, err)
	}
	for d, s := range left {
		if _, err := b.insPrec.ExecContext(ctx, s, id, d+1); err != nil {
			return 0, fmt.Errorf("node %d: precedence: %w", id, err)
		}
	}

	switch n.Kind() {
	case tree.KindLeaf:
		if _, err := b.insMeta.ExecContext(ctx, id, TextKey, n.Text(), kindString); err != nil {
			return 0, fmt.Errorf("node %d: text: %w", id, err)
		}
	case tree.KindNonTerminal:
	default:
		return 0, fmt.Errorf("node %d: unknown kind %v", id, n.Kind())
	}
	for _, e := range n.Metadata().Flatten() {
		value, kind, err := encodeValue(e.Value)
		if err != nil {
			return 0, fmt.Errorf("node %d: metadata %s: %w", id, e.Key, err)
		}
		if _, err := b.insMeta.ExecContext(ctx, id, e.Key, value, kind); err != nil {
			return 0, fmt.Errorf("node %d: metadata %s: %w", id, e.Key, err)
		}
	}

	down := prepend(id, ancestors)
	var sisters []int64
	for _, c := range n.Children() {
		cid, err := b.insertNode(ctx, c, down, sisters)
		if err != nil {
			return 0, err
		}
		sisters = prepend(cid, sisters)
	}
	return id, nil
}

// Trees returns the number of trees inserted so far.
func (b *Builder) Trees() int { return b.trees }

// Nodes returns the number of nodes inserted so far.
func (b *Builder) Nodes() int { return b.nodes }

// Commit makes every inserted tree visible.
func (b *Builder) Commit() error {
	b.closeStmts()
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards every inserted tree. Calling it after Commit is a
// no-op.
func (b *Builder) Rollback() error {
	b.closeStmts()
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func (b *Builder) closeStmts() {
	for _, st := range []*sql.Stmt{b.insNode, b.insDom, b.insPrec, b.insMeta, b.insRoot} {
		if st != nil {
			st.Close()
		}
	}
}

// InsertTrees inserts trees in one transaction: either all land or none
// do. It returns the root ids in input order.
func (s *Store) InsertTrees(ctx context.Context, trees []*tree.Node) ([]int64, error) {
	b, err := s.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer b.Rollback()

	ids := make([]int64, 0, len(trees))
	for _, t := range trees {
		id, err := b.Insert(ctx, t)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := b.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}
