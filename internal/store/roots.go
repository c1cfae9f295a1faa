package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jward/arbor/query"
	"github.com/jward/arbor/tree"
)

// RootIDs returns the root node ids in insertion order.
func (s *Store) RootIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT node_id FROM roots ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("root ids: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("root ids: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Select runs a compiled relation and returns the matching node ids in
// ascending order. kind labels the query duration metric.
func (s *Store) Select(ctx context.Context, rel query.Relation, kind string) ([]int64, error) {
	start := time.Now()
	defer func() { queryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds()) }()

	sqlText, args := rel.Ordered()
	ids, err := s.queryIDs(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return ids, nil
}

// MatchingRoots returns, in insertion order, the roots that dominate at
// least one node of rel.
func (s *Store) MatchingRoots(ctx context.Context, rel query.Relation, kind string) ([]int64, error) {
	start := time.Now()
	defer func() { queryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds()) }()

	sqlText := fmt.Sprintf(
		`SELECT r.node_id FROM roots r
		 WHERE EXISTS (
		   SELECT 1 FROM dominance d
		   WHERE d.ancestor = r.node_id AND d.descendant IN (SELECT "%s" FROM (%s))
		 )
		 ORDER BY r.ordinal`, rel.Column(), rel.SQL)
	ids, err := s.queryIDs(ctx, sqlText, rel.Args...)
	if err != nil {
		return nil, fmt.Errorf("matching roots: %w", err)
	}
	return ids, nil
}

// RootsOf maps every id in ids to the root of its tree. Unknown ids are
// absent from the result.
func (s *Store) RootsOf(ctx context.Context, ids []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(ids))
	for _, part := range chunk(ids, maxVariables) {
		edges, err := s.queryEdges(ctx,
			fmt.Sprintf(`SELECT d.ancestor, d.descendant, d.depth FROM dominance d
			 JOIN roots r ON r.node_id = d.ancestor
			 WHERE d.descendant IN (%s)`, placeholderList(len(part))),
			int64sToArgs(part)...)
		if err != nil {
			return nil, fmt.Errorf("roots of: %w", err)
		}
		for _, e := range edges {
			out[e.To] = e.From
		}
	}
	return out, nil
}

func (s *Store) queryIDs(ctx context.Context, sqlText string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CorpusMetadata returns the corpus-level metadata.
func (s *Store) CorpusMetadata(ctx context.Context) (*tree.Metadata, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, kind FROM corpus_metadata ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("corpus metadata: %w", err)
	}
	defer rows.Close()
	md := tree.NewMetadata()
	for rows.Next() {
		var key, value, kind string
		if err := rows.Scan(&key, &value, &kind); err != nil {
			return nil, fmt.Errorf("corpus metadata: scan: %w", err)
		}
		v, err := decodeValue(value, kind)
		if err != nil {
			return nil, fmt.Errorf("corpus metadata %s: %w", key, err)
		}
		if err := md.SetPath(key, v); err != nil {
			return nil, fmt.Errorf("corpus metadata: %w", err)
		}
	}
	return md, rows.Err()
}

// SetCorpusMetadata replaces the corpus-level metadata.
func (s *Store) SetCorpusMetadata(ctx context.Context, md *tree.Metadata) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set corpus metadata: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_metadata`); err != nil {
		return fmt.Errorf("set corpus metadata: clear: %w", err)
	}
	for _, e := range md.Flatten() {
		value, kind, err := encodeValue(e.Value)
		if err != nil {
			return fmt.Errorf("set corpus metadata %s: %w", e.Key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO corpus_metadata (key, value, kind) VALUES (?, ?, ?)`, e.Key, value, kind); err != nil {
			return fmt.Errorf("set corpus metadata %s: %w", e.Key, err)
		}
	}
	return tx.Commit()
}
