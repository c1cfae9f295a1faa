package store

import (
	"context"

	"github.com/jward/arbor/query"
	"github.com/jward/arbor/tree"
)

// Reader is the read side of a structural index. Filtered index views
// share one Reader and differ only in their root lists.
type Reader interface {
	RootIDs(ctx context.Context) ([]int64, error)
	Reconstitute(ctx context.Context, id int64) (*tree.Node, error)
	Select(ctx context.Context, rel query.Relation, kind string) ([]int64, error)
	MatchingRoots(ctx context.Context, rel query.Relation, kind string) ([]int64, error)
	RootsOf(ctx context.Context, ids []int64) (map[int64]int64, error)
	CorpusMetadata(ctx context.Context) (*tree.Metadata, error)
}

// Compile-time check: *Store satisfies Reader.
var _ Reader = (*Store)(nil)
