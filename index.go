package arbor

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jward/arbor/internal/store"
	"github.com/jward/arbor/query"
	"github.com/jward/arbor/tree"
)

// Index is a corpus flattened into the structural index: closure tables
// over every node, answering compiled queries without walking trees.
//
// An Index returned by OpenIndex owns its database. MatchingTrees returns
// read-only views that share the database and carry their own roots;
// closing a view is a no-op.
//
// Trees returned by Root, Reconstitute and ToCorpus are copies. Changing
// them never changes the index.
type Index struct {
	reader store.Reader
	writer *store.Store // nil for views

	mu    sync.Mutex // serializes writers
	roots []int64
	cfg   config
}

// OpenIndex opens or creates the index database at path. An empty path
// gives a private in-memory index that lives until Close.
func OpenIndex(path string, opts ...Option) (*Index, error) {
	s, err := store.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("arbor: open index: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("arbor: open index: %w", err)
	}
	roots, err := s.RootIDs(context.Background())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("arbor: open index: %w", err)
	}
	build, err := s.BuildID(context.Background())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("arbor: open index: %w", err)
	}
	x := &Index{reader: s, writer: s, roots: roots, cfg: newConfig(opts)}
	x.cfg.logger.Debug("opened index", "path", path, "build", build, "trees", len(roots))
	return x, nil
}

// Close releases the database. Closing a view does nothing.
func (x *Index) Close() error {
	if x.writer == nil {
		return nil
	}
	return x.writer.Close()
}

// Len returns the number of root trees.
func (x *Index) Len() int { return len(x.roots) }

// RootIDs returns the node ids of the roots, in insertion order.
func (x *Index) RootIDs() []int64 { return slices.Clone(x.roots) }

// Root reconstitutes the i'th tree.
func (x *Index) Root(ctx context.Context, i int) (*tree.Node, error) {
	if i < 0 || i >= len(x.roots) {
		return nil, fmt.Errorf("arbor: root %d: index out of range [0,%d)", i, len(x.roots))
	}
	return x.Reconstitute(ctx, x.roots[i])
}

// Trees reconstitutes the trees one at a time, in order.
func (x *Index) Trees(ctx context.Context) iter.Seq2[*tree.Node, error] {
	return func(yield func(*tree.Node, error) bool) {
		for _, id := range x.roots {
			t, err := x.Reconstitute(ctx, id)
			if !yield(t, err) || err != nil {
				return
			}
		}
	}
}

// Reconstitute rebuilds the subtree rooted at node id.
func (x *Index) Reconstitute(ctx context.Context, id int64) (*tree.Node, error) {
	t, err := x.reader.Reconstitute(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("arbor: %w", err)
	}
	return t, nil
}

// InsertTree adds one tree and returns its root id.
func (x *Index) InsertTree(ctx context.Context, t *tree.Node) (int64, error) {
	ids, err := x.InsertTrees(ctx, []*tree.Node{t})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertTrees adds trees in one transaction: all of them land or none do.
// Node ids are handed out in pre-order continuing past the index's
// current maximum. It returns the new root ids in input order.
func (x *Index) InsertTrees(ctx context.Context, trees []*tree.Node) (ids []int64, err error) {
	if x.writer == nil {
		return nil, fmt.Errorf("arbor: insert trees: %w", ErrReadOnlyView)
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	ctx, span := startSpan(ctx, "arbor.Index.InsertTrees", attribute.Int("arbor.trees", len(trees)))
	defer func() { endSpan(span, err) }()

	start := time.Now()
	b, err := x.writer.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("arbor: insert trees: %w", err)
	}
	defer b.Rollback()

	ids = make([]int64, 0, len(trees))
	for _, t := range trees {
		before := b.Nodes()
		id, err := b.Insert(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("arbor: %w", err)
		}
		x.cfg.logger.Debug("inserted tree", "root_id", id, "id", t.Metadata().ID(), "nodes", b.Nodes()-before)
		ids = append(ids, id)
	}
	if err := b.Commit(); err != nil {
		return nil, fmt.Errorf("arbor: insert trees: %w", err)
	}
	x.roots = append(x.roots, ids...)

	span.SetAttributes(attribute.Int("arbor.nodes", b.Nodes()))
	x.cfg.logger.Info("indexed trees", "trees", b.Trees(), "nodes", b.Nodes(), "duration", time.Since(start))
	return ids, nil
}

// Compile translates q into SQL over the index relations.
func (x *Index) Compile(q query.Query) (query.Relation, error) {
	return query.Compile(q)
}

// Select returns the ids of the nodes satisfying q, ascending. A view
// only reports nodes of its own trees.
func (x *Index) Select(ctx context.Context, q query.Query) (ids []int64, err error) {
	ctx, span := startSpan(ctx, "arbor.Index.Select", attribute.String("arbor.query", q.String()))
	defer func() { endSpan(span, err) }()

	rel, err := query.Compile(q)
	if err != nil {
		return nil, err
	}
	ids, err = x.reader.Select(ctx, rel, query.Kind(q))
	if err != nil {
		return nil, fmt.Errorf("arbor: select %s: %w", q, err)
	}
	if x.writer == nil {
		if ids, err = x.within(ctx, ids); err != nil {
			return nil, fmt.Errorf("arbor: select %s: %w", q, err)
		}
	}
	span.SetAttributes(attribute.Int("arbor.matches", len(ids)))
	return ids, nil
}

// within keeps the ids whose tree is one of x's roots.
func (x *Index) within(ctx context.Context, ids []int64) ([]int64, error) {
	owners, err := x.reader.RootsOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	mine := make(map[int64]bool, len(x.roots))
	for _, r := range x.roots {
		mine[r] = true
	}
	return slices.DeleteFunc(ids, func(id int64) bool { return !mine[owners[id]] }), nil
}

// MatchingTrees returns a view holding the trees that have at least one
// node satisfying q, in index order. The view shares the relations with
// x; only the root list is new.
func (x *Index) MatchingTrees(ctx context.Context, q query.Query) (view *Index, err error) {
	ctx, span := startSpan(ctx, "arbor.Index.MatchingTrees", attribute.String("arbor.query", q.String()))
	defer func() { endSpan(span, err) }()

	rel, err := query.Compile(q)
	if err != nil {
		return nil, err
	}
	hits, err := x.reader.MatchingRoots(ctx, rel, query.Kind(q))
	if err != nil {
		return nil, fmt.Errorf("arbor: matching trees %s: %w", q, err)
	}
	matched := make(map[int64]bool, len(hits))
	for _, r := range hits {
		matched[r] = true
	}
	view = &Index{reader: x.reader, cfg: x.cfg}
	for _, r := range x.roots {
		if matched[r] {
			view.roots = append(view.roots, r)
		}
	}
	span.SetAttributes(attribute.Int("arbor.trees", len(view.roots)))
	x.cfg.logger.Debug("matched index", "query", q.String(), "trees", len(x.roots), "hits", len(view.roots))
	return view, nil
}

// ToCorpus reconstitutes every tree into an in-memory corpus carrying the
// index's corpus metadata.
func (x *Index) ToCorpus(ctx context.Context) (*Corpus, error) {
	trees := make([]*tree.Node, len(x.roots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.cfg.parallelism)
	for i, id := range x.roots {
		g.Go(func() error {
			t, err := x.reader.Reconstitute(gctx, id)
			if err != nil {
				return err
			}
			trees[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("arbor: to corpus: %w", err)
	}

	md, err := x.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	c := &Corpus{trees: trees, metadata: md, cfg: x.cfg}
	return c, nil
}

// Metadata returns the corpus-level metadata stored with the index.
func (x *Index) Metadata(ctx context.Context) (*tree.Metadata, error) {
	md, err := x.reader.CorpusMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("arbor: %w", err)
	}
	return md, nil
}

// SetMetadata replaces the corpus-level metadata stored with the index.
func (x *Index) SetMetadata(ctx context.Context, md *tree.Metadata) error {
	if x.writer == nil {
		return fmt.Errorf("arbor: set metadata: %w", ErrReadOnlyView)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.writer.SetCorpusMetadata(ctx, md); err != nil {
		return fmt.Errorf("arbor: %w", err)
	}
	return nil
}
