package arbor

import (
	"context"
	"fmt"
	"io"
	"iter"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/jward/arbor/format"
	"github.com/jward/arbor/internal/runtime"
	"github.com/jward/arbor/query"
	"github.com/jward/arbor/tree"
)

// Corpus is an ordered, mutable sequence of root trees plus corpus-level
// metadata. It owns its trees: every tree in it is a root, and mutating a
// tree through the corpus mutates it in place.
type Corpus struct {
	trees    []*tree.Node
	metadata *tree.Metadata
	opts     []Option
	cfg      config
}

// NewCorpus returns a corpus holding trees, in order.
func NewCorpus(trees []*tree.Node, opts ...Option) (*Corpus, error) {
	c := &Corpus{metadata: tree.NewMetadata(), opts: opts, cfg: newConfig(opts)}
	for _, t := range trees {
		if err := c.Append(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ReadCorpus reads every bracketed tree from r. source, when non-empty, is
// recorded as each tree's SOURCE.
func ReadCorpus(r io.Reader, source string, opts ...Option) (*Corpus, error) {
	trees, err := format.NewReader(r, source).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", source, err)
	}
	return NewCorpus(trees, opts...)
}

// Len returns the number of trees.
func (c *Corpus) Len() int { return len(c.trees) }

// At returns the i'th tree. It panics if i is out of range.
func (c *Corpus) At(i int) *tree.Node { return c.trees[i] }

// Trees iterates over the trees in order.
func (c *Corpus) Trees() iter.Seq[*tree.Node] { return slices.Values(c.trees) }

// Metadata returns the corpus-level metadata. It is live: changes are
// seen by the corpus.
func (c *Corpus) Metadata() *tree.Metadata { return c.metadata }

// Append adds t at the end.
func (c *Corpus) Append(t *tree.Node) error {
	return c.Insert(len(c.trees), t)
}

// Insert places t before position i.
func (c *Corpus) Insert(i int, t *tree.Node) error {
	if err := checkRoot(t); err != nil {
		return fmt.Errorf("insert at %d: %w", i, err)
	}
	if i < 0 || i > len(c.trees) {
		return fmt.Errorf("insert at %d: index out of range [0,%d]", i, len(c.trees))
	}
	c.trees = slices.Insert(c.trees, i, t)
	return nil
}

// Delete removes and returns the i'th tree.
func (c *Corpus) Delete(i int) (*tree.Node, error) {
	if i < 0 || i >= len(c.trees) {
		return nil, fmt.Errorf("delete %d: index out of range [0,%d)", i, len(c.trees))
	}
	t := c.trees[i]
	c.trees = slices.Delete(c.trees, i, i+1)
	return t, nil
}

// Replace puts t at position i and returns the tree it displaced.
func (c *Corpus) Replace(i int, t *tree.Node) (*tree.Node, error) {
	if err := checkRoot(t); err != nil {
		return nil, fmt.Errorf("replace %d: %w", i, err)
	}
	if i < 0 || i >= len(c.trees) {
		return nil, fmt.Errorf("replace %d: index out of range [0,%d)", i, len(c.trees))
	}
	old := c.trees[i]
	c.trees[i] = t
	return old, nil
}

func checkRoot(t *tree.Node) error {
	if t == nil {
		return fmt.Errorf("nil tree: %w", tree.ErrInvariantViolation)
	}
	if t.Parent() != nil {
		return fmt.Errorf("tree %s has a parent: %w", t.Root().Metadata().ID(), tree.ErrInvariantViolation)
	}
	return nil
}

// MatchingTrees returns the trees having at least one node that satisfies
// q, in corpus order. Trees are matched concurrently and must not be
// mutated meanwhile. The result shares its trees with c.
func (c *Corpus) MatchingTrees(ctx context.Context, q query.Query) (*Corpus, error) {
	hits := make([]bool, len(c.trees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.parallelism)
	for i, t := range c.trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := query.MatchTree(q, t)
			if err != nil {
				return fmt.Errorf("tree %d (%s): %w", i, t.Metadata().ID(), err)
			}
			hits[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("matching trees %s: %w", q, err)
	}

	out := &Corpus{metadata: c.metadata.Clone(), opts: c.opts, cfg: c.cfg}
	for i, hit := range hits {
		if hit {
			out.trees = append(out.trees, c.trees[i])
		}
	}
	c.cfg.logger.Debug("matched corpus", "query", q.String(), "trees", len(c.trees), "hits", len(out.trees))
	return out, nil
}

// Select returns every node satisfying q, tree by tree in pre-order.
func (c *Corpus) Select(ctx context.Context, q query.Query) ([]*tree.Node, error) {
	var out []*tree.Node
	for i, t := range c.trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nodes, err := query.Select(q, t)
		if err != nil {
			return nil, fmt.Errorf("select %s in tree %d: %w", q, i, err)
		}
		out = append(out, nodes...)
	}
	return out, nil
}

// Colorize marks every tree with the sub-expressions of q that matched
// each node and returns the group colors.
func (c *Corpus) Colorize(q query.Query) (*query.Highlight, error) {
	h, err := query.NewHighlight(q)
	if err != nil {
		return nil, err
	}
	for i, t := range c.trees {
		if err := h.Mark(t); err != nil {
			return nil, fmt.Errorf("colorize tree %d: %w", i, err)
		}
	}
	return h, nil
}

// EnsureIDs gives every tree without an ID one derived from its urtext.
func (c *Corpus) EnsureIDs() {
	for _, t := range c.trees {
		tree.EnsureID(t)
	}
}

// Transform runs the named Risor script over every tree in order. Trees
// already transformed keep their changes if a later tree fails.
func (c *Corpus) Transform(ctx context.Context, script string) error {
	var rtOpts []runtime.RuntimeOption
	if c.cfg.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(c.cfg.scriptsFS))
	}
	rtOpts = append(rtOpts, runtime.WithLogger(c.cfg.logger))
	rt := runtime.NewRuntime(c.cfg.scriptsDir, rtOpts...)

	for i, t := range c.trees {
		if err := rt.Transform(ctx, script, t); err != nil {
			return fmt.Errorf("transform %s: tree %d (%s): %w", script, i, t.Metadata().ID(), err)
		}
	}
	c.cfg.logger.Debug("transformed corpus", "script", script, "trees", len(c.trees))
	return nil
}

// Write renders the corpus to w with f.
func (c *Corpus) Write(w io.Writer, f format.Formatter) error {
	return format.Format(w, f, c.trees...)
}

// ToIndex writes every tree into a fresh index at path ("" for a private
// in-memory index) in one transaction and copies the corpus metadata.
// An existing index at path must be empty. The corpus's options are
// applied before opts.
func (c *Corpus) ToIndex(ctx context.Context, path string, opts ...Option) (*Index, error) {
	x, err := OpenIndex(path, append(slices.Clone(c.opts), opts...)...)
	if err != nil {
		return nil, err
	}
	if n := x.Len(); n > 0 {
		x.Close()
		return nil, fmt.Errorf("arbor: to index %s: %d trees present: %w", path, n, ErrIndexNotEmpty)
	}
	if _, err := x.InsertTrees(ctx, c.trees); err != nil {
		x.Close()
		return nil, err
	}
	if c.metadata.Len() > 0 {
		if err := x.SetMetadata(ctx, c.metadata); err != nil {
			x.Close()
			return nil, err
		}
	}
	return x, nil
}
