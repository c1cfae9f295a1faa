// Package arbor queries constituency treebanks, either by walking trees in
// memory or through a SQLite structural index built from them.
//
// # Model
//
// Trees come from the tree package: a node is a Leaf (label and text) or a
// NonTerminal (label and ordered children), each with ordered metadata.
// A [Corpus] is an ordered sequence of root trees. An [Index] flattens a
// corpus into five relations:
//
//   - nodes(id, label)
//   - dominance(ancestor, descendant, depth), reflexive and transitive
//   - precedence(left, right, distance) between sisters, reflexive and transitive
//   - metadata(node_id, key, value, kind), leaf text under the key "text"
//   - roots(ordinal, node_id)
//
// Node ids are assigned in pre-order, so reconstitution orders children by
// id.
//
// # Queries
//
// Queries are built with the query package and run against either form:
//
//	q := query.And(query.Label("NP"), query.Idoms(query.Label("ADJ")))
//
//	hits, err := corpus.MatchingTrees(ctx, q) // direct evaluation
//	view, err := index.MatchingTrees(ctx, q)  // compiled to SQL
//
// Both paths return the same trees. Constructs with no SQL form, such as
// regular-expression labels, fail with query.ErrUnsupportedInIndexMode
// rather than matching nothing.
//
// # Usage
//
//	f, _ := os.Open("ycoe.psd")
//	c, err := arbor.ReadCorpus(f, "ycoe.psd")
//	if err != nil { ... }
//
//	x, err := c.ToIndex(ctx, "ycoe.db", arbor.WithLogger(logger))
//	if err != nil { ... }
//	defer x.Close()
//
//	ids, err := x.Select(ctx, query.DashTag("SBJ"))
//
// # Concurrency
//
// An Index has a single writer: InsertTrees calls are serialized and run
// in one transaction. Reads may run concurrently once writing has
// stopped. Corpus.MatchingTrees evaluates trees in parallel, bounded by
// [WithParallelism]; trees must not be mutated while it runs.
//
// # Transforms
//
// [Corpus.Transform] runs a Risor script over every tree. Bundled scripts
// live in the scripts package; select them with [WithScriptsFS].
package arbor
