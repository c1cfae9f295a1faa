// Package query implements the structural query algebra over constituency
// trees.
//
// A Query is an immutable expression built from leaf predicates (Label,
// DashTag, Text) combined with boolean operators (And, Or, Not) and
// structural wrappers (Idoms, Doms, Sprec, Isprec). Every expression has
// two interpretations that agree on any tree:
//
//   - Match evaluates it directly against an in-memory *tree.Node.
//   - Compile translates it into a SQL relation over the closure tables
//     of a structural index, yielding the ids of matching nodes.
//
// # Marking
//
// Colorize evaluates a query over every node of a tree in marking mode,
// recording on each node which numbered sub-expressions matched it, and
// assigns a palette color to each highlightable group. Sub-expressions
// are numbered by Enumerate in post-order.
//
// # Sugar
//
// Precedes, ImmediatelyPrecedes and ImmediatelyDominates expand a list of
// right-hand operands into a conjunction of Sprec, Isprec or Idoms
// predicates:
//
//	query.ImmediatelyDominates(query.Label("NP"), query.Label("D"), query.Label("N"))
//	// (label("NP") & (idoms(label("D")) & idoms(label("N"))))
package query
