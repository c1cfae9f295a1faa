package main

import (
	"fmt"
	"os"
	"regexp"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
	"github.com/jward/arbor/query"
	"github.com/jward/arbor/tree"
)

// queryFlags holds the query-building flags. Every set flag adds one
// conjunct.
type queryFlags struct {
	file    string
	label   string
	exact   string
	regexp  string
	dashTag string
	text    string
	idoms   string
	doms    string
	sprec   string
	isprec  string
}

var (
	flagQuery  queryFlags
	flagDirect bool
	flagNodes  bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find trees or nodes matching a structural query",
	Long: `Builds a query from a YAML file (-f) or from flags, which are joined with AND.
Structural flags take a label: --idoms NP matches nodes with an NP child.

By default the query is compiled to SQL over the index. --direct instead
reconstitutes every tree and walks it, which also allows --regexp.`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVarP(&flagQuery.file, "file", "f", "", "read the query from a YAML file")
	f.StringVar(&flagQuery.label, "label", "", "label, or label with dash tags")
	f.StringVar(&flagQuery.exact, "exact-label", "", "label, matched exactly")
	f.StringVar(&flagQuery.regexp, "regexp", "", "label regular expression (--direct only)")
	f.StringVar(&flagQuery.dashTag, "dash-tag", "", "dash tag anywhere in the label")
	f.StringVar(&flagQuery.text, "text", "", "leaf text")
	f.StringVar(&flagQuery.idoms, "idoms", "", "has a child with this label")
	f.StringVar(&flagQuery.doms, "doms", "", "has a descendant with this label")
	f.StringVar(&flagQuery.sprec, "sprec", "", "has a later sister with this label")
	f.StringVar(&flagQuery.isprec, "isprec", "", "is immediately followed by a sister with this label")
	f.BoolVar(&flagDirect, "direct", false, "walk the trees instead of querying the index")
	f.BoolVar(&flagNodes, "nodes", false, "print the matching nodes instead of their trees")
}

// buildQuery turns the query flags into a query.
func buildQuery(qf queryFlags) (query.Query, error) {
	if qf.file != "" {
		data, err := os.ReadFile(qf.file)
		if err != nil {
			return nil, err
		}
		return query.ParseYAML(data)
	}

	var terms []query.Query
	add := func(v string, build func(string) query.Query) {
		if v != "" {
			terms = append(terms, build(v))
		}
	}
	add(qf.label, func(s string) query.Query { return query.Label(s) })
	add(qf.exact, func(s string) query.Query { return query.ExactLabel(s) })
	if qf.regexp != "" {
		re, err := regexp.Compile(qf.regexp)
		if err != nil {
			return nil, fmt.Errorf("invalid --regexp: %w", err)
		}
		terms = append(terms, query.LabelRegexp(re))
	}
	add(qf.dashTag, func(s string) query.Query { return query.DashTag(s) })
	add(qf.text, func(s string) query.Query { return query.Text(s) })
	add(qf.idoms, func(s string) query.Query { return query.Idoms(query.Label(s)) })
	add(qf.doms, func(s string) query.Query { return query.Doms(query.Label(s)) })
	add(qf.sprec, func(s string) query.Query { return query.Sprec(query.Label(s)) })
	add(qf.isprec, func(s string) query.Query { return query.Isprec(query.Label(s)) })

	switch len(terms) {
	case 0:
		return nil, fmt.Errorf("no query: pass -f or at least one query flag")
	case 1:
		return terms[0], nil
	default:
		return query.And(terms[0], terms[1], terms[2:]...), nil
	}
}

func runQuery(cmd *cobra.Command, _ []string) error {
	q, err := buildQuery(flagQuery)
	if err != nil {
		return outputError(cmd, "query", err)
	}
	x, err := openIndex()
	if err != nil {
		return outputError(cmd, "query", err)
	}
	defer x.Close()

	if flagDirect {
		err = queryDirect(cmd, x, q)
	} else {
		err = queryIndex(cmd, x, q)
	}
	if err != nil {
		return outputError(cmd, "query", err)
	}
	return nil
}

func queryIndex(cmd *cobra.Command, x *arbor.Index, q query.Query) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if flagNodes {
		ids, err := x.Select(ctx, q)
		if err != nil {
			return err
		}
		if flagFormat == "ids" {
			return outputIDs(w, "query", ids)
		}
		nodes := make([]*tree.Node, 0, len(ids))
		for _, id := range ids {
			n, err := x.Reconstitute(ctx, id)
			if err != nil {
				return err
			}
			nodes = append(nodes, n)
		}
		return writeNodes(w, nodes)
	}

	view, err := x.MatchingTrees(ctx, q)
	if err != nil {
		return err
	}
	if flagFormat == "ids" {
		return outputIDs(w, "query", view.RootIDs())
	}
	c, err := view.ToCorpus(ctx)
	if err != nil {
		return err
	}
	return writeTrees(w, slices.Collect(c.Trees()))
}

func queryDirect(cmd *cobra.Command, x *arbor.Index, q query.Query) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	if flagFormat == "ids" {
		return fmt.Errorf("--format ids needs index ids; drop --direct")
	}

	c, err := x.ToCorpus(ctx)
	if err != nil {
		return err
	}
	if flagNodes {
		nodes, err := c.Select(ctx, q)
		if err != nil {
			return err
		}
		return writeNodes(w, nodes)
	}
	hits, err := c.MatchingTrees(ctx, q)
	if err != nil {
		return err
	}
	return writeTrees(w, slices.Collect(hits.Trees()))
}
