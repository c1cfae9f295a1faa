package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jward/arbor/tree"
)

var (
	flagRange    string
	flagNode     int64
	flagMetadata bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print indexed trees",
	Long:  "Reconstitutes trees from the index and prints them. --range selects trees by position, START:END with END exclusive.",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&flagRange, "range", "", "tree positions START:END (default: all)")
	showCmd.Flags().Int64Var(&flagNode, "node", 0, "print the subtree rooted at this node id")
	showCmd.Flags().BoolVar(&flagMetadata, "metadata", false, "print the corpus metadata as YAML")
}

// parseRange parses START:END against n trees. Either bound may be
// omitted; negative bounds count from the end.
func parseRange(s string, n int) (lo, hi int, err error) {
	if s == "" {
		return 0, n, nil
	}
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid range %q: want START:END", s)
	}
	bound := func(v string, def int) (int, error) {
		if v == "" {
			return def, nil
		}
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid range %q: %w", s, err)
		}
		if i < 0 {
			i += n
		}
		return min(max(i, 0), n), nil
	}
	if lo, err = bound(a, 0); err != nil {
		return 0, 0, err
	}
	if hi, err = bound(b, n); err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("invalid range %q: start after end", s)
	}
	return lo, hi, nil
}

func runShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	x, err := openIndex()
	if err != nil {
		return outputError(cmd, "show", err)
	}
	defer x.Close()

	switch {
	case flagMetadata:
		md, err := x.Metadata(ctx)
		if err != nil {
			return outputError(cmd, "show", err)
		}
		out := map[string]any{}
		for _, e := range md.Flatten() {
			out[e.Key] = e.Value
		}
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(out)

	case flagNode != 0:
		n, err := x.Reconstitute(ctx, flagNode)
		if err != nil {
			return outputError(cmd, "show", err)
		}
		if flagFormat == "ids" {
			return outputIDs(w, "show", []int64{flagNode})
		}
		return writeNodes(w, []*tree.Node{n})
	}

	lo, hi, err := parseRange(flagRange, x.Len())
	if err != nil {
		return outputError(cmd, "show", err)
	}
	if flagFormat == "ids" {
		return outputIDs(w, "show", x.RootIDs()[lo:hi])
	}
	trees := make([]*tree.Node, 0, hi-lo)
	for i := lo; i < hi; i++ {
		t, err := x.Root(ctx, i)
		if err != nil {
			return outputError(cmd, "show", err)
		}
		trees = append(trees, t)
	}
	return writeTrees(w, trees)
}
