package main

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var (
	flagForce      bool
	flagEnsureIDs  bool
	flagTransforms []string
)

var indexCmd = &cobra.Command{
	Use:   "index FILE...",
	Short: "Add treebank files to the index",
	Long:  "Reads bracketed trees from each file, optionally runs transform scripts over them, and inserts them into the index in one transaction.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database and index from scratch")
	indexCmd.Flags().BoolVar(&flagEnsureIDs, "ensure-ids", false, "give trees without an ID one derived from their text")
	indexCmd.Flags().StringSliceVar(&flagTransforms, "transform", nil, "transform scripts to run before indexing, in order")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()

	if flagForce {
		if err := os.Remove(flagDB); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Cleared database: %s\n", flagDB)
	}

	c, err := readFiles(args)
	if err != nil {
		return err
	}
	for _, script := range flagTransforms {
		if err := c.Transform(ctx, script); err != nil {
			return err
		}
	}
	if flagEnsureIDs {
		c.EnsureIDs()
	}

	x, err := arbor.OpenIndex(flagDB, options()...)
	if err != nil {
		return err
	}
	defer x.Close()

	if _, err := x.InsertTrees(ctx, slices.Collect(c.Trees())); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Indexed %d trees from %d files in %s\n",
		c.Len(), len(args), time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(cmd.ErrOrStderr(), "Database: %s\n", flagDB)
	return nil
}

// readFiles reads every file into one corpus, in argument order. Each
// tree records the file it came from as SOURCE.
func readFiles(paths []string) (*arbor.Corpus, error) {
	c, err := arbor.NewCorpus(nil, options()...)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		part, err := readFile(p)
		if err != nil {
			return nil, err
		}
		for t := range part.Trees() {
			if err := c.Append(t); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func readFile(path string) (*arbor.Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return arbor.ReadCorpus(f, path, options()...)
}
