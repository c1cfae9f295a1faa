package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jward/arbor/scripts"
)

var (
	flagScripts []string
	flagList    bool
)

var transformCmd = &cobra.Command{
	Use:   "transform FILE...",
	Short: "Run transform scripts over treebank files",
	Long:  "Reads the files, runs each --script over every tree in order, and prints the result. The index is not touched.",
	RunE:  runTransform,
}

func init() {
	transformCmd.Flags().StringSliceVar(&flagScripts, "script", nil, "scripts to run, in order")
	transformCmd.Flags().BoolVar(&flagList, "list", false, "list the embedded scripts")
}

func runTransform(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	if flagList {
		for _, name := range scripts.Names() {
			fmt.Fprintln(w, name)
		}
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("transform: no input files")
	}
	if len(flagScripts) == 0 {
		return fmt.Errorf("transform: no --script given")
	}

	c, err := readFiles(args)
	if err != nil {
		return err
	}
	for _, s := range flagScripts {
		if err := c.Transform(cmd.Context(), s); err != nil {
			return err
		}
	}
	return writeTrees(w, slices.Collect(c.Trees()))
}
