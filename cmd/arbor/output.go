package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/arbor/format"
	"github.com/jward/arbor/tree"
)

// validFormats lists accepted values for --format. Every entry but ids
// names a tree formatter.
var validFormats = []string{"penn", "icepahc", "deep", "json", "yaml", "ids"}

func validFormatList() string { return strings.Join(validFormats, "|") }

// validateFormat checks that the --format flag value is recognized.
func validateFormat(name string) error {
	for _, f := range validFormats {
		if name == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", name, strings.Join(validFormats, ", "))
}

// machineReadable reports whether errors should be written as a JSON
// envelope on stdout.
func machineReadable() bool {
	return flagFormat == "ids" || flagFormat == "json"
}

// writeTrees renders trees with the --format formatter. ids has no tree
// rendering.
func writeTrees(w io.Writer, trees []*tree.Node) error {
	if flagFormat == "ids" {
		return fmt.Errorf("--format ids cannot render trees")
	}
	f, err := format.ByName(flagFormat)
	if err != nil {
		return err
	}
	if err := format.Format(w, f, trees...); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w)
	return err
}

// writeNodes renders each subtree on its own, separated by blank lines.
func writeNodes(w io.Writer, nodes []*tree.Node) error {
	f, err := format.ByName(flagFormat)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if _, err := fmt.Fprintf(w, "%s\n\n", format.Node(f, n)); err != nil {
			return err
		}
	}
	return nil
}

// outputIDs writes ids as a CLIResult envelope.
func outputIDs(w io.Writer, command string, ids []int64) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResult{Command: command, Results: ids, Count: len(ids)})
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In machine-readable formats the error is
// written to stdout as a CLIResult envelope; otherwise it goes to stderr.
func outputError(cmd *cobra.Command, command string, err error) error {
	errorHandled = true
	if !machineReadable() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}
