package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
	"github.com/jward/arbor/scripts"
)

var (
	flagDB         string
	flagFormat     string
	flagVerbose    bool
	flagScriptsDir string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "arbor",
	Short:         "Structural search over constituency treebanks",
	Long:          "Arbor reads bracketed treebank files, indexes them into a SQLite closure-table database, and answers structural queries over the trees.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd.ErrOrStderr(), flagVerbose)
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", defaultDB(), "index database path (env ARBOR_DB)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "penn", "output format: "+validFormatList())
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&flagScriptsDir, "scripts-dir", "", "load transform scripts from disk instead of the embedded set")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(transformCmd)
}

// defaultDB returns $ARBOR_DB, or arbor.db in the working directory.
func defaultDB() string {
	if p := os.Getenv("ARBOR_DB"); p != "" {
		return p
	}
	return "arbor.db"
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// options returns the corpus and index options shared by every command.
func options() []arbor.Option {
	opts := []arbor.Option{arbor.WithLogger(slog.Default())}
	if flagScriptsDir != "" {
		return append(opts, arbor.WithScriptsDir(flagScriptsDir))
	}
	return append(opts, arbor.WithScriptsFS(scripts.FS))
}

// openIndex opens the existing index named by --db.
func openIndex() (*arbor.Index, error) {
	if _, err := os.Stat(flagDB); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'arbor index' first)", flagDB)
	}
	return arbor.OpenIndex(flagDB, options()...)
}
