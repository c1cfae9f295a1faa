package arbor

import (
	"io/fs"
	"log/slog"
	"runtime"
)

// config is shared by Corpus and Index.
type config struct {
	logger      *slog.Logger
	parallelism int
	scriptsDir  string
	scriptsFS   fs.FS
}

// Option configures a Corpus or an Index.
type Option func(*config)

func newConfig(opts []Option) config {
	c := config{
		logger:      slog.Default(),
		parallelism: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithParallelism bounds the number of trees matched or reconstituted
// concurrently. Values below 1 mean one. The default is runtime.NumCPU().
func WithParallelism(n int) Option {
	return func(c *config) {
		c.parallelism = max(n, 1)
	}
}

// WithScriptsFS loads transform scripts from fsys, typically the embedded
// scripts.FS. It takes precedence over WithScriptsDir.
func WithScriptsFS(fsys fs.FS) Option {
	return func(c *config) {
		c.scriptsFS = fsys
	}
}

// WithScriptsDir loads transform scripts from a directory on disk.
func WithScriptsDir(dir string) Option {
	return func(c *config) {
		c.scriptsDir = dir
	}
}
