package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/arbor/tree"
)

// Runtime embeds a Risor VM and exposes tree host functions to transform
// scripts. A transform receives one root tree as the global "tree" and
// rewrites it in place.
type Runtime struct {
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts, and resolves their imports, from fsys
// instead of the scripts directory.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger routes the scripts' log global to logger.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// NewRuntime creates a Runtime loading scripts from scriptsDir unless
// WithRuntimeFS is given.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Transform runs the named script with root bound to the global "tree".
// name may omit the .risor extension.
func (r *Runtime) Transform(ctx context.Context, name string, root *tree.Node) error {
	return r.RunScript(ctx, ScriptPath(name), map[string]any{"tree": newHandle(root)})
}

// TransformSource runs inline Risor source with root bound to "tree".
func (r *Runtime) TransformSource(ctx context.Context, source string, root *tree.Node) error {
	return r.RunSource(ctx, source, map[string]any{"tree": newHandle(root)})
}

// RunScript loads scriptPath and evaluates it with the host globals and
// extra.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extra map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extra)
}

// RunSource evaluates inline source with the host globals and extra.
func (r *Runtime) RunSource(ctx context.Context, source string, extra map[string]any) error {
	return r.eval(ctx, source, "<inline>", extra)
}

func (r *Runtime) eval(ctx context.Context, source, name string, extra map[string]any) error {
	globals := r.buildGlobals(extra)
	names := make([]string, 0, len(globals))
	opts := make([]risor.Option, 0, len(globals)+1)
	for k, v := range globals {
		names = append(names, k)
		opts = append(opts, risor.WithGlobal(k, v))
	}
	if imp := r.importer(names); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}
	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: transform %s: %w", name, err)
	}
	return nil
}

// importer resolves script imports against the same place scripts are
// loaded from. It is nil when scripts come from neither an FS nor a
// directory.
func (r *Runtime) importer(globals []string) importer.Importer {
	switch {
	case r.fsys != nil:
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globals,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	case r.scriptsDir != "":
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globals,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	default:
		return nil
	}
}

// LoadScript returns the source of a script. Paths are relative to the
// configured FS, or to scriptsDir unless absolute.
func (r *Runtime) LoadScript(path string) (string, error) {
	var (
		data []byte
		err  error
		from = path
	)
	if r.fsys != nil {
		from = strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err = fs.ReadFile(r.fsys, from)
	} else {
		if !filepath.IsAbs(path) {
			from = filepath.Join(r.scriptsDir, path)
		}
		data, err = os.ReadFile(from)
	}
	if err != nil {
		return "", fmt.Errorf("runtime: load script %s: %w", from, err)
	}
	return string(data), nil
}

// ScriptPath returns the file name of a transform script.
func ScriptPath(name string) string {
	if filepath.Ext(name) == ".risor" {
		return name
	}
	return name + ".risor"
}

// buildGlobals returns the tree host functions plus extra.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"nodes":     makeNodesFn(),
		"children":  makeChildrenFn(),
		"parent":    makeParentFn(),
		"label":     makeLabelFn(),
		"set_label": makeSetLabelFn(),
		"text":      makeTextFn(),
		"set_text":  makeSetTextFn(),
		"is_leaf":   makeNodePredicateFn("is_leaf", (*tree.Node).IsLeaf),
		"is_ec":     makeNodePredicateFn("is_ec", tree.IsEmptyCategory),
		"is_trace":  makeNodePredicateFn("is_trace", tree.IsTrace),
		"meta":      makeMetaFn(),
		"set_meta":  makeSetMetaFn(),
		"del_meta":  makeDelMetaFn(),
		"urtext":    makeUrtextFn(),
		"log":       mustProxy(&logObject{logger: r.logger}),
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy %T: %v", v, err))
	}
	return p
}
