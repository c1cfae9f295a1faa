// Package scripts bundles the Risor transform scripts shipped with arbor.
//
// Each script rewrites one root tree, bound to the global "tree", using
// the host functions of the internal runtime (nodes, label, set_label,
// text, set_text, meta, set_meta, ...).
package scripts

import (
	"embed"
	"io/fs"
	"strings"
)

// FS holds the bundled .risor transforms.
//
//go:embed *.risor
var FS embed.FS

// Names returns the bundled transform names, without extension, sorted.
func Names() []string {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".risor"); ok && !e.IsDir() {
			names = append(names, name)
		}
	}
	return names
}
