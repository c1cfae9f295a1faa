package tree

import (
	"strings"

	"github.com/google/uuid"
)

// delSpace prefixes punctuation so the space before it can be removed
// after joining.
const delSpace = "\x00DEL_SP"

// Urtext reconstructs the surface text under n, skipping empty
// categories, traces and code leaves, and attaching "." and "," to the
// preceding word.
func (n *Node) Urtext() string {
	if n.IsLeaf() {
		return strings.ReplaceAll(n.leafUrtext(), delSpace, "")
	}
	parts := make([]string, 0, len(n.children))
	for leaf := range n.Nodes() {
		if s := leaf.leafUrtext(); s != "" {
			parts = append(parts, s)
		}
	}
	r := strings.Join(parts, " ")
	r = strings.ReplaceAll(r, "@ @", "")
	r = strings.ReplaceAll(r, " "+delSpace, "")
	r = strings.ReplaceAll(r, delSpace, "")
	return strings.TrimSpace(r)
}

func (n *Node) leafUrtext() string {
	if !IsTextLeaf(n) {
		return ""
	}
	if n.label == "," || n.label == "." {
		return delSpace + n.text
	}
	return n.text
}

// idNamespace scopes IDs derived from urtext.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:arbor:tree-id"))

// EnsureID gives root a stable ID derived from its urtext when it has
// none, and returns the ID in effect.
func EnsureID(root *Node) string {
	if id := root.metadata.ID(); id != AbsentID {
		return id
	}
	id := uuid.NewSHA1(idNamespace, []byte(root.Urtext())).String()
	root.metadata.SetID(id)
	return id
}
