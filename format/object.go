package format

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jward/arbor/tree"
)

// Object is the structured form of a node used by the JSON and YAML
// formatters. Text is set only for leaves, Children only for
// non-terminals.
type Object struct {
	Label    string         `json:"label" yaml:"label"`
	Text     *string        `json:"text,omitempty" yaml:"text,omitempty"`
	Metadata map[string]any `json:"metadata" yaml:"metadata"`
	Children []Object       `json:"children,omitempty" yaml:"children,omitempty"`
}

// ToObject converts the subtree rooted at n.
func ToObject(n *tree.Node) Object {
	o := Object{Label: n.Label(), Metadata: metadataObject(n.Metadata())}
	switch n.Kind() {
	case tree.KindLeaf:
		text := n.Text()
		o.Text = &text
	case tree.KindNonTerminal:
		for _, c := range n.Children() {
			o.Children = append(o.Children, ToObject(c))
		}
	}
	return o
}

func metadataObject(md *tree.Metadata) map[string]any {
	m := make(map[string]any, md.Len())
	for _, k := range md.Keys() {
		v, _ := md.Get(k)
		if nested, ok := v.(*tree.Metadata); ok {
			v = metadataObject(nested)
		}
		m[k] = v
	}
	return m
}

// FromObject rebuilds a tree. Movement indices already present in
// Metadata are kept as-is.
func FromObject(o Object) (*tree.Node, error) {
	md, err := objectMetadata(o.Metadata)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", o.Label, err)
	}
	if o.Text != nil {
		return tree.Assemble(o.Label, *o.Text, nil, md)
	}
	if len(o.Children) == 0 {
		return nil, fmt.Errorf("object %s: neither text nor children: %w", o.Label, tree.ErrMalformedTree)
	}
	children := make([]*tree.Node, 0, len(o.Children))
	for _, co := range o.Children {
		c, err := FromObject(co)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return tree.Assemble(o.Label, "", children, md)
}

func objectMetadata(m map[string]any) (*tree.Metadata, error) {
	md := tree.NewMetadata()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := m[k]
		switch x := v.(type) {
		case map[string]any:
			nested, err := objectMetadata(x)
			if err != nil {
				return nil, err
			}
			v = nested
		case float64:
			// JSON numbers decode as float64; keep integral values integral.
			if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
				v = int(x)
			}
		}
		if err := md.Set(k, v); err != nil {
			return nil, err
		}
	}
	return md, nil
}

// JSON renders trees as indented JSON objects; a corpus is an array.
type JSON struct{}

func (JSON) Leaf(n *tree.Node, _ int) []string { return marshalJSON(ToObject(n)) }

func (JSON) Tree(n *tree.Node, _ int, _ Walk) []string { return marshalJSON(ToObject(n)) }

func (JSON) Corpus(roots []*tree.Node, _ Walk) []string {
	objs := make([]Object, len(roots))
	for i, r := range roots {
		objs[i] = ToObject(r)
	}
	return marshalJSON(objs)
}

func marshalJSON(v any) []string {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		// Objects hold only strings, numbers, bools and maps of them.
		panic(fmt.Sprintf("format: json: %v", err))
	}
	return []string{string(b)}
}

// YAML renders trees as YAML documents; a corpus is a sequence.
type YAML struct{}

func (YAML) Leaf(n *tree.Node, _ int) []string { return marshalYAML(ToObject(n)) }

func (YAML) Tree(n *tree.Node, _ int, _ Walk) []string { return marshalYAML(ToObject(n)) }

func (YAML) Corpus(roots []*tree.Node, _ Walk) []string {
	objs := make([]Object, len(roots))
	for i, r := range roots {
		objs[i] = ToObject(r)
	}
	return marshalYAML(objs)
}

func marshalYAML(v any) []string {
	b, err := yaml.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("format: yaml: %v", err))
	}
	return []string{string(b)}
}

// ReadJSON decodes a JSON array of tree objects.
func ReadJSON(data []byte) ([]*tree.Node, error) {
	var objs []Object
	if err := json.Unmarshal(data, &objs); err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	return fromObjects(objs)
}

// ReadYAML decodes a YAML sequence of tree objects.
func ReadYAML(data []byte) ([]*tree.Node, error) {
	var objs []Object
	if err := yaml.Unmarshal(data, &objs); err != nil {
		return nil, fmt.Errorf("read yaml: %w", err)
	}
	return fromObjects(objs)
}

func fromObjects(objs []Object) ([]*tree.Node, error) {
	out := make([]*tree.Node, 0, len(objs))
	for i, o := range objs {
		n, err := FromObject(o)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}
