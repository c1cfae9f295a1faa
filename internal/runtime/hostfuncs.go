package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/risor-io/risor/object"

	"github.com/jward/arbor/tree"
)

// nodeHandle is what scripts hold for a tree node. It exposes no methods
// of its own; scripts go through the host functions below.
type nodeHandle struct {
	node *tree.Node
}

func newHandle(n *tree.Node) object.Object {
	return mustProxy(&nodeHandle{node: n})
}

func handleList(nodes []*tree.Node) object.Object {
	items := make([]object.Object, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, newHandle(n))
	}
	return object.NewList(items)
}

// toNode unwraps a node handle argument.
func toNode(fn string, obj object.Object) (*tree.Node, *object.Error) {
	proxy, ok := obj.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected a node, got %s", fn, obj.Type())
	}
	h, ok := proxy.Interface().(*nodeHandle)
	if !ok || h.node == nil {
		return nil, object.Errorf("%s: expected a node, got %T", fn, proxy.Interface())
	}
	return h.node, nil
}

// makeNodesFn creates the "nodes" host function.
//
// nodes(n) → list of every node under n, n first, in pre-order
func makeNodesFn() *object.Builtin {
	return object.NewBuiltin("nodes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("nodes", 1, len(args))
		}
		n, errObj := toNode("nodes", args[0])
		if errObj != nil {
			return errObj
		}
		var all []*tree.Node
		for d := range n.Nodes() {
			all = append(all, d)
		}
		return handleList(all)
	})
}

// children(n) → list, empty for leaves
func makeChildrenFn() *object.Builtin {
	return object.NewBuiltin("children", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("children", 1, len(args))
		}
		n, errObj := toNode("children", args[0])
		if errObj != nil {
			return errObj
		}
		return handleList(n.Children())
	})
}

// parent(n) → node or nil at the root
func makeParentFn() *object.Builtin {
	return object.NewBuiltin("parent", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parent", 1, len(args))
		}
		n, errObj := toNode("parent", args[0])
		if errObj != nil {
			return errObj
		}
		if n.Parent() == nil {
			return object.Nil
		}
		return newHandle(n.Parent())
	})
}

func makeLabelFn() *object.Builtin {
	return object.NewBuiltin("label", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("label", 1, len(args))
		}
		n, errObj := toNode("label", args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewString(n.Label())
	})
}

func makeSetLabelFn() *object.Builtin {
	return object.NewBuiltin("set_label", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("set_label", 2, len(args))
		}
		n, errObj := toNode("set_label", args[0])
		if errObj != nil {
			return errObj
		}
		s, err := toString(args[1])
		if err != nil {
			return object.Errorf("set_label: %v", err)
		}
		if err := n.SetLabel(s); err != nil {
			return object.Errorf("set_label: %v", err)
		}
		return object.Nil
	})
}

// text(n) → leaf text, nil for non-terminals
func makeTextFn() *object.Builtin {
	return object.NewBuiltin("text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("text", 1, len(args))
		}
		n, errObj := toNode("text", args[0])
		if errObj != nil {
			return errObj
		}
		if !n.IsLeaf() {
			return object.Nil
		}
		return object.NewString(n.Text())
	})
}

func makeSetTextFn() *object.Builtin {
	return object.NewBuiltin("set_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("set_text", 2, len(args))
		}
		n, errObj := toNode("set_text", args[0])
		if errObj != nil {
			return errObj
		}
		s, err := toString(args[1])
		if err != nil {
			return object.Errorf("set_text: %v", err)
		}
		if err := n.SetText(s); err != nil {
			return object.Errorf("set_text: %v", err)
		}
		return object.Nil
	})
}

func makeNodePredicateFn(name string, pred func(*tree.Node) bool) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		n, errObj := toNode(name, args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewBool(pred(n))
	})
}

// meta(n, key) → value or nil. Nested metadata comes back as a map.
func makeMetaFn() *object.Builtin {
	return object.NewBuiltin("meta", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("meta", 2, len(args))
		}
		n, errObj := toNode("meta", args[0])
		if errObj != nil {
			return errObj
		}
		key, err := toString(args[1])
		if err != nil {
			return object.Errorf("meta: %v", err)
		}
		v, ok := n.Metadata().Get(key)
		if !ok {
			return object.Nil
		}
		return metadataValueToObject(v)
	})
}

// set_meta(n, key, value) stores a string, int, float or bool.
func makeSetMetaFn() *object.Builtin {
	return object.NewBuiltin("set_meta", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("set_meta", 3, len(args))
		}
		n, errObj := toNode("set_meta", args[0])
		if errObj != nil {
			return errObj
		}
		key, err := toString(args[1])
		if err != nil {
			return object.Errorf("set_meta: %v", err)
		}
		v, err := objectToMetadataValue(args[2])
		if err != nil {
			return object.Errorf("set_meta %s: %v", key, err)
		}
		if err := n.Metadata().Set(key, v); err != nil {
			return object.Errorf("set_meta: %v", err)
		}
		return object.Nil
	})
}

func makeDelMetaFn() *object.Builtin {
	return object.NewBuiltin("del_meta", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("del_meta", 2, len(args))
		}
		n, errObj := toNode("del_meta", args[0])
		if errObj != nil {
			return errObj
		}
		key, err := toString(args[1])
		if err != nil {
			return object.Errorf("del_meta: %v", err)
		}
		n.Metadata().Delete(key)
		return object.Nil
	})
}

func makeUrtextFn() *object.Builtin {
	return object.NewBuiltin("urtext", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("urtext", 1, len(args))
		}
		n, errObj := toNode("urtext", args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewString(n.Urtext())
	})
}

func metadataValueToObject(v any) object.Object {
	switch val := v.(type) {
	case string:
		return object.NewString(val)
	case int:
		return object.NewInt(int64(val))
	case float64:
		return object.NewFloat(val)
	case bool:
		return object.NewBool(val)
	case *tree.Metadata:
		m := make(map[string]object.Object, val.Len())
		for _, k := range val.Keys() {
			nested, _ := val.Get(k)
			m[k] = metadataValueToObject(nested)
		}
		return object.NewMap(m)
	default:
		return object.NewString(fmt.Sprintf("%v", val))
	}
}

func objectToMetadataValue(obj object.Object) (any, error) {
	switch val := obj.(type) {
	case *object.String:
		return val.Value(), nil
	case *object.Int:
		return int(val.Value()), nil
	case *object.Float:
		return val.Value(), nil
	case *object.Bool:
		return val.Value(), nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", obj.Type())
	}
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, "source", "script")
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, "source", "script")
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, "source", "script")
}
