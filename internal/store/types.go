package store

import (
	"fmt"
	"strconv"

	"github.com/jward/arbor/tree"
)

// TextKey is the reserved metadata key holding leaf text. It is lowercase
// so it can never collide with a user key.
const TextKey = "text"

// Value kinds recorded in the metadata tables so scalars round-trip with
// their type.
const (
	kindString = "str"
	kindInt    = "int"
	kindBool   = "bool"
	kindFloat  = "float"
	kindMap    = "map"
)

// Node is one row of the nodes relation.
type Node struct {
	ID    int64
	Label string
}

// Edge is one row of the dominance or precedence relation: From is the
// ancestor (or left sister), To the descendant (or right sister).
type Edge struct {
	From     int64
	To       int64
	Distance int
}

// MetadataRow is one flattened metadata entry of a node.
type MetadataRow struct {
	NodeID int64
	Key    string
	Value  string
	Kind   string
}

func encodeValue(v any) (value, kind string, err error) {
	switch x := v.(type) {
	case string:
		return x, kindString, nil
	case int:
		return strconv.Itoa(x), kindInt, nil
	case bool:
		return strconv.FormatBool(x), kindBool, nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), kindFloat, nil
	case *tree.Metadata:
		// Flatten only yields nested metadata when it is empty.
		if x.Len() > 0 {
			return "", "", fmt.Errorf("encode non-empty nested metadata: %w", tree.ErrIllegalMetadataValue)
		}
		return "", kindMap, nil
	default:
		return "", "", fmt.Errorf("encode %T: %w", v, tree.ErrIllegalMetadataValue)
	}
}

func decodeValue(value, kind string) (any, error) {
	switch kind {
	case kindString:
		return value, nil
	case kindInt:
		return strconv.Atoi(value)
	case kindBool:
		return strconv.ParseBool(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindMap:
		return tree.NewMetadata(), nil
	default:
		return nil, fmt.Errorf("decode %q: unknown kind %q", value, kind)
	}
}
