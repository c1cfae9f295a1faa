package tree

import "errors"

var (
	// ErrMalformedTree reports a structural problem found while building a
	// tree: an empty label, a childless non-terminal, an unparsable
	// movement index. It always aborts the tree being built.
	ErrMalformedTree = errors.New("malformed tree")

	// ErrInvariantViolation reports corrupted parent/child links, such as a
	// node that names a parent which does not list it among its children.
	ErrInvariantViolation = errors.New("tree invariant violation")

	// ErrIllegalMetadataKey is returned when a metadata key does not
	// normalize to an uppercase dash-separated name.
	ErrIllegalMetadataKey = errors.New("illegal metadata key")

	// ErrIllegalMetadataValue is returned for values that are not a
	// string, integer, bool, float or nested *Metadata.
	ErrIllegalMetadataValue = errors.New("illegal metadata value")
)
