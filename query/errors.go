package query

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedInIndexMode is returned when compiling a construct that
	// has no relational form, such as a regular-expression label.
	ErrUnsupportedInIndexMode = errors.New("unsupported in index mode")

	// ErrIllegalPattern is returned when a label or dash-tag pattern holds
	// SQL LIKE metacharacters (% or _).
	ErrIllegalPattern = errors.New("illegal pattern")

	// ErrNotImplemented is returned for predicates over metadata structures
	// that are not modeled yet.
	ErrNotImplemented = errors.New("not implemented")

	// ErrTooManyMatchGroups is returned by Colorize when a query has more
	// highlight groups than the palette has colors.
	ErrTooManyMatchGroups = errors.New("too many match groups")

	// ErrInvalidSpec is returned when a YAML query names no expression,
	// or more than one at the same level.
	ErrInvalidSpec = errors.New("invalid query spec")
)

// Error identifies the sub-expression an evaluation or compilation failed
// on.
type Error struct {
	Op    string
	Query Query
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Query, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
