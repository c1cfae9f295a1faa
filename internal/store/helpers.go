package store

import "strings"

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// int64sToArgs converts []int64 to []any for use with database/sql.
func int64sToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// prepend returns a new slice with id in front of ids, leaving ids
// untouched so sibling recursions can share the tail.
func prepend(id int64, ids []int64) []int64 {
	out := make([]int64, 0, len(ids)+1)
	return append(append(out, id), ids...)
}

// maxVariables bounds the number of ids bound into one IN list.
const maxVariables = 500

// chunk splits ids into slices of at most size elements.
func chunk(ids []int64, size int) [][]int64 {
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
