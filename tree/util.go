package tree

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// TraceTypes are leaf texts that mark a movement trace.
var TraceTypes = []string{"*T*", "*ICH*", "*CL*", "*"}

// SilentTypes are leaf texts for unpronounced elements.
var SilentTypes = []string{"*con*", "*exp*", "*pro*"}

// LabelAndIndex splits a trailing movement index off s. "NP=2" yields a
// gap index, "NP-SBJ-1" a regular one. ok is false when s carries no
// index. More than one "=" is malformed.
func LabelAndIndex(s string) (label, idxType string, idx int, ok bool, err error) {
	if parts := strings.Split(s, "="); len(parts) > 2 {
		return "", "", 0, false, fmt.Errorf("too many = signs in %q: %w", s, ErrMalformedTree)
	} else if len(parts) == 2 {
		if n, isNum := parseIndex(parts[1]); isNum {
			return parts[0], IdxGap, n, true, nil
		}
	}
	if i := strings.LastIndex(s, "-"); i >= 0 {
		if n, isNum := parseIndex(s[i+1:]); isNum {
			return s[:i], IdxRegular, n, true, nil
		}
	}
	return s, "", 0, false, nil
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// IsTraceString reports whether s, ignoring any dash suffix, is a trace.
func IsTraceString(s string) bool {
	head, _, _ := strings.Cut(s, "-")
	return slices.Contains(TraceTypes, head)
}

// IsTrace reports whether n is a trace leaf.
func IsTrace(n *Node) bool {
	return n.IsLeaf() && slices.Contains(TraceTypes, n.text)
}

// IsSilent reports whether n is a silent leaf such as *pro*.
func IsSilent(n *Node) bool {
	return n.IsLeaf() && slices.Contains(SilentTypes, n.text)
}

// IsEmptyCategory reports whether n is a zero, trace or silent leaf.
func IsEmptyCategory(n *Node) bool {
	return n.IsLeaf() && (n.text == "0" || IsTrace(n) || IsSilent(n))
}

// IsTextLeaf reports whether n contributes to urtext.
func IsTextLeaf(n *Node) bool {
	if !n.IsLeaf() || IsEmptyCategory(n) {
		return false
	}
	head, _, _ := strings.Cut(n.label, "-")
	return head != "CODE" && head != "CODING"
}
