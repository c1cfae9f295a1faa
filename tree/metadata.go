package tree

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Reserved metadata keys.
const (
	KeyID      = "ID"
	KeyIndex   = "INDEX"
	KeyIdxType = "IDX-TYPE"
	KeyLemma   = "LEMMA"
	KeySource  = "SOURCE"
)

// AbsentID is what ID reports for a tree that was never given one.
const AbsentID = "MISSING_ID"

// Movement index types stored under IDX-TYPE.
const (
	IdxRegular = "regular"
	IdxGap     = "gap"
)

// PathSeparator joins nested metadata keys when metadata is flattened.
const PathSeparator = ":"

var keyPattern = regexp.MustCompile(`^[A-Z0-9-]+$`)

// NormalizeKey maps an accessor-style key onto its stored form, so that
// "old_tag", "Old-Tag" and "OLD-TAG" all address the same entry.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(key), "_", "-"))
}

// Metadata is an insertion-ordered map from normalized keys to scalar
// values or nested *Metadata. The zero value is not usable; call
// NewMetadata. A nil *Metadata reads as empty.
type Metadata struct {
	keys []string
	vals map[string]any
}

// Entry is one flattened metadata pair.
type Entry struct {
	Key   string
	Value any
}

// NewMetadata returns empty metadata.
func NewMetadata() *Metadata {
	return &Metadata{vals: make(map[string]any)}
}

// Len returns the number of top-level keys.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the top-level keys in insertion order.
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// Has reports whether key is set.
func (m *Metadata) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Get looks up key after normalization. LEMMA values are returned in NFD.
func (m *Metadata) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	k := NormalizeKey(key)
	v, ok := m.vals[k]
	if !ok {
		return nil, false
	}
	if s, isStr := v.(string); isStr && k == KeyLemma {
		return norm.NFD.String(s), true
	}
	return v, true
}

// String returns the value under key rendered as text, or "" if unset.
func (m *Metadata) String(key string) string {
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// Set stores value under the normalized form of key.
func (m *Metadata) Set(key string, value any) error {
	k := NormalizeKey(key)
	if !keyPattern.MatchString(k) {
		return fmt.Errorf("set %q: %w", key, ErrIllegalMetadataKey)
	}
	v, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", k, err)
	}
	if s, isStr := v.(string); isStr && k == KeyLemma {
		v = norm.NFD.String(s)
	}
	if _, exists := m.vals[k]; !exists {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (m *Metadata) Delete(key string) {
	if m == nil {
		return
	}
	k := NormalizeKey(key)
	if _, ok := m.vals[k]; !ok {
		return
	}
	delete(m.vals, k)
	m.keys = slices.DeleteFunc(m.keys, func(s string) bool { return s == k })
}

// SetPath stores value under a ":"-joined key path, creating nested
// metadata for the intermediate segments.
func (m *Metadata) SetPath(path string, value any) error {
	parts := strings.Split(path, PathSeparator)
	cur := m
	for _, p := range parts[:len(parts)-1] {
		v, ok := cur.Get(p)
		next, isMeta := v.(*Metadata)
		if !ok || !isMeta {
			next = NewMetadata()
			if err := cur.Set(p, next); err != nil {
				return fmt.Errorf("set path %s: %w", path, err)
			}
		}
		cur = next
	}
	if err := cur.Set(parts[len(parts)-1], value); err != nil {
		return fmt.Errorf("set path %s: %w", path, err)
	}
	return nil
}

// Flatten returns every scalar value with nested keys joined by ":", in
// insertion order, depth first. An empty nested metadata is returned as
// its own entry so the key survives a flattened copy.
func (m *Metadata) Flatten() []Entry {
	var out []Entry
	m.flatten("", &out)
	return out
}

func (m *Metadata) flatten(prefix string, out *[]Entry) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		v := m.vals[k]
		if nested, ok := v.(*Metadata); ok && nested.Len() > 0 {
			nested.flatten(prefix+k+PathSeparator, out)
			continue
		}
		*out = append(*out, Entry{Key: prefix + k, Value: v})
	}
}

// Clone returns a deep copy.
func (m *Metadata) Clone() *Metadata {
	c := NewMetadata()
	if m == nil {
		return c
	}
	c.keys = slices.Clone(m.keys)
	for k, v := range m.vals {
		if nested, ok := v.(*Metadata); ok {
			v = nested.Clone()
		}
		c.vals[k] = v
	}
	return c
}

// Equal compares key sets and values, ignoring insertion order. LEMMA is
// compared under NFD.
func (m *Metadata) Equal(o *Metadata) bool {
	if m.Len() != o.Len() {
		return false
	}
	for _, k := range m.Keys() {
		a, _ := m.Get(k)
		b, ok := o.Get(k)
		if !ok || !valuesEqual(a, b) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	am, aok := a.(*Metadata)
	bm, bok := b.(*Metadata)
	if aok || bok {
		return aok && bok && am.Equal(bm)
	}
	return a == b
}

// ---- Named accessors ----

// Index returns the movement index, if any.
func (m *Metadata) Index() (int, bool) {
	v, ok := m.Get(KeyIndex)
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// SetIndex records a movement index and its type.
func (m *Metadata) SetIndex(idx int, idxType string) {
	m.mustSet(KeyIndex, idx)
	m.mustSet(KeyIdxType, idxType)
}

// IdxType returns IDX-TYPE, or "" when the node carries no index.
func (m *Metadata) IdxType() string {
	return m.String(KeyIdxType)
}

// ID returns the tree ID, or AbsentID.
func (m *Metadata) ID() string {
	if s := m.String(KeyID); s != "" {
		return s
	}
	return AbsentID
}

// SetID sets the tree ID.
func (m *Metadata) SetID(id string) {
	m.mustSet(KeyID, id)
}

// Lemma returns the NFD-normalized lemma.
func (m *Metadata) Lemma() (string, bool) {
	v, ok := m.Get(KeyLemma)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetLemma stores lemma in NFD.
func (m *Metadata) SetLemma(lemma string) {
	m.mustSet(KeyLemma, lemma)
}

// Source returns the file a tree was read from, if recorded.
func (m *Metadata) Source() string {
	return m.String(KeySource)
}

// SetSource records the file a tree was read from.
func (m *Metadata) SetSource(path string) {
	m.mustSet(KeySource, path)
}

// mustSet is for reserved keys, which always validate.
func (m *Metadata) mustSet(key string, value any) {
	if err := m.Set(key, value); err != nil {
		panic(err)
	}
}

func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, float64, int:
		return x, nil
	case int64:
		return int(x), nil
	case int32:
		return int(x), nil
	case float32:
		return float64(x), nil
	case *Metadata:
		if x == nil {
			return nil, fmt.Errorf("nil nested metadata: %w", ErrIllegalMetadataValue)
		}
		return x, nil
	default:
		return nil, fmt.Errorf("%T: %w", v, ErrIllegalMetadataValue)
	}
}

// FormatValue renders a scalar metadata value as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case *Metadata:
		parts := make([]string, 0, x.Len())
		for _, e := range x.Flatten() {
			parts = append(parts, e.Key+"="+FormatValue(e.Value))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}
