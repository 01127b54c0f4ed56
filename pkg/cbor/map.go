package cbor

import "github.com/dc4eu/vc-cryptocore/pkg/errkind"

// Map is an insertion-ordered mapping keyed by the converted CBOR key type,
// per spec §4.4: "CBOR map -> insertion-ordered mapping keyed by the
// converted key type". Set overwrites an existing key; SetUnique rejects
// one. The Reader's Canonical mode rejects duplicate keys while decoding,
// before a Map is built.
type Map struct {
	keys  []Value
	vals  []Value
	index map[string]int
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Len reports the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order. The returned slice must not be
// mutated.
func (m *Map) Keys() []Value { return m.keys }

// Get looks up the value for key, preserving whatever ordering was present
// at insertion.
func (m *Map) Get(key Value) (Value, bool) {
	i, ok := m.index[canonicalKey(key)]
	if !ok {
		return Value{}, false
	}
	return m.vals[i], true
}

// Set inserts or overwrites key -> value, preserving original insertion
// position on overwrite.
func (m *Map) Set(key, value Value) {
	ck := canonicalKey(key)
	if i, ok := m.index[ck]; ok {
		m.vals[i] = value
		return
	}
	m.index[ck] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, value)
}

// SetUnique inserts key -> value, failing with a CborContent error if key
// is already present, for callers building a map that must not hold
// duplicate keys (spec §4.4 edge cases).
func (m *Map) SetUnique(key, value Value) error {
	ck := canonicalKey(key)
	if _, ok := m.index[ck]; ok {
		return errkind.Cbor("duplicate map key %s under canonical mode", key.String())
	}
	m.index[ck] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, value)
	return nil
}

// Entries returns (key, value) pairs in insertion order.
func (m *Map) Entries() []struct{ Key, Value Value } {
	out := make([]struct{ Key, Value Value }, len(m.keys))
	for i := range m.keys {
		out[i] = struct{ Key, Value Value }{m.keys[i], m.vals[i]}
	}
	return out
}

func (m *Map) equal(other *Map) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Len() != other.Len() {
		return false
	}
	for i, k := range m.keys {
		ov, ok := other.Get(k)
		if !ok || !m.vals[i].Equal(ov) {
			return false
		}
	}
	return true
}
