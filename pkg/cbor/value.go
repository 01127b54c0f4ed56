// Package cbor implements the tag-aware, conformance-mode-aware canonical
// CBOR reader/writer primitives of spec §4.4, plus the generic CborValue
// converter. The wire-level encode/decode is delegated to
// github.com/fxamacker/cbor/v2 — the same library the teacher uses
// throughout pkg/tokenstatuslist, pkg/mdoc, and pkg/vc20/crypto/ecdsa-sd —
// while this package owns the CborValue tagged union, canonical-mode
// duplicate-key enforcement, and the insertion-ordered map semantics the
// distilled spec asks for.
package cbor

import "fmt"

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindText
	KindBytes
	KindArray
	KindMap
	KindTag
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Value is the tagged union over CBOR's value space described in spec §3:
// {null, bool, int64, uint64, f32, f64, text, bytes, array, map, tagged}.
type Value struct {
	Kind    Kind
	Bool    bool
	Int64   int64
	Uint64  uint64
	Float32 float32
	Float64 float64
	Text    string
	Bytes   []byte
	Array   []Value
	Map     *Map
	Tag     *Tagged
}

// Tagged is a CBOR tag number over a nested value. Unknown tags are
// surfaced as a Tagged rather than dropped, per spec §4.4 edge cases.
type Tagged struct {
	Number uint64
	Value  Value
}

// Null returns the null Value.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns a bool Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int returns a signed-integer Value.
func Int(i int64) Value { return Value{Kind: KindInt64, Int64: i} }

// Uint returns an unsigned-integer Value.
func Uint(u uint64) Value { return Value{Kind: KindUint64, Uint64: u} }

// Text returns a text-string Value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Bytes returns a byte-string Value. The slice is retained, not copied.
func Bytes(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// Arr returns an array Value.
func Arr(items ...Value) Value { return Value{Kind: KindArray, Array: items} }

// MapValue returns a map Value wrapping m.
func MapValue(m *Map) Value { return Value{Kind: KindMap, Map: m} }

// TagValue returns a tagged Value.
func TagValue(number uint64, v Value) Value {
	return Value{Kind: KindTag, Tag: &Tagged{Number: number, Value: v}}
}

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsInt64 returns v's integer value, accepting either KindInt64 or a
// KindUint64 that fits in an int64.
func (v Value) AsInt64() (int64, bool) {
	switch v.Kind {
	case KindInt64:
		return v.Int64, true
	case KindUint64:
		if v.Uint64 <= 1<<63-1 {
			return int64(v.Uint64), true
		}
	}
	return 0, false
}

// AsText returns v's text content if v is KindText.
func (v Value) AsText() (string, bool) {
	if v.Kind == KindText {
		return v.Text, true
	}
	return "", false
}

// AsBytes returns v's byte content if v is KindBytes.
func (v Value) AsBytes() ([]byte, bool) {
	if v.Kind == KindBytes {
		return v.Bytes, true
	}
	return nil, false
}

// Equal reports deep equality between two Values, used by the round-trip
// testable properties in spec §8.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindInt64:
		return v.Int64 == other.Int64
	case KindUint64:
		return v.Uint64 == other.Uint64
	case KindFloat32:
		return v.Float32 == other.Float32
	case KindFloat64:
		return v.Float64 == other.Float64
	case KindText:
		return v.Text == other.Text
	case KindBytes:
		return string(v.Bytes) == string(other.Bytes)
	case KindArray:
		if len(v.Array) != len(other.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.Map.equal(other.Map)
	case KindTag:
		return v.Tag.Number == other.Tag.Number && v.Tag.Value.Equal(other.Tag.Value)
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInt64:
		return fmt.Sprintf("%d", v.Int64)
	case KindUint64:
		return fmt.Sprintf("%d", v.Uint64)
	case KindFloat32:
		return fmt.Sprintf("%g", v.Float32)
	case KindFloat64:
		return fmt.Sprintf("%g", v.Float64)
	case KindText:
		return v.Text
	case KindBytes:
		return fmt.Sprintf("h'%x'", v.Bytes)
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}

// canonicalKey produces a deterministic string identity for a Value used as
// a map key, sufficient to detect duplicate keys and to look values up by
// key equality. It is not a wire format.
func canonicalKey(v Value) string {
	switch v.Kind {
	case KindNull:
		return "n:"
	case KindBool:
		if v.Bool {
			return "b:1"
		}
		return "b:0"
	case KindInt64:
		return fmt.Sprintf("i:%d", v.Int64)
	case KindUint64:
		return fmt.Sprintf("u:%d", v.Uint64)
	case KindFloat32:
		return fmt.Sprintf("f32:%x", v.Float32)
	case KindFloat64:
		return fmt.Sprintf("f64:%x", v.Float64)
	case KindText:
		return "t:" + v.Text
	case KindBytes:
		return fmt.Sprintf("by:%x", v.Bytes)
	case KindTag:
		return fmt.Sprintf("tag:%d:%s", v.Tag.Number, canonicalKey(v.Tag.Value))
	default:
		return fmt.Sprintf("?:%p", &v)
	}
}
