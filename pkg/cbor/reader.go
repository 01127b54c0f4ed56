package cbor

import (
	"errors"
	"io"
	"math"

	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
	"github.com/fxamacker/cbor/v2"
)

// Reader decodes CBOR bytes into Values under a fixed Conformance mode. A
// Reader instance is single-threaded: spec §5 requires one reader per
// operation, never shared across goroutines.
type Reader struct {
	conformance Conformance
	decMode     cbor.DecMode
}

// NewReader builds a Reader for the given conformance and options.
func NewReader(conformance Conformance, opts Options) (*Reader, error) {
	decOpts := cbor.DecOptions{}

	switch conformance {
	case Canonical:
		decOpts.DupMapKey = cbor.DupMapKeyEnforcedAPF
		decOpts.IndefLength = cbor.IndefLengthForbidden
	case Lax:
		decOpts.DupMapKey = cbor.DupMapKeyQuiet
		if opts.AllowIndefiniteLength {
			decOpts.IndefLength = cbor.IndefLengthAllowed
		} else {
			decOpts.IndefLength = cbor.IndefLengthForbidden
		}
	}

	mode, err := decOpts.DecMode()
	if err != nil {
		return nil, errkind.CborWrap(err, "failed to build decode mode")
	}
	return &Reader{conformance: conformance, decMode: mode}, nil
}

// Read decodes data into a single Value. Trailing bytes after the first
// well-formed item are an error, matching CBOR's "one item per message"
// convention used by COSE/CWT.
func (r *Reader) Read(data []byte) (Value, error) {
	var generic any
	if err := r.decMode.Unmarshal(data, &generic); err != nil {
		return Value{}, errkind.CborWrap(err, "malformed CBOR")
	}
	return fromGeneric(generic)
}

// ReadMulti decodes a concatenated sequence of CBOR items (e.g. a stream of
// disclosures), returning one Value per item.
func (r *Reader) ReadMulti(data []byte) ([]Value, error) {
	rdr := cbor.NewDecoder(bytesReader(data))
	var out []Value
	for {
		var generic any
		err := rdr.Decode(&generic)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, errkind.CborWrap(err, "malformed CBOR item in sequence")
		}
		v, convErr := fromGeneric(generic)
		if convErr != nil {
			return nil, convErr
		}
		out = append(out, v)
	}
	return out, nil
}

func fromGeneric(g any) (Value, error) {
	switch t := g.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case uint64:
		if t <= math.MaxInt64 {
			return Int(int64(t)), nil
		}
		return Uint(t), nil
	case int64:
		return Int(t), nil
	case float32:
		return Value{Kind: KindFloat32, Float32: t}, nil
	case float64:
		if canLoselesslyNarrow(t) {
			return Value{Kind: KindFloat32, Float32: float32(t)}, nil
		}
		return Value{Kind: KindFloat64, Float64: t}, nil
	case string:
		return Text(t), nil
	case []byte:
		return Bytes(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := fromGeneric(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{Kind: KindArray, Array: items}, nil
	case map[any]any:
		m := NewMap()
		for k, v := range t {
			kv, err := fromGeneric(k)
			if err != nil {
				return Value{}, err
			}
			vv, err := fromGeneric(v)
			if err != nil {
				return Value{}, err
			}
			m.Set(kv, vv)
		}
		return MapValue(m), nil
	case cbor.Tag:
		inner, err := fromGeneric(t.Content)
		if err != nil {
			return Value{}, err
		}
		return TagValue(t.Number, inner), nil
	default:
		return Value{}, errkind.Unsupported("unsupported decoded CBOR go type %T", g)
	}
}

// canLoselesslyNarrow reports whether f64 round-trips exactly through
// float32. fxamacker/cbor collapses all IEEE-754 widths (half/single/double)
// into Go's float64 on generic decode; since the library gives us no way to
// observe which wire width was actually used, we approximate "was this a
// single-precision (or narrower) value" with a lossless round-trip check —
// the same heuristic CBOR encoders use on the write side to pick the
// shortest float encoding. As a result a KindFloat64 value that fits
// exactly in float32 reads back as KindFloat32.
func canLoselesslyNarrow(f float64) bool {
	return float64(float32(f)) == f
}

type byteReader struct {
	data []byte
	pos  int
}

func bytesReader(data []byte) *byteReader {
	return &byteReader{data: data}
}

func (b *byteReader) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}
