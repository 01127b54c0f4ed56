package cbor

import (
	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
	"github.com/fxamacker/cbor/v2"
)

// Writer encodes Values to CBOR bytes under a fixed Conformance mode. Like
// Reader, a Writer is consumed into bytes by the caller and is not safe to
// share across goroutines mid-encode (spec §5, §9 "ref-parameter CBOR
// reader" note).
type Writer struct {
	conformance Conformance
	encMode     cbor.EncMode
}

// NewWriter builds a Writer for the given conformance. Lax mode never
// silently upgrades input into canonical output: it simply does not sort
// keys or force definite lengths.
func NewWriter(conformance Conformance) (*Writer, error) {
	var encOpts cbor.EncOptions
	switch conformance {
	case Canonical:
		encOpts = cbor.CanonicalEncOptions()
	case Lax:
		encOpts = cbor.EncOptions{}
	}
	mode, err := encOpts.EncMode()
	if err != nil {
		return nil, errkind.CborWrap(err, "failed to build encode mode")
	}
	return &Writer{conformance: conformance, encMode: mode}, nil
}

// Write encodes v to canonical or lax CBOR bytes.
func (w *Writer) Write(v Value) ([]byte, error) {
	native, err := toGeneric(v)
	if err != nil {
		return nil, err
	}
	b, err := w.encMode.Marshal(native)
	if err != nil {
		return nil, errkind.CborWrap(err, "CBOR encode failed")
	}
	return b, nil
}

func toGeneric(v Value) (any, error) {
	switch v.Kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.Bool, nil
	case KindInt64:
		return v.Int64, nil
	case KindUint64:
		return v.Uint64, nil
	case KindFloat32:
		return float64(v.Float32), nil
	case KindFloat64:
		return v.Float64, nil
	case KindText:
		return v.Text, nil
	case KindBytes:
		if v.Bytes == nil {
			return []byte{}, nil
		}
		return v.Bytes, nil
	case KindArray:
		items := make([]any, len(v.Array))
		for i, item := range v.Array {
			g, err := toGeneric(item)
			if err != nil {
				return nil, err
			}
			items[i] = g
		}
		return items, nil
	case KindMap:
		m := make(map[any]any, v.Map.Len())
		for _, e := range v.Map.Entries() {
			kg, err := toGeneric(e.Key)
			if err != nil {
				return nil, err
			}
			vg, err := toGeneric(e.Value)
			if err != nil {
				return nil, err
			}
			m[kg] = vg
		}
		return m, nil
	case KindTag:
		inner, err := toGeneric(v.Tag.Value)
		if err != nil {
			return nil, err
		}
		return cbor.Tag{Number: v.Tag.Number, Content: inner}, nil
	default:
		return nil, errkind.Unsupported("unsupported CborValue kind %s on write", v.Kind)
	}
}
