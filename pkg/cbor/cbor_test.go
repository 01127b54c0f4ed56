package cbor_test

import (
	"testing"

	"github.com/dc4eu/vc-cryptocore/pkg/cbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func canonical(t *testing.T) (*cbor.Reader, *cbor.Writer) {
	t.Helper()
	r, err := cbor.NewReader(cbor.Canonical, cbor.Options{})
	require.NoError(t, err)
	w, err := cbor.NewWriter(cbor.Canonical)
	require.NoError(t, err)
	return r, w
}

func TestRoundTripScalars(t *testing.T) {
	r, w := canonical(t)

	values := []cbor.Value{
		cbor.Null(),
		cbor.Bool(true),
		cbor.Bool(false),
		cbor.Int(-42),
		cbor.Uint(1 << 63),
		cbor.Text("hello"),
		cbor.Bytes([]byte{0x01, 0x02, 0x03}),
		cbor.Arr(cbor.Int(1), cbor.Int(2), cbor.Int(3)),
	}

	for _, v := range values {
		encoded, err := w.Write(v)
		require.NoError(t, err)

		decoded, err := r.Read(encoded)
		require.NoError(t, err)
		assert.True(t, v.Equal(decoded), "round-trip mismatch for %s", v.String())

		reencoded, err := w.Write(decoded)
		require.NoError(t, err)
		assert.Equal(t, encoded, reencoded, "re-encode must be byte-exact")
	}
}

func TestRoundTripMap(t *testing.T) {
	r, w := canonical(t)

	m := cbor.NewMap()
	m.Set(cbor.Int(1), cbor.Text("iss"))
	m.Set(cbor.Int(2), cbor.Text("sub"))
	original := cbor.MapValue(m)

	encoded, err := w.Write(original)
	require.NoError(t, err)

	decoded, err := r.Read(encoded)
	require.NoError(t, err)
	assert.True(t, original.Equal(decoded))

	reencoded, err := w.Write(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}

func TestRoundTripTag(t *testing.T) {
	r, w := canonical(t)

	original := cbor.TagValue(18, cbor.Arr(cbor.Bytes([]byte{0xa0}), cbor.Bytes(nil), cbor.Bytes([]byte("payload")), cbor.Bytes([]byte{0xde, 0xad})))

	encoded, err := w.Write(original)
	require.NoError(t, err)

	decoded, err := r.Read(encoded)
	require.NoError(t, err)
	assert.True(t, original.Equal(decoded))
}

func TestCanonicalModeRejectsDuplicateKeys(t *testing.T) {
	r, _ := canonical(t)

	// Map with key 1 appearing twice, definite-length map(2): a1 indicates
	// len 1; build a 2-entry map manually: 0xa2 01 61 'x 01 61 'y
	data := []byte{0xa2, 0x01, 0x61, 'x', 0x01, 0x61, 'y'}
	_, err := r.Read(data)
	assert.Error(t, err)
}

func TestCanonicalModeRejectsIndefiniteLength(t *testing.T) {
	r, _ := canonical(t)

	// Indefinite-length text string: 0x7f ... 0xff ("streaming" major type 3)
	data := []byte{0x7f, 0x61, 'a', 0xff}
	_, err := r.Read(data)
	assert.Error(t, err)
}

func TestLaxModeAllowsIndefiniteLengthWhenRequested(t *testing.T) {
	r, err := cbor.NewReader(cbor.Lax, cbor.Options{AllowIndefiniteLength: true})
	require.NoError(t, err)

	data := []byte{0x7f, 0x61, 'a', 0xff}
	v, err := r.Read(data)
	require.NoError(t, err)
	text, ok := v.AsText()
	require.True(t, ok)
	assert.Equal(t, "a", text)
}

func TestReadMultiDecodesSequenceOfItems(t *testing.T) {
	r, w := canonical(t)

	a, err := w.Write(cbor.Int(1))
	require.NoError(t, err)
	b, err := w.Write(cbor.Text("two"))
	require.NoError(t, err)

	combined := append(append([]byte{}, a...), b...)
	values, err := r.ReadMulti(combined)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.True(t, values[0].Equal(cbor.Int(1)))
	assert.True(t, values[1].Equal(cbor.Text("two")))
}

func TestMapSetUniqueRejectsDuplicate(t *testing.T) {
	m := cbor.NewMap()
	require.NoError(t, m.SetUnique(cbor.Int(1), cbor.Text("a")))
	err := m.SetUnique(cbor.Int(1), cbor.Text("b"))
	assert.Error(t, err)
}

func TestMapPreservesInsertionOrder(t *testing.T) {
	m := cbor.NewMap()
	m.Set(cbor.Int(3), cbor.Null())
	m.Set(cbor.Int(1), cbor.Null())
	m.Set(cbor.Int(2), cbor.Null())

	keys := m.Keys()
	require.Len(t, keys, 3)
	first, _ := keys[0].AsInt64()
	second, _ := keys[1].AsInt64()
	third, _ := keys[2].AsInt64()
	assert.Equal(t, []int64{3, 1, 2}, []int64{first, second, third})
}

func TestFloat32RoundTripsAsFloat32(t *testing.T) {
	r, w := canonical(t)

	original := cbor.Value{Kind: cbor.KindFloat32, Float32: 1.5}
	encoded, err := w.Write(original)
	require.NoError(t, err)

	decoded, err := r.Read(encoded)
	require.NoError(t, err)
	assert.Equal(t, cbor.KindFloat32, decoded.Kind)
	assert.Equal(t, float32(1.5), decoded.Float32)
}

func TestFloat64PreservesNonNarrowableValue(t *testing.T) {
	r, w := canonical(t)

	original := cbor.Value{Kind: cbor.KindFloat64, Float64: 0.1}
	encoded, err := w.Write(original)
	require.NoError(t, err)

	decoded, err := r.Read(encoded)
	require.NoError(t, err)
	assert.Equal(t, cbor.KindFloat64, decoded.Kind)
	assert.Equal(t, 0.1, decoded.Float64)
}
