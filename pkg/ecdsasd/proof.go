// Package ecdsasd implements the ecdsa-sd-2023 base/derived proof codec of
// spec §4.7: 3-byte magic-prefixed canonical CBOR arrays wrapped in a
// multibase envelope, plus label-map compression for derived proofs.
// Grounded directly in the teacher's pkg/vc20/crypto/ecdsa-sd/cbor.go
// (EncodeBaseProof/DecodeBaseProof/EncodeDerivedProof/DecodeDerivedProof),
// generalized from that file's fixed 4/5-element JSON-Pointer-oriented
// shape onto the distilled spec's 5-element base proof (adding the
// per-statement signature list ahead of the mandatory pointers) and its
// compressed label-map representation.
package ecdsasd

import (
	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
	"github.com/fxamacker/cbor/v2"
	"github.com/multiformats/go-multibase"
)

// Magic byte sequences prefixing base and derived proof CBOR bytes (spec
// §4.7/§6). Each is itself a well-formed CBOR tag-6 header for a 2-byte tag
// number (23808 / 23809 respectively), so the bytes that follow are a
// plain canonical-CBOR array — no separate tag wrapping is needed.
var (
	BaseProofMagic    = [3]byte{0xd9, 0x5d, 0x00}
	DerivedProofMagic = [3]byte{0xd9, 0x5d, 0x01}
)

// BaseProof is the ecdsa-sd-2023 base proof value (spec §3 BaseProofValue).
type BaseProof struct {
	BaseSignature          []byte
	MultikeyPublicKey      []byte
	HMACKey                []byte
	PerStatementSignatures [][]byte
	MandatoryPointers      []string
}

// DerivedProof is the ecdsa-sd-2023 derived proof value (spec §3
// DerivedProofValue). LabelMap is already decompressed to blank-node label
// -> HMAC bytes; see CompressLabelMap/DecompressLabelMap for the wire
// "c14nN" -> "u<base64url>" <-> {N -> bytes} conversion.
type DerivedProof struct {
	BaseSignature     []byte
	MultikeyPublicKey []byte
	Signatures        [][]byte
	LabelMap          map[int][]byte
	MandatoryIndexes  []int
}

func canonicalEncoder() (cbor.EncMode, error) {
	return cbor.CanonicalEncOptions().EncMode()
}

// EncodeBaseProof serializes p as magic `D9 5D 00` followed by canonical
// CBOR `[base_signature, multikey_public_key, hmac_key,
// [per_statement_signatures], [mandatory_pointer_strings]]`, wrapped in a
// multibase envelope ("u" + base64url_no_pad).
func EncodeBaseProof(p BaseProof) (string, error) {
	enc, err := canonicalEncoder()
	if err != nil {
		return "", errkind.CborWrap(err, "failed to build CBOR encoder")
	}

	array := []any{
		p.BaseSignature,
		p.MultikeyPublicKey,
		p.HMACKey,
		p.PerStatementSignatures,
		p.MandatoryPointers,
	}
	cborBytes, err := enc.Marshal(array)
	if err != nil {
		return "", errkind.CborWrap(err, "failed to encode base proof array")
	}

	tagged := make([]byte, 0, 3+len(cborBytes))
	tagged = append(tagged, BaseProofMagic[:]...)
	tagged = append(tagged, cborBytes...)

	encoded, err := multibase.Encode(multibase.Base64url, tagged)
	if err != nil {
		return "", errkind.FormatInvalid("multibase encoding failed: %s", err)
	}
	return encoded, nil
}

// DecodeBaseProof parses a multibase-enveloped base proof, verifying the
// magic header, the outer array arity, and each element's shape before
// trusting it (spec §4.7 "Parse MUST verify...").
func DecodeBaseProof(encoded string) (*BaseProof, error) {
	decoded, err := decodeMultibaseEnvelope(encoded, BaseProofMagic)
	if err != nil {
		return nil, err
	}

	var array []any
	if err := cbor.Unmarshal(decoded, &array); err != nil {
		return nil, errkind.CborWrap(err, "failed to decode base proof array")
	}
	if len(array) != 5 {
		return nil, errkind.FormatInvalid("base proof array must have exactly 5 elements, got %d", len(array))
	}

	baseSig, ok := asBytes(array[0])
	if !ok {
		return nil, errkind.FormatInvalid("base proof base_signature must be a byte string")
	}
	pubKey, ok := asBytes(array[1])
	if !ok {
		return nil, errkind.FormatInvalid("base proof multikey_public_key must be a byte string")
	}
	hmacKey, ok := asBytes(array[2])
	if !ok {
		return nil, errkind.FormatInvalid("base proof hmac_key must be a byte string")
	}
	sigs, err := asByteStringArray(array[3])
	if err != nil {
		return nil, errkind.FormatInvalid("base proof per_statement_signatures: %s", err)
	}
	pointers, err := asStringArray(array[4])
	if err != nil {
		return nil, errkind.FormatInvalid("base proof mandatory_pointer_strings: %s", err)
	}

	return &BaseProof{
		BaseSignature:          baseSig,
		MultikeyPublicKey:      pubKey,
		HMACKey:                hmacKey,
		PerStatementSignatures: sigs,
		MandatoryPointers:      pointers,
	}, nil
}

// EncodeDerivedProof serializes p as magic `D9 5D 01` followed by canonical
// CBOR `[base_signature, multikey_public_key, [signatures], label_map,
// [mandatory_indexes]]`, wrapped in a multibase envelope.
func EncodeDerivedProof(p DerivedProof) (string, error) {
	enc, err := canonicalEncoder()
	if err != nil {
		return "", errkind.CborWrap(err, "failed to build CBOR encoder")
	}

	labelMap := make(map[int][]byte, len(p.LabelMap))
	for n, hmacBytes := range p.LabelMap {
		labelMap[n] = hmacBytes
	}

	array := []any{
		p.BaseSignature,
		p.MultikeyPublicKey,
		p.Signatures,
		labelMap,
		p.MandatoryIndexes,
	}
	cborBytes, err := enc.Marshal(array)
	if err != nil {
		return "", errkind.CborWrap(err, "failed to encode derived proof array")
	}

	tagged := make([]byte, 0, 3+len(cborBytes))
	tagged = append(tagged, DerivedProofMagic[:]...)
	tagged = append(tagged, cborBytes...)

	encoded, err := multibase.Encode(multibase.Base64url, tagged)
	if err != nil {
		return "", errkind.FormatInvalid("multibase encoding failed: %s", err)
	}
	return encoded, nil
}

// DecodeDerivedProof parses a multibase-enveloped derived proof, verifying
// the magic header, the outer array arity, and each element's shape.
func DecodeDerivedProof(encoded string) (*DerivedProof, error) {
	decoded, err := decodeMultibaseEnvelope(encoded, DerivedProofMagic)
	if err != nil {
		return nil, err
	}

	var array []any
	if err := cbor.Unmarshal(decoded, &array); err != nil {
		return nil, errkind.CborWrap(err, "failed to decode derived proof array")
	}
	if len(array) != 5 {
		return nil, errkind.FormatInvalid("derived proof array must have exactly 5 elements, got %d", len(array))
	}

	baseSig, ok := asBytes(array[0])
	if !ok {
		return nil, errkind.FormatInvalid("derived proof base_signature must be a byte string")
	}
	pubKey, ok := asBytes(array[1])
	if !ok {
		return nil, errkind.FormatInvalid("derived proof multikey_public_key must be a byte string")
	}
	sigs, err := asByteStringArray(array[2])
	if err != nil {
		return nil, errkind.FormatInvalid("derived proof signatures: %s", err)
	}
	labelMap, err := asLabelMap(array[3])
	if err != nil {
		return nil, errkind.FormatInvalid("derived proof label_map: %s", err)
	}
	indexes, err := asIntArray(array[4])
	if err != nil {
		return nil, errkind.FormatInvalid("derived proof mandatory_indexes: %s", err)
	}

	return &DerivedProof{
		BaseSignature:     baseSig,
		MultikeyPublicKey: pubKey,
		Signatures:        sigs,
		LabelMap:          labelMap,
		MandatoryIndexes:  indexes,
	}, nil
}

func decodeMultibaseEnvelope(encoded string, magic [3]byte) ([]byte, error) {
	if encoded == "" {
		return nil, errkind.FormatInvalid("proof value is empty")
	}
	_, decoded, err := multibase.Decode(encoded)
	if err != nil {
		return nil, errkind.FormatInvalid("multibase decoding failed: %s", err)
	}
	if len(decoded) < 3 {
		return nil, errkind.FormatInvalid("proof data too short for magic header")
	}
	if decoded[0] != magic[0] || decoded[1] != magic[1] || decoded[2] != magic[2] {
		return nil, errkind.FormatInvalid("invalid proof magic: expected %02x %02x %02x, got %02x %02x %02x",
			magic[0], magic[1], magic[2], decoded[0], decoded[1], decoded[2])
	}
	return decoded[3:], nil
}
