// Package sdcwt implements the SD-CWT selective-disclosure codec of spec
// §4.6: disclosures as CBOR arrays, the sd_claims unprotected header,
// disclosure/sd_hash digest computation, and depth-first path-lattice
// extraction. Grounded in the teacher's pkg/vc20/crypto/ecdsa-sd package
// (JSONPointer-style path construction in selection.go, HMAC/digest
// patterns in hmac.go) generalized from JSON-LD selective disclosure onto
// CBOR/CWT, and in pkg/tokenstatuslist/cwt.go's integer-claim-map CBOR
// handling.
package sdcwt

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"hash"

	vccbor "github.com/dc4eu/vc-cryptocore/pkg/cbor"
	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
)

// HashAlg names a disclosure digest algorithm (spec §4.6: H ∈
// {sha-256, sha-384, sha-512}).
type HashAlg string

const (
	SHA256 HashAlg = "sha-256"
	SHA384 HashAlg = "sha-384"
	SHA512 HashAlg = "sha-512"
)

// New returns a fresh hash.Hash for the algorithm.
func (h HashAlg) New() (hash.Hash, error) {
	switch h {
	case SHA256:
		return sha256.New(), nil
	case SHA384:
		return sha512.New384(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, errkind.Unsupported("unsupported disclosure digest algorithm %q", h)
	}
}

// Disclosure is one SD-CWT disclosure: a salt plus either a claim name and
// value (property disclosure) or just a value (array-element disclosure).
type Disclosure struct {
	Salt  []byte
	Name  *string
	Value vccbor.Value
}

// NewPropertyDisclosure builds a disclosure for a named claim.
func NewPropertyDisclosure(salt []byte, name string, value vccbor.Value) Disclosure {
	return Disclosure{Salt: salt, Name: &name, Value: value}
}

// NewArrayElementDisclosure builds a disclosure for a redacted array element.
func NewArrayElementDisclosure(salt []byte, value vccbor.Value) Disclosure {
	return Disclosure{Salt: salt, Value: value}
}

// toValue encodes the disclosure as its CBOR array shape: [salt, name,
// value] for property disclosures, [salt, value] for array-element ones.
func (d Disclosure) toValue() vccbor.Value {
	if d.Name != nil {
		return vccbor.Arr(vccbor.Bytes(d.Salt), vccbor.Text(*d.Name), d.Value)
	}
	return vccbor.Arr(vccbor.Bytes(d.Salt), d.Value)
}

// Marshal encodes the disclosure to canonical CBOR bytes.
func (d Disclosure) Marshal() ([]byte, error) {
	w, err := vccbor.NewWriter(vccbor.Canonical)
	if err != nil {
		return nil, err
	}
	return w.Write(d.toValue())
}

// ParseDisclosure decodes a single disclosure's CBOR bytes.
func ParseDisclosure(data []byte) (Disclosure, error) {
	r, err := vccbor.NewReader(vccbor.Canonical, vccbor.Options{})
	if err != nil {
		return Disclosure{}, err
	}
	v, err := r.Read(data)
	if err != nil {
		return Disclosure{}, err
	}
	return fromValue(v)
}

func fromValue(v vccbor.Value) (Disclosure, error) {
	if v.Kind != vccbor.KindArray {
		return Disclosure{}, errkind.Cbor("disclosure must be a CBOR array")
	}
	switch len(v.Array) {
	case 2:
		salt, ok := v.Array[0].AsBytes()
		if !ok {
			return Disclosure{}, errkind.Cbor("disclosure salt must be a byte string")
		}
		return NewArrayElementDisclosure(salt, v.Array[1]), nil
	case 3:
		salt, ok := v.Array[0].AsBytes()
		if !ok {
			return Disclosure{}, errkind.Cbor("disclosure salt must be a byte string")
		}
		name, ok := v.Array[1].AsText()
		if !ok {
			return Disclosure{}, errkind.Cbor("disclosure claim name must be text")
		}
		return NewPropertyDisclosure(salt, name, v.Array[2]), nil
	default:
		return Disclosure{}, errkind.Cbor("disclosure array must have 2 or 3 elements, got %d", len(v.Array))
	}
}

// Digest computes H(canonical_cbor(disclosure_bytes)) (spec §4.6).
func (d Disclosure) Digest(alg HashAlg) ([]byte, error) {
	encoded, err := d.Marshal()
	if err != nil {
		return nil, err
	}
	h, err := alg.New()
	if err != nil {
		return nil, err
	}
	h.Write(encoded)
	return h.Sum(nil), nil
}

// DigestBase64URL returns the Base64URL-encoded digest used to match
// disclosures to their payload location (spec §4.6 path lattice).
func (d Disclosure) DigestBase64URL(alg HashAlg) (string, error) {
	digest, err := d.Digest(alg)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(digest), nil
}

// EncodeSdClaimsHeader CBOR-encodes each disclosure and wraps them in a
// definite-length array of byte strings, the value carried under
// unprotected header key 17 (spec §4.6/§6).
func EncodeSdClaimsHeader(disclosures []Disclosure) (vccbor.Value, error) {
	items := make([]vccbor.Value, len(disclosures))
	for i, d := range disclosures {
		encoded, err := d.Marshal()
		if err != nil {
			return vccbor.Value{}, err
		}
		items[i] = vccbor.Bytes(encoded)
	}
	return vccbor.Arr(items...), nil
}

// DecodeSdClaimsHeader reverses EncodeSdClaimsHeader.
func DecodeSdClaimsHeader(v vccbor.Value) ([]Disclosure, error) {
	if v.Kind != vccbor.KindArray {
		return nil, errkind.Cbor("sd_claims header must be a CBOR array")
	}
	out := make([]Disclosure, len(v.Array))
	for i, item := range v.Array {
		b, ok := item.AsBytes()
		if !ok {
			return nil, errkind.Cbor("sd_claims entry %d must be a byte string", i)
		}
		d, err := ParseDisclosure(b)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// SdHash computes the key-binding hash over the raw encoded sd_claims
// array bytes (spec §4.6).
func SdHash(sdClaimsArrayBytes []byte, alg HashAlg) ([]byte, error) {
	h, err := alg.New()
	if err != nil {
		return nil, err
	}
	h.Write(sdClaimsArrayBytes)
	return h.Sum(nil), nil
}
