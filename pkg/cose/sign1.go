// Package cose implements the COSE_Sign1/CWT serializer of spec §4.5:
// tag(18) 4-element arrays, the Sig_structure, and CWT claim maps keyed by
// RFC 8392 integer claim numbers. Grounded in the teacher's
// pkg/mdoc/cose.go (COSESign1 MarshalCBOR/UnmarshalCBOR, Sig_structure
// construction, algorithm-to-hash dispatch) and pkg/tokenstatuslist/cwt.go
// (CWT claim map, signCOSE), generalized from those packages' fixed mdoc/
// status-list payload shapes onto the key factory's bound-key signing
// contract instead of a raw crypto.Signer.
package cose

import (
	"context"

	vccbor "github.com/dc4eu/vc-cryptocore/pkg/cbor"
	"github.com/dc4eu/vc-cryptocore/pkg/cryptoregistry"
	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
	"github.com/dc4eu/vc-cryptocore/pkg/keys"
)

// Sign1Tag is the CBOR tag number for COSE_Sign1 (RFC 9052 §4.2).
const Sign1Tag = 18

// COSE header labels (RFC 9052 §3.1).
const (
	HeaderAlgorithm int64 = 1
	HeaderKeyID     int64 = 4
)

// CWT claim keys (RFC 8392 §4).
const (
	ClaimIssuer     int64 = 1
	ClaimSubject    int64 = 2
	ClaimAudience   int64 = 3
	ClaimExpiration int64 = 4
	ClaimNotBefore  int64 = 5
	ClaimIssuedAt   int64 = 6
	ClaimCWTID      int64 = 7

	// SdClaimsHeader is the unprotected-header key carrying disclosures
	// (spec §4.6).
	SdClaimsHeader int64 = 17
)

// Sign1Message is an immutable COSE_Sign1 value: protected-header bytes,
// unprotected-header map, payload bytes, and signature bytes (spec §3
// CoseSign1Message).
type Sign1Message struct {
	Protected   []byte
	Unprotected *vccbor.Map
	Payload     []byte
	Signature   []byte
}

// Sign1 builds and signs a COSE_Sign1 message. protectedHeaders must at
// minimum carry the algorithm label; callers populate it (e.g. with
// HeaderAlgorithm -> -7 for ES256) before calling Sign1. unprotected may be
// nil, in which case an empty map is used.
func Sign1(ctx context.Context, key *keys.PrivateKey, protectedHeaders, unprotected *vccbor.Map, payload, externalAAD []byte) (*Sign1Message, error) {
	w, err := vccbor.NewWriter(vccbor.Canonical)
	if err != nil {
		return nil, err
	}

	protectedBytes, err := w.Write(vccbor.MapValue(protectedHeaders))
	if err != nil {
		return nil, err
	}

	toBeSigned, err := sigStructureBytes(w, protectedBytes, externalAAD, payload)
	if err != nil {
		return nil, err
	}

	sig, err := key.Sign(ctx, toBeSigned, nil)
	if err != nil {
		return nil, err
	}

	if unprotected == nil {
		unprotected = vccbor.NewMap()
	}

	return &Sign1Message{
		Protected:   protectedBytes,
		Unprotected: unprotected,
		Payload:     payload,
		Signature:   sig.Bytes,
	}, nil
}

// Verify verifies msg's signature over its (possibly detached) payload.
// detachedPayload, if non-nil, is used in place of msg.Payload when
// building the Sig_structure (spec §4.5/§6).
func Verify(ctx context.Context, key *keys.PublicKey, msg *Sign1Message, externalAAD, detachedPayload []byte) (bool, error) {
	w, err := vccbor.NewWriter(vccbor.Canonical)
	if err != nil {
		return false, err
	}

	payload := msg.Payload
	if detachedPayload != nil {
		payload = detachedPayload
	}

	toBeSigned, err := sigStructureBytes(w, msg.Protected, externalAAD, payload)
	if err != nil {
		return false, err
	}

	return key.Verify(ctx, toBeSigned, msg.Signature, nil)
}

func sigStructureBytes(w *vccbor.Writer, protected, externalAAD, payload []byte) ([]byte, error) {
	if externalAAD == nil {
		externalAAD = []byte{}
	}
	sigStructure := vccbor.Arr(
		vccbor.Text("Signature1"),
		vccbor.Bytes(protected),
		vccbor.Bytes(externalAAD),
		vccbor.Bytes(payload),
	)
	return w.Write(sigStructure)
}

// Marshal encodes msg as tag(18) [protected, unprotected, payload, signature].
func (msg *Sign1Message) Marshal() ([]byte, error) {
	w, err := vccbor.NewWriter(vccbor.Canonical)
	if err != nil {
		return nil, err
	}
	arr := vccbor.Arr(
		vccbor.Bytes(msg.Protected),
		vccbor.MapValue(msg.Unprotected),
		vccbor.Bytes(msg.Payload),
		vccbor.Bytes(msg.Signature),
	)
	return w.Write(vccbor.TagValue(Sign1Tag, arr))
}

// Parse decodes tag(18) [protected, unprotected, payload, signature] bytes
// into a Sign1Message, enforcing the tag number and array arity (spec §8
// scenario 2).
func Parse(data []byte) (*Sign1Message, error) {
	r, err := vccbor.NewReader(vccbor.Canonical, vccbor.Options{})
	if err != nil {
		return nil, err
	}
	v, err := r.Read(data)
	if err != nil {
		return nil, err
	}
	if v.Kind != vccbor.KindTag {
		return nil, errkind.Cbor("expected a tagged COSE_Sign1 value, got %s", v.Kind)
	}
	if v.Tag.Number != Sign1Tag {
		return nil, errkind.Cbor("expected COSE_Sign1 tag %d, got %d", Sign1Tag, v.Tag.Number)
	}
	inner := v.Tag.Value
	if inner.Kind != vccbor.KindArray || len(inner.Array) != 4 {
		return nil, errkind.Cbor("COSE_Sign1 array must have exactly 4 elements")
	}

	protected, ok := inner.Array[0].AsBytes()
	if !ok {
		return nil, errkind.Cbor("COSE_Sign1 protected header must be a byte string")
	}
	if inner.Array[1].Kind != vccbor.KindMap {
		return nil, errkind.Cbor("COSE_Sign1 unprotected header must be a map")
	}
	payload, _ := inner.Array[2].AsBytes()
	signature, ok := inner.Array[3].AsBytes()
	if !ok {
		return nil, errkind.Cbor("COSE_Sign1 signature must be a byte string")
	}

	return &Sign1Message{
		Protected:   protected,
		Unprotected: inner.Array[1].Map,
		Payload:     payload,
		Signature:   signature,
	}, nil
}

// AlgorithmFromProtected extracts the COSE algorithm label (header key 1)
// from raw protected-header bytes.
func AlgorithmFromProtected(protected []byte) (int64, error) {
	r, err := vccbor.NewReader(vccbor.Canonical, vccbor.Options{})
	if err != nil {
		return 0, err
	}
	v, err := r.Read(protected)
	if err != nil {
		return 0, err
	}
	if v.Kind != vccbor.KindMap {
		return 0, errkind.Cbor("protected header must decode to a map")
	}
	alg, ok := v.Map.Get(vccbor.Int(HeaderAlgorithm))
	if !ok {
		return 0, errkind.Cbor("protected header missing algorithm label")
	}
	i, ok := alg.AsInt64()
	if !ok {
		return 0, errkind.Cbor("algorithm label is not an integer")
	}
	return i, nil
}

// cryptoPurpose is the registry purpose CWT/COSE signing keys are bound
// under, distinguishing them from ecdsa-sd-2023 proof keys (spec §4.2).
const cryptoPurpose = cryptoregistry.PurposeCoseSign1
