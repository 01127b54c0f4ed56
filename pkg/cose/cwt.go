package cose

import (
	vccbor "github.com/dc4eu/vc-cryptocore/pkg/cbor"
	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
)

// Claims builds a CWT claim set (spec §4.5): a CBOR map keyed by the
// standard integer claim numbers plus any caller-added claims. Canonical
// encoding sorts map keys by their canonical byte encoding regardless of
// insertion order, so claims may be set in any order — additional claim 99
// inserted before the standard claims still encodes in ascending key order
// (spec §8 scenario 1).
type Claims struct {
	m *vccbor.Map
}

// NewClaims returns an empty claim set.
func NewClaims() *Claims {
	return &Claims{m: vccbor.NewMap()}
}

// Set installs an arbitrary integer-keyed claim, standard or private-use.
func (c *Claims) Set(key int64, value vccbor.Value) *Claims {
	c.m.Set(vccbor.Int(key), value)
	return c
}

// Issuer sets claim 1.
func (c *Claims) Issuer(iss string) *Claims { return c.Set(ClaimIssuer, vccbor.Text(iss)) }

// Subject sets claim 2.
func (c *Claims) Subject(sub string) *Claims { return c.Set(ClaimSubject, vccbor.Text(sub)) }

// Audience sets claim 3.
func (c *Claims) Audience(aud string) *Claims { return c.Set(ClaimAudience, vccbor.Text(aud)) }

// ExpiresAt sets claim 4 to a CWT numeric date (integer seconds since the
// Unix epoch, spec §4.4 DateTime write rule).
func (c *Claims) ExpiresAt(unixSeconds int64) *Claims { return c.Set(ClaimExpiration, vccbor.Int(unixSeconds)) }

// NotBefore sets claim 5.
func (c *Claims) NotBefore(unixSeconds int64) *Claims { return c.Set(ClaimNotBefore, vccbor.Int(unixSeconds)) }

// IssuedAt sets claim 6.
func (c *Claims) IssuedAt(unixSeconds int64) *Claims { return c.Set(ClaimIssuedAt, vccbor.Int(unixSeconds)) }

// CWTID sets claim 7.
func (c *Claims) CWTID(cti []byte) *Claims { return c.Set(ClaimCWTID, vccbor.Bytes(cti)) }

// Value returns the underlying CBOR map value, ready for encoding as a
// COSE_Sign1 payload.
func (c *Claims) Value() vccbor.Value { return vccbor.MapValue(c.m) }

// Marshal encodes the claim set to canonical CBOR bytes, suitable as a
// COSE_Sign1 payload.
func (c *Claims) Marshal() ([]byte, error) {
	w, err := vccbor.NewWriter(vccbor.Canonical)
	if err != nil {
		return nil, err
	}
	return w.Write(c.Value())
}

// ParseClaims decodes a CWT payload into a Claims value.
func ParseClaims(payload []byte) (*Claims, error) {
	r, err := vccbor.NewReader(vccbor.Canonical, vccbor.Options{})
	if err != nil {
		return nil, err
	}
	v, err := r.Read(payload)
	if err != nil {
		return nil, err
	}
	if v.Kind != vccbor.KindMap {
		return nil, errkind.Cbor("CWT payload must decode to a map")
	}
	return &Claims{m: v.Map}, nil
}

// Get looks up an integer-keyed claim.
func (c *Claims) Get(key int64) (vccbor.Value, bool) {
	return c.m.Get(vccbor.Int(key))
}
