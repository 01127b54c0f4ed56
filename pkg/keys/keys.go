// Package keys implements the key factory and bound keys of spec §4.3:
// PublicKey/PrivateKey values that pair sensitive key material with the
// operation function the registry resolved for it, so callers never have
// to re-resolve (or re-expose raw key bytes) across an await/suspension
// point. Grounded in the teacher's pkg/signing.Signer split (software vs
// PKCS#11 both implementing one interface) and pkg/vc20/crypto/keys.go's
// multikey encode/decode conventions.
package keys

import (
	"context"

	"github.com/dc4eu/vc-cryptocore/pkg/cryptoregistry"
	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
	"github.com/dc4eu/vc-cryptocore/pkg/sensitivebuf"
)

// PrivateKey pairs private key material with the signing function resolved
// for (algorithm, purpose, qualifier) at construction time. Sign is safe to
// call across suspension points: the key material lives in an owned
// sensitive buffer rather than a caller's stack-bound view.
type PrivateKey struct {
	material  *sensitivebuf.Buffer
	algorithm string
	qualifier string
	purpose   cryptoregistry.Purpose
	signFn    cryptoregistry.SigningFn
	pool      *sensitivebuf.Pool
	released  bool
}

// PublicKey pairs public key material with the verification function
// resolved for (algorithm, purpose, qualifier). Public keys may be shared
// by read-only reference; unlike PrivateKey they carry no secret material,
// but are still sourced from the sensitive buffer pool for a uniform
// ownership story.
type PublicKey struct {
	material   *sensitivebuf.Buffer
	algorithm  string
	qualifier  string
	purpose    cryptoregistry.Purpose
	verifyFn   cryptoregistry.VerificationFn
}

// Factory resolves registry functions and mints bound keys. A Factory holds
// no state of its own beyond the registry and pool references it was
// constructed with, so it is safe to share across goroutines.
type Factory struct {
	registry *cryptoregistry.Registry
	pool     *sensitivebuf.Pool
}

// NewFactory builds a Factory bound to a specific registry instance and
// buffer pool. Keys are resolved against that instance only, not against
// the package-level registry behind cryptoregistry.ResolveSigning/
// ResolveVerification.
func NewFactory(registry *cryptoregistry.Registry, pool *sensitivebuf.Pool) *Factory {
	return &Factory{registry: registry, pool: pool}
}

// NewPrivateKey resolves a SigningFn for (algorithm, purpose, qualifier)
// and copies keyBytes into an owned, zeroizing sensitive buffer tagged
// PurposeSigning/SemanticsDirect.
func (f *Factory) NewPrivateKey(ctx context.Context, keyBytes []byte, algorithm string, purpose cryptoregistry.Purpose, qualifier string) (*PrivateKey, error) {
	fn, err := f.registry.ResolveSigning(algorithm, purpose, qualifier)
	if err != nil {
		return nil, err
	}
	buf, err := f.pool.Rent(len(keyBytes), sensitivebuf.Tag{Purpose: sensitivebuf.PurposeSigning, Material: sensitivebuf.SemanticsDirect})
	if err != nil {
		return nil, err
	}
	copy(buf.Bytes(), keyBytes)
	return &PrivateKey{
		material:  buf,
		algorithm: algorithm,
		qualifier: qualifier,
		purpose:   purpose,
		signFn:    fn,
		pool:      f.pool,
	}, nil
}

// NewPublicKey resolves a VerificationFn for (algorithm, purpose,
// qualifier) and copies keyBytes into an owned sensitive buffer tagged
// PurposeVerification/SemanticsDirect.
func (f *Factory) NewPublicKey(ctx context.Context, keyBytes []byte, algorithm string, purpose cryptoregistry.Purpose, qualifier string) (*PublicKey, error) {
	fn, err := f.registry.ResolveVerification(algorithm, purpose, qualifier)
	if err != nil {
		return nil, err
	}
	buf, err := f.pool.Rent(len(keyBytes), sensitivebuf.Tag{Purpose: sensitivebuf.PurposeVerification, Material: sensitivebuf.SemanticsDirect})
	if err != nil {
		return nil, err
	}
	copy(buf.Bytes(), keyBytes)
	return &PublicKey{
		material:  buf,
		algorithm: algorithm,
		qualifier: qualifier,
		purpose:   purpose,
		verifyFn:  fn,
	}, nil
}

// Sign signs data using the bound signing function and the key's own
// material. ctxMap carries optional backend hints through to the
// underlying registry function.
func (k *PrivateKey) Sign(ctx context.Context, data []byte, ctxMap map[string]any) (cryptoregistry.Signature, error) {
	if k.released {
		return cryptoregistry.Signature{}, errkind.Unsupported("private key material already released")
	}
	return k.signFn(ctx, k.material.Bytes(), data, k.pool, ctxMap)
}

// Algorithm returns the algorithm this key is bound to.
func (k *PrivateKey) Algorithm() string { return k.algorithm }

// Qualifier returns the qualifier (typically a curve name) this key is
// bound to.
func (k *PrivateKey) Qualifier() string { return k.qualifier }

// Release zeroizes the private key material. Deterministic release is
// required by spec §3; callers must invoke this on every code path.
func (k *PrivateKey) Release() {
	if k.released {
		return
	}
	k.material.Release()
	k.released = true
}

// Verify verifies signature over data using the bound verification
// function. A false return means the signature did not validate; it is
// never surfaced as an error unless the inputs are malformed or the
// backend itself fails.
func (k *PublicKey) Verify(ctx context.Context, data, signature []byte, ctxMap map[string]any) (bool, error) {
	return k.verifyFn(ctx, data, signature, k.material.Bytes(), ctxMap)
}

// Algorithm returns the algorithm this key is bound to.
func (k *PublicKey) Algorithm() string { return k.algorithm }

// Qualifier returns the qualifier (typically a curve name) this key is
// bound to.
func (k *PublicKey) Qualifier() string { return k.qualifier }

// Bytes returns the raw public key bytes. Unlike PrivateKey, exposing
// public material carries no confidentiality requirement.
func (k *PublicKey) Bytes() []byte { return k.material.Bytes() }

// Release returns the public key's buffer to the pool. Public keys carry
// no secret, but release is still deterministic so pool accounting stays
// accurate.
func (k *PublicKey) Release() {
	k.material.Release()
}
