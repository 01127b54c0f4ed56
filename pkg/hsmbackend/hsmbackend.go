// Package hsmbackend registers the HSM-backed signing/verification path the
// registry dispatches to when MaterialHsmRef is requested (spec §4.2.1),
// grounded in the teacher's pkg/signing.PKCS11Signer (and its
// not-compiled-in stub, selected by the `pkcs11` build tag). Unlike
// pkg/swbackend, the private key material never enters the registry's
// call path: a Manager holds the opened PKCS#11 sessions itself, and the
// registry's per-call ctxMap carries a "pkcs11_label" hint identifying
// which opened signer to use, mirroring how the teacher's PKCS11Signer and
// SoftwareSigner both satisfy one Signer interface without either knowing
// about the other's resource model.
package hsmbackend

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"math/big"
	"sync"

	"github.com/dc4eu/vc-cryptocore/pkg/cryptoregistry"
	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
	"github.com/dc4eu/vc-cryptocore/pkg/sensitivebuf"
	"github.com/dc4eu/vc-cryptocore/pkg/signing"
)

func hashFor(alg string) crypto.Hash {
	switch alg {
	case "ES384":
		return crypto.SHA384
	case "ES512":
		return crypto.SHA512
	default:
		return crypto.SHA256
	}
}

// Manager owns a set of opened PKCS#11 signers, keyed by an operator-chosen
// label (typically the HSM key label itself).
type Manager struct {
	mu      sync.RWMutex
	signers map[string]*signing.PKCS11Signer
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{signers: make(map[string]*signing.PKCS11Signer)}
}

// Open opens the PKCS#11-backed signer described by cfg and registers it
// under label for later dispatch. Opening the same label twice is a no-op
// returning nil; callers that need to rotate a label's signer must Close it
// first.
func (m *Manager) Open(label string, cfg *signing.PKCS11Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.signers[label]; ok {
		return nil
	}
	signer, err := signing.NewPKCS11Signer(cfg)
	if err != nil {
		return err
	}
	m.signers[label] = signer
	return nil
}

// Close releases every opened signer and empties the label table.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, signer := range m.signers {
		signer.Close()
	}
	m.signers = make(map[string]*signing.PKCS11Signer)
}

func (m *Manager) lookup(ctxMap map[string]any) (*signing.PKCS11Signer, error) {
	label, _ := ctxMap["pkcs11_label"].(string)
	if label == "" {
		return nil, errkind.Unsupported("hsm backend requires a \"pkcs11_label\" context hint")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	signer, ok := m.signers[label]
	if !ok {
		return nil, errkind.Unsupported("no hsm signer opened for label %q", label)
	}
	return signer, nil
}

// Register installs ES256/ES384/ES512 HSM signing and verification
// functions into signingFns/verificationFns for purpose, keyed by
// cryptoregistry.MaterialHsmRef so a caller must opt in via
// ResolveSigningWithMaterial to reach the HSM signing path. The
// verification entries carry the same key; Registry.ResolveVerification
// takes no material and does not return them.
func (m *Manager) Register(signingFns map[cryptoregistry.FunctionKey]cryptoregistry.SigningFn, verificationFns map[cryptoregistry.FunctionKey]cryptoregistry.VerificationFn, purpose cryptoregistry.Purpose) {
	for _, alg := range []string{"ES256", "ES384", "ES512"} {
		alg := alg
		key := cryptoregistry.FunctionKey{Algorithm: alg, Purpose: purpose, Material: cryptoregistry.MaterialHsmRef}
		signingFns[key] = m.signFn(alg)
		verificationFns[key] = m.verifyFn(alg)
	}
}

func (m *Manager) signFn(alg string) cryptoregistry.SigningFn {
	return func(ctx context.Context, _ []byte, data []byte, pool *sensitivebuf.Pool, ctxMap map[string]any) (cryptoregistry.Signature, error) {
		signer, err := m.lookup(ctxMap)
		if err != nil {
			return cryptoregistry.Signature{}, err
		}
		if signer.Algorithm() != alg {
			return cryptoregistry.Signature{}, errkind.Unsupported("hsm signer is bound to %s, not %s", signer.Algorithm(), alg)
		}
		sig, err := signer.Sign(ctx, data)
		if err != nil {
			return cryptoregistry.Signature{}, errkind.Fault("hsm sign failed: %s", err)
		}
		return cryptoregistry.Signature{Bytes: sig, Algorithm: alg}, nil
	}
}

func (m *Manager) verifyFn(alg string) cryptoregistry.VerificationFn {
	return func(ctx context.Context, data, signature, publicKeyBytes []byte, ctxMap map[string]any) (bool, error) {
		signer, err := m.lookup(ctxMap)
		if err != nil {
			return false, err
		}
		if signer.Algorithm() != alg {
			return false, errkind.Unsupported("hsm signer is bound to %s, not %s", signer.Algorithm(), alg)
		}
		// The HSM signer's own PublicKey(), extracted at key-discovery time
		// (pkg/signing.PKCS11Signer.extractECPublicKey), is authoritative;
		// publicKeyBytes is accepted to satisfy the VerificationFn shape but
		// is not consulted.
		pub, ok := signer.PublicKey().(*ecdsa.PublicKey)
		if !ok {
			return false, errkind.Unsupported("hsm signer %q has no ECDSA public key", alg)
		}

		keyLen := (pub.Curve.Params().BitSize + 7) / 8
		if len(signature) != 2*keyLen {
			return false, errkind.Unsupported("invalid signature length %d for %s", len(signature), alg)
		}
		r := new(big.Int).SetBytes(signature[:keyLen])
		s := new(big.Int).SetBytes(signature[keyLen:])

		h := hashFor(alg).New()
		h.Write(data)
		digest := h.Sum(nil)

		return ecdsa.Verify(pub, digest, r, s), nil
	}
}
