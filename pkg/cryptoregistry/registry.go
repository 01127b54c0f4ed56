// Package cryptoregistry is the process-wide, initialize-once dispatch
// table described in spec §4.2: it routes (algorithm, purpose, qualifier)
// to pluggable signing/verification backends. It deliberately holds no
// concrete cryptographic implementation — those are supplied by callers at
// Initialize time, mirroring the teacher's pattern of a narrow Signer
// interface (pkg/signing.Signer) satisfied by independent software and
// PKCS#11 backends that the registry never imports directly.
package cryptoregistry

import (
	"context"
	"sync/atomic"

	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
	"github.com/dc4eu/vc-cryptocore/pkg/sensitivebuf"
)

// Purpose scopes a registry entry to the operation it supports. Distinct
// from sensitivebuf.Purpose, which tags buffer material rather than
// dispatch intent, though the two vocabularies overlap for signing and
// verification.
type Purpose string

const (
	PurposeSign      Purpose = "sign"
	PurposeVerify    Purpose = "verify"
	PurposeCoseSign1 Purpose = "cose_sign1"
	PurposeSdProof   Purpose = "ecdsa_sd_2023"
)

// Material is the optional third discriminator from spec §4.2: when set to
// MaterialTpmHandle, routing MUST deliver a TPM-backed function; when
// MaterialDirect, a software function. Material is part of the exact
// lookup key: MaterialUnspecified only finds entries registered without a
// material. Verification entries are looked up with MaterialUnspecified
// only, since ResolveVerification takes no material.
type Material string

const (
	MaterialUnspecified Material = ""
	MaterialDirect      Material = "direct"
	MaterialTpmHandle   Material = "tpm_handle"
	MaterialHsmRef      Material = "hsm_reference"
)

// FunctionKey is the registry's lookup key. Qualifier is typically a curve
// or backend discriminator (e.g. "P-256"); it may be empty to match any
// qualifier registered for the (algorithm, purpose) pair.
type FunctionKey struct {
	Algorithm string
	Purpose   Purpose
	Qualifier string
	Material  Material
}

// Signature is a signature's bytes paired with the algorithm tag that
// produced them, per spec §3 (Signature entity).
type Signature struct {
	Bytes     []byte
	Algorithm string
}

// SigningFn signs data with privateKeyBytes, scratch-allocating any
// intermediate buffers from pool. ctxMap carries backend-specific hints
// (PKCS#11 slot/label, TPM handle) the registry never interprets.
type SigningFn func(ctx context.Context, privateKeyBytes, data []byte, pool *sensitivebuf.Pool, ctxMap map[string]any) (Signature, error)

// VerificationFn verifies signature over data with publicKeyBytes.
// Verification failure is a false return, never an error; errors are
// reserved for malformed inputs, unsupported algorithms, or backend
// failure.
type VerificationFn func(ctx context.Context, data, signature, publicKeyBytes []byte, ctxMap map[string]any) (bool, error)

type tables struct {
	signing      map[FunctionKey]SigningFn
	verification map[FunctionKey]VerificationFn
}

// Registry is the process-wide store. Initialize exactly once before the
// first concurrent Resolve call; a second Initialize call overwrites
// atomically without tearing, but ordering between that call and
// in-flight Resolve calls is the caller's responsibility.
type Registry struct {
	current atomic.Pointer[tables]
}

// global is the process-wide singleton instance, resolved via the
// package-level functions below.
var global Registry

// Initialize installs the signing and verification tables as the current
// registry state, replacing any previous state atomically.
func Initialize(signing map[FunctionKey]SigningFn, verification map[FunctionKey]VerificationFn) {
	global.Initialize(signing, verification)
}

// Initialize installs the given tables on this registry instance.
func (r *Registry) Initialize(signing map[FunctionKey]SigningFn, verification map[FunctionKey]VerificationFn) {
	t := &tables{
		signing:      cloneSigning(signing),
		verification: cloneVerification(verification),
	}
	r.current.Store(t)
}

func cloneSigning(in map[FunctionKey]SigningFn) map[FunctionKey]SigningFn {
	out := make(map[FunctionKey]SigningFn, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneVerification(in map[FunctionKey]VerificationFn) map[FunctionKey]VerificationFn {
	out := make(map[FunctionKey]VerificationFn, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ResolveSigning resolves a SigningFn from the package-level registry.
func ResolveSigning(alg string, purpose Purpose, qualifier string) (SigningFn, error) {
	return global.ResolveSigning(alg, purpose, qualifier)
}

// ResolveVerification resolves a VerificationFn from the package-level
// registry.
func ResolveVerification(alg string, purpose Purpose, qualifier string) (VerificationFn, error) {
	return global.ResolveVerification(alg, purpose, qualifier)
}

// ResolveSigningWithMaterial resolves a SigningFn requiring a specific
// MaterialSemantics discriminator, per spec §4.2's planned routing: when
// material is MaterialTpmHandle, only a TPM-backed function may satisfy the
// lookup; when MaterialDirect, only a software function.
func ResolveSigningWithMaterial(alg string, purpose Purpose, qualifier string, material Material) (SigningFn, error) {
	return global.ResolveSigningWithMaterial(alg, purpose, qualifier, material)
}

func (r *Registry) snapshot() (*tables, error) {
	t := r.current.Load()
	if t == nil {
		return nil, errkind.NotInitialized("crypto registry")
	}
	return t, nil
}

// ResolveSigning looks up a signing function, trying the exact qualifier
// first and falling back to the empty-qualifier (algorithm-wide) entry.
func (r *Registry) ResolveSigning(alg string, purpose Purpose, qualifier string) (SigningFn, error) {
	return r.ResolveSigningWithMaterial(alg, purpose, qualifier, MaterialUnspecified)
}

// ResolveSigningWithMaterial is the material-aware variant used by
// ResolveSigning and by callers that care about MaterialSemantics.
func (r *Registry) ResolveSigningWithMaterial(alg string, purpose Purpose, qualifier string, material Material) (SigningFn, error) {
	t, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	if fn, ok := t.signing[FunctionKey{Algorithm: alg, Purpose: purpose, Qualifier: qualifier, Material: material}]; ok {
		return fn, nil
	}
	if qualifier != "" {
		if fn, ok := t.signing[FunctionKey{Algorithm: alg, Purpose: purpose, Qualifier: "", Material: material}]; ok {
			return fn, nil
		}
	}
	return nil, errkind.Unsupported("no signing function registered for algorithm=%s purpose=%s qualifier=%s material=%s", alg, purpose, qualifier, material)
}

// ResolveVerification looks up a verification function with the same
// qualifier fallback behavior as ResolveSigning.
func (r *Registry) ResolveVerification(alg string, purpose Purpose, qualifier string) (VerificationFn, error) {
	t, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	key := FunctionKey{Algorithm: alg, Purpose: purpose, Qualifier: qualifier}
	if fn, ok := t.verification[key]; ok {
		return fn, nil
	}
	if qualifier != "" {
		if fn, ok := t.verification[FunctionKey{Algorithm: alg, Purpose: purpose}]; ok {
			return fn, nil
		}
	}
	return nil, errkind.Unsupported("no verification function registered for algorithm=%s purpose=%s qualifier=%s", alg, purpose, qualifier)
}

// Reset clears the package-level registry. Test-only helper: production
// code initializes once at startup and never resets.
func Reset() {
	global.current.Store(nil)
}
