// Package swbackend provides the pure-Go software signing/verification
// backend, registered both under cryptoregistry.MaterialDirect and without
// a material (MaterialUnspecified). It is the direct
// analogue of the teacher's SoftwareSigner (pkg/signing/software.go),
// adapted from the JWT-signature fixed-length r||s convention to the
// registry's (algorithm, purpose, qualifier) dispatch shape, and extended
// to cover the P-256/P-384/P-521 curves the ecdsa-sd-2023 and COSE/CWT
// codecs need.
package swbackend

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"math/big"

	"github.com/dc4eu/vc-cryptocore/pkg/cryptoregistry"
	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
	"github.com/dc4eu/vc-cryptocore/pkg/sensitivebuf"
)

// Algorithm names used as registry keys, matching the COSE algorithm
// identifiers' conventional string form.
const (
	AlgES256 = "ES256"
	AlgES384 = "ES384"
	AlgES512 = "ES512"
)

func curveFor(alg string) (elliptic.Curve, crypto.Hash, error) {
	switch alg {
	case AlgES256:
		return elliptic.P256(), crypto.SHA256, nil
	case AlgES384:
		return elliptic.P384(), crypto.SHA384, nil
	case AlgES512:
		return elliptic.P521(), crypto.SHA512, nil
	default:
		return nil, 0, errkind.Unsupported("unsupported ECDSA algorithm %q", alg)
	}
}

// Register installs ES256/ES384/ES512 software signing and verification
// functions into the given signing/verification maps for the given
// purpose, suitable for passing to cryptoregistry.Initialize.
func Register(signing map[cryptoregistry.FunctionKey]cryptoregistry.SigningFn, verification map[cryptoregistry.FunctionKey]cryptoregistry.VerificationFn, purpose cryptoregistry.Purpose) {
	for _, alg := range []string{AlgES256, AlgES384, AlgES512} {
		alg := alg
		signing[cryptoregistry.FunctionKey{Algorithm: alg, Purpose: purpose, Material: cryptoregistry.MaterialDirect}] = signFn(alg)
		signing[cryptoregistry.FunctionKey{Algorithm: alg, Purpose: purpose}] = signFn(alg)
		verification[cryptoregistry.FunctionKey{Algorithm: alg, Purpose: purpose, Material: cryptoregistry.MaterialDirect}] = verifyFn(alg)
		verification[cryptoregistry.FunctionKey{Algorithm: alg, Purpose: purpose}] = verifyFn(alg)
	}
}

func signFn(alg string) cryptoregistry.SigningFn {
	return func(ctx context.Context, privateKeyBytes, data []byte, pool *sensitivebuf.Pool, ctxMap map[string]any) (cryptoregistry.Signature, error) {
		curve, hash, err := curveFor(alg)
		if err != nil {
			return cryptoregistry.Signature{}, err
		}
		priv := new(ecdsa.PrivateKey)
		priv.Curve = curve
		priv.D = new(big.Int).SetBytes(privateKeyBytes)
		priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(privateKeyBytes)

		h := hash.New()
		h.Write(data)
		digest := h.Sum(nil)

		r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
		if err != nil {
			return cryptoregistry.Signature{}, errkind.Fault("ecdsa sign failed: %s", err)
		}

		keyBytes := (curve.Params().BitSize + 7) / 8
		sig := make([]byte, 2*keyBytes)
		rBytes := r.Bytes()
		sBytes := s.Bytes()
		copy(sig[keyBytes-len(rBytes):keyBytes], rBytes)
		copy(sig[2*keyBytes-len(sBytes):], sBytes)

		return cryptoregistry.Signature{Bytes: sig, Algorithm: alg}, nil
	}
}

func verifyFn(alg string) cryptoregistry.VerificationFn {
	return func(ctx context.Context, data, signature, publicKeyBytes []byte, ctxMap map[string]any) (bool, error) {
		curve, hash, err := curveFor(alg)
		if err != nil {
			return false, err
		}
		keyBytes := (curve.Params().BitSize + 7) / 8
		if len(publicKeyBytes) != 1+2*keyBytes && len(publicKeyBytes) != 2*keyBytes {
			return false, errkind.Unsupported("invalid public key length %d for %s", len(publicKeyBytes), alg)
		}
		offset := 0
		if len(publicKeyBytes) == 1+2*keyBytes {
			offset = 1 // skip uncompressed-point marker 0x04
		}
		x := new(big.Int).SetBytes(publicKeyBytes[offset : offset+keyBytes])
		y := new(big.Int).SetBytes(publicKeyBytes[offset+keyBytes : offset+2*keyBytes])
		pub := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}

		if len(signature) != 2*keyBytes {
			return false, errkind.Unsupported("invalid signature length %d for %s", len(signature), alg)
		}
		r := new(big.Int).SetBytes(signature[:keyBytes])
		s := new(big.Int).SetBytes(signature[keyBytes:])

		h := hash.New()
		h.Write(data)
		digest := h.Sum(nil)

		return ecdsa.Verify(pub, digest, r, s), nil
	}
}
