package keys

import (
	"context"

	"github.com/dc4eu/vc-cryptocore/pkg/cryptoregistry"
	"github.com/dc4eu/vc-cryptocore/pkg/pki"
)

// NewPrivateKeyFromPEM loads an ECDSA private key from a PEM file (PKCS#8,
// SEC1, or PKCS#1 are all accepted by the underlying parser) and binds it
// for purpose/qualifier, operator convenience over NewPrivateKey for keys
// that live on disk rather than arriving as raw bytes already. Grounded in
// pkg/pki.ParsePrivateKeyFromFile, which already returns the scalar in the
// shape NewPrivateKey's sensitive buffer pool wants.
func (f *Factory) NewPrivateKeyFromPEM(ctx context.Context, path string, purpose cryptoregistry.Purpose, qualifier string) (*PrivateKey, error) {
	parsed, err := pki.ParsePrivateKeyFromFile(path)
	if err != nil {
		return nil, err
	}
	return f.NewPrivateKey(ctx, parsed.Raw, parsed.Algorithm, purpose, qualifier)
}

// NewPublicKeyFromPEM loads an ECDSA public key from an X.509 certificate
// PEM file and binds it for purpose/qualifier, grounded in
// pkg/pki.ParsePublicKeyFromCertificateFile.
func (f *Factory) NewPublicKeyFromPEM(ctx context.Context, path string, purpose cryptoregistry.Purpose, qualifier string) (*PublicKey, error) {
	parsed, err := pki.ParsePublicKeyFromCertificateFile(path)
	if err != nil {
		return nil, err
	}
	return f.NewPublicKey(ctx, parsed.Raw, parsed.Algorithm, purpose, qualifier)
}
