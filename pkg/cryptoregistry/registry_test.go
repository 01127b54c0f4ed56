package cryptoregistry

import (
	"context"
	"testing"

	"github.com/dc4eu/vc-cryptocore/pkg/errkind"
	"github.com/dc4eu/vc-cryptocore/pkg/sensitivebuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBeforeInitializeFails(t *testing.T) {
	var r Registry
	_, err := r.ResolveSigning("ES256", PurposeSign, "")
	require.Error(t, err)
	assert.True(t, errkind.Of(err, errkind.KindNotInitialized))
}

func TestResolveSigningExactQualifier(t *testing.T) {
	var r Registry
	called := false
	r.Initialize(map[FunctionKey]SigningFn{
		{Algorithm: "ES256", Purpose: PurposeSign, Qualifier: "P-256"}: func(ctx context.Context, priv, data []byte, pool *sensitivebuf.Pool, ctxMap map[string]any) (Signature, error) {
			called = true
			return Signature{Bytes: []byte("sig"), Algorithm: "ES256"}, nil
		},
	}, nil)

	fn, err := r.ResolveSigning("ES256", PurposeSign, "P-256")
	require.NoError(t, err)
	sig, err := fn(context.Background(), nil, nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ES256", sig.Algorithm)
}

func TestResolveSigningFallsBackToQualifierlessEntry(t *testing.T) {
	var r Registry
	r.Initialize(map[FunctionKey]SigningFn{
		{Algorithm: "ES256", Purpose: PurposeSign}: func(ctx context.Context, priv, data []byte, pool *sensitivebuf.Pool, ctxMap map[string]any) (Signature, error) {
			return Signature{Algorithm: "ES256"}, nil
		},
	}, nil)

	_, err := r.ResolveSigning("ES256", PurposeSign, "P-384")
	require.NoError(t, err)
}

func TestResolveVerificationUnsupported(t *testing.T) {
	var r Registry
	r.Initialize(nil, map[FunctionKey]VerificationFn{})
	_, err := r.ResolveVerification("ES256", PurposeVerify, "")
	require.Error(t, err)
	assert.True(t, errkind.Of(err, errkind.KindUnsupported))
}

func TestInitializeOverwritesAtomically(t *testing.T) {
	var r Registry
	r.Initialize(map[FunctionKey]SigningFn{
		{Algorithm: "A", Purpose: PurposeSign}: func(ctx context.Context, priv, data []byte, pool *sensitivebuf.Pool, ctxMap map[string]any) (Signature, error) {
			return Signature{}, nil
		},
	}, nil)
	r.Initialize(map[FunctionKey]SigningFn{
		{Algorithm: "B", Purpose: PurposeSign}: func(ctx context.Context, priv, data []byte, pool *sensitivebuf.Pool, ctxMap map[string]any) (Signature, error) {
			return Signature{}, nil
		},
	}, nil)

	_, err := r.ResolveSigning("A", PurposeSign, "")
	assert.Error(t, err)
	_, err = r.ResolveSigning("B", PurposeSign, "")
	assert.NoError(t, err)
}

func TestMaterialDiscriminatorRoutesDeterministically(t *testing.T) {
	var r Registry
	r.Initialize(map[FunctionKey]SigningFn{
		{Algorithm: "ES256", Purpose: PurposeSign, Material: MaterialDirect}: func(ctx context.Context, priv, data []byte, pool *sensitivebuf.Pool, ctxMap map[string]any) (Signature, error) {
			return Signature{Algorithm: "software"}, nil
		},
		{Algorithm: "ES256", Purpose: PurposeSign, Material: MaterialTpmHandle}: func(ctx context.Context, priv, data []byte, pool *sensitivebuf.Pool, ctxMap map[string]any) (Signature, error) {
			return Signature{Algorithm: "tpm"}, nil
		},
	}, nil)

	softFn, err := r.ResolveSigningWithMaterial("ES256", PurposeSign, "", MaterialDirect)
	require.NoError(t, err)
	softSig, _ := softFn(context.Background(), nil, nil, nil, nil)
	assert.Equal(t, "software", softSig.Algorithm)

	tpmFn, err := r.ResolveSigningWithMaterial("ES256", PurposeSign, "", MaterialTpmHandle)
	require.NoError(t, err)
	tpmSig, _ := tpmFn(context.Background(), nil, nil, nil, nil)
	assert.Equal(t, "tpm", tpmSig.Algorithm)
}
