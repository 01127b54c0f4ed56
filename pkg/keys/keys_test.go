package keys

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/dc4eu/vc-cryptocore/pkg/cryptoregistry"
	"github.com/dc4eu/vc-cryptocore/pkg/sensitivebuf"
	"github.com/dc4eu/vc-cryptocore/pkg/swbackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFactory(t *testing.T) *Factory {
	t.Helper()
	signing := map[cryptoregistry.FunctionKey]cryptoregistry.SigningFn{}
	verification := map[cryptoregistry.FunctionKey]cryptoregistry.VerificationFn{}
	swbackend.Register(signing, verification, cryptoregistry.PurposeSign)

	var reg cryptoregistry.Registry
	reg.Initialize(signing, verification)
	return NewFactory(&reg, sensitivebuf.New())
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	f := newFactory(t)

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	privKeyBytes := priv.D.FillBytes(make([]byte, 32))
	pubKeyBytes := append([]byte{0x04}, append(priv.X.FillBytes(make([]byte, 32)), priv.Y.FillBytes(make([]byte, 32))...)...)

	signer, err := f.NewPrivateKey(context.Background(), privKeyBytes, swbackend.AlgES256, cryptoregistry.PurposeSign, "")
	require.NoError(t, err)
	defer signer.Release()

	verifier, err := f.NewPublicKey(context.Background(), pubKeyBytes, swbackend.AlgES256, cryptoregistry.PurposeSign, "")
	require.NoError(t, err)
	defer verifier.Release()

	data := []byte("hello world")
	sig, err := signer.Sign(context.Background(), data, nil)
	require.NoError(t, err)

	ok, err := verifier.Verify(context.Background(), data, sig.Bytes, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifier.Verify(context.Background(), []byte("tampered"), sig.Bytes, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReleaseZeroizesPrivateKeyMaterial(t *testing.T) {
	f := newFactory(t)
	priv, err := f.NewPrivateKey(context.Background(), make([]byte, 32), swbackend.AlgES256, cryptoregistry.PurposeSign, "")
	require.NoError(t, err)

	priv.Release()
	_, err = priv.Sign(context.Background(), []byte("x"), nil)
	assert.Error(t, err)
}
