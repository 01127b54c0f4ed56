package hsmbackend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dc4eu/vc-cryptocore/pkg/cryptoregistry"
	"github.com/dc4eu/vc-cryptocore/pkg/hsmbackend"
	"github.com/dc4eu/vc-cryptocore/pkg/signing"
)

func TestOpenWithoutPKCS11BuildTagReturnsNotSupported(t *testing.T) {
	mgr := hsmbackend.NewManager()
	err := mgr.Open("test-key", &signing.PKCS11Config{ModulePath: "/nonexistent.so"})
	assert.ErrorIs(t, err, signing.ErrPKCS11NotSupported)
}

func TestRegisterInstallsFunctionKeysForEveryAlgorithm(t *testing.T) {
	mgr := hsmbackend.NewManager()
	signingFns := map[cryptoregistry.FunctionKey]cryptoregistry.SigningFn{}
	verificationFns := map[cryptoregistry.FunctionKey]cryptoregistry.VerificationFn{}

	mgr.Register(signingFns, verificationFns, cryptoregistry.PurposeCoseSign1)

	for _, alg := range []string{"ES256", "ES384", "ES512"} {
		key := cryptoregistry.FunctionKey{Algorithm: alg, Purpose: cryptoregistry.PurposeCoseSign1, Material: cryptoregistry.MaterialHsmRef}
		require.Contains(t, signingFns, key)
		require.Contains(t, verificationFns, key)
	}
}

func TestSignWithoutOpenedLabelFails(t *testing.T) {
	mgr := hsmbackend.NewManager()
	signingFns := map[cryptoregistry.FunctionKey]cryptoregistry.SigningFn{}
	verificationFns := map[cryptoregistry.FunctionKey]cryptoregistry.VerificationFn{}
	mgr.Register(signingFns, verificationFns, cryptoregistry.PurposeSign)

	key := cryptoregistry.FunctionKey{Algorithm: "ES256", Purpose: cryptoregistry.PurposeSign, Material: cryptoregistry.MaterialHsmRef}
	_, err := signingFns[key](context.Background(), nil, []byte("data"), nil, map[string]any{"pkcs11_label": "missing"})
	assert.Error(t, err)
}

func TestSignWithoutLabelHintFails(t *testing.T) {
	mgr := hsmbackend.NewManager()
	signingFns := map[cryptoregistry.FunctionKey]cryptoregistry.SigningFn{}
	verificationFns := map[cryptoregistry.FunctionKey]cryptoregistry.VerificationFn{}
	mgr.Register(signingFns, verificationFns, cryptoregistry.PurposeSign)

	key := cryptoregistry.FunctionKey{Algorithm: "ES256", Purpose: cryptoregistry.PurposeSign, Material: cryptoregistry.MaterialHsmRef}
	_, err := signingFns[key](context.Background(), nil, []byte("data"), nil, nil)
	assert.Error(t, err)
}

func TestCloseIsSafeWithoutOpenedSigners(t *testing.T) {
	mgr := hsmbackend.NewManager()
	mgr.Close()
}
