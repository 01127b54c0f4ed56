package sensitivebuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRentZeroLength(t *testing.T) {
	p := New()
	buf, err := p.Rent(0, Tag{Purpose: PurposeNonce, Material: SemanticsDirect})
	require.NoError(t, err)
	assert.Equal(t, 0, buf.Len())
	assert.NotNil(t, buf.Bytes())
	buf.Release()
}

func TestRentContentSizedCorrectly(t *testing.T) {
	p := New()
	buf, err := p.Rent(37, Tag{Purpose: PurposeDigest, Material: SemanticsDirect})
	require.NoError(t, err)
	assert.Len(t, buf.Bytes(), 37)
	buf.Release()
}

func TestReleaseZeroizesUnderlyingStorage(t *testing.T) {
	p := New()
	buf, err := p.Rent(64, Tag{Purpose: PurposeSigning, Material: SemanticsDirect})
	require.NoError(t, err)

	content := buf.Bytes()
	for i := range content {
		content[i] = 0xAA
	}
	// Keep a reference to the backing storage via Bytes before release so we
	// can assert it was actually zeroed, not merely detached.
	storageRef := content

	buf.Release()

	for i, b := range storageRef {
		assert.Equalf(t, byte(0), b, "byte %d not zeroed on release", i)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	p := New()
	buf, err := p.Rent(16, Tag{Purpose: PurposeAuth, Material: SemanticsDirect})
	require.NoError(t, err)
	buf.Release()
	assert.NotPanics(t, func() { buf.Release() })
}

func TestReleaseFromDifferentGoroutine(t *testing.T) {
	p := New()
	buf, err := p.Rent(8, Tag{Purpose: PurposeTransport, Material: SemanticsDirect})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		buf.Release()
		close(done)
	}()
	<-done
}

func TestRentAfterReleaseInSameBucketReturnsRequestedLength(t *testing.T) {
	p := New()
	first, err := p.Rent(100, Tag{Purpose: PurposeEncryption, Material: SemanticsDirect})
	require.NoError(t, err)
	first.Release()

	second, err := p.Rent(100, Tag{Purpose: PurposeEncryption, Material: SemanticsDirect})
	require.NoError(t, err)
	assert.Len(t, second.Bytes(), 100)
	second.Release()
}
