package configuration

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dc4eu/vc-cryptocore/pkg/logger"
)

var mockConfig = []byte(`
log:
  level: debug
pool:
  max_buffers: 64
  buffer_bytes: 2048
registry:
  - algorithm: ES256
    purpose: cose_sign1
    backend: software
tpm:
  linux_device_path: /dev/tpmrm0
trace:
  service_name: vc-cryptocore-test
`)

func testLogger(t *testing.T) *logger.Log {
	t.Helper()
	log, err := logger.New("test", "", false)
	require.NoError(t, err)
	return log
}

func TestNewParsesConfigAndSeedsDefaults(t *testing.T) {
	tempDir := t.TempDir()
	path := fmt.Sprintf("%s/test.yaml", tempDir)
	require.NoError(t, os.WriteFile(path, mockConfig, 0o600))
	t.Setenv("VC_CRYPTOCORE_CONFIG_YAML", path)

	cfg, err := New(testLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 64, cfg.Pool.MaxBuffers)
	assert.Equal(t, 2048, cfg.Pool.BufferBytes)
	require.Len(t, cfg.Registry, 1)
	assert.Equal(t, "software", cfg.Registry[0].Backend)
	assert.Equal(t, "/dev/tpmrm0", cfg.TPM.LinuxDevicePath)
	assert.Equal(t, "vc-cryptocore-test", cfg.Trace.ServiceName)
	assert.True(t, cfg.Trace.PropagateJaeger)
}

func TestNewRejectsMissingFile(t *testing.T) {
	t.Setenv("VC_CRYPTOCORE_CONFIG_YAML", "/does/not/exist.yaml")

	_, err := New(testLogger(t))
	assert.Error(t, err)
}

func TestNewRejectsInvalidBackend(t *testing.T) {
	tempDir := t.TempDir()
	path := fmt.Sprintf("%s/bad.yaml", tempDir)
	bad := []byte(`
registry:
  - algorithm: ES256
    purpose: cose_sign1
    backend: quantum
`)
	require.NoError(t, os.WriteFile(path, bad, 0o600))
	t.Setenv("VC_CRYPTOCORE_CONFIG_YAML", path)

	_, err := New(testLogger(t))
	assert.Error(t, err)
}
