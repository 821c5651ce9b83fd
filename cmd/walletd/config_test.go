package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icellan/wallet-toolbox/pkg/defs"
)

func TestDefaultConfigValidatesWithRootKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RootKeyHex = strings.Repeat("42", 32)

	network, err := cfg.Validate()
	require.NoError(t, err)
	assert.Equal(t, defs.NetworkMainnet, network)
}

func TestValidateRequiresRootKey(t *testing.T) {
	cfg := DefaultConfig()

	_, err := cfg.Validate()
	require.ErrorContains(t, err, "root key")
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walletd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: test-wallet
network: test
rpc_port: 9200
logging:
  level: debug
  handler: text
database:
  engine: sqlite
  sqlite:
    connection_string: /tmp/test-wallet.sqlite
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test-wallet", cfg.Name)
	assert.Equal(t, "test", cfg.Network)
	assert.Equal(t, 9200, cfg.RPCPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/test-wallet.sqlite", cfg.Database.SQLite.ConnectionString)

	// Untouched sections keep their defaults.
	assert.Equal(t, defs.DefaultFeeModel(), cfg.FeeModel)
	assert.True(t, cfg.Monitor.Enabled)
}

func TestRootKeyEnvOverridesFile(t *testing.T) {
	key := strings.Repeat("11", 32)
	t.Setenv(rootKeyEnv, key)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, key, cfg.RootKeyHex)
}

func TestEnsureSelfSignedCertRoundTrip(t *testing.T) {
	dir := t.TempDir()

	certPath, keyPath, err := ensureSelfSignedCert(dir)
	require.NoError(t, err)
	require.FileExists(t, certPath)
	require.FileExists(t, keyPath)

	// A second call reuses the existing pair.
	certBefore, err := os.ReadFile(certPath)
	require.NoError(t, err)

	_, _, err = ensureSelfSignedCert(dir)
	require.NoError(t, err)

	certAfter, err := os.ReadFile(certPath)
	require.NoError(t, err)
	assert.Equal(t, certBefore, certAfter)
}
