package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"walletscope/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solanaOnly(t *testing.T, extra config.EnvMap) config.Config {
	t.Helper()
	env := config.EnvMap{
		"HELIUS_API_KEY": "hkey",
		"STORE_DRIVER":   "sqlite",
		"STORE_DSN":      filepath.Join(t.TempDir(), "runs.db"),
		"OUT_DIR":        filepath.Join(t.TempDir(), "out"),
	}
	for key, value := range extra {
		env[key] = value
	}
	cfg, err := config.Load(env)
	require.NoError(t, err)
	return cfg
}

func TestBuildSolanaOnly(t *testing.T) {
	cfg := solanaOnly(t, nil)

	rt, err := Build(context.Background(), cfg, Options{WriteFiles: true})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, rt.Close()) })

	assert.Equal(t, []string{"sol"}, rt.Analyzer.EnabledChains())
	require.NotNil(t, rt.Store)
	assert.NoError(t, rt.Store.Ping(context.Background()))
	require.NotNil(t, rt.Files)
	_, err = os.Stat(cfg.OutDir)
	assert.NoError(t, err)
}

func TestBuildWithoutChains(t *testing.T) {
	cfg, err := config.Load(config.EnvMap{})
	require.NoError(t, err)

	_, err = Build(context.Background(), cfg, Options{})
	assert.ErrorContains(t, err, "no chain is configured")
}

func TestBuildAppliesProtocolsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocols.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sol:\n  TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA: SPLToken\n"), 0o600))

	rt, err := Build(context.Background(), solanaOnly(t, config.EnvMap{"PROTOCOLS_FILE": path}), Options{})
	require.NoError(t, err)
	assert.NoError(t, rt.Close())

	require.NoError(t, os.WriteFile(path, []byte("btc:\n  bc1qxyz: Nothing\n"), 0o600))
	_, err = Build(context.Background(), solanaOnly(t, config.EnvMap{"PROTOCOLS_FILE": path}), Options{})
	assert.ErrorContains(t, err, "protocols file")
}

func TestBuildProtocolsDefaults(t *testing.T) {
	registry, err := buildProtocols(config.Config{})
	require.NoError(t, err)

	name, ok := registry.Lookup("eth", "0x7a250d5630b4cf539739df2c5dacb4c659f2488d")
	assert.True(t, ok)
	assert.Equal(t, "UniswapV2Router02", name)
	name, ok = registry.Lookup("sol", "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
	assert.True(t, ok)
	assert.Equal(t, "Jupiter", name)
}

func TestBuildProtocolsNormalizesChainKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocols.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ETH:\n  \"0x1111111254EEB25477B68fb85Ed929f73A960582\": OneInchV5\n"), 0o600))

	registry, err := buildProtocols(config.Config{ProtocolsFile: path})
	require.NoError(t, err)

	name, ok := registry.Lookup("eth", "0x1111111254eeb25477b68fb85ed929f73a960582")
	assert.True(t, ok)
	assert.Equal(t, "OneInchV5", name)
}
