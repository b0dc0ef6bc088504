package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"EXPLAIN_CHAINS", "CACHE_TYPE", "NATS_URL", "NATS_AUDIT_STREAM", "REQUEST_TIMEOUT", "ENRICH_CONCURRENCY", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	// every enabled network, ordered by chain id
	require.Len(t, cfg.Chains, 3)
	assert.Equal(t, "ethereum", cfg.Chains[0].Name)
	assert.Equal(t, uint64(1), cfg.Chains[0].ChainID)
	assert.Equal(t, "ETH", cfg.Chains[0].Currency)
	assert.Equal(t, "polygon", cfg.Chains[1].Name)
	assert.Equal(t, "avalanche", cfg.Chains[2].Name)
	assert.Equal(t, "AVAX", cfg.Chains[2].Currency)
	assert.Equal(t, "nats://localhost:4222", cfg.NatsURL)
	assert.Equal(t, "explain.request", cfg.RequestSubject)
	assert.Equal(t, "memory", cfg.CacheType)
	assert.Equal(t, "explain:interactions", cfg.InteractionCacheKey)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 0, cfg.EnrichConcurrency)
	assert.False(t, cfg.AuditEnabled())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("EXPLAIN_CHAINS", "ethereum, avalanche,local")
	t.Setenv("CHAIN_ETHEREUM_RPC_URL", "http://eth:8545")
	t.Setenv("CHAIN_LOCAL_ID", "31337")
	t.Setenv("CHAIN_LOCAL_RPC_URL", "http://localhost:8545")
	t.Setenv("CACHE_TYPE", "Redis")
	t.Setenv("NATS_AUDIT_STREAM", "EXPLAIN")
	t.Setenv("ENRICH_CONCURRENCY", "4")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	require.Len(t, cfg.Chains, 3)
	assert.Equal(t, "http://eth:8545", cfg.Chains[0].RPCURL)
	assert.Equal(t, uint64(43114), cfg.Chains[1].ChainID)
	assert.Equal(t, "AVAX", cfg.Chains[1].Currency)
	assert.Equal(t, ChainConfig{Name: "local", ChainID: 31337, RPCURL: "http://localhost:8545"}, cfg.Chains[2])
	assert.Equal(t, "redis", cfg.CacheType)
	assert.True(t, cfg.AuditEnabled())
	assert.Equal(t, 4, cfg.EnrichConcurrency)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFromEnv_AliasByChainID(t *testing.T) {
	t.Setenv("EXPLAIN_CHAINS", "mainnet")
	t.Setenv("CACHE_TYPE", "")
	t.Setenv("CHAIN_MAINNET_ID", "43114")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Len(t, cfg.Chains, 1)
	assert.Equal(t, ChainConfig{
		Name:     "mainnet",
		ChainID:  43114,
		RPCURL:   "https://api.avax.network/ext/bc/C/rpc",
		Currency: "AVAX",
	}, cfg.Chains[0])
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown chain without id", map[string]string{"EXPLAIN_CHAINS": "mystery"}},
		{"bad chain id", map[string]string{"EXPLAIN_CHAINS": "ethereum", "CHAIN_ETHEREUM_ID": "one"}},
		{"missing rpc", map[string]string{"EXPLAIN_CHAINS": "local", "CHAIN_LOCAL_ID": "5"}},
		{"empty chain list", map[string]string{"EXPLAIN_CHAINS": " , "}},
		{"bad cache type", map[string]string{"CACHE_TYPE": "memcached"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("EXPLAIN_CHAINS", "")
			t.Setenv("CACHE_TYPE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoad_YAMLChains(t *testing.T) {
	t.Setenv("EXPLAIN_CHAINS", "")
	t.Setenv("CACHE_TYPE", "")
	t.Setenv("FUJI_RPC", "http://fuji:9650")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chains:
  - name: Avalanche
  - name: fuji
    rpc_url: ${FUJI_RPC}
  - name: anvil
    chain_id: 31337
    rpc_url: http://127.0.0.1:8545
    currency: ETH
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Chains, 3)

	assert.Equal(t, uint64(43114), cfg.Chains[0].ChainID)
	assert.Equal(t, "https://api.avax.network/ext/bc/C/rpc", cfg.Chains[0].RPCURL)
	assert.Equal(t, "http://fuji:9650", cfg.Chains[1].RPCURL)
	assert.Equal(t, uint64(43113), cfg.Chains[1].ChainID)
	assert.Equal(t, uint64(31337), cfg.Chains[2].ChainID)
}

func TestLoad_MissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("EXPLAIN_CHAINS", "avalanche")
	t.Setenv("CACHE_TYPE", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Len(t, cfg.Chains, 1)
	assert.Equal(t, uint64(43114), cfg.Chains[0].ChainID)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Setenv("CACHE_TYPE", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chains: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestNetworkRegistry(t *testing.T) {
	r := GetDefaultNetworkRegistry()

	n, ok := r.Lookup(" Ethereum ")
	require.True(t, ok)
	assert.Equal(t, uint64(1), n.ChainID)

	n, ok = r.ByChainID(43114)
	require.True(t, ok)
	assert.Equal(t, "AVAX", n.Currency)

	_, ok = r.ByChainID(999)
	assert.False(t, ok)

	assert.Equal(t, []string{"ethereum", "polygon", "avalanche"}, r.DefaultChainNames())

	enabled := r.Enabled()
	require.Len(t, enabled, 3)
	assert.Equal(t, uint64(1), enabled[0].ChainID)
	assert.Equal(t, uint64(137), enabled[1].ChainID)
	assert.Equal(t, uint64(43114), enabled[2].ChainID)
}
