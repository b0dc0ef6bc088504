package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ChainConfig holds the RPC endpoint for one chain the explainer serves
type ChainConfig struct {
	Name     string `yaml:"name"`
	ChainID  uint64 `yaml:"chain_id"`
	RPCURL   string `yaml:"rpc_url"`
	Currency string `yaml:"currency,omitempty"`
}

// Config holds the application configuration
type Config struct {
	// Chains configuration
	Chains []ChainConfig `yaml:"chains"`

	// NATS configuration
	NatsURL        string
	RequestSubject string
	QueueGroup     string
	AuditStream    string
	AuditSubject   string

	// Interaction cache configuration
	CacheType           string
	RedisURL            string
	InteractionCacheKey string

	// Pipeline configuration
	EnrichConcurrency int
	RequestTimeout    time.Duration
	LogLevel          string
}

// AuditEnabled reports whether results are published to JetStream
func (c *Config) AuditEnabled() bool {
	return c.AuditStream != "" && c.AuditSubject != ""
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	chains, err := chainsFromEnv(GetDefaultNetworkRegistry())
	if err != nil {
		return nil, err
	}

	cacheType := strings.ToLower(getEnvWithDefault("CACHE_TYPE", "memory"))
	if cacheType != "memory" && cacheType != "redis" {
		return nil, fmt.Errorf("CACHE_TYPE must be memory or redis, got %q", cacheType)
	}

	return &Config{
		Chains:              chains,
		NatsURL:             getEnvWithDefault("NATS_URL", "nats://localhost:4222"),
		RequestSubject:      getEnvWithDefault("NATS_REQUEST_SUBJECT", "explain.request"),
		QueueGroup:          getEnvWithDefault("NATS_QUEUE_GROUP", "explainer"),
		AuditStream:         os.Getenv("NATS_AUDIT_STREAM"),
		AuditSubject:        getEnvWithDefault("NATS_AUDIT_SUBJECT", "explain.results"),
		CacheType:           cacheType,
		RedisURL:            getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		InteractionCacheKey: getEnvWithDefault("INTERACTION_CACHE_KEY", "explain:interactions"),
		EnrichConcurrency:   getEnvAsInt("ENRICH_CONCURRENCY", 0),
		RequestTimeout:      getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		LogLevel:            strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
	}, nil
}

// chainsFromEnv reads EXPLAIN_CHAINS and the per-chain CHAIN_<NAME>_*
// variables. Well-known networks, matched by name or chain id, fill in
// whatever is not set. Without EXPLAIN_CHAINS every enabled network is served.
func chainsFromEnv(registry *NetworkRegistry) ([]ChainConfig, error) {
	names := registry.DefaultChainNames()
	if raw := os.Getenv("EXPLAIN_CHAINS"); raw != "" {
		names = strings.Split(raw, ",")
	}
	chains := make([]ChainConfig, 0, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		prefix := "CHAIN_" + strings.ToUpper(name)
		defaults, _ := registry.Lookup(name)

		chain := ChainConfig{
			Name:     name,
			ChainID:  defaults.ChainID,
			RPCURL:   getEnvWithDefault(prefix+"_RPC_URL", defaults.DefaultRPC),
			Currency: getEnvWithDefault(prefix+"_CURRENCY", defaults.Currency),
		}
		if raw := os.Getenv(prefix + "_ID"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s_ID must be a chain id: %w", prefix, err)
			}
			chain.ChainID = id
		}
		fillFromRegistry(registry, &chain)
		if err := chain.validate(); err != nil {
			return nil, err
		}
		chains = append(chains, chain)
	}

	if len(chains) == 0 {
		return nil, fmt.Errorf("EXPLAIN_CHAINS lists no chains")
	}
	return chains, nil
}

// fillFromRegistry completes a chain known only by its id, e.g. an alias
// name pointing at a well-known network.
func fillFromRegistry(registry *NetworkRegistry, c *ChainConfig) {
	known, ok := registry.ByChainID(c.ChainID)
	if !ok {
		return
	}
	if c.RPCURL == "" {
		c.RPCURL = known.DefaultRPC
	}
	if c.Currency == "" {
		c.Currency = known.Currency
	}
}

func (c ChainConfig) validate() error {
	prefix := "CHAIN_" + strings.ToUpper(c.Name)
	if c.ChainID == 0 {
		return fmt.Errorf("%s_ID is required for chain %q", prefix, c.Name)
	}
	if c.RPCURL == "" {
		return fmt.Errorf("%s_RPC_URL is required for chain %q", prefix, c.Name)
	}
	return nil
}

// Load reads a YAML config file (path), falls back to environment loader on error
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadFromEnv()
	}
	var fileCfg struct {
		Chains []ChainConfig `yaml:"chains"`
	}
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Load base config (env or defaults) then override chains entirely from YAML
	cfg, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if len(fileCfg.Chains) == 0 {
		return cfg, nil
	}

	registry := GetDefaultNetworkRegistry()
	for i := range fileCfg.Chains {
		c := &fileCfg.Chains[i]
		c.RPCURL = os.ExpandEnv(c.RPCURL)
		if defaults, ok := registry.Lookup(c.Name); ok {
			if c.ChainID == 0 {
				c.ChainID = defaults.ChainID
			}
			if c.Currency == "" {
				c.Currency = defaults.Currency
			}
			if c.RPCURL == "" {
				c.RPCURL = defaults.DefaultRPC
			}
		}
		fillFromRegistry(registry, c)
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	cfg.Chains = fileCfg.Chains
	return cfg, nil
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns environment variable as integer or default if not set
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvAsDuration returns environment variable as duration or default if not set
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
