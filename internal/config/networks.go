package config

import (
	"sort"
	"strings"
)

// NetworkConfig defines the defaults of a well-known EVM network
type NetworkConfig struct {
	Name       string `yaml:"name" json:"name"`
	ChainID    uint64 `yaml:"chain_id" json:"chain_id"`
	DefaultRPC string `yaml:"default_rpc" json:"default_rpc"`
	Currency   string `yaml:"currency" json:"currency"`
	Enabled    bool   `yaml:"enabled" json:"enabled"`
}

// NetworkRegistry manages the supported networks, keyed by lowercase name
type NetworkRegistry struct {
	Networks map[string]NetworkConfig `yaml:"networks" json:"networks"`
}

// GetDefaultNetworkRegistry returns the default network configurations
func GetDefaultNetworkRegistry() *NetworkRegistry {
	return &NetworkRegistry{
		Networks: map[string]NetworkConfig{
			"ethereum": {
				Name:       "Ethereum",
				ChainID:    1,
				DefaultRPC: "https://eth.llamarpc.com",
				Currency:   "ETH",
				Enabled:    true,
			},
			"sepolia": {
				Name:       "Sepolia",
				ChainID:    11155111,
				DefaultRPC: "https://rpc.sepolia.org",
				Currency:   "ETH",
				Enabled:    false,
			},
			"avalanche": {
				Name:       "Avalanche",
				ChainID:    43114,
				DefaultRPC: "https://api.avax.network/ext/bc/C/rpc",
				Currency:   "AVAX",
				Enabled:    true,
			},
			"fuji": {
				Name:       "Fuji",
				ChainID:    43113,
				DefaultRPC: "https://api.avax-test.network/ext/bc/C/rpc",
				Currency:   "AVAX",
				Enabled:    false,
			},
			"polygon": {
				Name:       "Polygon",
				ChainID:    137,
				DefaultRPC: "https://polygon-rpc.com",
				Currency:   "POL",
				Enabled:    true,
			},
		},
	}
}

// Lookup returns the network with the given name, case-insensitively
func (r *NetworkRegistry) Lookup(name string) (NetworkConfig, bool) {
	n, ok := r.Networks[strings.ToLower(strings.TrimSpace(name))]
	return n, ok
}

// ByChainID returns the network with the given chain id
func (r *NetworkRegistry) ByChainID(id uint64) (NetworkConfig, bool) {
	for _, n := range r.Networks {
		if n.ChainID == id {
			return n, true
		}
	}
	return NetworkConfig{}, false
}

// DefaultChainNames lists the enabled networks as EXPLAIN_CHAINS names
func (r *NetworkRegistry) DefaultChainNames() []string {
	enabled := r.Enabled()
	names := make([]string, len(enabled))
	for i, n := range enabled {
		names[i] = strings.ToLower(n.Name)
	}
	return names
}

// Enabled returns the enabled networks ordered by chain id
func (r *NetworkRegistry) Enabled() []NetworkConfig {
	var out []NetworkConfig
	for _, n := range r.Networks {
		if n.Enabled {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}
