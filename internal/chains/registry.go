// Package chains keeps one dialed RPC client per configured chain.
package chains

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/web3ekko/ekko-ce/explainer/internal/config"
	"github.com/web3ekko/ekko-ce/explainer/pkg/enricher"
	"go.uber.org/zap"
)

// ErrUnknownChain is returned for a chain id that was never registered.
var ErrUnknownChain = errors.New("chain not supported")

// Chain is a registered network and the reader used to enrich its transactions.
type Chain struct {
	ID       uint64
	Name     string
	Currency string
	Reader   enricher.ChainReader

	close func()
}

type Registry struct {
	chains map[uint64]Chain
	mu     sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		chains: make(map[uint64]Chain),
	}
}

// Dial connects to every configured chain. Clients dialed before a failure
// are closed again.
func Dial(ctx context.Context, cfgs []config.ChainConfig, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := NewRegistry()
	for _, cfg := range cfgs {
		client, err := ethclient.DialContext(ctx, cfg.RPCURL)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to connect to %s node %s: %w", cfg.Name, cfg.RPCURL, err)
		}
		if err := r.Register(Chain{
			ID:       cfg.ChainID,
			Name:     cfg.Name,
			Currency: cfg.Currency,
			Reader:   client,
			close:    client.Close,
		}); err != nil {
			client.Close()
			r.Close()
			return nil, err
		}
		logger.Info("chain client initialized",
			zap.String("chain", cfg.Name),
			zap.Uint64("chain_id", cfg.ChainID),
			zap.String("currency", cfg.Currency))
	}
	return r, nil
}

// Register adds a chain. Registering the same id twice is an error.
func (r *Registry) Register(chain Chain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.chains[chain.ID]; exists {
		return fmt.Errorf("chain %d registered twice", chain.ID)
	}
	r.chains[chain.ID] = chain
	return nil
}

// Get retrieves a chain by id
func (r *Registry) Get(id uint64) (Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, ok := r.chains[id]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %d", ErrUnknownChain, id)
	}
	return chain, nil
}

// List returns the registered chains ordered by id
func (r *Registry) List() []Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Chain, 0, len(r.chains))
	for _, c := range r.chains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close releases every dialed client.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.chains {
		if c.close != nil {
			c.close()
		}
		delete(r.chains, id)
	}
}
