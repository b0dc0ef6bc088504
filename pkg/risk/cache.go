package risk

import (
	"context"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// InteractionCache remembers which (from, spender) pairs have been seen.
// It grows for the life of the process and never evicts.
type InteractionCache interface {
	// MarkSeen records the pair and reports whether it was not seen before.
	// Check and insert are atomic.
	MarkSeen(ctx context.Context, from, spender common.Address) (bool, error)
	// Clear forgets every pair.
	Clear(ctx context.Context) error
}

func interactionKey(from, spender common.Address) string {
	return strings.ToLower(from.Hex()) + "-" + strings.ToLower(spender.Hex())
}

// MemoryInteractionCache is a process-local InteractionCache.
type MemoryInteractionCache struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryInteractionCache creates an empty in-memory cache
func NewMemoryInteractionCache() *MemoryInteractionCache {
	return &MemoryInteractionCache{
		seen: make(map[string]struct{}),
	}
}

// MarkSeen implements InteractionCache.
func (c *MemoryInteractionCache) MarkSeen(_ context.Context, from, spender common.Address) (bool, error) {
	key := interactionKey(from, spender)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.seen[key]; exists {
		return false, nil
	}
	c.seen[key] = struct{}{}
	return true, nil
}

// Clear implements InteractionCache.
func (c *MemoryInteractionCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen = make(map[string]struct{})
	return nil
}

// Len returns the number of pairs seen.
func (c *MemoryInteractionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
