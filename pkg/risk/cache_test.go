package risk_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/web3ekko/ekko-ce/explainer/pkg/risk"
	"github.com/web3ekko/ekko-ce/explainer/pkg/testutils"
)

func TestMemoryInteractionCache(t *testing.T) {
	ctx := context.Background()
	cache := risk.NewMemoryInteractionCache()

	isNew, err := cache.MarkSeen(ctx, sender, spender)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = cache.MarkSeen(ctx, sender, spender)
	require.NoError(t, err)
	assert.False(t, isNew)

	// pairs are ordered
	isNew, err = cache.MarkSeen(ctx, spender, sender)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, 2, cache.Len())

	require.NoError(t, cache.Clear(ctx))
	assert.Equal(t, 0, cache.Len())

	isNew, err = cache.MarkSeen(ctx, sender, spender)
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestMemoryInteractionCache_ConcurrentMarkSeen(t *testing.T) {
	ctx := context.Background()
	cache := risk.NewMemoryInteractionCache()

	var (
		wg    sync.WaitGroup
		fresh atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if isNew, _ := cache.MarkSeen(ctx, sender, spender); isNew {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fresh.Load())
}

func TestRedisInteractionCache(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	cache := risk.NewRedisInteractionCache(db, "")

	member := "0x742d35cc6634c0532925a3b8d9c9c8cc61e7b6c9-0x1111111254eeb25477b68fb85ed929f73a960582"
	mock.ExpectSAdd(risk.DefaultInteractionKey, member).SetVal(1)
	mock.ExpectSAdd(risk.DefaultInteractionKey, member).SetVal(0)
	mock.ExpectDel(risk.DefaultInteractionKey).SetVal(1)
	mock.ExpectSAdd(risk.DefaultInteractionKey, member).SetErr(errors.New("connection reset"))

	isNew, err := cache.MarkSeen(ctx, sender, spender)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = cache.MarkSeen(ctx, sender, spender)
	require.NoError(t, err)
	assert.False(t, isNew)

	require.NoError(t, cache.Clear(ctx))

	_, err = cache.MarkSeen(ctx, sender, spender)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisInteractionCache_Integration(t *testing.T) {
	env := testutils.Integration(t)
	ctx := context.Background()

	a := risk.NewRedisInteractionCache(env.Redis, "test:interactions")
	b := risk.NewRedisInteractionCache(env.Redis, "test:interactions")

	isNew, err := a.MarkSeen(ctx, sender, spender)
	require.NoError(t, err)
	assert.True(t, isNew)

	// a second replica sees the same state
	isNew, err = b.MarkSeen(ctx, sender, spender)
	require.NoError(t, err)
	assert.False(t, isNew)

	require.NoError(t, b.Clear(ctx))
	isNew, err = a.MarkSeen(ctx, sender, spender)
	require.NoError(t, err)
	assert.True(t, isNew)
}
