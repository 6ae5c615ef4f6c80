package token

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/adamscao/pic-certificates/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryRegistryAddAndLookup(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	reg := NewMemoryRegistry(10, zap.NewNop(), nil, WithRegistryClock(clock.Now))

	require.NoError(t, reg.Add(ctx, "token-a", clock.Now().Add(time.Minute)))

	assert.True(t, reg.IsBlacklisted(ctx, "token-a"))
	assert.False(t, reg.IsBlacklisted(ctx, "token-b"))
}

func TestMemoryRegistryLazyExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	reg := NewMemoryRegistry(10, zap.NewNop(), nil, WithRegistryClock(clock.Now))

	require.NoError(t, reg.Add(ctx, "token-a", clock.Now().Add(time.Minute)))
	clock.Advance(time.Minute)

	assert.False(t, reg.IsBlacklisted(ctx, "token-a"))
	assert.Equal(t, 0, reg.Len())
}

func TestMemoryRegistrySkipsExpiredTokens(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	reg := NewMemoryRegistry(10, zap.NewNop(), nil, WithRegistryClock(clock.Now))

	require.NoError(t, reg.Add(ctx, "stale", clock.Now().Add(-time.Second)))
	assert.Equal(t, 0, reg.Len())
}

func TestMemoryRegistrySweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	reg := NewMemoryRegistry(10, zap.NewNop(), nil, WithRegistryClock(clock.Now))

	require.NoError(t, reg.Add(ctx, "short", clock.Now().Add(time.Minute)))
	require.NoError(t, reg.Add(ctx, "long", clock.Now().Add(time.Hour)))
	require.NoError(t, reg.Add(ctx, "forever", time.Time{}))

	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 2, reg.Len())
	assert.True(t, reg.IsBlacklisted(ctx, "long"))
	assert.True(t, reg.IsBlacklisted(ctx, "forever"))
}

func TestMemoryRegistryReAddExtendsExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	reg := NewMemoryRegistry(10, zap.NewNop(), nil, WithRegistryClock(clock.Now))

	require.NoError(t, reg.Add(ctx, "token", clock.Now().Add(time.Minute)))
	require.NoError(t, reg.Add(ctx, "token", clock.Now().Add(time.Hour)))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 0, reg.Sweep())
	assert.True(t, reg.IsBlacklisted(ctx, "token"))
}

func TestMemoryRegistryHighWaterClear(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	sink := &recordingSink{}
	reg := NewMemoryRegistry(3, zap.NewNop(), sink, WithRegistryClock(clock.Now))

	for i := 0; i < 3; i++ {
		require.NoError(t, reg.Add(ctx, fmt.Sprintf("token-%d", i), clock.Now().Add(time.Hour)))
	}
	assert.Equal(t, 3, reg.Len())

	require.NoError(t, reg.Add(ctx, "token-3", clock.Now().Add(time.Hour)))

	assert.Equal(t, 1, reg.Len())
	assert.True(t, reg.IsBlacklisted(ctx, "token-3"))
	assert.False(t, reg.IsBlacklisted(ctx, "token-0"))

	ev := sink.last()
	assert.Equal(t, models.EventRevocationRegistryClear, ev.event)
	assert.Equal(t, 3, ev.details["dropped"])
}

func TestMemoryRegistryRunStopsOnCancel(t *testing.T) {
	reg := NewMemoryRegistry(10, zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		reg.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.NoError(t, reg.Add(ctx, "brief", time.Now().Add(10*time.Millisecond)))
	assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMemoryRegistryRevoke(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	reg := NewMemoryRegistry(10, zap.NewNop(), nil, WithRegistryClock(clock.Now))
	exp := clock.Now().Add(time.Minute)

	already, err := reg.Revoke(ctx, "token-a", exp)
	require.NoError(t, err)
	assert.False(t, already)
	assert.True(t, reg.IsBlacklisted(ctx, "token-a"))

	already, err = reg.Revoke(ctx, "token-a", exp)
	require.NoError(t, err)
	assert.True(t, already)

	// A lapsed revocation no longer counts.
	clock.Advance(time.Minute)
	already, err = reg.Revoke(ctx, "token-a", clock.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, already)
}

func TestMemoryRegistryRevokeConcurrent(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry(100, zap.NewNop(), nil)
	exp := time.Now().Add(time.Hour)

	const callers = 16
	var wg sync.WaitGroup
	results := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			already, err := reg.Revoke(ctx, "single-use", exp)
			assert.NoError(t, err)
			results <- already
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for already := range results {
		if !already {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}
