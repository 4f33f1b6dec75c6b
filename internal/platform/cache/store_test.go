package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore_GetOrLoad_CollapsesConcurrentLoads(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "save-1", "competitions", loader)
			if err != nil || v != "value" {
				t.Errorf("unexpected result v=%v err=%v", v, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.EqualValues(t, 1, calls.Load())
}

func TestStore_InvalidateIsScopedToOneSave(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := context.Background()
	load := func(v string) func(context.Context) (any, error) {
		return func(context.Context) (any, error) { return v, nil }
	}

	_, err := store.GetOrLoad(ctx, "save-1", "k", load("a"))
	require.NoError(t, err)
	_, err = store.GetOrLoad(ctx, "save-2", "k", load("b"))
	require.NoError(t, err)

	store.Invalidate(ctx, "save-1")

	_, ok := store.Get(ctx, "save-1", "k")
	require.False(t, ok)
	v, ok := store.Get(ctx, "save-2", "k")
	require.True(t, ok)
	require.Equal(t, "b", v)
}

func TestStore_LoadRacingInvalidateIsNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := context.Background()

	v, err := store.GetOrLoad(ctx, "save-1", "k", func(ctx context.Context) (any, error) {
		// a write lands while the read is in flight
		store.Invalidate(ctx, "save-1")
		return "stale", nil
	})
	require.NoError(t, err)
	require.Equal(t, "stale", v)

	_, ok := store.Get(ctx, "save-1", "k")
	require.False(t, ok)
}

func TestStore_EntriesExpire(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	var calls atomic.Int32
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return "v", nil
	}
	_, _ = store.GetOrLoad(ctx, "save-1", "k", loader)
	_, _ = store.GetOrLoad(ctx, "save-1", "k", loader)
	require.EqualValues(t, 1, calls.Load())

	now = now.Add(2 * time.Minute)
	_, _ = store.GetOrLoad(ctx, "save-1", "k", loader)
	require.EqualValues(t, 2, calls.Load())
}
