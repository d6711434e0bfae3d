package finance

import (
	"context"
	"errors"
	"testing"

	"github.com/irfndi/funnel-finance-go/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpoch_Predicates(t *testing.T) {
	e := Epoch{ProjectID: "proj-1", Start: jan(10)}

	assert.False(t, e.IsInCoreEra(jan(9)))
	assert.True(t, e.IsInCoreEra(jan(10)))
	assert.True(t, e.IsInCoreEra(jan(11)))

	assert.True(t, e.HasLegacyPortion(rng(jan(9), jan(12))))
	assert.False(t, e.HasLegacyPortion(rng(jan(10), jan(12))))
	assert.True(t, e.IsFullyCoreEra(rng(jan(10), jan(12))))
	assert.False(t, e.IsFullyCoreEra(rng(jan(1), jan(12))))
}

func TestEpoch_ClipToCoreEra(t *testing.T) {
	e := Epoch{Start: jan(10)}

	clipped, ok := e.ClipToCoreEra(rng(jan(1), jan(15)))
	require.True(t, ok)
	assert.Equal(t, rng(jan(10), jan(15)), clipped)

	clipped, ok = e.ClipToCoreEra(rng(jan(12), jan(15)))
	require.True(t, ok)
	assert.Equal(t, rng(jan(12), jan(15)), clipped, "ranges inside the core era are unchanged")

	_, ok = e.ClipToCoreEra(rng(jan(1), jan(9)))
	assert.False(t, ok)

	_, ok = e.ClipToCoreEra(rng(jan(15), jan(12)))
	assert.False(t, ok)

	for start := 1; start <= 20; start++ {
		for end := start; end <= 20; end++ {
			r := rng(jan(start), jan(end))
			got, ok := e.ClipToCoreEra(r)
			if !ok {
				assert.True(t, r.End.Before(e.Start))
				continue
			}
			assert.False(t, got.Start.Before(e.Start))
			assert.Equal(t, r.End, got.End)
			assert.True(t, got.Valid())
		}
	}
}

func TestEpochResolver_GetEpoch_CreatesDefault(t *testing.T) {
	store := newMemorySettings()
	cache := newMemoryEpochCache()
	resolver := NewEpochResolver(store, cache, nil, FixedClock{Date: jan(15)}, discardLogger())

	epoch, err := resolver.GetEpoch(context.Background(), " proj-1 ")
	require.NoError(t, err)

	assert.Equal(t, "proj-1", epoch.ProjectID)
	assert.Equal(t, jan(15), epoch.Start)
	assert.Equal(t, jan(15), store.rows["proj-1"])
	assert.Equal(t, jan(15), cache.items["proj-1"])

	// A later day does not move an existing epoch.
	resolver = NewEpochResolver(store, nil, nil, FixedClock{Date: jan(20)}, discardLogger())
	epoch, err = resolver.GetEpoch(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Equal(t, jan(15), epoch.Start)
}

func TestEpochResolver_GetEpoch_PrefersCache(t *testing.T) {
	store := newMemorySettings()
	store.getErr = errors.New("store must not be read")
	cache := newMemoryEpochCache()
	cache.items["proj-1"] = jan(3)

	resolver := NewEpochResolver(store, cache, nil, FixedClock{Date: jan(15)}, discardLogger())
	epoch, err := resolver.GetEpoch(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Equal(t, jan(3), epoch.Start)
}

func TestEpochResolver_GetEpoch_CacheFailureFallsBackToStore(t *testing.T) {
	store := newMemorySettings()
	store.rows["proj-1"] = jan(4)
	cache := newMemoryEpochCache()
	cache.getErr = errors.New("redis down")

	resolver := NewEpochResolver(store, cache, nil, FixedClock{Date: jan(15)}, discardLogger())
	epoch, err := resolver.GetEpoch(context.Background(), "proj-1")
	require.NoError(t, err)
	assert.Equal(t, jan(4), epoch.Start)
}

func TestEpochResolver_GetEpoch_Errors(t *testing.T) {
	t.Run("empty project", func(t *testing.T) {
		resolver := NewEpochResolver(newMemorySettings(), nil, nil, FixedClock{Date: jan(15)}, discardLogger())
		_, err := resolver.GetEpoch(context.Background(), "")
		assert.ErrorIs(t, err, ErrInvalidProject)
	})

	t.Run("create failure is configuration missing", func(t *testing.T) {
		store := newMemorySettings()
		store.createErr = errors.New("permission denied")
		resolver := NewEpochResolver(store, nil, nil, FixedClock{Date: jan(15)}, discardLogger())

		_, err := resolver.GetEpoch(context.Background(), "proj-1")
		assert.ErrorIs(t, err, ErrConfigurationMissing)
		assert.Contains(t, err.Error(), "permission denied")
	})

	t.Run("store failure is a fetch error", func(t *testing.T) {
		store := newMemorySettings()
		store.getErr = errors.New("connection refused")
		resolver := NewEpochResolver(store, nil, nil, FixedClock{Date: jan(15)}, discardLogger())

		_, err := resolver.GetEpoch(context.Background(), "proj-1")
		var fetchErr *database.FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, "epoch", fetchErr.Source)
	})
}

func TestEpochResolver_SetEpoch(t *testing.T) {
	t.Run("moves forward and invalidates cache", func(t *testing.T) {
		store := newMemorySettings()
		store.rows["proj-1"] = jan(5)
		cache := newMemoryEpochCache()
		cache.items["proj-1"] = jan(5)
		locker := &stubLocker{}

		resolver := NewEpochResolver(store, cache, locker, FixedClock{Date: jan(15)}, discardLogger())
		epoch, err := resolver.SetEpoch(context.Background(), "proj-1", jan(10), false)
		require.NoError(t, err)

		assert.Equal(t, jan(10), epoch.Start)
		assert.Equal(t, jan(10), store.rows["proj-1"])
		assert.NotContains(t, cache.items, "proj-1")
		assert.Equal(t, []string{"proj-1"}, cache.invalidated)
		assert.Equal(t, 1, locker.locked)
		assert.Equal(t, 1, locker.unlocked)
	})

	t.Run("rejects backward move without override", func(t *testing.T) {
		store := newMemorySettings()
		store.rows["proj-1"] = jan(10)
		locker := &stubLocker{}

		resolver := NewEpochResolver(store, nil, locker, FixedClock{Date: jan(15)}, discardLogger())
		_, err := resolver.SetEpoch(context.Background(), "proj-1", jan(5), false)

		assert.ErrorIs(t, err, ErrEpochBackward)
		assert.Equal(t, jan(10), store.rows["proj-1"])
		assert.Equal(t, 1, locker.unlocked, "lock is released on failure")
	})

	t.Run("allows backward move with override", func(t *testing.T) {
		store := newMemorySettings()
		store.rows["proj-1"] = jan(10)

		resolver := NewEpochResolver(store, nil, nil, FixedClock{Date: jan(15)}, discardLogger())
		epoch, err := resolver.SetEpoch(context.Background(), "proj-1", jan(5), true)
		require.NoError(t, err)
		assert.Equal(t, jan(5), epoch.Start)
		assert.Equal(t, jan(5), store.rows["proj-1"])
	})

	t.Run("unchanged date skips update", func(t *testing.T) {
		store := newMemorySettings()
		store.rows["proj-1"] = jan(10)

		resolver := NewEpochResolver(store, nil, nil, FixedClock{Date: jan(15)}, discardLogger())
		_, err := resolver.SetEpoch(context.Background(), "proj-1", jan(10), false)
		require.NoError(t, err)
		assert.Equal(t, 0, store.updates)
	})

	t.Run("creates missing settings", func(t *testing.T) {
		store := newMemorySettings()

		resolver := NewEpochResolver(store, nil, nil, FixedClock{Date: jan(15)}, discardLogger())
		epoch, err := resolver.SetEpoch(context.Background(), "proj-1", jan(2), false)
		require.NoError(t, err)
		assert.Equal(t, jan(2), epoch.Start)
		assert.Equal(t, jan(2), store.rows["proj-1"])
	})

	t.Run("lock held elsewhere", func(t *testing.T) {
		store := newMemorySettings()
		store.rows["proj-1"] = jan(10)

		resolver := NewEpochResolver(store, nil, &stubLocker{refuse: true}, FixedClock{Date: jan(15)}, discardLogger())
		_, err := resolver.SetEpoch(context.Background(), "proj-1", jan(12), false)
		assert.ErrorIs(t, err, ErrEpochLocked)
		assert.ErrorIs(t, err, errLockHeld)
		assert.Equal(t, jan(10), store.rows["proj-1"])
	})

	t.Run("invalid date", func(t *testing.T) {
		resolver := NewEpochResolver(newMemorySettings(), nil, nil, FixedClock{Date: jan(15)}, discardLogger())
		bad := jan(10)
		bad.Day = 45
		_, err := resolver.SetEpoch(context.Background(), "proj-1", bad, false)
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}
