package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(zap.NewNop(), time.Minute)
}

func TestStore_ReadWrite(t *testing.T) {
	s := newTestStore(t)
	key := BookingDetailKey("b1")

	t.Run("read of absent key misses", func(t *testing.T) {
		_, ok := s.Read(key)
		require.False(t, ok)
	})

	t.Run("write then read returns the value", func(t *testing.T) {
		s.Write(key, "v1")
		v, ok := s.Read(key)
		require.True(t, ok)
		require.Equal(t, "v1", v)
	})

	t.Run("write overwrites unconditionally", func(t *testing.T) {
		s.Write(key, "v2")
		v, _ := s.Read(key)
		require.Equal(t, "v2", v)
	})

	t.Run("expired entry is evicted on read", func(t *testing.T) {
		s.WriteTTL(key, "v3", time.Nanosecond)
		time.Sleep(time.Millisecond)
		_, ok := s.Read(key)
		require.False(t, ok)
	})
}

func TestStore_SpeculativeApplyRollback(t *testing.T) {
	type booking struct {
		ID     string
		Status string
	}

	t.Run("rollback restores the exact pre-mutation value", func(t *testing.T) {
		s := newTestStore(t)
		key := BookingDetailKey("b1")
		before := &booking{ID: "b1", Status: "pending"}
		s.Write(key, before)

		snap := s.SpeculativeApply(key, nil, func(v interface{}) interface{} {
			b := *(v.(*booking))
			b.Status = "in_progress"
			return &b
		})

		v, _ := s.Read(key)
		require.Equal(t, "in_progress", v.(*booking).Status)

		s.Rollback(key, snap)
		v, ok := s.Read(key)
		require.True(t, ok)
		require.Same(t, before, v)
		require.Equal(t, "pending", v.(*booking).Status)
	})

	t.Run("apply on absent key uses the default, rollback removes the entry", func(t *testing.T) {
		s := newTestStore(t)
		key := FavoritesKey()

		snap := s.SpeculativeApply(key, []string{}, func(v interface{}) interface{} {
			return append(v.([]string), "p1")
		})
		v, ok := s.Read(key)
		require.True(t, ok)
		require.Equal(t, []string{"p1"}, v)

		s.Rollback(key, snap)
		_, ok = s.Read(key)
		require.False(t, ok)
	})

	t.Run("rollback of an evicted key is a no-op", func(t *testing.T) {
		s := newTestStore(t)
		key := BookingDetailKey("gone")
		s.Write(key, "v")
		snap := s.SpeculativeApply(key, nil, func(v interface{}) interface{} { return "speculative" })

		s.WriteTTL(key, "speculative", time.Nanosecond)
		time.Sleep(time.Millisecond)
		_, ok := s.Read(key)
		require.False(t, ok)

		require.NotPanics(t, func() { s.Rollback(key, snap) })
	})

	t.Run("racing mutations: each snapshot sees the value before its own apply", func(t *testing.T) {
		s := newTestStore(t)
		key := BookingDetailKey("b1")
		s.Write(key, "v0")

		snap1 := s.SpeculativeApply(key, nil, func(interface{}) interface{} { return "m1" })
		snap2 := s.SpeculativeApply(key, nil, func(interface{}) interface{} { return "m2" })

		// The earlier mutation's rollback is superseded by the later apply.
		s.Rollback(key, snap1)
		v, _ := s.Read(key)
		require.Equal(t, "m2", v)

		// The last-dispatched mutation rolls back to what it observed.
		s.Rollback(key, snap2)
		v, _ = s.Read(key)
		require.Equal(t, "m1", v)
	})
}

func TestStore_Invalidate(t *testing.T) {
	s := newTestStore(t)

	s.Write(BookingListKey(""), "all")
	s.Write(BookingListKey("completed"), "done")
	s.Write(BookingDetailKey("b1"), "detail")

	s.Invalidate(NewKey("bookings", "list"))

	_, ok := s.Read(BookingListKey(""))
	require.False(t, ok, "prefix itself must go stale")
	_, ok = s.Read(BookingListKey("completed"))
	require.False(t, ok, "dependents under the prefix must go stale")
	_, ok = s.Read(BookingDetailKey("b1"))
	require.True(t, ok, "keys outside the prefix stay fresh")
}

func TestStore_InvalidatePrefixBoundary(t *testing.T) {
	s := newTestStore(t)

	// "bookings:listing" shares a string prefix with "bookings:list" but is
	// not a dependent of it.
	s.Write(NewKey("bookings", "listing"), "other")
	s.Invalidate(NewKey("bookings", "list"))

	_, ok := s.Read(NewKey("bookings", "listing"))
	require.True(t, ok)
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("read-through fetches once and caches", func(t *testing.T) {
		s := newTestStore(t)
		key := BookingListKey("")
		fetches := 0
		fetch := func(context.Context) (interface{}, error) {
			fetches++
			return "fetched", nil
		}

		v, err := s.Get(ctx, key, fetch)
		require.NoError(t, err)
		require.Equal(t, "fetched", v)

		_, err = s.Get(ctx, key, fetch)
		require.NoError(t, err)
		require.Equal(t, 1, fetches)
	})

	t.Run("invalidated entry refetches on next read", func(t *testing.T) {
		s := newTestStore(t)
		key := BookingListKey("")
		fetches := 0
		fetch := func(context.Context) (interface{}, error) {
			fetches++
			return fetches, nil
		}

		_, err := s.Get(ctx, key, fetch)
		require.NoError(t, err)
		s.Invalidate(NewKey("bookings", "list"))

		v, err := s.Get(ctx, key, fetch)
		require.NoError(t, err)
		require.Equal(t, 2, v, "post-mutation read must observe freshly fetched data")
	})

	t.Run("fetch error propagates without caching", func(t *testing.T) {
		s := newTestStore(t)
		key := BookingDetailKey("b1")
		boom := errors.New("upstream down")

		_, err := s.Get(ctx, key, func(context.Context) (interface{}, error) { return nil, boom })
		require.ErrorIs(t, err, boom)
		_, ok := s.Read(key)
		require.False(t, ok)
	})

	t.Run("voided fetch with nothing cached refetches instead of serving the stale result", func(t *testing.T) {
		s := newTestStore(t)
		key := BookingDetailKey("b1")
		fetches := 0

		// First fetch is voided mid-flight and the mutation that voided it
		// rolled back to an absent entry; the read-through must go again.
		v, err := s.Get(ctx, key, func(context.Context) (interface{}, error) {
			fetches++
			if fetches == 1 {
				s.CancelInFlight(key)
				return "stale", nil
			}
			return "fresh", nil
		})
		require.NoError(t, err)
		require.Equal(t, "fresh", v)
		require.Equal(t, 2, fetches)

		cached, ok := s.Read(key)
		require.True(t, ok)
		require.Equal(t, "fresh", cached)
	})

	t.Run("repeatedly voided fetch gives up uncached after the retry bound", func(t *testing.T) {
		s := newTestStore(t)
		key := BookingDetailKey("b1")
		fetches := 0

		v, err := s.Get(ctx, key, func(context.Context) (interface{}, error) {
			fetches++
			s.CancelInFlight(key)
			return fetches, nil
		})
		require.NoError(t, err)
		require.Equal(t, maxVoidedRefetches+1, v)
		_, ok := s.Read(key)
		require.False(t, ok, "a voided result is never cached")
	})

	t.Run("cancelled in-flight fetch cannot overwrite a speculative value", func(t *testing.T) {
		s := newTestStore(t)
		key := BookingDetailKey("b1")

		// The mutation lands while the fetch is in flight: cancel, then
		// apply, exactly the ordering the mutation path uses.
		v, err := s.Get(ctx, key, func(context.Context) (interface{}, error) {
			s.CancelInFlight(key)
			s.SpeculativeApply(key, nil, func(interface{}) interface{} { return "speculative" })
			return "stale-fetch", nil
		})
		require.NoError(t, err)
		require.Equal(t, "speculative", v)

		cached, ok := s.Read(key)
		require.True(t, ok)
		require.Equal(t, "speculative", cached)
	})
}

func TestKey_HasPrefix(t *testing.T) {
	k := ProviderReviewsKey("p1")
	require.True(t, k.HasPrefix(NewKey("providers", "detail", "p1")))
	require.True(t, k.HasPrefix(k))
	require.False(t, k.HasPrefix(NewKey("providers", "detail", "p2")))
	require.False(t, NewKey("providers").HasPrefix(k))
}
