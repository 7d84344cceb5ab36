package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"fixhub/cache"
	"fixhub/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMutator(api *fakeAPI) (*Mutator, *cache.Store) {
	logger := zap.NewNop()
	store := cache.NewStore(logger, time.Minute)
	return NewMutator(store, api, logger), store
}

func TestMutator_CreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("success writes the detail entry and invalidates dependents", func(t *testing.T) {
		m, store := newTestMutator(&fakeAPI{})
		store.Write(cache.BookingListKey(""), "stale-list")
		store.Write(cache.DashboardMetricsKey(), "stale-metrics")

		created, err := m.CreateBooking(ctx, CreateBookingRequest{
			ProviderID: "p1",
			ServiceID:  "cleaning",
			Date:       "2025-11-15",
			Time:       "10:00",
			Location:   models.Location{Address: "East Legon", City: "Accra", Region: "Greater Accra"},
		})
		require.NoError(t, err)

		v, ok := store.Read(cache.BookingDetailKey(created.ID))
		require.True(t, ok)
		require.Equal(t, created, v)

		_, ok = store.Read(cache.BookingListKey(""))
		require.False(t, ok, "bookings list must refetch after creation")
		_, ok = store.Read(cache.DashboardMetricsKey())
		require.False(t, ok, "dashboard metrics must refetch after creation")
	})

	t.Run("failure leaves the cache untouched", func(t *testing.T) {
		m, store := newTestMutator(&fakeAPI{createErr: errors.New("validation failed")})
		store.Write(cache.BookingListKey(""), "list")

		_, err := m.CreateBooking(ctx, CreateBookingRequest{ProviderID: "p1"})
		require.Error(t, err)

		v, ok := store.Read(cache.BookingListKey(""))
		require.True(t, ok)
		require.Equal(t, "list", v)
	})
}

func TestMutator_UpdateBookingStatus(t *testing.T) {
	ctx := context.Background()
	pre := &models.Booking{ID: "bk-1", Status: models.StatusConfirmed, PaymentStatus: models.PaymentCompleted}

	t.Run("rejected update reverts the cached detail exactly", func(t *testing.T) {
		m, store := newTestMutator(&fakeAPI{updateErr: errors.New("forbidden transition")})
		store.Write(cache.BookingDetailKey("bk-1"), pre)

		_, err := m.UpdateBookingStatus(ctx, "bk-1", models.StatusInProgress, "")
		require.Error(t, err)

		v, ok := store.Read(cache.BookingDetailKey("bk-1"))
		require.True(t, ok)
		require.Same(t, pre, v, "rollback must restore the exact pre-mutation value")
	})

	t.Run("successful update commits the server version and invalidates", func(t *testing.T) {
		m, store := newTestMutator(&fakeAPI{})
		store.Write(cache.BookingDetailKey("bk-1"), pre)
		store.Write(cache.BookingListKey(""), "stale")

		updated, err := m.UpdateBookingStatus(ctx, "bk-1", models.StatusInProgress, "")
		require.NoError(t, err)
		require.Equal(t, models.StatusInProgress, updated.Status)

		_, ok := store.Read(cache.BookingListKey(""))
		require.False(t, ok, "list prefix invalidates after a status change")
	})

	t.Run("speculative value is visible before the remote call resolves", func(t *testing.T) {
		api := &fakeAPI{}
		m, store := newTestMutator(api)
		store.Write(cache.BookingDetailKey("bk-1"), pre)

		// Observe the cache from inside the remote call.
		var midFlight string
		api.onUpdate = func() {
			if v, ok := store.Read(cache.BookingDetailKey("bk-1")); ok {
				midFlight = v.(*models.Booking).Status
			}
		}

		_, err := m.UpdateBookingStatus(ctx, "bk-1", models.StatusInProgress, "")
		require.NoError(t, err)
		require.Equal(t, models.StatusInProgress, midFlight,
			"a reader between dispatch and resolution sees the speculative value")
	})
}

func TestMutator_SetFavorite(t *testing.T) {
	ctx := context.Background()

	t.Run("optimistic toggle rolls back when the remote call fails", func(t *testing.T) {
		api := &fakeAPI{favoriteErr: errors.New("unavailable")}
		m, store := newTestMutator(api)
		store.Write(cache.FavoritesKey(), []string{"p9"})

		err := m.SetFavorite(ctx, "p1", true)
		require.Error(t, err)

		v, ok := store.Read(cache.FavoritesKey())
		require.True(t, ok)
		require.Equal(t, []string{"p9"}, v)
	})

	t.Run("success invalidates favorites and the provider detail", func(t *testing.T) {
		m, store := newTestMutator(&fakeAPI{})
		store.Write(cache.FavoritesKey(), []string{"p9"})
		store.Write(cache.ProviderDetailKey("p1"), "detail")

		require.NoError(t, m.SetFavorite(ctx, "p1", true))

		_, ok := store.Read(cache.FavoritesKey())
		require.False(t, ok)
		_, ok = store.Read(cache.ProviderDetailKey("p1"))
		require.False(t, ok)
	})
}

func TestMutator_SubmitReview(t *testing.T) {
	ctx := context.Background()
	m, store := newTestMutator(&fakeAPI{})
	store.Write(cache.ProviderReviewsKey("p1"), "reviews")
	store.Write(cache.ProviderRatingKey("p1"), 4.5)
	store.Write(cache.MyReviewsKey(), "mine")
	store.Write(cache.ProviderDetailKey("p2"), "unrelated")

	_, err := m.SubmitReview(ctx, models.Review{ProviderID: "p1", BookingID: "bk-1", Rating: 5})
	require.NoError(t, err)

	for _, key := range cache.ReviewInvalidations("p1") {
		_, ok := store.Read(key)
		require.False(t, ok, "key %s must be invalidated", key)
	}
	_, ok := store.Read(cache.ProviderDetailKey("p2"))
	require.True(t, ok, "other providers' entries stay fresh")
}
