package booking

import (
	"context"
	"fmt"

	"fixhub/cache"
	"fixhub/models"

	"go.uber.org/zap"
)

// Mutator is the single mutation path into the cache store: every write to a
// remote entity goes speculative-apply → remote call → write-or-rollback →
// invalidate, so no call site duplicates snapshot logic.
type Mutator struct {
	Store  *cache.Store
	API    API
	Logger *zap.Logger
}

func NewMutator(store *cache.Store, api API, logger *zap.Logger) *Mutator {
	return &Mutator{Store: store, API: api, Logger: logger}
}

// CreateBooking persists a new booking through the marketplace API. Nothing
// is speculatively applied before creation succeeds, so a failure here needs
// no rollback.
func (m *Mutator) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	created, err := m.API.CreateBooking(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create booking mutation failed: %w", err)
	}

	m.Store.Write(cache.BookingDetailKey(created.ID), created)
	m.Store.InvalidateAll(cache.CreateBookingInvalidations())
	return created, nil
}

// UpdateBookingStatus optimistically transitions the cached booking to the
// new status, dispatches the remote mutation, and either commits the server's
// version or rolls back to the snapshot.
func (m *Mutator) UpdateBookingStatus(ctx context.Context, id, status, reason string) (*models.Booking, error) {
	key := cache.BookingDetailKey(id)

	m.Store.CancelInFlight(key)
	snap := m.Store.SpeculativeApply(key, nil, func(v interface{}) interface{} {
		b, ok := v.(*models.Booking)
		if !ok || b == nil {
			return v
		}
		next := *b
		next.Status = status
		return &next
	})

	updated, err := m.API.UpdateBookingStatus(ctx, id, status, reason)
	if err != nil {
		m.Store.Rollback(key, snap)
		m.Logger.Warn("status update rejected, cache rolled back",
			zap.String("bookingID", id), zap.String("status", status))
		return nil, fmt.Errorf("update booking status mutation failed: %w", err)
	}

	m.Store.Write(key, updated)
	m.Store.InvalidateAll(cache.UpdateBookingStatusInvalidations(id))
	return updated, nil
}

// CancelBooking is the explicit cancellation path used when a user abandons
// a paid-for booking. It is a status update with a fixed reason.
func (m *Mutator) CancelBooking(ctx context.Context, id, reason string) (*models.Booking, error) {
	return m.UpdateBookingStatus(ctx, id, models.StatusCancelled, reason)
}

// SetFavorite optimistically toggles the provider in the cached favorites
// list before the remote call resolves.
func (m *Mutator) SetFavorite(ctx context.Context, providerID string, favorite bool) error {
	key := cache.FavoritesKey()

	m.Store.CancelInFlight(key)
	snap := m.Store.SpeculativeApply(key, []string{}, func(v interface{}) interface{} {
		ids, ok := v.([]string)
		if !ok {
			return v
		}
		next := make([]string, 0, len(ids)+1)
		for _, id := range ids {
			if id != providerID {
				next = append(next, id)
			}
		}
		if favorite {
			next = append(next, providerID)
		}
		return next
	})

	if err := m.API.SetFavorite(ctx, providerID, favorite); err != nil {
		m.Store.Rollback(key, snap)
		return fmt.Errorf("favorite mutation failed: %w", err)
	}

	m.Store.InvalidateAll(cache.FavoriteInvalidations(providerID))
	return nil
}

// SubmitReview submits a review and cascades invalidation over the
// provider's review and rating entries.
func (m *Mutator) SubmitReview(ctx context.Context, review models.Review) (*models.Review, error) {
	saved, err := m.API.SubmitReview(ctx, review)
	if err != nil {
		return nil, fmt.Errorf("review mutation failed: %w", err)
	}

	m.Store.InvalidateAll(cache.ReviewInvalidations(review.ProviderID))
	return saved, nil
}

// SettlePayment is the reconciliation path for a verification run that timed
// out: once the gateway reports a terminal status, the booking's cached view
// is invalidated so the next read observes the settled payment status.
func (m *Mutator) SettlePayment(bookingID string) {
	m.Store.InvalidateAll(cache.UpdateBookingStatusInvalidations(bookingID))
	m.Logger.Info("booking cache invalidated after payment settlement",
		zap.String("bookingID", bookingID))
}
