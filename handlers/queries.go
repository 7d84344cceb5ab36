package handlers

import (
	"context"
	"net/http"

	"fixhub/cache"
	"fixhub/services/booking"
	"fixhub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// QueryHandler serves cached reads of remote entities. Screens hit these
// endpoints without knowing about invalidation internals: a read after a
// mutation within its dependent-prefix set refetches from the marketplace.
type QueryHandler struct {
	Store  *cache.Store
	API    booking.API
	Logger *zap.Logger
}

func NewQueryHandler(store *cache.Store, api booking.API, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{Store: store, API: api, Logger: logger}
}

// ListBookings returns the user's bookings, optionally filtered by status.
func (h *QueryHandler) ListBookings(c *gin.Context) {
	filter := c.Query("status")
	key := cache.BookingListKey(filter)

	v, err := h.Store.Get(c.Request.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.API.ListBookings(ctx, filter)
	})
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "failed to load bookings", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": v})
}

// GetBooking returns one booking by id.
func (h *QueryHandler) GetBooking(c *gin.Context) {
	id := c.Param("id")
	key := cache.BookingDetailKey(id)

	v, err := h.Store.Get(c.Request.Context(), key, func(ctx context.Context) (interface{}, error) {
		return h.API.GetBooking(ctx, id)
	})
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "failed to load booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": v})
}
