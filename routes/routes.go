package routes

import (
	"fixhub/handlers"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the handler sets the router needs.
type HandlerBundle struct {
	Flow     *handlers.BookingFlowHandler
	Payment  *handlers.PaymentHandler
	Query    *handlers.QueryHandler
	Provider *handlers.ProviderHandler
}

// RegisterRoutes registers all endpoints for the booking engine.
func RegisterRoutes(r *gin.Engine, b *HandlerBundle) {
	RegisterFlowRoutes(r, b.Flow, b.Payment)

	api := r.Group("/api")
	{
		api.GET("/bookings", b.Query.ListBookings)
		api.GET("/bookings/:id", b.Query.GetBooking)

		api.PUT("/providers/:id/favorite", b.Provider.FavoriteProvider)
		api.DELETE("/providers/:id/favorite", b.Provider.UnfavoriteProvider)
		api.POST("/reviews", b.Provider.SubmitReview)
	}
}
