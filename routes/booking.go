package routes

import (
	"fixhub/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterFlowRoutes registers the booking flow and payment run endpoints.
func RegisterFlowRoutes(r *gin.Engine, flow *handlers.BookingFlowHandler, pay *handlers.PaymentHandler) {
	f := r.Group("/api/flow")
	{
		f.POST("", flow.StartFlow)
		f.GET("/:sessionID", flow.GetFlow)
		f.DELETE("/:sessionID", flow.CancelFlow)

		// Draft writes.
		f.PUT("/:sessionID/service", flow.SetService)
		f.PUT("/:sessionID/schedule", flow.SetSchedule)
		f.PUT("/:sessionID/location", flow.SetLocation)
		f.PUT("/:sessionID/payment-method", flow.SetPaymentMethod)

		// Step navigation.
		f.POST("/:sessionID/next", flow.NextStep)
		f.POST("/:sessionID/previous", flow.PreviousStep)
		f.POST("/:sessionID/goto", flow.GoToStep)
		f.POST("/:sessionID/reset", flow.ResetFlow)

		// Payment run.
		f.POST("/:sessionID/payment", pay.SubmitPayment)
		f.GET("/:sessionID/payment", pay.GetPaymentState)
		f.POST("/:sessionID/payment/retry", pay.RetryPayment)
		f.POST("/:sessionID/payment/change-method", pay.ChangePaymentMethod)
		f.POST("/:sessionID/payment/cancel", pay.CancelPayment)
	}
}
