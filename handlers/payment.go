package handlers

import (
	"errors"
	"net/http"

	"fixhub/services/booking"
	"fixhub/services/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentHandler exposes the orchestrator surface: submit, retry, change
// method, cancel, and the read-only run state with its current error.
type PaymentHandler struct {
	Sessions *booking.SessionService
	Logger   *zap.Logger
}

func NewPaymentHandler(sessions *booking.SessionService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Sessions: sessions, Logger: logger}
}

func runResponse(sessionID string, st booking.State, run *booking.Orchestrator) gin.H {
	resp := gin.H{
		"sessionID": sessionID,
		"runState":  run.State(),
		"step":      st.Step.String(),
		"draft":     st.Draft,
	}
	if attempt := run.Attempt(); attempt != nil {
		resp["attempt"] = gin.H{
			"transactionID": attempt.TransactionID,
			"status":        attempt.Status,
			"pollAttempts":  attempt.PollAttempts,
		}
	}
	if perr := run.Err(); perr != nil {
		resp["error"] = gin.H{
			"code":      perr.Code,
			"title":     perr.Title,
			"message":   perr.Message,
			"retryable": perr.Retryable,
			"action":    perr.Action,
		}
		resp["actions"] = run.Actions()
	}
	return resp
}

func respondRun(c *gin.Context, sessionID string, st booking.State, run *booking.Orchestrator, runErr error) {
	if runErr != nil {
		var perr *payment.Error
		if errors.As(runErr, &perr) {
			// The run failed; the response body carries the classified error
			// and the allowed recovery actions.
			c.JSON(http.StatusPaymentRequired, runResponse(sessionID, st, run))
			return
		}
		respondFlowError(c, runErr)
		return
	}
	c.JSON(http.StatusOK, runResponse(sessionID, st, run))
}

// SubmitPayment creates the booking and drives the payment protocol to a
// terminal outcome.
func (h *PaymentHandler) SubmitPayment(c *gin.Context) {
	sessionID := c.Param("sessionID")
	st, run, err := h.Sessions.SubmitPayment(c.Request.Context(), sessionID)
	if err != nil && run == nil {
		respondFlowError(c, err)
		return
	}
	respondRun(c, sessionID, st, run, err)
}

// GetPaymentState reports the run's current state without acting on it.
func (h *PaymentHandler) GetPaymentState(c *gin.Context) {
	sessionID := c.Param("sessionID")
	st, err := h.Sessions.GetFlow(c.Request.Context(), sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, runResponse(sessionID, st, h.Sessions.Run(sessionID)))
}

// RetryPayment re-runs the failed stage of the run.
func (h *PaymentHandler) RetryPayment(c *gin.Context) {
	sessionID := c.Param("sessionID")
	st, run, err := h.Sessions.RetryPayment(c.Request.Context(), sessionID)
	if err != nil && run == nil {
		respondFlowError(c, err)
		return
	}
	respondRun(c, sessionID, st, run, err)
}

// ChangePaymentMethod returns a failed run to method selection.
func (h *PaymentHandler) ChangePaymentMethod(c *gin.Context) {
	sessionID := c.Param("sessionID")
	st, err := h.Sessions.ChangePaymentMethod(c.Request.Context(), sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flowResponse(sessionID, st))
}

// CancelPayment abandons the run and cancels the created booking.
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	sessionID := c.Param("sessionID")
	st, err := h.Sessions.CancelPayment(c.Request.Context(), sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	h.Logger.Info("payment run cancelled", zap.String("sessionID", sessionID))
	c.JSON(http.StatusOK, gin.H{
		"sessionID": sessionID,
		"runState":  booking.RunCancelled,
		"draft":     st.Draft,
	})
}
