package handlers

import (
	"errors"
	"net/http"

	"fixhub/models"
	"fixhub/services/booking"
	"fixhub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingFlowHandler exposes the flow state machine to screen components:
// current step, draft writes, and step navigation.
type BookingFlowHandler struct {
	Sessions *booking.SessionService
	Logger   *zap.Logger
}

func NewBookingFlowHandler(sessions *booking.SessionService, logger *zap.Logger) *BookingFlowHandler {
	return &BookingFlowHandler{Sessions: sessions, Logger: logger}
}

func flowResponse(sessionID string, st booking.State) gin.H {
	return gin.H{
		"sessionID": sessionID,
		"step":      st.Step.String(),
		"stepValid": booking.StepValid(st.Step, st.Draft),
		"draft":     st.Draft,
	}
}

// respondFlowError maps flow-layer failures onto HTTP statuses.
func respondFlowError(c *gin.Context, err error) {
	if errors.Is(err, booking.ErrSessionNotFound) {
		utils.JSONError(c, http.StatusNotFound, "booking flow session not found or expired", "")
		return
	}
	var ferr *booking.FlowError
	if errors.As(err, &ferr) {
		utils.JSONError(c, http.StatusConflict, ferr.Message, ferr.Code)
		return
	}
	utils.JSONError(c, http.StatusInternalServerError, "flow operation failed", err.Error())
}

// StartFlow opens a new booking flow session.
func (h *BookingFlowHandler) StartFlow(c *gin.Context) {
	var input struct {
		ProviderID string `json:"provider_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	sessionID, st, err := h.Sessions.StartFlow(c.Request.Context(), input.ProviderID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusCreated, flowResponse(sessionID, st))
}

// GetFlow returns the session's current step and draft.
func (h *BookingFlowHandler) GetFlow(c *gin.Context) {
	sessionID := c.Param("sessionID")
	st, err := h.Sessions.GetFlow(c.Request.Context(), sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flowResponse(sessionID, st))
}

// SetService records the selected service and add-ons.
func (h *BookingFlowHandler) SetService(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var input struct {
		ServiceID string   `json:"service_id" binding:"required"`
		AddOnIDs  []string `json:"add_on_ids"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	st, err := h.Sessions.SetService(c.Request.Context(), sessionID, input.ServiceID, input.AddOnIDs)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flowResponse(sessionID, st))
}

// SetSchedule records the chosen date and time.
func (h *BookingFlowHandler) SetSchedule(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var input struct {
		Date string `json:"date" binding:"required"`
		Time string `json:"time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	st, err := h.Sessions.SetSchedule(c.Request.Context(), sessionID, input.Date, input.Time)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flowResponse(sessionID, st))
}

// SetLocation records the service address.
func (h *BookingFlowHandler) SetLocation(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var loc models.Location
	if err := c.ShouldBindJSON(&loc); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	st, err := h.Sessions.SetLocation(c.Request.Context(), sessionID, loc)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flowResponse(sessionID, st))
}

// SetPaymentMethod records the selected payment method.
func (h *BookingFlowHandler) SetPaymentMethod(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var m models.PaymentMethod
	if err := c.ShouldBindJSON(&m); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if m.Type != models.MethodMobileMoney && m.Type != models.MethodCash {
		utils.JSONError(c, http.StatusBadRequest, "unsupported payment method", m.Type)
		return
	}

	st, err := h.Sessions.SetMethod(c.Request.Context(), sessionID, m)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flowResponse(sessionID, st))
}

// NextStep advances the flow if the current step is complete.
func (h *BookingFlowHandler) NextStep(c *gin.Context) {
	sessionID := c.Param("sessionID")
	st, err := h.Sessions.NextStep(c.Request.Context(), sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flowResponse(sessionID, st))
}

// PreviousStep moves the flow back one step.
func (h *BookingFlowHandler) PreviousStep(c *gin.Context) {
	sessionID := c.Param("sessionID")
	st, err := h.Sessions.PreviousStep(c.Request.Context(), sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flowResponse(sessionID, st))
}

// GoToStep jumps the flow to an arbitrary step (deep links).
func (h *BookingFlowHandler) GoToStep(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var input struct {
		Step int `json:"step"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	st, err := h.Sessions.GoToStep(c.Request.Context(), sessionID, models.FlowStep(input.Step))
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flowResponse(sessionID, st))
}

// ResetFlow discards the draft and restarts at the first step.
func (h *BookingFlowHandler) ResetFlow(c *gin.Context) {
	sessionID := c.Param("sessionID")
	st, err := h.Sessions.ResetFlow(c.Request.Context(), sessionID)
	if err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, flowResponse(sessionID, st))
}

// CancelFlow abandons the session entirely.
func (h *BookingFlowHandler) CancelFlow(c *gin.Context) {
	sessionID := c.Param("sessionID")
	if err := h.Sessions.CancelFlow(c.Request.Context(), sessionID); err != nil {
		respondFlowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionID": sessionID, "cancelled": true})
}
