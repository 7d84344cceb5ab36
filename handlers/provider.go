package handlers

import (
	"net/http"

	"fixhub/models"
	"fixhub/services/booking"
	"fixhub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProviderHandler carries the thin engagement mutations: favoriting a
// provider and submitting a review. Both ride the mutation path so their
// dependent cache prefixes invalidate like any other write.
type ProviderHandler struct {
	Mutator *booking.Mutator
	Logger  *zap.Logger
}

func NewProviderHandler(mutator *booking.Mutator, logger *zap.Logger) *ProviderHandler {
	return &ProviderHandler{Mutator: mutator, Logger: logger}
}

// FavoriteProvider marks the provider as a favorite.
func (h *ProviderHandler) FavoriteProvider(c *gin.Context) {
	providerID := c.Param("id")
	if err := h.Mutator.SetFavorite(c.Request.Context(), providerID, true); err != nil {
		utils.JSONError(c, http.StatusBadGateway, "failed to favorite provider", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"providerID": providerID, "favorite": true})
}

// UnfavoriteProvider removes the provider from favorites.
func (h *ProviderHandler) UnfavoriteProvider(c *gin.Context) {
	providerID := c.Param("id")
	if err := h.Mutator.SetFavorite(c.Request.Context(), providerID, false); err != nil {
		utils.JSONError(c, http.StatusBadGateway, "failed to unfavorite provider", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"providerID": providerID, "favorite": false})
}

// SubmitReview records a rating for a completed booking's provider.
func (h *ProviderHandler) SubmitReview(c *gin.Context) {
	var review models.Review
	if err := c.ShouldBindJSON(&review); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	if review.ProviderID == "" || review.Rating < 1 || review.Rating > 5 {
		utils.JSONError(c, http.StatusBadRequest, "invalid review", "provider id and a 1-5 rating are required")
		return
	}

	saved, err := h.Mutator.SubmitReview(c.Request.Context(), review)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "failed to submit review", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": saved})
}
