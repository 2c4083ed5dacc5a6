package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	checkoutdomain "github.com/lumapix/lumapix/internal/checkout/domain"
)

type trackCheckoutRequest struct {
	StripeSessionID string `json:"stripeSessionId" binding:"required"`
	UserID          string `json:"userId" binding:"required"`
	Purpose         string `json:"purpose" binding:"required,oneof=credit_pack subscription"`
}

// TrackCheckoutSession records a session the frontend just opened so the
// completion webhook can be matched against it later.
func (s *Server) TrackCheckoutSession(c *gin.Context) {
	var req trackCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.checkoutSvc.Track(c.Request.Context(), req.StripeSessionID, req.UserID, checkoutdomain.SessionPurpose(req.Purpose))
	if err != nil {
		if errors.Is(err, checkoutdomain.ErrInvalidSessionRef) || errors.Is(err, checkoutdomain.ErrInvalidUser) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.log.Error("track checkout session failed",
			zap.String("stripe_session_id", req.StripeSessionID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "tracked"})
}
