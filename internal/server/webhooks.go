package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumapix/lumapix/internal/webhook"
)

// maxWebhookBody caps the request body read. Stripe event payloads are a few
// kilobytes; anything bigger is not a legitimate delivery.
const maxWebhookBody = 64 << 10

func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	err = s.webhookSvc.HandleEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		var sigErr *webhook.SignatureError
		if errors.As(err, &sigErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}

		var handlerErr *webhook.HandlerError
		if errors.As(err, &handlerErr) {
			s.log.Error("webhook processing failed",
				zap.String("event_type", handlerErr.EventType),
				zap.Error(handlerErr.Err),
			)
		} else {
			s.log.Error("webhook processing failed", zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
