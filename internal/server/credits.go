package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	creditpackdomain "github.com/lumapix/lumapix/internal/creditpack/domain"
)

type creditPackView struct {
	PackID           string     `json:"packId"`
	CreditsRemaining int64      `json:"creditsRemaining"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
}

type creditBalanceResponse struct {
	UserID              string           `json:"userId"`
	SubscriptionCredits int64            `json:"subscriptionCredits"`
	PackCredits         int64            `json:"packCredits"`
	TotalCredits        int64            `json:"totalCredits"`
	LedgerBalance       int64            `json:"ledgerBalance"`
	PlanID              string           `json:"planId,omitempty"`
	Packs               []creditPackView `json:"packs"`
}

// GetUserCredits composes the denormalized balances with the ledger sum so
// clients and support tooling see both views from one call.
func (s *Server) GetUserCredits(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	ctx := c.Request.Context()

	sub, err := s.subscriptionSvc.ActiveForUser(ctx, userID)
	if err != nil {
		s.log.Error("load subscription failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	packs, err := s.creditPackSvc.ActiveForUser(ctx, userID)
	if err != nil {
		s.log.Error("load credit packs failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	ledgerBalance, err := s.ledgerSvc.UserBalance(ctx, userID)
	if err != nil {
		s.log.Error("load ledger balance failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := creditBalanceResponse{
		UserID:        userID,
		LedgerBalance: ledgerBalance,
		Packs:         make([]creditPackView, 0, len(packs)),
	}
	if sub != nil {
		resp.PlanID = sub.PlanID
		resp.SubscriptionCredits = sub.CreditsRemainingCurrentPeriod
	}
	for _, pack := range creditpackdomain.ConsumptionOrder(packs) {
		resp.PackCredits += pack.CreditsRemaining
		resp.Packs = append(resp.Packs, creditPackView{
			PackID:           pack.PackID,
			CreditsRemaining: pack.CreditsRemaining,
			ExpiresAt:        pack.ExpiresAt,
		})
	}
	resp.TotalCredits = resp.SubscriptionCredits + resp.PackCredits

	c.JSON(http.StatusOK, resp)
}

type creditHistoryEntry struct {
	Type          string    `json:"type"`
	CreditsChange int64     `json:"creditsChange"`
	BalanceAfter  int64     `json:"balanceAfter"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (s *Server) GetUserCreditHistory(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	rows, err := s.ledgerSvc.History(c.Request.Context(), userID)
	if err != nil {
		s.log.Error("load credit history failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	entries := make([]creditHistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, creditHistoryEntry{
			Type:          string(row.Type),
			CreditsChange: row.CreditsChange,
			BalanceAfter:  row.BalanceAfter,
			Description:   row.Description,
			CreatedAt:     row.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"userId": userID, "entries": entries})
}
