package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lumapix/lumapix/internal/checkout/domain"
	"github.com/lumapix/lumapix/internal/clock"
	"github.com/lumapix/lumapix/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("checkout.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Track(ctx context.Context, stripeSessionID, userID string, purpose domain.SessionPurpose) error {
	if strings.TrimSpace(stripeSessionID) == "" {
		return domain.ErrInvalidSessionRef
	}
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidUser
	}

	now := s.clock.Now()
	err := s.repo.Insert(ctx, s.db, &domain.CheckoutSession{
		ID:              s.genID.Generate(),
		StripeSessionID: stripeSessionID,
		UserID:          userID,
		Purpose:         purpose,
		Status:          domain.SessionStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil && db.IsDuplicateKeyErr(err) {
		s.log.Info("checkout session already tracked", zap.String("stripe_session_id", stripeSessionID))
		return nil
	}
	return err
}

func (s *Service) MarkCompleted(ctx context.Context, stripeSessionID string) (bool, error) {
	if strings.TrimSpace(stripeSessionID) == "" {
		return false, domain.ErrInvalidSessionRef
	}

	session, err := s.repo.FindByStripeSessionID(ctx, s.db, stripeSessionID)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}

	now := s.clock.Now()
	err = s.repo.Update(ctx, s.db, session.ID, map[string]any{
		"status":       domain.SessionStatusCompleted,
		"completed_at": now,
		"updated_at":   now,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
