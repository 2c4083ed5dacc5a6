package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lumapix/lumapix/internal/catalog"
	"github.com/lumapix/lumapix/internal/clock"
	"github.com/lumapix/lumapix/internal/creditpack/domain"
	ledgerdomain "github.com/lumapix/lumapix/internal/ledger/domain"
	obsmetrics "github.com/lumapix/lumapix/internal/observability/metrics"
	"github.com/lumapix/lumapix/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	LedgerSvc  ledgerdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	ledgerSvc  ledgerdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("creditpack.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		ledgerSvc:  p.LedgerSvc,
		obsMetrics: p.ObsMetrics,
	}
}

// ApplyPurchase settles one pack purchase, keyed on (userID, payment intent).
// The same purchase can be reported by checkout-completed and by
// payment-intent-succeeded; whichever lands second finds the row inside the
// transaction and commits nothing.
func (s *Service) ApplyPurchase(ctx context.Context, p domain.PurchaseParams) error {
	if strings.TrimSpace(p.UserID) == "" {
		return domain.ErrInvalidUser
	}
	if strings.TrimSpace(p.StripePaymentIntentID) == "" {
		return domain.ErrInvalidPaymentRef
	}
	if p.Credits <= 0 {
		return domain.ErrInvalidCredits
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByUserAndPaymentIntent(ctx, tx, p.UserID, p.StripePaymentIntentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyApplied
		}

		now := s.clock.Now()
		pack := &domain.CreditPack{
			ID:                    s.genID.Generate(),
			UserID:                p.UserID,
			PackID:                p.PackID,
			CreditsPurchased:      p.Credits,
			CreditsUsed:           0,
			CreditsRemaining:      p.Credits,
			PriceCents:            p.AmountCents,
			StripePaymentIntentID: p.StripePaymentIntentID,
			PurchasedAt:           now,
			ExpiresAt:             catalog.PackExpiry(now, p.ValidityDays),
			IsActive:              true,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := s.repo.Insert(ctx, tx, pack); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyApplied
			}
			return err
		}

		_, err = s.ledgerSvc.Append(ctx, tx, ledgerdomain.Entry{
			UserID:        p.UserID,
			Type:          ledgerdomain.TransactionTypePackPurchase,
			CreditsChange: p.Credits,
			SourceType:    ledgerdomain.SourceTypeCreditPack,
			SourceID:      pack.ID,
			Description:   "Credit pack purchase",
			Metadata: map[string]any{
				"packId":                p.PackID,
				"stripePaymentIntentId": p.StripePaymentIntentID,
			},
		})
		return err
	})
	if errors.Is(err, domain.ErrAlreadyApplied) {
		s.log.Info("credit pack purchase already applied, skipping",
			zap.String("user_id", p.UserID),
			zap.String("stripe_payment_intent_id", p.StripePaymentIntentID))
		if s.obsMetrics != nil {
			s.obsMetrics.RecordIdempotencyHit(ctx, "pack_purchase")
		}
		return nil
	}
	return err
}

// ActiveForUser returns the user's active, unexpired packs.
func (s *Service) ActiveForUser(ctx context.Context, userID string) ([]*domain.CreditPack, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidUser
	}
	packs, err := s.repo.FindActiveByUserID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := packs[:0]
	for _, pack := range packs {
		if !pack.Expired(now) {
			out = append(out, pack)
		}
	}
	return out, nil
}
