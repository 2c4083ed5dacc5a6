package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lumapix/lumapix/internal/catalog"
	"github.com/lumapix/lumapix/internal/clock"
	ledgerdomain "github.com/lumapix/lumapix/internal/ledger/domain"
	obsmetrics "github.com/lumapix/lumapix/internal/observability/metrics"
	"github.com/lumapix/lumapix/internal/subscription/domain"
	"github.com/lumapix/lumapix/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// resetPeriodDays is the fixed billing-cycle offset. The next reset is
// computed as now + resetPeriodDays, not from the subscription's original
// billing day of month.
const resetPeriodDays = 30

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Catalog    *catalog.Holder
	Repo       domain.Repository
	LedgerSvc  ledgerdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	catalog    *catalog.Holder
	repo       domain.Repository
	ledgerSvc  ledgerdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("subscription.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		catalog:    p.Catalog,
		repo:       p.Repo,
		ledgerSvc:  p.LedgerSvc,
		obsMetrics: p.ObsMetrics,
	}
}

// Create applies a subscription-created event. Superseding any prior active
// subscription, inserting the new row and appending the ledger grant happen
// in one transaction; a redelivered event is detected inside that same
// transaction and commits nothing.
func (s *Service) Create(ctx context.Context, p domain.CreateParams) error {
	if strings.TrimSpace(p.UserID) == "" {
		return domain.ErrInvalidUser
	}
	if strings.TrimSpace(p.StripeSubscriptionID) == "" {
		return domain.ErrInvalidSubscriptionRef
	}

	plan, ok := s.catalog.Current().Plan(p.PlanID)
	if !ok {
		return domain.ErrUnknownPlan
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByStripeSubscriptionID(ctx, tx, p.StripeSubscriptionID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyApplied
		}

		now := s.clock.Now()
		actives, err := s.repo.FindActiveByUserID(ctx, tx, p.UserID)
		if err != nil {
			return err
		}
		for _, prior := range actives {
			if err := s.repo.Update(ctx, tx, prior.ID, map[string]any{
				"status":      domain.SubscriptionStatusCanceled,
				"canceled_at": now,
				"updated_at":  now,
			}); err != nil {
				return err
			}
		}

		periodStart, periodEnd := p.PeriodStart, p.PeriodEnd
		if periodStart.IsZero() {
			periodStart = now
		}
		if periodEnd.IsZero() {
			periodEnd = periodStart.AddDate(0, 0, resetPeriodDays)
		}

		sub := &domain.Subscription{
			ID:                            s.genID.Generate(),
			UserID:                        p.UserID,
			PlanID:                        plan.ID,
			Status:                        domain.SubscriptionStatusActive,
			MonthlyCredits:                plan.MonthlyCredits,
			CreditsUsedCurrentPeriod:      0,
			CreditsRemainingCurrentPeriod: plan.MonthlyCredits,
			BillingCycleStart:             periodStart,
			BillingCycleEnd:               periodEnd,
			NextResetAt:                   periodEnd,
			NextBillingAt:                 periodEnd,
			StripeSubscriptionID:          p.StripeSubscriptionID,
			StripePriceID:                 p.StripePriceID,
			PriceCents:                    plan.PriceCents,
			CreatedAt:                     now,
			UpdatedAt:                     now,
		}
		if err := s.repo.Insert(ctx, tx, sub); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyApplied
			}
			return err
		}

		_, err = s.ledgerSvc.Append(ctx, tx, ledgerdomain.Entry{
			UserID:        p.UserID,
			Type:          ledgerdomain.TransactionTypeSubscriptionCreated,
			CreditsChange: plan.MonthlyCredits,
			SourceType:    ledgerdomain.SourceTypeSubscription,
			SourceID:      sub.ID,
			Description:   "Monthly credits for " + plan.Name + " subscription",
			Metadata: map[string]any{
				"planId":               plan.ID,
				"stripeSubscriptionId": p.StripeSubscriptionID,
			},
		})
		return err
	})
	if errors.Is(err, domain.ErrAlreadyApplied) {
		s.log.Info("subscription already created, skipping",
			zap.String("stripe_subscription_id", p.StripeSubscriptionID))
		if s.obsMetrics != nil {
			s.obsMetrics.RecordIdempotencyHit(ctx, "subscription_created")
		}
		return nil
	}
	return err
}

// Reset applies a non-initial invoice payment: the period counters go back to
// the stored monthly grant and the cycle window advances by the fixed offset
// from now.
func (s *Service) Reset(ctx context.Context, stripeSubscriptionID string) error {
	if strings.TrimSpace(stripeSubscriptionID) == "" {
		return domain.ErrInvalidSubscriptionRef
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.repo.FindByStripeSubscriptionID(ctx, tx, stripeSubscriptionID)
		if err != nil {
			return err
		}
		if sub == nil {
			return domain.ErrSubscriptionNotFound
		}

		now := s.clock.Now()
		next := now.AddDate(0, 0, resetPeriodDays)
		if err := s.repo.Update(ctx, tx, sub.ID, map[string]any{
			"credits_used_current_period":      0,
			"credits_remaining_current_period": sub.MonthlyCredits,
			"billing_cycle_start":              now,
			"billing_cycle_end":                next,
			"next_reset_at":                    next,
			"next_billing_at":                  next,
			"updated_at":                       now,
		}); err != nil {
			return err
		}

		_, err = s.ledgerSvc.Append(ctx, tx, ledgerdomain.Entry{
			UserID:        sub.UserID,
			Type:          ledgerdomain.TransactionTypeSubscriptionReset,
			CreditsChange: sub.MonthlyCredits,
			SourceType:    ledgerdomain.SourceTypeSubscription,
			SourceID:      sub.ID,
			Description:   "Monthly credit reset",
			Metadata: map[string]any{
				"planId":               sub.PlanID,
				"stripeSubscriptionId": stripeSubscriptionID,
			},
		})
		return err
	})
}

// Expire applies a subscription-deleted event. No ledger row is written; the
// credits simply stop being granted.
func (s *Service) Expire(ctx context.Context, stripeSubscriptionID string) error {
	if strings.TrimSpace(stripeSubscriptionID) == "" {
		return domain.ErrInvalidSubscriptionRef
	}

	sub, err := s.repo.FindByStripeSubscriptionID(ctx, s.db, stripeSubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		return domain.ErrSubscriptionNotFound
	}

	now := s.clock.Now()
	return s.repo.Update(ctx, s.db, sub.ID, map[string]any{
		"status":      domain.SubscriptionStatusExpired,
		"canceled_at": now,
		"updated_at":  now,
	})
}

func (s *Service) ActiveForUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidUser
	}
	actives, err := s.repo.FindActiveByUserID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if len(actives) == 0 {
		return nil, nil
	}
	return actives[0], nil
}
