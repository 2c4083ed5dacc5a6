package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lumapix/lumapix/internal/clock"
	"github.com/lumapix/lumapix/internal/ledger/domain"
	obsmetrics "github.com/lumapix/lumapix/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

// Append validates the entry, computes the running balance inside the
// caller's transaction and inserts one immutable row. The caller owns commit
// and rollback; Append never opens its own transaction.
func (s *Service) Append(ctx context.Context, tx *gorm.DB, e domain.Entry) (*domain.CreditTransaction, error) {
	if strings.TrimSpace(e.UserID) == "" {
		return nil, domain.ErrInvalidUser
	}
	switch e.Type {
	case domain.TransactionTypeSubscriptionCreated,
		domain.TransactionTypeSubscriptionReset,
		domain.TransactionTypePackPurchase,
		domain.TransactionTypeUsage:
	default:
		return nil, domain.ErrInvalidTransactionType
	}
	switch e.SourceType {
	case domain.SourceTypeSubscription, domain.SourceTypeCreditPack:
	default:
		return nil, domain.ErrInvalidSource
	}
	if e.SourceID == 0 {
		return nil, domain.ErrInvalidSource
	}
	if e.CreditsChange == 0 {
		return nil, domain.ErrZeroCreditsChange
	}

	balance, err := s.repo.SumByUser(ctx, tx, e.UserID)
	if err != nil {
		return nil, err
	}

	txn := &domain.CreditTransaction{
		ID:            s.genID.Generate(),
		UserID:        e.UserID,
		Type:          e.Type,
		CreditsChange: e.CreditsChange,
		BalanceAfter:  balance + e.CreditsChange,
		SourceType:    e.SourceType,
		SourceID:      e.SourceID,
		Description:   e.Description,
		Metadata:      datatypes.JSONMap(e.Metadata),
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, txn); err != nil {
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordLedgerEntry(ctx, string(e.Type))
	}
	return txn, nil
}

func (s *Service) UserBalance(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, domain.ErrInvalidUser
	}
	return s.repo.SumByUser(ctx, s.db, userID)
}

func (s *Service) History(ctx context.Context, userID string) ([]*domain.CreditTransaction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidUser
	}
	return s.repo.ListByUser(ctx, s.db, userID)
}
