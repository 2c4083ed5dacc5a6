package repository

import (
	"context"

	"github.com/lumapix/lumapix/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, txn *domain.CreditTransaction) error {
	return db.WithContext(ctx).Create(txn).Error
}

func (r *repo) SumByUser(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var sum *int64
	err := db.WithContext(ctx).Raw(
		`SELECT SUM(credits_change) FROM credit_transactions WHERE user_id = ?`,
		userID,
	).Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]*domain.CreditTransaction, error) {
	var items []*domain.CreditTransaction
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}
