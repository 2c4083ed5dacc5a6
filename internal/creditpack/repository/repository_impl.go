package repository

import (
	"context"
	"errors"

	"github.com/lumapix/lumapix/internal/creditpack/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, pack *domain.CreditPack) error {
	return db.WithContext(ctx).Create(pack).Error
}

func (r *repo) FindByUserAndPaymentIntent(ctx context.Context, db *gorm.DB, userID, stripePaymentIntentID string) (*domain.CreditPack, error) {
	var item domain.CreditPack
	err := db.WithContext(ctx).
		Where("user_id = ? AND stripe_payment_intent_id = ?", userID, stripePaymentIntentID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindActiveByUserID(ctx context.Context, db *gorm.DB, userID string) ([]*domain.CreditPack, error) {
	var items []*domain.CreditPack
	err := db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("purchased_at ASC").
		Find(&items).Error
	return items, err
}
