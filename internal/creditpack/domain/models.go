// Package domain contains persistence models for one-off credit packs.
package domain

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CreditPack is one purchased credit bundle.
//
// Invariant: for a given (user_id, stripe_payment_intent_id) pair at most one
// row ever exists. The pair is the idempotency key for pack purchases and is
// identical across both notification channels that can report the same
// purchase.
type CreditPack struct {
	ID     snowflake.ID `gorm:"primaryKey"`
	UserID string       `gorm:"type:text;not null;uniqueIndex:ux_credit_packs_user_payment_intent,priority:1"`
	PackID string       `gorm:"type:text;not null"`

	CreditsPurchased int64 `gorm:"not null"`
	CreditsUsed      int64 `gorm:"not null;default:0"`
	CreditsRemaining int64 `gorm:"not null"`

	PriceCents            int64  `gorm:"not null;default:0"`
	StripePaymentIntentID string `gorm:"type:text;not null;uniqueIndex:ux_credit_packs_user_payment_intent,priority:2"`

	PurchasedAt time.Time  `gorm:"not null"`
	ExpiresAt   *time.Time `gorm:""`
	IsActive    bool       `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditPack) TableName() string { return "credit_packs" }

// Expired reports whether the pack's validity window has passed.
func (p *CreditPack) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// PurchaseParams carries the fields consumed from a purchase notification.
// Both checkout-completed and payment-intent-succeeded funnel into the same
// apply operation with these parameters.
type PurchaseParams struct {
	UserID string
	PackID string
	// Credits comes from the event metadata, not from the catalog, so packs
	// sold under older catalog revisions settle at their sold quantity.
	Credits int64
	// ValidityDays is nil for packs that never expire.
	ValidityDays          *int
	StripePaymentIntentID string
	AmountCents           int64
}

// Service owns the credit pack lifecycle.
type Service interface {
	ApplyPurchase(ctx context.Context, p PurchaseParams) error
	ActiveForUser(ctx context.Context, userID string) ([]*CreditPack, error)
}

// Repository is the credit pack storage surface.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pack *CreditPack) error
	FindByUserAndPaymentIntent(ctx context.Context, db *gorm.DB, userID, stripePaymentIntentID string) (*CreditPack, error)
	FindActiveByUserID(ctx context.Context, db *gorm.DB, userID string) ([]*CreditPack, error)
}

// ConsumptionOrder sorts packs in the order their credits should be drawn
// down once subscription-period credits are exhausted: soonest expiry first,
// never-expiring packs last. Consumption itself happens in the image
// pipeline, not here.
func ConsumptionOrder(packs []*CreditPack) []*CreditPack {
	out := make([]*CreditPack, len(packs))
	copy(out, packs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ExpiresAt, out[j].ExpiresAt
		switch {
		case a == nil && b == nil:
			return out[i].PurchasedAt.Before(out[j].PurchasedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out
}
