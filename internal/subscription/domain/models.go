// Package domain contains persistence models for user subscriptions.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

// Subscription is one subscription lifecycle for a user. Rows are never hard
// deleted; superseded rows stay behind with status canceled.
//
// Invariant: at most one row per user has status active. Creating a new
// active subscription cancels any prior active one in the same transaction.
type Subscription struct {
	ID     snowflake.ID       `gorm:"primaryKey"`
	UserID string             `gorm:"type:text;not null;index"`
	PlanID string             `gorm:"type:text;not null"`
	Status SubscriptionStatus `gorm:"type:text;not null;index"`

	// MonthlyCredits is copied from the plan at creation time and never
	// re-read from the catalog afterwards.
	MonthlyCredits                int64 `gorm:"not null"`
	CreditsUsedCurrentPeriod      int64 `gorm:"not null;default:0"`
	CreditsRemainingCurrentPeriod int64 `gorm:"not null;default:0"`

	BillingCycleStart time.Time `gorm:"not null"`
	BillingCycleEnd   time.Time `gorm:"not null"`
	NextResetAt       time.Time `gorm:"not null"`
	NextBillingAt     time.Time `gorm:"not null"`

	StripeSubscriptionID string `gorm:"type:text;not null;uniqueIndex:ux_subscriptions_stripe_subscription_id"`
	StripePriceID        string `gorm:"type:text"`
	PriceCents           int64  `gorm:"not null;default:0"`

	CreatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	CanceledAt *time.Time `gorm:""`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// CreateParams carries the fields consumed from a subscription-created event.
type CreateParams struct {
	UserID               string
	PlanID               string
	StripeSubscriptionID string
	StripePriceID        string
	// PeriodStart/PeriodEnd come from the event's billing-interval data; zero
	// values fall back to the fixed reset offset from now.
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Service is the subscription state machine.
type Service interface {
	Create(ctx context.Context, p CreateParams) error
	Reset(ctx context.Context, stripeSubscriptionID string) error
	Expire(ctx context.Context, stripeSubscriptionID string) error
	ActiveForUser(ctx context.Context, userID string) (*Subscription, error)
}

// Repository is the subscription storage surface.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByStripeSubscriptionID(ctx context.Context, db *gorm.DB, stripeSubscriptionID string) (*Subscription, error)
	FindActiveByUserID(ctx context.Context, db *gorm.DB, userID string) ([]*Subscription, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
}
