// Package domain contains the checkout-session tracking record. The record
// is UX/audit state only; credits are never derived from it.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusCompleted SessionStatus = "completed"
)

// SessionPurpose distinguishes what a checkout session was opened for.
type SessionPurpose string

const (
	SessionPurposeCreditPack   SessionPurpose = "credit_pack"
	SessionPurposeSubscription SessionPurpose = "subscription"
)

// CheckoutSession maps a Stripe checkout session to its local status.
type CheckoutSession struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	StripeSessionID string         `gorm:"type:text;not null;uniqueIndex:ux_checkout_sessions_stripe_session_id"`
	UserID          string         `gorm:"type:text;not null;index"`
	Purpose         SessionPurpose `gorm:"type:text;not null"`
	Status          SessionStatus  `gorm:"type:text;not null"`
	CompletedAt     *time.Time     `gorm:""`
	CreatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CheckoutSession) TableName() string { return "checkout_sessions" }

// Service tracks checkout sessions.
type Service interface {
	// Track records a newly opened session. Called by the checkout
	// initiation flow.
	Track(ctx context.Context, stripeSessionID, userID string, purpose SessionPurpose) error
	// MarkCompleted flips the session to completed. A missing session is
	// reported via found=false, not as an error.
	MarkCompleted(ctx context.Context, stripeSessionID string) (found bool, err error)
}

// Repository is the checkout session storage surface.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, session *CheckoutSession) error
	FindByStripeSessionID(ctx context.Context, db *gorm.DB, stripeSessionID string) (*CheckoutSession, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
}
