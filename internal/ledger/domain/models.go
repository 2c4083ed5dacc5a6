// Package domain contains the append-only credit ledger model. Rows are never
// updated or deleted; the ledger is the audit trail for every credit-affecting
// event and its per-user sum must reconcile with the denormalized balance
// fields on subscriptions and credit packs.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TransactionType classifies what produced a ledger row.
type TransactionType string

const (
	TransactionTypeSubscriptionCreated TransactionType = "subscription_created"
	TransactionTypeSubscriptionReset   TransactionType = "subscription_reset"
	TransactionTypePackPurchase        TransactionType = "pack_purchase"
	TransactionTypeUsage               TransactionType = "usage"
)

// SourceType identifies the record a ledger row points at.
type SourceType string

const (
	SourceTypeSubscription SourceType = "subscription"
	SourceTypeCreditPack   SourceType = "credit_pack"
)

// CreditTransaction is one immutable ledger row.
type CreditTransaction struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	UserID        string            `gorm:"type:text;not null;index"`
	Type          TransactionType   `gorm:"type:text;not null"`
	CreditsChange int64             `gorm:"not null"`
	BalanceAfter  int64             `gorm:"not null"`
	SourceType    SourceType        `gorm:"type:text;not null"`
	SourceID      snowflake.ID      `gorm:"not null;index"`
	Description   string            `gorm:"type:text"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditTransaction) TableName() string { return "credit_transactions" }

// Entry is the write request for one ledger row.
type Entry struct {
	UserID        string
	Type          TransactionType
	CreditsChange int64
	SourceType    SourceType
	SourceID      snowflake.ID
	Description   string
	Metadata      map[string]any
}

// Service appends ledger rows and answers balance queries.
type Service interface {
	// Append writes one ledger row using the caller's transaction handle so
	// the row commits atomically with the caller's other writes.
	Append(ctx context.Context, tx *gorm.DB, e Entry) (*CreditTransaction, error)
	UserBalance(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, userID string) ([]*CreditTransaction, error)
}

// Repository is the ledger storage surface.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, txn *CreditTransaction) error
	SumByUser(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]*CreditTransaction, error)
}
