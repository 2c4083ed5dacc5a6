package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumapix/lumapix/internal/clock"
	"github.com/lumapix/lumapix/internal/ledger/domain"
	ledgerrepo "github.com/lumapix/lumapix/internal/ledger/repository"
	ledgerservice "github.com/lumapix/lumapix/internal/ledger/service"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.Exec(`CREATE TABLE credit_transactions (
		id BIGINT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		credits_change BIGINT NOT NULL,
		balance_after BIGINT NOT NULL,
		source_type TEXT NOT NULL,
		source_id BIGINT NOT NULL,
		description TEXT,
		metadata TEXT,
		created_at DATETIME NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func newLedger(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(11)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	svc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  ledgerrepo.Provide(),
	})
	return svc, db, node
}

func TestAppendTracksRunningBalance(t *testing.T) {
	ctx := context.Background()
	svc, db, node := newLedger(t)

	first, err := svc.Append(ctx, db, domain.Entry{
		UserID:        "user_1",
		Type:          domain.TransactionTypeSubscriptionCreated,
		CreditsChange: 100,
		SourceType:    domain.SourceTypeSubscription,
		SourceID:      node.Generate(),
	})
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	if first.BalanceAfter != 100 {
		t.Fatalf("expected balance 100, got %d", first.BalanceAfter)
	}

	second, err := svc.Append(ctx, db, domain.Entry{
		UserID:        "user_1",
		Type:          domain.TransactionTypeUsage,
		CreditsChange: -30,
		SourceType:    domain.SourceTypeSubscription,
		SourceID:      node.Generate(),
	})
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if second.BalanceAfter != 70 {
		t.Fatalf("expected balance 70, got %d", second.BalanceAfter)
	}

	balance, err := svc.UserBalance(ctx, "user_1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 70 {
		t.Fatalf("expected balance 70, got %d", balance)
	}
}

func TestBalancesAreScopedPerUser(t *testing.T) {
	ctx := context.Background()
	svc, db, node := newLedger(t)

	for _, user := range []string{"user_a", "user_b"} {
		_, err := svc.Append(ctx, db, domain.Entry{
			UserID:        user,
			Type:          domain.TransactionTypePackPurchase,
			CreditsChange: 50,
			SourceType:    domain.SourceTypeCreditPack,
			SourceID:      node.Generate(),
		})
		if err != nil {
			t.Fatalf("append for %s: %v", user, err)
		}
	}

	balance, err := svc.UserBalance(ctx, "user_a")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 50 {
		t.Fatalf("expected 50, got %d", balance)
	}

	empty, err := svc.UserBalance(ctx, "user_none")
	if err != nil {
		t.Fatalf("balance for unknown user: %v", err)
	}
	if empty != 0 {
		t.Fatalf("expected 0 for unknown user, got %d", empty)
	}
}

func TestAppendValidation(t *testing.T) {
	ctx := context.Background()
	svc, db, node := newLedger(t)

	cases := []struct {
		name  string
		entry domain.Entry
		want  error
	}{
		{
			name:  "missing user",
			entry: domain.Entry{Type: domain.TransactionTypeUsage, CreditsChange: -1, SourceType: domain.SourceTypeSubscription, SourceID: node.Generate()},
			want:  domain.ErrInvalidUser,
		},
		{
			name:  "missing type",
			entry: domain.Entry{UserID: "u", CreditsChange: 1, SourceType: domain.SourceTypeSubscription, SourceID: node.Generate()},
			want:  domain.ErrInvalidTransactionType,
		},
		{
			name:  "zero change",
			entry: domain.Entry{UserID: "u", Type: domain.TransactionTypeUsage, SourceType: domain.SourceTypeSubscription, SourceID: node.Generate()},
			want:  domain.ErrZeroCreditsChange,
		},
		{
			name:  "missing source",
			entry: domain.Entry{UserID: "u", Type: domain.TransactionTypeUsage, CreditsChange: -1},
			want:  domain.ErrInvalidSource,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Append(ctx, db, tc.entry); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
