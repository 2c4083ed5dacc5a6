package scheduler_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumapix/lumapix/internal/clock"
	creditpackdomain "github.com/lumapix/lumapix/internal/creditpack/domain"
	"github.com/lumapix/lumapix/internal/scheduler"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.Exec(`CREATE TABLE credit_packs (
		id BIGINT PRIMARY KEY,
		user_id TEXT NOT NULL,
		pack_id TEXT NOT NULL,
		credits_purchased BIGINT NOT NULL,
		credits_used BIGINT NOT NULL DEFAULT 0,
		credits_remaining BIGINT NOT NULL,
		price_cents BIGINT NOT NULL DEFAULT 0,
		stripe_payment_intent_id TEXT NOT NULL,
		purchased_at DATETIME NOT NULL,
		expires_at DATETIME,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func seedPack(t *testing.T, db *gorm.DB, node *snowflake.Node, intent string, expiresAt *time.Time) {
	t.Helper()

	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	pack := &creditpackdomain.CreditPack{
		ID:                    node.Generate(),
		UserID:                "user_1",
		PackID:                "starter",
		CreditsPurchased:      100,
		CreditsRemaining:      100,
		StripePaymentIntentID: intent,
		PurchasedAt:           now,
		ExpiresAt:             expiresAt,
		IsActive:              true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := db.Create(pack).Error; err != nil {
		t.Fatalf("seed pack: %v", err)
	}
}

func TestRunOnceDeactivatesExpiredPacks(t *testing.T) {
	db := setupTestDB(t)

	node, err := snowflake.NewNode(12)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 30)

	seedPack(t, db, node, "pi_expired", &past)
	seedPack(t, db, node, "pi_future", &future)
	seedPack(t, db, node, "pi_eternal", nil)

	sched, err := scheduler.New(scheduler.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(now),
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	swept, err := sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if swept != 1 {
		t.Fatalf("expected 1 pack swept, got %d", swept)
	}

	var active int64
	if err := db.Raw(`SELECT COUNT(*) FROM credit_packs WHERE is_active`).Scan(&active).Error; err != nil {
		t.Fatalf("count active: %v", err)
	}
	if active != 2 {
		t.Fatalf("expected 2 active packs, got %d", active)
	}

	var inactiveIntent string
	if err := db.Raw(`SELECT stripe_payment_intent_id FROM credit_packs WHERE NOT is_active`).Scan(&inactiveIntent).Error; err != nil {
		t.Fatalf("find inactive: %v", err)
	}
	if inactiveIntent != "pi_expired" {
		t.Fatalf("expected pi_expired to be deactivated, got %s", inactiveIntent)
	}
}

func TestRunOnceIsStableWhenNothingExpired(t *testing.T) {
	db := setupTestDB(t)

	node, err := snowflake.NewNode(12)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	seedPack(t, db, node, "pi_eternal", nil)

	sched, err := scheduler.New(scheduler.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	for i := 0; i < 2; i++ {
		swept, err := sched.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if swept != 0 {
			t.Fatalf("run %d: expected 0 swept, got %d", i, swept)
		}
	}
}
