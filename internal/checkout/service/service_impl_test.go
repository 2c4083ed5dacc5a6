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

	"github.com/lumapix/lumapix/internal/checkout/domain"
	checkoutrepo "github.com/lumapix/lumapix/internal/checkout/repository"
	checkoutservice "github.com/lumapix/lumapix/internal/checkout/service"
	"github.com/lumapix/lumapix/internal/clock"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE checkout_sessions (
			id BIGINT PRIMARY KEY,
			stripe_session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			purpose TEXT NOT NULL,
			status TEXT NOT NULL,
			completed_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_checkout_sessions_stripe_session_id ON checkout_sessions(stripe_session_id)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newCheckout(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(13)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	svc := checkoutservice.NewService(checkoutservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  checkoutrepo.Provide(),
	})
	return svc, db
}

func TestTrackIsIdempotentPerSession(t *testing.T) {
	ctx := context.Background()
	svc, db := newCheckout(t)

	for i := 0; i < 2; i++ {
		if err := svc.Track(ctx, "cs_1", "user_1", domain.SessionPurposeCreditPack); err != nil {
			t.Fatalf("track %d: %v", i, err)
		}
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM checkout_sessions`).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 session, got %d", count)
	}
}

func TestTrackValidatesInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCheckout(t)

	if err := svc.Track(ctx, "", "user_1", domain.SessionPurposeCreditPack); !errors.Is(err, domain.ErrInvalidSessionRef) {
		t.Fatalf("expected ErrInvalidSessionRef, got %v", err)
	}
	if err := svc.Track(ctx, "cs_1", "  ", domain.SessionPurposeSubscription); !errors.Is(err, domain.ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
}

func TestMarkCompletedFlipsStatus(t *testing.T) {
	ctx := context.Background()
	svc, db := newCheckout(t)

	if err := svc.Track(ctx, "cs_1", "user_1", domain.SessionPurposeCreditPack); err != nil {
		t.Fatalf("track: %v", err)
	}

	found, err := svc.MarkCompleted(ctx, "cs_1")
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if !found {
		t.Fatal("expected session to be found")
	}

	var status string
	if err := db.Raw(`SELECT status FROM checkout_sessions WHERE stripe_session_id = 'cs_1'`).Scan(&status).Error; err != nil {
		t.Fatalf("query status: %v", err)
	}
	if status != string(domain.SessionStatusCompleted) {
		t.Fatalf("expected completed, got %s", status)
	}
}

func TestMarkCompletedReportsMissingSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCheckout(t)

	found, err := svc.MarkCompleted(ctx, "cs_unknown")
	if err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if found {
		t.Fatal("expected session to be missing")
	}
}
