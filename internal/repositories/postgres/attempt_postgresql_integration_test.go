//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/attempt-service/internal/models"
)

// Run with: ATTEMPT_TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/repositories/postgres/
func openIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("ATTEMPT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ATTEMPT_TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.AutoMigrate(&models.AttemptSession{}, &models.RewardGrant{}, &models.UserPoints{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestAttemptSessionPostgreSQL_ConcurrentConsume(t *testing.T) {
	db := openIntegrationDB(t)
	repo := NewAttemptSessionPostgreSQL(db)
	ctx := context.Background()

	now := time.Now().UTC()
	session := &models.AttemptSession{
		ID:           fmt.Sprintf("it-%d", now.UnixNano()),
		UserID:       "it-user",
		AssessmentID: 1,
		QuestionIDs:  datatypes.JSON(`[1]`),
		StartedAt:    now,
		ExpiresAt:    now.Add(10 * time.Minute),
	}
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	t.Cleanup(func() { db.Delete(&models.AttemptSession{}, "id = ?", session.ID) })

	if rows, err := repo.Consume(ctx, session.ID, "someone-else", now); err != nil || rows != 0 {
		t.Fatalf("consume by another user = %d, %v; want 0, nil", rows, err)
	}

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := repo.Consume(ctx, session.ID, session.UserID, time.Now().UTC())
			if err != nil {
				t.Errorf("consume: %v", err)
				return
			}
			mu.Lock()
			winners += int(rows)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("%d consumes changed the row, want exactly 1", winners)
	}

	stored, err := repo.GetByID(ctx, session.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !stored.Used || stored.UsedAt == nil {
		t.Errorf("session not marked used: %+v", stored)
	}
}

func TestRewardPostgreSQL_ClaimAndIncrement(t *testing.T) {
	db := openIntegrationDB(t)
	repo := NewRewardPostgreSQL(db)
	ctx := context.Background()

	userID := fmt.Sprintf("it-user-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		db.Delete(&models.RewardGrant{}, "user_id = ?", userID)
		db.Delete(&models.UserPoints{}, "user_id = ?", userID)
	})

	first, err := repo.ClaimFirstCompletion(ctx, &models.RewardGrant{UserID: userID, AssessmentID: 7, SessionID: "s-1", Amount: 10})
	if err != nil || !first {
		t.Fatalf("first claim = %v, %v; want true, nil", first, err)
	}
	second, err := repo.ClaimFirstCompletion(ctx, &models.RewardGrant{UserID: userID, AssessmentID: 7, SessionID: "s-2", Amount: 10})
	if err != nil || second {
		t.Fatalf("second claim = %v, %v; want false, nil", second, err)
	}

	for _, amount := range []int{10, 5} {
		if err := repo.IncrementPoints(ctx, userID, amount); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	balance, err := repo.GetBalance(ctx, userID)
	if err != nil || balance != 15 {
		t.Fatalf("balance = %d, %v; want 15, nil", balance, err)
	}
}
