package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/attempt-service/internal/models"
)

// statementRecorder sits after gorm's create and update callbacks of a dry-run
// connection. It keeps the rendered SQL and plays the database's part for
// RowsAffected and errors.
type statementRecorder struct {
	statements   []string
	rowsAffected func(tx *gorm.DB) int64
	err          error
}

func (r *statementRecorder) record(tx *gorm.DB) {
	r.statements = append(r.statements, tx.Dialector.Explain(tx.Statement.SQL.String(), tx.Statement.Vars...))
	if r.err != nil {
		tx.AddError(r.err)
		return
	}
	if r.rowsAffected != nil {
		tx.RowsAffected = r.rowsAffected(tx)
	}
}

func (r *statementRecorder) last(t *testing.T) string {
	t.Helper()
	if len(r.statements) == 0 {
		t.Fatal("no statement was built")
	}
	return r.statements[len(r.statements)-1]
}

func newDryRunDB(t *testing.T) (*gorm.DB, *statementRecorder) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=attempt dbname=attempt sslmode=disable",
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}

	recorder := &statementRecorder{}
	if err := db.Callback().Update().After("gorm:update").Register("test:record_update", recorder.record); err != nil {
		t.Fatalf("register update callback: %v", err)
	}
	if err := db.Callback().Create().After("gorm:create").Register("test:record_create", recorder.record); err != nil {
		t.Fatalf("register create callback: %v", err)
	}
	return db, recorder
}

func TestAttemptSessionPostgreSQL_ConsumeStatement(t *testing.T) {
	db, recorder := newDryRunDB(t)
	repo := NewAttemptSessionPostgreSQL(db)
	usedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, err := repo.Consume(context.Background(), "sess-1", "user-1", usedAt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sql := recorder.last(t)
	for _, fragment := range []string{
		`UPDATE "attempt_sessions" SET`,
		`"used"=true`,
		`"used_at"=`,
		`id = 'sess-1' AND user_id = 'user-1' AND used = false`,
	} {
		if !strings.Contains(sql, fragment) {
			t.Errorf("consume statement missing %q:\n%s", fragment, sql)
		}
	}
}

func TestAttemptSessionPostgreSQL_ConsumeRowsAffected(t *testing.T) {
	db, recorder := newDryRunDB(t)
	repo := NewAttemptSessionPostgreSQL(db)
	ctx := context.Background()

	// the first update flips the row, any later one finds used = true and matches nothing
	updates := 0
	recorder.rowsAffected = func(*gorm.DB) int64 {
		updates++
		if updates == 1 {
			return 1
		}
		return 0
	}

	first, err := repo.Consume(ctx, "sess-1", "user-1", time.Now())
	if err != nil || first != 1 {
		t.Fatalf("first consume = %d, %v; want 1, nil", first, err)
	}
	second, err := repo.Consume(ctx, "sess-1", "user-1", time.Now())
	if err != nil || second != 0 {
		t.Fatalf("second consume = %d, %v; want 0, nil", second, err)
	}
}

func TestAttemptSessionPostgreSQL_ConsumeError(t *testing.T) {
	db, recorder := newDryRunDB(t)
	recorder.err = errors.New("connection reset")
	repo := NewAttemptSessionPostgreSQL(db)

	rows, err := repo.Consume(context.Background(), "sess-1", "user-1", time.Now())
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
	if rows != 0 {
		t.Errorf("rows = %d, want 0 on error", rows)
	}
}

func TestAttemptSessionPostgreSQL_MarkExpiryReported(t *testing.T) {
	db, recorder := newDryRunDB(t)
	repo := NewAttemptSessionPostgreSQL(db)
	ctx := context.Background()

	recorder.rowsAffected = func(*gorm.DB) int64 { return 1 }
	marked, err := repo.MarkExpiryReported(ctx, "sess-9", time.Now())
	if err != nil || !marked {
		t.Fatalf("MarkExpiryReported = %v, %v; want true, nil", marked, err)
	}
	sql := recorder.last(t)
	if !strings.Contains(sql, `id = 'sess-9' AND used = false AND expiry_reported_at IS NULL`) {
		t.Errorf("marker must only apply to unused, unreported sessions:\n%s", sql)
	}

	recorder.rowsAffected = func(*gorm.DB) int64 { return 0 }
	marked, err = repo.MarkExpiryReported(ctx, "sess-9", time.Now())
	if err != nil || marked {
		t.Fatalf("second mark = %v, %v; want false, nil", marked, err)
	}
}

func TestRewardPostgreSQL_ClaimFirstCompletion(t *testing.T) {
	db, recorder := newDryRunDB(t)
	repo := NewRewardPostgreSQL(db)
	ctx := context.Background()

	// unique (user_id, assessment_id): a repeated pair inserts nothing
	claimed := map[string]bool{}
	recorder.rowsAffected = func(tx *gorm.DB) int64 {
		grant, ok := tx.Statement.Dest.(*models.RewardGrant)
		if !ok {
			t.Fatalf("unexpected dest %T", tx.Statement.Dest)
		}
		key := fmt.Sprintf("%s/%d", grant.UserID, grant.AssessmentID)
		if claimed[key] {
			return 0
		}
		claimed[key] = true
		return 1
	}

	first, err := repo.ClaimFirstCompletion(ctx, &models.RewardGrant{UserID: "user-1", AssessmentID: 3, SessionID: "sess-1", Amount: 105})
	if err != nil || !first {
		t.Fatalf("first claim = %v, %v; want true, nil", first, err)
	}

	sql := recorder.last(t)
	for _, fragment := range []string{
		`INSERT INTO "reward_grants"`,
		`ON CONFLICT ("user_id","assessment_id") DO NOTHING`,
	} {
		if !strings.Contains(sql, fragment) {
			t.Errorf("claim statement missing %q:\n%s", fragment, sql)
		}
	}

	second, err := repo.ClaimFirstCompletion(ctx, &models.RewardGrant{UserID: "user-1", AssessmentID: 3, SessionID: "sess-2", Amount: 105})
	if err != nil || second {
		t.Fatalf("second claim = %v, %v; want false, nil", second, err)
	}

	other, err := repo.ClaimFirstCompletion(ctx, &models.RewardGrant{UserID: "user-1", AssessmentID: 4, SessionID: "sess-3", Amount: 5})
	if err != nil || !other {
		t.Fatalf("claim on another assessment = %v, %v; want true, nil", other, err)
	}
}

func TestRewardPostgreSQL_IncrementPoints(t *testing.T) {
	db, recorder := newDryRunDB(t)
	repo := NewRewardPostgreSQL(db)
	ctx := context.Background()

	if err := repo.IncrementPoints(ctx, "user-1", 105); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sql := recorder.last(t)
	for _, fragment := range []string{
		`INSERT INTO "user_points"`,
		`ON CONFLICT ("user_id") DO UPDATE SET`,
		`"points"=user_points.points + 105`,
	} {
		if !strings.Contains(sql, fragment) {
			t.Errorf("increment statement missing %q:\n%s", fragment, sql)
		}
	}

	for _, amount := range []int{0, -5} {
		if err := repo.IncrementPoints(ctx, "user-1", amount); err == nil {
			t.Errorf("amount %d should be rejected", amount)
		}
	}
	if len(recorder.statements) != 1 {
		t.Errorf("rejected amounts must not reach the database, got %d statements", len(recorder.statements))
	}
}
