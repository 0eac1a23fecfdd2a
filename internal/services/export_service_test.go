package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/attempt-service/internal/models"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

func seedRecords(store *memoryStore, userID string, assessmentID uint, n int) {
	completed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		store.nextRecordID++
		store.records = append(store.records, &models.AttemptRecord{
			ID:             store.nextRecordID,
			UserID:         userID,
			AssessmentID:   assessmentID,
			SessionID:      "session-" + key(store.nextRecordID),
			Score:          100 - i,
			CorrectCount:   1,
			TotalQuestions: 1,
			Passed:         true,
			CompletedAt:    completed.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestExportService_ExportHistory(t *testing.T) {
	store := newMemoryStore()
	store.addAssessment(&models.Assessment{ID: 1, Slug: "arithmetic", Name: "Arithmetic", PassScore: 70, TimeLimitMinutes: 10})
	seedRecords(store, "user-1", 1, 3)
	seedRecords(store, "user-2", 1, 2)

	service := NewExportService(newMockRepository(store), newTestLogger())

	data, err := service.ExportHistory(context.Background(), "user-1", repositories.RecordFilters{})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("workbook does not open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(historySheet)
	if err != nil {
		t.Fatalf("sheet missing: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header and 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Completed At" || rows[0][len(rows[0])-1] != "Session ID" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "Arithmetic" || rows[1][2] != "arithmetic" || rows[1][3] != "100" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[1][0] != "2025-03-01T12:00:00Z" {
		t.Errorf("completed at not RFC3339: %q", rows[1][0])
	}
}

func TestExportService_PagesThroughHistory(t *testing.T) {
	store := newMemoryStore()
	store.addAssessment(&models.Assessment{ID: 1, Slug: "arithmetic", Name: "Arithmetic", PassScore: 70, TimeLimitMinutes: 10})
	seedRecords(store, "user-1", 1, exportPageSize+5)

	service := &exportService{repo: newMockRepository(store), logger: newTestLogger()}

	items, err := service.collectHistory(context.Background(), "user-1", repositories.RecordFilters{Limit: 1, Offset: 50})
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(items) != exportPageSize+5 {
		t.Errorf("expected every record, got %d", len(items))
	}
}

func TestExportService_EmptyHistory(t *testing.T) {
	service := NewExportService(newMockRepository(newMemoryStore()), newTestLogger())

	data, err := service.ExportHistory(context.Background(), "nobody", repositories.RecordFilters{})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("workbook does not open: %v", err)
	}
	defer f.Close()

	rows, _ := f.GetRows(historySheet)
	if len(rows) != 1 {
		t.Errorf("expected only the header, got %d rows", len(rows))
	}
}

func TestExportService_ListError(t *testing.T) {
	store := newMemoryStore()
	store.listErr = errors.New("database unavailable")
	service := NewExportService(newMockRepository(store), newTestLogger())

	if _, err := service.ExportHistory(context.Background(), "user-1", repositories.RecordFilters{}); err == nil {
		t.Fatal("expected error")
	}
}
