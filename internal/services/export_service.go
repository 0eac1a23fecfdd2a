package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

const (
	historySheet    = "Attempts"
	exportPageSize  = maxHistoryLimit
	maxExportedRows = 10000
)

var historyHeader = []interface{}{
	"Completed At", "Assessment", "Slug", "Score", "Passed",
	"Correct", "Questions", "Time Spent (s)", "Reward", "Session ID",
}

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

func (s *exportService) ExportHistory(ctx context.Context, userID string, filters repositories.RecordFilters) ([]byte, error) {
	s.logger.Info("Exporting attempt history", "user_id", userID)

	items, err := s.collectHistory(ctx, userID, filters)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Error("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(historySheet, "A1", &historyHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(historyHeader))
	if err := f.SetCellStyle(historySheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(historySheet, "A", lastCol, 18); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	for i, item := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			item.CompletedAt.UTC().Format(time.RFC3339),
			item.AssessmentName,
			item.AssessmentSlug,
			item.Score,
			item.Passed,
			item.CorrectCount,
			item.TotalQuestions,
			item.TimeSpent,
			item.RewardGranted,
			item.SessionID,
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Attempt history exported", "user_id", userID, "rows", len(items))
	return buf.Bytes(), nil
}

// collectHistory pages through the user's records up to maxExportedRows
func (s *exportService) collectHistory(ctx context.Context, userID string, filters repositories.RecordFilters) ([]AttemptHistoryItem, error) {
	filters.Limit = exportPageSize
	filters.Offset = 0

	var items []AttemptHistoryItem
	for len(items) < maxExportedRows {
		records, total, err := s.repo.Record().ListByUser(ctx, userID, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list attempt records: %w", err)
		}
		for _, record := range records {
			items = append(items, toHistoryItem(record))
		}
		if len(records) < filters.Limit || int64(len(items)) >= total {
			break
		}
		filters.Offset += len(records)
	}

	if len(items) > maxExportedRows {
		items = items[:maxExportedRows]
	}
	return items, nil
}
