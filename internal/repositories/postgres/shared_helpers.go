package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

const pgUniqueViolation = "23505"

// translateError maps driver errors onto repository sentinels
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", repositories.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", repositories.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// applyRecordFilters applies common filters to attempt record queries
func applyRecordFilters(query *gorm.DB, filters repositories.RecordFilters) *gorm.DB {
	if filters.AssessmentID != nil {
		query = query.Where("assessment_id = ?", *filters.AssessmentID)
	}
	if filters.Passed != nil {
		query = query.Where("passed = ?", *filters.Passed)
	}
	if filters.DateFrom != nil {
		query = query.Where("completed_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("completed_at <= ?", *filters.DateTo)
	}
	return query
}

// applyRecordPaginationAndSort only accepts whitelisted sort columns
func applyRecordPaginationAndSort(query *gorm.DB, filters repositories.RecordFilters) *gorm.DB {
	sortBy := "completed_at"
	switch filters.SortBy {
	case "score", "completed_at", "time_spent":
		sortBy = filters.SortBy
	}
	sortOrder := "DESC"
	if filters.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).Order("id DESC")

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
