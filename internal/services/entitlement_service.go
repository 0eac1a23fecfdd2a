package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

type entitlementService struct {
	repo     repositories.Repository
	logger   *slog.Logger
	required bool
	now      func() time.Time
}

// NewEntitlementService checks the subscriptions table; with required=false everyone is entitled
func NewEntitlementService(repo repositories.Repository, logger *slog.Logger, required bool) EntitlementService {
	return &entitlementService{
		repo:     repo,
		logger:   logger,
		required: required,
		now:      time.Now,
	}
}

func (s *entitlementService) CanTakeAssessments(ctx context.Context, userID string) (bool, error) {
	if !s.required {
		return true, nil
	}

	subscription, err := s.repo.Subscription().GetActiveByUser(ctx, userID, s.now())
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Info("No active subscription", "user_id", userID)
			return false, nil
		}
		return false, fmt.Errorf("failed to get subscription: %w", err)
	}

	return subscription.IsActiveAt(s.now()), nil
}
