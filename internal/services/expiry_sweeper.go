package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/SAP-F-2025/attempt-service/internal/events"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

const (
	defaultSweepBatchSize = 200
	sweepTimeout          = 2 * time.Minute
)

// ExpirySweeper reports sessions that ran out of time without a submission.
// Sessions stay unused; only the audit marker is set, once per session.
type ExpirySweeper struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	schedule  string
	batchSize int
	now       func() time.Time

	cron *cron.Cron
}

func NewExpirySweeper(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, schedule string, batchSize int) *ExpirySweeper {
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &ExpirySweeper{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		schedule:  schedule,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Start registers the sweep on its cron schedule
func (s *ExpirySweeper) Start() error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn))
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger)))

	_, err := c.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("Expiry sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron = c
	c.Start()
	s.logger.Info("Expiry sweeper started", "schedule", s.schedule, "batch_size", s.batchSize)
	return nil
}

// Stop waits for a running sweep to finish or for ctx to expire
func (s *ExpirySweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Expiry sweeper stopped")
	case <-ctx.Done():
		s.logger.Warn("Expiry sweeper stop timed out")
	}
}

// RunOnce reports one batch of expired sessions and returns how many were reported
func (s *ExpirySweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.now().UTC()

	sessions, err := s.repo.Session().ListExpiredUnreported(ctx, now, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired sessions: %w", err)
	}

	reported := 0
	for _, session := range sessions {
		marked, err := s.repo.Session().MarkExpiryReported(ctx, session.ID, now)
		if err != nil {
			s.logger.Error("Failed to mark session expired", "session_id", session.ID, "error", err)
			continue
		}
		// another instance got there first, or the session was submitted meanwhile
		if !marked {
			continue
		}

		reported++
		event := events.NewEvent(events.TopicAttemptExpired, events.AttemptExpiredEvent{
			SessionID:    session.ID,
			UserID:       session.UserID,
			AssessmentID: session.AssessmentID,
			ExpiresAt:    session.ExpiresAt,
			ReportedAt:   now,
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("Failed to publish expiry event", "session_id", session.ID, "error", err)
		}
	}

	if reported > 0 {
		s.logger.Info("Expired attempt sessions reported", "count", reported)
	}
	return reported, nil
}
