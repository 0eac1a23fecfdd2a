package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/attempt-service/internal/config"
	"github.com/SAP-F-2025/attempt-service/internal/events"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
	"github.com/SAP-F-2025/attempt-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Attempt AttemptServiceConfig

	// Entitlement
	RequireSubscription bool

	// Expiry sweeper; an empty schedule disables it
	SweepSchedule  string
	SweepBatchSize int

	DefaultTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	config    ServiceManagerConfig

	// Service instances
	attemptService     AttemptService
	entitlementService EntitlementService
	exportService      ExportService

	// Background jobs
	sweeper *ExpirySweeper

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ServiceManager {
	config := ServiceManagerConfig{
		Attempt: AttemptServiceConfig{
			GracePeriod: DefaultGracePeriod,
			Rewards:     DefaultRewardPolicy(),
		},
		RequireSubscription: true,
		SweepSchedule:       "@every 1m",
		SweepBatchSize:      defaultSweepBatchSize,
		DefaultTimeout:      30 * time.Second,
	}

	return NewServiceManager(repo, logger, validator, publisher, config)
}

// ServiceManagerConfigFrom maps the runtime configuration onto the service manager
func ServiceManagerConfigFrom(cfg *config.Config) ServiceManagerConfig {
	return ServiceManagerConfig{
		Attempt: AttemptServiceConfig{
			GracePeriod: cfg.Attempt.GracePeriod,
			Rewards:     NewRewardPolicy(cfg.Reward),
		},
		RequireSubscription: cfg.Attempt.RequireSubscription,
		SweepSchedule:       cfg.Attempt.SweepSchedule,
		SweepBatchSize:      cfg.Attempt.SweepBatchSize,
		DefaultTimeout:      30 * time.Second,
	}
}

// Initialize sets up all services and starts background jobs
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return err
	}

	sm.initializeServices()

	if sm.config.SweepSchedule != "" {
		sm.sweeper = NewExpirySweeper(sm.repo, sm.publisher, sm.logger, sm.config.SweepSchedule, sm.config.SweepBatchSize)
		if err := sm.sweeper.Start(); err != nil {
			return fmt.Errorf("failed to start expiry sweeper: %w", err)
		}
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() {
	sm.entitlementService = NewEntitlementService(sm.repo, sm.logger, sm.config.RequireSubscription)
	sm.logger.Info("Entitlement service initialized", "require_subscription", sm.config.RequireSubscription)

	sm.attemptService = NewAttemptService(sm.repo, sm.logger, sm.validator, sm.entitlementService, sm.publisher, sm.config.Attempt)
	sm.logger.Info("Attempt service initialized")

	sm.exportService = NewExportService(sm.repo, sm.logger)
	sm.logger.Info("Export service initialized")
}

// Service getters
func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.attemptService
}

func (sm *serviceManager) Entitlement() EntitlementService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.entitlementService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.exportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	ctx, cancel := context.WithTimeout(ctx, sm.config.DefaultTimeout)
	defer cancel()

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.sweeper != nil {
		sm.sweeper.Stop(ctx)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// ===== CONFIGURATION VALIDATION =====

// Validate validates the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var errors []string

	if config.DefaultTimeout <= 0 {
		errors = append(errors, "default timeout must be positive")
	}

	if config.Attempt.GracePeriod < 0 {
		errors = append(errors, "grace period cannot be negative")
	}

	if config.SweepBatchSize < 0 {
		errors = append(errors, "sweep batch size cannot be negative")
	}

	rewards := config.Attempt.Rewards
	for name, amount := range map[string]int{
		"pass reward":          rewards.PassReward,
		"tier bonus 90":        rewards.TierBonus90,
		"tier bonus 80":        rewards.TierBonus80,
		"tier bonus 70":        rewards.TierBonus70,
		"first completion":     rewards.FirstCompletion,
		"participation reward": rewards.ParticipationReward,
	} {
		if amount < 0 {
			errors = append(errors, fmt.Sprintf("%s cannot be negative", name))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}
