package repositories

import "context"

// Repository aggregates every repository the attempt service needs
type Repository interface {
	// Authored content (read-only)
	Assessment() AssessmentRepository
	Question() QuestionRepository

	// Attempt lifecycle
	Session() AttemptSessionRepository
	Record() AttemptRecordRepository

	// Rewards and entitlement
	Reward() RewardRepository
	Subscription() SubscriptionRepository

	// User domain (read-only, backed by the identity provider)
	User() UserRepository

	// WithTransaction runs fn against repositories bound to a single transaction.
	// Returning an error rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
