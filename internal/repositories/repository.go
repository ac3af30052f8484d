package repositories

import "context"

// Repository aggregates every store the assessment engine reads or writes.
type Repository interface {
	// Attempt domain
	Attempt() AttemptRepository

	// Completion domain
	Completion() CompletionRepository
	Certificate() CertificateRepository

	// Content domain (read-only, owned by the content service)
	Content() ContentRepository

	// Transaction support
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
