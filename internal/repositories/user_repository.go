package repositories

import (
	"context"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
)

// UserRepository resolves learners from the identity provider (read-only).
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}
