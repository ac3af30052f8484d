package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

type CompletionPostgreSQL struct {
	db *gorm.DB
}

func NewCompletionPostgreSQL(db *gorm.DB) repositories.CompletionRepository {
	return &CompletionPostgreSQL{db: db}
}

func (c *CompletionPostgreSQL) CreateIfAbsent(ctx context.Context, completion *models.CourseCompletion) (bool, error) {
	result := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(completion)
	if result.Error != nil {
		if repositories.IsDuplicateKeyError(result.Error) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create completion: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (c *CompletionPostgreSQL) GetByLearnerCourse(ctx context.Context, learnerID, courseID string) (*models.CourseCompletion, error) {
	var completion models.CourseCompletion
	err := c.db.WithContext(ctx).
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		First(&completion).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &completion, nil
}

func (c *CompletionPostgreSQL) IncrementCompletedCourses(ctx context.Context, learnerID string) error {
	now := time.Now()
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "learner_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"completed_courses": gorm.Expr("learner_progress.completed_courses + 1"),
				"updated_at":        now,
			}),
		}).
		Create(&models.LearnerProgress{
			LearnerID:        learnerID,
			CompletedCourses: 1,
			UpdatedAt:        now,
		}).Error
}

func (c *CompletionPostgreSQL) GetLearnerProgress(ctx context.Context, learnerID string) (*models.LearnerProgress, error) {
	var progress models.LearnerProgress
	if err := c.db.WithContext(ctx).First(&progress, "learner_id = ?", learnerID).Error; err != nil {
		return nil, translateError(err)
	}
	return &progress, nil
}

type CertificatePostgreSQL struct {
	db *gorm.DB
}

func NewCertificatePostgreSQL(db *gorm.DB) repositories.CertificateRepository {
	return &CertificatePostgreSQL{db: db}
}

func (c *CertificatePostgreSQL) CreateIfAbsent(ctx context.Context, certificate *models.Certificate) (bool, error) {
	result := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(certificate)
	return certificateInsertResult(result.Error, result.RowsAffected)
}

// certificateInsertResult interprets a certificate insert. The conflict target
// absorbs an existing (learner, course) row, so a unique violation that still
// surfaces can only be a certificate id collision.
func certificateInsertResult(err error, rowsAffected int64) (bool, error) {
	if err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return false, fmt.Errorf("certificate id collision: %w", repositories.ErrDuplicateKey)
		}
		return false, fmt.Errorf("failed to create certificate: %w", err)
	}
	return rowsAffected == 1, nil
}

func (c *CertificatePostgreSQL) GetByLearnerCourse(ctx context.Context, learnerID, courseID string) (*models.Certificate, error) {
	var certificate models.Certificate
	err := c.db.WithContext(ctx).
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		First(&certificate).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &certificate, nil
}

// AutoMigrate creates or updates the tables owned by this service
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Attempt{},
		&models.CourseCompletion{},
		&models.LearnerProgress{},
		&models.Certificate{},
	)
}
