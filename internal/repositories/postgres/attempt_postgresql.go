package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

type AttemptPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(),
	}
}

func (a *AttemptPostgreSQL) CreateIfAbsent(ctx context.Context, attempt *models.Attempt) (bool, error) {
	result := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(attempt)
	if result.Error != nil {
		if repositories.IsDuplicateKeyError(result.Error) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create attempt: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (a *AttemptPostgreSQL) GetLatestByKey(ctx context.Context, attemptKey string) (*models.Attempt, error) {
	var attempt models.Attempt
	err := a.db.WithContext(ctx).
		Where("attempt_key = ?", attemptKey).
		Order("attempt_number DESC").
		First(&attempt).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetLatestByAttemptID(ctx context.Context, attemptID string) (*models.Attempt, error) {
	var attempt models.Attempt
	err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("attempt_number DESC").
		First(&attempt).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) ApplySubmission(ctx context.Context, id uint, submission *repositories.AttemptSubmission) (*models.Attempt, error) {
	gradeExpr, gradeArgs := a.helpers.BestGradeExpr(submission.Percent)

	var updated []models.Attempt
	result := a.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":             models.AttemptSubmitted,
			"module_name":       submission.ModuleName,
			"submitted_at":      submission.SubmittedAt,
			"elapsed_seconds":   submission.ElapsedSeconds,
			"questions":         datatypes.JSONSlice[models.QuestionResult](submission.Questions),
			"breakdown_by_type": datatypes.NewJSONType(submission.Breakdown),
			"score_earned":      submission.ScoreEarned,
			"score_total":       submission.ScoreTotal,
			"correct_count":     submission.CorrectCount,
			"incorrect_count":   submission.IncorrectCount,
			"skipped_count":     submission.SkippedCount,
			"percent":           submission.Percent,
			"letter_grade":      submission.LetterGrade,
			"best_percent":      gorm.Expr("GREATEST(best_percent, ?)", submission.Percent),
			"best_score_earned": gorm.Expr("GREATEST(best_score_earned, ?)", submission.ScoreEarned),
			"best_letter_grade": gorm.Expr(gradeExpr, gradeArgs...),
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to apply submission: %w", result.Error)
	}
	if result.RowsAffected == 0 || len(updated) == 0 {
		return nil, repositories.ErrNotFound
	}

	return &updated[0], nil
}

func (a *AttemptPostgreSQL) LatestByModule(ctx context.Context, learnerID, courseID string) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Select("DISTINCT ON (module_ref) *").
		Where("learner_id = ? AND course_id = ?", learnerID, courseID).
		Order("module_ref, submitted_at DESC NULLS LAST, attempt_number DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get latest attempts by module: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) LatestSubmittedByModule(ctx context.Context, learnerID, courseID string) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Select("DISTINCT ON (module_ref) *").
		Where("learner_id = ? AND course_id = ? AND state = ?", learnerID, courseID, models.AttemptSubmitted).
		Order("module_ref, submitted_at DESC, attempt_number DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get latest submitted attempts by module: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var attempts []*models.Attempt
	var total int64

	// apply filter first
	query := a.db.WithContext(ctx).Model(&models.Attempt{})
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}
