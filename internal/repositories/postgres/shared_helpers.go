package postgres

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

// SharedHelpers contains common query building used by the repositories
type SharedHelpers struct{}

func NewSharedHelpers() *SharedHelpers {
	return &SharedHelpers{}
}

// ApplyAttemptFilters applies common filters to attempt queries
func (h *SharedHelpers) ApplyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.LearnerID != nil {
		query = query.Where("learner_id = ?", *filters.LearnerID)
	}
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.ModuleRef != nil {
		query = query.Where("module_ref = ?", *filters.ModuleRef)
	}
	if filters.State != nil {
		query = query.Where("state = ?", *filters.State)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":     true,
		"updated_at":     true,
		"submitted_at":   true,
		"attempt_number": true,
		"percent":        true,
		"best_percent":   true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if strings.EqualFold(sortOrder, "asc") {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}

	query = query.Order(sortBy + " " + sortOrder).Order("id " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

// BestGradeExpr builds the letter grade of GREATEST(best_percent, ?) as a CASE
// expression so the grade is derived in the same statement as the new best.
func (h *SharedHelpers) BestGradeExpr(percent float64) (string, []interface{}) {
	var b strings.Builder
	args := make([]interface{}, 0, len(models.GradeBands))

	b.WriteString("CASE")
	for _, band := range models.GradeBands {
		fmt.Fprintf(&b, " WHEN GREATEST(best_percent, ?) >= %g THEN '%s'", band.MinPercent, band.Grade)
		args = append(args, percent)
	}
	fmt.Fprintf(&b, " ELSE '%s' END", models.GradeF)

	return b.String(), args
}

// translateError maps gorm errors onto repository errors
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.ErrNotFound
	case repositories.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", repositories.ErrDuplicateKey, err)
	default:
		return err
	}
}
