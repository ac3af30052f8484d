package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

const resultsSheet = "Results"

var resultsHeader = []interface{}{
	"Learner ID", "Module", "Module Name", "Attempt ID", "Attempt #", "State",
	"Score Earned", "Score Total", "Percent", "Grade",
	"Best Percent", "Best Grade", "Passed", "Elapsed Seconds", "Submitted At",
}

type importExportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewImportExportService(repo repositories.Repository, logger *slog.Logger) ImportExportService {
	return &importExportService{
		repo:   repo,
		logger: logger,
	}
}

func (s *importExportService) ExportCourseResults(ctx context.Context, courseID string, learnerID *string) (*bytes.Buffer, error) {
	submitted := models.AttemptSubmitted
	filters := repositories.AttemptFilters{
		CourseID:  &courseID,
		LearnerID: learnerID,
		State:     &submitted,
		SortBy:    "submitted_at",
		SortOrder: "asc",
		Limit:     repositories.MaxListLimit,
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &resultsHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		lastCol, _ := excelize.ColumnNumberToName(len(resultsHeader))
		_ = f.SetCellStyle(resultsSheet, "A1", lastCol+"1", style)
	}

	row := 2
	for {
		attempts, total, err := s.repo.Attempt().List(ctx, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list attempts: %w", err)
		}

		for _, a := range attempts {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, err
			}
			values := resultRow(a)
			if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}

		filters.Offset += len(attempts)
		if len(attempts) == 0 || int64(filters.Offset) >= total {
			break
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Course results exported", "course_id", courseID, "rows", row-2)
	return buf, nil
}

func resultRow(a *models.Attempt) []interface{} {
	submittedAt := ""
	if a.SubmittedAt != nil {
		submittedAt = a.SubmittedAt.UTC().Format(time.RFC3339)
	}
	passed := "no"
	if a.IsPassed() {
		passed = "yes"
	}
	return []interface{}{
		a.LearnerID, a.ModuleRef.String(), a.ModuleName, a.AttemptID, a.AttemptNumber, string(a.State),
		a.ScoreEarned, a.ScoreTotal, a.Percent, string(a.LetterGrade),
		a.BestPercent, string(a.BestLetterGrade), passed, a.ElapsedSeconds, submittedAt,
	}
}
