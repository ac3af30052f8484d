package services

import (
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

type gradingService struct {
	logger *slog.Logger
}

func NewGradingService(logger *slog.Logger) GradingService {
	return &gradingService{logger: logger}
}

func (s *gradingService) Grade(req *SubmitAttemptRequest, moduleName string, now time.Time) *repositories.AttemptSubmission {
	submittedAt := now
	if req.SubmittedAt != nil {
		submittedAt = *req.SubmittedAt
	}
	if req.ModuleName != "" {
		moduleName = req.ModuleName
	}

	questions := make([]models.QuestionResult, 0, len(req.Questions))
	for _, q := range req.Questions {
		questions = append(questions, models.QuestionResult{
			QuestionID:    strings.TrimSpace(q.QuestionID),
			Type:          normalizeQuestionType(q.Type),
			Text:          q.Text,
			Choices:       q.Choices,
			UserAnswer:    q.UserAnswer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     q.IsCorrect,
			Score:         q.Score,
		})
	}

	correct, incorrect, skipped := req.CorrectCount, req.IncorrectCount, req.SkippedCount
	if correct+incorrect+skipped == 0 && len(questions) > 0 {
		correct, incorrect, skipped = countOutcomes(questions)
	}

	percent := s.percentOf(req)

	return &repositories.AttemptSubmission{
		ModuleName:     moduleName,
		SubmittedAt:    submittedAt,
		ElapsedSeconds: req.ElapsedSeconds,
		Questions:      questions,
		Breakdown:      breakdownByType(questions),
		ScoreEarned:    req.ScoreEarned,
		ScoreTotal:     req.ScoreTotal,
		CorrectCount:   correct,
		IncorrectCount: incorrect,
		SkippedCount:   skipped,
		Percent:        percent,
		LetterGrade:    models.GradeFromPercent(percent),
	}
}

func (s *gradingService) IsPass(bestPercent float64) bool {
	return models.IsPassingBest(bestPercent)
}

// percentOf uses the client percent when present, otherwise the score ratio
func (s *gradingService) percentOf(req *SubmitAttemptRequest) float64 {
	var percent float64
	switch {
	case req.Percent != nil:
		percent = *req.Percent
	case req.ScoreTotal > 0:
		percent = req.ScoreEarned / req.ScoreTotal * 100
	}
	return roundPercent(percent)
}

func roundPercent(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return math.Round(p*100) / 100
}

func normalizeQuestionType(t string) models.QuestionType {
	if models.QuestionType(strings.ToLower(t)) == models.QuestionTrueFalse {
		return models.QuestionTrueFalse
	}
	return models.QuestionMCQ
}

func countOutcomes(questions []models.QuestionResult) (correct, incorrect, skipped int) {
	for _, q := range questions {
		switch {
		case q.IsCorrect:
			correct++
		case strings.TrimSpace(q.UserAnswer) == "":
			skipped++
		default:
			incorrect++
		}
	}
	return correct, incorrect, skipped
}

func breakdownByType(questions []models.QuestionResult) models.TypeBreakdown {
	breakdown := models.TypeBreakdown{}
	for _, q := range questions {
		tally := breakdown[q.Type]
		tally.Total++
		if q.IsCorrect {
			tally.Correct++
		}
		breakdown[q.Type] = tally
	}
	return breakdown
}
