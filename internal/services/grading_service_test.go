package services

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
)

func TestGradingService_Grade(t *testing.T) {
	s := NewGradingService(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	explicit := 72.5

	tests := []struct {
		name          string
		req           SubmitAttemptRequest
		expectPercent float64
		expectGrade   models.LetterGrade
	}{
		{
			name:          "percent derived from scores",
			req:           SubmitAttemptRequest{ScoreEarned: 9, ScoreTotal: 10},
			expectPercent: 90,
			expectGrade:   models.GradeA,
		},
		{
			name:          "client percent wins",
			req:           SubmitAttemptRequest{ScoreEarned: 1, ScoreTotal: 10, Percent: &explicit},
			expectPercent: 72.5,
			expectGrade:   models.GradeC,
		},
		{
			name:          "rounded to two decimals",
			req:           SubmitAttemptRequest{ScoreEarned: 2, ScoreTotal: 3},
			expectPercent: 66.67,
			expectGrade:   models.GradeD,
		},
		{
			name:          "no total",
			req:           SubmitAttemptRequest{},
			expectPercent: 0,
			expectGrade:   models.GradeF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Grade(&tt.req, "Parking", now)
			if got.Percent != tt.expectPercent {
				t.Errorf("expected percent %v, got %v", tt.expectPercent, got.Percent)
			}
			if got.LetterGrade != tt.expectGrade {
				t.Errorf("expected grade %s, got %s", tt.expectGrade, got.LetterGrade)
			}
			if !got.SubmittedAt.Equal(now) {
				t.Errorf("expected submitted_at to default to now")
			}
			if got.ModuleName != "Parking" {
				t.Errorf("expected module name snapshot, got %q", got.ModuleName)
			}
		})
	}
}

func TestGradingService_GradeQuestions(t *testing.T) {
	s := NewGradingService(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	req := &SubmitAttemptRequest{
		ScoreEarned: 2,
		ScoreTotal:  4,
		Questions: []QuestionResultRequest{
			{QuestionID: "q1", Type: "mcq", UserAnswer: "a", IsCorrect: true},
			{QuestionID: "q2", Type: "mcq", UserAnswer: "b"},
			{QuestionID: "q3", Type: "tf", UserAnswer: "true", IsCorrect: true},
			{QuestionID: "q4", Type: "tf"},
		},
	}

	got := s.Grade(req, "", time.Now())

	if got.CorrectCount != 2 || got.IncorrectCount != 1 || got.SkippedCount != 1 {
		t.Errorf("unexpected counts: %d/%d/%d", got.CorrectCount, got.IncorrectCount, got.SkippedCount)
	}
	if tally := got.Breakdown[models.QuestionMCQ]; tally.Correct != 1 || tally.Total != 2 {
		t.Errorf("unexpected mcq tally: %+v", tally)
	}
	if tally := got.Breakdown[models.QuestionTrueFalse]; tally.Correct != 1 || tally.Total != 2 {
		t.Errorf("unexpected tf tally: %+v", tally)
	}
}

func TestGradeBands(t *testing.T) {
	tests := []struct {
		percent float64
		grade   models.LetterGrade
		pass    bool
	}{
		{100, models.GradeA, true},
		{90, models.GradeA, true},
		{89.99, models.GradeB, true},
		{80, models.GradeB, true},
		{70, models.GradeC, true},
		{60, models.GradeD, true},
		{59.99, models.GradeF, false},
		{0, models.GradeF, false},
	}

	s := NewGradingService(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	for _, tt := range tests {
		if got := models.GradeFromPercent(tt.percent); got != tt.grade {
			t.Errorf("GradeFromPercent(%v) = %s, want %s", tt.percent, got, tt.grade)
		}
		if got := s.IsPass(tt.percent); got != tt.pass {
			t.Errorf("IsPass(%v) = %v, want %v", tt.percent, got, tt.pass)
		}
	}
}
