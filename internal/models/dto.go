package models

import "time"

// FinalUnlockStatus is the outcome of the final exam gate for a learner and course.
type FinalUnlockStatus struct {
	CourseID     string `json:"course_id"`
	Unlocked     bool   `json:"unlocked"`
	PassedCount  int    `json:"passed_count"`
	FailedCount  int    `json:"failed_count"`
	TotalModules int    `json:"total_modules"`
}

// ModuleResult is the authoritative (latest) result of one lineage.
type ModuleResult struct {
	ModuleRef       ModuleRef    `json:"module_id"`
	ModuleName      string       `json:"module_name,omitempty"`
	AttemptID       string       `json:"attempt_id"`
	AttemptNumber   int          `json:"attempt_number"`
	State           AttemptState `json:"state"`
	Percent         float64      `json:"percent"`
	LetterGrade     LetterGrade  `json:"letter_grade"`
	BestPercent     float64      `json:"best_percent"`
	BestScoreEarned float64      `json:"best_score_earned"`
	BestGrade       LetterGrade  `json:"best_grade"`
	Passed          bool         `json:"passed"`
	ScoreEarned     float64      `json:"score_earned"`
	ScoreTotal      float64      `json:"score_total"`
	ElapsedSeconds  int          `json:"elapsed_seconds"`
	SubmittedAt     *time.Time   `json:"submitted_at"`
}

// NewModuleResult projects an attempt row onto its module result.
func NewModuleResult(a *Attempt) *ModuleResult {
	best := a.BestLetterGrade
	if best == "" {
		best = GradeFromPercent(a.BestPercent)
	}
	return &ModuleResult{
		ModuleRef:       a.ModuleRef,
		ModuleName:      a.ModuleName,
		AttemptID:       a.AttemptID,
		AttemptNumber:   a.AttemptNumber,
		State:           a.State,
		Percent:         a.Percent,
		LetterGrade:     a.LetterGrade,
		BestPercent:     a.BestPercent,
		BestScoreEarned: a.BestScoreEarned,
		BestGrade:       best,
		Passed:          a.IsPassed(),
		ScoreEarned:     a.ScoreEarned,
		ScoreTotal:      a.ScoreTotal,
		ElapsedSeconds:  a.ElapsedSeconds,
		SubmittedAt:     a.SubmittedAt,
	}
}

// CourseStats summarises a learner's module results within a course.
type CourseStats struct {
	CourseID           string  `json:"course_id"`
	ModulesTotal       int     `json:"modules_total"`
	ModulesAttempted   int     `json:"modules_attempted"`
	ModulesPassed      int     `json:"modules_passed"`
	AssessmentsTaken   int     `json:"assessments_taken"`
	TimeSecondsTotal   int     `json:"time_seconds_total"`
	ScoreEarnedTotal   float64 `json:"score_earned_total"`
	ScorePossibleTotal float64 `json:"score_possible_total"`
	OverallPercentAvg  int     `json:"overall_percent_avg"`
}
