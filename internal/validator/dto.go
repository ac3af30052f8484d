package validator

import "time"

// StartModuleAttemptRequest starts (or resumes) a module attempt
type StartModuleAttemptRequest struct {
	CourseID   string `json:"course_id" validate:"required,entity_id"`
	ModuleID   string `json:"module_id" validate:"required,entity_id"`
	ModuleName string `json:"module_name" validate:"omitempty,max=255"`
}

// StartFinalAttemptRequest starts (or resumes) the course final exam
type StartFinalAttemptRequest struct {
	CourseID string `json:"course_id" validate:"required,entity_id"`
}

// SubmitAttemptRequest is the normalized submission payload. Percent is
// derived from the scores when omitted.
type SubmitAttemptRequest struct {
	AttemptID      string                  `json:"attempt_id" validate:"required,hexadecimal,len=40"`
	CourseID       string                  `json:"course_id" validate:"omitempty,entity_id"`
	ModuleID       string                  `json:"module_id" validate:"omitempty,module_id"`
	ModuleName     string                  `json:"module_name" validate:"omitempty,max=255"`
	StartedAt      *time.Time              `json:"started_at"`
	SubmittedAt    *time.Time              `json:"submitted_at"`
	ElapsedSeconds int                     `json:"elapsed_seconds" validate:"min=0"`
	Questions      []QuestionResultRequest `json:"questions" validate:"omitempty,max=500,dive"`
	ScoreEarned    float64                 `json:"score_earned" validate:"min=0"`
	ScoreTotal     float64                 `json:"score_total" validate:"min=0"`
	CorrectCount   int                     `json:"correct_count" validate:"min=0"`
	IncorrectCount int                     `json:"incorrect_count" validate:"min=0"`
	SkippedCount   int                     `json:"skipped_count" validate:"min=0"`
	Percent        *float64                `json:"percent" validate:"omitempty,min=0,max=100"`
}

// QuestionResultRequest is one graded question of a submission
type QuestionResultRequest struct {
	QuestionID    string   `json:"question_id" validate:"required,entity_id"`
	Type          string   `json:"type" validate:"required,question_type"`
	Text          string   `json:"text" validate:"omitempty,max=2000"`
	Choices       []string `json:"choices" validate:"omitempty,max=20"`
	UserAnswer    string   `json:"user_answer"`
	CorrectAnswer string   `json:"correct_answer"`
	IsCorrect     bool     `json:"is_correct"`
	Score         float64  `json:"score" validate:"min=0"`
}
