package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptState string

const (
	AttemptStarted   AttemptState = "started"
	AttemptSubmitted AttemptState = "submitted"
)

type QuestionType string

const (
	QuestionMCQ       QuestionType = "mcq"
	QuestionTrueFalse QuestionType = "tf"
)

// FinalExamSize is the number of questions on every final exam.
const FinalExamSize = 10

// Attempt is one numbered attempt within a lineage. The lineage is identified by
// AttemptKey/AttemptID; (LearnerID, CourseID, ModuleRef, AttemptNumber) is unique.
type Attempt struct {
	ID            uint         `json:"-" gorm:"primaryKey"`
	LearnerID     string       `json:"learner_id" gorm:"not null;size:64;uniqueIndex:idx_attempt_lineage_number,priority:1;index:idx_attempt_learner_course,priority:1"`
	CourseID      string       `json:"course_id" gorm:"not null;size:64;uniqueIndex:idx_attempt_lineage_number,priority:2;index:idx_attempt_learner_course,priority:2"`
	ModuleRef     ModuleRef    `json:"module_ref" gorm:"type:varchar(64);not null;uniqueIndex:idx_attempt_lineage_number,priority:3"`
	ModuleName    string       `json:"module_name" gorm:"size:255"`
	AttemptKey    string       `json:"-" gorm:"not null;size:255;uniqueIndex:idx_attempt_key_number,priority:1"`
	AttemptID     string       `json:"attempt_id" gorm:"column:attempt_id;not null;size:40;index"`
	AttemptNumber int          `json:"attempt_number" gorm:"not null;uniqueIndex:idx_attempt_lineage_number,priority:4;uniqueIndex:idx_attempt_key_number,priority:2"`
	State         AttemptState `json:"state" gorm:"size:16;not null;default:started;index"`

	// Timing
	StartedAt      time.Time  `json:"started_at"`
	SubmittedAt    *time.Time `json:"submitted_at" gorm:"index"`
	ElapsedSeconds int        `json:"elapsed_seconds"`

	// Final exams only; frozen at creation.
	SelectedQuestions datatypes.JSONSlice[string] `json:"selected_questions" gorm:"type:jsonb"`

	Questions       datatypes.JSONSlice[QuestionResult] `json:"questions" gorm:"type:jsonb"`
	BreakdownByType datatypes.JSONType[TypeBreakdown]   `json:"breakdown_by_type" gorm:"type:jsonb"`

	// Scoring of the latest submission
	ScoreEarned    float64     `json:"score_earned"`
	ScoreTotal     float64     `json:"score_total"`
	CorrectCount   int         `json:"correct_count"`
	IncorrectCount int         `json:"incorrect_count"`
	SkippedCount   int         `json:"skipped_count"`
	Percent        float64     `json:"percent"`
	LetterGrade    LetterGrade `json:"letter_grade" gorm:"size:1"`

	// Running best of the lineage
	BestPercent     float64     `json:"best_percent"`
	BestScoreEarned float64     `json:"best_score_earned"`
	BestLetterGrade LetterGrade `json:"best_letter_grade" gorm:"size:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// IsPassed reports whether the lineage best is a pass.
func (a *Attempt) IsPassed() bool {
	return IsPassingBest(a.BestPercent)
}

// Clone returns a deep copy so callers never share slices with a store.
func (a *Attempt) Clone() *Attempt {
	if a == nil {
		return nil
	}
	c := *a
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		c.SubmittedAt = &t
	}
	if a.SelectedQuestions != nil {
		c.SelectedQuestions = append(datatypes.JSONSlice[string]{}, a.SelectedQuestions...)
	}
	if a.Questions != nil {
		c.Questions = make(datatypes.JSONSlice[QuestionResult], len(a.Questions))
		for i, q := range a.Questions {
			c.Questions[i] = q.clone()
		}
	}
	breakdown := TypeBreakdown{}
	for k, v := range a.BreakdownByType.Data() {
		breakdown[k] = v
	}
	c.BreakdownByType = datatypes.NewJSONType(breakdown)
	return &c
}

// QuestionResult is the graded outcome of one question in a submission.
type QuestionResult struct {
	QuestionID    string       `json:"question_id"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text,omitempty"`
	Choices       []string     `json:"choices,omitempty"`
	UserAnswer    string       `json:"user_answer,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	IsCorrect     bool         `json:"is_correct"`
	Score         float64      `json:"score"`
}

func (q QuestionResult) clone() QuestionResult {
	if q.Choices != nil {
		q.Choices = append([]string(nil), q.Choices...)
	}
	return q
}

// TypeTally counts correct answers for one question type.
type TypeTally struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// TypeBreakdown is keyed by question type.
type TypeBreakdown map[QuestionType]TypeTally
