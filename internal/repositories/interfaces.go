package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

// MaxListLimit caps page sizes of attempt listings.
const MaxListLimit = 200

type AttemptFilters struct {
	LearnerID *string              `json:"learner_id"`
	CourseID  *string              `json:"course_id"`
	ModuleRef *models.ModuleRef    `json:"module_ref"`
	State     *models.AttemptState `json:"state"`
	DateFrom  *time.Time           `json:"date_from"`
	DateTo    *time.Time           `json:"date_to"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "submitted_at", "percent", "attempt_number"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

// AttemptSubmission carries the normalized fields written by a submit.
type AttemptSubmission struct {
	ModuleName     string
	SubmittedAt    time.Time
	ElapsedSeconds int
	Questions      []models.QuestionResult
	Breakdown      models.TypeBreakdown
	ScoreEarned    float64
	ScoreTotal     float64
	CorrectCount   int
	IncorrectCount int
	SkippedCount   int
	Percent        float64
	LetterGrade    models.LetterGrade
}

// ===== REPOSITORY INTERFACES =====

// AttemptRepository persists attempt lineages.
type AttemptRepository interface {
	// CreateIfAbsent inserts the attempt unless its (attempt_key, attempt_number)
	// already exists. It reports whether this call created the row.
	CreateIfAbsent(ctx context.Context, attempt *models.Attempt) (bool, error)

	// GetLatestByKey returns the highest numbered row of a lineage.
	GetLatestByKey(ctx context.Context, attemptKey string) (*models.Attempt, error)

	// GetLatestByAttemptID returns the highest numbered row for a public attempt id.
	GetLatestByAttemptID(ctx context.Context, attemptID string) (*models.Attempt, error)

	// ApplySubmission overwrites the score fields of a row and raises its best
	// score to max(current, new) in one atomic step.
	ApplySubmission(ctx context.Context, id uint, submission *AttemptSubmission) (*models.Attempt, error)

	// LatestByModule returns one row per module ref: the most recently submitted
	// one, or the latest started one when nothing was submitted.
	LatestByModule(ctx context.Context, learnerID, courseID string) ([]*models.Attempt, error)

	// LatestSubmittedByModule returns one submitted row per module ref ordered by
	// submitted_at desc then attempt_number desc.
	LatestSubmittedByModule(ctx context.Context, learnerID, courseID string) ([]*models.Attempt, error)

	List(ctx context.Context, filters AttemptFilters) ([]*models.Attempt, int64, error)
}

// CompletionRepository records course completions and learner counters.
type CompletionRepository interface {
	// CreateIfAbsent inserts the completion unless (learner, course) exists.
	CreateIfAbsent(ctx context.Context, completion *models.CourseCompletion) (bool, error)
	GetByLearnerCourse(ctx context.Context, learnerID, courseID string) (*models.CourseCompletion, error)
	IncrementCompletedCourses(ctx context.Context, learnerID string) error
	GetLearnerProgress(ctx context.Context, learnerID string) (*models.LearnerProgress, error)
}

// CertificateRepository stores issued certificates.
type CertificateRepository interface {
	// CreateIfAbsent inserts the certificate unless (learner, course) exists.
	// A certificate id collision returns ErrDuplicateKey.
	CreateIfAbsent(ctx context.Context, certificate *models.Certificate) (bool, error)
	GetByLearnerCourse(ctx context.Context, learnerID, courseID string) (*models.Certificate, error)
}

// ContentRepository is the read side of the course content store.
type ContentRepository interface {
	GetCourseModules(ctx context.Context, courseID string) ([]models.CourseModule, error)

	// SampleActiveQuestions returns a uniform random subset of n active question
	// ids of a module, or all of them when fewer exist.
	SampleActiveQuestions(ctx context.Context, moduleID string, n int) ([]string, error)

	// SampleActiveQuestionsAcross samples n active question ids from the pooled
	// questions of several modules.
	SampleActiveQuestionsAcross(ctx context.Context, moduleIDs []string, n int) ([]string, error)
}
