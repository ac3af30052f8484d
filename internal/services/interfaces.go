package services

import (
	"bytes"
	"context"
	"time"

	"github.com/SAP-F-2025/learning-assessment/internal/events"
	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
	"github.com/SAP-F-2025/learning-assessment/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type StartModuleAttemptRequest = validator.StartModuleAttemptRequest
type StartFinalAttemptRequest = validator.StartFinalAttemptRequest
type SubmitAttemptRequest = validator.SubmitAttemptRequest
type QuestionResultRequest = validator.QuestionResultRequest

// AttemptResponse is returned by both start operations
type AttemptResponse struct {
	AttemptID     string              `json:"attempt_id"`
	AttemptNumber int                 `json:"attempt_number"`
	CourseID      string              `json:"course_id"`
	ModuleRef     models.ModuleRef    `json:"module_id"`
	ModuleName    string              `json:"module_name,omitempty"`
	State         models.AttemptState `json:"state"`
	StartedAt     time.Time           `json:"started_at"`
	QuestionIDs   []string            `json:"question_ids,omitempty"`

	// Rule is the sampling rule used to compose a newly created final attempt
	Rule string `json:"rule,omitempty"`

	// Resumed is true when an existing started attempt was returned
	Resumed bool `json:"resumed"`
}

func NewAttemptResponse(a *models.Attempt, resumed bool) *AttemptResponse {
	return &AttemptResponse{
		AttemptID:     a.AttemptID,
		AttemptNumber: a.AttemptNumber,
		CourseID:      a.CourseID,
		ModuleRef:     a.ModuleRef,
		ModuleName:    a.ModuleName,
		State:         a.State,
		StartedAt:     a.StartedAt,
		QuestionIDs:   []string(a.SelectedQuestions),
		Resumed:       resumed,
	}
}

// SubmitAttemptResponse carries the updated attempt and, for a passing final,
// the completion outcome
type SubmitAttemptResponse struct {
	Attempt         *models.Attempt    `json:"attempt"`
	FirstSubmission bool               `json:"first_submission"`
	Completion      *CompletionOutcome `json:"completion,omitempty"`
}

type CompletionOutcome struct {
	Completed         bool                     `json:"completed"`
	NewlyCompleted    bool                     `json:"newly_completed"`
	CertificateID     string                   `json:"certificate_id,omitempty"`
	CertificateStatus models.CertificateStatus `json:"certificate_status"`
	CompletedCourses  int                      `json:"completed_courses"`
}

// Final exam sampling rules
const (
	RuleRoadSignsPlusOthers = "road+others"
	RuleAllModules          = "all-modules"
)

// FinalComposition is the frozen question set of a new final attempt
type FinalComposition struct {
	QuestionIDs []string `json:"question_ids"`
	Rule        string   `json:"rule"`
}

type SubmissionListResponse struct {
	Submissions []*models.Attempt `json:"submissions"`
	Total       int64             `json:"total"`
	Limit       int               `json:"limit"`
	Skip        int               `json:"skip"`
}

// ModuleStat is the latest result of one course module, if any
type ModuleStat struct {
	ModuleID   string               `json:"module_id"`
	ModuleName string               `json:"module_name"`
	Attempted  bool                 `json:"attempted"`
	Result     *models.ModuleResult `json:"result,omitempty"`
}

type CourseModuleStats struct {
	CourseID string        `json:"course_id"`
	Modules  []*ModuleStat `json:"modules"`
}

// ===== SERVICE INTERFACES =====

type AttemptService interface {
	StartModule(ctx context.Context, req *StartModuleAttemptRequest, learnerID string) (*AttemptResponse, error)
	StartFinal(ctx context.Context, req *StartFinalAttemptRequest, learnerID string) (*AttemptResponse, error)
	Submit(ctx context.Context, req *SubmitAttemptRequest, learnerID string) (*SubmitAttemptResponse, error)

	GetByAttemptID(ctx context.Context, attemptID string, user *models.User) (*models.Attempt, error)
	List(ctx context.Context, filters repositories.AttemptFilters, user *models.User) (*SubmissionListResponse, error)
}

type QuestionService interface {
	ComposeFinal(ctx context.Context, courseID string) (*FinalComposition, error)
}

type GradingService interface {
	// Grade turns a submission payload into the fields written to the attempt
	Grade(req *SubmitAttemptRequest, moduleName string, now time.Time) *repositories.AttemptSubmission
	IsPass(bestPercent float64) bool
}

type StudentService interface {
	GetFinalUnlockStatus(ctx context.Context, learnerID, courseID string) (*models.FinalUnlockStatus, error)
	GetLatestByModule(ctx context.Context, learnerID, courseID string) ([]*models.ModuleResult, error)
	GetLatestFinal(ctx context.Context, learnerID, courseID string) (*models.Attempt, error)
	GetCourseStats(ctx context.Context, learnerID, courseID string) (*models.CourseStats, error)
	GetCourseModuleStats(ctx context.Context, learnerID, courseID string) (*CourseModuleStats, error)
}

type CompletionService interface {
	Trigger(ctx context.Context, attempt *models.Attempt) (*CompletionOutcome, error)
	GetCertificate(ctx context.Context, learnerID, courseID string) (*models.Certificate, error)
}

type ImportExportService interface {
	// ExportCourseResults writes every submitted attempt of the course to an
	// xlsx workbook, restricted to one learner when learnerID is set
	ExportCourseResults(ctx context.Context, courseID string, learnerID *string) (*bytes.Buffer, error)
}

// ActivityRecorder forwards learning activity to the activity log. Recording
// never fails the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, learnerID string, activity models.ActivityType, data events.ActivityData)
}

type ServiceManager interface {
	Initialize(ctx context.Context) error

	Attempt() AttemptService
	Question() QuestionService
	Grading() GradingService
	Student() StudentService
	Completion() CompletionService
	ImportExport() ImportExportService
	Activity() ActivityRecorder

	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
