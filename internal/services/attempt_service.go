package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/learning-assessment/internal/events"
	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
	"github.com/SAP-F-2025/learning-assessment/internal/validator"
)

const (
	defaultListLimit = 50
	finalExamName    = "Final Exam"
)

type attemptService struct {
	repo       repositories.Repository
	question   QuestionService
	grading    GradingService
	student    StudentService
	completion CompletionService
	activity   ActivityRecorder
	logger     *slog.Logger
	validator  *validator.Validator
	now        func() time.Time
}

type AttemptServiceDeps struct {
	Repo       repositories.Repository
	Question   QuestionService
	Grading    GradingService
	Student    StudentService
	Completion CompletionService
	Activity   ActivityRecorder
	Logger     *slog.Logger
	Validator  *validator.Validator
}

func NewAttemptService(deps AttemptServiceDeps) AttemptService {
	return &attemptService{
		repo:       deps.Repo,
		question:   deps.Question,
		grading:    deps.Grading,
		student:    deps.Student,
		completion: deps.Completion,
		activity:   deps.Activity,
		logger:     deps.Logger,
		validator:  deps.Validator,
		now:        time.Now,
	}
}

// ===== START =====

func (s *attemptService) StartModule(ctx context.Context, req *StartModuleAttemptRequest, learnerID string) (*AttemptResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	ref := models.ParseModuleRef(req.ModuleID)
	if ref.IsFinal() {
		return nil, NewValidationError("module_id", "use the final exam start for the final", req.ModuleID)
	}

	s.logger.Info("Starting module attempt",
		"learner_id", learnerID,
		"course_id", req.CourseID,
		"module_id", req.ModuleID)

	attempt, resumed, err := s.startLineage(ctx, learnerID, req.CourseID, ref, req.ModuleName, nil)
	if err != nil {
		return nil, err
	}

	if !resumed {
		s.activity.Record(ctx, learnerID, models.ActivityAssessmentStarted, events.ActivityData{
			CourseID:      attempt.CourseID,
			ModuleID:      attempt.ModuleRef.String(),
			AttemptID:     attempt.AttemptID,
			AttemptNumber: attempt.AttemptNumber,
		})
	}

	return NewAttemptResponse(attempt, resumed), nil
}

func (s *attemptService) StartFinal(ctx context.Context, req *StartFinalAttemptRequest, learnerID string) (*AttemptResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	s.logger.Info("Starting final attempt", "learner_id", learnerID, "course_id", req.CourseID)

	status, err := s.student.GetFinalUnlockStatus(ctx, learnerID, req.CourseID)
	if err != nil {
		return nil, err
	}
	if !status.Unlocked {
		return nil, &FinalLockedError{
			PassedCount:  status.PassedCount,
			FailedCount:  status.FailedCount,
			TotalModules: status.TotalModules,
		}
	}

	var composition *FinalComposition
	compose := func() ([]string, error) {
		var err error
		composition, err = s.question.ComposeFinal(ctx, req.CourseID)
		if err != nil {
			return nil, err
		}
		return composition.QuestionIDs, nil
	}

	attempt, resumed, err := s.startLineage(ctx, learnerID, req.CourseID, models.FinalExam, finalExamName, compose)
	if err != nil {
		return nil, err
	}

	resp := NewAttemptResponse(attempt, resumed)
	if !resumed && composition != nil {
		resp.Rule = composition.Rule
		s.activity.Record(ctx, learnerID, models.ActivityFinalStarted, events.ActivityData{
			CourseID:      attempt.CourseID,
			ModuleID:      attempt.ModuleRef.String(),
			AttemptID:     attempt.AttemptID,
			AttemptNumber: attempt.AttemptNumber,
			Meta: map[string]interface{}{
				"rule":           composition.Rule,
				"question_count": len(composition.QuestionIDs),
			},
		})
	}

	return resp, nil
}

// startLineage returns the started row of the lineage or opens the next one.
// compose, when set, runs only if a new row is needed and must succeed before
// anything is written. resumed reports that an existing row was returned.
func (s *attemptService) startLineage(ctx context.Context, learnerID, courseID string, ref models.ModuleRef, moduleName string, compose func() ([]string, error)) (*models.Attempt, bool, error) {
	key := models.ComputeAttemptKey(learnerID, courseID, ref)

	latest, err := s.repo.Attempt().GetLatestByKey(ctx, key)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, false, fmt.Errorf("failed to get latest attempt: %w", err)
	}
	if latest != nil && latest.State == models.AttemptStarted {
		s.logger.Info("Resuming started attempt", "attempt_id", latest.AttemptID, "attempt_number", latest.AttemptNumber)
		return latest, true, nil
	}

	var selected []string
	if compose != nil {
		if selected, err = compose(); err != nil {
			return nil, false, err
		}
	}

	next := &models.Attempt{
		LearnerID:         learnerID,
		CourseID:          courseID,
		ModuleRef:         ref,
		ModuleName:        moduleName,
		AttemptKey:        key,
		AttemptID:         models.ComputeAttemptID(key),
		AttemptNumber:     1,
		State:             models.AttemptStarted,
		StartedAt:         s.now(),
		SelectedQuestions: datatypes.JSONSlice[string](selected),
		Questions:         datatypes.JSONSlice[models.QuestionResult]{},
		BreakdownByType:   datatypes.NewJSONType(models.TypeBreakdown{}),
	}
	if latest != nil {
		next.AttemptNumber = latest.AttemptNumber + 1
		next.BestPercent = latest.BestPercent
		next.BestScoreEarned = latest.BestScoreEarned
		next.BestLetterGrade = latest.BestLetterGrade
		if next.ModuleName == "" {
			next.ModuleName = latest.ModuleName
		}
	}

	created, err := s.repo.Attempt().CreateIfAbsent(ctx, next)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create attempt: %w", err)
	}
	if !created {
		// lost the race, the winner's row is the answer
		winner, err := s.repo.Attempt().GetLatestByKey(ctx, key)
		if err != nil {
			return nil, false, fmt.Errorf("failed to re-read attempt after conflict: %w", err)
		}
		return winner, true, nil
	}

	s.logger.Info("Attempt created",
		"attempt_id", next.AttemptID,
		"attempt_number", next.AttemptNumber,
		"module_ref", ref.String())

	return next, false, nil
}

// ===== SUBMIT =====

func (s *attemptService) Submit(ctx context.Context, req *SubmitAttemptRequest, learnerID string) (*SubmitAttemptResponse, error) {
	if err := s.validator.ValidateSubmission(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	current, err := s.repo.Attempt().GetLatestByAttemptID(ctx, req.AttemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if current.LearnerID != learnerID {
		return nil, NewPermissionError(learnerID, req.AttemptID, "attempt", "submit", "not owned by learner")
	}
	if req.CourseID != "" && req.CourseID != current.CourseID {
		return nil, NewValidationError("course_id", "does not match the attempt", req.CourseID)
	}
	if req.ModuleID != "" && models.ParseModuleRef(req.ModuleID) != current.ModuleRef {
		return nil, NewValidationError("module_id", "does not match the attempt", req.ModuleID)
	}

	firstSubmission := current.State == models.AttemptStarted
	submission := s.grading.Grade(req, current.ModuleName, s.now())

	updated, err := s.repo.Attempt().ApplySubmission(ctx, current.ID, submission)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to apply submission: %w", err)
	}

	s.logger.Info("Attempt submitted",
		"attempt_id", updated.AttemptID,
		"attempt_number", updated.AttemptNumber,
		"percent", updated.Percent,
		"best_percent", updated.BestPercent)

	activity := models.ActivityAssessmentUpdated
	if firstSubmission {
		activity = models.ActivityAssessmentSubmitted
	}
	s.activity.Record(ctx, learnerID, activity, events.ActivityData{
		CourseID:      updated.CourseID,
		ModuleID:      updated.ModuleRef.String(),
		AttemptID:     updated.AttemptID,
		AttemptNumber: updated.AttemptNumber,
		Meta: map[string]interface{}{
			"score_earned":      updated.ScoreEarned,
			"percent":           updated.Percent,
			"grade":             updated.LetterGrade,
			"best_percent":      updated.BestPercent,
			"best_letter_grade": updated.BestLetterGrade,
		},
	})

	resp := &SubmitAttemptResponse{Attempt: updated, FirstSubmission: firstSubmission}

	if updated.ModuleRef.IsFinal() && s.grading.IsPass(updated.BestPercent) {
		outcome, err := s.completion.Trigger(ctx, updated)
		if err != nil {
			// the submission is committed, completion is retried on the next passing submit
			s.logger.Error("Completion trigger failed",
				"attempt_id", updated.AttemptID,
				"learner_id", learnerID,
				"error", err)
			outcome = &CompletionOutcome{Completed: false, CertificateStatus: models.CertificatePending}
		}
		resp.Completion = outcome
	}

	return resp, nil
}

// ===== READ =====

func (s *attemptService) GetByAttemptID(ctx context.Context, attemptID string, user *models.User) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetLatestByAttemptID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.LearnerID != user.ID && !user.CanViewOthers() {
		return nil, NewPermissionError(user.ID, attemptID, "attempt", "read", "not owner or insufficient permissions")
	}

	return attempt, nil
}

func (s *attemptService) List(ctx context.Context, filters repositories.AttemptFilters, user *models.User) (*SubmissionListResponse, error) {
	if !user.CanViewOthers() {
		if filters.LearnerID != nil && *filters.LearnerID != user.ID {
			return nil, NewPermissionError(user.ID, *filters.LearnerID, "submissions", "list", "insufficient permissions")
		}
		filters.LearnerID = &user.ID
	}

	if filters.Limit <= 0 {
		filters.Limit = defaultListLimit
	}
	filters.Limit = min(filters.Limit, repositories.MaxListLimit)
	filters.Offset = max(filters.Offset, 0)

	attempts, total, err := s.repo.Attempt().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return &SubmissionListResponse{
		Submissions: attempts,
		Total:       total,
		Limit:       filters.Limit,
		Skip:        filters.Offset,
	}, nil
}
