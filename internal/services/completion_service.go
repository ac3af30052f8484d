package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/learning-assessment/internal/events"
	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

type completionService struct {
	repo      repositories.Repository
	activity  ActivityRecorder
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewCompletionService(repo repositories.Repository, activity ActivityRecorder, publisher events.EventPublisher, logger *slog.Logger) CompletionService {
	return &completionService{
		repo:      repo,
		activity:  activity,
		publisher: publisher,
		logger:    logger,
	}
}

// Trigger records the course completion of a passing final attempt. Repeated
// triggers for the same learner and course are no-ops apart from making sure
// a certificate exists.
func (s *completionService) Trigger(ctx context.Context, attempt *models.Attempt) (*CompletionOutcome, error) {
	if !attempt.ModuleRef.IsFinal() || !attempt.IsPassed() {
		return &CompletionOutcome{Completed: false, CertificateStatus: models.CertificatePending}, nil
	}

	var (
		created          bool
		completedCourses int
	)
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		created, err = tx.Completion().CreateIfAbsent(ctx, &models.CourseCompletion{
			LearnerID:      attempt.LearnerID,
			CourseID:       attempt.CourseID,
			FinalAttemptID: attempt.AttemptID,
			BestPercent:    attempt.BestPercent,
			CompletedAt:    time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to record completion: %w", err)
		}
		if created {
			if err := tx.Completion().IncrementCompletedCourses(ctx, attempt.LearnerID); err != nil {
				return fmt.Errorf("failed to increment completed courses: %w", err)
			}
		}

		progress, err := tx.Completion().GetLearnerProgress(ctx, attempt.LearnerID)
		switch {
		case err == nil:
			completedCourses = progress.CompletedCourses
		case !repositories.IsNotFoundError(err):
			return fmt.Errorf("failed to read learner progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := &CompletionOutcome{
		Completed:         true,
		NewlyCompleted:    created,
		CertificateStatus: models.CertificatePending,
		CompletedCourses:  completedCourses,
	}

	certificate, err := s.issueCertificate(ctx, attempt.LearnerID, attempt.CourseID)
	if err != nil {
		s.logger.Error("Certificate issuance failed",
			"learner_id", attempt.LearnerID,
			"course_id", attempt.CourseID,
			"error", err)
	} else {
		outcome.CertificateID = certificate.CertificateID
		outcome.CertificateStatus = certificate.Status
	}

	if created {
		s.logger.Info("Course completed",
			"learner_id", attempt.LearnerID,
			"course_id", attempt.CourseID,
			"attempt_id", attempt.AttemptID)

		s.activity.Record(ctx, attempt.LearnerID, models.ActivityCourseCompleted, events.ActivityData{
			CourseID:      attempt.CourseID,
			ModuleID:      attempt.ModuleRef.String(),
			AttemptID:     attempt.AttemptID,
			AttemptNumber: attempt.AttemptNumber,
			Meta: map[string]interface{}{
				"best_percent":       attempt.BestPercent,
				"certificate_id":     outcome.CertificateID,
				"certificate_status": outcome.CertificateStatus,
			},
		})
	}

	return outcome, nil
}

// issueCertificate returns the learner's certificate for the course, creating
// it when missing
func (s *completionService) issueCertificate(ctx context.Context, learnerID, courseID string) (*models.Certificate, error) {
	existing, err := s.repo.Certificate().GetByLearnerCourse(ctx, learnerID, courseID)
	if err == nil {
		return existing, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}

	// one retry covers a certificate id collision
	for try := 0; try < 2; try++ {
		certificate := &models.Certificate{
			CertificateID: newCertificateID(),
			LearnerID:     learnerID,
			CourseID:      courseID,
			Status:        models.CertificateIssued,
			IssuedAt:      time.Now(),
		}

		created, err := s.repo.Certificate().CreateIfAbsent(ctx, certificate)
		if err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				continue
			}
			return nil, fmt.Errorf("failed to create certificate: %w", err)
		}
		if !created {
			return s.repo.Certificate().GetByLearnerCourse(ctx, learnerID, courseID)
		}

		s.publishCertificate(ctx, certificate)
		return certificate, nil
	}

	return nil, fmt.Errorf("failed to allocate a certificate id: %w", repositories.ErrDuplicateKey)
}

func (s *completionService) publishCertificate(ctx context.Context, certificate *models.Certificate) {
	if s.publisher == nil {
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activityPublishTimeout)
	defer cancel()

	event := events.NewEvent(events.EventCertificateIssued, events.CertificateData{
		LearnerID:     certificate.LearnerID,
		CourseID:      certificate.CourseID,
		CertificateID: certificate.CertificateID,
		Status:        string(certificate.Status),
	})
	if err := s.publisher.Publish(publishCtx, events.TopicCertificates, event); err != nil {
		s.logger.Warn("Failed to publish certificate event",
			"certificate_id", certificate.CertificateID,
			"error", err)
	}
}

func (s *completionService) GetCertificate(ctx context.Context, learnerID, courseID string) (*models.Certificate, error) {
	certificate, err := s.repo.Certificate().GetByLearnerCourse(ctx, learnerID, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCertificateNotFound
		}
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return certificate, nil
}

// newCertificateID returns 8 upper-case hex characters
func newCertificateID() string {
	id := uuid.New()
	return strings.ToUpper(fmt.Sprintf("%x", id[:4]))
}
