package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/learning-assessment/internal/events"
	"github.com/SAP-F-2025/learning-assessment/internal/models"
)

// activityPublishTimeout bounds how long a request waits on the activity log
const activityPublishTimeout = 2 * time.Second

type activityRecorder struct {
	publisher events.EventPublisher
	logger    *slog.Logger
	timeout   time.Duration
}

func NewActivityRecorder(publisher events.EventPublisher, logger *slog.Logger) ActivityRecorder {
	return &activityRecorder{
		publisher: publisher,
		logger:    logger,
		timeout:   activityPublishTimeout,
	}
}

func (r *activityRecorder) Record(ctx context.Context, learnerID string, activity models.ActivityType, data events.ActivityData) {
	if r.publisher == nil {
		return
	}
	data.LearnerID = learnerID

	// detached from request cancellation, still bounded
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.publisher.Publish(publishCtx, events.TopicLearningActivity, events.NewEvent(string(activity), data)); err != nil {
		r.logger.Warn("Failed to record activity",
			"activity", activity,
			"learner_id", learnerID,
			"course_id", data.CourseID,
			"error", err)
	}
}
