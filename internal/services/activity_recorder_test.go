package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/learning-assessment/internal/events"
	"github.com/SAP-F-2025/learning-assessment/internal/models"
)

// waitingPublisher holds every publish until its context ends
type waitingPublisher struct{}

func (waitingPublisher) Publish(ctx context.Context, topic string, event *events.Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func (waitingPublisher) Close() error {
	return nil
}

func TestActivityRecorder_RecordIsBounded(t *testing.T) {
	recorder := &activityRecorder{
		publisher: waitingPublisher{},
		logger:    discardLogger(),
		timeout:   50 * time.Millisecond,
	}

	// a cancelled request still gets its bounded publish attempt
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started := time.Now()
	recorder.Record(ctx, "learner-1", models.ActivityAssessmentStarted, events.ActivityData{CourseID: "c1"})
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Errorf("Record blocked for %v with a 50ms bound", elapsed)
	}
}
