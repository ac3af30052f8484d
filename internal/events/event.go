package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "learning-assessment"
	EventVersion = "1.0"
)

// Topics
const (
	TopicLearningActivity = "learning.activity"
	TopicCertificates     = "learning.certificates"
)

// EventCertificateIssued is published on TopicCertificates
const EventCertificateIssued = "CERTIFICATE_ISSUED"

// Event is the envelope of every message this service emits.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes events to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close() error
}

// ActivityData is the payload of learning activity events.
type ActivityData struct {
	LearnerID     string                 `json:"learner_id"`
	CourseID      string                 `json:"course_id"`
	ModuleID      string                 `json:"module_id,omitempty"`
	AttemptID     string                 `json:"attempt_id,omitempty"`
	AttemptNumber int                    `json:"attempt_number,omitempty"`
	Meta          map[string]interface{} `json:"meta,omitempty"`
}

// CertificateData is the payload of certificate events.
type CertificateData struct {
	LearnerID     string `json:"learner_id"`
	CourseID      string `json:"course_id"`
	CertificateID string `json:"certificate_id"`
	Status        string `json:"status"`
}
