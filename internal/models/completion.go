package models

import "time"

type CertificateStatus string

const (
	CertificateIssued  CertificateStatus = "issued"
	CertificateRevoked CertificateStatus = "revoked"
	// CertificatePending is reported when issuance failed after a completion.
	CertificatePending CertificateStatus = "pending"
)

// CourseCompletion is recorded once per learner and course after a passing final.
type CourseCompletion struct {
	ID             uint      `json:"-" gorm:"primaryKey"`
	LearnerID      string    `json:"learner_id" gorm:"not null;size:64;uniqueIndex:idx_completion_learner_course,priority:1"`
	CourseID       string    `json:"course_id" gorm:"not null;size:64;uniqueIndex:idx_completion_learner_course,priority:2"`
	FinalAttemptID string    `json:"final_attempt_id" gorm:"size:40"`
	BestPercent    float64   `json:"best_percent"`
	CompletedAt    time.Time `json:"completed_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (CourseCompletion) TableName() string {
	return "course_completions"
}

// LearnerProgress holds per-learner counters owned by this service.
type LearnerProgress struct {
	LearnerID        string    `json:"learner_id" gorm:"primaryKey;size:64"`
	CompletedCourses int       `json:"completed_courses" gorm:"not null;default:0"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (LearnerProgress) TableName() string {
	return "learner_progress"
}

type Certificate struct {
	ID            uint              `json:"-" gorm:"primaryKey"`
	CertificateID string            `json:"certificate_id" gorm:"not null;size:16;uniqueIndex"`
	LearnerID     string            `json:"learner_id" gorm:"not null;size:64;uniqueIndex:idx_certificate_learner_course,priority:1"`
	CourseID      string            `json:"course_id" gorm:"not null;size:64;uniqueIndex:idx_certificate_learner_course,priority:2"`
	Status        CertificateStatus `json:"status" gorm:"size:16;not null;default:issued"`
	IssuedAt      time.Time         `json:"issued_at"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (Certificate) TableName() string {
	return "certificates"
}
