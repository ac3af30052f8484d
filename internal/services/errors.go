package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/learning-assessment/internal/validator"
)

// Common service errors
var (
	ErrAttemptNotFound       = errors.New("attempt not found")
	ErrInsufficientQuestions = errors.New("insufficient active questions to compose the final exam")
	ErrCourseNotFound        = errors.New("course not found")
	ErrCertificateNotFound   = errors.New("certificate not found")
	ErrValidationFailed      = errors.New("validation failed")
)

// ValidationErrors is returned (wrapped) when a request fails validation
type ValidationErrors = validator.ValidationErrors

func NewValidationError(field, message string, value interface{}) error {
	return fmt.Errorf("%w: %w", ErrValidationFailed, ValidationErrors{{
		Field:   field,
		Message: message,
		Value:   value,
	}})
}

// FinalLockedError means the learner has not passed every module of the course
type FinalLockedError struct {
	PassedCount  int
	FailedCount  int
	TotalModules int
}

func (e *FinalLockedError) Error() string {
	return fmt.Sprintf("final exam locked: %d of %d modules passed", e.PassedCount, e.TotalModules)
}

// Remaining is the number of modules still to pass
func (e *FinalLockedError) Remaining() int {
	return e.TotalModules - e.PassedCount
}

// UpstreamError wraps a failure of a collaborator such as the content store
type UpstreamError struct {
	Collaborator string
	Err          error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func NewUpstreamError(collaborator string, err error) *UpstreamError {
	return &UpstreamError{Collaborator: collaborator, Err: err}
}

// PermissionError is returned when a user acts on a resource they do not own
type PermissionError struct {
	UserID     string
	ResourceID string
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}
