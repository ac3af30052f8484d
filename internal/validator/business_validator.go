package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
)

// entityIDPattern excludes ':' which separates the parts of an attempt key.
var entityIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator() *BusinessValidator {
	bv := &BusinessValidator{validate: validator.New()}
	bv.registerBusinessRules()
	return bv
}

// Validate validates struct tags for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateSubmission validates a submission payload
func (bv *BusinessValidator) ValidateSubmission(req *SubmitAttemptRequest) ValidationErrors {
	var errs ValidationErrors

	errs = append(errs, bv.Validate(req)...)
	errs = append(errs, bv.validateSubmissionRules(req)...)

	return errs
}

func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("entity_id", func(fl validator.FieldLevel) bool {
		return entityIDPattern.MatchString(fl.Field().String())
	})

	// a module id, or the final exam sentinel
	bv.validate.RegisterValidation("module_id", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if models.ParseModuleRef(value).IsFinal() {
			return true
		}
		return entityIDPattern.MatchString(value)
	})

	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		switch models.QuestionType(fl.Field().String()) {
		case models.QuestionMCQ, models.QuestionTrueFalse:
			return true
		}
		return false
	})
}

func (bv *BusinessValidator) validateSubmissionRules(req *SubmitAttemptRequest) ValidationErrors {
	var errs ValidationErrors

	if req.ScoreEarned > req.ScoreTotal && req.ScoreTotal > 0 {
		errs = append(errs, ValidationError{
			Field:   "score_earned",
			Message: fmt.Sprintf("cannot exceed score_total (%g)", req.ScoreTotal),
			Value:   req.ScoreEarned,
			Rule:    "score_bounds",
		})
	}

	if req.StartedAt != nil && req.SubmittedAt != nil && req.SubmittedAt.Before(*req.StartedAt) {
		errs = append(errs, ValidationError{
			Field:   "submitted_at",
			Message: "cannot be before started_at",
			Value:   req.SubmittedAt,
			Rule:    "time_order",
		})
	}

	seen := make(map[string]bool, len(req.Questions))
	for i, q := range req.Questions {
		id := strings.TrimSpace(q.QuestionID)
		if id == "" {
			continue
		}
		if seen[id] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("questions[%d].question_id", i),
				Message: "duplicate question id",
				Value:   id,
				Rule:    "unique",
			})
		}
		seen[id] = true
	}

	return errs
}
