package validator

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validAttemptID() string {
	return strings.Repeat("ab", 20)
}

func TestValidator_StartModuleAttempt(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		req     StartModuleAttemptRequest
		wantErr bool
		field   string
	}{
		{
			name: "valid request",
			req:  StartModuleAttemptRequest{CourseID: "64f0c1", ModuleID: "module-1", ModuleName: "Road Signs"},
		},
		{
			name:    "missing course",
			req:     StartModuleAttemptRequest{ModuleID: "module-1"},
			wantErr: true,
			field:   "CourseID",
		},
		{
			name:    "colon in module id",
			req:     StartModuleAttemptRequest{CourseID: "c1", ModuleID: "a:b"},
			wantErr: true,
			field:   "ModuleID",
		},
		{
			name:    "id too long",
			req:     StartModuleAttemptRequest{CourseID: strings.Repeat("x", 65), ModuleID: "m1"},
			wantErr: true,
			field:   "CourseID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			if verrs[0].Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, verrs[0].Field)
			}
		})
	}
}

func TestValidator_ValidateSubmission(t *testing.T) {
	v := New()
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	before := start.Add(-time.Minute)
	percent := 120.0

	tests := []struct {
		name    string
		mutate  func(r *SubmitAttemptRequest)
		wantErr bool
		rule    string
	}{
		{name: "valid", mutate: func(r *SubmitAttemptRequest) {}},
		{
			name:    "bad attempt id",
			mutate:  func(r *SubmitAttemptRequest) { r.AttemptID = "not-hex" },
			wantErr: true,
			rule:    "hexadecimal",
		},
		{
			name:    "final sentinel module is accepted",
			mutate:  func(r *SubmitAttemptRequest) { r.ModuleID = "final" },
			wantErr: false,
		},
		{
			name:    "percent out of range",
			mutate:  func(r *SubmitAttemptRequest) { r.Percent = &percent },
			wantErr: true,
			rule:    "max",
		},
		{
			name:    "earned above total",
			mutate:  func(r *SubmitAttemptRequest) { r.ScoreEarned = 11 },
			wantErr: true,
			rule:    "score_bounds",
		},
		{
			name:    "submitted before started",
			mutate:  func(r *SubmitAttemptRequest) { r.SubmittedAt = &before },
			wantErr: true,
			rule:    "time_order",
		},
		{
			name: "unknown question type",
			mutate: func(r *SubmitAttemptRequest) {
				r.Questions[0].Type = "essay"
			},
			wantErr: true,
			rule:    "question_type",
		},
		{
			name: "duplicate question",
			mutate: func(r *SubmitAttemptRequest) {
				r.Questions = append(r.Questions, r.Questions[0])
			},
			wantErr: true,
			rule:    "unique",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := SubmitAttemptRequest{
				AttemptID:   validAttemptID(),
				StartedAt:   &start,
				ScoreEarned: 7,
				ScoreTotal:  10,
				Questions: []QuestionResultRequest{
					{QuestionID: "q1", Type: "mcq", IsCorrect: true, Score: 1},
				},
			}
			tt.mutate(&req)

			err := v.ValidateSubmission(&req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSubmission() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			verrs := err.(ValidationErrors)
			found := false
			for _, e := range verrs {
				if e.Rule == tt.rule {
					found = true
				}
			}
			if !found {
				t.Errorf("expected rule %s in %+v", tt.rule, verrs)
			}
		})
	}
}
