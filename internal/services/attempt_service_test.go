package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

func repositoriesFilters(learnerID *string, limit int) repositories.AttemptFilters {
	return repositories.AttemptFilters{LearnerID: learnerID, Limit: limit}
}

func TestAttemptService_ConcurrentStartCollapses(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedCourse("c1", testModule{ID: "m1", Name: "Parking", Questions: 4})

	const callers = 16
	responses := make([]*AttemptResponse, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := env.services.Attempt().StartModule(context.Background(),
				&StartModuleAttemptRequest{CourseID: "c1", ModuleID: "m1"}, "learner-1")
			if err != nil {
				t.Errorf("StartModule failed: %v", err)
				return
			}
			responses[i] = resp
		}(i)
	}
	wg.Wait()

	for _, resp := range responses {
		if resp == nil {
			t.Fatal("missing response")
		}
		if resp.AttemptID != responses[0].AttemptID || resp.AttemptNumber != 1 {
			t.Errorf("expected every caller to observe attempt 1 of %s, got %s #%d",
				responses[0].AttemptID, resp.AttemptID, resp.AttemptNumber)
		}
	}
	if got := env.countAttempts(t); got != 1 {
		t.Errorf("expected one attempt row, got %d", got)
	}
	if got := len(env.publisher.EventsOfType(string(models.ActivityAssessmentStarted))); got != 1 {
		t.Errorf("expected one ASSESSMENT_STARTED event, got %d", got)
	}
}

func TestAttemptService_StartAfterSubmitOpensNextAttempt(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedCourse("c1", testModule{ID: "m1", Name: "Parking", Questions: 4})
	ctx := context.Background()

	first := env.completeModule(t, "learner-1", "c1", "m1", 85)

	next, err := env.services.Attempt().StartModule(ctx, &StartModuleAttemptRequest{CourseID: "c1", ModuleID: "m1"}, "learner-1")
	if err != nil {
		t.Fatalf("StartModule failed: %v", err)
	}
	if next.AttemptNumber != 2 || next.AttemptID != first.AttemptID || next.Resumed {
		t.Fatalf("expected fresh attempt 2 in the same lineage, got %+v", next)
	}

	again, err := env.services.Attempt().StartModule(ctx, &StartModuleAttemptRequest{CourseID: "c1", ModuleID: "m1"}, "learner-1")
	if err != nil {
		t.Fatalf("StartModule failed: %v", err)
	}
	if again.AttemptNumber != 2 || !again.Resumed {
		t.Errorf("expected started attempt 2 to be resumed, got %+v", again)
	}

	// the new row carries the lineage best
	resp := env.submit(t, "learner-1", next.AttemptID, 50)
	if resp.Attempt.AttemptNumber != 2 || resp.Attempt.BestPercent != 85 || resp.Attempt.BestLetterGrade != models.GradeB {
		t.Errorf("expected attempt 2 with inherited best 85/B, got #%d %v/%s",
			resp.Attempt.AttemptNumber, resp.Attempt.BestPercent, resp.Attempt.BestLetterGrade)
	}
}

func TestAttemptService_BestIsNonDecreasing(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedCourse("c1", testModule{ID: "m1", Name: "Parking", Questions: 4})

	started, err := env.services.Attempt().StartModule(context.Background(),
		&StartModuleAttemptRequest{CourseID: "c1", ModuleID: "m1", ModuleName: "Parking"}, "learner-1")
	if err != nil {
		t.Fatalf("StartModule failed: %v", err)
	}

	tests := []struct {
		percent     float64
		expectBest  float64
		expectGrade models.LetterGrade
		expectFirst bool
	}{
		{percent: 40, expectBest: 40, expectGrade: models.GradeF, expectFirst: true},
		{percent: 90, expectBest: 90, expectGrade: models.GradeA},
		{percent: 55, expectBest: 90, expectGrade: models.GradeA},
	}

	for _, tt := range tests {
		resp := env.submit(t, "learner-1", started.AttemptID, tt.percent)
		a := resp.Attempt
		if a.Percent != tt.percent {
			t.Errorf("expected percent %v, got %v", tt.percent, a.Percent)
		}
		if a.BestPercent != tt.expectBest || a.BestLetterGrade != tt.expectGrade {
			t.Errorf("after %v expected best %v/%s, got %v/%s", tt.percent, tt.expectBest, tt.expectGrade, a.BestPercent, a.BestLetterGrade)
		}
		if a.BestPercent < a.Percent {
			t.Errorf("best %v below percent %v", a.BestPercent, a.Percent)
		}
		if resp.FirstSubmission != tt.expectFirst {
			t.Errorf("expected first submission %v, got %v", tt.expectFirst, resp.FirstSubmission)
		}
		if a.AttemptNumber != 1 {
			t.Errorf("resubmission must update attempt 1 in place, got %d", a.AttemptNumber)
		}
	}

	if got := len(env.publisher.EventsOfType(string(models.ActivityAssessmentSubmitted))); got != 1 {
		t.Errorf("expected one ASSESSMENT_SUBMITTED event, got %d", got)
	}
	if got := len(env.publisher.EventsOfType(string(models.ActivityAssessmentUpdated))); got != 2 {
		t.Errorf("expected two ASSESSMENT_UPDATED events, got %d", got)
	}
}

func TestAttemptService_SubmitErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedCourse("c1", testModule{ID: "m1", Name: "Parking", Questions: 4})
	ctx := context.Background()

	started, err := env.services.Attempt().StartModule(ctx, &StartModuleAttemptRequest{CourseID: "c1", ModuleID: "m1"}, "owner")
	if err != nil {
		t.Fatalf("StartModule failed: %v", err)
	}
	percent := 70.0

	tests := []struct {
		name    string
		req     *SubmitAttemptRequest
		learner string
		check   func(error) bool
	}{
		{
			name:    "unknown attempt",
			req:     &SubmitAttemptRequest{AttemptID: models.ComputeAttemptID("never-started"), Percent: &percent},
			learner: "owner",
			check:   func(err error) bool { return errors.Is(err, ErrAttemptNotFound) },
		},
		{
			name:    "other learner",
			req:     &SubmitAttemptRequest{AttemptID: started.AttemptID, Percent: &percent},
			learner: "intruder",
			check: func(err error) bool {
				var pe *PermissionError
				return errors.As(err, &pe)
			},
		},
		{
			name:    "malformed attempt id",
			req:     &SubmitAttemptRequest{AttemptID: "xyz"},
			learner: "owner",
			check: func(err error) bool {
				var ve ValidationErrors
				return errors.As(err, &ve)
			},
		},
		{
			name:    "course mismatch",
			req:     &SubmitAttemptRequest{AttemptID: started.AttemptID, CourseID: "c2", Percent: &percent},
			learner: "owner",
			check:   func(err error) bool { return errors.Is(err, ErrValidationFailed) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.services.Attempt().Submit(ctx, tt.req, tt.learner)
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	// nothing was written by the failed submissions
	if got := env.countAttempts(t); got != 1 {
		t.Errorf("expected one row, got %d", got)
	}
	latest, err := env.store.Attempt().GetLatestByAttemptID(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("GetLatestByAttemptID failed: %v", err)
	}
	if latest.State != models.AttemptStarted || latest.SubmittedAt != nil {
		t.Errorf("expected attempt to remain started, got %s", latest.State)
	}
}

func TestAttemptService_StartModuleRejectsFinalSentinel(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.services.Attempt().StartModule(context.Background(),
		&StartModuleAttemptRequest{CourseID: "c1", ModuleID: "final"}, "learner-1")
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected validation failure, got %v", err)
	}
}

func TestAttemptService_ListScopesLearners(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedCourse("c1",
		testModule{ID: "m1", Name: "Parking", Questions: 4},
		testModule{ID: "m2", Name: "Lanes", Questions: 4},
	)
	env.completeModule(t, "alice", "c1", "m1", 80)
	env.completeModule(t, "alice", "c1", "m2", 70)
	env.completeModule(t, "bob", "c1", "m1", 65)
	ctx := context.Background()

	learner := &models.User{ID: "alice", Role: models.RoleLearner}
	teacher := &models.User{ID: "t1", Role: models.RoleTeacher}
	bob := "bob"

	own, err := env.services.Attempt().List(ctx, repositoriesFilters(nil, 0), learner)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if own.Total != 2 || own.Limit != defaultListLimit {
		t.Errorf("expected alice's 2 rows with default limit, got %d limit %d", own.Total, own.Limit)
	}

	if _, err := env.services.Attempt().List(ctx, repositoriesFilters(&bob, 0), learner); err == nil {
		t.Error("expected learner to be refused other learners' submissions")
	}

	all, err := env.services.Attempt().List(ctx, repositoriesFilters(nil, 1000), teacher)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if all.Total != 3 || all.Limit != 200 {
		t.Errorf("expected 3 rows and clamped limit, got %d limit %d", all.Total, all.Limit)
	}

	if _, err := env.services.Attempt().GetByAttemptID(ctx, all.Submissions[0].AttemptID, teacher); err != nil {
		t.Errorf("teacher should read any attempt: %v", err)
	}
}
