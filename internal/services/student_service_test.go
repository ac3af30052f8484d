package services

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/learning-assessment/internal/cache"
	"github.com/SAP-F-2025/learning-assessment/internal/models"
)

func newRedisCache(t *testing.T) *cache.CacheManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewCacheManager(client)
}

func seedDrivingCourse(env *testEnv) {
	env.seedCourse("c1",
		testModule{ID: "rs", Name: "Road Signs", Questions: 8},
		testModule{ID: "m2", Name: "Parking", Questions: 3},
		testModule{ID: "m3", Name: "Lanes", Questions: 3},
	)
}

func TestStudentService_FinalGate(t *testing.T) {
	env := newTestEnv(t, newRedisCache(t))
	seedDrivingCourse(env)
	ctx := context.Background()

	status, err := env.services.Student().GetFinalUnlockStatus(ctx, "learner-1", "c1")
	if err != nil {
		t.Fatalf("GetFinalUnlockStatus failed: %v", err)
	}
	if status.Unlocked || status.TotalModules != 3 || status.PassedCount != 0 || status.FailedCount != 0 {
		t.Fatalf("unexpected initial status: %+v", status)
	}

	env.completeModule(t, "learner-1", "c1", "rs", 80)
	env.completeModule(t, "learner-1", "c1", "m2", 60)
	failing := env.completeModule(t, "learner-1", "c1", "m3", 40)

	// a started attempt does not count towards the gate
	if _, err := env.services.Attempt().StartModule(ctx, &StartModuleAttemptRequest{CourseID: "c1", ModuleID: "m3"}, "learner-1"); err != nil {
		t.Fatalf("StartModule failed: %v", err)
	}

	status, err = env.services.Student().GetFinalUnlockStatus(ctx, "learner-1", "c1")
	if err != nil {
		t.Fatalf("GetFinalUnlockStatus failed: %v", err)
	}
	if status.Unlocked || status.PassedCount != 2 || status.FailedCount != 1 {
		t.Fatalf("expected locked with 2 passed 1 failed, got %+v", status)
	}

	_, err = env.services.Attempt().StartFinal(ctx, &StartFinalAttemptRequest{CourseID: "c1"}, "learner-1")
	var locked *FinalLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected FinalLockedError, got %v", err)
	}
	if locked.PassedCount != 2 || locked.FailedCount != 1 || locked.TotalModules != 3 || locked.Remaining() != 1 {
		t.Errorf("unexpected lock counts: %+v", locked)
	}

	// passing the started retry unlocks the final
	retry, err := env.services.Attempt().StartModule(ctx, &StartModuleAttemptRequest{CourseID: "c1", ModuleID: "m3"}, "learner-1")
	if err != nil {
		t.Fatalf("StartModule failed: %v", err)
	}
	if retry.AttemptID != failing.AttemptID || retry.AttemptNumber != 2 {
		t.Fatalf("expected to resume attempt 2, got %+v", retry)
	}
	env.submit(t, "learner-1", retry.AttemptID, 75)

	for i := 0; i < 3; i++ {
		status, err = env.services.Student().GetFinalUnlockStatus(ctx, "learner-1", "c1")
		if err != nil {
			t.Fatalf("GetFinalUnlockStatus failed: %v", err)
		}
		if !status.Unlocked || status.PassedCount != 3 || status.FailedCount != 0 {
			t.Fatalf("expected unlocked, got %+v", status)
		}
	}

	if got := len(env.publisher.EventsOfType(string(models.ActivityFinalUnlocked))); got != 1 {
		t.Errorf("expected FINAL_UNLOCKED once, got %d", got)
	}
}

func TestStudentService_FinalGateUnknownCourse(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.services.Student().GetFinalUnlockStatus(context.Background(), "learner-1", "missing")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestStudentService_FinalGateEmptyCourse(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedCourse("empty")

	status, err := env.services.Student().GetFinalUnlockStatus(context.Background(), "learner-1", "empty")
	if err != nil {
		t.Fatalf("GetFinalUnlockStatus failed: %v", err)
	}
	if status.Unlocked {
		t.Error("a course without modules never unlocks the final")
	}
}

func TestStudentService_CourseStats(t *testing.T) {
	env := newTestEnv(t, nil)
	seedDrivingCourse(env)
	ctx := context.Background()

	env.completeModule(t, "learner-1", "c1", "rs", 80)
	env.completeModule(t, "learner-1", "c1", "m2", 50)
	env.completeModule(t, "learner-1", "c1", "m2", 70)
	// another learner never leaks into the stats
	env.completeModule(t, "learner-2", "c1", "m3", 100)

	stats, err := env.services.Student().GetCourseStats(ctx, "learner-1", "c1")
	if err != nil {
		t.Fatalf("GetCourseStats failed: %v", err)
	}

	expected := models.CourseStats{
		CourseID:           "c1",
		ModulesTotal:       3,
		ModulesAttempted:   2,
		ModulesPassed:      2,
		AssessmentsTaken:   3,
		ScoreEarnedTotal:   15,
		ScorePossibleTotal: 20,
		OverallPercentAvg:  50,
	}
	if *stats != expected {
		t.Errorf("expected %+v, got %+v", expected, *stats)
	}

	moduleStats, err := env.services.Student().GetCourseModuleStats(ctx, "learner-1", "c1")
	if err != nil {
		t.Fatalf("GetCourseModuleStats failed: %v", err)
	}
	if len(moduleStats.Modules) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(moduleStats.Modules))
	}
	for _, m := range moduleStats.Modules {
		switch m.ModuleID {
		case "m2":
			if !m.Attempted || m.Result.AttemptNumber != 2 || m.Result.Percent != 70 || m.Result.BestPercent != 70 {
				t.Errorf("unexpected m2 stat: %+v", m.Result)
			}
		case "m3":
			if m.Attempted || m.Result != nil {
				t.Errorf("m3 should be unattempted, got %+v", m.Result)
			}
		}
	}
}

func TestStudentService_LatestByModule(t *testing.T) {
	env := newTestEnv(t, nil)
	seedDrivingCourse(env)
	ctx := context.Background()

	env.completeModule(t, "learner-1", "c1", "rs", 90)
	if _, err := env.services.Attempt().StartModule(ctx, &StartModuleAttemptRequest{CourseID: "c1", ModuleID: "rs"}, "learner-1"); err != nil {
		t.Fatalf("StartModule failed: %v", err)
	}
	if _, err := env.services.Attempt().StartModule(ctx, &StartModuleAttemptRequest{CourseID: "c1", ModuleID: "m2"}, "learner-1"); err != nil {
		t.Fatalf("StartModule failed: %v", err)
	}

	results, err := env.services.Student().GetLatestByModule(ctx, "learner-1", "c1")
	if err != nil {
		t.Fatalf("GetLatestByModule failed: %v", err)
	}
	byModule := make(map[string]*models.ModuleResult)
	for _, r := range results {
		byModule[r.ModuleRef.String()] = r
	}

	if len(byModule) != 2 {
		t.Fatalf("expected 2 lineages, got %d", len(byModule))
	}
	if rs := byModule["rs"]; rs.State != models.AttemptSubmitted || rs.AttemptNumber != 1 || !rs.Passed || rs.BestGrade != models.GradeA {
		t.Errorf("expected the submitted road signs attempt to win, got %+v", rs)
	}
	if m2 := byModule["m2"]; m2.State != models.AttemptStarted || m2.Passed {
		t.Errorf("expected the started m2 attempt, got %+v", m2)
	}

	if _, err := env.services.Student().GetLatestFinal(ctx, "learner-1", "c1"); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("expected ErrAttemptNotFound for missing final, got %v", err)
	}
}
