package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/SAP-F-2025/learning-assessment/internal/events"
	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories/memory"
)

func passAllModules(t *testing.T, env *testEnv, learnerID string) {
	t.Helper()
	for _, m := range []string{"rs", "m2", "m3"} {
		env.completeModule(t, learnerID, "c1", m, 85)
	}
}

func TestCompletionService_FinalFlow(t *testing.T) {
	env := newTestEnv(t, newRedisCache(t))
	seedDrivingCourse(env)
	ctx := context.Background()
	passAllModules(t, env, "learner-1")

	final, err := env.services.Attempt().StartFinal(ctx, &StartFinalAttemptRequest{CourseID: "c1"}, "learner-1")
	if err != nil {
		t.Fatalf("StartFinal failed: %v", err)
	}
	if final.Resumed || final.Rule != RuleRoadSignsPlusOthers || len(final.QuestionIDs) != 10 || !final.ModuleRef.IsFinal() {
		t.Fatalf("unexpected final attempt: %+v", final)
	}

	resumed, err := env.services.Attempt().StartFinal(ctx, &StartFinalAttemptRequest{CourseID: "c1"}, "learner-1")
	if err != nil {
		t.Fatalf("StartFinal failed: %v", err)
	}
	if !resumed.Resumed || resumed.AttemptNumber != 1 {
		t.Fatalf("expected the started final to resume, got %+v", resumed)
	}
	for i := range final.QuestionIDs {
		if resumed.QuestionIDs[i] != final.QuestionIDs[i] {
			t.Fatalf("resumed final must keep its questions, got %v want %v", resumed.QuestionIDs, final.QuestionIDs)
		}
	}

	failed := env.submit(t, "learner-1", final.AttemptID, 40)
	if failed.Completion != nil {
		t.Errorf("a failing final must not complete the course, got %+v", failed.Completion)
	}

	passed := env.submit(t, "learner-1", final.AttemptID, 90)
	if passed.Completion == nil || !passed.Completion.Completed || !passed.Completion.NewlyCompleted {
		t.Fatalf("expected a new completion, got %+v", passed.Completion)
	}
	if len(passed.Completion.CertificateID) != 8 || passed.Completion.CertificateStatus != models.CertificateIssued {
		t.Errorf("unexpected certificate: %+v", passed.Completion)
	}

	again := env.submit(t, "learner-1", final.AttemptID, 95)
	if again.Completion == nil || !again.Completion.Completed || again.Completion.NewlyCompleted {
		t.Fatalf("expected a repeated completion, got %+v", again.Completion)
	}
	if again.Completion.CertificateID != passed.Completion.CertificateID {
		t.Errorf("certificate changed from %s to %s", passed.Completion.CertificateID, again.Completion.CertificateID)
	}

	progress, err := env.store.Completion().GetLearnerProgress(ctx, "learner-1")
	if err != nil {
		t.Fatalf("GetLearnerProgress failed: %v", err)
	}
	if progress.CompletedCourses != 1 {
		t.Errorf("expected one completed course, got %d", progress.CompletedCourses)
	}
	if passed.Completion.CompletedCourses != 1 || again.Completion.CompletedCourses != 1 {
		t.Errorf("expected outcomes to report one completed course, got %d and %d",
			passed.Completion.CompletedCourses, again.Completion.CompletedCourses)
	}

	if got := len(env.publisher.EventsOfType(string(models.ActivityCourseCompleted))); got != 1 {
		t.Errorf("expected COURSE_COMPLETED once, got %d", got)
	}
	if got := len(env.publisher.EventsOfType(events.EventCertificateIssued)); got != 1 {
		t.Errorf("expected CERTIFICATE_ISSUED once, got %d", got)
	}
	if got := len(env.publisher.EventsOfType(string(models.ActivityFinalStarted))); got != 1 {
		t.Errorf("expected FINAL_STARTED once, got %d", got)
	}

	certificate, err := env.services.Completion().GetCertificate(ctx, "learner-1", "c1")
	if err != nil {
		t.Fatalf("GetCertificate failed: %v", err)
	}
	if certificate.CertificateID != passed.Completion.CertificateID {
		t.Errorf("expected certificate %s, got %s", passed.Completion.CertificateID, certificate.CertificateID)
	}

	// the next final is a new numbered attempt
	next, err := env.services.Attempt().StartFinal(ctx, &StartFinalAttemptRequest{CourseID: "c1"}, "learner-1")
	if err != nil {
		t.Fatalf("StartFinal failed: %v", err)
	}
	if next.AttemptNumber != 2 || next.Resumed {
		t.Errorf("expected final attempt 2, got %+v", next)
	}
}

func TestCompletionService_FinalCompositionFailureLeavesNoRow(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedCourse("c1",
		testModule{ID: "rs", Name: "Road Signs", Questions: 5},
		testModule{ID: "m2", Name: "Parking", Questions: 6},
	)
	env.completeModule(t, "learner-1", "c1", "rs", 90)
	env.completeModule(t, "learner-1", "c1", "m2", 90)
	before := env.countAttempts(t)

	_, err := env.services.Attempt().StartFinal(context.Background(), &StartFinalAttemptRequest{CourseID: "c1"}, "learner-1")
	if !errors.Is(err, ErrInsufficientQuestions) {
		t.Fatalf("expected ErrInsufficientQuestions, got %v", err)
	}
	if after := env.countAttempts(t); after != before {
		t.Errorf("expected no new rows, had %d now %d", before, after)
	}
}

type brokenCertificates struct{}

func (brokenCertificates) CreateIfAbsent(ctx context.Context, certificate *models.Certificate) (bool, error) {
	return false, errors.New("certificate store down")
}

func (brokenCertificates) GetByLearnerCourse(ctx context.Context, learnerID, courseID string) (*models.Certificate, error) {
	return nil, errors.New("certificate store down")
}

// storeWithBrokenCertificates fails every certificate call
type storeWithBrokenCertificates struct {
	*memory.Store
}

func (storeWithBrokenCertificates) Certificate() repositories.CertificateRepository {
	return brokenCertificates{}
}

func TestCompletionService_CertificateFailureIsPending(t *testing.T) {
	store := memory.NewStore(rand.New(rand.NewPCG(3, 5)))
	env := newTestEnvWithRepo(t, store, storeWithBrokenCertificates{Store: store}, nil)
	seedDrivingCourse(env)
	ctx := context.Background()
	passAllModules(t, env, "learner-1")

	final, err := env.services.Attempt().StartFinal(ctx, &StartFinalAttemptRequest{CourseID: "c1"}, "learner-1")
	if err != nil {
		t.Fatalf("StartFinal failed: %v", err)
	}

	resp := env.submit(t, "learner-1", final.AttemptID, 100)
	if resp.Completion == nil || !resp.Completion.Completed {
		t.Fatalf("expected completion despite certificate failure, got %+v", resp.Completion)
	}
	if resp.Completion.CertificateStatus != models.CertificatePending || resp.Completion.CertificateID != "" {
		t.Errorf("expected pending certificate, got %+v", resp.Completion)
	}
	if resp.Attempt.BestPercent != 100 {
		t.Errorf("submission must be committed, got best %v", resp.Attempt.BestPercent)
	}

	completion, err := store.Completion().GetByLearnerCourse(ctx, "learner-1", "c1")
	if err != nil {
		t.Fatalf("expected completion to be recorded: %v", err)
	}
	if completion.FinalAttemptID != final.AttemptID {
		t.Errorf("expected completion for %s, got %s", final.AttemptID, completion.FinalAttemptID)
	}
}

func TestCompletionService_TriggerIgnoresModuleAttempts(t *testing.T) {
	env := newTestEnv(t, nil)
	seedDrivingCourse(env)
	attempt := env.completeModule(t, "learner-1", "c1", "rs", 100)

	outcome, err := env.services.Completion().Trigger(context.Background(), attempt)
	if err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if outcome.Completed {
		t.Error("a module attempt never completes the course")
	}
	if _, err := env.services.Completion().GetCertificate(context.Background(), "learner-1", "c1"); !errors.Is(err, ErrCertificateNotFound) {
		t.Errorf("expected ErrCertificateNotFound, got %v", err)
	}
}

// collidingCertificates reports an id collision on the first insert
type collidingCertificates struct {
	repositories.CertificateRepository
	attempts *int
}

func (c collidingCertificates) CreateIfAbsent(ctx context.Context, certificate *models.Certificate) (bool, error) {
	*c.attempts++
	if *c.attempts == 1 {
		return false, repositories.ErrDuplicateKey
	}
	return c.CertificateRepository.CreateIfAbsent(ctx, certificate)
}

type storeWithCollidingCertificates struct {
	*memory.Store
	attempts *int
}

func (s storeWithCollidingCertificates) Certificate() repositories.CertificateRepository {
	return collidingCertificates{CertificateRepository: s.Store.Certificate(), attempts: s.attempts}
}

func TestCompletionService_CertificateIDCollisionRetries(t *testing.T) {
	store := memory.NewStore(rand.New(rand.NewPCG(3, 5)))
	var attempts int
	env := newTestEnvWithRepo(t, store, storeWithCollidingCertificates{Store: store, attempts: &attempts}, nil)
	seedDrivingCourse(env)
	ctx := context.Background()
	passAllModules(t, env, "learner-1")

	final, err := env.services.Attempt().StartFinal(ctx, &StartFinalAttemptRequest{CourseID: "c1"}, "learner-1")
	if err != nil {
		t.Fatalf("StartFinal failed: %v", err)
	}

	resp := env.submit(t, "learner-1", final.AttemptID, 100)
	if resp.Completion == nil || resp.Completion.CertificateStatus != models.CertificateIssued {
		t.Fatalf("expected an issued certificate after retry, got %+v", resp.Completion)
	}
	if len(resp.Completion.CertificateID) != 8 {
		t.Errorf("expected 8 character certificate id, got %q", resp.Completion.CertificateID)
	}
	if attempts != 2 {
		t.Errorf("expected 2 insert attempts, got %d", attempts)
	}
}
