package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/SAP-F-2025/learning-assessment/internal/cache"
	"github.com/SAP-F-2025/learning-assessment/internal/events"
	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories/memory"
	"github.com/SAP-F-2025/learning-assessment/internal/validator"
)

type testModule struct {
	ID        string
	Name      string
	Questions int
}

type testEnv struct {
	store     *memory.Store
	publisher *events.MockEventPublisher
	services  ServiceManager
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, cacheManager *cache.CacheManager) *testEnv {
	t.Helper()
	return newTestEnvWithRepo(t, memory.NewStore(rand.New(rand.NewPCG(7, 11))), nil, cacheManager)
}

// newTestEnvWithRepo lets a test wrap the store; repo defaults to the store itself
func newTestEnvWithRepo(t *testing.T, store *memory.Store, repo repositories.Repository, cacheManager *cache.CacheManager) *testEnv {
	t.Helper()
	if repo == nil {
		repo = store
	}
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}

	publisher := events.NewMockEventPublisher(discardLogger())
	sm := NewServiceManager(ServiceManagerDeps{
		Repo:      repo,
		Cache:     cacheManager,
		Publisher: publisher,
		Logger:    discardLogger(),
		Validator: validator.New(),
		Rng:       rand.New(rand.NewPCG(1, 2)),
	}, DefaultServiceManagerConfig())
	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	return &testEnv{store: store, publisher: publisher, services: sm}
}

// seedCourse registers a course whose modules hold the given number of
// active questions, ids "<module>-q<n>"
func (e *testEnv) seedCourse(courseID string, modules ...testModule) {
	courseModules := make([]models.CourseModule, 0, len(modules))
	for _, m := range modules {
		courseModules = append(courseModules, models.CourseModule{ID: m.ID, Name: m.Name})
		for i := 0; i < m.Questions; i++ {
			e.store.AddQuestions(models.QuestionRef{
				ID:       fmt.Sprintf("%s-q%d", m.ID, i),
				ModuleID: m.ID,
				Type:     models.QuestionMCQ,
				Active:   true,
			})
		}
		// an inactive question is never sampled
		e.store.AddQuestions(models.QuestionRef{ID: m.ID + "-inactive", ModuleID: m.ID, Active: false})
	}
	e.store.AddCourse(courseID, courseModules...)
}

// completeModule starts and submits a module attempt with the given percent
func (e *testEnv) completeModule(t *testing.T, learnerID, courseID, moduleID string, percent float64) *models.Attempt {
	t.Helper()
	ctx := context.Background()

	started, err := e.services.Attempt().StartModule(ctx, &StartModuleAttemptRequest{CourseID: courseID, ModuleID: moduleID}, learnerID)
	if err != nil {
		t.Fatalf("StartModule failed: %v", err)
	}
	return e.submit(t, learnerID, started.AttemptID, percent).Attempt
}

func (e *testEnv) submit(t *testing.T, learnerID, attemptID string, percent float64) *SubmitAttemptResponse {
	t.Helper()
	resp, err := e.services.Attempt().Submit(context.Background(), &SubmitAttemptRequest{
		AttemptID:   attemptID,
		ScoreEarned: percent / 10,
		ScoreTotal:  10,
		Percent:     &percent,
	}, learnerID)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return resp
}

func (e *testEnv) countAttempts(t *testing.T) int64 {
	t.Helper()
	_, total, err := e.store.Attempt().List(context.Background(), repositories.AttemptFilters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	return total
}
