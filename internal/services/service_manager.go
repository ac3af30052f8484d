package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/SAP-F-2025/learning-assessment/internal/cache"
	"github.com/SAP-F-2025/learning-assessment/internal/events"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
	"github.com/SAP-F-2025/learning-assessment/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	EnableExport bool

	// HealthCheckTimeout bounds the store ping of HealthCheck
	HealthCheckTimeout time.Duration
}

func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		EnableExport:       true,
		HealthCheckTimeout: 5 * time.Second,
	}
}

// ServiceManagerDeps are the collaborators shared by all services
type ServiceManagerDeps struct {
	Repo      repositories.Repository
	Cache     *cache.CacheManager
	Publisher events.EventPublisher
	Logger    *slog.Logger
	Validator *validator.Validator

	// Rng drives final exam sampling; nil seeds one at random
	Rng *rand.Rand
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   ServiceManagerDeps
	config ServiceManagerConfig
	logger *slog.Logger

	attemptService      AttemptService
	questionService     QuestionService
	gradingService      GradingService
	studentService      StudentService
	completionService   CompletionService
	importExportService ImportExportService
	activityRecorder    ActivityRecorder

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps ServiceManagerDeps, config ServiceManagerConfig) ServiceManager {
	if deps.Cache == nil {
		deps.Cache = cache.NewCacheManager(nil)
	}
	return &serviceManager{
		deps:   deps,
		config: config,
		logger: deps.Logger,
	}
}

func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if sm.deps.Repo == nil {
		return fmt.Errorf("failed to initialize services: repository is required")
	}
	if sm.deps.Validator == nil {
		sm.deps.Validator = validator.New()
	}

	sm.activityRecorder = NewActivityRecorder(sm.deps.Publisher, sm.logger)
	sm.gradingService = NewGradingService(sm.logger)
	sm.questionService = NewQuestionService(sm.deps.Repo, sm.logger, sm.deps.Rng)
	sm.studentService = NewStudentService(sm.deps.Repo, sm.deps.Cache, sm.activityRecorder, sm.logger)
	sm.completionService = NewCompletionService(sm.deps.Repo, sm.activityRecorder, sm.deps.Publisher, sm.logger)
	sm.attemptService = NewAttemptService(AttemptServiceDeps{
		Repo:       sm.deps.Repo,
		Question:   sm.questionService,
		Grading:    sm.gradingService,
		Student:    sm.studentService,
		Completion: sm.completionService,
		Activity:   sm.activityRecorder,
		Logger:     sm.logger,
		Validator:  sm.deps.Validator,
	})
	sm.logger.Info("Attempt services initialized")

	if sm.config.EnableExport {
		sm.importExportService = NewImportExportService(sm.deps.Repo, sm.logger)
		sm.logger.Info("ImportExport service initialized")
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.attemptService
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.questionService
}

func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.gradingService
}

func (sm *serviceManager) Student() StudentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.studentService
}

func (sm *serviceManager) Completion() CompletionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.completionService
}

func (sm *serviceManager) ImportExport() ImportExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	// nil when export is disabled
	if !sm.config.EnableExport || sm.importExportService == nil {
		return nil
	}
	return sm.importExportService
}

func (sm *serviceManager) Activity() ActivityRecorder {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.activityRecorder
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if sm.config.HealthCheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sm.config.HealthCheckTimeout)
		defer cancel()
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down successfully")
	return nil
}
