package memory

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

// Store is an in-process Repository used for local development and tests.
// All state lives behind one mutex.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	nextID       uint
	attempts     []*models.Attempt
	completions  map[string]*models.CourseCompletion
	progress     map[string]*models.LearnerProgress
	certificates map[string]*models.Certificate

	courses   map[string][]models.CourseModule
	questions map[string][]models.QuestionRef
	rng       *rand.Rand

	attempt     *attemptStore
	completion  *completionStore
	certificate *certificateStore
	content     *contentStore
}

// NewStore creates an empty store. rng drives question sampling; nil seeds one.
func NewStore(rng *rand.Rand) *Store {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := &Store{
		completions:  make(map[string]*models.CourseCompletion),
		progress:     make(map[string]*models.LearnerProgress),
		certificates: make(map[string]*models.Certificate),
		courses:      make(map[string][]models.CourseModule),
		questions:    make(map[string][]models.QuestionRef),
		rng:          rng,
	}
	s.attempt = &attemptStore{s: s}
	s.completion = &completionStore{s: s}
	s.certificate = &certificateStore{s: s}
	s.content = &contentStore{s: s}
	return s
}

func (s *Store) Attempt() repositories.AttemptRepository         { return s.attempt }
func (s *Store) Completion() repositories.CompletionRepository   { return s.completion }
func (s *Store) Certificate() repositories.CertificateRepository { return s.certificate }
func (s *Store) Content() repositories.ContentRepository         { return s.content }

// WithTransaction serializes transactions and restores completion state when fn
// fails. Attempts written inside fn are kept.
func (s *Store) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

type snapshot struct {
	completions  map[string]*models.CourseCompletion
	progress     map[string]*models.LearnerProgress
	certificates map[string]*models.Certificate
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		completions:  make(map[string]*models.CourseCompletion, len(s.completions)),
		progress:     make(map[string]*models.LearnerProgress, len(s.progress)),
		certificates: make(map[string]*models.Certificate, len(s.certificates)),
	}
	for k, v := range s.completions {
		c := *v
		snap.completions[k] = &c
	}
	for k, v := range s.progress {
		p := *v
		snap.progress[k] = &p
	}
	for k, v := range s.certificates {
		c := *v
		snap.certificates[k] = &c
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completions = snap.completions
	s.progress = snap.progress
	s.certificates = snap.certificates
}

// AddCourse registers a course with its modules in order.
func (s *Store) AddCourse(courseID string, modules ...models.CourseModule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[courseID] = append([]models.CourseModule(nil), modules...)
}

// AddQuestions adds questions to the bank of their module.
func (s *Store) AddQuestions(questions ...models.QuestionRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		s.questions[q.ModuleID] = append(s.questions[q.ModuleID], q)
	}
}

func learnerCourseKey(learnerID, courseID string) string {
	return learnerID + "|" + courseID
}

// Manager adapts a Store to the RepositoryManager lifecycle.
type Manager struct {
	store *Store
}

func NewManager(store *Store) repositories.RepositoryManager {
	return &Manager{store: store}
}

func (m *Manager) Initialize() error                      { return nil }
func (m *Manager) GetRepository() repositories.Repository { return m.store }

func (m *Manager) HealthCheck(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func (m *Manager) Shutdown(ctx context.Context) error {
	return m.store.Close()
}
