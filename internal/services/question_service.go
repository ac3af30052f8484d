package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

const (
	roadSignsQuota     = 6
	otherModulesQuota  = models.FinalExamSize - roadSignsQuota
	perModuleFinalTake = 4
)

type questionService struct {
	repo   repositories.Repository
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewQuestionService creates the final exam sampler. rng must not be shared
// with other goroutines without the service's lock; nil seeds a fresh one.
func NewQuestionService(repo repositories.Repository, logger *slog.Logger, rng *rand.Rand) QuestionService {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &questionService{
		repo:   repo,
		logger: logger,
		rng:    rng,
	}
}

// ComposeFinal draws the 10 question ids of a new final attempt. Nothing is
// persisted here; any failure leaves no trace.
func (s *questionService) ComposeFinal(ctx context.Context, courseID string) (*FinalComposition, error) {
	modules, err := s.repo.Content().GetCourseModules(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, NewUpstreamError("content store", err)
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("course %s has no modules: %w", courseID, ErrInsufficientQuestions)
	}

	var composition *FinalComposition
	if idx := slices.IndexFunc(modules, models.CourseModule.IsRoadSigns); idx >= 0 {
		composition, err = s.composeRoadSigns(ctx, modules[idx], slices.Delete(slices.Clone(modules), idx, idx+1))
	} else {
		composition, err = s.composeAcrossModules(ctx, modules)
	}
	if err != nil {
		return nil, err
	}

	s.shuffle(composition.QuestionIDs)
	if err := verifyComposition(composition.QuestionIDs); err != nil {
		return nil, err
	}

	s.logger.Info("Final exam composed",
		"course_id", courseID,
		"rule", composition.Rule,
		"question_count", len(composition.QuestionIDs))

	return composition, nil
}

func (s *questionService) composeRoadSigns(ctx context.Context, roadSigns models.CourseModule, others []models.CourseModule) (*FinalComposition, error) {
	roadIDs, err := s.sample(ctx, roadSigns.ID, roadSignsQuota)
	if err != nil {
		return nil, err
	}
	picked := newIDSet(roadIDs)
	if picked.len() < roadSignsQuota {
		return nil, fmt.Errorf("road signs module has %d active questions, need %d: %w",
			picked.len(), roadSignsQuota, ErrInsufficientQuestions)
	}

	s.shuffleModules(others)
	otherCount := 0
	for _, m := range others {
		need := otherModulesQuota - otherCount
		if need == 0 {
			break
		}
		ids, err := s.sample(ctx, m.ID, min(perModuleFinalTake, need))
		if err != nil {
			return nil, err
		}
		otherCount += picked.addUpTo(ids, need)
	}
	if otherCount < otherModulesQuota {
		return nil, fmt.Errorf("other modules have %d active questions, need %d: %w",
			otherCount, otherModulesQuota, ErrInsufficientQuestions)
	}

	return &FinalComposition{QuestionIDs: picked.ids, Rule: RuleRoadSignsPlusOthers}, nil
}

func (s *questionService) composeAcrossModules(ctx context.Context, modules []models.CourseModule) (*FinalComposition, error) {
	order := slices.Clone(modules)
	s.shuffleModules(order)

	picked := newIDSet(nil)
	for _, m := range order {
		need := models.FinalExamSize - picked.len()
		if need == 0 {
			break
		}
		ids, err := s.sample(ctx, m.ID, min(perModuleFinalTake, need))
		if err != nil {
			return nil, err
		}
		picked.addUpTo(ids, need)
	}

	if picked.len() < models.FinalExamSize {
		moduleIDs := make([]string, len(modules))
		for i, m := range modules {
			moduleIDs[i] = m.ID
		}

		pooled, err := s.repo.Content().SampleActiveQuestionsAcross(ctx, moduleIDs, models.FinalExamSize)
		if err != nil {
			return nil, NewUpstreamError("content store", err)
		}
		picked = newIDSet(nil)
		picked.addUpTo(pooled, models.FinalExamSize)
		if picked.len() < models.FinalExamSize {
			return nil, fmt.Errorf("course has %d active questions, need %d: %w",
				picked.len(), models.FinalExamSize, ErrInsufficientQuestions)
		}
	}

	return &FinalComposition{QuestionIDs: picked.ids, Rule: RuleAllModules}, nil
}

func (s *questionService) sample(ctx context.Context, moduleID string, n int) ([]string, error) {
	ids, err := s.repo.Content().SampleActiveQuestions(ctx, moduleID, n)
	if err != nil {
		return nil, NewUpstreamError("content store", err)
	}
	return ids, nil
}

func (s *questionService) shuffle(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
}

func (s *questionService) shuffleModules(modules []models.CourseModule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(modules), func(i, j int) { modules[i], modules[j] = modules[j], modules[i] })
}

func verifyComposition(ids []string) error {
	if len(ids) != models.FinalExamSize {
		return fmt.Errorf("composed %d questions, need %d: %w", len(ids), models.FinalExamSize, ErrInsufficientQuestions)
	}
	if newIDSet(ids).len() != len(ids) {
		return fmt.Errorf("composition contains duplicate questions: %w", ErrInsufficientQuestions)
	}
	return nil
}

// idSet keeps insertion order and rejects duplicates
type idSet struct {
	ids  []string
	seen map[string]bool
}

func newIDSet(ids []string) *idSet {
	s := &idSet{seen: make(map[string]bool, models.FinalExamSize)}
	s.addUpTo(ids, len(ids))
	return s
}

// addUpTo adds at most limit new ids and returns how many were added
func (s *idSet) addUpTo(ids []string, limit int) int {
	added := 0
	for _, id := range ids {
		if added == limit {
			break
		}
		if id == "" || s.seen[id] {
			continue
		}
		s.seen[id] = true
		s.ids = append(s.ids, id)
		added++
	}
	return added
}

func (s *idSet) len() int {
	return len(s.ids)
}
