package cached

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/learning-assessment/internal/cache"
	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

// ContentRepository caches course module lists in Redis. Question sampling is
// never cached since every call must draw a fresh sample.
type ContentRepository struct {
	next  repositories.ContentRepository
	cache *cache.CacheManager
}

func NewContentRepository(next repositories.ContentRepository, cacheManager *cache.CacheManager) *ContentRepository {
	return &ContentRepository{
		next:  next,
		cache: cacheManager,
	}
}

func (r *ContentRepository) GetCourseModules(ctx context.Context, courseID string) ([]models.CourseModule, error) {
	var modules []models.CourseModule
	err := r.cache.Content.CacheOrExecute(ctx, cache.CourseModulesKey(courseID), &modules, cache.ContentCacheConfig.TTL, func() (interface{}, error) {
		return r.next.GetCourseModules(ctx, courseID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	if modules == nil {
		modules = []models.CourseModule{}
	}
	return modules, nil
}

func (r *ContentRepository) SampleActiveQuestions(ctx context.Context, moduleID string, n int) ([]string, error) {
	return r.next.SampleActiveQuestions(ctx, moduleID, n)
}

func (r *ContentRepository) SampleActiveQuestionsAcross(ctx context.Context, moduleIDs []string, n int) ([]string, error) {
	return r.next.SampleActiveQuestionsAcross(ctx, moduleIDs, n)
}
