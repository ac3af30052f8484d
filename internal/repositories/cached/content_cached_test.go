package cached

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/learning-assessment/internal/cache"
	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories/memory"
)

type countingContent struct {
	repositories.ContentRepository
	calls int
}

func (c *countingContent) GetCourseModules(ctx context.Context, courseID string) ([]models.CourseModule, error) {
	c.calls++
	return c.ContentRepository.GetCourseModules(ctx, courseID)
}

func TestContentRepository_CachesModules(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := memory.NewStore(nil)
	store.AddCourse("c1",
		models.CourseModule{ID: "m1", Name: "Road Signs"},
		models.CourseModule{ID: "m2", Name: "Parking"},
	)
	inner := &countingContent{ContentRepository: store.Content()}
	repo := NewContentRepository(inner, cache.NewCacheManager(client))
	ctx := context.Background()

	first, err := repo.GetCourseModules(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCourseModules failed: %v", err)
	}
	if len(first) != 2 || first[0].Name != "Road Signs" {
		t.Fatalf("unexpected modules: %+v", first)
	}

	key := "content:" + cache.CourseModulesKey("c1")
	deadline := time.Now().Add(2 * time.Second)
	for !mr.Exists(key) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	second, err := repo.GetCourseModules(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCourseModules failed: %v", err)
	}
	if len(second) != 2 || second[1].ID != "m2" {
		t.Fatalf("unexpected cached modules: %+v", second)
	}
	if inner.calls != 1 {
		t.Errorf("expected one backend call, got %d", inner.calls)
	}
}

func TestContentRepository_NotFound(t *testing.T) {
	repo := NewContentRepository(memory.NewStore(nil).Content(), cache.NewCacheManager(nil))

	_, err := repo.GetCourseModules(context.Background(), "missing")
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
