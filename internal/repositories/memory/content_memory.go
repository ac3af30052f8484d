package memory

import (
	"context"
	"slices"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

type contentStore struct {
	s *Store
}

func (c *contentStore) GetCourseModules(ctx context.Context, courseID string) ([]models.CourseModule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	modules, ok := c.s.courses[courseID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return slices.Clone(modules), nil
}

func (c *contentStore) SampleActiveQuestions(ctx context.Context, moduleID string, n int) ([]string, error) {
	return c.SampleActiveQuestionsAcross(ctx, []string{moduleID}, n)
}

func (c *contentStore) SampleActiveQuestionsAcross(ctx context.Context, moduleIDs []string, n int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return []string{}, nil
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	var pool []string
	for _, moduleID := range moduleIDs {
		for _, q := range c.s.questions[moduleID] {
			if q.Active {
				pool = append(pool, q.ID)
			}
		}
	}

	c.s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > n {
		pool = pool[:n]
	}
	if pool == nil {
		pool = []string{}
	}
	return pool, nil
}
