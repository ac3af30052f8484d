package memory

import (
	"context"
	"time"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

type completionStore struct {
	s *Store
}

func (c *completionStore) CreateIfAbsent(ctx context.Context, completion *models.CourseCompletion) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	key := learnerCourseKey(completion.LearnerID, completion.CourseID)
	if _, ok := c.s.completions[key]; ok {
		return false, nil
	}
	c.s.nextID++
	completion.ID = c.s.nextID
	if completion.CreatedAt.IsZero() {
		completion.CreatedAt = time.Now()
	}
	stored := *completion
	c.s.completions[key] = &stored
	return true, nil
}

func (c *completionStore) GetByLearnerCourse(ctx context.Context, learnerID, courseID string) (*models.CourseCompletion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	found, ok := c.s.completions[learnerCourseKey(learnerID, courseID)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *found
	return &out, nil
}

func (c *completionStore) IncrementCompletedCourses(ctx context.Context, learnerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	p, ok := c.s.progress[learnerID]
	if !ok {
		p = &models.LearnerProgress{LearnerID: learnerID}
		c.s.progress[learnerID] = p
	}
	p.CompletedCourses++
	p.UpdatedAt = time.Now()
	return nil
}

func (c *completionStore) GetLearnerProgress(ctx context.Context, learnerID string) (*models.LearnerProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	p, ok := c.s.progress[learnerID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *p
	return &out, nil
}

type certificateStore struct {
	s *Store
}

func (c *certificateStore) CreateIfAbsent(ctx context.Context, certificate *models.Certificate) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	key := learnerCourseKey(certificate.LearnerID, certificate.CourseID)
	if _, ok := c.s.certificates[key]; ok {
		return false, nil
	}
	for _, existing := range c.s.certificates {
		if existing.CertificateID == certificate.CertificateID {
			return false, repositories.ErrDuplicateKey
		}
	}

	now := time.Now()
	c.s.nextID++
	certificate.ID = c.s.nextID
	certificate.CreatedAt = now
	certificate.UpdatedAt = now
	stored := *certificate
	c.s.certificates[key] = &stored
	return true, nil
}

func (c *certificateStore) GetByLearnerCourse(ctx context.Context, learnerID, courseID string) (*models.Certificate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	found, ok := c.s.certificates[learnerCourseKey(learnerID, courseID)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *found
	return &out, nil
}
