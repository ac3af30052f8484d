package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/SAP-F-2025/learning-assessment/internal/cache"
	"github.com/SAP-F-2025/learning-assessment/internal/events"
	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

type studentService struct {
	repo     repositories.Repository
	cache    *cache.CacheManager
	activity ActivityRecorder
	logger   *slog.Logger
}

func NewStudentService(repo repositories.Repository, cacheManager *cache.CacheManager, activity ActivityRecorder, logger *slog.Logger) StudentService {
	return &studentService{
		repo:     repo,
		cache:    cacheManager,
		activity: activity,
		logger:   logger,
	}
}

// GetFinalUnlockStatus decides final exam eligibility from the latest
// submitted attempt of every course module.
func (s *studentService) GetFinalUnlockStatus(ctx context.Context, learnerID, courseID string) (*models.FinalUnlockStatus, error) {
	modules, err := s.courseModules(ctx, courseID)
	if err != nil {
		return nil, err
	}

	latest, err := s.repo.Attempt().LatestSubmittedByModule(ctx, learnerID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest submissions: %w", err)
	}
	byModule := indexByModule(latest)

	status := &models.FinalUnlockStatus{
		CourseID:     courseID,
		TotalModules: len(modules),
	}
	for _, m := range modules {
		attempt, ok := byModule[models.ModuleOf(m.ID)]
		if !ok {
			continue
		}
		if attempt.IsPassed() {
			status.PassedCount++
		} else {
			status.FailedCount++
		}
	}
	status.Unlocked = status.TotalModules > 0 && status.PassedCount == status.TotalModules

	if status.Unlocked {
		s.reportUnlock(ctx, learnerID, status)
	}

	return status, nil
}

// reportUnlock emits FINAL_UNLOCKED once per learner and course. Without a
// cache every unlocked read reports it.
func (s *studentService) reportUnlock(ctx context.Context, learnerID string, status *models.FinalUnlockStatus) {
	first, err := s.cache.Marker.SetIfAbsent(ctx, cache.FinalUnlockedKey(learnerID, status.CourseID), "1", cache.MarkerCacheConfig.TTL)
	if err != nil {
		s.logger.Debug("Unlock marker unavailable", "course_id", status.CourseID, "error", err)
		first = true
	}
	if !first {
		return
	}

	s.activity.Record(ctx, learnerID, models.ActivityFinalUnlocked, events.ActivityData{
		CourseID: status.CourseID,
		Meta: map[string]interface{}{
			"passed_modules": status.PassedCount,
			"total_modules":  status.TotalModules,
		},
	})
}

// GetLatestByModule returns the authoritative row of every lineage of the
// course, the final exam included
func (s *studentService) GetLatestByModule(ctx context.Context, learnerID, courseID string) ([]*models.ModuleResult, error) {
	latest, err := s.repo.Attempt().LatestByModule(ctx, learnerID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest attempts: %w", err)
	}

	results := make([]*models.ModuleResult, 0, len(latest))
	for _, a := range latest {
		results = append(results, models.NewModuleResult(a))
	}
	return results, nil
}

func (s *studentService) GetLatestFinal(ctx context.Context, learnerID, courseID string) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetLatestByKey(ctx, models.ComputeAttemptKey(learnerID, courseID, models.FinalExam))
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get latest final attempt: %w", err)
	}
	return attempt, nil
}

func (s *studentService) GetCourseStats(ctx context.Context, learnerID, courseID string) (*models.CourseStats, error) {
	modules, err := s.courseModules(ctx, courseID)
	if err != nil {
		return nil, err
	}

	stats := &models.CourseStats{CourseID: courseID, ModulesTotal: len(modules)}
	if len(modules) == 0 {
		return stats, nil
	}

	latest, err := s.repo.Attempt().LatestByModule(ctx, learnerID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest attempts: %w", err)
	}
	byModule := indexByModule(latest)

	var percentSum float64
	for _, m := range modules {
		a, ok := byModule[models.ModuleOf(m.ID)]
		if !ok {
			continue
		}
		stats.ModulesAttempted++
		if a.IsPassed() {
			stats.ModulesPassed++
		}
		stats.AssessmentsTaken += a.AttemptNumber
		stats.TimeSecondsTotal += a.ElapsedSeconds
		stats.ScoreEarnedTotal += a.ScoreEarned
		stats.ScorePossibleTotal += a.ScoreTotal
		percentSum += a.Percent
	}
	// unattempted modules count as zero
	stats.OverallPercentAvg = int(math.Round(percentSum / float64(len(modules))))

	return stats, nil
}

func (s *studentService) GetCourseModuleStats(ctx context.Context, learnerID, courseID string) (*CourseModuleStats, error) {
	modules, err := s.courseModules(ctx, courseID)
	if err != nil {
		return nil, err
	}

	latest, err := s.repo.Attempt().LatestByModule(ctx, learnerID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest attempts: %w", err)
	}
	byModule := indexByModule(latest)

	out := &CourseModuleStats{CourseID: courseID, Modules: make([]*ModuleStat, 0, len(modules))}
	for _, m := range modules {
		stat := &ModuleStat{ModuleID: m.ID, ModuleName: m.Name}
		if a, ok := byModule[models.ModuleOf(m.ID)]; ok {
			stat.Attempted = true
			stat.Result = models.NewModuleResult(a)
		}
		out.Modules = append(out.Modules, stat)
	}
	return out, nil
}

func (s *studentService) courseModules(ctx context.Context, courseID string) ([]models.CourseModule, error) {
	modules, err := s.repo.Content().GetCourseModules(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, NewUpstreamError("content store", err)
	}
	return modules, nil
}

func indexByModule(attempts []*models.Attempt) map[models.ModuleRef]*models.Attempt {
	out := make(map[models.ModuleRef]*models.Attempt, len(attempts))
	for _, a := range attempts {
		out[a.ModuleRef] = a
	}
	return out
}
