package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/learning-assessment/internal/models"
	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

type attemptStore struct {
	s *Store
}

func (a *attemptStore) CreateIfAbsent(ctx context.Context, attempt *models.Attempt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	for _, existing := range a.s.attempts {
		if existing.AttemptKey == attempt.AttemptKey && existing.AttemptNumber == attempt.AttemptNumber {
			return false, nil
		}
		if existing.LearnerID == attempt.LearnerID && existing.CourseID == attempt.CourseID &&
			existing.ModuleRef == attempt.ModuleRef && existing.AttemptNumber == attempt.AttemptNumber {
			return false, nil
		}
	}

	now := time.Now()
	a.s.nextID++
	attempt.ID = a.s.nextID
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = now
	a.s.attempts = append(a.s.attempts, attempt.Clone())
	return true, nil
}

func (a *attemptStore) GetLatestByKey(ctx context.Context, attemptKey string) (*models.Attempt, error) {
	return a.latest(ctx, func(at *models.Attempt) bool { return at.AttemptKey == attemptKey })
}

func (a *attemptStore) GetLatestByAttemptID(ctx context.Context, attemptID string) (*models.Attempt, error) {
	return a.latest(ctx, func(at *models.Attempt) bool { return at.AttemptID == attemptID })
}

func (a *attemptStore) latest(ctx context.Context, match func(*models.Attempt) bool) (*models.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	var found *models.Attempt
	for _, at := range a.s.attempts {
		if match(at) && (found == nil || at.AttemptNumber > found.AttemptNumber) {
			found = at
		}
	}
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	return found.Clone(), nil
}

func (a *attemptStore) ApplySubmission(ctx context.Context, id uint, sub *repositories.AttemptSubmission) (*models.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	idx := slices.IndexFunc(a.s.attempts, func(at *models.Attempt) bool { return at.ID == id })
	if idx < 0 {
		return nil, repositories.ErrNotFound
	}
	at := a.s.attempts[idx]

	submittedAt := sub.SubmittedAt
	at.State = models.AttemptSubmitted
	at.ModuleName = sub.ModuleName
	at.SubmittedAt = &submittedAt
	at.ElapsedSeconds = sub.ElapsedSeconds
	at.Questions = datatypes.JSONSlice[models.QuestionResult](slices.Clone(sub.Questions))
	at.BreakdownByType = datatypes.NewJSONType(sub.Breakdown)
	at.ScoreEarned = sub.ScoreEarned
	at.ScoreTotal = sub.ScoreTotal
	at.CorrectCount = sub.CorrectCount
	at.IncorrectCount = sub.IncorrectCount
	at.SkippedCount = sub.SkippedCount
	at.Percent = sub.Percent
	at.LetterGrade = sub.LetterGrade
	at.BestPercent = max(at.BestPercent, sub.Percent)
	at.BestScoreEarned = max(at.BestScoreEarned, sub.ScoreEarned)
	at.BestLetterGrade = models.GradeFromPercent(at.BestPercent)
	at.UpdatedAt = time.Now()

	return at.Clone(), nil
}

func (a *attemptStore) LatestByModule(ctx context.Context, learnerID, courseID string) ([]*models.Attempt, error) {
	return a.latestPerModule(ctx, learnerID, courseID, false)
}

func (a *attemptStore) LatestSubmittedByModule(ctx context.Context, learnerID, courseID string) ([]*models.Attempt, error) {
	return a.latestPerModule(ctx, learnerID, courseID, true)
}

func (a *attemptStore) latestPerModule(ctx context.Context, learnerID, courseID string, submittedOnly bool) ([]*models.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	best := make(map[models.ModuleRef]*models.Attempt)
	for _, at := range a.s.attempts {
		if at.LearnerID != learnerID || at.CourseID != courseID {
			continue
		}
		if submittedOnly && at.State != models.AttemptSubmitted {
			continue
		}
		if cur, ok := best[at.ModuleRef]; !ok || newerResult(at, cur) {
			best[at.ModuleRef] = at
		}
	}

	result := make([]*models.Attempt, 0, len(best))
	for _, at := range best {
		result = append(result, at.Clone())
	}
	slices.SortFunc(result, func(x, y *models.Attempt) int {
		return strings.Compare(x.ModuleRef.String(), y.ModuleRef.String())
	})
	return result, nil
}

// newerResult orders by submitted_at desc (unsubmitted last) then attempt_number desc.
func newerResult(x, y *models.Attempt) bool {
	switch {
	case x.SubmittedAt != nil && y.SubmittedAt == nil:
		return true
	case x.SubmittedAt == nil && y.SubmittedAt != nil:
		return false
	case x.SubmittedAt != nil && !x.SubmittedAt.Equal(*y.SubmittedAt):
		return x.SubmittedAt.After(*y.SubmittedAt)
	}
	return x.AttemptNumber > y.AttemptNumber
}

func (a *attemptStore) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	a.s.mu.Lock()
	var matched []*models.Attempt
	for _, at := range a.s.attempts {
		if matchesFilters(at, filters) {
			matched = append(matched, at.Clone())
		}
	}
	a.s.mu.Unlock()

	desc := !strings.EqualFold(filters.SortOrder, "asc")
	slices.SortStableFunc(matched, func(x, y *models.Attempt) int {
		c := compareBy(filters.SortBy, x, y)
		if c == 0 {
			c = cmp.Compare(x.ID, y.ID)
		}
		if desc {
			return -c
		}
		return c
	})

	total := int64(len(matched))
	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return []*models.Attempt{}, total, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

func matchesFilters(at *models.Attempt, f repositories.AttemptFilters) bool {
	switch {
	case f.LearnerID != nil && at.LearnerID != *f.LearnerID:
		return false
	case f.CourseID != nil && at.CourseID != *f.CourseID:
		return false
	case f.ModuleRef != nil && at.ModuleRef != *f.ModuleRef:
		return false
	case f.State != nil && at.State != *f.State:
		return false
	case f.DateFrom != nil && at.CreatedAt.Before(*f.DateFrom):
		return false
	case f.DateTo != nil && at.CreatedAt.After(*f.DateTo):
		return false
	}
	return true
}

func compareBy(field string, x, y *models.Attempt) int {
	switch field {
	case "updated_at":
		return x.UpdatedAt.Compare(y.UpdatedAt)
	case "submitted_at":
		return compareTimePtr(x.SubmittedAt, y.SubmittedAt)
	case "attempt_number":
		return cmp.Compare(x.AttemptNumber, y.AttemptNumber)
	case "percent":
		return cmp.Compare(x.Percent, y.Percent)
	case "best_percent":
		return cmp.Compare(x.BestPercent, y.BestPercent)
	default:
		return x.CreatedAt.Compare(y.CreatedAt)
	}
}

func compareTimePtr(x, y *time.Time) int {
	switch {
	case x == nil && y == nil:
		return 0
	case x == nil:
		return -1
	case y == nil:
		return 1
	}
	return x.Compare(*y)
}
