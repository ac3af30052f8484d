package cache

import "fmt"

// CourseModulesKey is the content cache key for a course's module list.
func CourseModulesKey(courseID string) string {
	return fmt.Sprintf("course:%s:modules", courseID)
}

// FinalUnlockedKey is the marker key set once a learner unlocks a course final.
func FinalUnlockedKey(learnerID, courseID string) string {
	return fmt.Sprintf("final-unlocked:%s:%s", learnerID, courseID)
}
