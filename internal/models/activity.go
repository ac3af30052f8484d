package models

type ActivityType string

const (
	ActivityAssessmentStarted   ActivityType = "ASSESSMENT_STARTED"
	ActivityFinalStarted        ActivityType = "FINAL_STARTED"
	ActivityAssessmentSubmitted ActivityType = "ASSESSMENT_SUBMITTED"
	ActivityAssessmentUpdated   ActivityType = "ASSESSMENT_UPDATED"
	ActivityFinalUnlocked       ActivityType = "FINAL_UNLOCKED"
	ActivityCourseCompleted     ActivityType = "COURSE_COMPLETED"
)
