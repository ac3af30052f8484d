package models

import "strings"

// CourseModule is a module of a course as published by the content store.
type CourseModule struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// IsRoadSigns reports whether the module is the road signs module that the
// final exam draws most of its questions from.
func (m CourseModule) IsRoadSigns() bool {
	name := strings.ToLower(strings.TrimSpace(m.Name))
	return name == "road signs" || name == "road sign"
}

// QuestionRef is a question of the item bank as seen by the sampler.
type QuestionRef struct {
	ID       string       `json:"id"`
	ModuleID string       `json:"module_id"`
	Type     QuestionType `json:"type"`
	Active   bool         `json:"active"`
}
