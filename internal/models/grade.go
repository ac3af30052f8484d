package models

type LetterGrade string

const (
	GradeA LetterGrade = "A"
	GradeB LetterGrade = "B"
	GradeC LetterGrade = "C"
	GradeD LetterGrade = "D"
	GradeF LetterGrade = "F"
)

// PassingPercent is the lowest best percent that counts as a module pass.
const PassingPercent = 60.0

// GradeBand maps a minimum percent to a letter grade.
type GradeBand struct {
	MinPercent float64
	Grade      LetterGrade
}

// GradeBands are ordered from highest to lowest; anything below the last band is F.
var GradeBands = []GradeBand{
	{MinPercent: 90, Grade: GradeA},
	{MinPercent: 80, Grade: GradeB},
	{MinPercent: 70, Grade: GradeC},
	{MinPercent: 60, Grade: GradeD},
}

// GradeFromPercent returns the letter grade for a percent.
func GradeFromPercent(percent float64) LetterGrade {
	for _, band := range GradeBands {
		if percent >= band.MinPercent {
			return band.Grade
		}
	}
	return GradeF
}

// IsPassingBest reports whether a lineage best counts as a module pass.
func IsPassingBest(bestPercent float64) bool {
	return bestPercent >= PassingPercent && GradeFromPercent(bestPercent) != GradeF
}
