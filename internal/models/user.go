package models

type UserRole string

const (
	RoleLearner UserRole = "learner"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User is the authenticated principal resolved from Casdoor.
type User struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email"`
	Role        UserRole `json:"role"`
}

// CanViewOthers reports whether the user may read other learners' results.
func (u *User) CanViewOthers() bool {
	return u != nil && (u.Role == RoleTeacher || u.Role == RoleAdmin)
}
