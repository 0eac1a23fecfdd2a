package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User is the identity projection returned by Casdoor; it is never persisted here
type User struct {
	ID        string   `json:"id"`
	FullName  string   `json:"full_name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	AvatarURL *string  `json:"avatar_url"`
}
