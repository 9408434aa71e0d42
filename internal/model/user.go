package model

import "time"

// Role enumerates the fixed set of user roles.
type Role string

const (
	RoleStudent     Role = "student"
	RoleInvigilator Role = "invigilator"
	RoleAdmin       Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInvigilator, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the verified identity attached to every authenticated call.
type Principal struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// LoginRequest is the payload for user login.
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=4"`
}

// RegisterRequest is the payload for creating a new user.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=4,max=72"`
	Role     Role   `json:"role" binding:"required,oneof=student invigilator admin"`
}

// UpdateUserRequest is the payload for updating an existing user.
// Zero-value fields are left unchanged.
type UpdateUserRequest struct {
	Username string `json:"username" binding:"omitempty,min=3,max=50"`
	Password string `json:"password" binding:"omitempty,min=4,max=72"`
	Role     Role   `json:"role" binding:"omitempty,oneof=student invigilator admin"`
}
