package model

import "strings"

// Role names used for coarse-grained authorization checks.
const (
	RoleAdmin    = "ROLE_ADMIN"
	RoleHR       = "ROLE_HR"
	RoleManager  = "ROLE_MANAGER"
	RoleEmployee = "ROLE_EMPLOYEE"
)

// User is the identity published by the auth manager while a session
// is active.
type User struct {
	ID                int64    `json:"id"`
	FirstName         string   `json:"firstName"`
	LastName          string   `json:"lastName"`
	Email             string   `json:"email"`
	Roles             []string `json:"roles"`
	ProfilePictureURL string   `json:"profilePictureUrl,omitempty"`
}

// FullName joins first and last name, skipping empty parts.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// AuthResponse is the session payload returned by the backend login
// and identity-exchange endpoints.
type AuthResponse struct {
	Token             string   `json:"token"`
	Type              string   `json:"type,omitempty"`
	UserID            int64    `json:"userId,omitempty"`
	FirstName         string   `json:"firstName,omitempty"`
	LastName          string   `json:"lastName,omitempty"`
	Email             string   `json:"email,omitempty"`
	Roles             []string `json:"roles,omitempty"`
	ProfilePictureURL string   `json:"profilePictureUrl,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// MicrosoftAuthRequest is the body of POST /auth/microsoft.
type MicrosoftAuthRequest struct {
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	Token             string `json:"token"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

// UpdateProfileRequest is the body of PUT /users/{id}/profile. Empty
// fields are left unchanged by the backend.
type UpdateProfileRequest struct {
	FirstName         string `json:"firstName,omitempty"`
	LastName          string `json:"lastName,omitempty"`
	PhoneNumber       string `json:"phoneNumber,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

// Profile is the user record returned by the /users endpoints.
type Profile struct {
	ID                int64  `json:"id"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	PhoneNumber       string `json:"phoneNumber,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}
