package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import "strings"

// Role represents a platform role as reported by the backend.
// Only FACULTY and STUDENT are meaningful; any other value behaves as neither.
type Role string

const (
	RoleFaculty Role = "FACULTY"
	RoleStudent Role = "STUDENT"
)

// ParseRole normalises a backend-supplied role string.
// Unknown values are returned upper-cased and are neither faculty nor student.
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// IsFaculty reports whether r is the faculty role.
func (r Role) IsFaculty() bool { return r == RoleFaculty }

// IsStudent reports whether r is the student role.
func (r Role) IsStudent() bool { return r == RoleStudent }

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	Subject string
	Name    string
	Email   string
	Groups  []string
}

// User is the signed-in principal held by a session.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

// Grant is the outcome of a successful sign-in: a user and its bearer token.
type Grant struct {
	User  User
	Token string
}

// Valid reports whether the grant carries a token. The user is taken as
// given; the backend decides which fields it fills.
func (g Grant) Valid() bool { return g.Token != "" }

// Session is a point-in-time view of a client's authentication state.
// Token is empty and User is nil together, or both are set.
type Session struct {
	Token string
	User  *User
}

// Empty reports whether the session holds no credentials.
func (s Session) Empty() bool { return s.Token == "" && s.User == nil }
