package session

import (
	"context"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
)

// Auth is a read-only projection over a Store. Every call reads the store
// afresh; nothing is cached.
type Auth struct {
	store *Store
}

// NewAuth returns the facade for store.
func NewAuth(store *Store) Auth { return Auth{store: store} }

// IsAuthenticated reports whether a token resolves from memory or durable storage.
func (a Auth) IsAuthenticated(ctx context.Context) bool {
	return a.store.Token(ctx) != ""
}

// IsFaculty reports whether the signed-in user has the faculty role.
func (a Auth) IsFaculty(ctx context.Context) bool {
	u := a.store.Resolve(ctx).User
	return u != nil && u.Role.IsFaculty()
}

// IsStudent reports whether the signed-in user has the student role.
func (a Auth) IsStudent(ctx context.Context) bool {
	u := a.store.Resolve(ctx).User
	return u != nil && u.Role.IsStudent()
}

// User returns the signed-in user, or nil.
func (a Auth) User(ctx context.Context) *domainauth.User { return a.store.Resolve(ctx).User }

// Facts captures the projection once, for handing to templates.
func (a Auth) Facts(ctx context.Context) Facts {
	sess := a.store.Resolve(ctx)
	f := Facts{User: sess.User, Authenticated: sess.Token != ""}
	if sess.User != nil {
		f.Faculty = sess.User.Role.IsFaculty()
		f.Student = sess.User.Role.IsStudent()
	}
	return f
}

// Facts is a captured Auth projection.
type Facts struct {
	Authenticated bool
	Faculty       bool
	Student       bool
	User          *domainauth.User
}

// IsFaculty implements rolegate.Viewer.
func (f Facts) IsFaculty() bool { return f.Faculty }

// IsStudent implements rolegate.Viewer.
func (f Facts) IsStudent() bool { return f.Student }

// DisplayName returns the best available label for the user.
func (f Facts) DisplayName() string {
	switch {
	case f.User == nil:
		return ""
	case f.User.Name != "":
		return f.User.Name
	default:
		return f.User.Email
	}
}
