// Package rolegate picks faculty, student or fallback content for a viewer.
// It holds no state and performs no I/O.
package rolegate

import "strings"

// ShowFor restricts a gate to one audience.
type ShowFor string

const (
	ShowForFaculty ShowFor = "FACULTY"
	ShowForStudent ShowFor = "STUDENT"
	ShowForBoth    ShowFor = "BOTH"
)

// ParseShowFor normalises a template-supplied value. Unknown values yield "".
func ParseShowFor(s string) ShowFor {
	switch v := ShowFor(strings.ToUpper(strings.TrimSpace(s))); v {
	case ShowForFaculty, ShowForStudent, ShowForBoth:
		return v
	default:
		return ""
	}
}

// Viewer exposes the role flags of the current user.
type Viewer interface {
	IsFaculty() bool
	IsStudent() bool
}

// Gate describes the candidate contents. A nil pointer means "not supplied";
// Fallback defaults to the zero value, which callers treat as nothing.
type Gate[T any] struct {
	Faculty  *T
	Student  *T
	Children *T
	Fallback T
	ShowFor  ShowFor
}

// Resolve returns the content v should see. First match wins:
//
//   - ShowFor FACULTY: Children, else Faculty, else nothing, for faculty.
//   - ShowFor STUDENT: Children, else Student, else nothing, for students.
//   - ShowFor BOTH: Children, else nothing, for faculty or students.
//   - No ShowFor: Faculty for faculty, Student for students, then Children.
//
// Anything else yields Fallback.
func (g Gate[T]) Resolve(v Viewer) T {
	var nothing T
	isFaculty := v != nil && v.IsFaculty()
	isStudent := v != nil && v.IsStudent()

	switch g.ShowFor {
	case ShowForFaculty:
		if isFaculty {
			return first(nothing, g.Children, g.Faculty)
		}
		return g.Fallback
	case ShowForStudent:
		if isStudent {
			return first(nothing, g.Children, g.Student)
		}
		return g.Fallback
	case ShowForBoth:
		if isFaculty || isStudent {
			return first(nothing, g.Children)
		}
		return g.Fallback
	}

	switch {
	case isFaculty && g.Faculty != nil:
		return *g.Faculty
	case isStudent && g.Student != nil:
		return *g.Student
	case g.Children != nil:
		return *g.Children
	default:
		return g.Fallback
	}
}

func first[T any](otherwise T, candidates ...*T) T {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return otherwise
}
