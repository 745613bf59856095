//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	maxCourseNameLen = 255
)

// CourseStatus is the lifecycle state of a course.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "ACTIVE"
	CourseStatusArchived CourseStatus = "ARCHIVED"
)

// Valid reports whether the course status is supported.
func (s CourseStatus) Valid() bool {
	switch s {
	case CourseStatusActive, CourseStatusArchived:
		return true
	default:
		return false
	}
}

// Course is a class offered on the platform.
type Course struct {
	CourseID       string       `json:"courseId"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	InvitationCode string       `json:"invitationCode,omitempty"`
	InvitationLink string       `json:"invitationLink,omitempty"`
	CreatedAt      string       `json:"createdAt,omitempty"`
	Status         CourseStatus `json:"status,omitempty"`
}

// Archived reports whether the course is archived.
func (c Course) Archived() bool { return c.Status == CourseStatusArchived }

// CourseRequest is the body for creating or updating a course.
type CourseRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Status      CourseStatus `json:"status,omitempty"`
}

// Validate normalises and validates the request.
func (r *CourseRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	if r.Name == "" {
		return errors.New("course name is required")
	}
	if utf8.RuneCountInString(r.Name) > maxCourseNameLen {
		return errors.New("course name cannot exceed 255 characters")
	}
	if r.Status != "" {
		r.Status = CourseStatus(strings.ToUpper(string(r.Status)))
		if !r.Status.Valid() {
			return errors.New("invalid course status")
		}
	}
	return nil
}

// Module is a unit of a course holding videos, resources and a chat.
type Module struct {
	ModuleID    string `json:"moduleId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CourseID    string `json:"courseId"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// ModuleRequest is the body for creating or updating a module.
type ModuleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate normalises and validates the request.
func (r *ModuleRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	if r.Name == "" {
		return errors.New("module name is required")
	}
	if utf8.RuneCountInString(r.Name) > maxCourseNameLen {
		return errors.New("module name cannot exceed 255 characters")
	}
	return nil
}
