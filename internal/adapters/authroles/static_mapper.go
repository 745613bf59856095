// Package authroles maps identity-provider groups to portal roles.
package authroles

import (
	"strings"

	domainauth "github.com/eduassist/portal/internal/domain/auth"
	"github.com/eduassist/portal/internal/ports"
)

var _ ports.RoleMapper = StaticRoleMapper{}

// StaticRoleMapper maps groups by case-insensitive membership. Faculty wins
// when a user is in both groups; no match yields an empty role, which is
// neither faculty nor student.
type StaticRoleMapper struct {
	FacultyGroup string
	StudentGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	if m.member(groups, m.FacultyGroup) {
		return domainauth.RoleFaculty
	}
	if m.member(groups, m.StudentGroup) {
		return domainauth.RoleStudent
	}
	return ""
}

func (StaticRoleMapper) member(groups []string, want string) bool {
	if want == "" {
		return false
	}
	for _, g := range groups {
		if strings.EqualFold(strings.TrimSpace(g), want) {
			return true
		}
	}
	return false
}
