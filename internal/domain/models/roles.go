// internal/domain/models/roles.go
package models

import "strings"

// Role is a rank in the coordinator hierarchy.
type Role string

const (
	RoleAdmin               Role = "ADMIN"
	RoleNationalPresident   Role = "NATIONAL_PRESIDENT"
	RoleStateCoordinator    Role = "STATE_COORDINATOR"
	RoleZoneCoordinator     Role = "ZONE_COORDINATOR"
	RoleDistrictCoordinator Role = "DISTRICT_COORDINATOR"
	RoleBlockCoordinator    Role = "BLOCK_COORDINATOR"
	RoleVolunteer           Role = "VOLUNTEER"
)

var roleRank = map[Role]int{
	RoleAdmin:               0,
	RoleNationalPresident:   1,
	RoleStateCoordinator:    2,
	RoleZoneCoordinator:     3,
	RoleDistrictCoordinator: 4,
	RoleBlockCoordinator:    5,
	RoleVolunteer:           6,
}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := roleRank[r]
	return r, ok
}

// Rank returns the depth of the role in the hierarchy (0 is the top).
// Unknown roles sort below volunteers.
func (r Role) Rank() int {
	if n, ok := roleRank[r]; ok {
		return n
	}
	return len(roleRank)
}

// IsTopAdministrative reports whether the role may act on any user
// regardless of hierarchy position.
func (r Role) IsTopAdministrative() bool {
	return r == RoleAdmin || r == RoleNationalPresident
}

func (r Role) String() string { return string(r) }
