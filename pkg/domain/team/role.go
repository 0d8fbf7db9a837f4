package team

import "fmt"

// Role defines the access level of a profile within a team.
type Role string

const (
	RoleProjectManager Role = "Project Manager"
	RoleTeamMember     Role = "Team Member"
)

// ValidRoles returns all valid role values.
func ValidRoles() []Role {
	return []Role{RoleProjectManager, RoleTeamMember}
}

// IsValid checks if the role is a recognized value.
func (r Role) IsValid() bool {
	switch r {
	case RoleProjectManager, RoleTeamMember:
		return true
	}
	return false
}

// ParseRole parses a string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid role: %s", s)
	}
	return r, nil
}

// Capabilities is the set of gated actions a role grants. Gating code
// consults these flags instead of comparing role strings. The zero value
// grants nothing, which is the correct state while the profile is
// unavailable.
type Capabilities struct {
	CanCreateTeam    bool
	CanDeleteTeam    bool
	CanRemoveMembers bool
	CanMoveCard      bool
	CanEditCard      bool
	CanDeleteCard    bool
	CanAssign        bool
	// CanForceComplete lets a manager toggle completion regardless of
	// assignment. Intentionally broader than progress updates.
	CanForceComplete bool
	// CanUpdateOwnProgress allows progress updates only on cards
	// assigned to the acting member.
	CanUpdateOwnProgress bool
}

// CapabilitiesFor derives the capability set for a role once. Unknown or
// empty roles grant nothing.
func CapabilitiesFor(r Role) Capabilities {
	switch r {
	case RoleProjectManager:
		return Capabilities{
			CanCreateTeam:        true,
			CanDeleteTeam:        true,
			CanRemoveMembers:     true,
			CanMoveCard:          true,
			CanEditCard:          true,
			CanDeleteCard:        true,
			CanAssign:            true,
			CanForceComplete:     true,
			CanUpdateOwnProgress: true,
		}
	case RoleTeamMember:
		return Capabilities{
			CanUpdateOwnProgress: true,
		}
	default:
		return Capabilities{}
	}
}

// AllowsProgress reports whether a progress update is permitted given
// whether the acting member is assigned to the card. Managers may update
// any card, members only their own.
func (c Capabilities) AllowsProgress(assigned bool) bool {
	if c.CanForceComplete {
		return true
	}
	return c.CanUpdateOwnProgress && assigned
}
