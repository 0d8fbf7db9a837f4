// Package session models the client-side authentication gate: the
// principal issued by the identity provider, the gate state machine that
// reconciles it with the fetched profile, and the route table gated by it.
package session

import (
	"strings"

	"github.com/felixgeelhaar/kanbanize/pkg/domain/team"
)

// Principal is the authenticated identity issued by the external
// identity provider.
type Principal struct {
	UID           string
	Email         string
	EmailVerified bool
}

// LocalPart returns the part of the email before the @, used as the
// display-name fallback when the profile carries none.
func (p Principal) LocalPart() string {
	if i := strings.IndexByte(p.Email, '@'); i >= 0 {
		return p.Email[:i]
	}
	return p.Email
}

// Profile is the role/name record fetched from the API after the
// principal resolves. An empty Role means the profile was unavailable;
// gated UI hides itself rather than failing.
type Profile struct {
	ID   int
	Name string
	Role team.Role
}

// Capabilities derives the capability set from the profile role.
func (p Profile) Capabilities() team.Capabilities {
	return team.CapabilitiesFor(p.Role)
}

// Snapshot is the published view of the gate: the current state plus
// the data that produced it.
type Snapshot struct {
	State     GateState
	Principal *Principal
	Profile   Profile
}

// Verified reports whether the snapshot allows the authenticated shell.
func (s Snapshot) Verified() bool {
	return s.State == GateVerified
}
