package session

import "fmt"

// GateState is the authorization gate derived from the identity
// provider session and the fetched profile.
type GateState string

const (
	GateChecking        GateState = "checking_auth"
	GateUnauthenticated GateState = "unauthenticated"
	GateUnverified      GateState = "unverified"
	GateVerified        GateState = "verified"
)

// Gate events. Terminal states are re-entered whenever the session
// changes, so every resolution event is accepted from every state.
const (
	EventResolveNone       = "resolve_none"
	EventResolveUnverified = "resolve_unverified"
	EventResolveVerified   = "resolve_verified"
	EventSignOut           = "sign_out"
)

// gateTransitions defines the allowed state transitions and their events.
// Map: currentState -> event -> targetState
var gateTransitions = map[GateState]map[string]GateState{
	GateChecking: {
		EventResolveNone:       GateUnauthenticated,
		EventResolveUnverified: GateUnverified,
		EventResolveVerified:   GateVerified,
	},
	GateUnauthenticated: {
		EventResolveNone:       GateUnauthenticated,
		EventResolveUnverified: GateUnverified,
		EventResolveVerified:   GateVerified,
	},
	GateUnverified: {
		EventResolveNone:       GateUnauthenticated,
		EventResolveUnverified: GateUnverified,
		EventResolveVerified:   GateVerified,
		EventSignOut:           GateUnauthenticated,
	},
	GateVerified: {
		EventResolveNone:       GateUnauthenticated,
		EventResolveUnverified: GateUnverified,
		EventResolveVerified:   GateVerified,
		EventSignOut:           GateUnauthenticated,
	},
}

// AllGateStates returns all valid gate states.
func AllGateStates() []GateState {
	return []GateState{GateChecking, GateUnauthenticated, GateUnverified, GateVerified}
}

// IsValid returns true if the state is a valid gate state.
func (s GateState) IsValid() bool {
	switch s {
	case GateChecking, GateUnauthenticated, GateUnverified, GateVerified:
		return true
	default:
		return false
	}
}

// String returns the string representation of the state.
func (s GateState) String() string {
	return string(s)
}

// CanTransitionWith returns true if the given event can trigger a
// transition from this state.
func (s GateState) CanTransitionWith(event string) bool {
	transitions, ok := gateTransitions[s]
	if !ok {
		return false
	}
	_, ok = transitions[event]
	return ok
}

// TransitionWith returns the target state for a given event, or an
// error if not allowed.
func (s GateState) TransitionWith(event string) (GateState, error) {
	transitions, ok := gateTransitions[s]
	if !ok {
		return s, fmt.Errorf("no transitions defined for gate state: %s", s)
	}
	target, ok := transitions[event]
	if !ok {
		return s, fmt.Errorf("event '%s' not allowed from gate state '%s'", event, s)
	}
	return target, nil
}

// Authenticated reports whether a principal is attached at all.
func (s GateState) Authenticated() bool {
	return s == GateUnverified || s == GateVerified
}
