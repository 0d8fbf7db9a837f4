package session

import "strings"

// Client routes. RouteGantt is a prefix route carrying a team id.
const (
	RouteHome           = "/"
	RouteLogin          = "/login"
	RouteSignup         = "/signup"
	RouteForgotPassword = "/forgot-password"
	RouteVerifyEmail    = "/verify-email"
	RouteDashboard      = "/dashboard"
	RouteProfile        = "/profile"
	RouteSettings       = "/settings"
	RouteGantt          = "/gantt/"
	RouteWorkdayTracker = "/workday-tracker"
	RouteGetStarted     = "/get-started"
)

// Decision is the outcome of routing a path through the gate: the final
// path to render and whether the caller was redirected to get there.
type Decision struct {
	Path       string
	Redirected bool
}

// allowedUnverified are the routes an authenticated-but-unverified user
// may still reach; everywhere else forces /verify-email.
var allowedUnverified = map[string]bool{
	RouteVerifyEmail:    true,
	RouteLogin:          true,
	RouteSignup:         true,
	RouteForgotPassword: true,
}

// publicRoutes are reachable without a session.
var publicRoutes = map[string]bool{
	RouteHome:           true,
	RouteLogin:          true,
	RouteSignup:         true,
	RouteForgotPassword: true,
	RouteGetStarted:     true,
}

// protectedRoutes require a verified session.
var protectedRoutes = map[string]bool{
	RouteDashboard:      true,
	RouteProfile:        true,
	RouteSettings:       true,
	RouteWorkdayTracker: true,
}

func isProtected(path string) bool {
	return protectedRoutes[path] || strings.HasPrefix(path, RouteGantt)
}

// Decide maps a requested path through the gate to the path that is
// actually rendered. Redirect chains are collapsed to their final
// destination; unmatched paths land on /dashboard or /login depending
// on the gate.
func Decide(state GateState, path string) Decision {
	switch state {
	case GateChecking:
		// Nothing renders until the first resolution; keep the path.
		return Decision{Path: path}

	case GateUnverified:
		if allowedUnverified[path] {
			return Decision{Path: path}
		}
		return Decision{Path: RouteVerifyEmail, Redirected: true}

	case GateVerified:
		if isProtected(path) || path == RouteForgotPassword {
			return Decision{Path: path}
		}
		return Decision{Path: RouteDashboard, Redirected: true}

	default: // GateUnauthenticated
		if publicRoutes[path] {
			return Decision{Path: path}
		}
		return Decision{Path: RouteLogin, Redirected: true}
	}
}
