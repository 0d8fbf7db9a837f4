package application

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/api"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/events"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
)

// ProfileAPI is the slice of the REST client the session gate needs.
type ProfileAPI interface {
	GetProfile(ctx context.Context) (*api.Profile, error)
}

// VerificationChecker re-checks the principal's verification status
// out-of-band: a forced token refresh followed by an account lookup, so
// a verification done in another session is picked up here.
type VerificationChecker interface {
	CheckVerified(ctx context.Context) (bool, error)
}

// SessionService reconciles the identity provider's current user with
// the fetched profile into the authorization gate. It is the only
// writer of the gate machine.
type SessionService struct {
	profiles ProfileAPI
	checker  VerificationChecker
	bus      events.Publisher

	mu       sync.RWMutex
	machine  *session.GateMachine
	snapshot session.Snapshot
	subs     []func(session.Snapshot)
}

// NewSessionService creates a gate in the checking state. The checker
// may be nil, in which case the principal's own flag is trusted.
func NewSessionService(profiles ProfileAPI, checker VerificationChecker, bus events.Publisher) (*SessionService, error) {
	machine, err := session.NewGateMachine()
	if err != nil {
		return nil, err
	}
	return &SessionService{
		profiles: profiles,
		checker:  checker,
		bus:      bus,
		machine:  machine,
		snapshot: session.Snapshot{State: session.GateChecking},
	}, nil
}

// Snapshot returns the latest published gate view.
func (s *SessionService) Snapshot() session.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Subscribe registers a callback invoked with the current snapshot and
// then on every gate change.
func (s *SessionService) Subscribe(fn func(session.Snapshot)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	current := s.snapshot
	s.mu.Unlock()

	fn(current)
}

// Resolve processes one emission of the current-user stream. It always
// leaves the gate in a resolved state: a failed verification check
// degrades to unverified, a failed profile fetch degrades to an empty
// role, and both raise a notification instead of blocking.
func (s *SessionService) Resolve(ctx context.Context, p *session.Principal) session.Snapshot {
	if p == nil {
		return s.publish(session.EventResolveNone, nil, session.Profile{})
	}

	principal := *p
	if s.checker != nil {
		verified, err := s.checker.CheckVerified(ctx)
		if err != nil {
			// Safe default: treat the user as unverified rather than
			// hanging or guessing from a possibly stale token.
			s.bus.Error("Failed to verify user or load profile")
			return s.publish(session.EventResolveUnverified, &principal, session.Profile{Name: principal.LocalPart()})
		}
		principal.EmailVerified = verified
	}

	profile := session.Profile{Name: principal.LocalPart()}
	fetched, err := s.profiles.GetProfile(ctx)
	if err != nil {
		// Profile unavailable is a valid gate state: role-gated UI
		// hides itself, rendering continues.
		s.bus.Error(api.FailureMessage("Load profile", err))
	} else {
		profile.ID = fetched.ID
		profile.Role = fetched.Role
		if fetched.Name != "" {
			profile.Name = fetched.Name
		}
	}

	event := session.EventResolveUnverified
	if principal.EmailVerified {
		event = session.EventResolveVerified
	}
	return s.publish(event, &principal, profile)
}

// SignOut drops the session and resets the gate.
func (s *SessionService) SignOut() session.Snapshot {
	return s.publish(session.EventSignOut, nil, session.Profile{})
}

func (s *SessionService) publish(event string, p *session.Principal, profile session.Profile) session.Snapshot {
	s.mu.Lock()
	if err := s.machine.Transition(event); err != nil {
		// Re-resolution of an unchanged state is not an error for
		// callers; the gate simply stays put.
		s.mu.Unlock()
		return s.Snapshot()
	}
	s.snapshot = session.Snapshot{
		State:     s.machine.CurrentState(),
		Principal: p,
		Profile:   profile,
	}
	snap := s.snapshot
	subs := make([]func(session.Snapshot), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap
}
