package identity

import (
	"sync"

	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
)

// Update is one emission of the current-user stream: the principal (nil
// when signed out) and whether the provider is still resolving.
type Update struct {
	Principal *session.Principal
	Loading   bool
}

// Stream is a live view of the current user. It starts loading and
// emits on every sign-in, sign-out, and verification change.
type Stream struct {
	mu      sync.RWMutex
	current Update
	subs    []func(Update)
}

// NewStream creates a stream in the loading state.
func NewStream() *Stream {
	return &Stream{current: Update{Loading: true}}
}

// Current returns the latest emission.
func (s *Stream) Current() Update {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers a callback invoked with the current value and
// then on every change.
func (s *Stream) Subscribe(fn func(Update)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	current := s.current
	s.mu.Unlock()

	fn(current)
}

// Set publishes a new principal. A nil principal means signed out.
func (s *Stream) Set(p *session.Principal) {
	s.mu.Lock()
	s.current = Update{Principal: p, Loading: false}
	subs := make([]func(Update), len(s.subs))
	copy(subs, s.subs)
	current := s.current
	s.mu.Unlock()

	for _, fn := range subs {
		fn(current)
	}
}

// PrincipalOf converts a provider account into the domain principal.
func PrincipalOf(acct *Account) *session.Principal {
	if acct == nil {
		return nil
	}
	return &session.Principal{
		UID:           acct.UID,
		Email:         acct.Email,
		EmailVerified: acct.EmailVerified,
	}
}
