package wiring

import (
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/identity"
)

// SessionTokens is the token source handed to the API client. It
// delegates to the active session's source and swaps atomically on
// sign-in and sign-out, so the client is built once and never rebuilt.
type SessionTokens struct {
	mu     sync.RWMutex
	active *identity.TokenSource
}

// Token implements oauth2.TokenSource.
func (t *SessionTokens) Token() (*oauth2.Token, error) {
	t.mu.RLock()
	active := t.active
	t.mu.RUnlock()

	if active == nil {
		return nil, fmt.Errorf("not signed in")
	}
	return active.Token()
}

// Set swaps the active source. Nil signs the client out.
func (t *SessionTokens) Set(source *identity.TokenSource) {
	t.mu.Lock()
	t.active = source
	t.mu.Unlock()
}

// Active returns the current source, nil when signed out.
func (t *SessionTokens) Active() *identity.TokenSource {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}
