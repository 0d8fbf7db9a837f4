package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"golang.org/x/oauth2"
)

// refreshSkew renews tokens slightly before expiry so in-flight
// requests never carry a token that dies mid-call.
const refreshSkew = 2 * time.Minute

// TokenSource is an oauth2.TokenSource over the provider's refresh
// flow. Refreshes are retried; API calls themselves are not.
type TokenSource struct {
	provider *Provider
	retryCfg retry.Config

	mu           sync.Mutex
	idToken      string
	refreshToken string
	expiresAt    time.Time
}

// NewTokenSource seeds a token source from a signed-in account.
func NewTokenSource(provider *Provider, acct *Account) *TokenSource {
	return &TokenSource{
		provider: provider,
		retryCfg: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  100 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
		idToken:      acct.IDToken,
		refreshToken: acct.RefreshToken,
		expiresAt:    acct.ExpiresAt,
	}
}

// Token returns a valid ID token, refreshing if the cached one is near
// expiry. Implements oauth2.TokenSource.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.idToken != "" && ts.provider.now().Add(refreshSkew).Before(ts.expiresAt) {
		return &oauth2.Token{AccessToken: ts.idToken, Expiry: ts.expiresAt}, nil
	}
	return ts.refreshLocked(context.Background())
}

// ForceRefresh discards the cached token and fetches a fresh one. Used
// when the session resolves so verification changes are not served from
// a stale token.
func (ts *TokenSource) ForceRefresh(ctx context.Context) (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.refreshLocked(ctx)
}

// RefreshToken returns the current long-lived refresh token for
// persisting the session across runs.
func (ts *TokenSource) RefreshToken() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.refreshToken
}

func (ts *TokenSource) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	if ts.refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	r := retry.New[*oauth2.Token](ts.retryCfg)
	tok, err := r.Do(ctx, func(ctx context.Context) (*oauth2.Token, error) {
		return ts.provider.exchangeRefreshToken(ctx, ts)
	})
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return tok, nil
}

// exchangeRefreshToken performs the securetoken grant and updates the
// source's cached tokens.
func (p *Provider) exchangeRefreshToken(ctx context.Context, ts *TokenSource) (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", ts.refreshToken)

	u := p.tokenURL + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	ttl, _ := strconv.Atoi(body.ExpiresIn)
	if ttl == 0 {
		ttl = 3600
	}

	ts.idToken = body.IDToken
	if body.RefreshToken != "" {
		ts.refreshToken = body.RefreshToken
	}
	ts.expiresAt = p.now().Add(time.Duration(ttl) * time.Second)

	return &oauth2.Token{AccessToken: ts.idToken, Expiry: ts.expiresAt}, nil
}
