// Package identity wraps the external identity provider: credential
// flows, token refresh, and the current-user stream the session gate
// consumes.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Endpoint defaults for the hosted identity provider. Overridable for
// tests and self-hosted emulators.
const (
	DefaultAuthURL  = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL = "https://securetoken.googleapis.com/v1/token"
)

// ProviderError is an error response from the identity provider. The
// message is surfaced to the user verbatim.
type ProviderError struct {
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// messages maps provider error codes to the text shown to users.
var messages = map[string]string{
	"EMAIL_EXISTS":              "Email already in use",
	"EMAIL_NOT_FOUND":           "Invalid email or password",
	"INVALID_PASSWORD":          "Invalid email or password",
	"INVALID_LOGIN_CREDENTIALS": "Invalid email or password",
	"USER_DISABLED":             "This account has been disabled",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts, try again later",
}

func providerError(code string) *ProviderError {
	// WEAK_PASSWORD arrives with a trailing explanation after " : ".
	if base, explanation, ok := strings.Cut(code, " : "); ok && base == "WEAK_PASSWORD" {
		return &ProviderError{Code: base, Message: explanation}
	}
	if msg, ok := messages[code]; ok {
		return &ProviderError{Code: code, Message: msg}
	}
	return &ProviderError{Code: code, Message: code}
}

// Account is the provider's view of a signed-in user plus its tokens.
type Account struct {
	UID           string
	Email         string
	EmailVerified bool
	IDToken       string
	RefreshToken  string
	ExpiresAt     time.Time
}

// Provider talks to the identity provider's REST surface.
type Provider struct {
	apiKey   string
	authURL  string
	tokenURL string
	client   *http.Client
	now      func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithEndpoints overrides the auth and token endpoints.
func WithEndpoints(authURL, tokenURL string) Option {
	return func(p *Provider) {
		p.authURL = authURL
		p.tokenURL = tokenURL
	}
}

// NewProvider creates a provider client for the given API key.
func NewProvider(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:   apiKey,
		authURL:  DefaultAuthURL,
		tokenURL: DefaultTokenURL,
		client:   &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
	}
	for _, fn := range opts {
		fn(p)
	}
	return p
}

func (p *Provider) post(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	u := p.authURL + endpoint + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &failure) == nil && failure.Error.Message != "" {
			return providerError(failure.Error.Message)
		}
		return fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

type credentialResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

func (p *Provider) account(resp credentialResponse) *Account {
	ttl, _ := strconv.Atoi(resp.ExpiresIn)
	if ttl == 0 {
		ttl = 3600
	}
	return &Account{
		UID:          resp.LocalID,
		Email:        resp.Email,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    p.now().Add(time.Duration(ttl) * time.Second),
	}
}

// SignIn authenticates with email and password.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*Account, error) {
	var resp credentialResponse
	body := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := p.post(ctx, "/accounts:signInWithPassword", body, &resp); err != nil {
		return nil, err
	}
	acct := p.account(resp)
	return p.hydrate(ctx, acct)
}

// SignUp registers a new account.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*Account, error) {
	var resp credentialResponse
	body := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := p.post(ctx, "/accounts:signUp", body, &resp); err != nil {
		return nil, err
	}
	return p.account(resp), nil
}

// hydrate fills the verification flag from a lookup call.
func (p *Provider) hydrate(ctx context.Context, acct *Account) (*Account, error) {
	verified, err := p.Lookup(ctx, acct.IDToken)
	if err != nil {
		return nil, err
	}
	acct.EmailVerified = verified
	return acct, nil
}

// Lookup reads the account's current verification status. Called after
// every token refresh so verification changes made elsewhere (another
// device, an email link) are picked up.
func (p *Provider) Lookup(ctx context.Context, idToken string) (bool, error) {
	var resp struct {
		Users []struct {
			EmailVerified bool `json:"emailVerified"`
		} `json:"users"`
	}
	if err := p.post(ctx, "/accounts:lookup", map[string]string{"idToken": idToken}, &resp); err != nil {
		return false, err
	}
	if len(resp.Users) == 0 {
		return false, fmt.Errorf("account lookup returned no users")
	}
	return resp.Users[0].EmailVerified, nil
}

// SendEmailVerification asks the provider to mail a verification link.
func (p *Provider) SendEmailVerification(ctx context.Context, idToken string) error {
	body := map[string]string{"requestType": "VERIFY_EMAIL", "idToken": idToken}
	return p.post(ctx, "/accounts:sendOobCode", body, nil)
}

// SendPasswordReset asks the provider to mail a password reset link.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"requestType": "PASSWORD_RESET", "email": email}
	return p.post(ctx, "/accounts:sendOobCode", body, nil)
}

// UpdatePassword changes the password of the signed-in account. The
// caller reauthenticates first to obtain a fresh ID token.
func (p *Provider) UpdatePassword(ctx context.Context, idToken, newPassword string) (*Account, error) {
	var resp credentialResponse
	body := map[string]any{"idToken": idToken, "password": newPassword, "returnSecureToken": true}
	if err := p.post(ctx, "/accounts:update", body, &resp); err != nil {
		return nil, err
	}
	return p.account(resp), nil
}
