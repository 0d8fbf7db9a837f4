// Package api is the typed client for the Kanbanize REST API. All calls
// carry a bearer ID token from the identity provider; failures decode
// the server's {"detail": ...} body when present.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/felixgeelhaar/kanbanize/pkg/domain/card"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/team"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/workday"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is used when no API endpoint is configured.
const DefaultBaseURL = "http://localhost:8000"

// APIError is a non-2xx response from the API. Detail carries the
// server-provided message when the body had one.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// FailureMessage formats an error for user display: API errors with a
// detail surface as "<action> failed: <detail>", anything else falls
// back to the raw message.
func FailureMessage(action string, err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return fmt.Sprintf("%s failed: %s", action, apiErr.Detail)
	}
	return fmt.Sprintf("%s failed: %s", action, err)
}

// Client talks to the Kanbanize API.
type Client struct {
	baseURL string
	tokens  oauth2.TokenSource
	client  *http.Client
}

// NewClient creates a client against the given base URL. Tokens are
// pulled from the source per request so refreshes are picked up.
func NewClient(baseURL string, tokens oauth2.TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	tok.SetAuthHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &detail) == nil {
			apiErr.Detail = detail.Detail
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// --- Profile ---

// Profile is the role/name record for the authenticated user.
type Profile struct {
	ID   int       `json:"id"`
	Name string    `json:"name"`
	Role team.Role `json:"role"`
}

// ProfileUpdate is the writable part of a profile.
type ProfileUpdate struct {
	Name           string    `json:"name"`
	Role           team.Role `json:"role"`
	Position       string    `json:"position,omitempty"`
	ProfilePicData string    `json:"profile_pic_data,omitempty"`
}

func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/api/profile/", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodPut, "/api/profile/me/", upd, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeactivateProfile(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/profile/deactivate/", nil, nil)
}

// --- Teams ---

func (c *Client) ListTeams(ctx context.Context) ([]team.Team, error) {
	var teams []team.Team
	if err := c.do(ctx, http.MethodGet, "/api/teams/", nil, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (c *Client) GetTeam(ctx context.Context, id int) (*team.Team, error) {
	var t team.Team
	if err := c.do(ctx, http.MethodGet, "/api/teams/"+strconv.Itoa(id)+"/", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) CreateTeam(ctx context.Context, name, code string) (*team.Team, error) {
	var t team.Team
	body := map[string]string{"name": name, "code": code}
	if err := c.do(ctx, http.MethodPost, "/api/teams/", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) DeleteTeam(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/teams/"+strconv.Itoa(id)+"/", nil, nil)
}

func (c *Client) JoinTeam(ctx context.Context, code string) (*team.Team, error) {
	var t team.Team
	if err := c.do(ctx, http.MethodPost, "/api/teams/join/", map[string]string{"code": code}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) RemoveMember(ctx context.Context, teamID, memberID int) (*team.Team, error) {
	var t team.Team
	path := fmt.Sprintf("/api/teams/%d/members/%d/", teamID, memberID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// --- Cards ---

// ListCards fetches the cards of a team; assignedTo optionally narrows
// to a member name.
func (c *Client) ListCards(ctx context.Context, teamID int, assignedTo string) ([]card.Card, error) {
	q := url.Values{}
	q.Set("team_id", strconv.Itoa(teamID))
	if assignedTo != "" {
		q.Set("assigned_to", assignedTo)
	}
	var cards []card.Card
	if err := c.do(ctx, http.MethodGet, "/api/cards/?"+q.Encode(), nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (c *Client) CreateCard(ctx context.Context, draft card.Card) (*card.Card, error) {
	var created card.Card
	if err := c.do(ctx, http.MethodPost, "/api/cards/", draft, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateCard(ctx context.Context, id int, patch card.Patch) (*card.Card, error) {
	var updated card.Card
	if err := c.do(ctx, http.MethodPatch, "/api/cards/"+strconv.Itoa(id)+"/", patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteCard(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/cards/"+strconv.Itoa(id)+"/", nil, nil)
}

// --- Workdays ---

func (c *Client) ListWorkdays(ctx context.Context) ([]workday.Session, error) {
	var sessions []workday.Session
	if err := c.do(ctx, http.MethodGet, "/api/workdays/", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) StartWorkday(ctx context.Context, start time.Time) (*workday.Session, error) {
	var s workday.Session
	body := map[string]string{"start_time": start.UTC().Format(time.RFC3339)}
	if err := c.do(ctx, http.MethodPost, "/api/workdays/", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) EndWorkday(ctx context.Context, id int, end time.Time, workingHours string) (*workday.Session, error) {
	var s workday.Session
	body := map[string]string{
		"end_time":      end.UTC().Format(time.RFC3339),
		"working_hours": workingHours,
	}
	if err := c.do(ctx, http.MethodPatch, "/api/workdays/"+strconv.Itoa(id)+"/", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
