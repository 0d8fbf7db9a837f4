package wiring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/config"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/team"
)

func TestBuildAppServicesDefaults(t *testing.T) {
	services, err := BuildAppServices(t.TempDir())
	if err != nil {
		t.Fatalf("BuildAppServices failed: %v", err)
	}

	if services.Session == nil || services.Tasks == nil || services.Teams == nil || services.Workday == nil {
		t.Fatal("service graph incomplete")
	}
	if got := services.Session.Snapshot().State; got != session.GateChecking {
		t.Errorf("gate = %s before the first resolution, want %s", got, session.GateChecking)
	}
}

func TestResumeWithoutCachedSessionResolvesSignedOut(t *testing.T) {
	services, err := BuildAppServices(t.TempDir())
	if err != nil {
		t.Fatalf("BuildAppServices failed: %v", err)
	}

	if err := services.ResumeSession(context.Background()); err != nil {
		t.Fatalf("resume failed: %v", err)
	}

	if got := services.Session.Snapshot().State; got != session.GateUnauthenticated {
		t.Errorf("gate = %s, want %s", got, session.GateUnauthenticated)
	}
}

func TestChangePasswordRotatesSession(t *testing.T) {
	var updateBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		switch {
		case strings.HasSuffix(r.URL.Path, "accounts:signInWithPassword"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"localId": "u1", "email": "cy@example.com",
				"idToken": "tok-old", "refreshToken": "ref-old", "expiresIn": "3600",
			})
		case strings.HasSuffix(r.URL.Path, "accounts:lookup"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"users": []map[string]any{{"emailVerified": true}},
			})
		case strings.HasSuffix(r.URL.Path, "accounts:update"):
			updateBody = body
			// The update response omits the email, like the real endpoint.
			_ = json.NewEncoder(w).Encode(map[string]any{
				"localId": "u1", "idToken": "tok-new", "refreshToken": "ref-new", "expiresIn": "3600",
			})
		case strings.HasSuffix(r.URL.Path, "/token"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id_token": "tok-new", "refresh_token": "ref-new", "expires_in": "3600",
			})
		case r.URL.Path == "/api/profile/":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": 7, "name": "Cy", "role": string(team.RoleTeamMember),
			})
		default:
			t.Errorf("unexpected call to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	root := t.TempDir()
	cfg := &config.Config{
		APIBaseURL: srv.URL,
		Identity: config.IdentityConfig{
			APIKey:   "test-key",
			AuthURL:  srv.URL,
			TokenURL: srv.URL + "/token",
		},
	}
	if err := config.Save(root, cfg); err != nil {
		t.Fatalf("save config failed: %v", err)
	}

	services, err := BuildAppServices(root)
	if err != nil {
		t.Fatalf("BuildAppServices failed: %v", err)
	}

	if err := services.ChangePassword(context.Background(), "cy@example.com", "old-pass", "new-pass"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	if updateBody["idToken"] != "tok-old" || updateBody["password"] != "new-pass" {
		t.Errorf("update body = %v, want the reauthenticated token and the new password", updateBody)
	}

	active := services.Tokens.Active()
	if active == nil {
		t.Fatal("no token source after the password change")
	}
	if got := active.RefreshToken(); got != "ref-new" {
		t.Errorf("refresh token = %q, want the rotated one", got)
	}

	cached, err := services.Workspace.Repo.LoadSession()
	if err != nil || cached == nil {
		t.Fatalf("cached session = %v, %v", cached, err)
	}
	if cached.Email != "cy@example.com" || cached.IDToken != "tok-new" {
		t.Errorf("cached session = %+v, want the known email and the rotated token", cached)
	}

	if got := services.Session.Snapshot().State; got != session.GateVerified {
		t.Errorf("gate = %s after the change, want %s", got, session.GateVerified)
	}
}

func TestSignOutDropsTokens(t *testing.T) {
	services, err := BuildAppServices(t.TempDir())
	if err != nil {
		t.Fatalf("BuildAppServices failed: %v", err)
	}

	if err := services.SignOut(); err != nil {
		t.Fatalf("sign-out failed: %v", err)
	}
	if services.Tokens.Active() != nil {
		t.Error("token source survived sign-out")
	}
	if _, err := services.Tokens.Token(); err == nil {
		t.Error("expected an error from a signed-out token source")
	}
	if got := services.Session.Snapshot().State; got != session.GateUnauthenticated {
		t.Errorf("gate = %s, want %s", got, session.GateUnauthenticated)
	}
}
