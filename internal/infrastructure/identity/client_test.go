package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
)

func testProvider(t *testing.T, handler http.Handler) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := NewProvider("test-key", WithEndpoints(srv.URL, srv.URL+"/token"))
	return p, srv
}

func TestSignIn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts:signInWithPassword", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "dana@example.com" {
			t.Errorf("email = %v", body["email"])
		}
		json.NewEncoder(w).Encode(map[string]string{
			"localId": "uid-1", "email": "dana@example.com",
			"idToken": "tok-1", "refreshToken": "ref-1", "expiresIn": "3600",
		})
	})
	mux.HandleFunc("/accounts:lookup", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"users": []map[string]any{{"emailVerified": true}}})
	})

	p, _ := testProvider(t, mux)
	acct, err := p.SignIn(context.Background(), "dana@example.com", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if acct.UID != "uid-1" || !acct.EmailVerified || acct.RefreshToken != "ref-1" {
		t.Errorf("account = %+v", acct)
	}
}

func TestSignInBadCredentials(t *testing.T) {
	p, _ := testProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "INVALID_LOGIN_CREDENTIALS"}})
	}))

	_, err := p.SignIn(context.Background(), "dana@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Invalid email or password" {
		t.Errorf("error text = %q", err.Error())
	}
}

func TestWeakPasswordMessage(t *testing.T) {
	err := providerError("WEAK_PASSWORD : Password should be at least 6 characters")
	if err.Error() != "Password should be at least 6 characters" {
		t.Errorf("error text = %q", err.Error())
	}
	if err.Code != "WEAK_PASSWORD" {
		t.Errorf("code = %q", err.Code)
	}
}

func TestTokenSourceRefreshesExpired(t *testing.T) {
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		if r.FormValue("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q", r.FormValue("grant_type"))
		}
		json.NewEncoder(w).Encode(map[string]string{
			"id_token": "tok-2", "refresh_token": "ref-2", "expires_in": "3600",
		})
	})

	p, _ := testProvider(t, mux)
	ts := NewTokenSource(p, &Account{IDToken: "tok-1", RefreshToken: "ref-1"})

	// The seed account has a zero expiry, so the first Token() refreshes.
	tok, err := ts.Token()
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "tok-2" {
		t.Errorf("access token = %q", tok.AccessToken)
	}
	if ts.RefreshToken() != "ref-2" {
		t.Errorf("refresh token = %q", ts.RefreshToken())
	}

	// A fresh token is served from cache.
	if _, err := ts.Token(); err != nil {
		t.Fatal(err)
	}
	if got := refreshes.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}

	// ForceRefresh always goes to the network.
	if _, err := ts.ForceRefresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := refreshes.Load(); got != 2 {
		t.Errorf("refresh calls = %d, want 2", got)
	}
}

func TestStreamEmitsCurrentOnSubscribe(t *testing.T) {
	s := NewStream()

	var got []Update
	s.Subscribe(func(u Update) { got = append(got, u) })

	if len(got) != 1 || !got[0].Loading {
		t.Fatalf("initial emission = %+v", got)
	}

	s.Set(&session.Principal{UID: "uid-1", Email: "dana@example.com"})
	s.Set(nil) // sign out

	if len(got) != 3 {
		t.Fatalf("emissions = %d, want 3", len(got))
	}
	if got[1].Principal == nil || got[1].Loading {
		t.Errorf("sign-in emission = %+v", got[1])
	}
	if got[2].Principal != nil {
		t.Errorf("sign-out emission = %+v", got[2])
	}
}
