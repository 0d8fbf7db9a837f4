package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/api"
	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/storage"
)

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, storage.KanbanizeDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFile), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBaseURL != api.DefaultBaseURL {
		t.Errorf("APIBaseURL = %q, want default", cfg.APIBaseURL)
	}
}

func TestLoadFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "api_base_url: https://kanbanize.example.com\nidentity:\n  api_key: key-1\n")

	cfg, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBaseURL != "https://kanbanize.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.Identity.APIKey != "key-1" {
		t.Errorf("APIKey = %q", cfg.Identity.APIKey)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "api_base_url: https://file.example.com\n")
	t.Setenv(EnvAPIBaseURL, "https://env.example.com")
	t.Setenv(EnvIdentityAPIKey, "env-key")

	cfg, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBaseURL != "https://env.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.Identity.APIKey != "env-key" {
		t.Errorf("APIKey = %q", cfg.Identity.APIKey)
	}
}

func TestSchemaRejectsUnknownKeys(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "api_base_url: https://ok.example.com\napi_base_ur: typo\n")

	_, err := Load(root)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("error = %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	// Save needs the state dir; creating a session first provides it.
	if err := storage.NewFilesystemRepository(root).SaveSession(&storage.CachedSession{UID: "u"}); err != nil {
		t.Fatal(err)
	}

	want := &Config{APIBaseURL: "https://saved.example.com", Identity: IdentityConfig{APIKey: "k"}}
	if err := Save(root, want); err != nil {
		t.Fatal(err)
	}

	got, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if got.APIBaseURL != want.APIBaseURL || got.Identity.APIKey != want.Identity.APIKey {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
