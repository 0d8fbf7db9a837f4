// Package config loads the client configuration from ~/.kanbanize.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/api"
	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/storage"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

const configFile = "config.yaml"

// Environment overrides, checked after the file is read.
const (
	EnvAPIBaseURL     = "KANBANIZE_API_BASE_URL"
	EnvIdentityAPIKey = "KANBANIZE_IDENTITY_API_KEY"
)

// IdentityConfig points at the external identity provider.
type IdentityConfig struct {
	APIKey   string `yaml:"api_key" json:"api_key"`
	AuthURL  string `yaml:"auth_url,omitempty" json:"auth_url,omitempty"`
	TokenURL string `yaml:"token_url,omitempty" json:"token_url,omitempty"`
}

// Config is the full client configuration document.
type Config struct {
	APIBaseURL string         `yaml:"api_base_url" json:"api_base_url"`
	Identity   IdentityConfig `yaml:"identity" json:"identity"`
}

// schema validates the shape of the configuration document before it is
// trusted. Unknown keys are rejected to catch typos.
const schema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "api_base_url": {"type": "string", "minLength": 1},
    "identity": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "api_key": {"type": "string"},
        "auth_url": {"type": "string"},
        "token_url": {"type": "string"}
      }
    }
  }
}`

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{APIBaseURL: api.DefaultBaseURL}
}

// Load reads the configuration from root/.kanbanize/config.yaml,
// validates it, and applies environment overrides. A missing file
// yields the defaults.
func Load(root string) (*Config, error) {
	cfg := Default()

	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(configFile)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus env overrides.
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := validate(data); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = api.DefaultBaseURL
	}
	return cfg, nil
}

// Save writes the configuration document.
func Save(root string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	repo := storage.NewFilesystemRepository(root)
	path, err := repo.ResolvePath(configFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// Path returns the location of the config file for the given root.
func Path(root string) (string, error) {
	return storage.NewFilesystemRepository(root).ResolvePath(configFile)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIBaseURL); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv(EnvIdentityAPIKey); v != "" {
		cfg.Identity.APIKey = v
	}
}

// validate runs the YAML document through the JSON schema.
func validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to convert config for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(jsonDoc),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
