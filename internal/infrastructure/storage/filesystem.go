// Package storage persists the local client state under ~/.kanbanize:
// the cached identity session and the client configuration.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const KanbanizeDir = ".kanbanize"
const SessionFile = "session.yaml"

// CachedSession is the persisted identity state that survives restarts.
// The refresh token alone is enough to resume; the ID token is kept so
// an unexpired one is reused without a round trip.
type CachedSession struct {
	UID          string    `yaml:"uid"`
	Email        string    `yaml:"email"`
	IDToken      string    `yaml:"id_token"`
	RefreshToken string    `yaml:"refresh_token"`
	ExpiresAt    time.Time `yaml:"expires_at"`
}

// FilesystemRepository reads and writes client state files.
type FilesystemRepository struct {
	root string
}

// NewFilesystemRepository creates a repository rooted at the given
// directory (normally the user's home).
func NewFilesystemRepository(root string) *FilesystemRepository {
	return &FilesystemRepository{root: root}
}

// ResolvePath ensures the path is within the .kanbanize directory and
// prevents traversal.
func (r *FilesystemRepository) ResolvePath(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}

	baseDir := filepath.Join(r.root, KanbanizeDir)
	fullPath := filepath.Join(baseDir, filename)
	cleanPath := filepath.Clean(fullPath)

	if !strings.HasPrefix(cleanPath, baseDir) || filepath.Dir(cleanPath) != baseDir {
		return "", fmt.Errorf("invalid file path: %s", filename)
	}

	return cleanPath, nil
}

// LoadSession returns the cached session, or nil when none is stored.
func (r *FilesystemRepository) LoadSession() (*CachedSession, error) {
	path, err := r.ResolvePath(SessionFile)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path is resolved and validated via ResolvePath
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var cached CachedSession
	if err := yaml.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &cached, nil
}

// SaveSession writes the cached session with owner-only permissions.
func (r *FilesystemRepository) SaveSession(cached *CachedSession) error {
	if cached == nil {
		return fmt.Errorf("session is nil")
	}

	path, err := r.ResolvePath(SessionFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := yaml.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// ClearSession removes the cached session. Missing files are fine.
func (r *FilesystemRepository) ClearSession() error {
	path, err := r.ResolvePath(SessionFile)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
