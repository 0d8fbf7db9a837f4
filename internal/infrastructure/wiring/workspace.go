// Package wiring assembles the application services over the
// infrastructure for a user's home directory.
package wiring

import (
	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/storage"
)

// Workspace bundles the filesystem state shared by the services.
type Workspace struct {
	Root string
	Repo *storage.FilesystemRepository
}

// NewWorkspace creates a workspace rooted at the given directory
// (normally the user's home).
func NewWorkspace(root string) *Workspace {
	return &Workspace{
		Root: root,
		Repo: storage.NewFilesystemRepository(root),
	}
}
