package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
)

// homeOverride lets tests point the client at a scratch directory.
var homeOverride string

func stateRoot() (string, error) {
	if homeOverride != "" {
		return homeOverride, nil
	}
	if env := os.Getenv("KANBANIZE_HOME"); env != "" {
		return env, nil
	}
	return os.UserHomeDir()
}

func loadServices() (*wiring.AppServices, error) {
	root, err := stateRoot()
	if err != nil {
		return nil, err
	}
	services, loadErr := wiring.BuildAppServices(root)
	if services == nil {
		return nil, fmt.Errorf("failed to build services: %w", loadErr)
	}
	if loadErr != nil {
		fmt.Printf("Warning: %v\n", loadErr)
	}
	return services, nil
}

// loadResolvedServices builds the graph and resolves the persisted
// session so the gate has settled before any command logic runs.
func loadResolvedServices(ctx context.Context) (*wiring.AppServices, error) {
	services, err := loadServices()
	if err != nil {
		return nil, err
	}
	if err := services.ResumeSession(ctx); err != nil {
		fmt.Printf("Warning: stored session unreadable: %v\n", err)
	}
	return services, nil
}

// requireRoute consults the gate for the command's route and translates
// a redirect into a user-facing error.
func requireRoute(services *wiring.AppServices, route string) error {
	snap := services.Session.Snapshot()
	decision := session.Decide(snap.State, route)
	if !decision.Redirected {
		return nil
	}

	switch decision.Path {
	case session.RouteLogin:
		return fmt.Errorf("not signed in; run 'kanbanize login' first")
	case session.RouteVerifyEmail:
		return fmt.Errorf("email not verified; run 'kanbanize verify-email' and follow the link")
	case session.RouteDashboard:
		return fmt.Errorf("already signed in; run 'kanbanize logout' first")
	default:
		return fmt.Errorf("not allowed here; redirected to %s", decision.Path)
	}
}
