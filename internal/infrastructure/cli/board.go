package cli

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/config"
	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/tui"
	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/watch"
	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/team"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Interactive kanban board for the selected team",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadResolvedServices(cmd.Context())
		if err != nil {
			return err
		}
		if err := requireRoute(services, session.RouteDashboard); err != nil {
			return err
		}

		if err := services.Teams.Refresh(cmd.Context()); err != nil {
			return MapError(err)
		}
		selected := services.Teams.Selected()
		if selected == nil {
			return fmt.Errorf("no team selected; run 'kanbanize teams' to create or join one")
		}
		if err := services.Tasks.Refresh(cmd.Context()); err != nil {
			return MapError(err)
		}
		if err := services.Workday.Resync(cmd.Context()); err != nil {
			fmt.Printf("Warning: workday state unavailable: %v\n", err)
		}

		var members []team.Member
		if full, err := services.API.GetTeam(cmd.Context(), selected.ID); err == nil {
			members = full.Members
		}

		if os.Getenv("KANBANIZE_SKIP_TUI_RUN") == "true" {
			return nil
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go services.Tasks.Run(ctx)
		watchConfig(ctx, services)

		p := tea.NewProgram(tui.NewBoardModel(services.Tasks, services.Bus, members))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("board run failed: %w", err)
		}
		return nil
	},
}

// watchConfig notifies a running shell when the config file changes on
// disk. The new endpoints take effect on the next start.
func watchConfig(ctx context.Context, services *wiring.AppServices) {
	path, err := config.Path(services.Workspace.Root)
	if err != nil {
		return
	}
	watcher, err := watch.NewConfigWatcher(path, 0, func() {
		services.Bus.Info("Configuration changed; restart to apply")
	})
	if err != nil {
		return
	}
	go func() { _ = watcher.Run(ctx) }()
}

func init() {
	RootCmd.AddCommand(boardCmd)
}
