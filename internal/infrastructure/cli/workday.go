package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/tui"
	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
)

func loadWorkdayServices(cmd *cobra.Command) (*wiring.AppServices, error) {
	services, err := loadResolvedServices(cmd.Context())
	if err != nil {
		return nil, err
	}
	if err := requireRoute(services, session.RouteWorkdayTracker); err != nil {
		return nil, err
	}
	if err := services.Workday.Resync(cmd.Context()); err != nil {
		return nil, MapError(err)
	}
	return services, nil
}

var workdayCmd = &cobra.Command{
	Use:   "workday",
	Short: "Track your workday",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadWorkdayServices(cmd)
		if err != nil {
			return err
		}

		if os.Getenv("KANBANIZE_SKIP_TUI_RUN") == "true" {
			return nil
		}

		p := tea.NewProgram(tui.NewWorkdayModel(services.Workday, services.Bus))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("workday run failed: %w", err)
		}
		return nil
	},
}

var workdayStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start your workday",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadWorkdayServices(cmd)
		if err != nil {
			return err
		}
		if err := services.Workday.Start(cmd.Context()); err != nil {
			return MapError(err)
		}
		fmt.Println("Work day started!")
		return nil
	},
}

var workdayEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End your workday",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadWorkdayServices(cmd)
		if err != nil {
			return err
		}

		// The summary covers the selected board's tasks.
		if err := services.Teams.Refresh(cmd.Context()); err == nil {
			_ = services.Tasks.Refresh(cmd.Context())
		}

		if err := services.Workday.End(cmd.Context()); err != nil {
			return MapError(err)
		}
		return nil
	},
}

var workdayStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the timer state",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadWorkdayServices(cmd)
		if err != nil {
			return err
		}
		if services.Workday.Started() {
			fmt.Printf("Workday running: %s\n", services.Workday.ElapsedDisplay())
		} else {
			fmt.Println("No workday running.")
		}
		return nil
	},
}

func init() {
	workdayCmd.AddCommand(workdayStartCmd, workdayEndCmd, workdayStatusCmd)
	RootCmd.AddCommand(workdayCmd)
}
