package cli

import (
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/tui"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
)

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "Interactive team dashboard",
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

		if os.Getenv("KANBANIZE_SKIP_TUI_RUN") == "true" {
			return nil
		}

		p := tea.NewProgram(tui.NewDashboardModel(services.Teams, services.Bus))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("teams run failed: %w", err)
		}
		return nil
	},
}

var teamsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your teams",
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

		teams := services.Teams.Teams()
		if len(teams) == 0 {
			fmt.Println("No teams yet. Create one with 'kanbanize teams create <name>'.")
			return nil
		}
		for _, t := range teams {
			fmt.Printf("%d\t%s\t%s\t%d members\n", t.ID, t.Name, t.Code, len(t.Members))
		}
		return nil
	},
}

var teamsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadResolvedServices(cmd.Context())
		if err != nil {
			return err
		}
		if err := requireRoute(services, session.RouteDashboard); err != nil {
			return err
		}

		created, err := services.Teams.Create(cmd.Context(), args[0])
		if err != nil {
			return MapError(err)
		}
		fmt.Printf("Created team %s (join code %s)\n", created.Name, created.Code)
		return nil
	},
}

var teamsJoinCmd = &cobra.Command{
	Use:   "join <code>",
	Short: "Join a team by its code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadResolvedServices(cmd.Context())
		if err != nil {
			return err
		}
		if err := requireRoute(services, session.RouteDashboard); err != nil {
			return err
		}

		joined, err := services.Teams.Join(cmd.Context(), args[0])
		if err != nil {
			return MapError(err)
		}
		fmt.Printf("Joined team %s\n", joined.Name)
		return nil
	},
}

var teamsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a team",
	Args:  cobra.ExactArgs(1),
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

		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid team id %q", args[0])
		}
		if err := services.Teams.Delete(cmd.Context(), id); err != nil {
			return MapError(err)
		}
		fmt.Println("Team deleted.")
		return nil
	},
}

var teamsRemoveMemberCmd = &cobra.Command{
	Use:   "remove-member <team-id> <member-id>",
	Short: "Remove a member from a team",
	Args:  cobra.ExactArgs(2),
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

		teamID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid team id %q", args[0])
		}
		memberID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid member id %q", args[1])
		}
		if err := services.Teams.RemoveMember(cmd.Context(), teamID, memberID); err != nil {
			return MapError(err)
		}
		fmt.Println("Member removed.")
		return nil
	},
}

func init() {
	teamsCmd.AddCommand(teamsListCmd, teamsCreateCmd, teamsJoinCmd, teamsDeleteCmd, teamsRemoveMemberCmd)
	RootCmd.AddCommand(teamsCmd)
}
