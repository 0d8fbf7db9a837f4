package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/card"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
)

var (
	taskPriority string
	taskDeadline string
	taskTeam     int
)

// loadBoardServices resolves the session, refreshes teams, and points
// the store at the selected team.
func loadBoardServices(cmd *cobra.Command) (*wiring.AppServices, error) {
	services, err := loadResolvedServices(cmd.Context())
	if err != nil {
		return nil, err
	}
	if err := requireRoute(services, session.RouteDashboard); err != nil {
		return nil, err
	}
	if err := services.Teams.Refresh(cmd.Context()); err != nil {
		return nil, MapError(err)
	}
	if taskTeam != 0 {
		if !services.Teams.Select(taskTeam) {
			return nil, fmt.Errorf("you are not in team %d", taskTeam)
		}
	}
	if services.Teams.Selected() == nil {
		return nil, fmt.Errorf("no team selected; run 'kanbanize teams' to create or join one")
	}
	if err := services.Tasks.Refresh(cmd.Context()); err != nil {
		return nil, MapError(err)
	}
	return services, nil
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Work with the selected team's tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks by lane",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadBoardServices(cmd)
		if err != nil {
			return err
		}

		cards := services.Tasks.Cards()
		for _, col := range card.AllColumns() {
			fmt.Printf("%s:\n", col.DisplayName())
			for _, c := range cards {
				if c.Column != col {
					continue
				}
				assignee := "-"
				if c.AssignedTo != nil {
					assignee = strconv.Itoa(*c.AssignedTo)
				}
				fmt.Printf("  %d\t%s\t%d%%\t%s\t%s\n", c.ID, c.DisplayTitle(), c.Progress, c.Priority, assignee)
			}
		}
		return nil
	},
}

var tasksAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task to the backlog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadBoardServices(cmd)
		if err != nil {
			return err
		}

		draft := card.Card{Title: args[0]}
		if taskPriority != "" {
			p := card.Priority(taskPriority)
			if !p.IsValid() {
				return fmt.Errorf("invalid priority %q", taskPriority)
			}
			draft.Priority = p
		}
		if taskDeadline != "" {
			if _, err := time.Parse("2006-01-02", taskDeadline); err != nil {
				return fmt.Errorf("invalid deadline %q, want YYYY-MM-DD", taskDeadline)
			}
			draft.Deadline = taskDeadline
		}

		created, err := services.Tasks.CreateCard(cmd.Context(), draft)
		if err != nil {
			return MapError(err)
		}
		fmt.Printf("Created task %d: %s\n", created.ID, created.DisplayTitle())
		return nil
	},
}

var tasksMoveCmd = &cobra.Command{
	Use:   "move <id> <column>",
	Short: "Move a task to another lane",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadBoardServices(cmd)
		if err != nil {
			return err
		}

		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		col, err := card.ParseColumn(args[1])
		if err != nil {
			return err
		}
		return MapError(services.Tasks.MoveCard(cmd.Context(), id, col))
	},
}

var tasksAssignCmd = &cobra.Command{
	Use:   "assign <id> <member-id>",
	Short: "Assign a task to a team member",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadBoardServices(cmd)
		if err != nil {
			return err
		}

		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		memberID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid member id %q", args[1])
		}

		selected := services.Teams.Selected()
		full, err := services.API.GetTeam(cmd.Context(), selected.ID)
		if err != nil {
			return MapError(err)
		}
		member := full.FindMember(memberID)
		if member == nil {
			return fmt.Errorf("member %d is not in team %s", memberID, full.Name)
		}
		return MapError(services.Tasks.AssignCard(cmd.Context(), id, *member))
	},
}

var tasksProgressCmd = &cobra.Command{
	Use:   "progress <id> <percent>",
	Short: "Set a task's progress",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadBoardServices(cmd)
		if err != nil {
			return err
		}
		if err := services.Workday.Resync(cmd.Context()); err != nil {
			return MapError(err)
		}

		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		value, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid progress %q", args[1])
		}
		if err := services.Tasks.SetProgress(cmd.Context(), id, value); err != nil {
			return MapError(err)
		}

		// The write is debounced; give it the window to settle before
		// the process exits.
		time.Sleep(600 * time.Millisecond)
		return nil
	},
}

var tasksCompleteCmd = &cobra.Command{
	Use:   "complete <id>",
	Short: "Toggle a task between complete and incomplete",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadBoardServices(cmd)
		if err != nil {
			return err
		}
		if err := services.Workday.Resync(cmd.Context()); err != nil {
			return MapError(err)
		}

		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		return MapError(services.Tasks.ToggleComplete(cmd.Context(), id))
	},
}

var tasksDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadBoardServices(cmd)
		if err != nil {
			return err
		}

		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		return MapError(services.Tasks.DeleteCard(cmd.Context(), id))
	},
}

func init() {
	tasksCmd.PersistentFlags().IntVar(&taskTeam, "team", 0, "team id (defaults to your first team)")
	tasksAddCmd.Flags().StringVar(&taskPriority, "priority", "", "Low, Medium, or High")
	tasksAddCmd.Flags().StringVar(&taskDeadline, "deadline", "", "deadline as YYYY-MM-DD")

	tasksCmd.AddCommand(tasksListCmd, tasksAddCmd, tasksMoveCmd, tasksAssignCmd, tasksProgressCmd, tasksCompleteCmd, tasksDeleteCmd)
	RootCmd.AddCommand(tasksCmd)
}
