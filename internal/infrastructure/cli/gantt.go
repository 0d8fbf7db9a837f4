package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
)

var ganttCmd = &cobra.Command{
	Use:   "gantt [team-id]",
	Short: "Show each task's sprint window",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadResolvedServices(cmd.Context())
		if err != nil {
			return err
		}

		route := session.RouteGantt
		if len(args) > 0 {
			route += args[0]
		}
		if err := requireRoute(services, route); err != nil {
			return err
		}

		if err := services.Teams.Refresh(cmd.Context()); err != nil {
			return MapError(err)
		}
		if len(args) > 0 {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid team id %q", args[0])
			}
			if !services.Teams.Select(id) {
				return fmt.Errorf("you are not in team %d", id)
			}
		}
		if services.Teams.Selected() == nil {
			return fmt.Errorf("no team selected; run 'kanbanize teams' to create or join one")
		}
		if err := services.Tasks.Refresh(cmd.Context()); err != nil {
			return MapError(err)
		}

		cards := services.Tasks.Cards()
		sort.SliceStable(cards, func(i, j int) bool {
			a, b := cards[i].SprintStart, cards[j].SprintStart
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.Before(*b)
			}
		})

		for _, c := range cards {
			window := "unscheduled"
			if c.SprintStart != nil && c.SprintFinish != nil {
				window = fmt.Sprintf("%s - %s", c.SprintStart.Format("2006-01-02"), c.SprintFinish.Format("2006-01-02"))
			}
			fmt.Printf("%s\t%s\t%d%%\n", c.DisplayTitle(), window, c.Progress)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(ganttCmd)
}
