// Package cli implements the kanbanize command tree.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "kanbanize",
	Version: Version,
	Short:   "A kanban board client for teams",
	Long: `Kanbanize is a terminal client for a shared kanban board.
It keeps a team's tasks in five lanes, tracks per-task progress, and
ties progress updates to each member's tracked workday.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}
