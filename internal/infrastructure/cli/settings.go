package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
)

var (
	settingsCurrentPassword string
	settingsNewPassword     string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Account settings",
}

var changePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Change the account password",
	Long:  "Reauthenticates with the current password, then replaces it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadResolvedServices(cmd.Context())
		if err != nil {
			return err
		}
		if err := requireRoute(services, session.RouteSettings); err != nil {
			return err
		}

		snap := services.Session.Snapshot()
		if snap.Principal == nil {
			return fmt.Errorf("not signed in; run 'kanbanize login' first")
		}

		current, next, err := promptPasswordChange()
		if err != nil {
			return err
		}
		if next == "" {
			return fmt.Errorf("new password is required")
		}

		if err := services.ChangePassword(cmd.Context(), snap.Principal.Email, current, next); err != nil {
			return fmt.Errorf("password change failed: %w", err)
		}
		fmt.Println("Password updated successfully.")
		return nil
	},
}

func promptPasswordChange() (string, string, error) {
	reader := bufio.NewReader(os.Stdin)

	current := settingsCurrentPassword
	if current == "" {
		fmt.Print("Current password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		current = strings.TrimRight(line, "\r\n")
	}

	next := settingsNewPassword
	if next == "" {
		fmt.Print("New password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		next = strings.TrimRight(line, "\r\n")
	}
	return current, next, nil
}

func init() {
	changePasswordCmd.Flags().StringVar(&settingsCurrentPassword, "current-password", "", "current account password")
	changePasswordCmd.Flags().StringVar(&settingsNewPassword, "new-password", "", "new account password")
	settingsCmd.AddCommand(changePasswordCmd)
	RootCmd.AddCommand(settingsCmd)
}
