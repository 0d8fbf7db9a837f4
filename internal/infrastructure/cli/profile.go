package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/api"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/team"
)

var (
	profileName string
	profileRole string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadResolvedServices(cmd.Context())
		if err != nil {
			return err
		}
		if err := requireRoute(services, session.RouteProfile); err != nil {
			return err
		}

		profile, err := services.API.GetProfile(cmd.Context())
		if err != nil {
			return MapError(err)
		}
		fmt.Printf("Name: %s\nRole: %s\n", profile.Name, profile.Role)
		return nil
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadResolvedServices(cmd.Context())
		if err != nil {
			return err
		}
		if err := requireRoute(services, session.RouteProfile); err != nil {
			return err
		}

		current, err := services.API.GetProfile(cmd.Context())
		if err != nil {
			return MapError(err)
		}
		upd := api.ProfileUpdate{Name: current.Name, Role: current.Role}
		if cmd.Flags().Changed("name") {
			upd.Name = profileName
		}
		if cmd.Flags().Changed("role") {
			role, err := team.ParseRole(profileRole)
			if err != nil {
				return err
			}
			upd.Role = role
		}

		profile, err := services.API.UpdateProfile(cmd.Context(), upd)
		if err != nil {
			return MapError(err)
		}
		fmt.Printf("Profile updated: %s (%s)\n", profile.Name, profile.Role)
		return nil
	},
}

var profileDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Deactivate your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadResolvedServices(cmd.Context())
		if err != nil {
			return err
		}
		if err := requireRoute(services, session.RouteProfile); err != nil {
			return err
		}

		if err := services.API.DeactivateProfile(cmd.Context()); err != nil {
			return MapError(err)
		}
		if err := services.SignOut(); err != nil {
			return err
		}
		fmt.Println("Account deactivated.")
		return nil
	},
}

func init() {
	profileUpdateCmd.Flags().StringVar(&profileName, "name", "", "display name")
	profileUpdateCmd.Flags().StringVar(&profileRole, "role", "", "role (Project Manager or Team Member)")
	profileCmd.AddCommand(profileUpdateCmd, profileDeactivateCmd)
	RootCmd.AddCommand(profileCmd)
}
