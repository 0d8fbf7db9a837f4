package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/config"
)

var (
	configAPIBaseURL     string
	configIdentityAPIKey string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the client configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := stateRoot()
		if err != nil {
			return err
		}
		cfg, err := config.Load(root)
		if err != nil {
			return err
		}

		path, _ := config.Path(root)
		fmt.Printf("Config file: %s\n", path)
		fmt.Printf("API base URL: %s\n", cfg.APIBaseURL)
		if cfg.Identity.APIKey != "" {
			fmt.Println("Identity API key: set")
		} else {
			fmt.Println("Identity API key: not set")
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the client configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := stateRoot()
		if err != nil {
			return err
		}
		cfg, err := config.Load(root)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("api-base-url") {
			cfg.APIBaseURL = configAPIBaseURL
		}
		if cmd.Flags().Changed("identity-api-key") {
			cfg.Identity.APIKey = configIdentityAPIKey
		}

		if err := config.Save(root, cfg); err != nil {
			return err
		}
		fmt.Println("Configuration saved.")
		return nil
	},
}

func init() {
	configSetCmd.Flags().StringVar(&configAPIBaseURL, "api-base-url", "", "board API base URL")
	configSetCmd.Flags().StringVar(&configIdentityAPIKey, "identity-api-key", "", "identity provider API key")
	configCmd.AddCommand(configSetCmd)
	RootCmd.AddCommand(configCmd)
}
