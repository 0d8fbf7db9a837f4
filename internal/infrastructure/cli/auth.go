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
	authEmail    string
	authPassword string
)

func promptCredentials(needPassword bool) (string, string, error) {
	reader := bufio.NewReader(os.Stdin)

	email := authEmail
	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		email = strings.TrimSpace(line)
	}

	password := authPassword
	if needPassword && password == "" {
		fmt.Print("Password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		password = strings.TrimRight(line, "\r\n")
	}
	return email, password, nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadResolvedServices(cmd.Context())
		if err != nil {
			return err
		}
		if err := requireRoute(services, session.RouteLogin); err != nil {
			return err
		}

		email, password, err := promptCredentials(true)
		if err != nil {
			return err
		}

		if err := services.SignIn(cmd.Context(), email, password); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		snap := services.Session.Snapshot()
		if snap.State == session.GateUnverified {
			fmt.Println("Signed in, but your email is not verified yet.")
			fmt.Println("Run 'kanbanize verify-email' to resend the verification link.")
			return nil
		}
		fmt.Printf("Signed in as %s\n", email)
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadResolvedServices(cmd.Context())
		if err != nil {
			return err
		}
		if err := requireRoute(services, session.RouteSignup); err != nil {
			return err
		}

		email, password, err := promptCredentials(true)
		if err != nil {
			return err
		}

		acct, err := services.SignUp(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("signup failed: %w", err)
		}

		if err := services.Provider.SendEmailVerification(cmd.Context(), acct.IDToken); err != nil {
			fmt.Printf("Warning: could not send the verification email: %v\n", err)
		}
		fmt.Println("Registration successful! Please check your email inbox to verify your email address.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return err
		}
		if err := services.SignOut(); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Send a password reset email",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadResolvedServices(cmd.Context())
		if err != nil {
			return err
		}

		// The reset page renders for signed-in users too; no gate.
		email, _, err := promptCredentials(false)
		if err != nil {
			return err
		}

		if err := services.Provider.SendPasswordReset(cmd.Context(), email); err != nil {
			return fmt.Errorf("password reset failed: %w", err)
		}
		fmt.Println("Password reset email sent! Please check your inbox.")
		return nil
	},
}

var verifyEmailCmd = &cobra.Command{
	Use:   "verify-email",
	Short: "Resend the email verification link",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadResolvedServices(cmd.Context())
		if err != nil {
			return err
		}
		if err := requireRoute(services, session.RouteVerifyEmail); err != nil {
			return err
		}

		active := services.Tokens.Active()
		if active == nil {
			return fmt.Errorf("not signed in; run 'kanbanize login' first")
		}
		tok, err := active.Token()
		if err != nil {
			return err
		}
		if err := services.Provider.SendEmailVerification(cmd.Context(), tok.AccessToken); err != nil {
			return fmt.Errorf("verification email failed: %w", err)
		}
		fmt.Println("Verification email sent! Please check your inbox.")
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{loginCmd, signupCmd, forgotPasswordCmd} {
		cmd.Flags().StringVar(&authEmail, "email", "", "account email")
	}
	loginCmd.Flags().StringVar(&authPassword, "password", "", "account password")
	signupCmd.Flags().StringVar(&authPassword, "password", "", "account password")

	RootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, forgotPasswordCmd, verifyEmailCmd)
}
