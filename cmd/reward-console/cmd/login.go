package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the admin API and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p := newPrompter(cmd)
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			if email, err = p.Ask("Email: "); err != nil {
				return err
			}
		}
		password, err := p.Password("Password: ")
		if err != nil {
			return err
		}

		resp, err := a.Client.Login(cmd.Context(), strings.TrimSpace(email), password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", resp.User.Email, resp.User.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Client.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		creds, err := a.Client.Session(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s), signed in %s\n", creds.Email, creds.Role, creds.SavedAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "admin email")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
