package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const passwordEnvVar = "ILUMINA_PASSWORD"

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv(passwordEnvVar)
		}
		if email == "" || password == "" {
			return errors.New("--email and --password (or " + passwordEnvVar + ") are required")
		}

		env, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer env.close()

		if !env.manager.Login(cmd.Context(), email, password) {
			return errors.New("sign in failed: check your email and password")
		}
		user := env.manager.User()
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.DisplayName, user.Role)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringP("email", "e", "", "Account email")
	loginCmd.Flags().StringP("password", "p", "", "Account password")
}
