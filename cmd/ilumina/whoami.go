package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer env.close()

		user := env.manager.User()
		if user == nil {
			return errors.New("not signed in")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(user)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Name\t%s\n", user.DisplayName)
		fmt.Fprintf(w, "Email\t%s\n", user.Email)
		fmt.Fprintf(w, "Role\t%s\n", user.Role)
		if user.Specialization != "" {
			fmt.Fprintf(w, "Specialization\t%s\n", user.Specialization)
		}
		if user.Department != "" {
			fmt.Fprintf(w, "Department\t%s\n", user.Department)
		}
		if exp := env.manager.ExpiresAt(); !exp.IsZero() {
			fmt.Fprintf(w, "Token expires\t%s\n", exp.Local().Format("15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().Bool("json", false, "Print the profile as JSON")
}
