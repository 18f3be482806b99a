package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/ilumina-session/centers"
	"github.com/jrsteele09/ilumina-session/events"
	"github.com/spf13/cobra"
)

var centersCmd = &cobra.Command{
	Use:   "centers",
	Short: "List clinic centers",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer env.close()

		if env.manager.User() == nil {
			return errors.New("not signed in")
		}

		out := cmd.OutOrStdout()
		bus := env.manager.Bus()
		unsubscribe := bus.Subscribe(events.SessionExpired, func(events.Event) {
			fmt.Fprintln(out, "Your session has expired.")
			env.manager.AcknowledgeExpired()
		})
		defer unsubscribe()

		var list []centers.Center
		if err := env.client.Authorized(env.manager, bus).GetJSON(cmd.Context(), "/centers", &list); err != nil {
			return err
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCITY\tADDRESS\tPHONE")
		for _, c := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, c.City, c.Address, c.Phone)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(centersCmd)
}
