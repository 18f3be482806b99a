package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/common-nighthawk/go-figure"
	centerrepofakes "github.com/jrsteele09/ilumina-session/centers/repofakes"
	"github.com/jrsteele09/ilumina-session/server"
	refreshrepofake "github.com/jrsteele09/ilumina-session/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/ilumina-session/users/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the in-memory development backend",
	Long: `Starts a development implementation of the ILUMINA REST API with seeded
demo accounts (one per role). Data lives in memory and is lost on exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		handler, err := server.New(cfg, server.Repos{
			Users:         fakeuserrepo.NewFakeUserRepo(),
			Centers:       centerrepofakes.NewFakeCenterRepo(),
			RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
		}, server.WithRegistry(reg))
		if err != nil {
			return err
		}

		displayAppname(cfg.GetAppName())
		srv := &http.Server{Addr: addr, Handler: handler}

		serverErrors := make(chan error, 1)
		go func() {
			serverErrors <- listenAndServe(srv)
		}()

		select {
		case err := <-serverErrors:
			return err
		case <-cmd.Context().Done():
		}
		if err := shutdown(srv); err != nil {
			return err
		}
		log.Info().Msg("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", cfg.GetPort(), "Address to listen on")
}

func listenAndServe(srv *http.Server) error {
	log.Info().Msgf("Server listening on %s (API under %s)", srv.Addr, server.RouteAPIPrefix)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
