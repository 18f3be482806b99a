package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/ilumina-session/api"
	"github.com/jrsteele09/ilumina-session/internal/config"
	"github.com/jrsteele09/ilumina-session/session"
	"github.com/jrsteele09/ilumina-session/storage"
	"github.com/jrsteele09/ilumina-session/storage/file"
	"github.com/jrsteele09/ilumina-session/storage/redis"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cfg = config.New()

var rootCmd = &cobra.Command{
	Use:   "ilumina",
	Short: "ILUMINA session client",
	Long: `ilumina signs in against the ILUMINA REST API and keeps the session
record in a tab store so later invocations resume where the last one left off.

Each invocation exits long before the silent refresh is due, so the stored
refresh token is not used from the command line. Once the access token
expires the stored session is discarded on the next run; sign in again.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		setupLogging(cmd.ErrOrStderr(), verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Ctrl-C cancels whatever request is in flight.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("api", cfg.GetAPIBaseURL(), "REST API root")
	rootCmd.PersistentFlags().String("store", cfg.GetStoreBackend(), "Tab store backend: file, memory or redis")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

func setupLogging(w io.Writer, verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
}

// sessionEnv is everything a command needs to act on the current session.
type sessionEnv struct {
	client  *api.Client
	manager *session.Manager
	close   func()
}

// openSession builds the manager for this invocation and rehydrates it from
// the configured tab store.
func openSession(cmd *cobra.Command) (*sessionEnv, error) {
	apiURL, _ := cmd.Flags().GetString("api")
	backend, _ := cmd.Flags().GetString("store")

	store, closeStore, err := openStore(backend)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	client := api.New(apiURL)
	manager := session.New(client,
		session.WithStore(store),
		session.WithRefreshTiming(cfg.GetRefreshLeadTime(), cfg.GetMinRefreshDelay()),
		session.WithLoginPath(cfg.GetLoginPath()),
		session.WithNavigator(session.NavigatorFunc(func(path string) {
			fmt.Fprintf(out, "→ sign in again (%s)\n", path)
		})),
	)

	ctx := cmd.Context()
	manager.Restore(ctx)
	if devToken := cfg.GetDevToken(); devToken != "" && manager.User() == nil {
		log.Debug().Msg("using development token")
		manager.SetTokenFromExternal(ctx, devToken, "", time.Time{})
	}

	return &sessionEnv{
		client:  client,
		manager: manager,
		close: func() {
			manager.Close()
			closeStore()
		},
	}, nil
}

func openStore(backend string) (storage.Store, func(), error) {
	switch backend {
	case config.StoreMemory:
		return storage.NewMemory(), func() {}, nil
	case config.StoreRedis:
		store := redis.New(cfg.GetRedisAddr(), cfg.GetStoreKey(), redis.WithTTL(cfg.GetDefaultRefreshTokenExpiry()))
		return store, func() { _ = store.Close() }, nil
	case config.StoreFile:
		return file.New(cfg.GetStoreDir(), cfg.GetStoreKey()), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
