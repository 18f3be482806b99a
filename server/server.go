package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/ilumina-session/centers"
	"github.com/jrsteele09/ilumina-session/internal/config"
	"github.com/jrsteele09/ilumina-session/token"
	"github.com/jrsteele09/ilumina-session/token/refresh"
	"github.com/jrsteele09/ilumina-session/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Repos groups the stores the development backend serves from.
type Repos struct {
	Users         users.UserRepo
	Centers       centers.Repo
	RefreshTokens refresh.Repo
}

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	repos   Repos
	access  *token.AccessIssuer
	refresh *refresh.Manager
	logger  zerolog.Logger

	registry *prometheus.Registry
	requests *prometheus.CounterVec

	loginLimiter *clientLimiter
}

type Option func(*Server)

// WithRegistry registers the request counter on reg and serves it on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLoginRateLimit sets the per-client login attempt rate.
func WithLoginRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.loginLimiter = newClientLimiter(perSecond, burst)
	}
}

// WithIssuers replaces the token issuers built from config (primarily for
// testing with a fixed clock).
func WithIssuers(access *token.AccessIssuer, refreshManager *refresh.Manager) Option {
	return func(s *Server) {
		s.access = access
		s.refresh = refreshManager
	}
}

func New(cfg config.Config, repos Repos, opts ...Option) (*Server, error) {
	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		repos:  repos,
		logger: log.Logger.With().Str("component", "server").Logger(),

		loginLimiter: newClientLimiter(defaultLoginRate, defaultLoginBurst),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.access == nil {
		s.access = token.NewAccessIssuer(token.NewHMACSigner(cfg.GetJWTSecret()), cfg)
	}
	if s.refresh == nil {
		s.refresh = refresh.NewManager(repos.RefreshTokens, cfg)
	}
	if s.registry != nil {
		s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ilumina_http_requests_total",
			Help: "Requests served by the development backend, by route and status code.",
		}, []string{"route", "code"})
		if err := s.registry.Register(s.requests); err != nil {
			return nil, fmt.Errorf("[Server New] failed to register metrics: %w", err)
		}
	}

	if err := s.InitialiseSystem(context.Background()); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.logger.Info().Msgf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}
