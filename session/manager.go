// Package session owns the life cycle of one authenticated identity: the
// memory-only access token, the tab-scoped refresh pair, the silent refresh
// timer and the user profile derived from them.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/ilumina-session/api"
	"github.com/jrsteele09/ilumina-session/events"
	ierrors "github.com/jrsteele09/ilumina-session/internal/errors"
	"github.com/jrsteele09/ilumina-session/schedule"
	"github.com/jrsteele09/ilumina-session/storage"
	"github.com/jrsteele09/ilumina-session/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	defaultRefreshLead     = 60 * time.Second
	defaultMinRefreshDelay = 5 * time.Second
	defaultLoginPath       = "/login"
)

// Backend is the slice of the REST API the session needs. *api.Client
// satisfies it.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*api.TokenResponse, error)
	Me(ctx context.Context, accessToken string) (*users.Profile, error)
}

// Bus is the signal channel shared with the request layer.
type Bus interface {
	events.Publisher
	events.Subscriber
}

var _ Backend = (*api.Client)(nil)

// Manager holds at most one session. It is safe for concurrent use; network
// calls run without the lock held.
type Manager struct {
	backend   Backend
	store     storage.Store
	bus       Bus
	scheduler schedule.Scheduler
	refresh   *schedule.Slot
	navigator Navigator
	metrics   *Metrics
	logger    zerolog.Logger
	nowFunc   func() time.Time
	lead      time.Duration
	minDelay  time.Duration
	loginPath string

	mu           sync.RWMutex
	epoch        uint64 // bumped whenever session ownership changes hands
	state        State
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	user         *users.Profile
	loading      bool
	expired      bool
	restored     bool
	unsubscribe  func()
}

var _ oauth2.TokenSource = (*Manager)(nil)

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets the tab-scoped store. Defaults to storage.NewMemory().
func WithStore(store storage.Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithBus sets the signal channel. Defaults to a private events.Notifier.
func WithBus(bus Bus) Option {
	return func(m *Manager) {
		m.bus = bus
	}
}

// WithScheduler sets the scheduler behind the refresh timer.
func WithScheduler(s schedule.Scheduler) Option {
	return func(m *Manager) {
		m.scheduler = s
	}
}

func WithNavigator(n Navigator) Option {
	return func(m *Manager) {
		m.navigator = n
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithRefreshTiming sets how long before expiry the refresh fires and the
// floor on the delay.
func WithRefreshTiming(lead, minDelay time.Duration) Option {
	return func(m *Manager) {
		m.lead = lead
		m.minDelay = minDelay
	}
}

// WithLoginPath sets where involuntary logouts navigate to.
func WithLoginPath(path string) Option {
	return func(m *Manager) {
		m.loginPath = path
	}
}

// New creates an empty session. IsLoading reports true until Restore has run.
func New(backend Backend, options ...Option) *Manager {
	m := &Manager{
		backend:   backend,
		logger:    log.Logger.With().Str("component", "session").Logger(),
		nowFunc:   time.Now,
		lead:      defaultRefreshLead,
		minDelay:  defaultMinRefreshDelay,
		loginPath: defaultLoginPath,
		state:     Anonymous,
		loading:   true,
	}
	for _, opt := range options {
		opt(m)
	}

	if m.store == nil {
		m.store = storage.NewMemory()
	}
	if m.bus == nil {
		m.bus = events.NewNotifier()
	}
	if m.navigator == nil {
		m.navigator = noopNavigator{}
	}
	m.refresh = schedule.NewSlot(m.scheduler)
	m.unsubscribe = m.bus.Subscribe(events.Unauthorized, func(events.Event) {
		m.forceLogout()
	})
	return m
}

// Close detaches the manager from the bus and cancels the refresh timer. The
// session itself, including the stored record, is left as is.
func (m *Manager) Close() {
	m.unsubscribe()
	m.refresh.Cancel()
}

// Login authenticates with credentials. It returns true only when the token
// was issued and the profile fetched; any failure leaves the session empty.
func (m *Manager) Login(ctx context.Context, email, password string) bool {
	epoch := m.begin()

	resp, err := m.backend.Login(ctx, email, password)
	if err != nil {
		m.logger.Debug().Err(err).Msg("Login rejected")
		m.abandon(epoch)
		return false
	}
	return m.adopt(ctx, epoch, resp.AccessToken, resp.RefreshToken, resp.Expiry())
}

// SetTokenFromExternal adopts a token obtained out of band. refreshToken and
// expiresAt are optional; the record is only persisted when both are set.
func (m *Manager) SetTokenFromExternal(ctx context.Context, token, refreshToken string, expiresAt time.Time) bool {
	return m.adopt(ctx, m.begin(), token, refreshToken, expiresAt)
}

// Logout clears the session unconditionally. Calling it repeatedly is safe.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.clearLocked(context.Background())
	m.expired = false
	m.state = Anonymous
}

// Restore rehydrates the session from the store. Only the first call does
// anything; IsLoading is false once it returns.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	if m.restored {
		m.mu.Unlock()
		return
	}
	m.restored = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	rec, err := m.store.Load(ctx)
	if err != nil {
		if !ierrors.Is(err, storage.ErrNotFound) {
			m.logger.Debug().Err(err).Msg("Restore: store unreadable")
		}
		m.metrics.rehydration(resultSkipped)
		return
	}
	if !rec.Complete() {
		m.metrics.rehydration(resultSkipped)
		return
	}

	m.mu.Lock()
	if m.accessToken != "" || m.state != Anonymous {
		// A login got in first; it owns the session now.
		m.mu.Unlock()
		m.metrics.rehydration(resultSkipped)
		return
	}
	m.epoch++
	epoch := m.epoch
	m.accessToken = rec.Token
	m.refreshToken = rec.RefreshToken
	m.expiresAt = rec.ExpiresAt
	m.state = Authenticating
	m.mu.Unlock()

	profile, err := m.backend.Me(ctx, rec.Token)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		m.metrics.rehydration(resultSkipped)
		return
	}
	if err != nil {
		m.logger.Debug().Err(err).Msg("Restore: stored token rejected")
		m.clearLocked(ctx)
		m.state = Anonymous
		m.metrics.rehydration(resultFailure)
		return
	}
	m.user = profile
	m.state = Authenticated
	m.armLocked(rec.ExpiresAt)
	m.metrics.rehydration(resultSuccess)
}

// AcknowledgeExpired dismisses the expiration notice and navigates to the
// login surface.
func (m *Manager) AcknowledgeExpired() {
	m.mu.Lock()
	if !m.expired {
		m.mu.Unlock()
		return
	}
	m.expired = false
	if m.state == Expired {
		m.state = Anonymous
	}
	m.mu.Unlock()

	m.navigator.Navigate(m.loginPath)
}

// Token implements oauth2.TokenSource for the authorized request layer. While
// the expiration notice is pending it fails with ErrSessionExpired.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.accessToken == "" {
		if m.expired {
			return nil, ierrors.ErrSessionExpired
		}
		return nil, ierrors.ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken: m.accessToken,
		TokenType:   "Bearer",
		Expiry:      m.expiresAt,
	}, nil
}

// User returns a copy of the current profile, or nil.
func (m *Manager) User() *users.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.Clone()
}

func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

// ExpiresAt is the expiry of the current access token, zero when unknown.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expiresAt
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsLoading is true only while the startup rehydration is pending.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// SessionExpired reports whether the expiration notice should be shown.
func (m *Manager) SessionExpired() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expired
}

// RefreshPending reports whether a silent refresh is scheduled.
func (m *Manager) RefreshPending() bool {
	return m.refresh.Pending()
}

// Bus returns the signal channel the manager listens on.
func (m *Manager) Bus() Bus {
	return m.bus
}

// begin starts a token acquisition and supersedes any acquisition in flight.
func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.expired = false
	m.state = Authenticating
	return m.epoch
}

func (m *Manager) adopt(ctx context.Context, epoch uint64, token, refreshToken string, expiresAt time.Time) bool {
	if token == "" {
		m.logger.Debug().Err(ierrors.ErrMissingToken).Msg("Token adoption failed")
		m.abandon(epoch)
		return false
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.metrics.login(resultSkipped)
		return false
	}
	m.installLocked(ctx, token, refreshToken, expiresAt)
	m.mu.Unlock()

	profile, err := m.backend.Me(ctx, token)
	if err != nil {
		m.logger.Debug().Err(err).Msg("Profile fetch failed")
		m.abandon(epoch)
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		m.metrics.login(resultSkipped)
		return false
	}
	m.user = profile
	m.state = Authenticated
	if m.refreshToken != "" {
		m.armLocked(m.expiresAt)
	}
	m.metrics.login(resultSuccess)
	m.logger.Info().Str("user_id", profile.ID).Str("role", string(profile.Role)).Msg("Session established")
	return true
}

// abandon resets the session after a failed acquisition, unless a newer
// operation has taken over.
func (m *Manager) abandon(epoch uint64) {
	m.metrics.login(resultFailure)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return
	}
	m.clearLocked(context.Background())
	m.state = Anonymous
}

// silentRefresh runs on the scheduler's goroutine.
func (m *Manager) silentRefresh() {
	ctx := context.Background()

	m.mu.Lock()
	if m.state != Authenticated || m.refreshToken == "" {
		m.mu.Unlock()
		return
	}
	epoch := m.epoch
	refreshToken := m.refreshToken
	m.state = Refreshing
	m.mu.Unlock()

	resp, err := m.backend.Refresh(ctx, refreshToken)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.metrics.refresh(resultSkipped)
		return
	}
	if err != nil {
		m.epoch++
		m.clearLocked(ctx)
		// Refreshing -> Expired -> Anonymous: nothing observes the middle step.
		m.state = Anonymous
		m.mu.Unlock()

		m.logger.Warn().Err(err).Msg("Silent refresh failed, session ended")
		m.metrics.refresh(resultFailure)
		m.metrics.forcedLogout(reasonRefreshFailed)
		m.navigator.Navigate(m.loginPath)
		return
	}

	if resp.RefreshToken != "" {
		refreshToken = resp.RefreshToken
	}
	m.installLocked(ctx, resp.AccessToken, refreshToken, resp.Expiry())
	m.state = Authenticated
	if m.refreshToken != "" {
		m.armLocked(m.expiresAt)
	}
	m.mu.Unlock()

	m.metrics.refresh(resultSuccess)
	m.logger.Debug().Msg("Access token refreshed")
}

// forceLogout handles events.Unauthorized. With no session it does nothing.
func (m *Manager) forceLogout() {
	m.mu.Lock()
	if m.accessToken == "" && m.user == nil {
		m.mu.Unlock()
		return
	}
	m.epoch++
	m.clearLocked(context.Background())
	m.state = Expired
	m.expired = true
	m.mu.Unlock()

	m.logger.Info().Err(ierrors.ErrSessionExpired).Msg("Backend rejected the session token")
	m.metrics.forcedLogout(reasonUnauthorized)
	m.bus.Publish(events.SessionExpired)
}

// installLocked puts a token set in place and cancels any pending refresh.
// The record is persisted only when the refresh pair is complete. Callers arm
// the next refresh once the session is Authenticated.
func (m *Manager) installLocked(ctx context.Context, token, refreshToken string, expiresAt time.Time) {
	m.refresh.Cancel()
	m.accessToken = token
	if refreshToken == "" || expiresAt.IsZero() {
		m.refreshToken = ""
		m.expiresAt = time.Time{}
		m.removeLocked(ctx)
		return
	}

	m.refreshToken = refreshToken
	m.expiresAt = expiresAt
	if err := m.store.Save(ctx, storage.Record{
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}); err != nil {
		m.logger.Debug().Err(err).Msg("Session record not persisted")
	}
}

func (m *Manager) armLocked(expiresAt time.Time) {
	delay := expiresAt.Sub(m.nowFunc()) - m.lead
	if delay < m.minDelay {
		delay = m.minDelay
	}
	m.refresh.Arm(delay, m.silentRefresh)
}

func (m *Manager) clearLocked(ctx context.Context) {
	m.refresh.Cancel()
	m.accessToken = ""
	m.refreshToken = ""
	m.expiresAt = time.Time{}
	m.user = nil
	m.removeLocked(ctx)
}

func (m *Manager) removeLocked(ctx context.Context) {
	if err := m.store.Remove(ctx); err != nil {
		m.logger.Debug().Err(err).Msg("Session record not removed")
	}
}
