package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/ilumina-session/api"
	"github.com/jrsteele09/ilumina-session/events"
	ierrors "github.com/jrsteele09/ilumina-session/internal/errors"
	"github.com/jrsteele09/ilumina-session/internal/utils"
	"github.com/jrsteele09/ilumina-session/schedule/schedulefake"
	"github.com/jrsteele09/ilumina-session/session"
	storerepofake "github.com/jrsteele09/ilumina-session/storage/repofake"
	"github.com/jrsteele09/ilumina-session/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "a@b.com"
	testPassword = "x"
)

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

// fakeBackend serves canned token sets and profiles keyed by access token.
type fakeBackend struct {
	mu           sync.Mutex
	logins       map[string]*api.TokenResponse // email -> response
	loginErr     error
	loginHook    func(email string)
	refresh      *api.TokenResponse
	refreshErr   error
	profiles     map[string]*users.Profile // access token -> profile
	meHook       func(accessToken string)
	refreshCalls []string
	meCalls      int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		logins:   make(map[string]*api.TokenResponse),
		profiles: make(map[string]*users.Profile),
	}
}

func (b *fakeBackend) Login(_ context.Context, email, _ string) (*api.TokenResponse, error) {
	if b.loginHook != nil {
		b.loginHook(email)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.loginErr != nil {
		return nil, b.loginErr
	}
	resp, ok := b.logins[email]
	if !ok {
		return nil, ierrors.ErrInvalidCredentials
	}
	return resp, nil
}

func (b *fakeBackend) Refresh(_ context.Context, refreshToken string) (*api.TokenResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refreshCalls = append(b.refreshCalls, refreshToken)
	if b.refreshErr != nil {
		return nil, b.refreshErr
	}
	return b.refresh, nil
}

func (b *fakeBackend) Me(_ context.Context, accessToken string) (*users.Profile, error) {
	if b.meHook != nil {
		b.meHook(accessToken)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.meCalls++
	p, ok := b.profiles[accessToken]
	if !ok {
		return nil, ierrors.ErrUnauthorized
	}
	return p.Clone(), nil
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

// testFixture holds all test dependencies
type testFixture struct {
	backend   *fakeBackend
	store     *storerepofake.FakeStore
	scheduler *schedulefake.FakeScheduler
	navigator *recordingNavigator
	bus       *events.Notifier
	registry  *prometheus.Registry
	manager   *session.Manager
}

func patient(id string) *users.Profile {
	return &users.Profile{ID: id, DisplayName: "Lucia Perez", Email: testEmail, Role: users.RolePatient}
}

func fullTokens(token, refresh string, ttl time.Duration) *api.TokenResponse {
	return &api.TokenResponse{AccessToken: token, RefreshToken: refresh, ExpiresAt: utils.Ptr(testNow.Add(ttl))}
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		backend:   newFakeBackend(),
		store:     storerepofake.NewFakeStore(),
		scheduler: schedulefake.NewFakeScheduler(),
		navigator: &recordingNavigator{},
		bus:       events.NewNotifier(),
		registry:  prometheus.NewRegistry(),
	}
	f.manager = f.newManager(t)
	return f
}

// newManager builds a manager over the fixture's store and backend, as a
// page reload would.
func (f *testFixture) newManager(t *testing.T) *session.Manager {
	t.Helper()
	m := session.New(f.backend,
		session.WithStore(f.store),
		session.WithScheduler(f.scheduler),
		session.WithNavigator(f.navigator),
		session.WithBus(f.bus),
		session.WithMetrics(session.NewMetrics(prometheus.NewRegistry())),
		session.WithLogger(zerolog.Nop()),
		session.WithNowFunc(func() time.Time { return testNow }),
	)
	t.Cleanup(m.Close)
	return m
}

func (f *testFixture) requireLoggedOut(t *testing.T) {
	t.Helper()
	require.Empty(t, f.manager.AccessToken())
	require.Nil(t, f.manager.User())
	require.Nil(t, f.store.Peek())
	require.False(t, f.manager.RefreshPending())
	require.Empty(t, f.scheduler.Active())
	require.Equal(t, session.Anonymous, f.manager.State())

	_, err := f.manager.Token()
	require.ErrorIs(t, err, ierrors.ErrNotAuthenticated)
}

func TestLogin_FullTokenSet(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.logins[testEmail] = fullTokens("T1", "R1", time.Hour)
	f.backend.profiles["T1"] = patient("u-1")

	require.True(t, f.manager.Login(context.Background(), testEmail, testPassword))

	require.Equal(t, "T1", f.manager.AccessToken())
	require.Equal(t, patient("u-1"), f.manager.User())
	require.Equal(t, session.Authenticated, f.manager.State())

	rec := f.store.Peek()
	require.NotNil(t, rec)
	require.Equal(t, "T1", rec.Token)
	require.Equal(t, "R1", rec.RefreshToken)
	require.True(t, testNow.Add(time.Hour).Equal(rec.ExpiresAt))

	active := f.scheduler.Active()
	require.Len(t, active, 1)
	require.Equal(t, 3540*time.Second, active[0].Delay)

	tok, err := f.manager.Token()
	require.NoError(t, err)
	require.Equal(t, "T1", tok.AccessToken)
	require.Equal(t, "Bearer", tok.TokenType)
}

func TestLogin_TokenOnlyIsMemoryOnly(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.logins[testEmail] = &api.TokenResponse{AccessToken: "T1"}
	f.backend.profiles["T1"] = patient("u-1")

	require.True(t, f.manager.Login(context.Background(), testEmail, testPassword))

	require.Equal(t, "T1", f.manager.AccessToken())
	require.Nil(t, f.store.Peek())
	require.Equal(t, 0, f.store.Saves)
	require.False(t, f.manager.RefreshPending())

	// Only a refresh token without an expiry is still not persisted.
	f.backend.logins[testEmail] = &api.TokenResponse{AccessToken: "T1", RefreshToken: "R1"}
	require.True(t, f.manager.Login(context.Background(), testEmail, testPassword))
	require.Nil(t, f.store.Peek())

	reloaded := f.newManager(t)
	reloaded.Restore(context.Background())
	require.Nil(t, reloaded.User())
}

func TestLogin_FailuresLeaveCleanState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *testFixture)
	}{
		{
			name: "credentials rejected",
			setup: func(f *testFixture) {
				f.backend.loginErr = ierrors.ErrInvalidCredentials
			},
		},
		{
			name: "no access token in response",
			setup: func(f *testFixture) {
				f.backend.logins[testEmail] = &api.TokenResponse{RefreshToken: "R2", ExpiresAt: utils.Ptr(testNow.Add(time.Hour))}
			},
		},
		{
			name: "profile fetch fails",
			setup: func(f *testFixture) {
				f.backend.logins[testEmail] = fullTokens("T-unknown", "R2", time.Hour)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)

			// An existing session is discarded by a failed login.
			f.backend.profiles["T0"] = patient("u-0")
			require.True(t, f.manager.SetTokenFromExternal(context.Background(), "T0", "R0", testNow.Add(time.Hour)))

			tt.setup(f)
			require.False(t, f.manager.Login(context.Background(), testEmail, testPassword))
			f.requireLoggedOut(t)
			require.False(t, f.manager.SessionExpired())
			require.Empty(t, f.navigator.Paths())
		})
	}
}

func TestSetTokenFromExternal_SurvivesReload(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.profiles["EXT"] = patient("u-9")

	require.True(t, f.manager.SetTokenFromExternal(context.Background(), "EXT", "R9", testNow.Add(30*time.Minute)))
	require.Len(t, f.scheduler.Active(), 1)
	require.Equal(t, 29*time.Minute, f.scheduler.Active()[0].Delay)

	reloaded := f.newManager(t)
	require.True(t, reloaded.IsLoading())
	reloaded.Restore(context.Background())

	require.False(t, reloaded.IsLoading())
	require.Equal(t, f.manager.User(), reloaded.User())
	require.Equal(t, "EXT", reloaded.AccessToken())
	require.Equal(t, session.Authenticated, reloaded.State())
}

func TestSetTokenFromExternal_Failures(t *testing.T) {
	f := setupTestFixture(t)

	require.False(t, f.manager.SetTokenFromExternal(context.Background(), "", "R1", testNow.Add(time.Hour)))
	f.requireLoggedOut(t)

	require.False(t, f.manager.SetTokenFromExternal(context.Background(), "unknown", "R1", testNow.Add(time.Hour)))
	f.requireLoggedOut(t)
}

func TestLogin_SurvivesReload(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.logins[testEmail] = fullTokens("T1", "R1", time.Hour)
	f.backend.profiles["T1"] = patient("u-1")
	require.True(t, f.manager.Login(context.Background(), testEmail, testPassword))

	reloaded := f.newManager(t)
	reloaded.Restore(context.Background())

	require.Equal(t, patient("u-1"), reloaded.User())
	require.True(t, reloaded.RefreshPending())
}

func TestLogout_Idempotent(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.logins[testEmail] = fullTokens("T1", "R1", time.Hour)
	f.backend.profiles["T1"] = patient("u-1")
	require.True(t, f.manager.Login(context.Background(), testEmail, testPassword))

	f.manager.Logout()
	f.requireLoggedOut(t)

	f.manager.Logout()
	f.requireLoggedOut(t)
	require.Empty(t, f.navigator.Paths())
}

func TestRefreshTimer_OnlyOnePending(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.profiles["T1"] = patient("u-1")

	for i := 0; i < 5; i++ {
		require.True(t, f.manager.SetTokenFromExternal(context.Background(), "T1", "R1", testNow.Add(time.Duration(i+1)*time.Hour)))
	}

	require.Len(t, f.scheduler.Scheduled(), 5)
	require.Len(t, f.scheduler.Active(), 1)
	require.Equal(t, 5*time.Hour-time.Minute, f.scheduler.Active()[0].Delay)
}

func TestRefreshTimer_MinimumDelay(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.profiles["T1"] = patient("u-1")

	require.True(t, f.manager.SetTokenFromExternal(context.Background(), "T1", "R1", testNow.Add(30*time.Second)))
	require.Equal(t, 5*time.Second, f.scheduler.Active()[0].Delay)

	// Already expired tokens still get one refresh attempt.
	require.True(t, f.manager.SetTokenFromExternal(context.Background(), "T1", "R1", testNow.Add(-time.Hour)))
	require.Equal(t, 5*time.Second, f.scheduler.Active()[0].Delay)
}

func TestRefreshTimer_ArmedAfterProfileFetch(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.profiles["T1"] = patient("u-1")

	// A timer due while the profile is still loading must not be lost.
	firedDuringFetch := true
	f.backend.meHook = func(string) {
		firedDuringFetch = f.scheduler.FireNext()
	}

	require.True(t, f.manager.SetTokenFromExternal(context.Background(), "T1", "R1", testNow.Add(30*time.Second)))
	require.False(t, firedDuringFetch)
	require.Equal(t, session.Authenticated, f.manager.State())
	require.True(t, f.manager.RefreshPending())
	require.Len(t, f.scheduler.Active(), 1)
	require.Equal(t, 5*time.Second, f.scheduler.Active()[0].Delay)

	f.backend.meHook = nil
	f.backend.refresh = fullTokens("T2", "R2", time.Hour)
	require.True(t, f.scheduler.FireNext())
	require.Equal(t, []string{"R1"}, f.backend.refreshCalls)
	require.Equal(t, "T2", f.manager.AccessToken())
	require.True(t, f.manager.RefreshPending())
}

func TestRefreshTimer_PreviousSessionTimerCancelledDuringLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.profiles["T1"] = patient("u-1")
	f.backend.profiles["T2"] = patient("u-2")
	require.True(t, f.manager.SetTokenFromExternal(context.Background(), "T1", "R1", testNow.Add(time.Hour)))
	old := f.scheduler.Active()[0]

	f.backend.meHook = func(string) {
		old.Fire()
	}
	require.True(t, f.manager.SetTokenFromExternal(context.Background(), "T2", "R2", testNow.Add(time.Hour)))

	require.Empty(t, f.backend.refreshCalls)
	require.Equal(t, "u-2", f.manager.User().ID)
	require.Len(t, f.scheduler.Active(), 1)
	require.NotSame(t, old, f.scheduler.Active()[0])
}

func TestSilentRefresh_Success(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.logins[testEmail] = fullTokens("T1", "R1", time.Hour)
	f.backend.profiles["T1"] = patient("u-1")
	require.True(t, f.manager.Login(context.Background(), testEmail, testPassword))
	first := f.scheduler.Active()[0]

	f.backend.refresh = fullTokens("T2", "R2", 2*time.Hour)
	require.True(t, f.scheduler.FireNext())

	require.Equal(t, []string{"R1"}, f.backend.refreshCalls)
	require.Equal(t, "T2", f.manager.AccessToken())
	require.Equal(t, session.Authenticated, f.manager.State())
	require.Equal(t, patient("u-1"), f.manager.User())

	rec := f.store.Peek()
	require.Equal(t, "T2", rec.Token)
	require.Equal(t, "R2", rec.RefreshToken)

	active := f.scheduler.Active()
	require.Len(t, active, 1)
	require.NotSame(t, first, active[0])
	require.Equal(t, 2*time.Hour-time.Minute, active[0].Delay)

	// The old handle is dead even if its timer fires late.
	first.Fire()
	require.Len(t, f.backend.refreshCalls, 1)
}

func TestSilentRefresh_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.profiles["T1"] = patient("u-1")
	require.True(t, f.manager.SetTokenFromExternal(context.Background(), "T1", "R1", testNow.Add(time.Hour)))

	f.backend.refresh = &api.TokenResponse{AccessToken: "T2", ExpiresAt: utils.Ptr(testNow.Add(time.Hour))}
	require.True(t, f.scheduler.FireNext())

	require.Equal(t, "R1", f.store.Peek().RefreshToken)
	require.Equal(t, "T2", f.store.Peek().Token)
	require.True(t, f.manager.RefreshPending())
}

func TestSilentRefresh_WithoutExpiryBecomesMemoryOnly(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.profiles["T1"] = patient("u-1")
	require.True(t, f.manager.SetTokenFromExternal(context.Background(), "T1", "R1", testNow.Add(time.Hour)))

	f.backend.refresh = &api.TokenResponse{AccessToken: "T2", RefreshToken: "R2"}
	require.True(t, f.scheduler.FireNext())

	require.Equal(t, "T2", f.manager.AccessToken())
	require.Nil(t, f.store.Peek())
	require.False(t, f.manager.RefreshPending())
}

func TestSilentRefresh_FailureEndsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.logins[testEmail] = fullTokens("T1", "R1", time.Hour)
	f.backend.profiles["T1"] = patient("u-1")
	require.True(t, f.manager.Login(context.Background(), testEmail, testPassword))

	var expiredSignals int
	f.bus.Subscribe(events.SessionExpired, func(events.Event) { expiredSignals++ })

	f.backend.refreshErr = errors.New("connection reset")
	require.True(t, f.scheduler.FireNext())

	f.requireLoggedOut(t)
	require.Equal(t, []string{"/login"}, f.navigator.Paths())
	require.False(t, f.manager.SessionExpired())
	require.Equal(t, 0, expiredSignals)
	require.Len(t, f.backend.refreshCalls, 1, "refresh is never retried")

	// A late unauthorized signal finds nothing left to clear.
	f.bus.Publish(events.Unauthorized)
	require.False(t, f.manager.SessionExpired())
	require.Equal(t, []string{"/login"}, f.navigator.Paths())
}

func TestUnauthorizedSignal_ShowsExpiryNoticeBeforeNavigating(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.logins[testEmail] = fullTokens("T1", "R1", time.Hour)
	f.backend.profiles["T1"] = patient("u-1")
	require.True(t, f.manager.Login(context.Background(), testEmail, testPassword))

	var expiredSignals int
	f.bus.Subscribe(events.SessionExpired, func(events.Event) { expiredSignals++ })

	f.bus.Publish(events.Unauthorized)

	require.Nil(t, f.manager.User())
	require.Empty(t, f.manager.AccessToken())
	require.Nil(t, f.store.Peek())
	require.False(t, f.manager.RefreshPending())
	require.True(t, f.manager.SessionExpired())
	require.Equal(t, session.Expired, f.manager.State())
	require.Equal(t, 1, expiredSignals)
	require.Empty(t, f.navigator.Paths())

	_, err := f.manager.Token()
	require.ErrorIs(t, err, ierrors.ErrSessionExpired)

	// Repeated signals are no-ops against the cleared session.
	f.bus.Publish(events.Unauthorized)
	require.Equal(t, 1, expiredSignals)

	f.manager.AcknowledgeExpired()
	require.Equal(t, []string{"/login"}, f.navigator.Paths())
	require.False(t, f.manager.SessionExpired())
	require.Equal(t, session.Anonymous, f.manager.State())
	_, err = f.manager.Token()
	require.ErrorIs(t, err, ierrors.ErrNotAuthenticated)

	f.manager.AcknowledgeExpired()
	require.Len(t, f.navigator.Paths(), 1)
}

func TestUnauthorizedSignal_NoSessionIsNoop(t *testing.T) {
	f := setupTestFixture(t)

	f.bus.Publish(events.Unauthorized)

	require.False(t, f.manager.SessionExpired())
	require.Equal(t, session.Anonymous, f.manager.State())
}

func TestUnauthorizedSignal_CancelsPendingRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.profiles["T1"] = patient("u-1")
	require.True(t, f.manager.SetTokenFromExternal(context.Background(), "T1", "R1", testNow.Add(time.Hour)))
	timer := f.scheduler.Active()[0]

	f.bus.Publish(events.Unauthorized)
	timer.Fire()

	require.Empty(t, f.backend.refreshCalls)
	require.Empty(t, f.navigator.Paths())
}

func TestRestore_RejectedTokenIsDiscardedSilently(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.profiles["T1"] = patient("u-1")
	require.True(t, f.manager.SetTokenFromExternal(context.Background(), "T1", "R1", testNow.Add(time.Hour)))

	// The token is revoked server side before the reload.
	delete(f.backend.profiles, "T1")

	var expiredSignals int
	f.bus.Subscribe(events.SessionExpired, func(events.Event) { expiredSignals++ })

	reloaded := f.newManager(t)
	require.True(t, reloaded.IsLoading())
	reloaded.Restore(context.Background())

	require.False(t, reloaded.IsLoading())
	require.Nil(t, reloaded.User())
	require.Empty(t, reloaded.AccessToken())
	require.Nil(t, f.store.Peek())
	require.False(t, reloaded.SessionExpired())
	require.Equal(t, 0, expiredSignals)
	require.Empty(t, f.navigator.Paths())
}

func TestRestore_EmptyOrUnreadableStore(t *testing.T) {
	f := setupTestFixture(t)

	f.manager.Restore(context.Background())
	require.False(t, f.manager.IsLoading())
	require.Equal(t, 0, f.backend.meCalls)

	f.store.LoadErr = errors.New("storage disabled")
	reloaded := f.newManager(t)
	reloaded.Restore(context.Background())
	require.False(t, reloaded.IsLoading())
	require.Nil(t, reloaded.User())
}

func TestRestore_RunsOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.profiles["T1"] = patient("u-1")
	require.True(t, f.manager.SetTokenFromExternal(context.Background(), "T1", "R1", testNow.Add(time.Hour)))

	reloaded := f.newManager(t)
	reloaded.Restore(context.Background())
	reloaded.Restore(context.Background())

	require.Equal(t, 2, f.backend.meCalls)
}

func TestIsLoading_NotWidenedByLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.manager.Restore(context.Background())

	f.backend.logins[testEmail] = fullTokens("T1", "R1", time.Hour)
	f.backend.profiles["T1"] = patient("u-1")
	f.backend.loginHook = func(string) {
		require.False(t, f.manager.IsLoading())
		require.Equal(t, session.Authenticating, f.manager.State())
	}

	require.True(t, f.manager.Login(context.Background(), testEmail, testPassword))
}

func TestStorageErrorsAreSwallowed(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SaveErr = errors.New("quota exceeded")
	f.store.RemoveErr = errors.New("storage disabled")
	f.backend.logins[testEmail] = fullTokens("T1", "R1", time.Hour)
	f.backend.profiles["T1"] = patient("u-1")

	require.True(t, f.manager.Login(context.Background(), testEmail, testPassword))
	require.Equal(t, "T1", f.manager.AccessToken())
	require.True(t, f.manager.RefreshPending())

	f.manager.Logout()
	require.Empty(t, f.manager.AccessToken())
}

func TestConcurrentLogin_LatestAttemptWins(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.logins["first@b.com"] = fullTokens("T1", "R1", time.Hour)
	f.backend.logins["second@b.com"] = fullTokens("T2", "R2", time.Hour)
	f.backend.profiles["T1"] = patient("u-1")
	f.backend.profiles["T2"] = patient("u-2")

	entered := make(chan struct{})
	release := make(chan struct{})
	f.backend.loginHook = func(email string) {
		if email == "first@b.com" {
			close(entered)
			<-release
		}
	}

	firstResult := make(chan bool)
	go func() {
		firstResult <- f.manager.Login(context.Background(), "first@b.com", testPassword)
	}()
	<-entered

	require.True(t, f.manager.Login(context.Background(), "second@b.com", testPassword))
	close(release)

	require.False(t, <-firstResult)
	require.Equal(t, "T2", f.manager.AccessToken())
	require.Equal(t, "u-2", f.manager.User().ID)
	require.Equal(t, "T2", f.store.Peek().Token)
	require.Len(t, f.scheduler.Active(), 1)
}

func TestLogoutDuringLogin_LoginDoesNotResurrectSession(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.logins[testEmail] = fullTokens("T1", "R1", time.Hour)
	f.backend.profiles["T1"] = patient("u-1")
	f.backend.loginHook = func(string) {
		f.manager.Logout()
	}

	require.False(t, f.manager.Login(context.Background(), testEmail, testPassword))
	f.requireLoggedOut(t)
}

func TestLoginClearsPendingExpiryNotice(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.logins[testEmail] = fullTokens("T1", "R1", time.Hour)
	f.backend.profiles["T1"] = patient("u-1")
	require.True(t, f.manager.Login(context.Background(), testEmail, testPassword))

	f.bus.Publish(events.Unauthorized)
	require.True(t, f.manager.SessionExpired())

	require.True(t, f.manager.Login(context.Background(), testEmail, testPassword))
	require.False(t, f.manager.SessionExpired())
	require.Equal(t, session.Authenticated, f.manager.State())
}

func TestMetrics(t *testing.T) {
	f := setupTestFixture(t)
	metrics := session.NewMetrics(f.registry)
	m := session.New(f.backend,
		session.WithStore(f.store),
		session.WithScheduler(f.scheduler),
		session.WithNavigator(f.navigator),
		session.WithBus(f.bus),
		session.WithMetrics(metrics),
		session.WithLogger(zerolog.Nop()),
		session.WithNowFunc(func() time.Time { return testNow }),
	)
	defer m.Close()
	// Detach the fixture's own manager so only m reacts to signals.
	f.manager.Close()

	f.backend.logins[testEmail] = fullTokens("T1", "R1", time.Hour)
	f.backend.profiles["T1"] = patient("u-1")

	require.False(t, m.Login(context.Background(), "nobody@b.com", testPassword))
	require.True(t, m.Login(context.Background(), testEmail, testPassword))

	f.backend.refresh = fullTokens("T2", "R2", time.Hour)
	f.backend.profiles["T2"] = patient("u-1")
	require.True(t, f.scheduler.FireNext())

	f.bus.Publish(events.Unauthorized)

	count, err := testutil.GatherAndCount(f.registry,
		"ilumina_session_logins_total",
		"ilumina_session_refreshes_total",
		"ilumina_session_forced_logouts_total",
	)
	require.NoError(t, err)
	require.Equal(t, 4, count)

	families, err := f.registry.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			key := mf.GetName()
			for _, l := range metric.GetLabel() {
				key += "/" + l.GetValue()
			}
			values[key] = metric.GetCounter().GetValue()
		}
	}
	require.Equal(t, 1.0, values["ilumina_session_logins_total/failure"])
	require.Equal(t, 1.0, values["ilumina_session_logins_total/success"])
	require.Equal(t, 1.0, values["ilumina_session_refreshes_total/success"])
	require.Equal(t, 1.0, values["ilumina_session_forced_logouts_total/unauthorized"])
}
