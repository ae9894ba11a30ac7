package authsession_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/focusforge/pkg/apiclient"
	"github.com/dmitrymomot/focusforge/pkg/authsession"
	"github.com/dmitrymomot/focusforge/pkg/credential"
	"github.com/dmitrymomot/focusforge/pkg/logger"
)

var ada = apiclient.User{
	ID:            "u-1",
	Name:          "Ada",
	Email:         "ada@example.com",
	PublicProfile: apiclient.PublicProfile{Alias: "ada", ShowOnLeaderboard: true},
}

type fixture struct {
	api     *mockAPI
	store   *countingStore
	clock   *fakeClock
	reg     *prometheus.Registry
	manager *authsession.Manager
}

func newFixture(t *testing.T, stored string, opts ...authsession.Option) *fixture {
	t.Helper()

	f := &fixture{
		api:   &mockAPI{},
		store: &countingStore{Store: credential.NewMemoryStore()},
		clock: newFakeClock(),
		reg:   prometheus.NewRegistry(),
	}
	if stored != "" {
		require.NoError(t, f.store.Store.Set(context.Background(), stored))
	}

	opts = append([]authsession.Option{
		authsession.WithClock(f.clock),
		authsession.WithLogger(logger.Discard()),
		authsession.WithMetrics(f.reg),
		authsession.WithValidationRetry(0, time.Millisecond, time.Millisecond),
	}, opts...)
	f.manager = authsession.New(f.store, f.api, opts...)
	t.Cleanup(func() { _ = f.manager.Close() })
	return f
}

func (f *fixture) stored(t *testing.T) string {
	t.Helper()
	v, err := f.store.Store.Get(context.Background())
	if errors.Is(err, credential.ErrNotFound) {
		return ""
	}
	require.NoError(t, err)
	return v
}

func TestStart(t *testing.T) {
	t.Parallel()

	t.Run("empty store resolves without a remote call", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")

		require.NoError(t, f.manager.Start(context.Background()))

		assert.Equal(t, authsession.Unauthenticated(authsession.ReasonNoCredential), f.manager.Current())
		f.api.AssertNotCalled(t, "Me", mock.Anything, mock.Anything)
		assert.Zero(t, f.clock.Tickers())
	})

	t.Run("expired credential is cleared without a remote call", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		cred := credentialExpiring(t, f.clock.Now().Add(-time.Second))
		require.NoError(t, f.store.Set(context.Background(), cred))

		require.NoError(t, f.manager.Start(context.Background()))

		assert.Equal(t, authsession.Unauthenticated(authsession.ReasonLocallyExpired), f.manager.Current())
		assert.Empty(t, f.stored(t))
		f.api.AssertNotCalled(t, "Me", mock.Anything, mock.Anything)
	})

	t.Run("valid credential authenticates and starts one timer", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
		require.NoError(t, f.store.Set(context.Background(), cred))
		f.api.On("Me", mock.Anything, cred).Return(&ada, nil)

		require.NoError(t, f.manager.Start(context.Background()))

		got, ok := f.manager.Current().User()
		require.True(t, ok)
		assert.Equal(t, ada, got)
		assert.Equal(t, 1, f.clock.Tickers())

		// Refreshing an authenticated session leaves the timer alone.
		_, err := f.manager.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, f.clock.Tickers())
		assert.Equal(t, 1, f.clock.Active())
	})

	t.Run("rejected credential is cleared", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
		require.NoError(t, f.store.Set(context.Background(), cred))
		f.api.On("Me", mock.Anything, cred).Return(nil, fmt.Errorf("%w: status 401", apiclient.ErrUnauthorized))

		require.NoError(t, f.manager.Start(context.Background()))

		assert.Equal(t, authsession.Unauthenticated(authsession.ReasonRemotelyRejected), f.manager.Current())
		assert.Empty(t, f.stored(t))
		assert.Zero(t, f.clock.Tickers())
	})

	t.Run("unreachable server keeps the credential", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "", authsession.WithValidationRetry(2, time.Millisecond, 2*time.Millisecond))
		cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
		require.NoError(t, f.store.Set(context.Background(), cred))
		f.api.On("Me", mock.Anything, cred).Return(nil, apiclient.ErrNetwork).Times(3)

		require.NoError(t, f.manager.Start(context.Background()))

		assert.Equal(t, authsession.Unauthenticated(authsession.ReasonValidationUnavailable), f.manager.Current())
		assert.Equal(t, cred, f.stored(t))
		f.api.AssertNumberOfCalls(t, "Me", 3)

		// The server comes back.
		f.api.On("Me", mock.Anything, cred).Return(&ada, nil).Once()
		user, err := f.manager.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ada, *user)
		assert.True(t, f.manager.Current().IsAuthenticated())
	})

	t.Run("second start is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		require.NoError(t, f.manager.Start(context.Background()))
		assert.ErrorIs(t, f.manager.Start(context.Background()), authsession.ErrAlreadyStarted)
	})
}

func TestStartMalformedCredential(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"one segment":       "garbage",
		"bad base64":        "a.%%%.c",
		"payload not json":  "eyJhbGciOiJIUzI1NiJ9.bm90IGpzb24.c2ln",
		"missing exp claim": "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJ1LTEifQ.c2ln",
	}

	for name, cred := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, cred)

			require.NoError(t, f.manager.Start(context.Background()))

			assert.Equal(t, authsession.Unauthenticated(authsession.ReasonLocallyExpired), f.manager.Current())
			assert.Empty(t, f.stored(t))
			f.api.AssertNotCalled(t, "Me", mock.Anything, mock.Anything)
		})
	}
}

func TestPeriodicExpiry(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "", authsession.WithRevalidateInterval(time.Minute))
	cred := credentialExpiring(t, f.clock.Now().Add(90*time.Second))
	require.NoError(t, f.store.Set(context.Background(), cred))
	f.api.On("Me", mock.Anything, cred).Return(&ada, nil).Once()

	require.NoError(t, f.manager.Start(context.Background()))
	require.True(t, f.manager.Current().IsAuthenticated())
	reads := f.store.gets.Load()

	// First tick: still valid.
	f.clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return f.store.gets.Load() == reads+1 }, time.Second, time.Millisecond)
	assert.True(t, f.manager.Current().IsAuthenticated())

	// Second tick: past expiry.
	f.clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return f.manager.Current() == authsession.Unauthenticated(authsession.ReasonLocallyExpired)
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return f.clock.Active() == 0 }, time.Second, time.Millisecond)

	reads = f.store.gets.Load()
	f.clock.Advance(10 * time.Minute)
	assert.Never(t, func() bool { return f.store.gets.Load() != reads }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Empty(t, f.stored(t))

	expected := `
# HELP focusforge_session_transitions_total Session state transitions by event and resulting state.
# TYPE focusforge_session_transitions_total counter
focusforge_session_transitions_total{event="expired",state="unauthenticated"} 1
focusforge_session_transitions_total{event="validated",state="authenticated"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "focusforge_session_transitions_total"))
	f.api.AssertNumberOfCalls(t, "Me", 1)
}

func TestRefreshDiscardedAfterLogout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
	require.NoError(t, f.store.Set(context.Background(), cred))

	entered := make(chan struct{})
	release := make(chan struct{})
	f.api.On("Me", mock.Anything, cred).Return(&ada, nil).Once()
	f.api.On("Me", mock.Anything, cred).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(&ada, nil).Once()

	require.NoError(t, f.manager.Start(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := f.manager.Refresh(context.Background())
		done <- err
	}()

	<-entered
	f.manager.Logout(context.Background())
	close(release)

	assert.ErrorIs(t, <-done, authsession.ErrSuperseded)
	assert.Equal(t, authsession.Unauthenticated(authsession.ReasonLoggedOut), f.manager.Current())
	assert.Empty(t, f.stored(t))
	assert.Zero(t, f.clock.Active())
}

func TestStartDiscardedAfterLogin(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	old := credentialExpiring(t, f.clock.Now().Add(time.Hour))
	require.NoError(t, f.store.Set(context.Background(), old))

	entered := make(chan struct{})
	release := make(chan struct{})
	f.api.On("Me", mock.Anything, old).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(nil, apiclient.ErrUnauthorized).Once()

	grace := apiclient.User{ID: "u-2", Name: "Grace", Email: "grace@example.com"}
	fresh := credentialExpiring(t, f.clock.Now().Add(2*time.Hour))
	in := apiclient.LoginRequest{Email: "grace@example.com", Password: "pw"}
	f.api.On("Login", mock.Anything, in).Return(&apiclient.AuthResult{Credential: fresh, User: grace}, nil)

	done := make(chan error, 1)
	go func() { done <- f.manager.Start(context.Background()) }()

	<-entered
	user, err := f.manager.Login(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, grace, *user)
	close(release)

	assert.ErrorIs(t, <-done, authsession.ErrSuperseded)
	got, ok := f.manager.Current().User()
	require.True(t, ok)
	assert.Equal(t, grace, got)
	assert.Equal(t, fresh, f.stored(t), "stale rejection must not clear the new credential")
}

func TestConcurrentValidationsCoalesce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
	require.NoError(t, f.store.Set(context.Background(), cred))

	release := make(chan struct{})
	f.api.On("Me", mock.Anything, cred).Run(func(mock.Arguments) { <-release }).Return(&ada, nil).Once()

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers+1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- f.manager.Start(context.Background())
	}()
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.Refresh(context.Background())
			errs <- err
		}()
	}

	// Give every caller time to join the in-flight validation.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	f.api.AssertNumberOfCalls(t, "Me", 1)
	assert.True(t, f.manager.Current().IsAuthenticated())
	assert.Equal(t, 1, f.clock.Tickers())
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	authed := func(t *testing.T, opts ...authsession.Option) (*fixture, string) {
		f := newFixture(t, "", opts...)
		cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
		require.NoError(t, f.store.Set(context.Background(), cred))
		f.api.On("Me", mock.Anything, cred).Return(&ada, nil).Once()
		require.NoError(t, f.manager.Start(context.Background()))
		require.True(t, f.manager.Current().IsAuthenticated())
		return f, cred
	}

	t.Run("updates the profile", func(t *testing.T) {
		t.Parallel()
		f, cred := authed(t)
		renamed := ada
		renamed.Name = "Ada L."
		f.api.On("Me", mock.Anything, cred).Return(&renamed, nil).Once()

		user, err := f.manager.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Ada L.", user.Name)
		got, _ := f.manager.Current().User()
		assert.Equal(t, "Ada L.", got.Name)
	})

	t.Run("transient failure keeps the session", func(t *testing.T) {
		t.Parallel()
		f, cred := authed(t)
		f.api.On("Me", mock.Anything, cred).Return(nil, apiclient.ErrServer).Once()

		_, err := f.manager.Refresh(context.Background())
		assert.ErrorIs(t, err, authsession.ErrValidationUnavailable)
		assert.ErrorIs(t, err, apiclient.ErrServer)
		assert.True(t, f.manager.Current().IsAuthenticated())
		assert.Equal(t, cred, f.stored(t))
		assert.Equal(t, 1, f.clock.Active())
	})

	t.Run("rejection signs out", func(t *testing.T) {
		t.Parallel()
		f, cred := authed(t)
		f.api.On("Me", mock.Anything, cred).Return(nil, apiclient.ErrUnauthorized).Once()

		_, err := f.manager.Refresh(context.Background())
		assert.ErrorIs(t, err, authsession.ErrNotAuthenticated)
		assert.Equal(t, authsession.Unauthenticated(authsession.ReasonRemotelyRejected), f.manager.Current())
		assert.Empty(t, f.stored(t))
		assert.Zero(t, f.clock.Active())
	})

	t.Run("missing credential signs out", func(t *testing.T) {
		t.Parallel()
		f, _ := authed(t)
		require.NoError(t, f.store.Clear(context.Background()))

		_, err := f.manager.Refresh(context.Background())
		assert.ErrorIs(t, err, authsession.ErrNotAuthenticated)
		assert.Equal(t, authsession.Unauthenticated(authsession.ReasonNoCredential), f.manager.Current())
		assert.Zero(t, f.clock.Active())
	})

	t.Run("not available after logout", func(t *testing.T) {
		t.Parallel()
		f, _ := authed(t)
		f.manager.Logout(context.Background())

		_, err := f.manager.Refresh(context.Background())
		assert.ErrorIs(t, err, authsession.ErrNotAuthenticated)
		f.api.AssertNumberOfCalls(t, "Me", 1)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	good := apiclient.LoginRequest{Email: "ada@example.com", Password: "right"}
	bad := apiclient.LoginRequest{Email: "ada@example.com", Password: "wrong"}

	t.Run("success authenticates", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		require.NoError(t, f.manager.Start(context.Background()))
		cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
		f.api.On("Login", mock.Anything, good).Return(&apiclient.AuthResult{Credential: cred, User: ada}, nil)

		user, err := f.manager.Login(context.Background(), good)
		require.NoError(t, err)
		assert.Equal(t, ada, *user)
		assert.Equal(t, authsession.Authenticated(ada), f.manager.Current())
		assert.Equal(t, cred, f.stored(t))
		assert.Equal(t, 1, f.clock.Active())
	})

	t.Run("failure leaves state unchanged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		require.NoError(t, f.manager.Start(context.Background()))
		before := f.manager.Current()
		f.api.On("Login", mock.Anything, bad).Return(nil, &apiclient.LoginError{Message: "Invalid email or password", Err: apiclient.ErrUnauthorized})

		_, err := f.manager.Login(context.Background(), bad)
		require.Error(t, err)
		assert.True(t, apiclient.IsLoginError(err))
		assert.Equal(t, before, f.manager.Current())
		assert.Empty(t, f.stored(t))
	})

	t.Run("failure while authenticated keeps the session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
		f.api.On("Login", mock.Anything, good).Return(&apiclient.AuthResult{Credential: cred, User: ada}, nil).Once()
		f.api.On("Login", mock.Anything, bad).Return(nil, &apiclient.LoginError{Message: "nope"}).Once()

		_, err := f.manager.Login(context.Background(), good)
		require.NoError(t, err)
		_, err = f.manager.Login(context.Background(), bad)
		require.Error(t, err)

		assert.Equal(t, authsession.Authenticated(ada), f.manager.Current())
		assert.Equal(t, cred, f.stored(t))
	})

	t.Run("login while authenticated restarts the timer", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
		f.api.On("Login", mock.Anything, good).Return(&apiclient.AuthResult{Credential: cred, User: ada}, nil).Twice()

		_, err := f.manager.Login(context.Background(), good)
		require.NoError(t, err)
		_, err = f.manager.Login(context.Background(), good)
		require.NoError(t, err)

		assert.Equal(t, 2, f.clock.Tickers())
		assert.Equal(t, 1, f.clock.Active())
	})
}

func TestRegister(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	in := apiclient.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "pw", ConfirmPassword: "pw"}
	cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
	f.api.On("Register", mock.Anything, in).Return(&apiclient.AuthResult{Credential: cred, User: ada}, nil)

	user, err := f.manager.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, ada, *user)
	assert.True(t, f.manager.Current().IsAuthenticated())
	assert.Equal(t, cred, f.stored(t))
}

func TestLogout(t *testing.T) {
	t.Parallel()

	t.Run("from initializing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "stale")
		f.manager.Logout(context.Background())
		assert.Equal(t, authsession.Unauthenticated(authsession.ReasonLoggedOut), f.manager.Current())
		assert.Empty(t, f.stored(t))
	})

	t.Run("twice is harmless", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		f.manager.Logout(context.Background())
		f.manager.Logout(context.Background())
		assert.Equal(t, authsession.Unauthenticated(authsession.ReasonLoggedOut), f.manager.Current())
	})
}

func TestHandleUnauthorized(t *testing.T) {
	t.Parallel()

	t.Run("signs out an authenticated session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
		in := apiclient.LoginRequest{Email: "ada@example.com", Password: "pw"}
		f.api.On("Login", mock.Anything, in).Return(&apiclient.AuthResult{Credential: cred, User: ada}, nil)
		_, err := f.manager.Login(context.Background(), in)
		require.NoError(t, err)

		f.manager.HandleUnauthorized(context.Background(), cred)

		assert.Equal(t, authsession.Unauthenticated(authsession.ReasonRemotelyRejected), f.manager.Current())
		assert.Empty(t, f.stored(t))
		assert.Zero(t, f.clock.Active())
	})

	t.Run("ignored when not authenticated", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		require.NoError(t, f.manager.Start(context.Background()))
		f.manager.HandleUnauthorized(context.Background(), "")
		assert.Equal(t, authsession.Unauthenticated(authsession.ReasonNoCredential), f.manager.Current())
	})

	t.Run("ignored for a replaced credential", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, "")
		old := credentialExpiring(t, f.clock.Now().Add(time.Hour))
		fresh := credentialExpiring(t, f.clock.Now().Add(2*time.Hour))
		first := apiclient.LoginRequest{Email: "ada@example.com", Password: "pw"}
		second := apiclient.LoginRequest{Email: "ada@example.com", Password: "pw2"}
		f.api.On("Login", mock.Anything, first).Return(&apiclient.AuthResult{Credential: old, User: ada}, nil)
		f.api.On("Login", mock.Anything, second).Return(&apiclient.AuthResult{Credential: fresh, User: ada}, nil)
		_, err := f.manager.Login(context.Background(), first)
		require.NoError(t, err)
		_, err = f.manager.Login(context.Background(), second)
		require.NoError(t, err)

		f.manager.HandleUnauthorized(context.Background(), old)

		assert.Equal(t, authsession.Authenticated(ada), f.manager.Current())
		assert.Equal(t, fresh, f.stored(t))
		assert.Equal(t, 1, f.clock.Active())
	})
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	states, cancel := f.manager.Subscribe()

	assert.Equal(t, authsession.Initializing(), <-states)

	require.NoError(t, f.manager.Start(context.Background()))
	assert.Equal(t, authsession.Unauthenticated(authsession.ReasonNoCredential), <-states)

	// A slow reader only sees the latest state.
	cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
	in := apiclient.LoginRequest{Email: "ada@example.com", Password: "pw"}
	f.api.On("Login", mock.Anything, in).Return(&apiclient.AuthResult{Credential: cred, User: ada}, nil)
	_, err := f.manager.Login(context.Background(), in)
	require.NoError(t, err)
	f.manager.Logout(context.Background())
	assert.Equal(t, authsession.Unauthenticated(authsession.ReasonLoggedOut), <-states)

	cancel()
	_, open := <-states
	assert.False(t, open)
	cancel()
}

func TestClose(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	cred := credentialExpiring(t, f.clock.Now().Add(time.Hour))
	in := apiclient.LoginRequest{Email: "ada@example.com", Password: "pw"}
	f.api.On("Login", mock.Anything, in).Return(&apiclient.AuthResult{Credential: cred, User: ada}, nil)
	_, err := f.manager.Login(context.Background(), in)
	require.NoError(t, err)

	states, _ := f.manager.Subscribe()
	<-states

	require.NoError(t, f.manager.Close())
	assert.Zero(t, f.clock.Active())
	_, open := <-states
	assert.False(t, open)

	assert.ErrorIs(t, f.manager.Start(context.Background()), authsession.ErrClosed)
	_, err = f.manager.Refresh(context.Background())
	assert.ErrorIs(t, err, authsession.ErrClosed)
	_, err = f.manager.Login(context.Background(), in)
	assert.ErrorIs(t, err, authsession.ErrClosed)
}
