package authsession_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/focusforge/pkg/apiclient"
	"github.com/dmitrymomot/focusforge/pkg/authsession"
	"github.com/dmitrymomot/focusforge/pkg/credential"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Me(ctx context.Context, cred string) (*apiclient.User, error) {
	args := m.Called(ctx, cred)
	u, _ := args.Get(0).(*apiclient.User)
	return u, args.Error(1)
}

func (m *mockAPI) Login(ctx context.Context, in apiclient.LoginRequest) (*apiclient.AuthResult, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*apiclient.AuthResult)
	return r, args.Error(1)
}

func (m *mockAPI) Register(ctx context.Context, in apiclient.RegisterRequest) (*apiclient.AuthResult, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*apiclient.AuthResult)
	return r, args.Error(1)
}

// countingStore counts reads of the wrapped store.
type countingStore struct {
	credential.Store
	gets atomic.Int32
}

func (s *countingStore) Get(ctx context.Context) (string, error) {
	s.gets.Add(1)
	return s.Store.Get(ctx)
}

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(d time.Duration) authsession.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{clock: c, ch: make(chan time.Time, 1), period: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves time forward and fires every due ticker once.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, t := range c.tickers {
		if t.stopped || t.next.After(c.now) {
			continue
		}
		for !t.next.After(c.now) {
			t.next = t.next.Add(t.period)
		}
		select {
		case t.ch <- c.now:
		default:
		}
	}
}

func (c *fakeClock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *fakeClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type fakeTicker struct {
	clock   *fakeClock
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	t.stopped = true
	t.clock.mu.Unlock()
}

// credentialExpiring builds a decodable credential expiring at exp.
func credentialExpiring(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1", "exp": exp.Unix()})
	s, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}
