package authsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/focusforge/pkg/apiclient"
	"github.com/dmitrymomot/focusforge/pkg/claims"
	"github.com/dmitrymomot/focusforge/pkg/credential"
	"github.com/dmitrymomot/focusforge/pkg/logger"
	"github.com/dmitrymomot/focusforge/pkg/statemachine"
)

// API is the part of the FocusForge API the manager talks to.
// *apiclient.Client implements it.
type API interface {
	Me(ctx context.Context, credential string) (*apiclient.User, error)
	Login(ctx context.Context, in apiclient.LoginRequest) (*apiclient.AuthResult, error)
	Register(ctx context.Context, in apiclient.RegisterRequest) (*apiclient.AuthResult, error)
}

// Manager owns the single user session of a client.
//
// State changes go through the session Machine and are serialised by mu,
// which is never held while waiting for the API. Every remote result is
// tagged with the generation current when its operation began; Login,
// Register, Logout and forced sign-outs advance the generation, and a
// result whose generation is stale is discarded with ErrSuperseded.
type Manager struct {
	store     credential.Store
	api       API
	remote    Validator
	validator *coalescingValidator
	machine   *Machine
	reval     *Revalidator
	clock     Clock
	interval  time.Duration
	retry     retryPolicy
	log       *slog.Logger
	metrics   *metrics

	mu      sync.Mutex
	gen     uint64
	started bool
	closed  bool

	subMu   sync.Mutex
	subs    map[uint64]chan State
	nextSub uint64
}

// New creates a manager in the Initializing state. Call Start to resolve
// the stored credential.
func New(store credential.Store, api API, opts ...Option) *Manager {
	cfg := DefaultConfig()
	m := &Manager{
		store:    store,
		api:      api,
		clock:    systemClock{},
		interval: cfg.RevalidateInterval,
		retry:    retryPolicy{retries: cfg.ValidationRetries, base: cfg.RetryBase, maxDelay: cfg.RetryMax},
		log:      slog.Default(),
		subs:     make(map[uint64]chan State),
	}
	if api != nil {
		m.remote = ValidatorFunc(api.Me)
	}
	for _, opt := range opts {
		opt(m)
	}

	m.log = m.log.With(logger.Component("authsession"))
	m.validator = &coalescingValidator{next: m.remote, retry: m.retry, log: m.log, metrics: m.metrics}
	m.reval = NewRevalidator(m.interval, m.clock, m.checkExpiry)
	m.machine = NewMachine(m.onTransition)
	return m
}

// Start resolves the stored credential: a missing or locally expired
// credential signs the session out, otherwise the server is asked once.
// Every outcome is absorbed into the state; errors report only misuse or
// a result superseded by a concurrent operation.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrClosed
	case m.started:
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	gen := m.gen
	m.mu.Unlock()

	_, err := m.resolve(ctx, gen)
	if errors.Is(err, ErrSuperseded) {
		return err
	}
	return nil
}

// Refresh re-validates the stored credential with the server and returns
// the fresh profile.
//
// It works while Authenticated, while Initializing and after a start-up
// that could not reach the server. A rejected or missing credential signs
// the session out and yields ErrNotAuthenticated. A transient failure
// while Authenticated keeps the session and yields ErrValidationUnavailable.
func (m *Manager) Refresh(ctx context.Context) (*apiclient.User, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	cur := m.machine.Current()
	gen := m.gen
	m.mu.Unlock()

	if cur.Kind() == KindUnauthenticated && cur.Reason() != ReasonValidationUnavailable {
		return nil, ErrNotAuthenticated
	}
	return m.resolve(ctx, gen)
}

// resolve runs the local check and remote validation for the stored
// credential and applies the outcome.
func (m *Manager) resolve(ctx context.Context, gen uint64) (*apiclient.User, error) {
	cred, err := m.store.Get(ctx)
	switch {
	case errors.Is(err, credential.ErrNotFound):
		if err := m.apply(ctx, gen, EventNoCredential, Unauthenticated(ReasonNoCredential), false); err != nil {
			return nil, err
		}
		return nil, ErrNotAuthenticated
	case err != nil:
		return nil, m.unavailable(ctx, gen, fmt.Errorf("read credential: %w", err))
	}

	if claims.Expired(cred, m.clock.Now()) {
		if err := m.apply(ctx, gen, EventExpired, Unauthenticated(ReasonLocallyExpired), true); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: credential expired", ErrNotAuthenticated)
	}

	user, err := m.validator.Validate(ctx, cred)
	switch {
	case err == nil:
		if err := m.apply(ctx, gen, EventValidated, Authenticated(*user), false); err != nil {
			return nil, err
		}
		return user, nil
	case errors.Is(err, apiclient.ErrUnauthorized):
		if err := m.apply(ctx, gen, EventRejected, Unauthenticated(ReasonRemotelyRejected), true); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	default:
		return nil, m.unavailable(ctx, gen, err)
	}
}

// unavailable records a validation whose outcome is unknown. A signed-in
// session is kept as is.
func (m *Manager) unavailable(ctx context.Context, gen uint64, cause error) error {
	m.mu.Lock()
	stale := m.gen != gen
	authed := m.machine.Current().IsAuthenticated()
	m.mu.Unlock()

	if stale {
		return ErrSuperseded
	}
	if !authed {
		if err := m.apply(ctx, gen, EventUnavailable, Unauthenticated(ReasonValidationUnavailable), false); err != nil {
			return err
		}
	}
	m.log.WarnContext(ctx, "session validation unavailable", logger.Error(cause))
	return fmt.Errorf("%w: %w", ErrValidationUnavailable, cause)
}

// apply moves the machine to target if no newer operation has happened
// since gen was read. clear removes the stored credential first.
func (m *Manager) apply(ctx context.Context, gen uint64, event statemachine.Event, target State, clear bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || m.closed {
		return ErrSuperseded
	}
	return m.transitionLocked(ctx, event, target, clear)
}

func (m *Manager) transitionLocked(ctx context.Context, event statemachine.Event, target State, clear bool) error {
	if clear {
		if err := m.store.Clear(ctx); err != nil {
			m.log.ErrorContext(ctx, "failed to clear credential", logger.Error(err))
		}
	}

	if m.machine.Current().sameVariant(target) {
		return nil
	}

	err := m.machine.Fire(ctx, event, target)
	if statemachine.IsNoTransitionAvailableError(err) || statemachine.IsTransitionRejectedError(err) {
		// A concurrent resolution already moved the session elsewhere.
		m.log.DebugContext(ctx, "session transition skipped", logger.Event(event.Name()), logger.Error(err))
		return ErrSuperseded
	}
	return err
}

// Login exchanges email and password for a credential and signs the user
// in. A rejected login returns *apiclient.LoginError and leaves the state
// unchanged.
func (m *Manager) Login(ctx context.Context, in apiclient.LoginRequest) (*apiclient.User, error) {
	return m.signIn(ctx, func(ctx context.Context) (*apiclient.AuthResult, error) {
		return m.api.Login(ctx, in)
	})
}

// Register creates an account and signs it in. Failures behave as in Login.
func (m *Manager) Register(ctx context.Context, in apiclient.RegisterRequest) (*apiclient.User, error) {
	return m.signIn(ctx, func(ctx context.Context) (*apiclient.AuthResult, error) {
		return m.api.Register(ctx, in)
	})
}

func (m *Manager) signIn(ctx context.Context, call func(context.Context) (*apiclient.AuthResult, error)) (*apiclient.User, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	gen := m.gen
	m.mu.Unlock()

	res, err := call(ctx)
	if err != nil {
		m.log.InfoContext(ctx, "sign-in failed", logger.Error(err))
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || m.closed {
		return nil, ErrSuperseded
	}
	if err := m.store.Set(ctx, res.Credential); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}
	m.gen++
	if err := m.transitionLocked(ctx, EventLogin, Authenticated(res.User), false); err != nil {
		return nil, err
	}

	user := res.User
	return &user, nil
}

// Logout clears the credential and signs the session out. It never fails;
// storage errors are logged.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	if err := m.transitionLocked(ctx, EventLogout, Unauthenticated(ReasonLoggedOut), true); err != nil {
		m.log.ErrorContext(ctx, "logout transition failed", logger.Error(err))
	}
}

// HandleUnauthorized signs the session out after the server rejected an
// authenticated request carrying rejected. It is meant to be registered with
// (*apiclient.Client).OnUnauthorized and does nothing unless authenticated
// with that same credential.
func (m *Manager) HandleUnauthorized(ctx context.Context, rejected string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.machine.Current().IsAuthenticated() {
		m.log.DebugContext(ctx, "unauthorized response ignored", logger.State(m.machine.Current().String()))
		return
	}

	current, err := m.store.Get(ctx)
	switch {
	case err != nil && !errors.Is(err, credential.ErrNotFound):
		m.log.WarnContext(ctx, "unauthorized check could not read credential", logger.Error(err))
	case rejected != current:
		m.log.DebugContext(ctx, "unauthorized response for a replaced credential ignored")
		return
	}

	m.gen++
	if err := m.transitionLocked(ctx, EventUnauthorized, Unauthenticated(ReasonRemotelyRejected), true); err != nil {
		m.log.ErrorContext(ctx, "unauthorized transition failed", logger.Error(err))
	}
}

// checkExpiry is the revalidator's tick: a local claim check only.
func (m *Manager) checkExpiry(ctx context.Context) {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	cred, err := m.store.Get(ctx)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			m.log.WarnContext(ctx, "periodic check could not read credential", logger.Error(err))
		}
		return
	}
	if !claims.Expired(cred, m.clock.Now()) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || m.closed || !m.machine.Current().IsAuthenticated() {
		return
	}
	m.gen++
	if err := m.transitionLocked(ctx, EventExpired, Unauthenticated(ReasonLocallyExpired), true); err != nil {
		m.log.ErrorContext(ctx, "expiry transition failed", logger.Error(err))
	}
}

// Current returns a snapshot of the session state.
func (m *Manager) Current() State {
	return m.machine.Current()
}

// Subscribe returns a channel that always holds the latest state. The
// current state is delivered immediately; intermediate states may be
// skipped by slow readers. cancel releases the subscription and closes
// the channel.
func (m *Manager) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	ch <- m.machine.Current()
	if m.subs == nil {
		close(ch)
		m.subMu.Unlock()
		return ch, func() {}
	}
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			if c, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(c)
			}
		})
	}
}

func (m *Manager) publish(s State) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// onTransition keeps the revalidator alive exactly while authenticated
// and fans the new state out.
func (m *Manager) onTransition(ctx context.Context, from, to State, event statemachine.Event) {
	switch {
	case !to.IsAuthenticated():
		m.reval.Stop()
	case !from.IsAuthenticated():
		m.reval.Start()
	case event.Name() == EventLogin.Name():
		m.reval.Stop()
		m.reval.Start()
	}

	m.metrics.transition(event.Name(), to)

	user, _ := to.User()
	m.log.InfoContext(ctx, "session transition",
		logger.Transition(from.String(), to.String()),
		logger.Event(event.Name()),
		logger.UserID(user.ID),
	)

	m.publish(to)
}

// Close stops the revalidator and closes every subscription. Start,
// Refresh, Login and Register return ErrClosed afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.reval.Stop()

	m.subMu.Lock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	m.subs = nil
	m.subMu.Unlock()
	return nil
}
