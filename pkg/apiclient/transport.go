package apiclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/dmitrymomot/focusforge/pkg/credential"
	"github.com/dmitrymomot/focusforge/pkg/logger"
)

// TokenSource supplies the credential attached to outgoing requests.
// credential.Store satisfies it.
type TokenSource interface {
	Get(ctx context.Context) (string, error)
}

// UnauthorizedHandler is told about every 401 answered to an authenticated
// request, together with the credential that request carried.
type UnauthorizedHandler func(ctx context.Context, credential string)

type authMode int

const (
	authAmbient  authMode = iota // credential from the TokenSource, 401 reported
	authNone                     // no credential, 401 not reported
	authExplicit                 // caller-supplied credential, 401 not reported
)

type authModeKey struct{}

type explicitCredentialKey struct{}

func withoutCredential(ctx context.Context) context.Context {
	return context.WithValue(ctx, authModeKey{}, authNone)
}

func withCredential(ctx context.Context, credential string) context.Context {
	ctx = context.WithValue(ctx, authModeKey{}, authExplicit)
	return context.WithValue(ctx, explicitCredentialKey{}, credential)
}

func modeFrom(ctx context.Context) authMode {
	if m, ok := ctx.Value(authModeKey{}).(authMode); ok {
		return m
	}
	return authAmbient
}

// AuthTransport attaches the bearer credential to requests and reports
// authorization failures.
//
// For ordinary requests the credential comes from the TokenSource. A 401
// response triggers the unauthorized handler exactly once, unless the host
// reports it is already on the login surface; the response is then
// returned unchanged so the caller sees the original failure.
type AuthTransport struct {
	base   http.RoundTripper
	tokens TokenSource
	log    *slog.Logger

	mu             sync.RWMutex
	onUnauthorized UnauthorizedHandler
	onLoginSurface func() bool
}

// NewAuthTransport wraps base; a nil base means http.DefaultTransport.
func NewAuthTransport(base http.RoundTripper, tokens TokenSource, log *slog.Logger) *AuthTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if log == nil {
		log = slog.Default()
	}
	return &AuthTransport{base: base, tokens: tokens, log: log}
}

// SetUnauthorizedHandler replaces the handler called on 401 responses.
func (t *AuthTransport) SetUnauthorizedHandler(h UnauthorizedHandler) {
	t.mu.Lock()
	t.onUnauthorized = h
	t.mu.Unlock()
}

// SetLoginSurface installs the check that suppresses the handler while
// the host already shows its sign-in view.
func (t *AuthTransport) SetLoginSurface(fn func() bool) {
	t.mu.Lock()
	t.onLoginSurface = fn
	t.mu.Unlock()
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	mode := modeFrom(ctx)

	var token string
	switch mode {
	case authExplicit:
		token, _ = ctx.Value(explicitCredentialKey{}).(string)
	case authAmbient:
		if t.tokens != nil {
			c, err := t.tokens.Get(ctx)
			if err != nil && !errors.Is(err, credential.ErrNotFound) {
				t.log.WarnContext(ctx, "credential unavailable for request", logger.Error(err))
			}
			token = c
		}
	}

	out := req
	if token != "" {
		out = req.Clone(ctx)
		out.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && mode == authAmbient {
		t.reportUnauthorized(ctx, token)
	}
	return resp, nil
}

func (t *AuthTransport) reportUnauthorized(ctx context.Context, token string) {
	t.mu.RLock()
	handler, onLogin := t.onUnauthorized, t.onLoginSurface
	t.mu.RUnlock()

	if handler == nil {
		return
	}
	if onLogin != nil && onLogin() {
		t.log.DebugContext(ctx, "401 on login surface, session untouched")
		return
	}
	handler(ctx, token)
}
