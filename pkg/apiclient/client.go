package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/focusforge/pkg/requestid"
)

// maxResponseBody caps how much of a response body is read.
const maxResponseBody = 1 << 20

// Client talks to the FocusForge API. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	auth    *AuthTransport
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient   *http.Client
	tokens       TokenSource
	log          *slog.Logger
	loginSurface func() bool
}

// WithHTTPClient uses client's transport as the base of the request chain.
// The client's timeout is kept when Config.Timeout is zero.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithTokenSource sets where the bearer credential of ordinary requests comes from.
func WithTokenSource(tokens TokenSource) Option {
	return func(o *clientOptions) {
		o.tokens = tokens
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(o *clientOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// WithLoginSurface installs a check reporting whether the host is already
// showing its sign-in view; 401 responses are not reported while it returns true.
func WithLoginSurface(fn func() bool) Option {
	return func(o *clientOptions) {
		o.loginSurface = fn
	}
}

// New creates a client for cfg.BaseURL.
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	o := clientOptions{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		next    http.RoundTripper
		timeout = cfg.Timeout
	)
	if o.httpClient != nil {
		next = o.httpClient.Transport
		if timeout == 0 {
			timeout = o.httpClient.Timeout
		}
	}

	auth := NewAuthTransport(&requestid.Transport{Base: next}, o.tokens, o.log)
	if o.loginSurface != nil {
		auth.SetLoginSurface(o.loginSurface)
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{Transport: auth, Timeout: timeout},
		auth:    auth,
		log:     o.log,
	}, nil
}

// OnUnauthorized registers the handler told about 401 responses to
// credential-bearing requests. Typically authsession.Manager.HandleUnauthorized.
func (c *Client) OnUnauthorized(h UnauthorizedHandler) {
	c.auth.SetUnauthorizedHandler(h)
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidBaseURL)
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidBaseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidBaseURL)
	}
	return u, nil
}

// request performs one API call and decodes the envelope's data into T.
func request[T any](ctx context.Context, c *Client, method, path string, query url.Values, in any) (T, error) {
	var zero T

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return zero, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	if requestid.FromContext(ctx) == "" {
		ctx = requestid.WithContext(ctx, requestid.New())
	}

	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return zero, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		return zero, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return zero, fmt.Errorf("%w: read response: %w", ErrNetwork, err)
	}

	if err := statusError(resp.StatusCode, raw); err != nil {
		c.log.DebugContext(ctx, "api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return zero, err
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return zero, nil
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, fmt.Errorf("%w: decode %s response: %w", ErrServer, path, err)
	}
	return env.Data, nil
}

// statusError classifies a non-2xx response.
func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var payload struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	e := &APIError{StatusCode: status, Message: payload.Message}
	switch {
	case status == http.StatusUnauthorized:
		e.kind = ErrUnauthorized
	case status >= 500:
		e.kind = ErrServer
	case status >= 400:
		e.kind = ErrRequest
	default:
		e.kind = ErrServer
	}
	return e
}

// Me fetches the profile owned by credential. The credential is sent
// explicitly; a 401 answer is returned as ErrUnauthorized without
// notifying the unauthorized handler.
func (c *Client) Me(ctx context.Context, credential string) (*User, error) {
	if credential == "" {
		return nil, &APIError{StatusCode: http.StatusUnauthorized, Message: "missing credential", kind: ErrUnauthorized}
	}

	data, err := request[struct {
		User *User `json:"user"`
	}](withCredential(ctx, credential), c, http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, fmt.Errorf("%w: /auth/me response has no user", ErrServer)
	}
	return data.User, nil
}

// Login exchanges email and password for a credential. Every failure is a
// *LoginError.
func (c *Client) Login(ctx context.Context, in LoginRequest) (*AuthResult, error) {
	in.Email = NormalizeEmail(in.Email)
	if in.Email == "" || in.Password == "" {
		return nil, &LoginError{Message: "Email and password are required", Err: ErrInvalidInput}
	}

	res, err := request[AuthResult](withoutCredential(ctx), c, http.MethodPost, "/auth/login", nil, in)
	if err != nil {
		return nil, loginError(err, "Login failed")
	}
	if res.Credential == "" {
		return nil, &LoginError{Message: "Login failed", Err: fmt.Errorf("%w: response has no token", ErrServer)}
	}
	return &res, nil
}

// Register creates an account and returns its first credential. The alias
// defaults to the name. Every failure is a *LoginError.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.PublicProfile.Alias = strings.TrimSpace(in.PublicProfile.Alias)

	switch {
	case in.Name == "" || in.Email == "" || in.Password == "":
		return nil, &LoginError{Message: "Name, email and password are required", Err: ErrInvalidInput}
	case in.Password != in.ConfirmPassword:
		return nil, &LoginError{Message: "Passwords do not match", Err: ErrInvalidInput}
	}
	if in.PublicProfile.Alias == "" {
		in.PublicProfile.Alias = in.Name
	}

	res, err := request[AuthResult](withoutCredential(ctx), c, http.MethodPost, "/auth/register", nil, in)
	if err != nil {
		return nil, loginError(err, "Registration failed")
	}
	if res.Credential == "" {
		return nil, &LoginError{Message: "Registration failed", Err: fmt.Errorf("%w: response has no token", ErrServer)}
	}
	return &res, nil
}

func loginError(err error, fallback string) error {
	msg := fallback
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return &LoginError{Message: msg, Err: err}
}
