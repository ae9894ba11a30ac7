package testapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/focusforge/pkg/apiclient"
	"github.com/dmitrymomot/focusforge/pkg/requestid"
)

// Server is a fake FocusForge API backed by memory.
type Server struct {
	srv    *httptest.Server
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	cost   int

	mu         sync.Mutex
	accounts   map[string]*account // by email
	revoked    map[string]bool
	tasks      map[string][]apiclient.Task    // by user id
	logs       map[string][]apiclient.TaskLog // by user id
	failures   map[string][]int               // path -> queued statuses
	latency    time.Duration
	calls      map[string]int
	requestIDs []string
}

type account struct {
	user apiclient.User
	hash []byte
}

// Option configures a Server.
type Option func(*Server)

// WithTokenTTL sets the lifetime of issued credentials. Default 1h.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) { s.ttl = ttl }
}

// WithClock sets the time source used for issuing credentials.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New starts a server. Close it when done.
func New(opts ...Option) *Server {
	s := &Server{
		secret:   []byte("testapi-signing-key"),
		ttl:      time.Hour,
		now:      time.Now,
		cost:     bcrypt.MinCost,
		accounts: make(map[string]*account),
		revoked:  make(map[string]bool),
		tasks:    make(map[string][]apiclient.Task),
		logs:     make(map[string][]apiclient.TaskLog),
		failures: make(map[string][]int),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = httptest.NewServer(s.routes())
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// URL returns the API base URL, e.g. "http://127.0.0.1:1234/api".
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// Config returns a client configuration pointing at the server.
func (s *Server) Config() apiclient.Config {
	return apiclient.Config{BaseURL: s.URL(), Timeout: 5 * time.Second}
}

// AddUser registers an account directly and returns its profile.
func (s *Server) AddUser(name, email, password string) apiclient.User {
	u, err := s.createAccount(name, email, password, apiclient.PublicProfile{Alias: name, ShowOnLeaderboard: true})
	if err != nil {
		panic(err)
	}
	return u
}

// Issue signs a credential for userID that expires after ttl.
func (s *Server) Issue(userID string, ttl time.Duration) string {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// Revoke makes every later request with credential fail with 401.
func (s *Server) Revoke(credential string) {
	s.mu.Lock()
	s.revoked[credential] = true
	s.mu.Unlock()
}

// FailNext answers the next len(statuses) requests to path (e.g. "/auth/me")
// with the given statuses, in order.
func (s *Server) FailNext(path string, statuses ...int) {
	s.mu.Lock()
	s.failures[path] = append(s.failures[path], statuses...)
	s.mu.Unlock()
}

// SetLatency delays every response by d.
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	s.latency = d
	s.mu.Unlock()
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// RequestIDs returns the X-Request-ID of every request seen so far.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(s.record)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/auth/me", s.handleMe)

			r.Get("/tasks", s.handleTasks)
			r.Post("/tasks", s.handleCreateTask)
			r.Get("/tasks/logs", s.handleTaskLogs)
			r.Get("/tasks/{id}", s.handleTask)
			r.Put("/tasks/{id}", s.handleUpdateTask)
			r.Post("/tasks/{id}/complete", s.handleLog("completed"))
			r.Post("/tasks/{id}/recover", s.handleLog("recovered"))
			r.Patch("/tasks/{id}/archive", s.handleArchive)

			r.Get("/streaks", s.handleStreaks)
			r.Get("/streaks/task/{id}", s.handleTaskStreak)
			r.Post("/streaks/update", s.handleUpdateStreak)
			r.Get("/reports/stats", s.handleStats)
			r.Get("/reports/heatmap", s.handleHeatmap)
			r.Get("/reports/monthly", s.handleMonthly)
			r.Get("/leaderboard/public", s.handleLeaderboard)
			r.Get("/leaderboard/my-position", s.handleMyPosition)
		})
	})
	return r
}

// record counts calls, applies latency and serves queued failures.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")

		s.mu.Lock()
		s.calls[path]++
		s.requestIDs = append(s.requestIDs, requestid.FromContext(r.Context()))
		latency := s.latency
		status := 0
		if q := s.failures[path]; len(q) > 0 {
			status, s.failures[path] = q[0], q[1:]
		}
		s.mu.Unlock()

		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userIDKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		var claims jwt.RegisteredClaims
		_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		s.mu.Lock()
		revoked := s.revoked[raw]
		s.mu.Unlock()
		if revoked {
			writeError(w, http.StatusUnauthorized, "Not authorized, token revoked")
			return
		}

		ctx := r.Context()
		next.ServeHTTP(w, r.WithContext(contextWithUserID(ctx, claims.Subject)))
	})
}

var errDuplicateEmail = errors.New("User already exists")

func (s *Server) createAccount(name, email, password string, profile apiclient.PublicProfile) (apiclient.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return apiclient.User{}, err
	}

	email = apiclient.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[email]; ok {
		return apiclient.User{}, errDuplicateEmail
	}
	u := apiclient.User{ID: uuid.NewString(), Name: name, Email: email, PublicProfile: profile}
	s.accounts[email] = &account{user: u, hash: hash}
	return u, nil
}

func (s *Server) userByID(id string) (apiclient.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.user.ID == id {
			return a.user, true
		}
	}
	return apiclient.User{}, false
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 400, "data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message})
}
