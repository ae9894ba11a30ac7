package authsession

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager.
type Option func(*Manager)

// WithConfig applies interval and retry settings.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		if cfg.RevalidateInterval > 0 {
			m.interval = cfg.RevalidateInterval
		}
		m.retry = retryPolicy{
			retries:  max(cfg.ValidationRetries, 0),
			base:     cfg.RetryBase,
			maxDelay: cfg.RetryMax,
		}
	}
}

// WithRevalidateInterval overrides the local expiry check period.
func WithRevalidateInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithValidationRetry sets how transient validation failures are retried.
// Zero retries disables retrying.
func WithValidationRetry(retries int, base, maxDelay time.Duration) Option {
	return func(m *Manager) {
		m.retry = retryPolicy{retries: max(retries, 0), base: base, maxDelay: maxDelay}
	}
}

// WithValidator replaces the remote validator, which defaults to the API's Me.
func WithValidator(v Validator) Option {
	return func(m *Manager) {
		if v != nil {
			m.remote = v
		}
	}
}

func WithClock(c Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithMetrics registers session collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		if reg != nil {
			m.metrics = newMetrics(reg)
		}
	}
}
