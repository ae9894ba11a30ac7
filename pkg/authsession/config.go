package authsession

import "time"

// Config holds session manager settings.
type Config struct {
	// RevalidateInterval is the period of the local expiry check.
	RevalidateInterval time.Duration `env:"FOCUSFORGE_REVALIDATE_INTERVAL" envDefault:"1m"`

	// ValidationRetries is how many times a transient validation failure is retried.
	ValidationRetries int `env:"FOCUSFORGE_VALIDATION_RETRIES" envDefault:"2"`

	// RetryBase is the first backoff delay; it doubles up to RetryMax.
	RetryBase time.Duration `env:"FOCUSFORGE_VALIDATION_RETRY_BASE" envDefault:"500ms"`
	RetryMax  time.Duration `env:"FOCUSFORGE_VALIDATION_RETRY_MAX" envDefault:"5s"`
}

// DefaultConfig returns the defaults used when no Config is supplied.
func DefaultConfig() Config {
	return Config{
		RevalidateInterval: DefaultRevalidateInterval,
		ValidationRetries:  2,
		RetryBase:          500 * time.Millisecond,
		RetryMax:           5 * time.Second,
	}
}
