package apiclient

import "time"

// Config holds API client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:5000/api".
	BaseURL string `env:"FOCUSFORGE_API_BASE_URL" envDefault:"http://localhost:5000/api"`

	// Timeout bounds a single request.
	Timeout time.Duration `env:"FOCUSFORGE_API_TIMEOUT" envDefault:"15s"`
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:5000/api",
		Timeout: 15 * time.Second,
	}
}
