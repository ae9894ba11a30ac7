package cli

import (
	"github.com/dmitrymomot/focusforge/pkg/apiclient"
	"github.com/dmitrymomot/focusforge/pkg/authsession"
	"github.com/dmitrymomot/focusforge/pkg/config"
	"github.com/dmitrymomot/focusforge/pkg/credential"
)

// Config is everything the focusforge command reads from the environment.
type Config struct {
	Env      string `env:"FOCUSFORGE_ENV" envDefault:"development"`
	LogLevel string `env:"FOCUSFORGE_LOG_LEVEL" envDefault:"warn"`

	API        apiclient.Config
	Credential credential.Config
	Session    authsession.Config
}

// LoadConfig reads Config from the environment and optional .env files.
func LoadConfig(envFiles ...string) (Config, error) {
	var cfg Config
	if err := config.Load(&cfg, config.WithEnvFiles(envFiles...)); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
