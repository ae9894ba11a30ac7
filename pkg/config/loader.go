package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option tunes a single Load call.
type Option func(*options)

type options struct {
	files    []string
	prefix   string
	required bool
}

// WithEnvFiles loads the given .env files before parsing. Files listed first
// take precedence; variables already present in the process environment are
// never overwritten.
func WithEnvFiles(paths ...string) Option {
	return func(o *options) {
		o.files = append(o.files, paths...)
	}
}

// WithPrefix prepends prefix to every env tag of the target struct.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithRequiredFiles makes a missing file passed through WithEnvFiles an error.
// By default missing files are skipped.
func WithRequiredFiles() Option {
	return func(o *options) {
		o.required = true
	}
}

// Load populates v from the process environment, optionally seeded from
// .env files. Field defaults come from envDefault tags.
//
//	var cfg apiclient.Config
//	if err := config.Load(&cfg, config.WithEnvFiles(".env")); err != nil {
//		return err
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if err := loadFiles(o.files, o.required); err != nil {
		return err
	}

	if err := env.ParseWithOptions(v, env.Options{Prefix: o.prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics on failure.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// LoadEnv loads .env files into the process environment. With no paths it
// loads ".env" from the working directory if present.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		return loadFiles([]string{".env"}, false)
	}
	return loadFiles(paths, true)
}

func loadFiles(paths []string, required bool) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if !required && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return errors.Join(ErrLoadingEnvFile, fmt.Errorf("%s: %w", p, err))
		}
	}
	return nil
}
