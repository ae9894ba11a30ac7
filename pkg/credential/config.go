package credential

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
)

// Config selects and configures the credential store backend.
type Config struct {
	Backend string `env:"FOCUSFORGE_CREDENTIAL_STORE" envDefault:"file"`

	// Path is used by the file and bolt backends; empty means the user config dir.
	Path string `env:"FOCUSFORGE_CREDENTIAL_PATH"`

	Redis RedisConfig
}

// RedisConfig holds the Redis backend settings.
type RedisConfig struct {
	ConnectionURL  string        `env:"FOCUSFORGE_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Key            string        `env:"FOCUSFORGE_REDIS_KEY" envDefault:"focusforge:token"`
	RetryAttempts  int           `env:"FOCUSFORGE_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"FOCUSFORGE_REDIS_RETRY_INTERVAL" envDefault:"1s"`
	ConnectTimeout time.Duration `env:"FOCUSFORGE_REDIS_CONNECT_TIMEOUT" envDefault:"10s"`
}

// Open builds the configured Store. The returned closer releases backend
// resources and is never nil.
func Open(ctx context.Context, cfg Config) (Store, io.Closer, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(), nopCloser{}, nil
	case BackendFile, "":
		path, err := defaultPath(cfg.Path, "credential.yaml")
		if err != nil {
			return nil, nil, err
		}
		return NewFileStore(path), nopCloser{}, nil
	case BackendBolt:
		path, err := defaultPath(cfg.Path, "credential.db")
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, err
		}
		store, err := OpenBoltStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case BackendRedis:
		client, err := ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client, cfg.Redis.Key), client, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func defaultPath(path, name string) (string, error) {
	if path != "" {
		return path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(dir, "focusforge", name), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
