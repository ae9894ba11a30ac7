package credential

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// fileDocument is the on-disk layout of FileStore.
type fileDocument struct {
	Token   string    `yaml:"token"`
	SavedAt time.Time `yaml:"saved_at"`
}

// FileStore implements Store with a YAML file replaced atomically on every write.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore creates a store backed by the file at path.
// The file and its directory are created on the first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		now:  time.Now,
	}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Join(ErrStoreUnavailable, err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		// An unreadable document holds no usable credential.
		return "", ErrNotFound
	}
	if doc.Token == "" {
		return "", ErrNotFound
	}
	return doc.Token, nil
}

func (s *FileStore) Set(_ context.Context, credential string) error {
	if credential == "" {
		return ErrEmptyCredential
	}

	data, err := yaml.Marshal(fileDocument{Token: credential, SavedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal credential document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	pending, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o600))
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
