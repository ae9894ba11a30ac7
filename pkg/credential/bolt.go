package credential

import (
	"context"
	"errors"
	"time"

	"go.etcd.io/bbolt"
)

var boltBucket = []byte("credentials")

// BoltStore implements Store in a bbolt database.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens (or creates) the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(_ context.Context) (string, error) {
	var credential string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b == nil {
			return nil
		}
		// Value is only valid inside the transaction.
		credential = string(b.Get([]byte(DefaultKey)))
		return nil
	})
	if err != nil {
		return "", errors.Join(ErrStoreUnavailable, err)
	}
	if credential == "" {
		return "", ErrNotFound
	}
	return credential, nil
}

func (s *BoltStore) Set(_ context.Context, credential string) error {
	if credential == "" {
		return ErrEmptyCredential
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(DefaultKey), []byte(credential))
	})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *BoltStore) Clear(_ context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(DefaultKey))
	})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
