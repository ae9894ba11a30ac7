package credential

import (
	"context"
)

// DefaultKey is the well-known key the credential is stored under.
const DefaultKey = "token"

// Store defines the interface for credential persistence
type Store interface {
	// Get returns the stored credential or ErrNotFound
	Get(ctx context.Context) (string, error)

	// Set replaces the stored credential
	Set(ctx context.Context, credential string) error

	// Clear removes the stored credential; clearing an absent one succeeds
	Clear(ctx context.Context) error
}
