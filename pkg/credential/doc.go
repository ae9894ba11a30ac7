// Package credential persists the single bearer credential of a client
// session.
//
// A Store is a plain persistence boundary: it never inspects the value it
// keeps. Absence is an expected state and is reported as ErrNotFound.
// Clearing an absent credential succeeds.
//
// Backends:
//
//   - MemoryStore keeps the credential for the life of the process.
//   - FileStore writes a small YAML document atomically (renameio).
//   - BoltStore keeps it in a bbolt database bucket.
//   - RedisStore keeps it under one Redis key.
//
// All backends store the credential under the well-known key DefaultKey
// and are safe for concurrent use.
package credential
