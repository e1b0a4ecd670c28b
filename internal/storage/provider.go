// Package storage defines the settings-style key-value area that persisted
// state is written to.
package storage

// Provider is the persistence port for opaque values stored under string keys.
type Provider interface {
	// Get returns the value stored under key, or apperr.ErrNotFound.
	Get(key string) ([]byte, error)
	// Set durably stores value under key, replacing any previous value.
	Set(key string, value []byte) error
}

// Verify implementations satisfy Provider at compile time.
var (
	_ Provider = (*FS)(nil)
	_ Provider = (*SQLite)(nil)
	_ Provider = (*Memory)(nil)
)
