// Package securestore provides the scoped, encrypted-at-rest key-value store
// that backs persisted authorization state: pending PKCE material and
// per-user token records. Values are opaque strings; callers own the key
// naming scheme.
package securestore

// Store is the secure persistent key-value facility. Implementations must
// treat each operation as a point-in-time atomic single-key access; no
// multi-key transaction guarantee is offered or required.
type Store interface {
	// Get returns the value for key. The second return is false when the
	// key is absent.
	Get(key string) (string, bool, error)
	// Set persists value under key, overwriting any prior value.
	Set(key, value string) error
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key string) error
}
