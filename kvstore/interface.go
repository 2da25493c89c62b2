// Package kvstore holds the durable string key-value stores that
// persisted values are mirrored into.
package kvstore

// Store is a string-keyed store of textual values.
// Get reports found=false for a missing key; Delete of a missing key is a no-op.
type Store interface {
	Get(key string) (value string, found bool, err error)
	Set(key string, value string) error
	Delete(key string) error
}
