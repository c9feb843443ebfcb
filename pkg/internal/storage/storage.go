package storage

import "errors"

// ErrNotFound is returned by Get when no record exists under the given key.
var ErrNotFound = errors.New("record not found")

// Store is the flat durable key/value abstraction shared by the pending
// operation queue, the real-time outbox and the snapshot records. Each caller
// owns a disjoint key namespace, so the store itself needs no cross-component
// coordination; individual writes must still be atomic.
type Store interface {
	Put(key string, data []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}
