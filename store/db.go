// Package store provides a generic key-value storage abstraction and a
// ClockStore built on it for persisting packed clock and vector-clock
// blobs keyed by uuid. It is the byte-oriented I/O boundary the clocks
// themselves never need to know about directly — a HashClock or
// PointClock only ever produces Pack() bytes; what becomes of those
// bytes is this package's concern.
package store

import "errors"

// ErrNotFound is returned by Get when key does not exist.
var ErrNotFound = errors.New("store: not found")

// Batch is an atomic write buffer. All operations are applied together
// via Write() or discarded together on error, preventing partial commits.
type Batch interface {
	Set(key, value []byte)
	Delete(key []byte)
	Write() error
	Reset()
}

// DB is the generic key-value store interface.
type DB interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	NewIterator(prefix []byte) Iterator
	NewBatch() Batch
	Close() error
}

// Iterator walks key-value pairs matching a prefix.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// ClockStore persists packed clock or vector-clock blobs keyed by the
// hex encoding of their uuid, on top of any DB implementation.
type ClockStore struct {
	db DB
}

// NewClockStore wraps db as a ClockStore.
func NewClockStore(db DB) *ClockStore {
	return &ClockStore{db: db}
}

// PutPacked stores packed under uuidHex, overwriting any existing entry.
func (s *ClockStore) PutPacked(uuidHex string, packed []byte) error {
	return s.db.Set(clockKey(uuidHex), packed)
}

// GetPacked retrieves the packed blob stored under uuidHex, or
// ErrNotFound if nothing was ever stored there.
func (s *ClockStore) GetPacked(uuidHex string) ([]byte, error) {
	return s.db.Get(clockKey(uuidHex))
}

// DeletePacked removes the entry stored under uuidHex, if any.
func (s *ClockStore) DeletePacked(uuidHex string) error {
	return s.db.Delete(clockKey(uuidHex))
}

func clockKey(uuidHex string) []byte {
	return append([]byte("clock:"), uuidHex...)
}
