package triedb

import (
	"context"
	"io"
	"time"

	"github.com/cockroachdb/pebble/v2"
)

// KeyValueReader wraps the Has and Get method of a backing data store.
type KeyValueReader interface {
	// Has retrieves if a key is present in the key-value data store.
	Has(key []byte) (bool, error)

	// Get retrieves the given key if it's present in the key-value data store.
	// A missing key yields pebble.ErrNotFound.
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the Put method of a backing data store.
type KeyValueWriter interface {
	// Put inserts the given value into the key-value data store.
	Put(key []byte, value []byte) error
}

// KeyValueStater wraps the Stat method of a backing data store.
type KeyValueStater interface {
	// Stat returns the statistic data of the database.
	Stat() (string, error)

	// Stats returns the event counters gathered since the database was opened.
	Stats() Stats
}

// KeyValueSyncer wraps the SyncKeyValue method of a backing data store.
type KeyValueSyncer interface {
	// SyncKeyValue ensures that all pending writes are flushed to disk,
	// guaranteeing data durability up to the point.
	SyncKeyValue() error
}

// Compacter wraps the Compact method of a backing data store.
type Compacter interface {
	// Compact flattens the underlying data store for the given key range. In essence,
	// overwritten versions are discarded, and the data is rearranged to
	// reduce the cost of operations needed to access them.
	//
	// A nil start is treated as a key before all keys in the data store; a nil limit
	// is treated as a key after all keys in the data store. If both is nil then it
	// will compact entire data store.
	Compact(ctx context.Context, start []byte, limit []byte) error
}

// Batch is a write-only database that commits changes to its host database
// when Write is called. A batch can be used concurrently.
type Batch interface {
	KeyValueWriter

	// ValueSize retrieves the amount of data queued up for writing.
	ValueSize() int

	// Write flushes any accumulated data to disk.
	Write() error

	// Reset resets the batch for reuse.
	Reset()

	// Close releases the batch. It is safe to call more than once.
	Close() error
}

// Batcher wraps the NewBatch methods of a backing data store.
type Batcher interface {
	// NewBatch creates a write-only database that buffers changes to its host db
	// until a final write is called.
	NewBatch() Batch

	// NewBatchWithSize creates a write-only database batch with pre-allocated buffer.
	NewBatchWithSize(size int) Batch
}

// Database is the store handle tries are built on: ordered, durable,
// byte-keyed, with explicit sync control.
type Database interface {
	KeyValueReader
	KeyValueWriter
	KeyValueStater
	KeyValueSyncer
	Batcher
	Compacter
	io.Closer
	Path() string
	Pebble() *pebble.DB
}

// Stats is a snapshot of the pebble event counters kept by the database.
type Stats struct {
	Level0Compactions    uint32
	NonLevel0Compactions uint32
	CompactionTime       time.Duration
	WriteStalls          int64
	WriteStallTime       time.Duration
	WriteStalled         bool
}

// NewDatabase creates a new database instance.
//
// The database is created using the pebble storage engine.
//
// The database is created with the given directory name and options.
func NewDatabase(dirname string, opts ...Option) (Database, error) {
	return newPebbleDB(dirname, opts...)
}
