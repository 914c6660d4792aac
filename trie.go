package triedb

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/v2"
)

// Trie is a namespaced view over a shared database. Every key it is given
// is stored as EncodeNamespace(namespace) followed by the key bytes, and
// every operation maps to a single database call.
//
// A Trie adds no locking of its own: concurrent calls are as safe as the
// underlying database makes them, and concurrent inserts of the same key
// resolve as last writer wins.
type Trie struct {
	shared    *Shared
	db        Database
	namespace string
	prefix    []byte
	logger    Logger
	closed    atomic.Bool
}

// New returns a Trie over shared for namespace. Only one live Trie may hold
// a namespace on a given Shared. No I/O takes place.
func New(shared *Shared, namespace string) (*Trie, error) {
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}
	if err := shared.acquire(namespace); err != nil {
		return nil, err
	}
	return &Trie{
		shared:    shared,
		db:        shared.db,
		namespace: namespace,
		prefix:    EncodeNamespace(namespace),
		logger:    shared.logger,
	}, nil
}

// Namespace returns the namespace the trie was created with.
func (t *Trie) Namespace() string { return t.namespace }

// Prefix returns the encoded namespace every stored key starts with.
func (t *Trie) Prefix() []byte { return slices.Clone(t.prefix) }

// Insert stores value under key, replacing any previous value. The write is
// durable when Insert returns only if the database writes synchronously;
// otherwise call Flush.
func (t *Trie) Insert(key Key, value []byte) error {
	if t.closed.Load() {
		return ErrClosed
	}
	if err := t.db.Put(StoredKey(t.prefix, key), value); err != nil {
		return t.storeError("insert", err)
	}
	return nil
}

// Get returns the value stored under key. A missing key is reported with
// ok == false and a nil error.
func (t *Trie) Get(key Key) (value []byte, ok bool, err error) {
	if t.closed.Load() {
		return nil, false, ErrClosed
	}
	value, err = t.db.Get(StoredKey(t.prefix, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, t.storeError("get", err)
	}
	return value, true, nil
}

// Has reports whether key has a value, without copying it out.
func (t *Trie) Has(key Key) (bool, error) {
	if t.closed.Load() {
		return false, ErrClosed
	}
	ok, err := t.db.Has(StoredKey(t.prefix, key))
	if err != nil {
		return false, t.storeError("has", err)
	}
	return ok, nil
}

// GetAs fetches key and converts its value with decode. Decoding failures
// come back as they are returned by decode; the Decode functions in this
// package return *DecodeError.
func GetAs[T any](t *Trie, key Key, decode func([]byte) (T, error)) (v T, ok bool, err error) {
	raw, ok, err := t.Get(key)
	if err != nil || !ok {
		return v, ok, err
	}
	v, err = decode(raw)
	return v, true, err
}

// GetString returns the value under key as UTF-8 text.
func (t *Trie) GetString(key Key) (string, bool, error) {
	return GetAs(t, key, DecodeString)
}

// GetUint64 returns the value under key as an 8-byte big-endian uint64.
func (t *Trie) GetUint64(key Key) (uint64, bool, error) {
	return GetAs(t, key, DecodeUint64)
}

// GetInt64 returns the value under key as an 8-byte big-endian int64.
func (t *Trie) GetInt64(key Key) (int64, bool, error) {
	return GetAs(t, key, DecodeInt64)
}

// GetFloat64 returns the value under key as 8 big-endian bytes of IEEE 754 bits.
func (t *Trie) GetFloat64(key Key) (float64, bool, error) {
	return GetAs(t, key, DecodeFloat64)
}

// GetBool returns the value under key as a single 0 or 1 byte.
func (t *Trie) GetBool(key Key) (bool, bool, error) {
	return GetAs(t, key, DecodeBool)
}

// Flush makes every write issued so far durable. It is a no-op when the
// database already writes synchronously.
func (t *Trie) Flush() error {
	if t.closed.Load() {
		return ErrClosed
	}
	if err := t.db.SyncKeyValue(); err != nil {
		return t.storeError("flush", err)
	}
	return nil
}

// Compact compacts the key range owned by the trie's namespace.
func (t *Trie) Compact(ctx context.Context) error {
	if t.closed.Load() {
		return ErrClosed
	}
	if err := t.db.Compact(ctx, t.Prefix(), UpperBound(t.prefix)); err != nil {
		return t.storeError("compact", err)
	}
	return nil
}

// Close releases the namespace and the trie's reference on the shared
// owner. It does not flush.
func (t *Trie) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	return t.shared.releaseNamespace(t.namespace)
}

func (t *Trie) storeError(op string, err error) error {
	t.logger.Error("trie operation failed", "namespace", t.namespace, "op", op, "err", err)
	return &StoreError{Op: op, Namespace: t.namespace, Err: err}
}

// NewBatch creates a batch of inserts committed together by Write.
func (t *Trie) NewBatch() *InsertBatch {
	return &InsertBatch{trie: t, batch: t.db.NewBatch()}
}

// NewBatchFrom returns a view of batch that inserts into this trie. Views
// of one batch over several tries commit atomically when the batch is
// written.
func (t *Trie) NewBatchFrom(batch Batch) *InsertBatch {
	return &InsertBatch{trie: t, batch: batch}
}

// InsertBatch buffers inserts for one trie. It is safe for concurrent use.
type InsertBatch struct {
	trie  *Trie
	batch Batch

	lock sync.RWMutex
}

// Insert queues value under key.
func (b *InsertBatch) Insert(key Key, value []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.trie.closed.Load() {
		return ErrClosed
	}
	return b.batch.Put(StoredKey(b.trie.prefix, key), value)
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *InsertBatch) ValueSize() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.batch.ValueSize()
}

// Write commits the queued inserts.
func (b *InsertBatch) Write() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.trie.closed.Load() {
		return ErrClosed
	}
	if err := b.batch.Write(); err != nil {
		return b.trie.storeError("write", err)
	}
	return nil
}

// Reset resets the batch for reuse.
func (b *InsertBatch) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.batch.Reset()
}

// Close closes the batch and releases any resources it holds.
func (b *InsertBatch) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.batch.Close()
}
