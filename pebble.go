package triedb

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/v2"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to pebble
	// read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16
)

// pebbleDB is a persistent key-value store based on the pebble storage engine.
type pebbleDB struct {
	fn     string     // filename for reporting
	db     *pebble.DB // Underlying pebble storage engine
	logger Logger

	quitLock sync.RWMutex // Mutex protecting the closed flag
	closed   bool         // keep track of whether we're Closed

	compLock      sync.Mutex    // Guards activeComp and compStartTime
	activeComp    int           // Current number of active compactions
	compStartTime time.Time     // The start time of the earliest currently-active compaction
	compTime      atomic.Int64  // Total time spent in compaction in ns
	level0Comp    atomic.Uint32 // Total number of level-zero compactions
	nonLevel0Comp atomic.Uint32 // Total number of non level-zero compactions

	stallLock           sync.Mutex   // Guards writeDelayStartTime and writeDelayReason
	writeStalled        atomic.Bool  // Flag whether the write is stalled
	writeDelayStartTime time.Time    // The start time of the latest write stall
	writeDelayReason    string       // The reason of the latest write stall
	writeDelayCount     atomic.Int64 // Total number of write stall counts
	writeDelayTime      atomic.Int64 // Total time spent in write stalls

	readonly     bool
	writeOptions *pebble.WriteOptions
}

func (d *pebbleDB) onCompactionBegin(info pebble.CompactionInfo) {
	d.compLock.Lock()
	defer d.compLock.Unlock()

	if d.activeComp == 0 {
		d.compStartTime = time.Now()
	}
	level := -1
	if len(info.Input) > 0 {
		level = info.Input[0].Level
	}
	if level == 0 {
		d.level0Comp.Add(1)
	} else {
		d.nonLevel0Comp.Add(1)
	}
	d.activeComp++
	d.logger.Debug("compaction started", "db", d.fn, "level", level, "reason", info.Reason)
}

func (d *pebbleDB) onCompactionEnd(info pebble.CompactionInfo) {
	d.compLock.Lock()
	defer d.compLock.Unlock()

	switch d.activeComp {
	case 1:
		d.compTime.Add(int64(time.Since(d.compStartTime)))
	case 0:
		panic("should not happen")
	}
	d.activeComp--
	d.logger.Debug("compaction finished", "db", d.fn, "duration", info.TotalDuration)
}

func (d *pebbleDB) onWriteStallBegin(b pebble.WriteStallBeginInfo) {
	d.stallLock.Lock()
	defer d.stallLock.Unlock()

	d.writeDelayStartTime = time.Now()
	d.writeDelayCount.Add(1)
	d.writeStalled.Store(true)

	// Take just the first word of the reason. These are two potential
	// reasons for the write stall:
	// - memtable count limit reached
	// - L0 file count limit exceeded
	reason := b.Reason
	if i := strings.IndexByte(reason, ' '); i != -1 {
		reason = reason[:i]
	}
	if reason == "L0" || reason == "memtable" {
		d.writeDelayReason = reason
	}
	d.logger.Warn("write stall started", "db", d.fn, "reason", b.Reason)
}

func (d *pebbleDB) onWriteStallEnd() {
	d.stallLock.Lock()
	defer d.stallLock.Unlock()

	elapsed := time.Since(d.writeDelayStartTime)
	d.writeDelayTime.Add(int64(elapsed))
	d.writeStalled.Store(false)

	d.logger.Warn("write stall ended", "db", d.fn, "reason", d.writeDelayReason, "elapsed", elapsed)
	d.writeDelayReason = ""
	d.writeDelayStartTime = time.Time{}
}

// newPebbleDB returns a wrapped pebble DB object.
func newPebbleDB(dirname string, opts ...Option) (*pebbleDB, error) {
	o := &options{
		cache:        minCache,
		handles:      minHandles,
		readonly:     false,
		pebbleLevels: DefaultPebbleLevels,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	// Ensure we have some minimal caching and file guarantees
	if o.cache < minCache {
		o.cache = minCache
	}
	if o.handles < minHandles {
		o.handles = minHandles
	}

	// The max memtable size is limited by the uint32 offsets stored in
	// internal/arenaskl.node, DeferredBatchOp, and flushableBatchEntry.
	//
	// - MaxUint32 on 64-bit platforms;
	// - MaxInt on 32-bit platforms.
	//
	// Taken from https://github.com/cockroachdb/pebble/blob/master/internal/constants/constants.go
	maxMemTableSize := (1<<31)<<(^uint(0)>>63) - 1

	// Two memory tables is configured which is identical to leveldb,
	// including a frozen memory table and another live one.
	memTableLimit := 2
	memTableSize := o.cache * 1024 * 1024 / 2 / memTableLimit

	// The memory table size is currently capped at maxMemTableSize-1 due to a
	// known bug in the pebble where maxMemTableSize is not recognized as a
	// valid size.
	if memTableSize >= maxMemTableSize {
		memTableSize = maxMemTableSize - 1
	}
	db := &pebbleDB{
		fn:       dirname,
		logger:   o.logger,
		readonly: o.readonly,
	}

	if o.noSync {
		// Asynchronous writes return once the data is in the memtable and the
		// WAL buffer. Recent writes may be lost on a crash until SyncKeyValue
		// (Trie.Flush) is called.
		db.writeOptions = pebble.NoSync
	} else {
		db.writeOptions = pebble.Sync
	}

	cache := pebble.NewCache(int64(o.cache * 1024 * 1024))
	defer cache.Unref()

	opt := &pebble.Options{
		// Pebble has a single combined cache area and the write
		// buffers are taken from this too. Assign all available
		// memory allowance for cache.
		Cache:        cache,
		MaxOpenFiles: o.handles,

		// The size of memory table(as well as the write buffer).
		// Note, there may have more than two memory tables in the system.
		MemTableSize: uint64(memTableSize),

		// MemTableStopWritesThreshold places a hard limit on the size
		// of the existent MemTables(including the frozen one).
		// Note, this must be the number of tables not the size of all memtables
		// according to https://github.com/cockroachdb/pebble/blob/master/options.go#L738-L742
		// and to https://github.com/cockroachdb/pebble/blob/master/db.go#L1892-L1903.
		MemTableStopWritesThreshold: memTableLimit,

		// Per-level options. Options for at least one level must be specified. The
		// options for the last level are used for all subsequent levels.
		Levels:   o.pebbleLevels,
		ReadOnly: o.readonly,
		EventListener: &pebble.EventListener{
			CompactionBegin: db.onCompactionBegin,
			CompactionEnd:   db.onCompactionEnd,
			WriteStallBegin: db.onWriteStallBegin,
			WriteStallEnd:   db.onWriteStallEnd,
		},
		Logger: &pebbleLogger{l: o.logger, fn: dirname},

		WALBytesPerSync: o.walBytesPerSync,
	}
	// Disable seek compaction explicitly. Check https://github.com/ethereum/go-ethereum/pull/20130
	// for more details.
	opt.Experimental.ReadSamplingMultiplier = -1

	// Open the db and recover any potential corruptions
	innerDB, err := pebble.Open(dirname, opt)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble database at %s", dirname)
	}
	db.db = innerDB

	o.logger.Info("database opened", "db", dirname, "cache_mb", o.cache, "handles", o.handles,
		"readonly", o.readonly, "nosync", o.noSync)

	return db, nil
}

func (d *pebbleDB) Pebble() *pebble.DB { return d.db }

// Close flushes any pending data to disk and closes all io accesses to the
// underlying key-value store.
func (d *pebbleDB) Close() error {
	d.quitLock.Lock()
	defer d.quitLock.Unlock()
	// Allow double closing, simplifies things
	if d.closed {
		return nil
	}

	if !d.readonly {
		if err := d.db.Flush(); err != nil {
			return err
		}
	}

	d.closed = true
	d.logger.Info("database closed", "db", d.fn)

	return d.db.Close()
}

// Has retrieves if a key is present in the key-value store.
func (d *pebbleDB) Has(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, ErrEmptyKey
	}

	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return false, pebble.ErrClosed
	}
	_, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if err = closer.Close(); err != nil {
		return false, err
	}
	return true, nil
}

// Get retrieves the given key if it's present in the key-value store.
func (d *pebbleDB) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}

	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return nil, pebble.ErrClosed
	}
	dat, closer, err := d.db.Get(key)
	if err != nil {
		return nil, err
	}
	ret := make([]byte, len(dat))
	copy(ret, dat)
	if err = closer.Close(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Put inserts the given value into the key-value store.
func (d *pebbleDB) Put(key []byte, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return pebble.ErrClosed
	}
	return d.db.Set(key, value, d.writeOptions)
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (d *pebbleDB) NewBatch() Batch {
	return &batch{
		b:  d.db.NewBatch(),
		db: d,
	}
}

// NewBatchWithSize creates a write-only database batch with pre-allocated buffer.
func (d *pebbleDB) NewBatchWithSize(size int) Batch {
	return &batch{
		b:  d.db.NewBatchWithSize(size),
		db: d,
	}
}

// Stat returns the internal metrics of Pebble in a text format. It's a developer
// method to read everything there is to read, independent of Pebble version.
func (d *pebbleDB) Stat() (string, error) {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return "", pebble.ErrClosed
	}
	return d.db.Metrics().String(), nil
}

// Stats returns the compaction and write stall counters.
func (d *pebbleDB) Stats() Stats {
	return Stats{
		Level0Compactions:    d.level0Comp.Load(),
		NonLevel0Compactions: d.nonLevel0Comp.Load(),
		CompactionTime:       time.Duration(d.compTime.Load()),
		WriteStalls:          d.writeDelayCount.Load(),
		WriteStallTime:       time.Duration(d.writeDelayTime.Load()),
		WriteStalled:         d.writeStalled.Load(),
	}
}

// Compact flattens the underlying data store for the given key range.
//
// A nil start is treated as a key before all keys in the data store; a nil limit
// is treated as a key after all keys in the data store. If both is nil then it
// will compact entire data store. The context is checked before the compaction
// starts; a running compaction is not interrupted.
func (d *pebbleDB) Compact(ctx context.Context, start []byte, limit []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// There is no special flag to represent the end of key range
	// in pebble(nil in leveldb). Use an ugly hack to construct a
	// large key to represent it.
	// https://github.com/cockroachdb/pebble/issues/2359#issuecomment-1443995833
	if limit == nil {
		limit = bytes.Repeat([]byte{0xff}, 32)
	}

	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return pebble.ErrClosed
	}
	return d.db.Compact(start, limit, true) // Parallelization is preferred
}

// Path returns the path to the database directory.
func (d *pebbleDB) Path() string {
	return d.fn
}

// SyncKeyValue flushes all pending writes in the write-ahead-log to disk,
// ensuring data durability up to that point. With synchronous writes every
// write is already durable when it returns, so there is nothing to do.
func (d *pebbleDB) SyncKeyValue() error {
	if d.readonly || d.writeOptions.Sync {
		return nil
	}

	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return pebble.ErrClosed
	}

	// The entry (value=nil) is not written to the database; it is only
	// added to the WAL. Writing this special log entry in sync mode
	// automatically flushes all previous writes, ensuring database
	// durability up to this point.
	b := d.db.NewBatch()
	defer b.Close()
	if err := b.LogData(nil, nil); err != nil {
		return err
	}
	return d.db.Apply(b, pebble.Sync)
}

// batch is a write-only batch that commits changes to its host database
// when Write is called. This implementation is thread-safe.
type batch struct {
	b      *pebble.Batch
	db     *pebbleDB
	size   int
	lock   sync.RWMutex
	closed bool
}

// Put inserts the given value into the batch for later committing.
func (b *batch) Put(key, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	if b.closed {
		return ErrClosed
	}
	if err := b.b.Set(key, value, nil); err != nil {
		return err
	}
	b.size += len(key) + len(value)
	return nil
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *batch) ValueSize() int {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return b.size
}

// Write flushes any accumulated data to disk. The batch is emptied on success,
// so writing it again commits only what was put since.
func (b *batch) Write() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.closed {
		return ErrClosed
	}

	// Nothing queued since the last commit.
	if b.b.Empty() {
		return nil
	}

	b.db.quitLock.RLock()
	defer b.db.quitLock.RUnlock()
	if b.db.closed {
		return pebble.ErrClosed
	}
	if err := b.b.Commit(b.db.writeOptions); err != nil {
		return err
	}
	// A committed pebble batch cannot be committed again; reset it so the
	// batch can keep collecting writes.
	b.b.Reset()
	b.size = 0
	return nil
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.closed {
		return
	}
	b.b.Reset()
	b.size = 0
}

// Close closes the batch and releases any resources associated with it.
func (b *batch) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.b == nil || b.closed {
		return nil
	}

	if err := b.b.Close(); err != nil {
		return err
	}

	b.closed = true

	return nil
}
