// Package triedb provides a persistent, namespaced trie keyed by arbitrary
// byte sequences, stored in Pebble DB (CockroachDB's LSM-based storage
// engine).
//
// # Overview
//
// Several tries share one database. Each trie owns a namespace, and every
// key it is given is stored as
//
//	uvarint(len(namespace)) ++ namespace ++ key
//
// The length prefix makes namespace prefixes prefix-free: the trie "a" can
// never observe a key written by the trie "ab", whatever the key bytes are.
//
// # Quick Start
//
//	shared, err := triedb.Open("./data")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer shared.Close()
//
//	items, err := triedb.New(shared, "items")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer items.Close()
//
//	items.Insert(triedb.StringKey("Item 1"), []byte("42"))
//	val, ok, err := items.Get(triedb.StringKey("Item 1"))   // "42", true, nil
//	_, ok, err = items.Get(triedb.StringKey("Item 3"))      // nil, false, nil
//
// # Keys
//
// Any type with a Bytes() []byte method is a Key. The package provides
// StringKey, RawKey, Uint64Key, Uint32Key and Int64Key. Identity is byte
// equality: StringKey("a") and RawKey("a") name the same entry.
//
// # Values
//
// Values are opaque bytes. GetString, GetUint64, GetInt64, GetFloat64,
// GetBool and the generic GetAs decode them on the way out; a value that
// does not fit the requested shape yields a *DecodeError, which is distinct
// from a missing key (ok == false, nil error).
//
// # Shared Ownership
//
// A Shared wraps the database with a reference count. The creator holds one
// reference, every live Trie holds one, and the database is closed when the
// last of them is released:
//
//	shared := triedb.NewShared(db, slog.Default())
//	a, _ := triedb.New(shared, "a")
//	b, _ := triedb.New(shared, "b")
//	shared.Close() // database stays open for a and b
//	a.Close()
//	b.Close()      // database closed here
//
// Only one live trie may hold a given namespace on a Shared; New returns
// ErrNamespaceInUse otherwise.
//
// # Durability
//
// By default every insert is written synchronously and Flush does nothing.
// With WithNoSync(true) inserts return once buffered, and Flush syncs the
// write-ahead log:
//
//	shared, _ := triedb.Open("./data", triedb.WithNoSync(true))
//	t, _ := triedb.New(shared, "items")
//	t.Insert(triedb.StringKey("k"), []byte("v"))
//	if err := t.Flush(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Batches
//
// Inserts can be buffered and committed together. Views of one store batch
// over several tries commit atomically:
//
//	b := shared.Database().NewBatch()
//	defer b.Close()
//	users.NewBatchFrom(b).Insert(triedb.StringKey("alice"), []byte("1"))
//	roles.NewBatchFrom(b).Insert(triedb.StringKey("alice"), []byte("admin"))
//	err := b.Write()
//
// # Configuration Options
//
//	shared, err := triedb.Open("./data",
//	    triedb.WithCache(256),        // 256 MB cache
//	    triedb.WithHandles(512),      // Max 512 open files
//	    triedb.WithNoSync(true),      // Async writes, Flush for durability
//	    triedb.WithLogger(logger),    // Any *slog.Logger
//	)
//
// The same settings can come from YAML through LoadConfig and OpenConfig.
//
// # Thread Safety
//
// Trie operations are as safe for concurrent use as the database: single
// calls are safe, nothing is atomic across keys, and concurrent inserts of
// one key resolve as last writer wins. Batches lock internally.
//
// # Error Handling
//
//   - *StoreError: a put, get or sync failed in the store; unwraps to the
//     store error (e.g. pebble.ErrClosed)
//   - *DecodeError: a typed accessor could not interpret the value
//   - ErrEmptyNamespace, ErrNamespaceInUse: rejected by New
//   - ErrClosed: the trie or its Shared has been closed
//
// No operation is retried.
package triedb
