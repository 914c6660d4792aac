package triedb_test

import (
	"context"
	"os"
	"testing"

	"github.com/cockroachdb/pebble/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sxwebdev/triedb"
)

func newTestTrie(t *testing.T, shared *triedb.Shared, namespace string) *triedb.Trie {
	t.Helper()
	trie, err := triedb.New(shared, namespace)
	require.NoError(t, err)
	t.Cleanup(func() { _ = trie.Close() })
	return trie
}

func TestTrie_Items(t *testing.T) {
	instance := newTestDB(t)
	trie := newTestTrie(t, instance.shared, "items")

	require.NoError(t, trie.Insert(triedb.StringKey("Item 1"), []byte("42")))
	require.NoError(t, trie.Insert(triedb.StringKey("Item 2"), []byte("43")))

	// Get existing item
	got, ok, err := trie.Get(triedb.StringKey("Item 1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("42"), got)

	// Get item that does not exist
	got, ok, err = trie.Get(triedb.StringKey("Item 3"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestTrie_RoundTrip(t *testing.T) {
	instance := newTestDB(t)
	trie := newTestTrie(t, instance.shared, "roundtrip")

	cases := []struct {
		name  string
		key   triedb.Key
		value []byte
	}{
		{"empty key", triedb.RawKey(nil), []byte("root")},
		{"empty value", triedb.StringKey("empty"), []byte{}},
		{"zero bytes", triedb.RawKey{0x00, 0x00}, []byte{0x00}},
		{"high bytes", triedb.RawKey{0xFF, 0xFE, 0xFD}, []byte{0xFF}},
		{"unicode", triedb.StringKey("ключ"), []byte("значение")},
		{"long", triedb.RawKey(make([]byte, 4096)), make([]byte, 1<<16)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, trie.Insert(tc.key, tc.value))

			got, ok, err := trie.Get(tc.key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tc.value, got)

			exists, err := trie.Has(tc.key)
			require.NoError(t, err)
			assert.True(t, exists)
		})
	}
}

func TestTrie_EmptyValueIsPresent(t *testing.T) {
	instance := newTestDB(t)
	trie := newTestTrie(t, instance.shared, "empty")

	require.NoError(t, trie.Insert(triedb.StringKey("k"), nil))

	got, ok, err := trie.Get(triedb.StringKey("k"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestTrie_Overwrite(t *testing.T) {
	instance := newTestDB(t)
	trie := newTestTrie(t, instance.shared, "overwrite")

	key := triedb.StringKey("k")
	require.NoError(t, trie.Insert(key, []byte("v1")))
	require.NoError(t, trie.Insert(key, []byte("v2")))

	got, ok, err := trie.Get(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v2"), got)
}

func TestTrie_Absent(t *testing.T) {
	instance := newTestDB(t)
	trie := newTestTrie(t, instance.shared, "absent")

	got, ok, err := trie.Get(triedb.Uint64Key(7))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)

	exists, err := trie.Has(triedb.Uint64Key(7))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTrie_NamespaceIsolation(t *testing.T) {
	instance := newTestDB(t)

	pairs := [][2]string{
		{"a", "b"},
		// one namespace is a byte prefix of the other
		{"a", "ab"},
		{"items", "items2"},
	}

	for _, pair := range pairs {
		t.Run(pair[0]+"/"+pair[1], func(t *testing.T) {
			a, err := triedb.New(instance.shared, pair[0])
			require.NoError(t, err)
			defer a.Close()

			b, err := triedb.New(instance.shared, pair[1])
			require.NoError(t, err)
			defer b.Close()

			key := triedb.StringKey("shared-key")
			require.NoError(t, a.Insert(key, []byte("from "+pair[0])))

			_, ok, err := b.Get(key)
			require.NoError(t, err)
			assert.False(t, ok)

			// With plain concatenation "a"+"bk" and "ab"+"k" would collide.
			require.NoError(t, a.Insert(triedb.StringKey("bk"), []byte("a-side")))
			_, ok, err = b.Get(triedb.StringKey("k"))
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Insert(key, []byte("from "+pair[1])))
			got, ok, err := a.Get(key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("from "+pair[0]), got)
		})
	}
}

func TestTrie_HeterogeneousKeys(t *testing.T) {
	instance := newTestDB(t)
	trie := newTestTrie(t, instance.shared, "mixed")

	keys := []triedb.Key{
		triedb.StringKey("42"),
		triedb.Uint64Key(42),
		triedb.Uint32Key(42),
		triedb.Int64Key(42),
		triedb.Int64Key(-42),
		triedb.RawKey{42},
	}

	for i, k := range keys {
		require.NoError(t, trie.Insert(k, []byte{byte(i)}))
	}

	for i, k := range keys {
		got, ok, err := trie.Get(k)
		require.NoError(t, err)
		require.True(t, ok, "key %d", i)
		assert.Equal(t, []byte{byte(i)}, got, "key %d", i)
	}
}

func TestTrie_IdenticalBytesAreOneEntry(t *testing.T) {
	instance := newTestDB(t)
	trie := newTestTrie(t, instance.shared, "identity")

	require.NoError(t, trie.Insert(triedb.StringKey("abc"), []byte("string")))
	require.NoError(t, trie.Insert(triedb.RawKey("abc"), []byte("raw")))

	got, _, err := trie.GetString(triedb.StringKey("abc"))
	require.NoError(t, err)
	assert.Equal(t, "raw", got)

	// no normalization
	_, ok, err := trie.Get(triedb.StringKey("ABC"))
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = trie.Get(triedb.StringKey(" abc"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrie_StoredKeyLayout(t *testing.T) {
	instance := newTestDB(t)
	trie := newTestTrie(t, instance.shared, "ns")

	require.NoError(t, trie.Insert(triedb.StringKey("k"), []byte("v")))
	assert.Equal(t, []byte{2, 'n', 's'}, trie.Prefix())

	raw, err := instance.shared.Database().Get([]byte{2, 'n', 's', 'k'})
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), raw)
}

func TestTrie_FlushDurability(t *testing.T) {
	path := testPath()
	defer os.RemoveAll(path)

	opts := []triedb.Option{triedb.WithLogger(triedb.NopLogger()), triedb.WithNoSync(true)}

	{
		shared, err := triedb.Open(path, opts...)
		require.NoError(t, err)
		trie, err := triedb.New(shared, "sometrie")
		require.NoError(t, err)

		require.NoError(t, trie.Insert(triedb.StringKey("Item 1"), []byte("42")))
		require.NoError(t, trie.Flush())

		require.NoError(t, trie.Close())
		require.NoError(t, shared.Close())
	}

	{
		shared, err := triedb.Open(path, opts...)
		require.NoError(t, err)
		defer shared.Close()
		trie, err := triedb.New(shared, "sometrie")
		require.NoError(t, err)
		defer trie.Close()

		got, ok, err := trie.GetString(triedb.StringKey("Item 1"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "42", got)

		_, ok, err = trie.Get(triedb.StringKey("Item 3"))
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestTrie_FlushSyncIsNoop(t *testing.T) {
	instance := newTestDB(t)
	trie := newTestTrie(t, instance.shared, "sync")

	require.NoError(t, trie.Insert(triedb.StringKey("k"), []byte("v")))
	assert.NoError(t, trie.Flush())
}

func TestTrie_TypedAccessors(t *testing.T) {
	instance := newTestDB(t)
	trie := newTestTrie(t, instance.shared, "typed")

	require.NoError(t, trie.Insert(triedb.StringKey("str"), []byte("hello")))
	require.NoError(t, trie.Insert(triedb.StringKey("u64"), triedb.EncodeUint64(1<<40)))
	require.NoError(t, trie.Insert(triedb.StringKey("i64"), triedb.EncodeInt64(-5)))
	require.NoError(t, trie.Insert(triedb.StringKey("f64"), triedb.EncodeFloat64(2.5)))
	require.NoError(t, trie.Insert(triedb.StringKey("bool"), triedb.EncodeBool(true)))
	require.NoError(t, trie.Insert(triedb.StringKey("bin"), []byte{0xff, 0xfe, 0xfd}))

	s, ok, err := trie.GetString(triedb.StringKey("str"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	u, _, err := trie.GetUint64(triedb.StringKey("u64"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), u)

	i, _, err := trie.GetInt64(triedb.StringKey("i64"))
	require.NoError(t, err)
	assert.Equal(t, int64(-5), i)

	f, _, err := trie.GetFloat64(triedb.StringKey("f64"))
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	b, _, err := trie.GetBool(triedb.StringKey("bool"))
	require.NoError(t, err)
	assert.True(t, b)

	n, ok, err := triedb.GetAs(trie, triedb.StringKey("str"), triedb.DecodeDecimal)
	assert.True(t, ok)
	assert.True(t, triedb.IsDecodeError(err))
	assert.Zero(t, n)

	// non-string bytes
	_, ok, err = trie.GetString(triedb.StringKey("bin"))
	assert.True(t, ok)
	assert.True(t, triedb.IsDecodeError(err))
	assert.False(t, triedb.IsStoreError(err))

	// wrong width
	_, ok, err = trie.GetUint64(triedb.StringKey("str"))
	assert.True(t, ok)
	var decodeErr *triedb.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "uint64", decodeErr.Type)
	assert.Equal(t, 5, decodeErr.Len)

	// absent is not a decode error
	_, ok, err = trie.GetString(triedb.StringKey("missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrie_Compact(t *testing.T) {
	instance := newTestDB(t)
	trie := newTestTrie(t, instance.shared, "compact")

	for i := 0; i < 100; i++ {
		require.NoError(t, trie.Insert(triedb.Uint64Key(i), triedb.EncodeUint64(uint64(i))))
	}
	require.NoError(t, trie.Compact(context.Background()))

	got, ok, err := trie.GetUint64(triedb.Uint64Key(99))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(99), got)
}

func TestTrie_CompactCanceled(t *testing.T) {
	instance := newTestDB(t)
	trie := newTestTrie(t, instance.shared, "compact")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := trie.Compact(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, triedb.IsStoreError(err))
}

func TestTrie_Closed(t *testing.T) {
	instance := newTestDB(t)

	trie, err := triedb.New(instance.shared, "closed")
	require.NoError(t, err)
	require.NoError(t, trie.Close())
	require.NoError(t, trie.Close())

	assert.ErrorIs(t, trie.Insert(triedb.StringKey("k"), nil), triedb.ErrClosed)
	_, _, err = trie.Get(triedb.StringKey("k"))
	assert.ErrorIs(t, err, triedb.ErrClosed)
	_, err = trie.Has(triedb.StringKey("k"))
	assert.ErrorIs(t, err, triedb.ErrClosed)
	assert.ErrorIs(t, trie.Flush(), triedb.ErrClosed)
	assert.ErrorIs(t, trie.Compact(context.Background()), triedb.ErrClosed)
}

func TestTrie_StoreErrorPropagates(t *testing.T) {
	path := testPath()
	defer os.RemoveAll(path)

	db, err := triedb.NewDatabase(path, triedb.WithLogger(triedb.NopLogger()))
	require.NoError(t, err)

	shared := triedb.NewShared(db, nil)
	defer shared.Close()
	trie, err := triedb.New(shared, "broken")
	require.NoError(t, err)
	defer trie.Close()

	// Close the store underneath the shared owner.
	require.NoError(t, db.Close())

	err = trie.Insert(triedb.StringKey("k"), []byte("v"))
	require.Error(t, err)
	assert.True(t, triedb.IsStoreError(err))
	assert.ErrorIs(t, err, pebble.ErrClosed)

	var storeErr *triedb.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "insert", storeErr.Op)
	assert.Equal(t, "broken", storeErr.Namespace)

	_, _, err = trie.Get(triedb.StringKey("k"))
	assert.True(t, triedb.IsStoreError(err))
	assert.ErrorIs(t, err, pebble.ErrClosed)
}
