package triedb

import "encoding/binary"

// Key is anything that can be turned into a trie key. Two keys address the
// same entry exactly when their bytes are equal, whatever their Go types.
type Key interface {
	Bytes() []byte
}

// RawKey uses the bytes as they are.
type RawKey []byte

func (k RawKey) Bytes() []byte { return k }

// StringKey uses the string's bytes without any normalization.
type StringKey string

func (k StringKey) Bytes() []byte { return []byte(k) }

// Uint64Key is encoded as 8 big-endian bytes.
type Uint64Key uint64

func (k Uint64Key) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(k))
}

// Uint32Key is encoded as 4 big-endian bytes.
type Uint32Key uint32

func (k Uint32Key) Bytes() []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(k))
}

// Int64Key is encoded as 8 big-endian bytes with the sign bit flipped, so
// negative keys sort before positive ones in the store.
type Int64Key int64

func (k Int64Key) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(k)^(1<<63))
}

// EncodeNamespace returns the stored-key prefix of a namespace: the uvarint
// length of the name followed by the name. Uvarints are self-delimiting, so
// no namespace's prefix is a prefix of another's.
func EncodeNamespace(namespace string) []byte {
	prefix := binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64+len(namespace)), uint64(len(namespace)))
	return append(prefix, namespace...)
}

// StoredKey returns the physical key for key under an encoded namespace
// prefix. The prefix is never aliased by the result.
func StoredKey(prefix []byte, key Key) []byte {
	k := key.Bytes()
	stored := make([]byte, 0, len(prefix)+len(k))
	stored = append(stored, prefix...)
	return append(stored, k...)
}
