package triedb

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrEmptyKey is returned by the database when a raw key of zero length
	// reaches it. Trie keys never produce one because the namespace prefix is
	// always present.
	ErrEmptyKey = errors.New("triedb: empty key")

	ErrEmptyNamespace  = errors.New("triedb: empty namespace")
	ErrNamespaceInUse  = errors.New("triedb: namespace already in use")
	ErrClosed          = errors.New("triedb: closed")
	ErrInvalidConfig   = errors.New("triedb: invalid config")
	errUnexpectedWidth = errors.New("unexpected byte width")
)

// StoreError reports a failure surfaced by the underlying store while a
// trie operation was running. It unwraps to the store's own error.
type StoreError struct {
	Op        string // insert, get, has, flush, compact, write
	Namespace string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("triedb: %s in namespace %q: %v", e.Op, e.Namespace, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// DecodeError reports retrieved bytes that do not fit the requested
// interpretation. A missing key is never a DecodeError.
type DecodeError struct {
	Type string // target type name, e.g. "string" or "uint64"
	Len  int    // length of the offending input
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("triedb: cannot decode %d bytes as %s: %v", e.Len, e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsStoreError reports whether err carries a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsDecodeError reports whether err carries a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
