package triedb

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
)

// Shared owns a Database on behalf of the creator and every Trie built on
// it. It keeps a reference count and the set of namespaces held by live
// tries. The database is closed when the last reference is released.
type Shared struct {
	db     Database
	logger Logger

	mu           sync.Mutex
	refs         int
	ownerDropped bool
	namespaces   map[string]struct{}
}

// NewShared wraps db. The caller holds the first reference and gives it up
// with Close. A nil logger disables logging.
func NewShared(db Database, logger Logger) *Shared {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Shared{
		db:         db,
		logger:     logger,
		refs:       1,
		namespaces: make(map[string]struct{}),
	}
}

// Open opens a database at dirname and wraps it in a Shared owner using the
// logger given by WithLogger.
func Open(dirname string, opts ...Option) (*Shared, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	db, err := NewDatabase(dirname, opts...)
	if err != nil {
		return nil, err
	}
	return NewShared(db, o.logger), nil
}

// Database returns the shared store handle.
func (s *Shared) Database() Database { return s.db }

// Refs returns the number of live references, the creator's included.
func (s *Shared) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Namespaces returns the namespaces held by live tries, sorted.
func (s *Shared) Namespaces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.namespaces))
	for ns := range s.namespaces {
		names = append(names, ns)
	}
	slices.Sort(names)
	return names
}

// Close gives up the creator's reference. Calling it again is a no-op. If
// closing the database fails, the last reference returns to the creator and
// Close may be called again.
func (s *Shared) Close() error {
	s.mu.Lock()
	if s.ownerDropped {
		s.mu.Unlock()
		return nil
	}
	s.ownerDropped = true
	s.mu.Unlock()

	return s.release()
}

// acquire claims namespace for a new trie and takes a reference.
func (s *Shared) acquire(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs == 0 {
		return ErrClosed
	}
	if _, ok := s.namespaces[namespace]; ok {
		return errors.Wrapf(ErrNamespaceInUse, "namespace %q", namespace)
	}
	s.namespaces[namespace] = struct{}{}
	s.refs++
	s.logger.Debug("namespace acquired", "namespace", namespace, "refs", s.refs)
	return nil
}

// releaseNamespace frees namespace and drops the trie's reference.
func (s *Shared) releaseNamespace(namespace string) error {
	s.mu.Lock()
	delete(s.namespaces, namespace)
	s.mu.Unlock()

	s.logger.Debug("namespace released", "namespace", namespace)
	return s.release()
}

func (s *Shared) release() error {
	s.mu.Lock()
	if s.refs == 0 {
		s.mu.Unlock()
		return nil
	}
	s.refs--
	last := s.refs == 0
	s.mu.Unlock()

	if !last {
		return nil
	}
	if err := s.db.Close(); err != nil {
		// Hand the reference back to the creator so Close can be retried.
		s.mu.Lock()
		s.refs++
		s.ownerDropped = false
		s.mu.Unlock()
		s.logger.Error("failed to close database", "db", s.db.Path(), "err", err)
		return err
	}
	return nil
}
