package kvstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// Store serializes access per key on top of a Backend.
type Store struct {
	backend    Backend
	locks      *keyLocker
	maxEntries int
	closed     atomic.Bool
}

// NewStore opens the backend described by opts and wraps it.
func NewStore(opts Options) (*Store, error) {
	b, err := OpenBackend(opts)
	if err != nil {
		return nil, err
	}
	return NewStoreWithBackend(b, opts.MaxEntries), nil
}

// NewStoreWithBackend wraps an existing backend. maxEntries <= 0 means
// unlimited.
func NewStoreWithBackend(b Backend, maxEntries int) *Store {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &Store{
		backend:    b,
		locks:      newKeyLocker(),
		maxEntries: maxEntries,
	}
}

// FetchLocked locks key and loads its current value. The returned Record
// keeps the key locked until Release; callers must always release it.
func (s *Store) FetchLocked(ctx context.Context, key []byte) (*Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k := string(key)
	unlock := s.locks.lock(k)

	value, err := s.backend.Get(ctx, key)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		value = nil
	case err != nil:
		unlock()
		return nil, err
	}

	return &Record{
		store:  s,
		ctx:    ctx,
		key:    []byte(k),
		value:  value,
		unlock: unlock,
	}, nil
}

// Delete removes key under its lock. Returns ErrKeyNotFound when absent.
func (s *Store) Delete(ctx context.Context, key []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}

	unlock := s.locks.lock(string(key))
	defer unlock()

	return s.backend.Delete(ctx, key)
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return s.backend.Len()
}

// MaxEntries returns the configured entry limit (0 means unlimited).
func (s *Store) MaxEntries() int {
	return s.maxEntries
}

// Name returns the backend name.
func (s *Store) Name() string {
	return s.backend.Name()
}

// Close closes the backend. Subsequent calls are no-ops.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.backend.Close()
}

// Record is a locked view of one key.
type Record struct {
	store  *Store
	ctx    context.Context
	key    []byte
	value  []byte
	unlock func()

	once     sync.Once
	released bool
}

// Value returns the value loaded by FetchLocked (or written by Store), or
// nil when the key is absent.
func (r *Record) Value() []byte {
	return r.value
}

// Store writes value under the record's key. When the key is new and the
// store is at its entry limit, ErrStoreFull is returned and nothing changes.
// The limit is checked without a global lock, so concurrent inserts of
// distinct keys may overshoot it slightly.
func (r *Record) Store(value []byte) error {
	if r.released {
		return ErrReleased
	}
	if r.store.closed.Load() {
		return ErrClosed
	}

	if r.value == nil && r.store.maxEntries > 0 && r.store.backend.Len() >= r.store.maxEntries {
		return ErrStoreFull
	}

	if err := r.store.backend.Set(r.ctx, r.key, value); err != nil {
		return err
	}
	r.value = append([]byte(nil), value...)
	return nil
}

// Delete removes the record's key.
func (r *Record) Delete() error {
	if r.released {
		return ErrReleased
	}
	if r.store.closed.Load() {
		return ErrClosed
	}

	if err := r.store.backend.Delete(r.ctx, r.key); err != nil {
		return err
	}
	r.value = nil
	return nil
}

// Release unlocks the key. It is safe to call more than once.
func (r *Record) Release() {
	r.once.Do(func() {
		r.released = true
		r.unlock()
	})
}
