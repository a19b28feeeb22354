package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrKeyNotFound is returned by Backend.Get and Backend.Delete when the key is absent.
var ErrKeyNotFound = errors.New("kvstore: key not found")

// ErrStoreFull is returned by Record.Store when the configured entry limit is reached.
var ErrStoreFull = errors.New("kvstore: entry limit reached")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kvstore: store closed")

// ErrReleased is returned by Record methods after Release.
var ErrReleased = errors.New("kvstore: record already released")

// Backend is the raw storage used by Store. Implementations must be safe for
// concurrent use; Store provides the per-key serialization on top.
type Backend interface {
	// Get returns a copy of the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes key. Returns ErrKeyNotFound if the key is absent.
	Delete(ctx context.Context, key []byte) error

	// Len returns the number of stored keys.
	Len() int

	// Name identifies the backend in logs and metrics.
	Name() string

	// Close releases backend resources.
	Close() error
}

// BackendType selects a Backend implementation.
type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendBadger BackendType = "badger"
)

// ParseBackendType parses a backend name (case-insensitive).
func ParseBackendType(s string) (BackendType, error) {
	switch BackendType(strings.ToLower(strings.TrimSpace(s))) {
	case BackendMemory, "":
		return BackendMemory, nil
	case BackendBadger:
		return BackendBadger, nil
	default:
		return "", fmt.Errorf("unknown token store backend %q (valid: memory, badger)", s)
	}
}

// Options configures a Store and its backend.
type Options struct {
	// Backend selects the storage implementation. Default: memory.
	Backend BackendType

	// Shards is the shard count of the memory backend. Default: 32.
	Shards int

	// MaxEntries caps the number of stored keys; 0 means unlimited.
	MaxEntries int

	// BadgerDir is the parent of the badger scratch directory. A fresh
	// subdirectory is created on open and removed on Close. Ignored when
	// BadgerInMemory is set.
	BadgerDir string

	// BadgerInMemory runs badger without touching disk. Default when
	// BadgerDir is empty.
	BadgerInMemory bool
}

// OpenBackend constructs the backend selected by opts.
func OpenBackend(opts Options) (Backend, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryBackend(opts.Shards), nil
	case BackendBadger:
		return NewBadgerBackend(opts.BadgerDir, opts.BadgerInMemory || opts.BadgerDir == "")
	default:
		return nil, fmt.Errorf("unknown token store backend %q", opts.Backend)
	}
}
