package kvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/smboffload/internal/logger"
)

// keyPrefix namespaces token keys inside the badger keyspace.
var keyPrefix = []byte("offload:")

// BadgerBackend stores tokens in BadgerDB. It never outlives the process:
// it runs in in-memory mode, or in a fresh directory created under the
// configured parent and removed on Close.
type BadgerBackend struct {
	db     *badger.DB
	dir    string
	count  atomic.Int64
	closed atomic.Bool
}

// NewBadgerBackend opens a badger backend. When inMemory is false a scratch
// directory is created inside parentDir.
func NewBadgerBackend(parentDir string, inMemory bool) (*BadgerBackend, error) {
	var (
		opts badger.Options
		dir  string
	)

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(parentDir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create badger parent directory: %w", err)
		}
		tmp, err := os.MkdirTemp(parentDir, "offload-tokens-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create badger scratch directory: %w", err)
		}
		dir = tmp
		opts = badger.DefaultOptions(dir)
	}

	opts = opts.WithLogger(badgerLogger{}).WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		if dir != "" {
			_ = os.RemoveAll(dir)
		}
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &BadgerBackend{db: db, dir: dir}, nil
}

func badgerKey(key []byte) []byte {
	k := make([]byte, 0, len(keyPrefix)+len(key))
	k = append(k, keyPrefix...)
	return append(k, key...)
}

// Get implements Backend.
func (b *BadgerBackend) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set implements Backend.
func (b *BadgerBackend) Set(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.closed.Load() {
		return ErrClosed
	}

	created := false
	err := b.db.Update(func(txn *badger.Txn) error {
		k := badgerKey(key)
		_, err := txn.Get(k)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			created = true
		case err != nil:
			return err
		}
		return txn.Set(k, value)
	})
	if err != nil {
		return err
	}
	if created {
		b.count.Add(1)
	}
	return nil
}

// Delete implements Backend.
func (b *BadgerBackend) Delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.closed.Load() {
		return ErrClosed
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		k := badgerKey(key)
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		return txn.Delete(k)
	})
	if err != nil {
		return err
	}
	b.count.Add(-1)
	return nil
}

// Len implements Backend.
func (b *BadgerBackend) Len() int {
	return int(b.count.Load())
}

// Name implements Backend.
func (b *BadgerBackend) Name() string {
	return string(BackendBadger)
}

// Close implements Backend. The scratch directory, if any, is removed.
func (b *BadgerBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := b.db.Close()
	if b.dir != "" {
		if rmErr := os.RemoveAll(b.dir); rmErr != nil && err == nil {
			err = fmt.Errorf("failed to remove badger scratch directory: %w", rmErr)
		}
	}
	b.count.Store(0)
	return err
}

// badgerLogger routes badger's printf-style logging into the structured logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logger.Error("badger: "+strings.TrimSpace(fmt.Sprintf(format, args...)), logger.Backend(string(BackendBadger)))
}

func (badgerLogger) Warningf(format string, args ...any) {
	logger.Warn("badger: "+strings.TrimSpace(fmt.Sprintf(format, args...)), logger.Backend(string(BackendBadger)))
}

func (badgerLogger) Infof(format string, args ...any) {
	logger.Debug("badger: "+strings.TrimSpace(fmt.Sprintf(format, args...)), logger.Backend(string(BackendBadger)))
}

func (badgerLogger) Debugf(format string, args ...any) {
	logger.Debug("badger: "+strings.TrimSpace(fmt.Sprintf(format, args...)), logger.Backend(string(BackendBadger)))
}
