package kvstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is the default shard count of the memory backend.
const DefaultShards = 32

// MemoryBackend is a sharded in-process map. Each shard has its own RWMutex,
// so keys in different shards never contend.
type MemoryBackend struct {
	shards []*memoryShard
	mask   uint64
	count  atomic.Int64
}

type memoryShard struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryBackend creates a memory backend. shards is rounded to the
// default when it is not a positive power of two.
func NewMemoryBackend(shards int) *MemoryBackend {
	if shards <= 0 || shards&(shards-1) != 0 {
		shards = DefaultShards
	}

	b := &MemoryBackend{
		shards: make([]*memoryShard, shards),
		mask:   uint64(shards - 1),
	}
	for i := range b.shards {
		b.shards[i] = &memoryShard{items: make(map[string][]byte)}
	}
	return b
}

func (b *MemoryBackend) shard(key []byte) *memoryShard {
	return b.shards[xxhash.Sum64(key)&b.mask]
}

// Get implements Backend.
func (b *MemoryBackend) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := b.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set implements Backend.
func (b *MemoryBackend) Set(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := b.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[string(key)]; !exists {
		b.count.Add(1)
	}
	s.items[string(key)] = append([]byte(nil), value...)
	return nil
}

// Delete implements Backend.
func (b *MemoryBackend) Delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := b.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[string(key)]; !ok {
		return ErrKeyNotFound
	}
	delete(s.items, string(key))
	b.count.Add(-1)
	return nil
}

// Len implements Backend.
func (b *MemoryBackend) Len() int {
	return int(b.count.Load())
}

// Name implements Backend.
func (b *MemoryBackend) Name() string {
	return string(BackendMemory)
}

// Close implements Backend. The map is dropped.
func (b *MemoryBackend) Close() error {
	for _, s := range b.shards {
		s.mu.Lock()
		s.items = make(map[string][]byte)
		s.mu.Unlock()
	}
	b.count.Store(0)
	return nil
}
