package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrRangeOutOfBounds is returned by an ExtentCopier when the source range
// extends past the end of the source file or the target range cannot be
// represented.
var ErrRangeOutOfBounds = errors.New("copy range out of bounds")

// maxMemoryFileSize caps how far MemoryCopier grows a target file.
const maxMemoryFileSize = 1 << 30

// ExtentCopier moves data between two open files on behalf of the offload
// FSCTLs.
type ExtentCopier interface {
	// CopyChunk copies length bytes and returns the number copied.
	CopyChunk(ctx context.Context, src, dst *OpenFile, srcOffset, dstOffset uint64, length uint32) (uint32, error)

	// DuplicateExtents clones length bytes from src to dst.
	DuplicateExtents(ctx context.Context, src, dst *OpenFile, srcOffset, dstOffset, length uint64) error
}

// MemoryCopier is an ExtentCopier over in-memory file contents keyed by
// path. It backs the probe command and tests.
type MemoryCopier struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryCopier creates an empty MemoryCopier.
func NewMemoryCopier() *MemoryCopier {
	return &MemoryCopier{files: make(map[string][]byte)}
}

// WriteFile replaces the contents of path.
func (m *MemoryCopier) WriteFile(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
}

// ReadFile returns a copy of the contents of path.
func (m *MemoryCopier) ReadFile(path string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.files[path]...)
}

// CopyChunk implements ExtentCopier.
func (m *MemoryCopier) CopyChunk(ctx context.Context, src, dst *OpenFile, srcOffset, dstOffset uint64, length uint32) (uint32, error) {
	if err := m.copyRange(ctx, src.Path, dst.Path, srcOffset, dstOffset, uint64(length)); err != nil {
		return 0, err
	}
	return length, nil
}

// DuplicateExtents implements ExtentCopier.
func (m *MemoryCopier) DuplicateExtents(ctx context.Context, src, dst *OpenFile, srcOffset, dstOffset, length uint64) error {
	return m.copyRange(ctx, src.Path, dst.Path, srcOffset, dstOffset, length)
}

func (m *MemoryCopier) copyRange(ctx context.Context, srcPath, dstPath string, srcOffset, dstOffset, length uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	data := m.files[srcPath]
	end := srcOffset + length
	if end < srcOffset || end > uint64(len(data)) {
		return fmt.Errorf("%w: [%d, %d) of %d-byte %s", ErrRangeOutOfBounds, srcOffset, end, len(data), srcPath)
	}
	chunk := append([]byte(nil), data[srcOffset:end]...)

	need := dstOffset + length
	if need < dstOffset || need > maxMemoryFileSize {
		return fmt.Errorf("%w: target [%d, +%d) of %s", ErrRangeOutOfBounds, dstOffset, length, dstPath)
	}

	dst := m.files[dstPath]
	if need > uint64(len(dst)) {
		grown := make([]byte, need)
		copy(grown, dst)
		dst = grown
	}
	copy(dst[dstOffset:], chunk)
	m.files[dstPath] = dst
	return nil
}
