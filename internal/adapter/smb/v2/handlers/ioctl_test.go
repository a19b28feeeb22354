package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/smboffload/internal/adapter/smb/smbenc"
	"github.com/marmos91/smboffload/internal/adapter/smb/types"
	"github.com/marmos91/smboffload/pkg/offload"
)

func buildCopyChunkInput(sourceKey []byte, chunks ...CopyChunk) []byte {
	w := smbenc.NewWriter(copyChunkHeaderSize + len(chunks)*copyChunkEntrySize)
	w.WriteBytes(sourceKey)
	w.WriteUint32(uint32(len(chunks)))
	w.WriteUint32(0)
	for _, c := range chunks {
		w.WriteUint64(c.SourceOffset)
		w.WriteUint64(c.TargetOffset)
		w.WriteUint32(c.Length)
		w.WriteUint32(0)
	}
	return w.Bytes()
}

func buildDuplicateExtentsInput(src [16]byte, srcOff, dstOff, n uint64) []byte {
	w := smbenc.NewWriter(duplicateExtentsDataSize)
	w.WriteFileID(src)
	w.WriteUint64(srcOff)
	w.WriteUint64(dstOff)
	w.WriteUint64(n)
	return w.Bytes()
}

func requestResumeKey(t *testing.T, h *Handler, f *OpenFile) offload.Token {
	t.Helper()
	resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlSrvRequestResumeKey, f.FileID, nil, 64))
	require.NoError(t, err)
	require.Equal(t, types.StatusSuccess, resp.Status)

	out := ioctlOutput(t, resp.Data)
	require.Len(t, out, resumeKeyResponseSize)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(out[offload.ResumeKeyTokenLen:]))
	return offload.Token(out[:offload.ResumeKeyTokenLen]).Clone()
}

func TestIoctl_RequestResumeKey(t *testing.T) {
	t.Run("TokenEncodesHandle", func(t *testing.T) {
		h, _ := newTestHandler(t)
		f := h.Open(testSessionID, testTreeID, "/src")

		token := requestResumeKey(t, h, f)

		ref, kind, err := offload.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, offload.KindRequestResumeKey, kind)
		assert.Equal(t, f.OffloadRef(), ref)

		got, err := h.Offload().Fetch(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, f.OffloadRef(), got)
	})

	t.Run("RepeatedRequestIsIdempotent", func(t *testing.T) {
		h, _ := newTestHandler(t)
		f := h.Open(testSessionID, testTreeID, "/src")

		first := requestResumeKey(t, h, f)
		second := requestResumeKey(t, h, f)
		assert.True(t, first.Equal(second))
		assert.Equal(t, 1, h.Offload().Len())
		assert.Equal(t, 1, f.OffloadLinks().Len())
	})

	t.Run("UnknownFileID", func(t *testing.T) {
		h, _ := newTestHandler(t)
		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlSrvRequestResumeKey, [16]byte{9}, nil, 64))
		require.NoError(t, err)
		assert.Equal(t, types.StatusFileClosed, resp.Status)
	})

	t.Run("OutputBufferTooSmall", func(t *testing.T) {
		h, _ := newTestHandler(t)
		f := h.Open(testSessionID, testTreeID, "/src")
		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlSrvRequestResumeKey, f.FileID, nil, 16))
		require.NoError(t, err)
		assert.Equal(t, types.StatusBufferTooSmall, resp.Status)
	})
}

func TestIoctl_CopyChunk(t *testing.T) {
	for _, code := range []uint32{types.FsctlSrvCopyChunk, types.FsctlSrvCopyChunkWrite} {
		t.Run(types.FsctlName(code), func(t *testing.T) {
			h, copier := newTestHandler(t)
			copier.WriteFile("/src", []byte("0123456789abcdef"))
			src := h.Open(testSessionID, testTreeID, "/src")
			dst := h.Open(testSessionID, testTreeID, "/dst")

			key := requestResumeKey(t, h, src)
			input := buildCopyChunkInput(key,
				CopyChunk{SourceOffset: 0, TargetOffset: 0, Length: 4},
				CopyChunk{SourceOffset: 10, TargetOffset: 4, Length: 6},
			)

			resp, err := h.Ioctl(testCtx(), buildIoctlRequest(code, dst.FileID, input, 64))
			require.NoError(t, err)
			require.Equal(t, types.StatusSuccess, resp.Status)

			out := ioctlOutput(t, resp.Data)
			require.Len(t, out, 12)
			assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(out[0:4]))
			assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(out[4:8]))
			assert.Equal(t, uint32(10), binary.LittleEndian.Uint32(out[8:12]))
			assert.Equal(t, []byte("0123abcdef"), copier.ReadFile("/dst"))
		})
	}

	t.Run("UnknownResumeKey", func(t *testing.T) {
		h, _ := newTestHandler(t)
		dst := h.Open(testSessionID, testTreeID, "/dst")
		key := bytes.Repeat([]byte{0x42}, offload.ResumeKeyTokenLen)

		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlSrvCopyChunk, dst.FileID,
			buildCopyChunkInput(key, CopyChunk{Length: 1}), 64))
		require.NoError(t, err)
		assert.Equal(t, types.StatusObjectNameNotFound, resp.Status)
	})

	t.Run("SourceClosed", func(t *testing.T) {
		h, copier := newTestHandler(t)
		copier.WriteFile("/src", []byte("data"))
		src := h.Open(testSessionID, testTreeID, "/src")
		dst := h.Open(testSessionID, testTreeID, "/dst")
		key := requestResumeKey(t, h, src)
		require.True(t, h.CloseFile(src.FileID))

		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlSrvCopyChunk, dst.FileID,
			buildCopyChunkInput(key, CopyChunk{Length: 4}), 64))
		require.NoError(t, err)
		assert.Equal(t, types.StatusObjectNameNotFound, resp.Status)
	})

	t.Run("ExceedsLimits", func(t *testing.T) {
		h, _ := newTestHandler(t)
		dst := h.Open(testSessionID, testTreeID, "/dst")
		key := bytes.Repeat([]byte{0x01}, offload.ResumeKeyTokenLen)

		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlSrvCopyChunk, dst.FileID,
			buildCopyChunkInput(key, CopyChunk{Length: types.ServerSideCopyMaxChunkSize + 1}), 64))
		require.NoError(t, err)
		require.Equal(t, types.StatusInvalidParameter, resp.Status)

		out := ioctlOutput(t, resp.Data)
		assert.Equal(t, uint32(types.ServerSideCopyMaxNumberOfChunks), binary.LittleEndian.Uint32(out[0:4]))
		assert.Equal(t, uint32(types.ServerSideCopyMaxChunkSize), binary.LittleEndian.Uint32(out[4:8]))
		assert.Equal(t, uint32(types.ServerSideCopyMaxDataSize), binary.LittleEndian.Uint32(out[8:12]))
	})

	t.Run("SourceRangeOutOfBounds", func(t *testing.T) {
		h, copier := newTestHandler(t)
		copier.WriteFile("/src", []byte("abc"))
		src := h.Open(testSessionID, testTreeID, "/src")
		dst := h.Open(testSessionID, testTreeID, "/dst")
		key := requestResumeKey(t, h, src)

		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlSrvCopyChunk, dst.FileID,
			buildCopyChunkInput(key, CopyChunk{SourceOffset: 2, Length: 8}), 64))
		require.NoError(t, err)
		assert.Equal(t, types.StatusInvalidParameter, resp.Status)
	})

	t.Run("TruncatedChunkList", func(t *testing.T) {
		h, _ := newTestHandler(t)
		dst := h.Open(testSessionID, testTreeID, "/dst")
		input := buildCopyChunkInput(make([]byte, offload.ResumeKeyTokenLen), CopyChunk{Length: 1})

		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlSrvCopyChunk, dst.FileID, input[:len(input)-4], 64))
		require.NoError(t, err)
		assert.Equal(t, types.StatusInvalidParameter, resp.Status)
	})

	t.Run("NoCopier", func(t *testing.T) {
		h, err := NewHandler(Options{})
		require.NoError(t, err)
		defer func() { _ = h.Shutdown() }()
		dst := h.Open(testSessionID, testTreeID, "/dst")

		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlSrvCopyChunk, dst.FileID,
			buildCopyChunkInput(make([]byte, offload.ResumeKeyTokenLen)), 64))
		require.NoError(t, err)
		assert.Equal(t, types.StatusNotSupported, resp.Status)
	})
}

func TestIoctl_DuplicateExtents(t *testing.T) {
	t.Run("ClonesRangeAndBindsToken", func(t *testing.T) {
		h, copier := newTestHandler(t)
		copier.WriteFile("/src", []byte("hello, world"))
		src := h.Open(testSessionID, testTreeID, "/src")
		dst := h.Open(testSessionID, testTreeID, "/dst")

		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlDuplicateExtentsToFile, dst.FileID,
			buildDuplicateExtentsInput(src.FileID, 7, 0, 5), 0))
		require.NoError(t, err)
		require.Equal(t, types.StatusSuccess, resp.Status)
		assert.Empty(t, ioctlOutput(t, resp.Data))
		assert.Equal(t, []byte("world"), copier.ReadFile("/dst"))

		tokens := src.OffloadLinks().Tokens()
		require.Len(t, tokens, 1)
		require.Len(t, tokens[0], offload.DuplicateExtentsTokenLen)
		_, kind, err := offload.ParseToken(tokens[0])
		require.NoError(t, err)
		assert.Equal(t, offload.KindDuplicateExtents, kind)

		h.CloseFile(src.FileID)
		_, err = h.Offload().Fetch(context.Background(), tokens[0])
		assert.ErrorIs(t, err, offload.ErrNotFound)
	})

	t.Run("SharesHandleWithResumeKey", func(t *testing.T) {
		h, copier := newTestHandler(t)
		copier.WriteFile("/src", []byte("abcd"))
		src := h.Open(testSessionID, testTreeID, "/src")
		dst := h.Open(testSessionID, testTreeID, "/dst")

		requestResumeKey(t, h, src)
		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlDuplicateExtentsToFile, dst.FileID,
			buildDuplicateExtentsInput(src.FileID, 0, 0, 4), 0))
		require.NoError(t, err)
		require.Equal(t, types.StatusSuccess, resp.Status)
		assert.Equal(t, 2, src.OffloadLinks().Len())
		assert.Equal(t, 2, h.Offload().Len())
	})

	t.Run("UnknownSource", func(t *testing.T) {
		h, _ := newTestHandler(t)
		dst := h.Open(testSessionID, testTreeID, "/dst")

		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlDuplicateExtentsToFile, dst.FileID,
			buildDuplicateExtentsInput([16]byte{0xee}, 0, 0, 1), 0))
		require.NoError(t, err)
		assert.Equal(t, types.StatusInvalidHandle, resp.Status)
	})

	t.Run("TargetOffsetOutOfRange", func(t *testing.T) {
		for _, off := range []uint64{math.MaxUint64, 1 << 40} {
			h, copier := newTestHandler(t)
			copier.WriteFile("/src", []byte("abcd"))
			src := h.Open(testSessionID, testTreeID, "/src")
			dst := h.Open(testSessionID, testTreeID, "/dst")

			var resp *HandlerResult
			var err error
			require.NotPanics(t, func() {
				resp, err = h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlDuplicateExtentsToFile, dst.FileID,
					buildDuplicateExtentsInput(src.FileID, 0, off, 1), 0))
			})
			require.NoError(t, err)
			assert.Equal(t, types.StatusInvalidParameter, resp.Status, "offset %d", off)
			assert.Empty(t, copier.ReadFile("/dst"))
		}
	})

	t.Run("ShortInput", func(t *testing.T) {
		h, _ := newTestHandler(t)
		dst := h.Open(testSessionID, testTreeID, "/dst")

		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(types.FsctlDuplicateExtentsToFile, dst.FileID, make([]byte, 16), 0))
		require.NoError(t, err)
		assert.Equal(t, types.StatusInvalidParameter, resp.Status)
	})
}

func TestIoctl_Dispatch(t *testing.T) {
	t.Run("UnknownFsctl", func(t *testing.T) {
		h, _ := newTestHandler(t)
		resp, err := h.Ioctl(testCtx(), buildIoctlRequest(0x00090000, [16]byte{}, nil, 64))
		require.NoError(t, err)
		assert.Equal(t, types.StatusNotSupported, resp.Status)
	})

	t.Run("MissingFsctlFlag", func(t *testing.T) {
		h, _ := newTestHandler(t)
		f := h.Open(testSessionID, testTreeID, "/a")
		body := buildIoctlRequest(types.FsctlSrvRequestResumeKey, f.FileID, nil, 64)
		binary.LittleEndian.PutUint32(body[48:52], 0)

		resp, err := h.Ioctl(testCtx(), body)
		require.NoError(t, err)
		assert.Equal(t, types.StatusNotSupported, resp.Status)
	})

	t.Run("ShortBody", func(t *testing.T) {
		h, _ := newTestHandler(t)
		resp, err := h.Ioctl(testCtx(), []byte{57, 0, 0, 0})
		require.NoError(t, err)
		assert.Equal(t, types.StatusInvalidParameter, resp.Status)
	})

	t.Run("InputOutOfBounds", func(t *testing.T) {
		body := buildIoctlRequest(types.FsctlSrvCopyChunk, [16]byte{}, make([]byte, 8), 64)
		binary.LittleEndian.PutUint32(body[28:32], 1000)

		_, err := DecodeIoctlRequest(body)
		assert.ErrorIs(t, err, errIoctlInputOutOfBounds)
	})

	t.Run("BadStructureSize", func(t *testing.T) {
		body := buildIoctlRequest(types.FsctlSrvCopyChunk, [16]byte{}, nil, 64)
		binary.LittleEndian.PutUint16(body[0:2], 56)

		_, err := DecodeIoctlRequest(body)
		assert.ErrorIs(t, err, smbenc.ErrExpectMismatch)
	})
}

func TestOffloadStatus(t *testing.T) {
	tests := []struct {
		err  error
		want types.Status
	}{
		{offload.ErrNotFound, types.StatusObjectNameNotFound},
		{offload.ErrUnsupportedOperation, types.StatusNotSupported},
		{offload.ErrOutOfMemory, types.StatusNoMemory},
		{offload.ErrInternal, types.StatusInternalError},
		{context.Canceled, types.StatusInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, offloadStatus(tt.err))
		})
	}
}
