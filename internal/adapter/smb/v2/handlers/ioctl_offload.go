package handlers

import (
	"errors"
	"fmt"

	"github.com/marmos91/smboffload/internal/adapter/smb/smbenc"
	"github.com/marmos91/smboffload/internal/adapter/smb/types"
	"github.com/marmos91/smboffload/internal/logger"
	"github.com/marmos91/smboffload/pkg/offload"
)

const (
	// SRV_REQUEST_RESUME_KEY: ResumeKey(24) + ContextLength(4)
	resumeKeyResponseSize = offload.ResumeKeyTokenLen + 4

	// SRV_COPYCHUNK_COPY: SourceKey(24) + ChunkCount(4) + Reserved(4)
	copyChunkHeaderSize = offload.ResumeKeyTokenLen + 8

	// SRV_COPYCHUNK: SourceOffset(8) + TargetOffset(8) + Length(4) + Reserved(4)
	copyChunkEntrySize = 24

	// DUPLICATE_EXTENTS_DATA: FileHandle(16) + SourceFileOffset(8) +
	// TargetFileOffset(8) + ByteCount(8)
	duplicateExtentsDataSize = 40
)

var errCopyChunkTruncated = errors.New("copychunk list truncated")

// CopyChunk is one range of an SRV_COPYCHUNK_COPY request.
type CopyChunk struct {
	SourceOffset uint64
	TargetOffset uint64
	Length       uint32
}

// CopyChunkRequest represents SRV_COPYCHUNK_COPY [MS-SMB2] 2.2.31.1.
type CopyChunkRequest struct {
	SourceKey offload.Token
	Chunks    []CopyChunk
}

// CopyChunkResponse represents SRV_COPYCHUNK_RESPONSE [MS-SMB2] 2.2.32.1.
// When the request exceeds server limits the fields carry the limits
// instead of progress.
type CopyChunkResponse struct {
	ChunksWritten     uint32
	ChunkBytesWritten uint32
	TotalBytesWritten uint32
}

// Encode serializes the response.
func (r *CopyChunkResponse) Encode() []byte {
	w := smbenc.NewWriter(12)
	w.WriteUint32(r.ChunksWritten)
	w.WriteUint32(r.ChunkBytesWritten)
	w.WriteUint32(r.TotalBytesWritten)
	return w.Bytes()
}

// DecodeCopyChunkRequest parses SRV_COPYCHUNK_COPY.
func DecodeCopyChunkRequest(data []byte) (*CopyChunkRequest, error) {
	r := smbenc.NewReader(data)
	req := &CopyChunkRequest{
		SourceKey: offload.Token(r.ReadBytes(offload.ResumeKeyTokenLen)).Clone(),
	}
	count := r.ReadUint32()
	r.Skip(4) // Reserved
	if err := r.Err(); err != nil {
		return nil, err
	}

	if int64(count)*copyChunkEntrySize > int64(r.Remaining()) {
		return nil, fmt.Errorf("%w: %d chunks in %d bytes", errCopyChunkTruncated, count, r.Remaining())
	}

	req.Chunks = make([]CopyChunk, 0, count)
	for i := uint32(0); i < count; i++ {
		c := CopyChunk{
			SourceOffset: r.ReadUint64(),
			TargetOffset: r.ReadUint64(),
			Length:       r.ReadUint32(),
		}
		r.Skip(4) // Reserved
		req.Chunks = append(req.Chunks, c)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return req, nil
}

// DuplicateExtentsRequest represents DUPLICATE_EXTENTS_DATA [MS-FSCC] 2.3.8.
type DuplicateExtentsRequest struct {
	SourceFileID     [16]byte
	SourceFileOffset uint64
	TargetFileOffset uint64
	ByteCount        uint64
}

// DecodeDuplicateExtentsRequest parses DUPLICATE_EXTENTS_DATA.
func DecodeDuplicateExtentsRequest(data []byte) (*DuplicateExtentsRequest, error) {
	r := smbenc.NewReader(data)
	req := &DuplicateExtentsRequest{
		SourceFileID:     r.ReadFileID(),
		SourceFileOffset: r.ReadUint64(),
		TargetFileOffset: r.ReadUint64(),
		ByteCount:        r.ReadUint64(),
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return req, nil
}

// handleRequestResumeKey handles FSCTL_SRV_REQUEST_RESUME_KEY
// [MS-SMB2] 2.2.31.3. The token issued for the handle stays bound to it
// until the handle is closed.
func (h *Handler) handleRequestResumeKey(ctx *SMBHandlerContext, req *IoctlRequest) (*HandlerResult, error) {
	file, ok := h.GetOpenFile(req.FileID)
	if !ok {
		logger.DebugCtx(ctx.Context, "REQUEST_RESUME_KEY: file handle not found", logger.FileID(req.FileID))
		return NewErrorResult(types.StatusFileClosed), nil
	}

	token, err := offload.CreateToken(file.OffloadRef(), offload.KindRequestResumeKey)
	if err != nil {
		return NewErrorResult(offloadStatus(err)), nil
	}
	if err := h.offload.Store(ctx.Context, file, token); err != nil {
		logger.WarnCtx(ctx.Context, "REQUEST_RESUME_KEY: store failed", logger.FileID(req.FileID), logger.Err(err))
		return NewErrorResult(offloadStatus(err)), nil
	}

	w := smbenc.NewWriter(resumeKeyResponseSize)
	w.WriteBytes(token)
	w.WriteUint32(0) // ContextLength

	logger.DebugCtx(ctx.Context, "REQUEST_RESUME_KEY: issued", logger.FileID(req.FileID), logger.Token(token))
	return ioctlResult(req, types.StatusSuccess, w.Bytes()), nil
}

// handleCopyChunk handles FSCTL_SRV_COPYCHUNK and FSCTL_SRV_COPYCHUNK_WRITE
// [MS-SMB2] 3.3.5.15.6. The request FileId is the copy destination; the
// source is located through the resume key.
func (h *Handler) handleCopyChunk(ctx *SMBHandlerContext, req *IoctlRequest) (*HandlerResult, error) {
	if h.copier == nil {
		return NewErrorResult(types.StatusNotSupported), nil
	}

	dst, ok := h.GetOpenFile(req.FileID)
	if !ok {
		return NewErrorResult(types.StatusFileClosed), nil
	}

	if len(req.Input) < copyChunkHeaderSize {
		return NewErrorResult(types.StatusInvalidParameter), nil
	}
	ccReq, err := DecodeCopyChunkRequest(req.Input)
	if err != nil {
		logger.DebugCtx(ctx.Context, "COPYCHUNK: malformed request", logger.Err(err))
		return NewErrorResult(types.StatusInvalidParameter), nil
	}

	if !withinCopyLimits(ccReq.Chunks) {
		logger.DebugCtx(ctx.Context, "COPYCHUNK: request exceeds server limits", logger.Chunks(len(ccReq.Chunks)))
		limits := &CopyChunkResponse{
			ChunksWritten:     types.ServerSideCopyMaxNumberOfChunks,
			ChunkBytesWritten: types.ServerSideCopyMaxChunkSize,
			TotalBytesWritten: types.ServerSideCopyMaxDataSize,
		}
		return ioctlResult(req, types.StatusInvalidParameter, limits.Encode()), nil
	}

	ref, err := h.offload.Fetch(ctx.Context, ccReq.SourceKey)
	if err != nil {
		logger.DebugCtx(ctx.Context, "COPYCHUNK: resume key not resolved", logger.Token(ccReq.SourceKey), logger.Err(err))
		return NewErrorResult(offloadStatus(err)), nil
	}
	src, ok := h.GetOpenFile(fileIDFromRef(ref))
	if !ok {
		return NewErrorResult(types.StatusObjectNameNotFound), nil
	}

	resp := &CopyChunkResponse{}
	for _, c := range ccReq.Chunks {
		n, err := h.copier.CopyChunk(ctx.Context, src, dst, c.SourceOffset, c.TargetOffset, c.Length)
		if err != nil {
			logger.WarnCtx(ctx.Context, "COPYCHUNK: chunk failed",
				logger.Offset(c.SourceOffset), logger.Length(uint64(c.Length)), logger.Err(err))
			if resp.ChunksWritten == 0 {
				return NewErrorResult(copyStatus(err)), nil
			}
			break
		}
		resp.ChunksWritten++
		resp.TotalBytesWritten += n
	}

	h.recordBytesCopied(req.CtlCode, uint64(resp.TotalBytesWritten))
	logger.DebugCtx(ctx.Context, "COPYCHUNK: done",
		logger.Chunks(int(resp.ChunksWritten)), "total_bytes", resp.TotalBytesWritten)
	return ioctlResult(req, types.StatusSuccess, resp.Encode()), nil
}

func withinCopyLimits(chunks []CopyChunk) bool {
	if len(chunks) > types.ServerSideCopyMaxNumberOfChunks {
		return false
	}
	var total uint64
	for _, c := range chunks {
		if c.Length == 0 || c.Length > types.ServerSideCopyMaxChunkSize {
			return false
		}
		total += uint64(c.Length)
	}
	return total <= types.ServerSideCopyMaxDataSize
}

// handleDuplicateExtents handles FSCTL_DUPLICATE_EXTENTS_TO_FILE
// [MS-FSCC] 2.3.8. The request FileId is the target. A token is bound to
// the source handle and resolved back before the clone runs.
func (h *Handler) handleDuplicateExtents(ctx *SMBHandlerContext, req *IoctlRequest) (*HandlerResult, error) {
	if h.copier == nil {
		return NewErrorResult(types.StatusNotSupported), nil
	}

	dst, ok := h.GetOpenFile(req.FileID)
	if !ok {
		return NewErrorResult(types.StatusFileClosed), nil
	}

	if len(req.Input) < duplicateExtentsDataSize {
		return NewErrorResult(types.StatusInvalidParameter), nil
	}
	dup, err := DecodeDuplicateExtentsRequest(req.Input)
	if err != nil {
		return NewErrorResult(types.StatusInvalidParameter), nil
	}

	src, ok := h.GetOpenFile(dup.SourceFileID)
	if !ok {
		logger.DebugCtx(ctx.Context, "DUPLICATE_EXTENTS: source handle not found", logger.FileID(dup.SourceFileID))
		return NewErrorResult(types.StatusInvalidHandle), nil
	}

	token, err := offload.CreateToken(src.OffloadRef(), offload.KindDuplicateExtents)
	if err != nil {
		return NewErrorResult(offloadStatus(err)), nil
	}
	if err := h.offload.Store(ctx.Context, src, token); err != nil {
		logger.WarnCtx(ctx.Context, "DUPLICATE_EXTENTS: store failed", logger.FileID(dup.SourceFileID), logger.Err(err))
		return NewErrorResult(offloadStatus(err)), nil
	}

	ref, err := h.offload.Fetch(ctx.Context, token)
	if err != nil {
		return NewErrorResult(offloadStatus(err)), nil
	}
	if ref != src.OffloadRef() {
		logger.ErrorCtx(ctx.Context, "DUPLICATE_EXTENTS: token resolved to a different handle",
			logger.Token(token), logger.HandleIDs(ref.PersistentID, ref.VolatileID))
		return NewErrorResult(types.StatusInternalError), nil
	}

	if err := h.copier.DuplicateExtents(ctx.Context, src, dst, dup.SourceFileOffset, dup.TargetFileOffset, dup.ByteCount); err != nil {
		logger.WarnCtx(ctx.Context, "DUPLICATE_EXTENTS: clone failed",
			logger.Offset(dup.SourceFileOffset), logger.Length(dup.ByteCount), logger.Err(err))
		return NewErrorResult(copyStatus(err)), nil
	}

	h.recordBytesCopied(req.CtlCode, dup.ByteCount)
	logger.DebugCtx(ctx.Context, "DUPLICATE_EXTENTS: done", logger.Length(dup.ByteCount))
	return ioctlResult(req, types.StatusSuccess, nil), nil
}

// offloadStatus maps a registry error to an NT_STATUS code.
func offloadStatus(err error) types.Status {
	switch offload.CodeOf(err) {
	case offload.ErrNotFound:
		return types.StatusObjectNameNotFound
	case offload.ErrUnsupportedOperation:
		return types.StatusNotSupported
	case offload.ErrOutOfMemory:
		return types.StatusNoMemory
	default:
		return types.StatusInternalError
	}
}

// copyStatus maps an ExtentCopier error to an NT_STATUS code.
func copyStatus(err error) types.Status {
	if errors.Is(err, ErrRangeOutOfBounds) {
		return types.StatusInvalidParameter
	}
	return types.StatusInternalError
}
