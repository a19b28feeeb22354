package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/smboffload/internal/adapter/smb/smbenc"
	"github.com/marmos91/smboffload/internal/adapter/smb/types"
	"github.com/marmos91/smboffload/internal/logger"
	"github.com/marmos91/smboffload/internal/telemetry"
)

const (
	// smb2HeaderSize is the size of the SMB2 sync header. IOCTL offsets
	// are relative to the start of the header, not the body.
	smb2HeaderSize = 64

	ioctlRequestStructureSize  = 57
	ioctlRequestFixedSize      = 56
	ioctlResponseStructureSize = 49
	ioctlResponseFixedSize     = 48

	// ioctlFlagIsFsctl marks the request as an FSCTL rather than a device IOCTL.
	ioctlFlagIsFsctl = 0x00000001
)

var errIoctlInputOutOfBounds = errors.New("ioctl input buffer out of bounds")

// IoctlRequest represents an SMB2 IOCTL request [MS-SMB2] 2.2.31.
type IoctlRequest struct {
	CtlCode           uint32
	FileID            [16]byte
	MaxInputResponse  uint32
	MaxOutputResponse uint32
	Flags             uint32

	// Input is the request input buffer located via InputOffset/InputCount.
	Input []byte
}

// DecodeIoctlRequest parses an SMB2 IOCTL request body.
func DecodeIoctlRequest(body []byte) (*IoctlRequest, error) {
	r := smbenc.NewReader(body)
	r.ExpectUint16(ioctlRequestStructureSize)
	r.Skip(2) // Reserved
	req := &IoctlRequest{}
	req.CtlCode = r.ReadUint32()
	req.FileID = r.ReadFileID()
	inputOffset := r.ReadUint32()
	inputCount := r.ReadUint32()
	req.MaxInputResponse = r.ReadUint32()
	r.Skip(8) // OutputOffset + OutputCount
	req.MaxOutputResponse = r.ReadUint32()
	req.Flags = r.ReadUint32()
	r.Skip(4) // Reserved2
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode IOCTL request: %w", err)
	}

	if inputCount == 0 {
		return req, nil
	}

	start := int64(inputOffset) - smb2HeaderSize
	end := start + int64(inputCount)
	if start < ioctlRequestFixedSize || end > int64(len(body)) {
		return nil, fmt.Errorf("%w: offset %d count %d body %d", errIoctlInputOutOfBounds, inputOffset, inputCount, len(body))
	}
	req.Input = body[start:end]
	return req, nil
}

// IOCTLHandler is the function signature for FSCTL sub-handlers. Each
// handler receives the Handler instance, the per-request context and the
// decoded request.
type IOCTLHandler func(h *Handler, ctx *SMBHandlerContext, req *IoctlRequest) (*HandlerResult, error)

// ioctlDispatch maps FSCTL control codes to their handlers.
var ioctlDispatch map[uint32]IOCTLHandler

func init() {
	ioctlDispatch = map[uint32]IOCTLHandler{
		types.FsctlSrvRequestResumeKey:    (*Handler).handleRequestResumeKey,
		types.FsctlSrvCopyChunk:           (*Handler).handleCopyChunk,
		types.FsctlSrvCopyChunkWrite:      (*Handler).handleCopyChunk,
		types.FsctlDuplicateExtentsToFile: (*Handler).handleDuplicateExtents,
	}
}

// Ioctl handles the SMB2 IOCTL command [MS-SMB2] 2.2.31, 2.2.32.
// It dispatches the offload FSCTLs via a map-based dispatch table.
// Unsupported FSCTLs return StatusNotSupported.
func (h *Handler) Ioctl(ctx *SMBHandlerContext, body []byte) (*HandlerResult, error) {
	start := time.Now()
	command := types.CommandIoctl.String()

	req, err := DecodeIoctlRequest(body)
	if err != nil {
		logger.DebugCtx(ctx.Context, "IOCTL request malformed", "len", len(body), logger.Err(err))
		h.recordRequest(command, "", start, types.StatusInvalidParameter.String())
		return NewErrorResult(types.StatusInvalidParameter), nil
	}
	fsctl := types.FsctlName(req.CtlCode)

	spanCtx, span := telemetry.StartSMBSpan(ctx.Context, command, req.FileID,
		telemetry.SMBFsctl(req.CtlCode),
		telemetry.SMBSessionID(ctx.SessionID),
		telemetry.ClientIP(ctx.ClientAddr),
	)
	defer span.End()

	rctx := ctx.withCommand(spanCtx, command, telemetry.TraceID(spanCtx), telemetry.SpanID(spanCtx))

	result, err := h.dispatchIoctl(rctx, req)
	if err != nil {
		telemetry.RecordError(spanCtx, err)
		h.recordRequest(command, fsctl, start, types.StatusInternalError.String())
		return nil, err
	}
	span.SetAttributes(telemetry.SMBStatus(result.Status))
	h.recordRequest(command, fsctl, start, result.Status.String())
	logger.DebugCtx(rctx.Context, "IOCTL complete", logger.Status(result.Status), logger.DurationMs(logger.Since(start)))
	return result, nil
}

func (h *Handler) dispatchIoctl(ctx *SMBHandlerContext, req *IoctlRequest) (*HandlerResult, error) {
	if req.Flags&ioctlFlagIsFsctl == 0 {
		logger.DebugCtx(ctx.Context, "IOCTL without FSCTL flag - not supported", logger.Fsctl(req.CtlCode))
		return NewErrorResult(types.StatusNotSupported), nil
	}

	handler, ok := ioctlDispatch[req.CtlCode]
	if !ok {
		logger.DebugCtx(ctx.Context, "IOCTL unknown control code - not supported", logger.Fsctl(req.CtlCode))
		return NewErrorResult(types.StatusNotSupported), nil
	}

	logger.DebugCtx(ctx.Context, "IOCTL request",
		"fsctl_name", types.FsctlName(req.CtlCode),
		logger.FileID(req.FileID),
		"input_len", len(req.Input))

	return handler(h, ctx, req)
}

// ioctlResult builds the IOCTL response for output, failing with
// STATUS_BUFFER_TOO_SMALL when output exceeds MaxOutputResponse.
func ioctlResult(req *IoctlRequest, status types.Status, output []byte) *HandlerResult {
	if uint32(len(output)) > req.MaxOutputResponse {
		return NewErrorResult(types.StatusBufferTooSmall)
	}
	return NewResult(status, buildIoctlResponse(req.CtlCode, req.FileID, output))
}

// buildIoctlResponse encodes an SMB2 IOCTL response [MS-SMB2] 2.2.32.
func buildIoctlResponse(ctlCode uint32, fileID [16]byte, output []byte) []byte {
	w := smbenc.NewWriter(ioctlResponseFixedSize + len(output))
	w.WriteUint16(ioctlResponseStructureSize)
	w.WriteUint16(0) // Reserved
	w.WriteUint32(ctlCode)
	w.WriteFileID(fileID)
	w.WriteUint32(0) // InputOffset
	w.WriteUint32(0) // InputCount
	w.WriteUint32(uint32(smb2HeaderSize + ioctlResponseFixedSize))
	w.WriteUint32(uint32(len(output)))
	w.WriteUint32(0) // Flags
	w.WriteUint32(0) // Reserved2
	w.WriteBytes(output)
	return w.Bytes()
}
