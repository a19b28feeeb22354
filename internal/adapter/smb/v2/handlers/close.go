package handlers

import (
	"time"

	"github.com/marmos91/smboffload/internal/adapter/smb/smbenc"
	"github.com/marmos91/smboffload/internal/adapter/smb/types"
	"github.com/marmos91/smboffload/internal/logger"
	"github.com/marmos91/smboffload/internal/telemetry"
)

const (
	closeRequestStructureSize  = 24
	closeResponseStructureSize = 60
)

// CloseRequest represents an SMB2 CLOSE request [MS-SMB2] 2.2.15.
type CloseRequest struct {
	Flags  uint16
	FileID [16]byte
}

// DecodeCloseRequest parses an SMB2 CLOSE request. The fixed wire format
// is 24 bytes.
func DecodeCloseRequest(body []byte) (*CloseRequest, error) {
	r := smbenc.NewReader(body)
	r.ExpectUint16(closeRequestStructureSize)
	req := &CloseRequest{Flags: r.ReadUint16()}
	r.Skip(4) // Reserved
	req.FileID = r.ReadFileID()
	if err := r.Err(); err != nil {
		return nil, err
	}
	return req, nil
}

// encodeCloseResponse builds the 60-byte CLOSE response [MS-SMB2] 2.2.16.
// Attributes are never returned, so everything past StructureSize is zero.
func encodeCloseResponse() []byte {
	w := smbenc.NewWriter(closeResponseStructureSize)
	w.WriteUint16(closeResponseStructureSize)
	w.WriteZeros(closeResponseStructureSize - 2)
	return w.Bytes()
}

// Close handles the SMB2 CLOSE command. Destroying the handle releases
// every offload token bound to it.
func (h *Handler) Close(ctx *SMBHandlerContext, body []byte) (*HandlerResult, error) {
	start := time.Now()
	command := types.CommandClose.String()

	req, err := DecodeCloseRequest(body)
	if err != nil {
		logger.DebugCtx(ctx.Context, "CLOSE: malformed request", "len", len(body), logger.Err(err))
		h.recordRequest(command, "", start, types.StatusInvalidParameter.String())
		return NewErrorResult(types.StatusInvalidParameter), nil
	}

	spanCtx, span := telemetry.StartSMBSpan(ctx.Context, command, req.FileID,
		telemetry.SMBSessionID(ctx.SessionID))
	defer span.End()
	rctx := ctx.withCommand(spanCtx, command, telemetry.TraceID(spanCtx), telemetry.SpanID(spanCtx))

	if !h.CloseFile(req.FileID) {
		logger.DebugCtx(rctx.Context, "CLOSE: file handle not found", logger.FileID(req.FileID))
		span.SetAttributes(telemetry.SMBStatus(types.StatusFileClosed))
		h.recordRequest(command, "", start, types.StatusFileClosed.String())
		return NewErrorResult(types.StatusFileClosed), nil
	}

	span.SetAttributes(telemetry.SMBStatus(types.StatusSuccess))
	h.recordRequest(command, "", start, types.StatusSuccess.String())
	logger.DebugCtx(rctx.Context, "CLOSE complete", logger.FileID(req.FileID), logger.DurationMs(logger.Since(start)))
	return NewResult(types.StatusSuccess, encodeCloseResponse()), nil
}

// CloseFile removes an open file and releases its offload tokens.
// Returns false if the FileID was not open.
func (h *Handler) CloseFile(fileID [16]byte) bool {
	v, ok := h.files.LoadAndDelete(string(fileID[:]))
	if !ok {
		return false
	}
	f := v.(*OpenFile)
	tokens := f.offloadLinks.Len()
	f.offloadLinks.Close()
	h.updateOpenFiles()

	logger.Debug("Open file closed", logger.FileID(fileID), "path", f.Path, "released_tokens", tokens)
	return true
}

// CloseTree closes every open file on a tree connection.
func (h *Handler) CloseTree(sessionID uint64, treeID uint32) int {
	return h.closeMatching(func(f *OpenFile) bool {
		return f.SessionID == sessionID && f.TreeID == treeID
	})
}

// CloseSession closes every open file owned by a session.
func (h *Handler) CloseSession(sessionID uint64) int {
	return h.closeMatching(func(f *OpenFile) bool {
		return f.SessionID == sessionID
	})
}

// CloseAll closes every open file.
func (h *Handler) CloseAll() int {
	return h.closeMatching(func(*OpenFile) bool { return true })
}

func (h *Handler) closeMatching(match func(*OpenFile) bool) int {
	var ids [][16]byte
	h.files.Range(func(_, v any) bool {
		if f := v.(*OpenFile); match(f) {
			ids = append(ids, f.FileID)
		}
		return true
	})

	closed := 0
	for _, id := range ids {
		if h.CloseFile(id) {
			closed++
		}
	}
	return closed
}
