package handlers

import "github.com/marmos91/smboffload/internal/adapter/smb/types"

// HandlerResult contains the response body and status of an SMB2 command.
type HandlerResult struct {
	// Data contains the response body (excluding the 64-byte header).
	// For error responses, this may be nil.
	Data []byte

	// Status is the NT_STATUS code indicating the operation result.
	Status types.Status
}

// NewResult creates a new handler result with the given status and data.
func NewResult(status types.Status, data []byte) *HandlerResult {
	return &HandlerResult{
		Status: status,
		Data:   data,
	}
}

// NewErrorResult creates an error result with the given status and no data.
func NewErrorResult(status types.Status) *HandlerResult {
	return &HandlerResult{
		Status: status,
	}
}
