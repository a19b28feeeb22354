package types

import "fmt"

// Status represents an NT_STATUS code returned in SMB2 responses.
//
// [MS-ERREF] Section 2.3
type Status uint32

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0x00000000

	// StatusInvalidHandle indicates the file handle is invalid.
	StatusInvalidHandle Status = 0xC0000008

	// StatusInvalidParameter indicates a malformed request or, for
	// copychunk, that a server-side copy limit was exceeded.
	StatusInvalidParameter Status = 0xC000000D

	// StatusInvalidDeviceRequest indicates the request is not valid for this object.
	StatusInvalidDeviceRequest Status = 0xC0000010

	// StatusNoMemory indicates the server could not allocate a resource.
	StatusNoMemory Status = 0xC0000017

	// StatusAccessDenied indicates the caller lacks permission.
	StatusAccessDenied Status = 0xC0000022

	// StatusBufferTooSmall indicates the output buffer cannot hold the response.
	StatusBufferTooSmall Status = 0xC0000023

	// StatusObjectNameNotFound indicates the named object does not exist.
	// Returned for offload tokens that do not resolve to an open.
	StatusObjectNameNotFound Status = 0xC0000034

	// StatusNotSupported indicates the request is not supported.
	StatusNotSupported Status = 0xC00000BB

	// StatusInternalError indicates an internal consistency failure.
	StatusInternalError Status = 0xC00000E5

	// StatusFileClosed indicates the FileId does not refer to an open file.
	StatusFileClosed Status = 0xC0000128
)

// String returns a human-readable name for the status code.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "STATUS_SUCCESS"
	case StatusInvalidHandle:
		return "STATUS_INVALID_HANDLE"
	case StatusInvalidParameter:
		return "STATUS_INVALID_PARAMETER"
	case StatusInvalidDeviceRequest:
		return "STATUS_INVALID_DEVICE_REQUEST"
	case StatusNoMemory:
		return "STATUS_NO_MEMORY"
	case StatusAccessDenied:
		return "STATUS_ACCESS_DENIED"
	case StatusBufferTooSmall:
		return "STATUS_BUFFER_TOO_SMALL"
	case StatusObjectNameNotFound:
		return "STATUS_OBJECT_NAME_NOT_FOUND"
	case StatusNotSupported:
		return "STATUS_NOT_SUPPORTED"
	case StatusInternalError:
		return "STATUS_INTERNAL_ERROR"
	case StatusFileClosed:
		return "STATUS_FILE_CLOSED"
	default:
		return fmt.Sprintf("STATUS_0x%08X", uint32(s))
	}
}

// IsSuccess returns true if the status indicates success.
// NT_STATUS success codes have severity 00 (bits 30-31 are 0).
func (s Status) IsSuccess() bool {
	return (uint32(s) & 0xC0000000) == 0
}

// IsError returns true if the status indicates an error.
// NT_STATUS error codes have severity 11 (bits 30-31 are both set).
func (s Status) IsError() bool {
	return (uint32(s) & 0xC0000000) == 0xC0000000
}

// Severity returns the severity level (0-3) of the status.
func (s Status) Severity() int {
	return int((uint32(s) >> 30) & 0x3)
}
