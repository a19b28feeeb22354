package logger

import (
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// SMB request
	// ========================================================================
	KeyCommand   = "command"    // SMB2 command name
	KeyClientIP  = "client_ip"  // Client IP address
	KeySessionID = "session_id" // SMB2 session identifier
	KeyFileID    = "file_id"    // 16-byte SMB2 FileId (hex)
	KeyFsctl     = "fsctl"      // FSCTL control code (hex)
	KeyStatus    = "status"     // NT_STATUS returned to the client

	// ========================================================================
	// Offload tokens
	// ========================================================================
	KeyToken        = "token"         // Token bytes (hex)
	KeyTokenLen     = "token_len"     // Token length in bytes
	KeyPersistentID = "persistent_id" // Handle persistent identifier
	KeyVolatileID   = "volatile_id"   // Handle volatile identifier
	KeyBackend      = "backend"       // Token store backend: memory, badger

	// ========================================================================
	// Copy machinery
	// ========================================================================
	KeyOffset = "offset" // File offset
	KeyLength = "length" // Byte count
	KeyChunks = "chunks" // Number of copy chunks

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
)

// FileID returns a slog.Attr for a 16-byte SMB2 FileId
func FileID(id [16]byte) slog.Attr {
	return slog.String(KeyFileID, hex.EncodeToString(id[:]))
}

// Fsctl returns a slog.Attr for an FSCTL control code, formatted as hex
func Fsctl(code uint32) slog.Attr {
	return slog.String(KeyFsctl, fmt.Sprintf("0x%08X", code))
}

// Status returns a slog.Attr for an NT_STATUS value
func Status(s fmt.Stringer) slog.Attr {
	return slog.String(KeyStatus, s.String())
}

// Token returns a slog.Attr with the hex dump of an offload token.
// This is the structured replacement for dumping raw token bytes.
func Token(b []byte) slog.Attr {
	return slog.String(KeyToken, hex.EncodeToString(b))
}

// TokenLen returns a slog.Attr for the token length
func TokenLen(n int) slog.Attr {
	return slog.Int(KeyTokenLen, n)
}

// HandleIDs returns a group attr with the persistent and volatile ids of a handle
func HandleIDs(persistent, volatile uint64) slog.Attr {
	return slog.Group("handle",
		slog.String(KeyPersistentID, fmt.Sprintf("0x%016X", persistent)),
		slog.String(KeyVolatileID, fmt.Sprintf("0x%016X", volatile)),
	)
}

// Backend returns a slog.Attr for the token store backend name
func Backend(name string) slog.Attr {
	return slog.String(KeyBackend, name)
}

// Offset returns a slog.Attr for a file offset
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Length returns a slog.Attr for a byte count
func Length(n uint64) slog.Attr {
	return slog.Uint64(KeyLength, n)
}

// Chunks returns a slog.Attr for a copy chunk count
func Chunks(n int) slog.Attr {
	return slog.Int(KeyChunks, n)
}

// DurationMs returns a slog.Attr for operation duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
