package telemetry

import (
	"context"
	"encoding/hex"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys.
const (
	AttrClientIP = "client.ip"

	AttrSMBCommand   = "smb.command"
	AttrSMBSessionID = "smb.session_id"
	AttrSMBFileID    = "smb.file_id"
	AttrSMBFsctl     = "smb.fsctl"
	AttrSMBStatus    = "smb.status"
	AttrSMBChunks    = "smb.chunks"
	AttrSMBBytes     = "smb.bytes"

	AttrOffloadToken   = "offload.token"
	AttrOffloadKind    = "offload.kind"
	AttrOffloadBackend = "offload.backend"
)

// Span names.
const (
	SpanSMBIoctl = "smb.IOCTL"
	SpanSMBClose = "smb.CLOSE"

	SpanOffloadStore   = "offload.store"
	SpanOffloadFetch   = "offload.fetch"
	SpanOffloadRelease = "offload.release"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// SMBSessionID returns an attribute for the SMB session id
func SMBSessionID(id uint64) attribute.KeyValue {
	return attribute.Int64(AttrSMBSessionID, int64(id))
}

// SMBFileID returns an attribute for a 16-byte SMB2 FileId
func SMBFileID(id [16]byte) attribute.KeyValue {
	return attribute.String(AttrSMBFileID, hex.EncodeToString(id[:]))
}

// SMBFsctl returns an attribute for an FSCTL code
func SMBFsctl(code uint32) attribute.KeyValue {
	return attribute.String(AttrSMBFsctl, fmt.Sprintf("0x%08X", code))
}

// SMBStatus returns an attribute for an NT status
func SMBStatus(status fmt.Stringer) attribute.KeyValue {
	return attribute.String(AttrSMBStatus, status.String())
}

// SMBChunks returns an attribute for a copychunk count
func SMBChunks(n int) attribute.KeyValue {
	return attribute.Int(AttrSMBChunks, n)
}

// SMBBytes returns an attribute for bytes copied
func SMBBytes(n uint64) attribute.KeyValue {
	return attribute.Int64(AttrSMBBytes, int64(n))
}

// OffloadToken returns an attribute for an offload token
func OffloadToken(token []byte) attribute.KeyValue {
	return attribute.String(AttrOffloadToken, hex.EncodeToString(token))
}

// OffloadKind returns an attribute for the FSCTL a token was issued for
func OffloadKind(kind uint32) attribute.KeyValue {
	return attribute.String(AttrOffloadKind, fmt.Sprintf("0x%08X", kind))
}

// OffloadBackend returns an attribute for the token store backend
func OffloadBackend(name string) attribute.KeyValue {
	return attribute.String(AttrOffloadBackend, name)
}

// StartSMBSpan starts a span for an SMB2 command.
func StartSMBSpan(ctx context.Context, name string, fileID [16]byte, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		attribute.String(AttrSMBCommand, name),
		SMBFileID(fileID),
	}, attrs...)
	return StartSpan(ctx, "smb."+name, trace.WithAttributes(all...))
}
