// Package handlers implements the SMB2 copy-offload IOCTL handlers and the
// open-file table whose handles own offload tokens.
package handlers

import (
	"context"

	"github.com/marmos91/smboffload/internal/logger"
)

// SMBHandlerContext carries per-request state through the SMB2 handlers.
// Created by the dispatch layer for each incoming SMB2 request.
type SMBHandlerContext struct {
	// Context for cancellation, deadlines and tracing
	Context context.Context

	// ClientAddr is the remote address of the client
	ClientAddr string

	// SessionID from the request header
	SessionID uint64

	// TreeID from the request header
	TreeID uint32

	// MessageID from the request header
	MessageID uint64
}

// NewSMBHandlerContext creates a new handler context from request parameters.
func NewSMBHandlerContext(ctx context.Context, clientAddr string, sessionID uint64, treeID uint32, messageID uint64) *SMBHandlerContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SMBHandlerContext{
		Context:    ctx,
		ClientAddr: clientAddr,
		SessionID:  sessionID,
		TreeID:     treeID,
		MessageID:  messageID,
	}
}

// withCommand returns a copy whose Context carries a LogContext for the
// command, so *Ctx log calls include client, session and trace fields.
func (c *SMBHandlerContext) withCommand(ctx context.Context, command, traceID, spanID string) *SMBHandlerContext {
	lc := logger.NewLogContext(c.ClientAddr).ForCommand(command, traceID, spanID)
	lc.SessionID = c.SessionID

	out := *c
	out.Context = logger.WithContext(ctx, lc)
	return &out
}
