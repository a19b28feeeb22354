package logger

import (
	"context"
	"net"
	"time"
)

type logContextKey struct{}

// LogContext is the request-scoped part of a log line. The *Ctx functions
// prepend its non-empty fields.
type LogContext struct {
	TraceID   string
	SpanID    string
	Command   string // SMB2 command name
	ClientIP  string // host part of the client address
	SessionID uint64
	StartTime time.Time
}

// NewLogContext starts a LogContext for a request from clientAddr, which
// may be "host:port" or a bare host.
func NewLogContext(clientAddr string) *LogContext {
	ip := clientAddr
	if host, _, err := net.SplitHostPort(clientAddr); err == nil {
		ip = host
	}
	return &LogContext{ClientIP: ip, StartTime: time.Now()}
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey{}, lc)
}

// FromContext returns the LogContext attached to ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey{}).(*LogContext)
	return lc
}

// Clone returns a copy of lc. A nil receiver yields nil.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// ForCommand returns a copy tagged with the command and the current span.
func (lc *LogContext) ForCommand(command, traceID, spanID string) *LogContext {
	c := lc.Clone()
	if c == nil {
		c = &LogContext{StartTime: time.Now()}
	}
	c.Command, c.TraceID, c.SpanID = command, traceID, spanID
	return c
}

// DurationMs is the time since StartTime in milliseconds, or 0 when unset.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Since(lc.StartTime)
}
