package offload

import (
	"context"
	"errors"

	"github.com/marmos91/smboffload/internal/logger"
	"github.com/marmos91/smboffload/internal/telemetry"
	"github.com/marmos91/smboffload/pkg/offload/kvstore"
	"go.opentelemetry.io/otel/trace"
)

// Store binds token to h.
//
// The token's store slot is locked for the whole call. If the slot already
// refers to h the call succeeds without changes. If it refers to another
// handle, or holds a value that is not a handle reference, ErrInternal is
// returned and the existing entry is left untouched. Otherwise the entry is
// written and a Link is attached to h's LinkSet so the entry is removed when
// the handle closes.
//
// ErrOutOfMemory is returned when the store is at its entry limit. Other
// store-layer errors are returned unchanged.
func (c *Context) Store(ctx context.Context, h Handle, token Token) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanOffloadStore,
		trace.WithAttributes(telemetry.OffloadToken(token)))
	defer span.End()

	err := c.bind(ctx, h, token)
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return err
}

func (c *Context) bind(ctx context.Context, h Handle, token Token) error {
	if err := c.ready(); err != nil {
		return err
	}
	if h == nil || h.OffloadLinks() == nil {
		return newError(ErrInternal, "handle cannot own offload links", token, nil)
	}
	if len(token) == 0 {
		return newError(ErrInternal, "empty offload token", nil, nil)
	}

	ref := h.OffloadRef()
	links := h.OffloadLinks()

	rec, err := c.kv.FetchLocked(ctx, token)
	if err != nil {
		c.metrics.ObserveStore(ResultError)
		return err
	}
	defer rec.Release()

	if value := rec.Value(); value != nil {
		existing, err := decodeRef(value)
		if err != nil {
			logger.ErrorCtx(ctx, "Corrupt offload token entry",
				logger.Token(token), logger.TokenLen(len(value)), logger.Err(err))
			c.metrics.ObserveStore(ResultCorrupt)
			return newError(ErrInternal, "corrupt offload token entry", token, err)
		}

		if existing == ref {
			c.metrics.ObserveStore(ResultExisting)
			return nil
		}

		logger.ErrorCtx(ctx, "Offload token already bound to another handle",
			logger.Token(token),
			logger.HandleIDs(existing.PersistentID, existing.VolatileID))
		c.metrics.ObserveStore(ResultCollision)
		return newError(ErrInternal, "offload token bound to another handle", token, nil)
	}

	link := &Link{
		owner: c,
		token: token.Clone(),
		ref:   ref,
	}

	if err := rec.Store(encodeRef(ref)); err != nil {
		if errors.Is(err, kvstore.ErrStoreFull) {
			logger.WarnCtx(ctx, "Offload token store full",
				logger.Token(token), "max_entries", c.kv.MaxEntries())
			c.metrics.ObserveStore(ResultFull)
			return newError(ErrOutOfMemory, "offload token store is full", token, err)
		}
		c.metrics.ObserveStore(ResultError)
		return err
	}

	if err := links.add(link); err != nil {
		// The handle is closing; nothing would ever release this entry.
		if delErr := rec.Delete(); delErr != nil {
			logger.ErrorCtx(ctx, "Failed to roll back offload token",
				logger.Token(token), logger.Err(delErr))
		}
		c.metrics.ObserveStore(ResultClosed)
		return newError(ErrInternal, "handle is closed", token, err)
	}

	c.metrics.ObserveStore(ResultCreated)
	c.metrics.SetActive(c.kv.Len())

	logger.DebugCtx(ctx, "Offload token stored",
		logger.Token(token), logger.HandleIDs(ref.PersistentID, ref.VolatileID))
	return nil
}

// Fetch resolves token to the handle it is bound to.
//
// ErrNotFound is returned for tokens without a binding and ErrInternal for
// corrupt entries. The returned ref is only valid while the caller can prove
// the handle is still open.
func (c *Context) Fetch(ctx context.Context, token Token) (HandleRef, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanOffloadFetch,
		trace.WithAttributes(telemetry.OffloadToken(token)))
	defer span.End()

	ref, err := c.resolve(ctx, token)
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return ref, err
}

func (c *Context) resolve(ctx context.Context, token Token) (HandleRef, error) {
	if err := c.ready(); err != nil {
		return HandleRef{}, err
	}

	rec, err := c.kv.FetchLocked(ctx, token)
	if err != nil {
		c.metrics.ObserveFetch(ResultError)
		return HandleRef{}, err
	}
	defer rec.Release()

	value := rec.Value()
	if value == nil {
		logger.DebugCtx(ctx, "Offload token not found", logger.Token(token))
		c.metrics.ObserveFetch(ResultMiss)
		return HandleRef{}, newError(ErrNotFound, "offload token not found", token, nil)
	}

	ref, err := decodeRef(value)
	if err != nil {
		logger.ErrorCtx(ctx, "Corrupt offload token entry",
			logger.Token(token), logger.TokenLen(len(value)), logger.Err(err))
		c.metrics.ObserveFetch(ResultCorrupt)
		return HandleRef{}, newError(ErrInternal, "corrupt offload token entry", token, err)
	}

	c.metrics.ObserveFetch(ResultHit)
	return ref, nil
}

// release removes the entry owned by l. Failures are logged and absorbed.
func (c *Context) release(ctx context.Context, l *Link) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanOffloadRelease,
		trace.WithAttributes(telemetry.OffloadToken(l.token)))
	defer span.End()

	if err := c.kv.Delete(ctx, l.token); err != nil {
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "Failed to release offload token",
			logger.Token(l.token),
			logger.HandleIDs(l.ref.PersistentID, l.ref.VolatileID),
			logger.Err(err))
		c.metrics.ObserveRelease(ResultError)
		return
	}

	c.metrics.ObserveRelease(ResultOK)
	c.metrics.SetActive(c.kv.Len())
	logger.DebugCtx(ctx, "Offload token released", logger.Token(l.token))
}
