package offload

import (
	"sync/atomic"

	"github.com/marmos91/smboffload/internal/logger"
	"github.com/marmos91/smboffload/pkg/offload/kvstore"
)

// Context owns the token store. It is created once by the owning scope
// and passed to every registry call.
type Context struct {
	kv          *kvstore.Store
	metrics     *Metrics
	initialized atomic.Bool
}

type contextOptions struct {
	storeOpts kvstore.Options
	backend   kvstore.Backend
	metrics   *Metrics
}

// Option configures InitContext.
type Option func(*contextOptions)

// WithStoreOptions selects and configures the token store backend.
func WithStoreOptions(opts kvstore.Options) Option {
	return func(o *contextOptions) {
		o.storeOpts = opts
	}
}

// WithBackend uses an already constructed backend. The Context takes
// ownership and closes it on Close.
func WithBackend(b kvstore.Backend) Option {
	return func(o *contextOptions) {
		o.backend = b
	}
}

// WithMaxEntries caps the number of live bindings.
func WithMaxEntries(n int) Option {
	return func(o *contextOptions) {
		o.storeOpts.MaxEntries = n
	}
}

// WithMetrics records registry activity. A nil Metrics disables recording.
func WithMetrics(m *Metrics) Option {
	return func(o *contextOptions) {
		o.metrics = m
	}
}

// InitContext returns a ready registry context.
//
// Passing a previously returned, initialized context is a no-op that
// returns it unchanged. Passing a context that was never initialized is an
// ErrInternal error. With a nil existing context a new token store is built;
// if that fails the partial resources are released and ErrInternal is
// returned.
func InitContext(existing *Context, opts ...Option) (*Context, error) {
	if existing != nil {
		if existing.initialized.Load() {
			return existing, nil
		}
		return nil, newError(ErrInternal, "offload context exists but is not initialized", nil, nil)
	}

	var o contextOptions
	for _, opt := range opts {
		opt(&o)
	}

	var store *kvstore.Store
	if o.backend != nil {
		store = kvstore.NewStoreWithBackend(o.backend, o.storeOpts.MaxEntries)
	} else {
		var err error
		store, err = kvstore.NewStore(o.storeOpts)
		if err != nil {
			logger.Error("Failed to open offload token store",
				logger.Backend(string(o.storeOpts.Backend)), logger.Err(err))
			return nil, newError(ErrInternal, "failed to open offload token store", nil, err)
		}
	}

	c := &Context{
		kv:      store,
		metrics: o.metrics,
	}
	c.initialized.Store(true)

	logger.Debug("Offload context initialized",
		logger.Backend(store.Name()), "max_entries", store.MaxEntries())

	return c, nil
}

// Initialized reports whether c is ready for use.
func (c *Context) Initialized() bool {
	return c != nil && c.initialized.Load()
}

// Len returns the number of live token bindings.
func (c *Context) Len() int {
	if !c.Initialized() {
		return 0
	}
	return c.kv.Len()
}

// Backend returns the token store backend name.
func (c *Context) Backend() string {
	if !c.Initialized() {
		return ""
	}
	return c.kv.Name()
}

// Close closes the token store. A closed context is no longer initialized.
// Links still held by open handles become stale; their release is logged
// and absorbed.
func (c *Context) Close() error {
	if c == nil || !c.initialized.CompareAndSwap(true, false) {
		return nil
	}
	c.metrics.SetActive(0)
	return c.kv.Close()
}

func (c *Context) ready() error {
	if !c.Initialized() {
		return newError(ErrInternal, "offload context is not initialized", nil, nil)
	}
	return nil
}
