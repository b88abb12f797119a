package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// ContextProvider returns attributes to add to every record. It is called
// from whatever goroutine logs, so it must be safe for concurrent use.
type ContextProvider func() []slog.Attr

// ContextHandler injects provider attributes into each record.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}

// AttrSource is a ContextProvider that can be bound after the logger exists,
// for state owned by objects that themselves need the logger.
type AttrSource struct {
	fn atomic.Pointer[ContextProvider]
}

// Bind sets the backing provider. A nil fn unbinds.
func (a *AttrSource) Bind(fn ContextProvider) {
	if fn == nil {
		a.fn.Store(nil)
		return
	}
	a.fn.Store(&fn)
}

// Provide returns the bound provider's attributes, or none.
func (a *AttrSource) Provide() []slog.Attr {
	if fn := a.fn.Load(); fn != nil {
		return (*fn)()
	}
	return nil
}
