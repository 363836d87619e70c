package displaycontrol

import (
	"context"

	"github.com/goliatone/go-output-cache/entity"
)

type ctxKey struct{}

// WithControl returns a copy of ctx carrying dc.
func WithControl(ctx context.Context, dc *DisplayControl) context.Context {
	return context.WithValue(ctx, ctxKey{}, dc)
}

// FromContext returns the control attached to ctx, if any.
func FromContext(ctx context.Context) (*DisplayControl, bool) {
	dc, ok := ctx.Value(ctxKey{}).(*DisplayControl)
	return dc, ok && dc != nil
}

// Announce announces es on the control in ctx. It does nothing when the
// request is not output cached.
func Announce(ctx context.Context, es ...entity.Entity) {
	if dc, ok := FromContext(ctx); ok {
		dc.AnnounceRange(es...)
	}
}

// MarkUncacheable marks the request in ctx as uncacheable, if there is one.
func MarkUncacheable(ctx context.Context) {
	if dc, ok := FromContext(ctx); ok {
		dc.MarkRequestAsUncacheable()
	}
}
