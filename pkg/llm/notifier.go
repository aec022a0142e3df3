package llm

import (
	"context"

	"github.com/xhad/tradeqa/internal/types"
)

type notifierKey struct{}

// WithNotifier routes advisories raised while serving ctx to n instead of
// the client's configured notifier. Sessions sharing one client use it to
// keep advisories to the user who asked.
func WithNotifier(ctx context.Context, n types.Notifier) context.Context {
	return context.WithValue(ctx, notifierKey{}, n)
}

// NotifierFrom returns the notifier installed by WithNotifier.
func NotifierFrom(ctx context.Context) (types.Notifier, bool) {
	n, ok := ctx.Value(notifierKey{}).(types.Notifier)
	return n, ok && n != nil
}

func (c *Client) notify(ctx context.Context, message string) {
	if n, ok := NotifierFrom(ctx); ok {
		n.Notify(message)
		return
	}
	c.config.Notifier.Notify(message)
}
