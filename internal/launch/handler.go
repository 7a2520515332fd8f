package launch

import "context"

// Handler receives the launch event and reports whether launch may proceed.
type Handler interface {
	OnLaunch(ctx context.Context, opts Options) bool
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, opts Options) bool

// OnLaunch calls f.
func (f HandlerFunc) OnLaunch(ctx context.Context, opts Options) bool {
	return f(ctx, opts)
}

// Proceed is a base handler that always lets launch continue.
var Proceed Handler = HandlerFunc(func(context.Context, Options) bool { return true })

// Deny is a base handler that always refuses launch.
var Deny Handler = HandlerFunc(func(context.Context, Options) bool { return false })
