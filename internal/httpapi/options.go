package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
)

// settings are set once by the server command before NewMux is called.
var settings = struct {
	base        context.Context
	loadTimeout time.Duration
	cors        *cors.Options
}{base: context.Background()}

// SetBaseContext makes handlers that load models stop when ctx is done.
// A nil ctx restores context.Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	settings.base = ctx
}

// SetLoadTimeout bounds synchronous load and reload requests. Zero or a
// negative duration leaves them unbounded.
func SetLoadTimeout(d time.Duration) {
	settings.loadTimeout = max(d, 0)
}

// SetCORSOptions enables CORS for the given origins, methods and headers.
// With enabled false no CORS middleware is installed.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	if !enabled {
		settings.cors = nil
		return
	}
	settings.cors = &cors.Options{
		AllowedOrigins: append([]string(nil), origins...),
		AllowedMethods: append([]string(nil), methods...),
		AllowedHeaders: append([]string(nil), headers...),
	}
}

// requestContext is the context of a lifecycle request: done when the
// client goes away, when the server shuts down or when the load timeout
// elapses.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := joinContexts(r.Context(), settings.base)
	if settings.loadTimeout == 0 {
		return ctx, cancel
	}
	tctx, tcancel := context.WithTimeout(ctx, settings.loadTimeout)
	return tctx, func() { tcancel(); cancel() }
}

// joinContexts derives from a a context that is also cancelled with b.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(a)
	stop := context.AfterFunc(b, func() { cancel(context.Cause(b)) })
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
