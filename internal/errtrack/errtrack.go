package errtrack

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// Init configures the global Sentry client. An empty DSN leaves error
// tracking disabled and every capture becomes a no-op.
func Init(dsn, env string) (flush func(), err error) {
	if dsn == "" {
		return func() {}, nil
	}
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		AttachStacktrace: true,
	})
	return func() { sentry.Flush(2 * time.Second) }, err
}

// Middleware attaches a per-request hub and reports panics before re-raising them.
func Middleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// Capture reports err to the hub carried by ctx, or the global hub.
func Capture(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}

// CaptureRequest reports err together with the request scope of c.
func CaptureRequest(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
		return
	}
	Capture(c.Request.Context(), err)
}
