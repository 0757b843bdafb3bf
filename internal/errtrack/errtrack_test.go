package errtrack

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureUsesContextHub(t *testing.T) {
	var captured []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			captured = append(captured, event)
			return nil
		},
	})
	require.NoError(t, err)

	hub := sentry.NewHub(client, sentry.NewScope())
	ctx := sentry.SetHubOnContext(context.Background(), hub)

	Capture(ctx, errors.New("payment verification failed"))
	Capture(ctx, nil)

	require.Len(t, captured, 1)
	require.NotEmpty(t, captured[0].Exception)
	assert.Equal(t, "payment verification failed", captured[0].Exception[0].Value)
}

func TestInitWithoutDSNIsNoop(t *testing.T) {
	flush, err := Init("", "test")
	require.NoError(t, err)
	assert.NotPanics(t, flush)
}
