package amqp

import (
	"context"
	"log/slog"
	"time"

	"finances/internal/notify"
)

// ChangePublisher is the subset of Client the forwarder needs.
type ChangePublisher interface {
	PublishChange(ctx context.Context, e notify.Event) error
}

// Forwarder relays broker events to AMQP. Failed publishes are retried with
// exponential backoff until they succeed or ctx ends. Its subscription is
// queued, so events published during a retry are forwarded afterwards rather
// than coalesced.
type Forwarder struct {
	pub        ChangePublisher
	sub        *notify.Subscription
	maxRetries int
	sleep      func(context.Context, time.Duration) error
}

func NewForwarder(pub ChangePublisher, broker *notify.Broker) *Forwarder {
	return &Forwarder{
		pub:        pub,
		sub:        broker.SubscribeQueue(),
		maxRetries: 5,
		sleep:      sleepCtx,
	}
}

// Run forwards events until ctx is done or the broker closes. It returns nil
// on a closed broker and ctx.Err() on cancellation.
func (f *Forwarder) Run(ctx context.Context) error {
	defer f.sub.Close()
	slog.InfoContext(ctx, "Change forwarder started")

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Change forwarder stopping", "reason", ctx.Err())
			return ctx.Err()
		case e, ok := <-f.sub.C():
			if !ok {
				slog.InfoContext(ctx, "Change forwarder stopped, broker closed")
				return nil
			}
			if err := f.forward(ctx, e); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.ErrorContext(ctx, "Dropping change event after retries",
					"error", err,
					"entity", e.Entity,
					"op", e.Op,
					"id", e.ID)
			}
		}
	}
}

func (f *Forwarder) forward(ctx context.Context, e notify.Event) error {
	var err error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if err = f.pub.PublishChange(ctx, e); err == nil {
			return nil
		}
		slog.WarnContext(ctx, "Change publish failed",
			"error", err,
			"attempt", attempt+1,
			"id", e.ID)
		if attempt == f.maxRetries {
			break
		}
		if serr := f.sleep(ctx, exponentialBackoff(attempt)); serr != nil {
			return serr
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
