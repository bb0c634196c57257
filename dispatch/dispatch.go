// Package dispatch runs the notification poll loop: fetch pending
// notifications, route each to the handler registered for its kind, and
// dismiss it once terminal handling completes. Each notification is an
// isolated unit of work; one failing handler never poisons its batch.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fedibot/fedibot/mastodon"
)

// HandlerFunc handles a single notification. Returning an error leaves the
// notification undismissed, so it is redelivered on a later poll
// (at-least-once).
type HandlerFunc func(ctx context.Context, n *mastodon.Notification) error

// Feed is the slice of the remote API the dispatcher needs.
type Feed interface {
	Notifications(ctx context.Context) ([]*mastodon.Notification, error)
	DismissNotification(ctx context.Context, id string) error
}

type Dispatcher struct {
	Logger *slog.Logger
	Feed   Feed
	// kind to handler; kinds without an entry are logged, skipped, and
	// dismissed so the remote inbox cannot grow unbounded
	Handlers map[mastodon.NotificationKind]HandlerFunc
	// pause between polls; validated positive by Run
	Interval time.Duration
}

// Run polls until ctx is cancelled. The pause between iterations is
// interrupted promptly by cancellation.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.Interval <= 0 {
		return fmt.Errorf("dispatch interval must be positive, got %s", d.Interval)
	}
	if d.Feed == nil {
		return fmt.Errorf("nil feed")
	}

	d.Logger.Info("starting notification poll loop", "interval", d.Interval.String())
	for {
		notifs, err := d.Feed.Notifications(ctx)
		if err != nil {
			fetchErrorCount.Inc()
			d.Logger.Warn("failed to fetch notifications; will retry next cycle", "err", err)
		} else {
			d.Logger.Debug("notifications fetched", "count", len(notifs))
			d.Dispatch(ctx, notifs)
		}

		select {
		case <-ctx.Done():
			d.Logger.Info("poll loop stopping", "reason", ctx.Err())
			return nil
		case <-time.After(d.Interval):
		}
	}
}

// Dispatch routes one batch, in the order the server returned it, with no
// deduplication.
func (d *Dispatcher) Dispatch(ctx context.Context, notifs []*mastodon.Notification) {
	for _, n := range notifs {
		handler, ok := d.Handlers[n.Kind]
		if !ok {
			d.Logger.Warn("no handler for notification type; dismissing", "type", n.Kind, "notification", n.ID)
			eventSkippedCount.WithLabelValues(string(n.Kind)).Inc()
			d.dismiss(ctx, n)
			continue
		}

		if err := d.handleOne(ctx, handler, n); err != nil {
			// bulkhead: record the failure, leave the notification for
			// redelivery, move on to its siblings
			eventErrorCount.WithLabelValues(string(n.Kind)).Inc()
			d.Logger.Error("notification handling failed", "type", n.Kind, "notification", n.ID, "err", err)
			continue
		}
		eventProcessCount.WithLabelValues(string(n.Kind)).Inc()
		d.dismiss(ctx, n)
	}
}

// handleOne invokes the handler, converting panics into errors the same way
// an HTTP server would.
func (d *Dispatcher) handleOne(ctx context.Context, handler HandlerFunc, n *mastodon.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, n)
}

// dismiss marks the notification handled on the remote service. A not-found
// response means it was already dismissed, which is fine. Other failures are
// logged and not retried within the cycle; the notification will simply be
// fetched again.
func (d *Dispatcher) dismiss(ctx context.Context, n *mastodon.Notification) {
	err := d.Feed.DismissNotification(ctx, n.ID)
	if err == nil {
		d.Logger.Debug("notification dismissed", "notification", n.ID)
		return
	}
	if mastodon.IsNotFound(err) {
		d.Logger.Debug("notification already dismissed", "notification", n.ID)
		return
	}
	dismissErrorCount.Inc()
	d.Logger.Warn("failed to dismiss notification; it will be re-fetched", "notification", n.ID, "err", err)
}
