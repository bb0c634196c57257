package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fedibot/fedibot/mastodon"
)

type fakeFeed struct {
	pending   []*mastodon.Notification
	dismissed []string
	// ids that fail dismissal once, then succeed
	failDismiss map[string]bool
	fetchErr    error
	fetches     int
}

func (f *fakeFeed) Notifications(ctx context.Context) ([]*mastodon.Notification, error) {
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.pending, nil
}

func (f *fakeFeed) DismissNotification(ctx context.Context, id string) error {
	if f.failDismiss[id] {
		f.failDismiss[id] = false
		return &mastodon.APIError{Kind: mastodon.ErrorServer, StatusCode: 502, Message: "bad gateway"}
	}
	for _, seen := range f.dismissed {
		if seen == id {
			// second dismissal of the same notification: remote treats it
			// as unknown
			return &mastodon.APIError{Kind: mastodon.ErrorNotFound, StatusCode: 404, Message: "Record not found"}
		}
	}
	f.dismissed = append(f.dismissed, id)
	return nil
}

func notif(id string, kind mastodon.NotificationKind) *mastodon.Notification {
	return &mastodon.Notification{ID: id, Kind: kind, Account: mastodon.Account{ID: "a-" + id, Acct: "someone"}}
}

func testDispatcher(feed *fakeFeed, handlers map[mastodon.NotificationKind]HandlerFunc) *Dispatcher {
	return &Dispatcher{
		Logger:   slog.Default(),
		Feed:     feed,
		Handlers: handlers,
		Interval: 10 * time.Millisecond,
	}
}

func TestDispatchBatch(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var handled []string
	handlers := map[mastodon.NotificationKind]HandlerFunc{
		mastodon.KindMention: func(ctx context.Context, n *mastodon.Notification) error {
			handled = append(handled, n.ID)
			return nil
		},
	}
	feed := &fakeFeed{}
	d := testDispatcher(feed, handlers)

	d.Dispatch(ctx, []*mastodon.Notification{notif("1", mastodon.KindMention), notif("2", mastodon.KindMention)})
	assert.Equal([]string{"1", "2"}, handled)
	assert.Equal([]string{"1", "2"}, feed.dismissed)
}

func TestDismissalIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	feed := &fakeFeed{}
	d := testDispatcher(feed, map[mastodon.NotificationKind]HandlerFunc{
		mastodon.KindFollow: func(ctx context.Context, n *mastodon.Notification) error { return nil },
	})

	n := notif("7", mastodon.KindFollow)
	// same notification delivered twice (e.g. dismissal raced the next
	// fetch); the second dismissal hits a remote 404 and is a no-op
	d.Dispatch(ctx, []*mastodon.Notification{n})
	d.Dispatch(ctx, []*mastodon.Notification{n})

	assert.Equal([]string{"7"}, feed.dismissed)
}

func TestUnknownKindSkippedAndDismissed(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var handled []string
	feed := &fakeFeed{}
	d := testDispatcher(feed, map[mastodon.NotificationKind]HandlerFunc{
		mastodon.KindMention: func(ctx context.Context, n *mastodon.Notification) error {
			handled = append(handled, n.ID)
			return nil
		},
	})

	d.Dispatch(ctx, []*mastodon.Notification{
		notif("1", mastodon.KindMention),
		notif("2", mastodon.NotificationKind("unsupported_type")),
		notif("3", mastodon.KindMention),
	})

	// the unknown kind neither fails the batch nor lingers in the inbox
	assert.Equal([]string{"1", "3"}, handled)
	assert.Equal([]string{"1", "2", "3"}, feed.dismissed)
}

func TestHandlerFailureIsolated(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	feed := &fakeFeed{}
	d := testDispatcher(feed, map[mastodon.NotificationKind]HandlerFunc{
		mastodon.KindMention: func(ctx context.Context, n *mastodon.Notification) error {
			if n.ID == "2" {
				return errors.New("boom")
			}
			return nil
		},
	})

	d.Dispatch(ctx, []*mastodon.Notification{
		notif("1", mastodon.KindMention),
		notif("2", mastodon.KindMention),
		notif("3", mastodon.KindMention),
	})

	// the failed notification stays undismissed for redelivery
	assert.Equal([]string{"1", "3"}, feed.dismissed)
}

func TestHandlerPanicIsolated(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	feed := &fakeFeed{}
	d := testDispatcher(feed, map[mastodon.NotificationKind]HandlerFunc{
		mastodon.KindMention: func(ctx context.Context, n *mastodon.Notification) error {
			if n.ID == "1" {
				panic("rule exploded")
			}
			return nil
		},
	})

	d.Dispatch(ctx, []*mastodon.Notification{
		notif("1", mastodon.KindMention),
		notif("2", mastodon.KindMention),
	})
	assert.Equal([]string{"2"}, feed.dismissed)
}

func TestDismissFailureDoesNotStopBatch(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	feed := &fakeFeed{failDismiss: map[string]bool{"1": true}}
	d := testDispatcher(feed, map[mastodon.NotificationKind]HandlerFunc{
		mastodon.KindMention: func(ctx context.Context, n *mastodon.Notification) error { return nil },
	})

	d.Dispatch(ctx, []*mastodon.Notification{
		notif("1", mastodon.KindMention),
		notif("2", mastodon.KindMention),
	})
	// "1" failed dismissal (no in-cycle retry); "2" still went through
	assert.Equal([]string{"2"}, feed.dismissed)
}

func TestRunStopsOnCancel(t *testing.T) {
	assert := assert.New(t)

	feed := &fakeFeed{}
	d := testDispatcher(feed, nil)
	d.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()

	// let it complete at least one fetch, then cancel mid-pause
	assert.Eventually(func() bool { return feed.fetches >= 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop promptly after cancellation")
	}
}

func TestRunRejectsNonPositiveInterval(t *testing.T) {
	assert := assert.New(t)

	d := testDispatcher(&fakeFeed{}, nil)
	d.Interval = 0
	assert.Error(d.Run(context.Background()))

	d.Interval = -time.Second
	assert.Error(d.Run(context.Background()))
}

func TestRunContinuesPastFetchError(t *testing.T) {
	assert := assert.New(t)

	feed := &fakeFeed{fetchErr: fmt.Errorf("connect: connection refused")}
	d := testDispatcher(feed, nil)
	d.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	assert.Eventually(func() bool { return feed.fetches >= 3 }, time.Second, time.Millisecond)
	cancel()
	assert.NoError(<-done)
}
