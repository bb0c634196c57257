package mastodon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		Client:      srv.Client(),
		Host:        srv.URL,
		AccessToken: "dummy-token",
	}
}

func TestNotificationsFetch(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/api/v1/notifications", r.URL.Path)
		assert.Equal("Bearer dummy-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `[
			{"id": "111", "type": "mention", "account": {"id": "a1", "acct": "alice"}, "status": {"id": "s1", "in_reply_to_id": null, "visibility": "public"}},
			{"id": "112", "type": "follow", "account": {"id": "a2", "acct": "bob@remote.example"}},
			{"id": "113", "type": "severed_relationships", "account": {"id": "a3", "acct": "carol"}}
		]`)
	}))
	defer srv.Close()

	notifs, err := testClient(srv).Notifications(ctx)
	require.NoError(t, err)
	require.Len(t, notifs, 3)

	assert.Equal(KindMention, notifs[0].Kind)
	assert.Equal("alice", notifs[0].Account.Acct)
	require.NotNil(t, notifs[0].Status)
	assert.True(notifs[0].Status.IsParent())

	assert.Equal(KindFollow, notifs[1].Kind)
	assert.Nil(notifs[1].Status)

	// unrecognized types survive decoding; classification happens downstream
	assert.Equal(NotificationKind("severed_relationships"), notifs[2].Kind)
}

func TestErrorClassification(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/statuses/missing":
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": "Record not found"}`)
		case "/api/v1/statuses/limited":
			w.Header().Set("X-RateLimit-Limit", "300")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error": "Too many requests"}`)
		case "/api/v1/statuses/bad":
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"error": "Validation failed"}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()
	c := testClient(srv)

	_, err := c.Status(ctx, "missing")
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(ErrorNotFound, ae.Kind)
	assert.Equal("Record not found", ae.Message)
	assert.False(ae.Transient())
	assert.True(IsNotFound(err))

	_, err = c.Status(ctx, "limited")
	require.ErrorAs(t, err, &ae)
	assert.Equal(ErrorRateLimit, ae.Kind)
	assert.True(ae.Transient())
	require.NotNil(t, ae.Ratelimit)
	assert.Equal(300, ae.Ratelimit.Limit)
	assert.Equal(0, ae.Ratelimit.Remaining)

	_, err = c.Status(ctx, "bad")
	require.ErrorAs(t, err, &ae)
	assert.Equal(ErrorIllegalArgument, ae.Kind)
	assert.False(ae.Transient())

	_, err = c.Status(ctx, "other")
	require.ErrorAs(t, err, &ae)
	assert.Equal(ErrorServer, ae.Kind)
	assert.True(ae.Transient())
}

func TestNetworkError(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := testClient(srv)
	srv.Close()

	_, err := c.Me(context.Background())
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(ErrorNetwork, ae.Kind)
	assert.True(ae.Transient())
	assert.NotNil(ae.Unwrap())
}

func TestNonOK2xxIsSuccess(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/api/v1/notifications/n1/dismiss", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	// any 2xx is a success, not just 200
	assert.NoError(testClient(srv).DismissNotification(ctx, "n1"))
}

func TestPostStatusReply(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(http.MethodPost, r.Method)
		assert.Equal("/api/v1/statuses", r.URL.Path)
		assert.Equal("application/json", r.Header.Get("Content-Type"))
		fmt.Fprint(w, `{"id": "900", "visibility": "direct"}`)
	}))
	defer srv.Close()

	posted, err := testClient(srv).PostStatus(ctx, PostStatusParams{
		Status:      "@alice please add alt text",
		InReplyToID: "s1",
		Visibility:  VisibilityDirect,
	})
	require.NoError(t, err)
	assert.Equal("900", posted.ID)
	assert.Equal(VisibilityDirect, posted.Visibility)
}
