// Package mastodon is a minimal client for the parts of the Mastodon v1 REST
// API that an automated account needs: reading notifications and statuses,
// checking relationships, and posting boosts, favourites, and replies.
package mastodon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"

	"github.com/fedibot/fedibot/util"
)

type Client struct {
	// Client is an HTTP client to use. If not set, defaults to util.RobustHTTPClient().
	Client      *http.Client
	Host        string
	AccessToken string
	UserAgent   *string
	// optional client-side request throttle, applied before every call
	Limiter *rate.Limiter
}

func (c *Client) getClient() *http.Client {
	if c.Client == nil {
		return util.RobustHTTPClient()
	}
	return c.Client
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, bodyobj any, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return &APIError{Kind: ErrorNetwork, Message: "rate limiter wait", Wrapped: err}
		}
	}

	var body io.Reader
	if bodyobj != nil {
		b, err := json.Marshal(bodyobj)
		if err != nil {
			return &APIError{Kind: ErrorIllegalArgument, Message: "encoding request body", Wrapped: err}
		}
		body = bytes.NewReader(b)
	}

	uri := strings.TrimSuffix(c.Host, "/") + path
	if len(params) > 0 {
		uri += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return &APIError{Kind: ErrorIllegalArgument, Message: "building request", Wrapped: err}
	}
	if bodyobj != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != nil {
		req.Header.Set("User-Agent", *c.UserAgent)
	} else {
		req.Header.Set("User-Agent", "fedibot/"+versioninfo.Short())
	}
	if c.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	}

	resp, err := c.getClient().Do(req)
	if err != nil {
		return &APIError{Kind: ErrorNetwork, Message: "request failed", Wrapped: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var eb apiErrorBody
		// error bodies are best-effort JSON; fall back to the status text
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return errorFromResponse(resp, eb)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{Kind: ErrorAPI, StatusCode: resp.StatusCode, Message: "decoding response", Wrapped: err}
		}
	}
	return nil
}

// Notifications fetches the pending notifications for the authenticated
// account, in the order the server returns them.
func (c *Client) Notifications(ctx context.Context) ([]*Notification, error) {
	var out []*Notification
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DismissNotification marks a single notification as read so it is not
// delivered again. Dismissing an already-dismissed notification yields a
// not-found from the server; callers should treat that as success.
func (c *Client) DismissNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/notifications/%s/dismiss", id), nil, nil, nil)
}

func (c *Client) Account(ctx context.Context, id string) (*Account, error) {
	var out Account
	if err := c.do(ctx, http.MethodGet, "/api/v1/accounts/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the account the access token belongs to.
func (c *Client) Me(ctx context.Context) (*Account, error) {
	var out Account
	if err := c.do(ctx, http.MethodGet, "/api/v1/accounts/verify_credentials", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status(ctx context.Context, id string) (*Status, error) {
	var out Status
	if err := c.do(ctx, http.MethodGet, "/api/v1/statuses/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StatusContext(ctx context.Context, id string) (*StatusContext, error) {
	var out StatusContext
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/statuses/%s/context", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Relationships looks up the relationship between the authenticated account
// and each of the given account IDs.
func (c *Client) Relationships(ctx context.Context, accountIDs []string) ([]*Relationship, error) {
	params := url.Values{}
	for _, id := range accountIDs {
		params.Add("id[]", id)
	}
	var out []*Relationship
	if err := c.do(ctx, http.MethodGet, "/api/v1/accounts/relationships", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reblog boosts a status. Boosting an already-boosted status is a server-side
// no-op; this client adds no deduplication of its own.
func (c *Client) Reblog(ctx context.Context, statusID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/statuses/%s/reblog", statusID), nil, nil, nil)
}

func (c *Client) Favourite(ctx context.Context, statusID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/statuses/%s/favourite", statusID), nil, nil, nil)
}

type PostStatusParams struct {
	Status      string     `json:"status"`
	InReplyToID string     `json:"in_reply_to_id,omitempty"`
	Visibility  Visibility `json:"visibility,omitempty"`
}

func (c *Client) PostStatus(ctx context.Context, params PostStatusParams) (*Status, error) {
	var out Status
	if err := c.do(ctx, http.MethodPost, "/api/v1/statuses", nil, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
