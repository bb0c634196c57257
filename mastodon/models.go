package mastodon

import "time"

// Status visibility levels, as sent over the wire.
type Visibility string

const (
	VisibilityPublic   = Visibility("public")
	VisibilityUnlisted = Visibility("unlisted")
	VisibilityPrivate  = Visibility("private")
	VisibilityDirect   = Visibility("direct")
)

// Notification types the API can deliver. Servers may add new types at any
// time, so callers must tolerate values outside this list.
type NotificationKind string

const (
	KindMention       = NotificationKind("mention")
	KindReblog        = NotificationKind("reblog")
	KindFavourite     = NotificationKind("favourite")
	KindFollow        = NotificationKind("follow")
	KindPoll          = NotificationKind("poll")
	KindFollowRequest = NotificationKind("follow_request")
	KindUpdate        = NotificationKind("update")
)

type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Acct        string `json:"acct"`
	DisplayName string `json:"display_name"`
	Bot         bool   `json:"bot"`
	URL         string `json:"url"`
}

type MediaAttachment struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
	// alt text; empty or absent when the author provided none
	Description string `json:"description"`
}

type Status struct {
	ID               string            `json:"id"`
	URI              string            `json:"uri"`
	URL              string            `json:"url"`
	Account          Account           `json:"account"`
	InReplyToID      *string           `json:"in_reply_to_id"`
	Content          string            `json:"content"`
	Visibility       Visibility        `json:"visibility"`
	MediaAttachments []MediaAttachment `json:"media_attachments"`
	CreatedAt        time.Time         `json:"created_at"`
}

// IsParent reports whether the status starts a thread (it is not a reply).
func (s *Status) IsParent() bool {
	return s.InReplyToID == nil || *s.InReplyToID == ""
}

type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"type"`
	CreatedAt time.Time        `json:"created_at"`
	Account   Account          `json:"account"`
	// set for mention, reblog, favourite, poll, and update notifications
	Status *Status `json:"status,omitempty"`
}

// Relationship between the authenticated account and another account.
type Relationship struct {
	ID         string `json:"id"`
	Following  bool   `json:"following"`
	FollowedBy bool   `json:"followed_by"`
	Muting     bool   `json:"muting"`
	Blocking   bool   `json:"blocking"`
}

// StatusContext holds the thread around a status.
type StatusContext struct {
	Ancestors   []*Status `json:"ancestors"`
	Descendants []*Status `json:"descendants"`
}
