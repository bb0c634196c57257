// Package engine implements the bot's response behavior: for each inbound
// notification kind it evaluates the configured policies and performs the
// resulting actions (boost, favourite, notice, welcome message) plus store
// bookkeeping.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/fedibot/fedibot/mastodon"
	"github.com/fedibot/fedibot/policy"
	"github.com/fedibot/fedibot/store"
)

// Client is the slice of the remote API the engine needs.
type Client interface {
	Status(ctx context.Context, id string) (*mastodon.Status, error)
	StatusContext(ctx context.Context, id string) (*mastodon.StatusContext, error)
	Account(ctx context.Context, id string) (*mastodon.Account, error)
	Relationships(ctx context.Context, accountIDs []string) ([]*mastodon.Relationship, error)
	Reblog(ctx context.Context, statusID string) error
	Favourite(ctx context.Context, statusID string) error
	PostStatus(ctx context.Context, params mastodon.PostStatusParams) (*mastodon.Status, error)
}

type Renderer interface {
	Render(name string, data map[string]any) (string, error)
}

// Engine holds the collaborators and the immutable policy configuration.
//
// Store is optional; when nil, bookkeeping is skipped.
type Engine struct {
	Logger   *slog.Logger
	Client   Client
	Renderer Renderer
	Store    store.Store

	Boosts     policy.Policy
	Favourites policy.Policy
	Welcome    policy.MessageConfig
	Report     policy.MessageConfig
}

// A mention whose text carries a $report tag is a report addressed to the
// operator, not a post to act on. The tag must stand alone, so $report at the
// start of a word triggers and my$report does not; everything after it is the
// report message.
var reportPattern = regexp.MustCompile(`(?s)(?:^|[\s>])\$report\b\s*(.*)`)

// reportRequest extracts the report message from a status body. The body is
// HTML; only the trailing paragraph close needs stripping for a usable
// message.
func reportRequest(content string) (string, bool) {
	m := reportPattern.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	msg := strings.TrimSpace(m[1])
	msg = strings.TrimSpace(strings.TrimSuffix(msg, "</p>"))
	return msg, true
}

// isFollower queries the relationship between the bot account and the given
// account and reads the followed_by flag of the first record.
func (eng *Engine) isFollower(ctx context.Context, accountID string) (bool, error) {
	relationshipFetches.Inc()
	rels, err := eng.Client.Relationships(ctx, []string{accountID})
	if err != nil {
		return false, fmt.Errorf("fetching relationship for account %s: %w", accountID, err)
	}
	if len(rels) == 0 {
		return false, fmt.Errorf("no relationship record returned for account %s", accountID)
	}
	return rels[0].FollowedBy, nil
}

// decide evaluates one policy against a status. The relationship is only
// queried when the policy needs it; it is re-queried per decision, never
// cached, trading staleness for simplicity.
func (eng *Engine) decide(ctx context.Context, status *mastodon.Status, pol policy.Policy) (policy.Decision, error) {
	isFollower := false
	if pol.FollowersOnly {
		var err error
		isFollower, err = eng.isFollower(ctx, status.Account.ID)
		if err != nil {
			return policy.Decision{}, err
		}
	}
	return policy.Evaluate(status, isFollower, pol), nil
}

// ProcessMention handles a mention: independently decides boosting and
// favouriting, performs the chosen actions best-effort, posts at most one
// deficiency notice, and records the mention in the store.
func (eng *Engine) ProcessMention(ctx context.Context, n *mastodon.Notification) error {
	if n.Status == nil {
		return fmt.Errorf("mention notification %s carries no status", n.ID)
	}
	logger := eng.Logger.With("notification", n.ID, "status", n.Status.ID, "account", n.Account.Acct)

	// re-fetch for a fresh view; the embedded copy may predate edits
	status, err := eng.Client.Status(ctx, n.Status.ID)
	if err != nil {
		return fmt.Errorf("fetching mentioned status: %w", err)
	}

	// report mentions go to the operator instead of through the policies
	if eng.Report.Enabled {
		if msg, ok := reportRequest(status.Content); ok {
			return eng.forwardReport(ctx, logger, status, msg)
		}
	}

	boost, err := eng.decide(ctx, status, eng.Boosts)
	if err != nil {
		return err
	}
	fav, err := eng.decide(ctx, status, eng.Favourites)
	if err != nil {
		return err
	}
	logger.Info("mention decisions", "boost", boost.Act, "favourite", fav.Act,
		"deficiency", firstDeficiency(boost, fav))

	boosted := false
	if boost.Act {
		if err := eng.Client.Reblog(ctx, status.ID); err != nil {
			logger.Warn("failed to boost status", "err", err)
			actionErrorCount.WithLabelValues("boost").Inc()
		} else {
			boosted = true
			actionCount.WithLabelValues("boost").Inc()
		}
	}
	favourited := false
	if fav.Act {
		if err := eng.Client.Favourite(ctx, status.ID); err != nil {
			logger.Warn("failed to favourite status", "err", err)
			actionErrorCount.WithLabelValues("favourite").Inc()
		} else {
			favourited = true
			actionCount.WithLabelValues("favourite").Inc()
		}
	}

	notified := eng.maybePostDeficiencyNotice(ctx, logger, status, boost, fav)

	if eng.Store != nil {
		doc := store.Document{
			"account":      status.Account.Acct,
			"status_url":   status.URL,
			"boosted":      boosted,
			"favourited":   favourited,
			"notified":     notified,
			"processed_at": time.Now().UTC().Format(time.RFC3339),
		}
		if err := eng.Store.Set(ctx, "mentions", status.ID, doc); err != nil {
			logger.Warn("failed to record mention", "err", err)
		}
	}
	return nil
}

// forwardReport relays a $report mention to the operator as a direct message.
// When the reported status is itself a reply, the thread root is looked up so
// the operator sees what the conversation started from. A failed post returns
// the error, leaving the notification undismissed for a later retry.
func (eng *Engine) forwardReport(ctx context.Context, logger *slog.Logger, status *mastodon.Status, message string) error {
	data := map[string]any{
		"creator":           status.Account.Acct,
		"reported_post_id":  status.ID,
		"reported_post_url": status.URL,
		"report_message":    message,
	}
	if !status.IsParent() {
		sc, err := eng.Client.StatusContext(ctx, status.ID)
		if err != nil {
			logger.Warn("failed to fetch thread context for report", "err", err)
		} else if len(sc.Ancestors) > 0 {
			data["thread_root_url"] = sc.Ancestors[0].URL
		}
	}

	text, err := eng.Renderer.Render(eng.Report.Template, data)
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	if _, err := eng.Client.PostStatus(ctx, mastodon.PostStatusParams{
		Status:     text,
		Visibility: mastodon.VisibilityDirect,
	}); err != nil {
		actionErrorCount.WithLabelValues("report").Inc()
		return fmt.Errorf("forwarding report: %w", err)
	}
	actionCount.WithLabelValues("report").Inc()
	logger.Info("report forwarded")

	if eng.Store != nil {
		doc := store.Document{
			"creator":      status.Account.Acct,
			"status_url":   status.URL,
			"message":      message,
			"processed_at": time.Now().UTC().Format(time.RFC3339),
		}
		if err := eng.Store.Set(ctx, "reports", status.ID, doc); err != nil {
			logger.Warn("failed to record report", "err", err)
		}
	}
	return nil
}

func firstDeficiency(decisions ...policy.Decision) policy.Deficiency {
	for _, d := range decisions {
		if d.Deficiency != policy.DeficiencyNone {
			return d.Deficiency
		}
	}
	return policy.DeficiencyNone
}

// maybePostDeficiencyNotice posts a direct reply about a missing alt text
// deficiency when either policy detected one and has its message enabled. At
// most one notice goes out per mention even when both policies flag it.
// Best-effort: a failure here never changes the action decisions.
func (eng *Engine) maybePostDeficiencyNotice(ctx context.Context, logger *slog.Logger, status *mastodon.Status, boost, fav policy.Decision) bool {
	var msg policy.MessageConfig
	switch {
	case boost.Deficiency == policy.DeficiencyMissingAltText && eng.Boosts.MissingMessage.Enabled:
		msg = eng.Boosts.MissingMessage
	case fav.Deficiency == policy.DeficiencyMissingAltText && eng.Favourites.MissingMessage.Enabled:
		msg = eng.Favourites.MissingMessage
	default:
		return false
	}

	text, err := eng.Renderer.Render(msg.Template, map[string]any{
		"account": status.Account.Acct,
	})
	if err != nil {
		logger.Error("failed to render deficiency notice", "err", err, "template", msg.Template)
		return false
	}
	_, err = eng.Client.PostStatus(ctx, mastodon.PostStatusParams{
		Status:      text,
		InReplyToID: status.ID,
		Visibility:  mastodon.VisibilityDirect,
	})
	if err != nil {
		logger.Warn("failed to post deficiency notice", "err", err)
		actionErrorCount.WithLabelValues("notice").Inc()
		return false
	}
	noticeCount.WithLabelValues(string(policy.DeficiencyMissingAltText)).Inc()
	return true
}

// ProcessFollow welcomes a new follower with the configured template and
// records the follower in the store.
func (eng *Engine) ProcessFollow(ctx context.Context, n *mastodon.Notification) error {
	logger := eng.Logger.With("notification", n.ID, "account", n.Account.Acct)

	// fresh account lookup; the notification payload can be stale
	account, err := eng.Client.Account(ctx, n.Account.ID)
	if err != nil {
		return fmt.Errorf("fetching follower account: %w", err)
	}

	if eng.Welcome.Enabled {
		text, err := eng.Renderer.Render(eng.Welcome.Template, map[string]any{
			"account": account.Acct,
		})
		if err != nil {
			return err
		}
		if _, err := eng.Client.PostStatus(ctx, mastodon.PostStatusParams{
			Status:     text,
			Visibility: mastodon.VisibilityDirect,
		}); err != nil {
			return fmt.Errorf("posting welcome message: %w", err)
		}
		actionCount.WithLabelValues("welcome").Inc()
	}

	if eng.Store != nil {
		doc := store.Document{
			"acct":        account.Acct,
			"followed_at": time.Now().UTC().Format(time.RFC3339),
		}
		if err := eng.Store.Set(ctx, "followers", account.ID, doc); err != nil {
			logger.Warn("failed to record follower", "err", err)
		}
	}
	logger.Info("follow processed")
	return nil
}

// The remaining notification kinds need no response action; they are counted
// and dismissed by the dispatcher once the handler returns.

func (eng *Engine) ProcessReblog(ctx context.Context, n *mastodon.Notification) error {
	eng.Logger.Debug("boost received", "notification", n.ID, "account", n.Account.Acct)
	return nil
}

func (eng *Engine) ProcessFavourite(ctx context.Context, n *mastodon.Notification) error {
	eng.Logger.Debug("favourite received", "notification", n.ID, "account", n.Account.Acct)
	return nil
}

func (eng *Engine) ProcessPoll(ctx context.Context, n *mastodon.Notification) error {
	eng.Logger.Debug("poll ended", "notification", n.ID)
	return nil
}

func (eng *Engine) ProcessFollowRequest(ctx context.Context, n *mastodon.Notification) error {
	eng.Logger.Debug("follow request received", "notification", n.ID, "account", n.Account.Acct)
	return nil
}

func (eng *Engine) ProcessUpdate(ctx context.Context, n *mastodon.Notification) error {
	eng.Logger.Debug("status edited", "notification", n.ID)
	return nil
}
