// Package policy decides whether an automated response action (boost,
// favourite) should fire for a given status. Each named policy is an
// independent set of hard gates evaluated in a fixed order.
package policy

import (
	"github.com/fedibot/fedibot/mastodon"
)

// A shortcoming detected in a status that can trigger a secondary notice,
// independent of the act/no-act decision.
type Deficiency string

const (
	DeficiencyNone           = Deficiency("")
	DeficiencyMissingAltText = Deficiency("missing_alt_text")
)

// MessageConfig gates a templated notice posted as a side effect.
type MessageConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Template string `yaml:"template"`
}

// Policy is the gating configuration for one response action. Loaded once at
// startup and immutable for the process lifetime.
type Policy struct {
	FollowersOnly   bool          `yaml:"followers_only"`
	ParentsOnly     bool          `yaml:"parents_only"`
	AltTextRequired bool          `yaml:"alt_text_required"`
	MissingMessage  MessageConfig `yaml:"missing_message"`
}

type Decision struct {
	Act        bool
	Deficiency Deficiency
}

// HasAltText reports whether every media attachment carries a non-empty
// description. A status with no attachments trivially passes.
func HasAltText(status *mastodon.Status) bool {
	for _, att := range status.MediaAttachments {
		if att.Description == "" {
			return false
		}
	}
	return true
}

// Evaluate runs the policy gates against a status. Gates short-circuit: the
// first failing gate decides.
//
// isFollower is the followed_by fact for the status author, queried by the
// caller; it is only consulted when FollowersOnly is set.
func Evaluate(status *mastodon.Status, isFollower bool, pol Policy) Decision {
	if pol.FollowersOnly && !isFollower {
		return Decision{Act: false}
	}
	if pol.ParentsOnly && !status.IsParent() {
		return Decision{Act: false}
	}
	if len(status.MediaAttachments) > 0 && pol.AltTextRequired && !HasAltText(status) {
		return Decision{Act: false, Deficiency: DeficiencyMissingAltText}
	}
	return Decision{Act: true}
}
