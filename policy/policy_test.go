package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fedibot/fedibot/mastodon"
)

func mediaStatus(descriptions ...string) *mastodon.Status {
	s := &mastodon.Status{ID: "s1", Visibility: mastodon.VisibilityPublic}
	for i, d := range descriptions {
		s.MediaAttachments = append(s.MediaAttachments, mastodon.MediaAttachment{
			ID:          string(rune('a' + i)),
			Type:        "image",
			Description: d,
		})
	}
	return s
}

func TestFollowersOnlyShortCircuit(t *testing.T) {
	assert := assert.New(t)

	pol := Policy{FollowersOnly: true, ParentsOnly: true, AltTextRequired: true}
	// non-follower loses regardless of every other field
	status := mediaStatus("")
	reply := "s0"
	status.InReplyToID = &reply

	d := Evaluate(status, false, pol)
	assert.False(d.Act)
	assert.Equal(DeficiencyNone, d.Deficiency)
}

func TestParentsOnlyGate(t *testing.T) {
	assert := assert.New(t)

	pol := Policy{ParentsOnly: true}
	status := mediaStatus()
	reply := "s0"
	status.InReplyToID = &reply

	assert.False(Evaluate(status, false, pol).Act)

	status.InReplyToID = nil
	assert.True(Evaluate(status, false, pol).Act)
}

func TestAltTextGate(t *testing.T) {
	assert := assert.New(t)
	pol := Policy{AltTextRequired: true}

	// one attachment with alt text, one without
	d := Evaluate(mediaStatus("a photo of a cat", ""), false, pol)
	assert.False(d.Act)
	assert.Equal(DeficiencyMissingAltText, d.Deficiency)

	// all attachments described
	d = Evaluate(mediaStatus("a photo of a cat", "a photo of a dog"), false, pol)
	assert.True(d.Act)
	assert.Equal(DeficiencyNone, d.Deficiency)

	// no attachments at all: the gate does not apply
	d = Evaluate(mediaStatus(), false, pol)
	assert.True(d.Act)
}

func TestAltTextNotRequired(t *testing.T) {
	assert := assert.New(t)

	d := Evaluate(mediaStatus(""), false, Policy{})
	assert.True(d.Act)
	assert.Equal(DeficiencyNone, d.Deficiency)
}

func TestFollowerPasses(t *testing.T) {
	assert := assert.New(t)

	pol := Policy{FollowersOnly: true, ParentsOnly: true, AltTextRequired: true}
	d := Evaluate(mediaStatus("described"), true, pol)
	assert.True(d.Act)
}
