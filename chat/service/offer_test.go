package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferTrackerSingleOutstanding(t *testing.T) {
	tracker := NewSelfieOfferTracker()

	assert.True(t, tracker.Propose("at the cafe"))
	assert.False(t, tracker.Propose("on the beach"), "second offer must be dropped")
	assert.True(t, tracker.Pending())

	outcome, offer := tracker.Resolve("yes")
	require.NotNil(t, offer)
	assert.Equal(t, OfferAccepted, outcome)
	assert.Equal(t, "at the cafe", offer.Context, "first offer context survives")
	assert.False(t, tracker.Pending())
}

func TestOfferTrackerDecline(t *testing.T) {
	tracker := NewSelfieOfferTracker()
	tracker.Propose("morning coffee")

	outcome, _ := tracker.Resolve("no thanks")
	assert.Equal(t, OfferDeclined, outcome)
	assert.False(t, tracker.Pending())
}

func TestOfferTrackerAmbiguousReplyDeclines(t *testing.T) {
	tracker := NewSelfieOfferTracker()
	tracker.Propose("sunset walk")

	outcome, _ := tracker.Resolve("what should we cook tonight?")
	assert.Equal(t, OfferDeclined, outcome)
	assert.False(t, tracker.Pending(), "offer is consumed either way")

	// the slot is free again for a future offer
	assert.True(t, tracker.Propose("in the kitchen"))
}

func TestOfferTrackerClear(t *testing.T) {
	tracker := NewSelfieOfferTracker()
	tracker.Propose("park bench")
	tracker.Clear()
	assert.False(t, tracker.Pending())
}
