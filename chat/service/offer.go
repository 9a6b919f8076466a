package service

import "sync"

// OfferOutcome is how a pending selfie offer was resolved.
type OfferOutcome int

const (
	OfferAccepted OfferOutcome = iota
	OfferDeclined
)

// SelfieOffer is a proposed image the companion is waiting on an answer for.
type SelfieOffer struct {
	Context string
}

// SelfieOfferTracker holds at most one outstanding selfie offer per session.
// A second offer proposed while one is pending is dropped, so the companion
// never stacks questions the user has not answered yet.
type SelfieOfferTracker struct {
	mu      sync.Mutex
	pending *SelfieOffer
}

func NewSelfieOfferTracker() *SelfieOfferTracker {
	return &SelfieOfferTracker{}
}

// Propose registers a new offer. Returns false if one is already pending.
func (t *SelfieOfferTracker) Propose(context string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		return false
	}
	t.pending = &SelfieOffer{Context: context}
	return true
}

func (t *SelfieOfferTracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending != nil
}

// Resolve consumes the pending offer using the user's reply. Only a clear
// affirmative accepts; a negative or unreadable reply declines, and the
// caller is expected to hand the same reply on as a normal turn.
func (t *SelfieOfferTracker) Resolve(reply string) (OfferOutcome, *SelfieOffer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	offer := t.pending
	t.pending = nil
	if ClassifyYesNo(reply) == IntentAffirmative {
		return OfferAccepted, offer
	}
	return OfferDeclined, offer
}

// Clear drops any pending offer without resolving it
func (t *SelfieOfferTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = nil
}
