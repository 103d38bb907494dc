// Package neighbor holds the per-neighbor state shared by children and
// routers: link-layer identity, frame counters, link quality, and
// lifecycle — a small table of "who's out there and how we last heard
// from them", generalized to MLE's richer per-neighbor record.
package neighbor

import (
	"time"

	"github.com/nodecore/mle/internal/meshaddr"
)

// State is a neighbor's position in its own attach lifecycle.
type State uint8

const (
	StateInvalid State = iota
	StateParentRequest
	StateLinkRequest
	StateChildIDRequest
	StateValid
)

func (s State) String() string {
	switch s {
	case StateParentRequest:
		return "parent-request"
	case StateLinkRequest:
		return "link-request"
	case StateChildIDRequest:
		return "child-id-request"
	case StateValid:
		return "valid"
	default:
		return "invalid"
	}
}

// Base is the state every neighbor — child or router — carries, composed
// into [Child] and [Router] rather than inherited.
type Base struct {
	ExtAddr meshaddr.ExtendedAddress
	State   State
	RLOC16  meshaddr.Address16

	// LinkFrameCounter and MleFrameCounter hold the *next expected*
	// counter value for this neighbor.
	LinkFrameCounter uint32
	MleFrameCounter  uint32

	// PreviousKey is true iff the most recently accepted frame from
	// this neighbor used the previous key sequence.
	PreviousKey bool

	Mode             meshaddr.DeviceMode
	LastHeard        time.Time
	PendingChallenge [8]byte

	LinkQualityIn  uint8 // 0..=3
	LinkQualityOut uint8 // 0..=3
	RSSI           int8
}

// IsValid reports whether the neighbor is in the Valid state.
func (b *Base) IsValid() bool {
	return b.State == StateValid
}

// Touch refreshes LastHeard to now, the common "reset neighbor aging"
// operation performed on receipt of almost any authenticated frame.
func (b *Base) Touch(now time.Time) {
	b.LastHeard = now
}

// Expired reports whether now-LastHeard has reached or exceeded timeout.
func (b *Base) Expired(now time.Time, timeout time.Duration) bool {
	return !b.LastHeard.IsZero() && now.Sub(b.LastHeard) >= timeout
}

// AcceptFrameCounter applies the monotonic replay rule: the
// counter must be >= the recorded next-expected value; on acceptance the
// recorded value advances to counter+1.
func (b *Base) AcceptFrameCounter(counter uint32) bool {
	if counter < b.MleFrameCounter {
		return false
	}
	b.MleFrameCounter = counter + 1
	return true
}

// AcceptKeyEra applies the per-key rollback rule: a frame
// using the previous key sequence is only acceptable if this neighbor has
// already been seen using it before (i.e. PreviousKey was already true),
// which prevents a rollback once the neighbor is confirmed on the new era.
func (b *Base) AcceptKeyEra(usedPrevious bool) bool {
	if usedPrevious && !b.PreviousKey {
		return false
	}
	b.PreviousKey = usedPrevious
	return true
}
