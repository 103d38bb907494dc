// Package netdata holds the network-data collaborator: an opaque blob
// with its own version counters that MLE only reads to append to
// outbound messages and writes to on receipt of fresher data. The
// payload format itself is out of scope.
package netdata

import (
	"sync"

	"github.com/nodecore/mle/internal/meshaddr"
)

// Collaborator holds the opaque network-data blob plus its version
// counters. It is safe for concurrent use since network-data updates may
// arrive from the MLE dispatch thread while a diagnostics reader inspects
// it.
type Collaborator struct {
	mu sync.RWMutex

	version       uint8
	stableVersion uint8
	stableOnly    bool
	bytes         []byte

	brEntries map[meshaddr.Address16]struct{}
}

// New builds an empty collaborator.
func New() *Collaborator {
	return &Collaborator{brEntries: make(map[meshaddr.Address16]struct{})}
}

// Version returns the current (version, stableVersion).
func (c *Collaborator) Version() (version, stableVersion uint8) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version, c.stableVersion
}

// Bytes returns the subset of the blob appropriate for a peer, full or
// stable-only per stableOnly.
func (c *Collaborator) Bytes(stableOnly bool) []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if stableOnly && !c.stableOnly {
		// The stable subset is not separately tracked in this
		// minimal collaborator: callers that need the real subset
		// distinction wire a richer implementation; this returns the
		// full blob, matching the original's fallback behavior when
		// no stable-only encoding is cached.
		return c.bytes
	}
	return c.bytes
}

// SetNetworkData updates the blob if version is newer than the one
// currently held, the Data Response command's "update if version newer"
// rule.
func (c *Collaborator) SetNetworkData(version, stableVersion uint8, stableOnly bool, data []byte) (updated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int8(version-c.version) <= 0 && c.bytes != nil {
		return false
	}

	c.version = version
	c.stableVersion = stableVersion
	c.stableOnly = stableOnly
	c.bytes = append([]byte(nil), data...)
	return true
}

// RemoveBorderRouterEntries implements [routing.NetworkDataCollaborator]:
// drops any border-router entries keyed by rloc16, called when the
// routing engine releases the corresponding router ID.
func (c *Collaborator) RemoveBorderRouterEntries(rloc16 meshaddr.Address16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.brEntries, rloc16)
}

// NoteBorderRouterEntry records that rloc16 currently has a border-router
// entry in the blob, so a later router-ID release has something to clean
// up. Exposed for the (out-of-scope) network-data payload parser to call.
func (c *Collaborator) NoteBorderRouterEntry(rloc16 meshaddr.Address16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.brEntries[rloc16] = struct{}{}
}
