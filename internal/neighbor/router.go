package neighbor

import (
	"time"

	"github.com/nodecore/mle/internal/meshaddr"
)

// Router specializes [Base] with the routing-engine state kept per router
// ID.
type Router struct {
	Base

	Allocated    bool
	ReclaimDelay bool
	NextHop      meshaddr.RouterID
	Cost         uint8

	// LinkRequestAttempts counts outbound Link Requests sent while
	// State is StateLinkRequest; LinkRequestSentAt is when the most
	// recent one went out, so a retry sweep knows when to resend or
	// give up.
	LinkRequestAttempts uint8
	LinkRequestSentAt   time.Time
}

// Clear resets r to its zero value with no next hop.
func (r *Router) Clear() {
	*r = Router{}
	r.NextHop = meshaddr.InvalidRouterID
}
