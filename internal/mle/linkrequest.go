package mle

import (
	crand "crypto/rand"
	"time"

	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/mlecodec"
	"github.com/nodecore/mle/internal/mlecrypto"
	"github.com/nodecore/mle/internal/neighbor"
)

// LinkRequestRetryInterval is how long a router waits for a Link Accept
// before resending its Link Request; at most MaxLinkRequestAttempts
// requests, the first included, are sent.
const LinkRequestRetryInterval = 1 * time.Second

// sendLinkRequest probes a freshly-discovered router for a direct link,
// storing a fresh challenge in r.PendingChallenge so the eventual Link
// Accept can be matched back to this request.
func (c *Core) sendLinkRequest(r *neighbor.Router) {
	if _, err := crand.Read(r.PendingChallenge[:]); err != nil {
		c.Logger.Error("generating link request challenge", "error", err)
		return
	}

	r.State = neighbor.StateLinkRequest
	r.LinkRequestAttempts++
	r.LinkRequestSentAt = c.now()

	var out []byte
	out = mlecodec.AppendTLV(out, mlecodec.TypeChallenge, r.PendingChallenge[:])
	out = mlecodec.AppendUint16TLV(out, mlecodec.TypeSourceAddress, uint16(c.selfRLOC16()))
	out = mlecodec.AppendUint16TLV(out, mlecodec.TypeVersion, mlecodec.CurrentVersion)

	if err := c.send(r.ExtAddr.LinkLocal(), mlecrypto.KeyIDMode1, mlecodec.CommandLinkRequest, out); err != nil {
		c.Logger.Error("sending link request", "error", err)
	}
}

// handleLinkRequestTimer sweeps routers awaiting a Link Accept: resend if
// the retry interval has elapsed and attempts remain, otherwise give up on
// the link and drop back to Invalid.
func (c *Core) handleLinkRequestTimer() {
	now := c.now()
	for id := meshaddr.RouterID(0); id <= meshaddr.MaxRouterID; id++ {
		if id == c.SelfRouterID {
			continue
		}
		r := &c.Table.Routers[id]
		if r.State != neighbor.StateLinkRequest || now.Sub(r.LinkRequestSentAt) < LinkRequestRetryInterval {
			continue
		}

		if r.LinkRequestAttempts >= MaxLinkRequestAttempts {
			c.Logger.Warn("link request unanswered, giving up", "router_id", id)
			r.State = neighbor.StateInvalid
			r.LinkRequestAttempts = 0
			continue
		}

		c.sendLinkRequest(r)
	}

	c.Timers.Add(c.linkRequestTmr, uint32(LinkRequestRetryInterval.Milliseconds()))
}
