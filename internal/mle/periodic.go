package mle

import (
	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/neighbor"
)

// handleStateUpdateTimer is the 1-second periodic tick: age out stale
// children, invalidate direct router links that have gone quiet, release
// routers the Leader hasn't heard from in too long, and reattach if the
// parent has gone silent or the leader data itself has gone stale.
func (c *Core) handleStateUpdateTimer() {
	now := c.now()

	for i := range c.Table.Children {
		ch := &c.Table.Children[i]
		if ch.IsValid() && ch.Expired(now, MaxNeighborAge) {
			c.Logger.Info("child timed out", "rloc16", ch.RLOC16)
			ch.Clear()
			c.Trickle.Reset()
		}
	}

	if c.Role.IsRouterOrLeader() {
		for id := meshaddr.RouterID(0); id <= meshaddr.MaxRouterID; id++ {
			if id == c.SelfRouterID {
				continue
			}
			r := &c.Table.Routers[id]
			if r.Allocated && r.NextHop == id && r.IsValid() && r.Expired(now, MaxNeighborAge) {
				c.Logger.Info("direct router link timed out", "router_id", id)
				r.State = neighbor.StateInvalid
				c.Trickle.Reset()
			}
		}
	}

	if c.Role == RoleLeader {
		for id := meshaddr.RouterID(0); id <= meshaddr.MaxRouterID; id++ {
			if id == c.SelfRouterID {
				continue
			}
			r := &c.Table.Routers[id]
			if r.Allocated && r.NextHop == meshaddr.InvalidRouterID && r.Expired(now, MaxLeaderToRouterTimeout) {
				c.Logger.Info("releasing unreachable router", "router_id", id)
				c.Allocator.Release(id)
				c.Trickle.Reset()
			}
		}
	}

	switch c.Role {
	case RoleChild:
		switch {
		case c.Table.Parent.Expired(now, MaxLeaderToRouterTimeout):
			c.Logger.Warn("parent lost, reattaching")
			c.BecomeChild(FilterAnyPartition)
		case c.leaderDataExpired(now, c.Params.NetworkIDTimeout):
			c.Logger.Warn("leader data stale, reattaching within partition")
			c.BecomeChild(FilterSamePartition)
		case c.shouldUpgradeToRouter(c.numAllocatedRouters()):
			if err := c.BecomeRouter(); err != nil {
				c.Logger.Debug("deferring router upgrade", "error", err)
			}
		}

	case RoleRouter:
		if c.leaderDataExpired(now, c.Params.NetworkIDTimeout) {
			c.Logger.Warn("leader data stale, reattaching within partition")
			c.BecomeChild(FilterSamePartition)
		}
	}

	c.Timers.Add(c.stateUpdateTmr, uint32(StateUpdatePeriod.Milliseconds()))
}

// handleRouterIDSequenceTimer is the Leader's unconditional router-ID-
// sequence bump: every period the sequence advances regardless of whether
// anything actually changed, so a partition that's gone quiet still lets
// stragglers notice it's current. Armed only while Leader (by BecomeLeader
// and, defensively, here); anything else lets the timer lapse.
func (c *Core) handleRouterIDSequenceTimer() {
	if c.Role != RoleLeader {
		return
	}

	c.Allocator.SetRouterIDSequence(c.Allocator.RouterIDSequence() + 1)
	c.Timers.Add(c.routerIDSeqTmr, uint32(RouterIDSequencePeriod.Milliseconds()))
}
