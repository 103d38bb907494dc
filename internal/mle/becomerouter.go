package mle

import (
	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/mleerr"
	"github.com/nodecore/mle/internal/neighbor"
)

// shouldUpgradeToRouter reports whether this Child should request a
// router ID, given numRouters routers currently allocated across the
// partition: a partition with few routers has room for another, so an
// eligible FFD Child upgrades; a partition at or above the configured
// threshold does not.
func (c *Core) shouldUpgradeToRouter(numRouters int) bool {
	return c.Role == RoleChild && numRouters < c.Params.RouterUpgradeThreshold
}

// numAllocatedRouters counts routers this device's table currently marks
// Allocated. On a Router or Leader the bits follow
// [routing.PropagateRouterIDSequence]; a Child does not process
// Advertisements, so its bits come only from the Route TLV of its Child ID
// Response.
func (c *Core) numAllocatedRouters() int {
	n := 0
	for i := range c.Table.Routers {
		if c.Table.Routers[i].Allocated {
			n++
		}
	}
	return n
}

// BecomeRouter requests a router ID from the allocator and switches role.
//
// Thread-style MLE resolves this through an Address Solicit exchange sent
// over CoAP to the partition's Leader. No CoAP client is wired into this
// module, so router-ID assignment here is a direct, local call into the
// same [routing.Allocator] the Leader itself uses instead of a network
// round trip.
func (c *Core) BecomeRouter() error {
	if c.Role == RoleDisabled {
		return mleerr.ErrInvalidState
	}
	if c.Role.IsRouterOrLeader() {
		return mleerr.ErrAlready
	}

	id, ok := c.Allocator.Allocate(nil, c.now())
	if !ok {
		return mleerr.New(mleerr.CodeNoBufs, nil)
	}

	if err := c.Radio.SetShortAddress(meshaddr.NewAddress16(id, 0)); err != nil {
		c.Allocator.Release(id)
		return err
	}

	c.SelfRouterID = id
	c.Role = RoleRouter
	c.Timers.Remove(c.reedAdvertiseTmr)
	c.Trickle.Reset()

	c.Logger.Info("promoted to router", "router_id", id)
	return nil
}

// BecomeLeader starts a new partition with this device as its Leader,
// following a network-formation or a total partition loss.
func (c *Core) BecomeLeader() error {
	if c.Role == RoleDisabled {
		return mleerr.ErrInvalidState
	}

	id, ok := c.Allocator.Allocate(nil, c.now())
	if !ok {
		return mleerr.New(mleerr.CodeNoBufs, nil)
	}
	if err := c.Radio.SetShortAddress(meshaddr.NewAddress16(id, 0)); err != nil {
		c.Allocator.Release(id)
		return err
	}

	c.SelfRouterID = id
	c.Leader = meshaddr.LeaderData{
		PartitionID:    c.Rand.Uint32(),
		Weighting:      c.Params.LeaderWeight,
		LeaderRouterID: uint8(id),
	}
	c.Allocator.SetRouterIDSequence(c.Allocator.RouterIDSequence() + 1)
	c.touchLeader()

	self := &c.Table.Routers[id]
	self.NextHop = id
	self.Cost = 0
	self.State = neighbor.StateValid
	self.Touch(c.now())

	c.Role = RoleLeader
	c.attach.stop(c)
	c.Timers.Remove(c.reedAdvertiseTmr)
	c.Trickle.Start()
	c.Timers.Add(c.routerIDSeqTmr, uint32(RouterIDSequencePeriod.Milliseconds()))

	c.Logger.Info("became leader", "partition_id", c.Leader.PartitionID, "router_id", id)
	return nil
}

// BecomeDetached drops every table entry and re-enters the attach scan,
// the response to losing the partition entirely.
func (c *Core) BecomeDetached() {
	if c.Role.IsRouterOrLeader() && c.SelfRouterID <= meshaddr.MaxRouterID {
		c.Allocator.Release(c.SelfRouterID)
	}

	c.SelfRouterID = meshaddr.InvalidRouterID
	c.Table.Clear()
	c.Trickle.Stop()
	c.Timers.Remove(c.reedAdvertiseTmr)
	c.Timers.Remove(c.routerIDSeqTmr)
	c.Role = RoleDetached

	c.Logger.Warn("became detached")
	c.BecomeChild(FilterAnyPartition)
}
