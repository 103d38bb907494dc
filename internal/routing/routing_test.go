package routing_test

import (
	"testing"
	"time"

	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/neighbor"
	"github.com/nodecore/mle/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteTLV_RoundTrip(t *testing.T) {
	tlv := routing.RouteTLV{
		RouterIDSequence: 7,
		Entries: []routing.RouteEntry{
			{RouterID: 1, LinkQOut: 3, LinkQIn: 2, Cost: 0},
			{RouterID: 10, LinkQOut: 2, LinkQIn: 3, Cost: 4},
		},
	}

	encoded := routing.EncodeRouteTLV(tlv)
	decoded, err := routing.DecodeRouteTLV(encoded)
	require.NoError(t, err)

	assert.Equal(t, uint8(7), decoded.RouterIDSequence)
	require.Len(t, decoded.Entries, 2)
	assert.Equal(t, meshaddr.RouterID(1), decoded.Entries[0].RouterID)
	assert.Equal(t, meshaddr.RouterID(10), decoded.Entries[1].RouterID)
	assert.Equal(t, uint8(4), decoded.Entries[1].Cost)
}

func TestLinkCost(t *testing.T) {
	assert.Equal(t, routing.MaxRouteCost, routing.LinkCost(2, 2, routing.NeighborLinkQuality{Valid: true, LinkQualityIn: 3, LinkQualityOut: 3}))

	got := routing.LinkCost(2, 5, routing.NeighborLinkQuality{Valid: true, LinkQualityIn: 3, LinkQualityOut: 2})
	assert.Equal(t, routing.LQIToCost(2), got)

	assert.Equal(t, routing.MaxRouteCost, routing.LinkCost(2, 5, routing.NeighborLinkQuality{Valid: false}))
}

// TestApplyRouteTLV_NextHopUpdate covers: routers
// A(id=1), B(id=5), C(id=10) are Valid neighbors of self(id=2); C goes
// silent — its direct link is invalidated by the periodic tick, the way
// [Core.handleStateUpdateTimer] does it — and A then reports cost 2 to
// router 10, so self should reroute via A.
func TestApplyRouteTLV_NextHopUpdate(t *testing.T) {
	table := neighbor.NewTable()
	self := meshaddr.RouterID(2)

	for _, id := range []meshaddr.RouterID{1, 5, 10} {
		table.Routers[id].Allocated = true
		table.Routers[id].State = neighbor.StateValid
		table.Routers[id].LinkQualityIn = 3
		table.Routers[id].LinkQualityOut = 3
	}
	table.Routers[10].NextHop = 10
	table.Routers[10].Cost = 0

	tlv := routing.RouteTLV{
		RouterIDSequence: 1,
		Entries: []routing.RouteEntry{
			{RouterID: 1, Cost: 0},
			{RouterID: 10, Cost: 2},
		},
	}

	before := time.Now().Add(-time.Hour)
	table.Routers[10].LastHeard = before
	table.Routers[10].State = neighbor.StateInvalid

	now := time.Now()
	result := routing.ApplyRouteTLV(table, self, 1, tlv, now)

	assert.True(t, result.Changed)
	assert.Equal(t, meshaddr.RouterID(1), table.Routers[10].NextHop)
	assert.Equal(t, uint8(2+routing.LQIToCost(3)), table.Routers[10].Cost)
	assert.True(t, table.Routers[10].LastHeard.After(before))
}

func TestApplyRouteTLV_Idempotent(t *testing.T) {
	table := neighbor.NewTable()
	self := meshaddr.RouterID(2)
	table.Routers[1].Allocated = true
	table.Routers[1].State = neighbor.StateValid
	table.Routers[1].LinkQualityIn = 3
	table.Routers[1].LinkQualityOut = 3

	tlv := routing.RouteTLV{Entries: []routing.RouteEntry{{RouterID: 1, Cost: 0}}}

	now := time.Now()
	routing.ApplyRouteTLV(table, self, 1, tlv, now)
	snap := table.Routers[1]

	result := routing.ApplyRouteTLV(table, self, 1, tlv, now)
	assert.False(t, result.Changed)
	assert.Equal(t, snap, table.Routers[1])
}

// TestPropagateRouterIDSequence_RejectsRollback covers a sequence rollback
// attempt from a stale router.
func TestPropagateRouterIDSequence_RejectsRollback(t *testing.T) {
	table := neighbor.NewTable()
	netData := &fakeNetData{}
	alloc := routing.NewAllocator(table, netData)
	alloc.SetRouterIDSequence(50)

	tlv := routing.RouteTLV{RouterIDSequence: 49}
	adopted, _ := routing.PropagateRouterIDSequence(alloc, table, 2, tlv, false)

	assert.False(t, adopted)
	assert.Equal(t, uint8(50), alloc.RouterIDSequence())
}

func TestAllocator_AllocateAndRelease(t *testing.T) {
	table := neighbor.NewTable()
	netData := &fakeNetData{}
	alloc := routing.NewAllocator(table, netData)

	now := time.Now()
	id, ok := alloc.Allocate(nil, now)
	require.True(t, ok)
	assert.True(t, table.Routers[id].Allocated)

	alloc.Release(id)
	assert.False(t, table.Routers[id].Allocated)
	assert.True(t, netData.removed)

	// Reallocating immediately must skip the reclaiming ID.
	second, ok := alloc.Allocate(&id, now)
	require.True(t, ok)
	assert.NotEqual(t, id, second)
}

type fakeNetData struct {
	removed bool
}

func (f *fakeNetData) RemoveBorderRouterEntries(rloc16 meshaddr.Address16) {
	f.removed = true
}
