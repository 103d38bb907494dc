package routing

import (
	"time"

	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/neighbor"
)

// UpdateResult summarizes what an [ApplyRouteTLV] call changed, so callers
// know whether to reset the advertise trickle interval.
type UpdateResult struct {
	Changed        bool
	SelfBitDropped bool
}

// ApplyRouteTLV runs the route-table fixed-point update for a Route TLV
// received from neighbor router nbrID: every entry is relaxed against the
// direct link cost to nbrID until no further improvement is found. table
// is mutated in place.
func ApplyRouteTLV(table *neighbor.Table, self meshaddr.RouterID, nbrID meshaddr.RouterID, tlv RouteTLV, now time.Time) UpdateResult {
	var result UpdateResult

	selfStillAllocated := false
	for _, e := range tlv.Entries {
		if e.RouterID == self {
			selfStillAllocated = true
			table.Routers[self].LinkQualityOut = e.LinkQIn
			continue
		}
	}
	if !selfStillAllocated {
		result.SelfBitDropped = true
	}

	byID := make(map[meshaddr.RouterID]RouteEntry, len(tlv.Entries))
	for _, e := range tlv.Entries {
		byID[e.RouterID] = e
	}

	for {
		dirty := false

		for _, e := range tlv.Entries {
			i := e.RouterID
			if i == self {
				continue
			}

			nbrLinkQ := neighborLinkQuality(table, nbrID)
			nbrCost := LinkCost(self, nbrID, nbrLinkQ)

			costIFromNbr := e.Cost
			if i == nbrID {
				costIFromNbr = 0
			} else if costIFromNbr == 0 {
				costIFromNbr = MaxRouteCost
			}

			r := &table.Routers[i]
			if !r.Allocated {
				continue
			}

			candidate := addCostSaturating(costIFromNbr, nbrCost)

			switch {
			case r.NextHop == nbrID && e.Cost == 0 && i != nbrID:
				r.NextHop = meshaddr.InvalidRouterID
				r.Touch(now)
				dirty = true
				result.Changed = true

			case r.NextHop == meshaddr.InvalidRouterID || r.NextHop == nbrID:
				if candidate <= MaxRouteCost && (r.NextHop != nbrID || r.Cost != candidate) {
					r.NextHop = nbrID
					r.Cost = candidate
					r.Touch(now)
					dirty = true
					result.Changed = true
				}

			default:
				curLinkQ := neighborLinkQuality(table, r.NextHop)
				currentCost := addCostSaturating(r.Cost, LinkCost(self, r.NextHop, curLinkQ))
				if candidate < currentCost || (candidate == currentCost && i == nbrID) {
					r.NextHop = nbrID
					r.Cost = candidate
					r.Touch(now)
					dirty = true
					result.Changed = true
				}
			}
		}

		if !dirty {
			break
		}
	}

	return result
}

func neighborLinkQuality(table *neighbor.Table, id meshaddr.RouterID) NeighborLinkQuality {
	if id > meshaddr.MaxRouterID {
		return NeighborLinkQuality{}
	}
	r := &table.Routers[id]
	return NeighborLinkQuality{
		Valid:          r.Allocated && r.IsValid(),
		LinkQualityIn:  r.LinkQualityIn,
		LinkQualityOut: r.LinkQualityOut,
	}
}

func addCostSaturating(a, b uint8) uint8 {
	sum := int(a) + int(b)
	if sum > int(MaxRouteCost) {
		return MaxRouteCost
	}
	return uint8(sum)
}

// PropagateRouterIDSequence applies the router-ID-sequence propagation
// rule: adopt a
// newly received sequence if it is wrap-aware newer (signed 8-bit delta >
// 0) than the local one, or unconditionally while Detached, updating the
// allocated bitmap from the TLV. It reports whether the local router's own
// allocation bit was found to have dropped, which forces BecomeDetached().
func PropagateRouterIDSequence(local *Allocator, table *neighbor.Table, self meshaddr.RouterID, tlv RouteTLV, detached bool) (adopted bool, selfDropped bool) {
	newSeq := tlv.RouterIDSequence
	oldSeq := local.RouterIDSequence()

	isNewer := int8(newSeq-oldSeq) > 0
	if !isNewer && !detached {
		return false, false
	}

	local.SetRouterIDSequence(newSeq)

	allocated := make(map[meshaddr.RouterID]bool, len(tlv.Entries))
	for _, e := range tlv.Entries {
		allocated[e.RouterID] = true
	}

	selfSeen := false
	for id := meshaddr.RouterID(0); id <= meshaddr.MaxRouterID; id++ {
		r := &table.Routers[id]
		if id == self {
			selfSeen = allocated[id]
			continue
		}
		r.Allocated = allocated[id]
	}

	return true, !selfSeen
}
