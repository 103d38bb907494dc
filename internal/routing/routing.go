// Package routing implements the MLE routing engine: router-ID
// allocation, route-cost bookkeeping, next-hop selection, and the
// advertise-trickle schedule.
package routing

import (
	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/neighbor"
)

// MaxRouteCost is the highest finite route cost; anything higher (or the
// wire encoding 0) means "unreachable".
const MaxRouteCost uint8 = 16

// lqiToCost maps a link-quality indicator to a route cost contribution.
// LQI 0 is unusable; its entry is MaxRouteCost.
var lqiToCost = [4]uint8{0: MaxRouteCost, 1: 16, 2: 6, 3: 2}

// LQIToCost converts a link-quality indicator (0..=3) to its route-cost
// contribution.
func LQIToCost(lqi uint8) uint8 {
	if lqi == 0 || int(lqi) >= len(lqiToCost) {
		return MaxRouteCost
	}
	return lqiToCost[lqi]
}

// minUint8 returns the minimum of vals, which must not be empty.
func minUint8(vals ...uint8) uint8 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// NeighborLinkQuality is the subset of router-neighbor state LinkCost
// needs: whether the link is up, and the bidirectional quality.
type NeighborLinkQuality struct {
	Valid          bool
	LinkQualityIn  uint8
	LinkQualityOut uint8
}

// LinkQualityCounts tallies the allocated, valid routers in table at each
// link-quality-in level, for the Connectivity TLV payload: lq1/lq2/lq3 are
// the number of routers this device hears at quality 1, 2, and 3
// respectively.
func LinkQualityCounts(table *neighbor.Table) (lq1, lq2, lq3 uint8) {
	for i := range table.Routers {
		r := &table.Routers[i]
		if !r.Allocated || !r.IsValid() {
			continue
		}
		switch r.LinkQualityIn {
		case 1:
			lq1++
		case 2:
			lq2++
		case 3:
			lq3++
		}
	}
	return lq1, lq2, lq3
}

// LinkCost computes the cost of the direct link to neighbor router i:
// MaxRouteCost if i is self or the neighbor link isn't Valid, else the cost
// for the worse of the two directions.
func LinkCost(self, i meshaddr.RouterID, nbr NeighborLinkQuality) uint8 {
	if self == i || !nbr.Valid {
		return MaxRouteCost
	}
	return LQIToCost(minUint8(nbr.LinkQualityIn, nbr.LinkQualityOut))
}
