package routing

import (
	"time"

	"github.com/bluele/gcache"
	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/neighbor"
)

// RouterIDReuseDelay is the minimum time a released router ID stays
// unavailable for reallocation.
const RouterIDReuseDelay = 100 * time.Second

// NetworkDataCollaborator is the narrow interface into the network-data
// component a router release notifies: "asks the
// network-data collaborator to remove any border-router entries at
// rloc16_of(id)".
type NetworkDataCollaborator interface {
	RemoveBorderRouterEntries(rloc16 meshaddr.Address16)
}

// Allocator is the Leader-only router-ID allocator. Reclaimed
// IDs are tracked in a TTL cache rather than a hand-timestamped field: a
// released ID simply can't be re-allocated while gcache still holds its
// key, which is exactly the reuse-delay window, and an
// address-resolver cache is evicted on the same call — both instances of
// the same TTL-cache library used for other bootstrap/upstream caches.
type Allocator struct {
	table *neighbor.Table

	reclaimPool  gcache.Cache
	addrResolver gcache.Cache
	netData      NetworkDataCollaborator

	routerIDSequence uint8
	numAllocated     int
}

// MaxRouters bounds how many router IDs may be allocated simultaneously.
const MaxRouters = 32

// NewAllocator builds an allocator over table, evicting an entry from
// addrResolver whenever the corresponding router ID is released.
func NewAllocator(table *neighbor.Table, netData NetworkDataCollaborator) *Allocator {
	return &Allocator{
		table:        table,
		reclaimPool:  gcache.New(neighbor.MaxRouters).LRU().Build(),
		addrResolver: gcache.New(256).LRU().Build(),
		netData:      netData,
	}
}

// NoteAddressResolved records that rloc16's path was resolved, so release
// has something concrete to evict. No code in this module calls it, so the
// cache stays empty.
func (a *Allocator) NoteAddressResolved(rloc16 meshaddr.Address16) {
	a.addrResolver.Set(rloc16, struct{}{})
}

func (a *Allocator) isReclaiming(id meshaddr.RouterID) bool {
	return a.reclaimPool.Has(id)
}

// Allocate grants a router ID, preferring requested if given and free, else
// the lowest free non-reclaiming ID.
func (a *Allocator) Allocate(requested *meshaddr.RouterID, now time.Time) (meshaddr.RouterID, bool) {
	if a.numAllocated >= MaxRouters {
		return 0, false
	}

	if requested != nil && *requested <= meshaddr.MaxRouterID {
		if a.tryAllocate(*requested, now) {
			return *requested, true
		}
	}

	for id := meshaddr.RouterID(0); id <= meshaddr.MaxRouterID; id++ {
		if a.tryAllocate(id, now) {
			return id, true
		}
	}

	return 0, false
}

func (a *Allocator) tryAllocate(id meshaddr.RouterID, now time.Time) bool {
	r := &a.table.Routers[id]
	if r.Allocated || a.isReclaiming(id) {
		return false
	}

	r.Allocated = true
	r.ReclaimDelay = false
	r.LastHeard = now
	a.numAllocated++
	a.routerIDSequence++
	return true
}

// Release frees id: marks it unallocated, places it in the reclaim-delay
// pool, bumps the router-ID sequence, evicts the address-resolver cache
// entry, and notifies the network-data collaborator.
func (a *Allocator) Release(id meshaddr.RouterID) {
	r := &a.table.Routers[id]
	if !r.Allocated {
		return
	}

	r.Allocated = false
	r.ReclaimDelay = true
	r.State = neighbor.StateInvalid
	r.NextHop = meshaddr.InvalidRouterID
	a.numAllocated--
	a.routerIDSequence++

	a.reclaimPool.SetWithExpire(id, struct{}{}, RouterIDReuseDelay)
	a.addrResolver.Remove(meshaddr.NewAddress16(id, 0))

	if a.netData != nil {
		a.netData.RemoveBorderRouterEntries(meshaddr.NewAddress16(id, 0))
	}
}

// RouterIDSequence returns the current router-ID sequence.
func (a *Allocator) RouterIDSequence() uint8 {
	return a.routerIDSequence
}

// SetRouterIDSequence adopts a sequence received from elsewhere in the
// partition; it does not bump the sequence
// further.
func (a *Allocator) SetRouterIDSequence(seq uint8) {
	a.routerIDSequence = seq
}

// NumAllocated reports how many router IDs are currently allocated.
func (a *Allocator) NumAllocated() int {
	return a.numAllocated
}
