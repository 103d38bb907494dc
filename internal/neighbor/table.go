package neighbor

import (
	"net/netip"

	"github.com/nodecore/mle/internal/meshaddr"
)

// MaxChildren is the fixed capacity of the child table.
const MaxChildren = 8

// MaxRouters is the size of the router table, indexed by router ID 0..62
// (63 is reserved for [meshaddr.InvalidRouterID] and never stored).
const MaxRouters = int(meshaddr.MaxRouterID) + 1

// Table owns the fixed-capacity child and router arrays for a single
// device, plus the one Router record used to track this device's own
// parent while acting as a Child. It is not safe for concurrent use; it
// is owned by the single dispatch goroutine.
type Table struct {
	Children [MaxChildren]Child
	Routers  [MaxRouters]Router

	// Parent is populated only while this device's role is Child.
	Parent Router
}

// NewTable builds an empty table with all router next-hops marked
// unreachable.
func NewTable() *Table {
	t := &Table{}
	for i := range t.Routers {
		t.Routers[i].NextHop = meshaddr.InvalidRouterID
	}
	t.Parent.NextHop = meshaddr.InvalidRouterID
	return t
}

// Clear resets every child, router, and the parent record, restoring the
// table to the state a Disabled device must present.
func (t *Table) Clear() {
	*t = *NewTable()
}

// ByShortChild finds a Valid child by RLOC16; children are few enough that
// a linear scan is simpler than an index.
func (t *Table) ByShortChild(rloc16 meshaddr.Address16) *Child {
	for i := range t.Children {
		c := &t.Children[i]
		if c.IsValid() && c.RLOC16 == rloc16 {
			return c
		}
	}
	return nil
}

// ByShortRouter resolves a router RLOC16 in constant time via direct
// indexing.
func (t *Table) ByShortRouter(rloc16 meshaddr.Address16) *Router {
	id := rloc16.RouterID()
	if id > meshaddr.MaxRouterID {
		return nil
	}
	r := &t.Routers[id]
	if !r.Allocated {
		return nil
	}
	return r
}

// ByExt performs a linear by-extended-address scan, searching children,
// then routers, then the parent record.
func (t *Table) ByExt(addr meshaddr.ExtendedAddress) *Base {
	for i := range t.Children {
		if t.Children[i].ExtAddr == addr {
			return &t.Children[i].Base
		}
	}
	for i := range t.Routers {
		if t.Routers[i].Allocated && t.Routers[i].ExtAddr == addr {
			return &t.Routers[i].Base
		}
	}
	if t.Parent.ExtAddr == addr {
		return &t.Parent.Base
	}
	return nil
}

// ByIPv6 resolves a neighbor from its link-local IPv6 address. If addr's
// interface identifier matches the standard "...:00ff:fe00:RLOC16" compressed
// pattern it reduces to a short-address lookup; otherwise it inverts the
// U/L bit to recover the EUI-64 and falls back to [Table.ByExt].
func (t *Table) ByIPv6(addr netip.Addr) *Base {
	if !addr.Is6() {
		return nil
	}
	b := addr.As16()

	if isCompressedIID(b) {
		rloc16 := meshaddr.Address16(uint16(b[14])<<8 | uint16(b[15]))
		if r := t.ByShortRouter(rloc16); r != nil {
			return &r.Base
		}
		if c := t.ByShortChild(rloc16); c != nil {
			return &c.Base
		}
		return nil
	}

	var iid [8]byte
	copy(iid[:], b[8:16])
	ext := meshaddr.ExtendedAddressFromIID(iid)
	return t.ByExt(ext)
}

// isCompressedIID reports whether the low 8 bytes of a link-local address
// follow the "0000:00ff:fe00:RLOC16" mesh-compressed interface identifier
// pattern.
func isCompressedIID(addr [16]byte) bool {
	return addr[8] == 0 && addr[9] == 0 && addr[10] == 0 &&
		addr[11] == 0xff && addr[12] == 0xfe && addr[13] == 0
}

// ByMACAddr resolves a neighbor from either a short (RLOC16) or extended
// MAC-layer source address.
func (t *Table) ByMACAddr(short *meshaddr.Address16, ext *meshaddr.ExtendedAddress) *Base {
	if ext != nil {
		return t.ByExt(*ext)
	}
	if short != nil {
		if r := t.ByShortRouter(*short); r != nil {
			return &r.Base
		}
		if c := t.ByShortChild(*short); c != nil {
			return &c.Base
		}
	}
	return nil
}

// InvalidateStale implements the stale-neighbor rule: whenever
// a frame from extAddr reports an rloc16 that differs from the stored
// neighbor's, the old entry is invalidated before any further processing.
func (t *Table) InvalidateStale(extAddr meshaddr.ExtendedAddress, reportedRLOC16 meshaddr.Address16) {
	b := t.ByExt(extAddr)
	if b == nil || !b.IsValid() {
		return
	}
	if b.RLOC16 != reportedRLOC16 {
		b.State = StateInvalid
	}
}

// FreeChildSlot returns a pointer to an Invalid child slot, or nil if the
// table is full.
func (t *Table) FreeChildSlot() *Child {
	for i := range t.Children {
		if t.Children[i].State == StateInvalid {
			return &t.Children[i]
		}
	}
	return nil
}

// NumValidChildren counts children currently in the Valid state.
func (t *Table) NumValidChildren() int {
	n := 0
	for i := range t.Children {
		if t.Children[i].IsValid() {
			n++
		}
	}
	return n
}
