// Package meshaddr defines the address and capability types shared by every
// MLE component: the 16-bit routing locator, the 64-bit extended address,
// the per-device mode bitset, and the leader-data tuple that identifies a
// partition.
package meshaddr

import (
	"fmt"
	"net/netip"
)

// RouterID is a 6-bit router identifier, 0 through [MaxRouterID].  63 is
// [InvalidRouterID].
type RouterID uint8

const (
	// MaxRouterID is the highest legal allocated router ID.
	MaxRouterID RouterID = 62

	// InvalidRouterID marks "no router", e.g. an unreachable next hop.
	InvalidRouterID RouterID = 63
)

// Address16 is a 16-bit mesh routing locator: the high 6 bits name a
// [RouterID], the low 10 bits name a child index within that router (0
// means the router itself).
type Address16 uint16

const (
	// Broadcast is the RLOC16 reserved for mesh-wide broadcast.
	Broadcast Address16 = 0xffff

	// InvalidAddr16 marks an unassigned RLOC16.
	InvalidAddr16 Address16 = 0xfffe
)

// RouterID returns the router component of a.
func (a Address16) RouterID() RouterID {
	return RouterID(a >> 10)
}

// ChildID returns the child component of a; 0 means the router itself.
func (a Address16) ChildID() uint16 {
	return uint16(a) & 0x3ff
}

// IsRouter reports whether a addresses a router (child ID 0) rather than one
// of its children.
func (a Address16) IsRouter() bool {
	return a.ChildID() == 0
}

// NewAddress16 packs a router ID and child ID into an [Address16].
func NewAddress16(router RouterID, child uint16) Address16 {
	return Address16(uint16(router)<<10 | (child & 0x3ff))
}

func (a Address16) String() string {
	switch a {
	case Broadcast:
		return "broadcast"
	case InvalidAddr16:
		return "invalid"
	default:
		return fmt.Sprintf("0x%04x", uint16(a))
	}
}

// ExtendedAddress is an IEEE EUI-64, the mesh device's globally-stable
// identity.
type ExtendedAddress [8]byte

// InterfaceID derives the link-local IPv6 interface identifier by flipping
// the universal/local bit of the first byte, per RFC 4291 §2.5.1.
func (e ExtendedAddress) InterfaceID() (iid [8]byte) {
	iid = e
	iid[0] ^= 0x02
	return iid
}

// ExtendedAddressFromIID reverses [ExtendedAddress.InterfaceID].
func ExtendedAddressFromIID(iid [8]byte) (e ExtendedAddress) {
	e = iid
	e[0] ^= 0x02
	return e
}

func (e ExtendedAddress) String() string {
	return fmt.Sprintf("%02x%02x%02x%02x%02x%02x%02x%02x",
		e[0], e[1], e[2], e[3], e[4], e[5], e[6], e[7])
}

// LinkLocal builds the MLE link-local IPv6 address for this extended
// address, fe80::<iid> in the fe80::/10 link-local range.
func (e ExtendedAddress) LinkLocal() netip.Addr {
	iid := e.InterfaceID()
	var b [16]byte
	b[0], b[1] = 0xfe, 0x80
	copy(b[8:], iid[:])
	return netip.AddrFrom16(b)
}

// DeviceMode is the four-bit capability set a device advertises in its Mode
// TLV and that a neighbor caches about it.
type DeviceMode uint8

const (
	// ModeRxOnWhenIdle: receiver stays on between polls.
	ModeRxOnWhenIdle DeviceMode = 1 << 3
	// ModeSecureDataRequest: data polls carry MAC-layer security.
	ModeSecureDataRequest DeviceMode = 1 << 2
	// ModeFullThreadDevice: may become Router or Leader.
	ModeFullThreadDevice DeviceMode = 1 << 1
	// ModeFullNetworkData: wants the full network-data blob.
	ModeFullNetworkData DeviceMode = 1 << 0
)

// IsFFD reports whether m names a full Thread device.
func (m DeviceMode) IsFFD() bool {
	return m&ModeFullThreadDevice != 0
}

// Valid reports whether m obeys the FFD-implies-RxOnWhenIdle invariant.
func (m DeviceMode) Valid() bool {
	if m.IsFFD() && m&ModeRxOnWhenIdle == 0 {
		return false
	}
	return true
}

// LeaderData identifies a partition and its network-data freshness.
type LeaderData struct {
	PartitionID       uint32
	Weighting         uint8
	DataVersion       uint8
	StableDataVersion uint8
	LeaderRouterID    uint8
}
