package neighbor

import "net/netip"

// MaxRegisteredAddresses is the number of IPv6 addresses a child may
// register with its parent.
const MaxRegisteredAddresses = 4

// Child specializes [Base] with the state a parent keeps about an attached
// child device.
type Child struct {
	Base

	TimeoutMS         uint32
	NetworkDataVersion uint8
	RequestedTLVs     []uint8

	RegisteredAddresses [MaxRegisteredAddresses]netip.Addr
	numRegistered       int
}

// RegisterAddress appends addr to the child's registered address list,
// replacing the oldest entry once MaxRegisteredAddresses is reached: a
// fixed-capacity, overwrite-oldest ring rather than an unbounded slice.
func (c *Child) RegisterAddress(addr netip.Addr) {
	if c.numRegistered < MaxRegisteredAddresses {
		c.RegisteredAddresses[c.numRegistered] = addr
		c.numRegistered++
		return
	}

	copy(c.RegisteredAddresses[:], c.RegisteredAddresses[1:])
	c.RegisteredAddresses[MaxRegisteredAddresses-1] = addr
}

// Addresses returns the currently registered addresses.
func (c *Child) Addresses() []netip.Addr {
	return c.RegisteredAddresses[:c.numRegistered]
}

// Clear resets c to its zero value, as happens when a child expires or is
// evicted from the table.
func (c *Child) Clear() {
	*c = Child{}
}
