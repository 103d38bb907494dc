package meshaddr

import "net/netip"

// LinkLocalAllNodes is the MLE link-local all-nodes multicast group,
// ff02::1, used for Parent Request, Advertisement, and Link Request.
var LinkLocalAllNodes = netip.MustParseAddr("ff02::1")

// MeshLocalPrefix holds the /64 mesh-local prefix a partition uses to build
// its realm-local multicast group and ULA addressing. [MeshLocalPrefix.Set]
// recomputes only the realm-local all-nodes group; no prefix-derived
// link-local group is kept, and [LinkLocalAllNodes] stays the fixed ff02::1.
type MeshLocalPrefix struct {
	prefix             [8]byte
	realmLocalAllNodes netip.Addr
}

// NewMeshLocalPrefix builds a [MeshLocalPrefix] and computes its derived
// multicast address.
func NewMeshLocalPrefix(prefix [8]byte) *MeshLocalPrefix {
	m := &MeshLocalPrefix{}
	m.Set(prefix)
	return m
}

// Set replaces the mesh-local prefix and recomputes the realm-local
// all-Thread-nodes multicast address in the same call, so no reader ever
// observes one updated without the other.
func (m *MeshLocalPrefix) Set(prefix [8]byte) {
	m.prefix = prefix
	m.realmLocalAllNodes = realmLocalAllNodesFor(prefix)
}

// Prefix returns the current /64 mesh-local prefix.
func (m *MeshLocalPrefix) Prefix() [8]byte {
	return m.prefix
}

// RealmLocalAllNodes returns ff03::1's partition-scoped analogue: the
// realm-local all-Thread-nodes multicast address derived from the current
// mesh-local prefix.
func (m *MeshLocalPrefix) RealmLocalAllNodes() netip.Addr {
	return m.realmLocalAllNodes
}

func realmLocalAllNodesFor(prefix [8]byte) netip.Addr {
	// ff03:0:0:<low 16 bits of prefix, folded>::1, a realm-local
	// multicast group scoped to the mesh-local prefix in use.
	var b [16]byte
	b[0], b[1] = 0xff, 0x03
	b[6], b[7] = prefix[6], prefix[7]
	b[15] = 0x01
	return netip.AddrFrom16(b)
}
