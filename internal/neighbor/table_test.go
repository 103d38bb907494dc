package neighbor_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/neighbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func netipAddrFrom16(b [16]byte) netip.Addr {
	return netip.AddrFrom16(b)
}

func TestTable_ByShortRouter(t *testing.T) {
	tbl := neighbor.NewTable()
	tbl.Routers[5].Allocated = true
	tbl.Routers[5].ExtAddr = meshaddr.ExtendedAddress{5}
	tbl.Routers[5].State = neighbor.StateValid

	rloc := meshaddr.NewAddress16(5, 0)
	got := tbl.ByShortRouter(rloc)
	require.NotNil(t, got)
	assert.Equal(t, meshaddr.ExtendedAddress{5}, got.ExtAddr)

	assert.Nil(t, tbl.ByShortRouter(meshaddr.NewAddress16(6, 0)))
}

func TestTable_ByIPv6CompressedIID(t *testing.T) {
	tbl := neighbor.NewTable()
	tbl.Routers[9].Allocated = true
	tbl.Routers[9].State = neighbor.StateValid
	tbl.Routers[9].RLOC16 = meshaddr.NewAddress16(9, 0)

	addr := meshaddr.NewAddress16(9, 0)

	// fe80::0:ff:fe00:<rloc16>
	ip := [16]byte{0xfe, 0x80}
	ip[11] = 0xff
	ip[12] = 0xfe
	ip[13] = 0
	ip[14] = byte(addr >> 8)
	ip[15] = byte(addr)

	got := tbl.ByIPv6(netipAddrFrom16(ip))
	require.NotNil(t, got)
}

func TestTable_InvalidateStale(t *testing.T) {
	tbl := neighbor.NewTable()
	ext := meshaddr.ExtendedAddress{1, 2, 3}
	tbl.Routers[3].Allocated = true
	tbl.Routers[3].ExtAddr = ext
	tbl.Routers[3].State = neighbor.StateValid
	tbl.Routers[3].RLOC16 = meshaddr.NewAddress16(3, 0)

	tbl.InvalidateStale(ext, meshaddr.NewAddress16(4, 0))

	assert.Equal(t, neighbor.StateInvalid, tbl.Routers[3].State)
}

func TestBase_AcceptFrameCounterMonotonic(t *testing.T) {
	var b neighbor.Base
	b.MleFrameCounter = 100

	assert.False(t, b.AcceptFrameCounter(95))
	assert.True(t, b.AcceptFrameCounter(100))
	assert.Equal(t, uint32(101), b.MleFrameCounter)
}

func TestBase_AcceptKeyEraRejectsRollback(t *testing.T) {
	var b neighbor.Base
	b.PreviousKey = false

	assert.False(t, b.AcceptKeyEra(true), "must reject previous-era frame before neighbor ever used it")

	b.PreviousKey = true
	assert.True(t, b.AcceptKeyEra(true), "allowed once the neighbor has been confirmed tracking the previous era")

	assert.True(t, b.AcceptKeyEra(false), "moving to current is always allowed")
	assert.False(t, b.AcceptKeyEra(true), "a later rollback attempt is rejected again once on current")
}

func TestBase_Expired(t *testing.T) {
	var b neighbor.Base
	now := time.Now()
	b.Touch(now)

	assert.False(t, b.Expired(now.Add(50*time.Second), 100*time.Second))
	assert.True(t, b.Expired(now.Add(150*time.Second), 100*time.Second))
}
