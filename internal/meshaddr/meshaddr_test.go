package meshaddr_test

import (
	"testing"

	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress16_RouterAndChildID(t *testing.T) {
	a := meshaddr.NewAddress16(5, 3)
	assert.Equal(t, meshaddr.RouterID(5), a.RouterID())
	assert.Equal(t, uint16(3), a.ChildID())
	assert.False(t, a.IsRouter())

	router := meshaddr.NewAddress16(5, 0)
	assert.True(t, router.IsRouter())
}

func TestExtendedAddress_InterfaceIDRoundTrip(t *testing.T) {
	e := meshaddr.ExtendedAddress{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77}
	iid := e.InterfaceID()
	require.Equal(t, byte(0x02), iid[0])

	got := meshaddr.ExtendedAddressFromIID(iid)
	assert.Equal(t, e, got)
}

func TestDeviceMode_Valid(t *testing.T) {
	ffd := meshaddr.ModeFullThreadDevice
	assert.False(t, ffd.Valid(), "FFD without RxOnWhenIdle must be invalid")

	ok := meshaddr.ModeFullThreadDevice | meshaddr.ModeRxOnWhenIdle
	assert.True(t, ok.Valid())

	rfd := meshaddr.ModeSecureDataRequest
	assert.True(t, rfd.Valid())
}

func TestMeshLocalPrefix_SetIsAtomic(t *testing.T) {
	m := meshaddr.NewMeshLocalPrefix([8]byte{0xfd, 0, 0, 0, 0, 0, 0x12, 0x34})
	before := m.RealmLocalAllNodes()

	m.Set([8]byte{0xfd, 0, 0, 0, 0, 0, 0x56, 0x78})
	after := m.RealmLocalAllNodes()

	assert.NotEqual(t, before, after)
}
