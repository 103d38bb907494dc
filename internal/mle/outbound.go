package mle

import (
	"net/netip"
	"time"

	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/mlecodec"
	"github.com/nodecore/mle/internal/mlecrypto"
	"github.com/nodecore/mle/internal/routing"
	"github.com/nodecore/mle/internal/transport"
)

// send encodes and transmits a single MLE command to peerAddr, using the
// current key and the next MLE-layer frame counter.
func (c *Core) send(peerAddr netip.Addr, mode mlecrypto.KeyIDMode, command mlecodec.Command, tlvs []byte) error {
	selfExt := c.Radio.ExtAddress()
	selfAddr := selfExt.LinkLocal()

	frame := mlecrypto.EncodeFrame(
		c.KeyManager.CurrentMleKey(),
		mode,
		c.KeyManager.CurrentSequence(),
		c.KeyManager.MleFrameCounter(),
		selfExt,
		selfAddr, peerAddr,
		command, tlvs,
	)

	return c.UDP.Send(frame.Bytes, transport.LinkInfo{PeerAddr: peerAddr, PeerPort: transport.DefaultPort})
}

func (c *Core) sendMulticast(mode mlecrypto.KeyIDMode, command mlecodec.Command, tlvs []byte) error {
	return c.send(meshaddr.LinkLocalAllNodes, mode, command, tlvs)
}

// sendAdvertisement is the trickle callback: routers and the leader
// advertise the full Route TLV on the trickle schedule. An unpromoted
// REED advertises separately, on its own fixed cadence — see
// [Core.sendReedAdvertisement].
func (c *Core) sendAdvertisement() {
	if !c.Role.IsRouterOrLeader() {
		return
	}

	var tlvs []byte
	tlvs = mlecodec.AppendUint16TLV(tlvs, mlecodec.TypeSourceAddress, uint16(c.selfRLOC16()))
	tlvs = encodeLeaderDataTLV(tlvs, c.Leader)
	tlvs = mlecodec.AppendTLV(tlvs, mlecodec.TypeRoute, c.buildRouteTLV())

	if err := c.sendMulticast(mlecrypto.KeyIDMode1, mlecodec.CommandAdvertisement, tlvs); err != nil {
		c.Logger.Error("sending advertisement", "error", err)
	}
}

// armReedAdvertise (re-)schedules the REED's own low-rate Advertisement,
// spreading the fixed [routing.ReedAdvertiseInterval] period by up to
// [routing.ReedAdvertiseJitter] the way the trickle schedule spreads its
// own transmissions, so that REEDs attached to the same parent don't all
// transmit in lockstep.
func (c *Core) armReedAdvertise() {
	jitter := time.Duration(c.Rand.Int63n(int64(routing.ReedAdvertiseJitter) + 1))
	c.Timers.Add(c.reedAdvertiseTmr, uint32((routing.ReedAdvertiseInterval + jitter).Milliseconds()))
}

// handleReedAdvertiseTimer is the REED cadence's timer callback. It is a
// no-op on anything but a Child, since every other role either advertises
// through the trickle schedule or has no identity worth sending.
func (c *Core) handleReedAdvertiseTimer() {
	if c.Role != RoleChild {
		return
	}
	c.sendReedAdvertisement()
	c.armReedAdvertise()
}

// sendReedAdvertisement sends the identity-only Advertisement an
// unpromoted FFD Child uses to stay visible to the partition without
// carrying any Route TLV of its own.
func (c *Core) sendReedAdvertisement() {
	var tlvs []byte
	tlvs = mlecodec.AppendUint16TLV(tlvs, mlecodec.TypeSourceAddress, uint16(c.selfRLOC16()))
	tlvs = encodeLeaderDataTLV(tlvs, c.Leader)

	if err := c.sendMulticast(mlecrypto.KeyIDMode1, mlecodec.CommandAdvertisement, tlvs); err != nil {
		c.Logger.Error("sending reed advertisement", "error", err)
	}
}

func (c *Core) selfRLOC16() meshaddr.Address16 {
	if c.SelfRouterID > meshaddr.MaxRouterID {
		return meshaddr.InvalidAddr16
	}
	return meshaddr.NewAddress16(c.SelfRouterID, 0)
}

func (c *Core) buildRouteTLV() []byte {
	tlv := routing.RouteTLV{RouterIDSequence: c.Allocator.RouterIDSequence()}

	if c.SelfRouterID <= meshaddr.MaxRouterID {
		tlv.Entries = append(tlv.Entries, routing.RouteEntry{
			RouterID: c.SelfRouterID,
			Cost:     0,
		})
	}

	for id := meshaddr.RouterID(0); id <= meshaddr.MaxRouterID; id++ {
		if id == c.SelfRouterID {
			continue
		}
		r := &c.Table.Routers[id]
		if !r.Allocated {
			continue
		}
		tlv.Entries = append(tlv.Entries, routing.RouteEntry{
			RouterID: id,
			LinkQOut: r.LinkQualityOut,
			LinkQIn:  r.LinkQualityIn,
			Cost:     r.Cost,
		})
	}

	return routing.EncodeRouteTLV(tlv)
}
