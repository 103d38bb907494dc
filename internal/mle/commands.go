package mle

import (
	crand "crypto/rand"
	"net/netip"

	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/mlecodec"
	"github.com/nodecore/mle/internal/mlecrypto"
	"github.com/nodecore/mle/internal/neighbor"
	"github.com/nodecore/mle/internal/routing"
	"github.com/nodecore/mle/internal/transport"
)

func keyIndexFor(seq uint32) uint8 {
	return byte(seq&0x7f) + 1
}

// keyLookup implements [mlecrypto.KeyLookup] over this core's key manager,
// trying current, then previous, then — for Mode5 frames naming a sequence
// ahead of ours — a temporary future key.
func (c *Core) keyLookup(h mlecrypto.Header) (key [mlecrypto.MleKeySize]byte, resolvedSeq uint32, ok bool) {
	cur := c.KeyManager.CurrentSequence()

	switch h.KeyIDMode {
	case mlecrypto.KeyIDMode5:
		switch {
		case h.KeySequence == cur:
			return c.KeyManager.CurrentMleKey(), cur, true
		case h.KeySequence == cur-1 && c.KeyManager.HasPreviousKey():
			return c.KeyManager.PreviousMleKey(), cur - 1, true
		case h.KeySequence > cur:
			return c.KeyManager.TemporaryMleKey(h.KeySequence), h.KeySequence, true
		default:
			return key, 0, false
		}

	case mlecrypto.KeyIDMode1:
		if h.KeyIndex == keyIndexFor(cur) {
			return c.KeyManager.CurrentMleKey(), cur, true
		}
		if c.KeyManager.HasPreviousKey() && h.KeyIndex == keyIndexFor(cur-1) {
			return c.KeyManager.PreviousMleKey(), cur - 1, true
		}
		return key, 0, false

	default:
		return key, 0, false
	}
}

func peerExtFromLinkLocal(addr netip.Addr) meshaddr.ExtendedAddress {
	if !addr.Is6() {
		return meshaddr.ExtendedAddress{}
	}
	b := addr.As16()
	var iid [8]byte
	copy(iid[:], b[8:])
	return meshaddr.ExtendedAddressFromIID(iid)
}

// handleDatagram is the transport.UDP receive callback: authenticate,
// enforce the replay/key-era rules, then dispatch on the
// command byte.
func (c *Core) handleDatagram(message []byte, info transport.LinkInfo) {
	selfAddr := c.Radio.ExtAddress().LinkLocal()
	peerAddr := info.PeerAddr
	peerExt := peerExtFromLinkLocal(peerAddr)

	decoded, resolvedSeq, err := mlecrypto.DecodeFrame(message, peerExt, selfAddr, peerAddr, c.keyLookup)
	if err != nil {
		c.Logger.Debug("dropping frame", "error", err, "peer", peerExt)
		return
	}

	if base := c.Table.ByExt(peerExt); base != nil {
		usedPrevious := resolvedSeq == c.KeyManager.CurrentSequence()-1
		if !base.AcceptKeyEra(usedPrevious) {
			c.Logger.Debug("dropping frame: key era rollback", "peer", peerExt)
			return
		}
		if !base.AcceptFrameCounter(decoded.Header.FrameCounter) {
			c.Logger.Debug("dropping frame: replayed counter", "peer", peerExt)
			return
		}
		base.Touch(c.now())
	}

	if resolvedSeq > c.KeyManager.CurrentSequence() {
		c.KeyManager.SetCurrentSequence(resolvedSeq)
	}

	c.dispatch(decoded.Command, peerExt, peerAddr, decoded.TLVs, info.LinkMarginDB)
}

func (c *Core) dispatch(command mlecodec.Command, peerExt meshaddr.ExtendedAddress, peerAddr netip.Addr, tlvs []byte, linkMarginDB int) {
	switch command {
	case mlecodec.CommandAdvertisement:
		c.handleAdvertisement(peerExt, peerAddr, tlvs)
	case mlecodec.CommandParentRequest:
		c.handleParentRequest(peerExt, peerAddr, tlvs, linkMarginDB)
	case mlecodec.CommandParentResponse:
		c.handleParentResponse(peerExt, peerAddr, tlvs, linkMarginDB)
	case mlecodec.CommandChildIDRequest:
		c.handleChildIDRequestAsParent(peerExt, peerAddr, tlvs)
	case mlecodec.CommandChildIDResponse:
		c.handleChildIDResponse(peerExt, tlvs)
	case mlecodec.CommandLinkRequest:
		c.handleLinkRequest(peerExt, peerAddr, tlvs)
	case mlecodec.CommandLinkAccept:
		c.handleLinkAccept(peerExt, peerAddr, tlvs, false)
	case mlecodec.CommandLinkAcceptAndRequest:
		c.handleLinkAccept(peerExt, peerAddr, tlvs, true)
	case mlecodec.CommandLinkReject:
		c.handleLinkReject(peerExt)
	case mlecodec.CommandDataRequest:
		c.handleDataRequest(peerAddr)
	case mlecodec.CommandDataResponse:
		c.handleDataResponse(tlvs)
	case mlecodec.CommandChildUpdateRequest:
		c.handleChildUpdateRequest(peerExt, peerAddr, tlvs)
	case mlecodec.CommandChildUpdateResponse:
		c.handleChildUpdateResponse(peerExt, tlvs)
	default:
		c.Logger.Debug("unhandled command", "command", command)
	}
}

// handleAdvertisement runs the route-table update and router-ID-sequence
// propagation on a router/leader, resetting the trickle schedule on any
// change; a child just refreshes its parent's leader data.
func (c *Core) handleAdvertisement(peerExt meshaddr.ExtendedAddress, _ netip.Addr, tlvs []byte) {
	srcRloc, err := mlecodec.ReadUint16TLV(tlvs, mlecodec.TypeSourceAddress)
	if err != nil {
		return
	}
	ld, err := decodeLeaderDataTLV(tlvs)
	if err != nil {
		return
	}

	c.Table.InvalidateStale(peerExt, meshaddr.Address16(srcRloc))

	if !c.Role.IsRouterOrLeader() {
		if c.Role == RoleChild && peerExt == c.Table.Parent.ExtAddr {
			c.Leader = ld
			c.touchLeader()
			c.Table.Parent.Touch(c.now())
		}
		return
	}

	routeTLV, ok := mlecodec.FindTLV(tlvs, mlecodec.TypeRoute)
	if !ok {
		return
	}
	rt, err := routing.DecodeRouteTLV(tlvs[routeTLV.Offset : routeTLV.Offset+routeTLV.Length])
	if err != nil {
		return
	}

	nbrID := meshaddr.Address16(srcRloc).RouterID()
	if nbrID > meshaddr.MaxRouterID {
		return
	}

	r := &c.Table.Routers[nbrID]
	freshlyDiscovered := !r.Allocated
	if freshlyDiscovered {
		r.Allocated = true
		r.ExtAddr = peerExt
		r.RLOC16 = meshaddr.Address16(srcRloc)
	}
	r.Touch(c.now())

	if freshlyDiscovered {
		c.sendLinkRequest(r)
	}

	adopted, selfDropped := routing.PropagateRouterIDSequence(c.Allocator, c.Table, c.SelfRouterID, rt, c.Role == RoleDetached)
	if selfDropped {
		c.BecomeDetached()
		return
	}

	result := routing.ApplyRouteTLV(c.Table, c.SelfRouterID, nbrID, rt, c.now())
	if adopted || result.Changed {
		c.Trickle.Reset()
	}
}

// handleParentRequest answers a scanning device's broadcast, as a router or
// leader with a free child slot. linkMarginDB is the margin this device
// measured receiving the request, advertised back so the scanner can fold
// it into the two-way connectivity metric in [Core.handleParentResponse].
func (c *Core) handleParentRequest(peerExt meshaddr.ExtendedAddress, peerAddr netip.Addr, tlvs []byte, linkMarginDB int) {
	if !c.Role.IsRouterOrLeader() {
		return
	}

	scanMask, err := mlecodec.ReadUint8TLV(tlvs, mlecodec.TypeScanMask)
	if err != nil || scanMask&mlecodec.ScanMaskRouter == 0 {
		return
	}

	var challenge [8]byte
	if err = mlecodec.ReadTLV(tlvs, mlecodec.TypeChallenge, challenge[:]); err != nil {
		return
	}

	if c.Table.FreeChildSlot() == nil {
		return
	}

	lq1, lq2, lq3 := routing.LinkQualityCounts(c.Table)

	var out []byte
	out = mlecodec.AppendTLV(out, mlecodec.TypeResponse, challenge[:])
	out = mlecodec.AppendUint16TLV(out, mlecodec.TypeAddress16, uint16(c.selfRLOC16()))
	out = encodeLeaderDataTLV(out, c.Leader)
	out = mlecodec.AppendUint8TLV(out, mlecodec.TypeLinkQuality, 3)
	out = mlecodec.AppendUint32TLV(out, mlecodec.TypeLinkFrameCounter, c.KeyManager.MacFrameCounter())
	out = mlecodec.AppendUint32TLV(out, mlecodec.TypeMleFrameCounter, c.KeyManager.MleFrameCounter())
	out = mlecodec.AppendUint8TLV(out, mlecodec.TypeLinkMargin, clampMarginToUint8(linkMarginDB))
	out = encodeConnectivityTLV(out, lq1, lq2, lq3)
	out = mlecodec.AppendUint16TLV(out, mlecodec.TypeVersion, mlecodec.CurrentVersion)

	if err = c.send(peerAddr, mlecrypto.KeyIDMode5, mlecodec.CommandParentResponse, out); err != nil {
		c.Logger.Error("sending parent response", "error", err)
	}
}

func nextFreeChildID(t *neighbor.Table, self meshaddr.RouterID) uint16 {
	used := make(map[uint16]bool)
	for i := range t.Children {
		ch := &t.Children[i]
		if ch.IsValid() && ch.RLOC16.RouterID() == self {
			used[ch.RLOC16.ChildID()] = true
		}
	}
	for id := uint16(1); id < 1024; id++ {
		if !used[id] {
			return id
		}
	}
	return 0
}

// handleChildIDRequestAsParent completes a child's attach from the parent
// side: allocate an RLOC16, install the child record as Valid, and respond.
func (c *Core) handleChildIDRequestAsParent(peerExt meshaddr.ExtendedAddress, peerAddr netip.Addr, tlvs []byte) {
	if !c.Role.IsRouterOrLeader() {
		return
	}

	slot := c.Table.FreeChildSlot()
	if slot == nil {
		return
	}

	modeV, err := mlecodec.ReadUint8TLV(tlvs, mlecodec.TypeMode)
	if err != nil {
		return
	}
	timeoutSec, err := mlecodec.ReadUint32TLV(tlvs, mlecodec.TypeTimeout)
	if err != nil {
		timeoutSec = uint32(MaxNeighborAge.Seconds())
	}

	childID := nextFreeChildID(c.Table, c.SelfRouterID)
	if childID == 0 {
		return
	}
	rloc16 := meshaddr.NewAddress16(c.SelfRouterID, childID)

	slot.Clear()
	slot.ExtAddr = peerExt
	slot.RLOC16 = rloc16
	slot.Mode = meshaddr.DeviceMode(modeV)
	slot.TimeoutMS = timeoutSec * 1000
	slot.State = neighbor.StateValid
	slot.Touch(c.now())

	var out []byte
	out = mlecodec.AppendUint16TLV(out, mlecodec.TypeAddress16, uint16(rloc16))
	out = encodeLeaderDataTLV(out, c.Leader)
	out = mlecodec.AppendUint16TLV(out, mlecodec.TypeVersion, mlecodec.CurrentVersion)
	out = mlecodec.AppendTLV(out, mlecodec.TypeRoute, c.buildRouteTLV())

	if err = c.send(peerAddr, mlecrypto.KeyIDMode5, mlecodec.CommandChildIDResponse, out); err != nil {
		c.Logger.Error("sending child id response", "error", err)
	}

	c.Trickle.Reset()
}

// handleLinkRequest answers a router-to-router link probe.
func (c *Core) handleLinkRequest(peerExt meshaddr.ExtendedAddress, peerAddr netip.Addr, tlvs []byte) {
	if !c.Role.IsRouterOrLeader() {
		return
	}

	var challenge [8]byte
	if err := mlecodec.ReadTLV(tlvs, mlecodec.TypeChallenge, challenge[:]); err != nil {
		return
	}

	var out []byte
	out = mlecodec.AppendTLV(out, mlecodec.TypeResponse, challenge[:])
	out = mlecodec.AppendUint16TLV(out, mlecodec.TypeSourceAddress, uint16(c.selfRLOC16()))
	out = mlecodec.AppendUint32TLV(out, mlecodec.TypeLinkFrameCounter, c.KeyManager.MacFrameCounter())
	out = mlecodec.AppendUint32TLV(out, mlecodec.TypeMleFrameCounter, c.KeyManager.MleFrameCounter())

	if err := c.send(peerAddr, mlecrypto.KeyIDMode1, mlecodec.CommandLinkAccept, out); err != nil {
		c.Logger.Error("sending link accept", "error", err)
	}
}

func (c *Core) handleLinkAccept(peerExt meshaddr.ExtendedAddress, peerAddr netip.Addr, tlvs []byte, andRequest bool) {
	if !c.Role.IsRouterOrLeader() {
		return
	}

	rloc16, err := mlecodec.ReadUint16TLV(tlvs, mlecodec.TypeSourceAddress)
	if err != nil {
		return
	}
	id := meshaddr.Address16(rloc16).RouterID()
	if id > meshaddr.MaxRouterID {
		return
	}

	r := &c.Table.Routers[id]

	if r.State == neighbor.StateLinkRequest {
		var response [8]byte
		if err = mlecodec.ReadTLV(tlvs, mlecodec.TypeResponse, response[:]); err != nil || response != r.PendingChallenge {
			return
		}
		r.LinkRequestAttempts = 0
	}

	r.Allocated = true
	r.ExtAddr = peerExt
	r.RLOC16 = meshaddr.Address16(rloc16)
	r.State = neighbor.StateValid
	r.LinkQualityIn = 3
	r.LinkQualityOut = 3
	r.Touch(c.now())

	if !andRequest {
		return
	}

	var challenge [8]byte
	if _, err = crand.Read(challenge[:]); err != nil {
		return
	}

	var out []byte
	out = mlecodec.AppendTLV(out, mlecodec.TypeChallenge, challenge[:])
	out = mlecodec.AppendUint16TLV(out, mlecodec.TypeSourceAddress, uint16(c.selfRLOC16()))
	if err = c.send(peerAddr, mlecrypto.KeyIDMode1, mlecodec.CommandLinkAccept, out); err != nil {
		c.Logger.Error("sending link accept", "error", err)
	}
}

func (c *Core) handleLinkReject(peerExt meshaddr.ExtendedAddress) {
	if base := c.Table.ByExt(peerExt); base != nil {
		base.State = neighbor.StateInvalid
	}
}

// handleDataRequest answers a Data Request with the current network-data
// blob.
func (c *Core) handleDataRequest(peerAddr netip.Addr) {
	var out []byte
	out = mlecodec.AppendTLV(out, mlecodec.TypeNetworkData, c.NetData.Bytes(false))
	out = encodeLeaderDataTLV(out, c.Leader)

	if err := c.send(peerAddr, mlecrypto.KeyIDMode1, mlecodec.CommandDataResponse, out); err != nil {
		c.Logger.Error("sending data response", "error", err)
	}
}

// handleDataResponse adopts network data newer than what this device
// already holds.
func (c *Core) handleDataResponse(tlvs []byte) {
	t, ok := mlecodec.FindTLV(tlvs, mlecodec.TypeNetworkData)
	if !ok {
		return
	}
	ld, err := decodeLeaderDataTLV(tlvs)
	if err != nil {
		return
	}

	c.NetData.SetNetworkData(ld.DataVersion, ld.StableDataVersion, false, tlvs[t.Offset:t.Offset+t.Length])
	c.Leader = ld
	c.touchLeader()
}

// handleChildUpdateRequest is the child-supervision keep-alive: a parent
// refreshes the child's LastHeard and echoes a Child Update Response. A
// Status TLV is only attached when the sender is not a recognized child,
// telling it to detach rather than keep treating this as its parent.
func (c *Core) handleChildUpdateRequest(peerExt meshaddr.ExtendedAddress, peerAddr netip.Addr, tlvs []byte) {
	var out []byte
	out = mlecodec.AppendUint16TLV(out, mlecodec.TypeSourceAddress, uint16(c.selfRLOC16()))

	var child *neighbor.Base
	for i := range c.Table.Children {
		if c.Table.Children[i].ExtAddr == peerExt {
			child = &c.Table.Children[i].Base
			break
		}
	}
	if child == nil {
		out = mlecodec.AppendUint8TLV(out, mlecodec.TypeStatus, 1)
	} else {
		child.Touch(c.now())
		if modeV, err := mlecodec.ReadUint8TLV(tlvs, mlecodec.TypeMode); err == nil {
			child.Mode = meshaddr.DeviceMode(modeV)
		}
	}

	if err := c.send(peerAddr, mlecrypto.KeyIDMode1, mlecodec.CommandChildUpdateResponse, out); err != nil {
		c.Logger.Error("sending child update response", "error", err)
	}
}

// handleChildUpdateResponse refreshes the parent link on a plain
// acknowledgement; a Status TLV marks rejection, forcing reattachment.
func (c *Core) handleChildUpdateResponse(peerExt meshaddr.ExtendedAddress, tlvs []byte) {
	if _, ok := mlecodec.FindTLV(tlvs, mlecodec.TypeStatus); ok {
		if c.Role == RoleChild && peerExt == c.Table.Parent.ExtAddr {
			c.BecomeDetached()
		}
		return
	}

	if c.Role == RoleChild && peerExt == c.Table.Parent.ExtAddr {
		c.Table.Parent.Touch(c.now())
	}
}
