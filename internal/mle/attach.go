package mle

import (
	crand "crypto/rand"
	"net/netip"

	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/mlecodec"
	"github.com/nodecore/mle/internal/mlecrypto"
	"github.com/nodecore/mle/internal/mleerr"
	"github.com/nodecore/mle/internal/mletimer"
	"github.com/nodecore/mle/internal/neighbor"
	"github.com/nodecore/mle/internal/routing"
)

// PartitionFilter narrows which partitions a parent search will accept:
// a plain reattach takes any partition, the periodic "is there something
// better out there" scan only accepts a strictly better one, and a
// network-ID-timeout reattach only accepts a parent still inside the
// current partition.
type PartitionFilter uint8

const (
	FilterAnyPartition PartitionFilter = iota
	FilterBetterPartition
	FilterSamePartition
)

type attachPhase uint8

const (
	attachIdle attachPhase = iota
	attachRouterScan
	attachChildScan
	attachChildIDRequest
)

// parentCandidate is one Parent Response collected during a scan, scored by
// [bestParent] once both scan windows have closed.
type parentCandidate struct {
	extAddr          meshaddr.ExtendedAddress
	linkLocal        netip.Addr
	rloc16           meshaddr.Address16
	leaderData       meshaddr.LeaderData
	linkFrameCounter uint32
	mleFrameCounter  uint32
	connectivity     uint32
	version          uint16
}

// attachState is the attach sub-machine's working set. [Core.BecomeChild]
// resets it at every call except attempts, which is cleared only by stop.
type attachState struct {
	timer      *mletimer.Timer
	phase      attachPhase
	filter     PartitionFilter
	challenge  [8]byte
	candidates []parentCandidate
	attempts   int
}

func (a *attachState) stop(c *Core) {
	c.Timers.Remove(a.timer)
	a.phase = attachIdle
	a.candidates = nil
	a.attempts = 0
}

// BecomeChild starts (or restarts) the two-phase parent search: routers
// only for [ParentRequestRouterTimeout], then routers and children for
// [ParentRequestChildTimeout].
func (c *Core) BecomeChild(filter PartitionFilter) {
	if c.Role == RoleDisabled {
		return
	}

	c.attach.filter = filter
	c.attach.phase = attachRouterScan
	c.attach.candidates = c.attach.candidates[:0]
	if _, err := crand.Read(c.attach.challenge[:]); err != nil {
		c.Logger.Error("generating parent request challenge", "error", err)
	}

	c.sendParentRequest(mlecodec.ScanMaskRouter)
	c.Timers.Add(c.attach.timer, uint32(ParentRequestRouterTimeout.Milliseconds()))
}

func (c *Core) handleAttachTimer() {
	switch c.attach.phase {
	case attachRouterScan:
		c.attach.phase = attachChildScan
		c.sendParentRequest(mlecodec.ScanMaskRouter | mlecodec.ScanMaskChild)
		c.Timers.Add(c.attach.timer, uint32(ParentRequestChildTimeout.Milliseconds()))

	case attachChildScan:
		c.finishParentSelection()

	default:
	}
}

func (c *Core) sendParentRequest(scanMask uint8) {
	var tlvs []byte
	tlvs = mlecodec.AppendUint8TLV(tlvs, mlecodec.TypeScanMask, scanMask)
	tlvs = mlecodec.AppendTLV(tlvs, mlecodec.TypeChallenge, c.attach.challenge[:])
	tlvs = mlecodec.AppendUint16TLV(tlvs, mlecodec.TypeVersion, mlecodec.CurrentVersion)

	if err := c.send(meshaddr.LinkLocalAllNodes, mlecrypto.KeyIDMode5, mlecodec.CommandParentRequest, tlvs); err != nil {
		c.Logger.Error("sending parent request", "error", err)
	}
}

// handleParentResponse records a candidate parent during either scan
// window; responses arriving outside both windows are dropped. rxMarginDB
// is the margin this device measured receiving the response, combined with
// the responder's own advertised margin into the two-way connectivity
// metric §4.6 scores candidates by.
func (c *Core) handleParentResponse(peerExtAddr meshaddr.ExtendedAddress, peerAddr netip.Addr, tlvs []byte, rxMarginDB int) {
	if c.attach.phase != attachRouterScan && c.attach.phase != attachChildScan {
		return
	}

	var challenge [8]byte
	if err := mlecodec.ReadTLV(tlvs, mlecodec.TypeResponse, challenge[:]); err != nil || challenge != c.attach.challenge {
		return
	}

	rloc16u, err := mlecodec.ReadUint16TLV(tlvs, mlecodec.TypeAddress16)
	if err != nil {
		return
	}

	ld, err := decodeLeaderDataTLV(tlvs)
	if err != nil {
		return
	}

	switch c.attach.filter {
	case FilterBetterPartition:
		if !partitionIsBetter(ld, c.Leader) {
			return
		}
	case FilterSamePartition:
		if ld.PartitionID != c.Leader.PartitionID {
			return
		}
	}

	linkFrameCounter, err := mlecodec.ReadUint32TLV(tlvs, mlecodec.TypeLinkFrameCounter)
	if err != nil {
		return
	}
	mleFrameCounter, err := mlecodec.ReadUint32TLV(tlvs, mlecodec.TypeMleFrameCounter)
	if err != nil {
		return
	}

	advertisedMargin, err := mlecodec.ReadUint8TLV(tlvs, mlecodec.TypeLinkMargin)
	if err != nil {
		return
	}
	lq1, lq2, lq3, ok := decodeConnectivityTLV(tlvs)
	if !ok {
		return
	}

	rxMargin := clampMarginToUint8(rxMarginDB)
	twoWayMargin := advertisedMargin
	if rxMargin < twoWayMargin {
		twoWayMargin = rxMargin
	}
	linkQualityThisHop := linkQualityFromMargin(int(twoWayMargin))

	// A router-only scan demands a clean direct link to the candidate
	// itself; a weaker link is left for the wider child-scan window.
	if c.attach.phase == attachRouterScan && linkQualityThisHop < 3 {
		return
	}

	ver, err := mlecodec.ReadUint16TLV(tlvs, mlecodec.TypeVersion)
	if err != nil {
		ver = mlecodec.CurrentVersion
	}

	c.attach.candidates = append(c.attach.candidates, parentCandidate{
		extAddr:          peerExtAddr,
		linkLocal:        peerAddr,
		rloc16:           meshaddr.Address16(rloc16u),
		leaderData:       ld,
		linkFrameCounter: linkFrameCounter,
		mleFrameCounter:  mleFrameCounter,
		connectivity:     connectivityMetric(linkQualityThisHop, lq1, lq2, lq3),
		version:          ver,
	})
}

// finishParentSelection scores every candidate collected this round and
// either begins the Child ID Request handshake with the best one, or, once
// ParentRequestMaxAttempts rounds have turned up nothing acceptable, falls
// back according to what kind of search this was: a better-partition scan
// gives up and stays put, a same-partition scan widens to any partition,
// and a plain any-partition scan — having found no partition at all —
// forms a new one.
func (c *Core) finishParentSelection() {
	best, ok := bestParent(c.attach.candidates)
	if !ok {
		c.attach.attempts++
		if c.attach.attempts < ParentRequestMaxAttempts {
			c.BecomeChild(c.attach.filter)
			return
		}

		c.attach.attempts = 0
		filter := c.attach.filter
		c.attach.stop(c)

		switch filter {
		case FilterBetterPartition:
			c.Logger.Debug("no better partition found, staying put")
		case FilterSamePartition:
			c.Logger.Warn("partition unreachable, searching any partition")
			c.BecomeChild(FilterAnyPartition)
		default:
			c.Logger.Warn("no partition found, forming a new one")
			if err := c.BecomeLeader(); err != nil {
				c.Logger.Error("forming partition", "error", err)
			}
		}
		return
	}

	c.attach.attempts = 0
	c.attach.phase = attachChildIDRequest
	c.sendChildIDRequest(best)
}

func (c *Core) sendChildIDRequest(p parentCandidate) {
	var tlvs []byte
	tlvs = mlecodec.AppendTLV(tlvs, mlecodec.TypeResponse, c.attach.challenge[:])
	tlvs = mlecodec.AppendUint8TLV(tlvs, mlecodec.TypeMode, byte(deviceMode()))
	tlvs = mlecodec.AppendUint32TLV(tlvs, mlecodec.TypeTimeout, uint32(MaxNeighborAge.Seconds()))
	tlvs = mlecodec.AppendUint16TLV(tlvs, mlecodec.TypeVersion, mlecodec.CurrentVersion)

	c.Table.Parent = neighbor.Router{}
	c.Table.Parent.ExtAddr = p.extAddr
	c.Table.Parent.RLOC16 = p.rloc16
	c.Table.Parent.State = neighbor.StateChildIDRequest
	c.Table.Parent.LinkFrameCounter = p.linkFrameCounter
	c.Table.Parent.MleFrameCounter = p.mleFrameCounter
	c.Table.Parent.LastHeard = c.now()
	c.Leader = p.leaderData
	c.touchLeader()

	if err := c.send(p.linkLocal, mlecrypto.KeyIDMode5, mlecodec.CommandChildIDRequest, tlvs); err != nil {
		c.Logger.Error("sending child id request", "error", err)
	}
}

// handleChildIDResponse completes the attach flow: accept the short
// address, install the parent record as Valid, move to Child.
func (c *Core) handleChildIDResponse(peerExtAddr meshaddr.ExtendedAddress, tlvs []byte) {
	if c.attach.phase != attachChildIDRequest || c.Table.Parent.ExtAddr != peerExtAddr {
		return
	}

	rloc16u, err := mlecodec.ReadUint16TLV(tlvs, mlecodec.TypeAddress16)
	if err != nil {
		return
	}

	ld, err := decodeLeaderDataTLV(tlvs)
	if err != nil {
		return
	}

	if err := c.Radio.SetShortAddress(meshaddr.Address16(rloc16u)); err != nil {
		c.Logger.Error("setting short address", "error", err)
		return
	}

	c.Leader = ld
	c.touchLeader()
	c.Table.Parent.State = neighbor.StateValid
	c.Table.Parent.Touch(c.now())
	c.attach.stop(c)
	c.Role = RoleChild
	c.armReedAdvertise()

	c.Logger.Info("attached", "rloc16", meshaddr.Address16(rloc16u), "partition_id", ld.PartitionID)

	if t, ok := mlecodec.FindTLV(tlvs, mlecodec.TypeRoute); ok {
		if rt, decErr := routing.DecodeRouteTLV(tlvs[t.Offset : t.Offset+t.Length]); decErr == nil {
			for _, e := range rt.Entries {
				if e.RouterID <= meshaddr.MaxRouterID {
					c.Table.Routers[e.RouterID].Allocated = true
				}
			}
			if c.shouldUpgradeToRouter(len(rt.Entries)) {
				if err := c.BecomeRouter(); err != nil {
					c.Logger.Debug("deferring router upgrade", "error", err)
				}
			}
		}
	}
}

func decodeLeaderDataTLV(tlvs []byte) (meshaddr.LeaderData, error) {
	t, ok := mlecodec.FindTLV(tlvs, mlecodec.TypeLeaderData)
	if !ok || t.Length != 8 {
		return meshaddr.LeaderData{}, mleerr.ErrParse
	}
	v := tlvs[t.Offset : t.Offset+t.Length]
	return meshaddr.LeaderData{
		PartitionID:       uint32(v[0])<<24 | uint32(v[1])<<16 | uint32(v[2])<<8 | uint32(v[3]),
		Weighting:         v[4],
		DataVersion:       v[5],
		StableDataVersion: v[6],
		LeaderRouterID:    v[7],
	}, nil
}

func encodeLeaderDataTLV(dst []byte, ld meshaddr.LeaderData) []byte {
	v := []byte{
		byte(ld.PartitionID >> 24), byte(ld.PartitionID >> 16), byte(ld.PartitionID >> 8), byte(ld.PartitionID),
		ld.Weighting, ld.DataVersion, ld.StableDataVersion, ld.LeaderRouterID,
	}
	return mlecodec.AppendTLV(dst, mlecodec.TypeLeaderData, v)
}

// deviceMode is the capability set this implementation always advertises:
// a full Thread device with its receiver kept on, wanting the full
// network-data blob. A battery-powered SED profile is not modeled, since
// that requires a real MAC/radio layer this module doesn't have.
func deviceMode() meshaddr.DeviceMode {
	return meshaddr.ModeRxOnWhenIdle | meshaddr.ModeFullThreadDevice | meshaddr.ModeFullNetworkData
}
