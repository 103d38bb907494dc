package mle

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/mlecrypto"
	"github.com/nodecore/mle/internal/mleerr"
	"github.com/nodecore/mle/internal/mletimer"
	"github.com/nodecore/mle/internal/netdata"
	"github.com/nodecore/mle/internal/neighbor"
	"github.com/nodecore/mle/internal/routing"
	"github.com/nodecore/mle/internal/transport"
)

// Params are the constructor-injected configuration items: no persisted
// state is required by the core, so every one of these must be supplied
// fresh at construction.
type Params struct {
	MasterKey              [32]byte
	NetworkName            string
	PanID                  uint16
	Channel                uint8
	LeaderWeight           uint8
	NetworkIDTimeout       time.Duration
	RouterUpgradeThreshold int
	ContextIDReuseDelay    time.Duration
}

// Periodic tick and timeout constants.
const (
	MaxNeighborAge             = 100 * time.Second
	MaxLeaderToRouterTimeout   = 90 * time.Second
	RouterIDSequencePeriod     = 10 * time.Second
	ParentRequestRouterTimeout = 1 * time.Second
	ParentRequestChildTimeout  = 2 * time.Second
	StateUpdatePeriod          = 1 * time.Second

	// MaxLinkRequestAttempts bounds how many router-to-router Link
	// Requests, the first included, are sent before the solicited link is
	// given up on.
	MaxLinkRequestAttempts = 3

	// ParentRequestMaxAttempts bounds how many full router+child scan
	// rounds the attach sub-machine runs before falling back per its
	// filter (see [Core.finishParentSelection]).
	ParentRequestMaxAttempts = 3
)

// Core is the single mutable value the dispatch loop owns: configuration
// and all per-instance state live here, passed by mutable reference into
// every handler.
type Core struct {
	Params Params

	Role Role

	Table       *neighbor.Table
	Allocator   *routing.Allocator
	KeyManager  *mlecrypto.KeyManager
	Timers      *mletimer.Service
	Trickle     *routing.Trickle
	NetData     *netdata.Collaborator
	MeshLocal   *meshaddr.MeshLocalPrefix

	Radio transport.Radio
	UDP   transport.UDP

	Logger *slog.Logger
	Rand   *rand.Rand

	SelfRouterID meshaddr.RouterID
	Leader       meshaddr.LeaderData

	attach            attachState
	stateUpdateTmr    *mletimer.Timer
	routerIDSeqTmr    *mletimer.Timer
	reedAdvertiseTmr  *mletimer.Timer
	linkRequestTmr    *mletimer.Timer

	// leaderDataTime is when Leader was last refreshed, tracked
	// separately from the parent neighbor's own LastHeard so the
	// network-ID timeout (leader data going stale) and parent-silence
	// timeout (the link to the parent itself going quiet) are judged
	// independently.
	leaderDataTime time.Time

	// nowFunc is overridden in tests for determinism.
	nowFunc func() time.Time

	// inbound queues datagrams a transport delivered from its own
	// goroutine, so every touch of Core's state still happens on the
	// single dispatch thread that calls DrainInbound.
	inbound chan inboundDatagram
}

// inboundDatagramQueueLen bounds how many received-but-not-yet-dispatched
// datagrams DrainInbound can fall behind by before new ones are dropped.
const inboundDatagramQueueLen = 256

type inboundDatagram struct {
	message []byte
	info    transport.LinkInfo
}

// New builds a Core in the Disabled role. Call Start to enable it.
func New(
	params Params,
	radio transport.Radio,
	udp transport.UDP,
	logger *slog.Logger,
) *Core {
	table := neighbor.NewTable()
	netData := netdata.New()
	alloc := routing.NewAllocator(table, netData)

	c := &Core{
		Params:     params,
		Role:       RoleDisabled,
		Table:      table,
		Allocator:  alloc,
		KeyManager: mlecrypto.NewKeyManager(params.MasterKey),
		NetData:    netData,
		MeshLocal:  meshaddr.NewMeshLocalPrefix([8]byte{0xfd}),
		Radio:      radio,
		UDP:        udp,
		Logger:     logger,
		Rand:       rand.New(rand.NewSource(1)),
		nowFunc:    time.Now,
		inbound:    make(chan inboundDatagram, inboundDatagramQueueLen),
	}

	c.Timers = mletimer.NewService(c.nowMS, nil)
	c.Trickle = routing.NewTrickle(c.Timers, c.Rand, c.sendAdvertisement)
	c.stateUpdateTmr = mletimer.NewTimer(c.handleStateUpdateTimer)
	c.routerIDSeqTmr = mletimer.NewTimer(c.handleRouterIDSequenceTimer)
	c.reedAdvertiseTmr = mletimer.NewTimer(c.handleReedAdvertiseTimer)
	c.linkRequestTmr = mletimer.NewTimer(c.handleLinkRequestTimer)
	c.attach.timer = mletimer.NewTimer(c.handleAttachTimer)
	c.SelfRouterID = meshaddr.InvalidRouterID

	return c
}

func (c *Core) now() time.Time {
	return c.nowFunc()
}

func (c *Core) nowMS() uint32 {
	return uint32(c.nowFunc().UnixMilli())
}

// touchLeader records that Leader was just refreshed. Call sites assign
// Leader directly wherever fresh leader data arrives; this tracks when.
func (c *Core) touchLeader() {
	c.leaderDataTime = c.now()
}

// leaderDataExpired reports whether Leader has gone stale for longer than
// timeout. A zero timeout means the check is disabled.
func (c *Core) leaderDataExpired(now time.Time, timeout time.Duration) bool {
	return timeout > 0 && !c.leaderDataTime.IsZero() && now.Sub(c.leaderDataTime) >= timeout
}

// Start transitions Disabled -> Detached, opens the UDP endpoint, and arms
// the periodic timers.
func (c *Core) Start(ctx context.Context) error {
	if c.Role != RoleDisabled {
		return mleerr.ErrAlready
	}

	if err := c.UDP.Bind(ctx, transport.DefaultPort, c.enqueueInbound); err != nil {
		return err
	}

	c.Role = RoleDetached
	c.Timers.Add(c.stateUpdateTmr, uint32(StateUpdatePeriod.Milliseconds()))
	c.Timers.Add(c.linkRequestTmr, uint32(LinkRequestRetryInterval.Milliseconds()))

	c.BecomeChild(FilterAnyPartition)

	return nil
}

// enqueueInbound is the callback handed to the transport. A transport may
// deliver datagrams from its own goroutine, so this only queues the
// datagram rather than touching Core state directly; DrainInbound does
// the actual dispatch, from the single thread that owns Core.
func (c *Core) enqueueInbound(message []byte, info transport.LinkInfo) {
	select {
	case c.inbound <- inboundDatagram{message: message, info: info}:
	default:
		c.Logger.Warn("dropping inbound datagram: dispatch thread backed up")
	}
}

// DrainInbound dispatches every datagram queued since the last call, on
// the calling goroutine. Call this — and nothing else that touches Core —
// from the single dispatch thread, alongside Timers.FireTimers.
func (c *Core) DrainInbound() {
	for {
		select {
		case d := <-c.inbound:
			c.handleDatagram(d.message, d.info)
		default:
			return
		}
	}
}

// Stop returns the core to Disabled: every table is cleared, every timer
// stopped, and the UDP endpoint closed.
func (c *Core) Stop() error {
	if c.Role == RoleDisabled {
		return mleerr.ErrAlready
	}

	c.Timers.Remove(c.stateUpdateTmr)
	c.Timers.Remove(c.routerIDSeqTmr)
	c.Timers.Remove(c.reedAdvertiseTmr)
	c.Timers.Remove(c.linkRequestTmr)
	c.Trickle.Stop()
	c.attach.stop(c)

	c.Table.Clear()
	c.Role = RoleDisabled

	return c.UDP.Close()
}
