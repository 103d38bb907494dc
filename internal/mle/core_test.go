package mle_test

import (
	"context"
	"sync"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/stretchr/testify/require"

	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/mle"
	"github.com/nodecore/mle/internal/mleerr"
	"github.com/nodecore/mle/internal/transport"
)

// fakeUDP is an in-memory transport.UDP: it records every Send and lets a
// test inject inbound datagrams by calling the captured Bind handler.
type fakeUDP struct {
	mu      sync.Mutex
	handler func(message []byte, info transport.LinkInfo)
	sent    []sentDatagram
	closed  bool
}

type sentDatagram struct {
	message []byte
	info    transport.LinkInfo
}

func (f *fakeUDP) Bind(_ context.Context, _ uint16, handler func(message []byte, info transport.LinkInfo)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return nil
}

func (f *fakeUDP) Send(message []byte, info transport.LinkInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(message))
	copy(cp, message)
	f.sent = append(f.sent, sentDatagram{message: cp, info: info})
	return nil
}

func (f *fakeUDP) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeUDP) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestCore(t *testing.T) (*mle.Core, *fakeUDP) {
	t.Helper()

	udp := &fakeUDP{}
	radio := transport.NewNullRadio(meshaddr.ExtendedAddress{0x02, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77})
	logger := slogutil.NewDiscardLogger()

	params := mle.Params{
		NetworkName:            "test-mesh",
		PanID:                  0xface,
		Channel:                20,
		LeaderWeight:           64,
		RouterUpgradeThreshold: 2,
	}

	return mle.New(params, radio, udp, logger), udp
}

func TestCoreStartStop(t *testing.T) {
	core, udp := newTestCore(t)
	require.Equal(t, mle.RoleDisabled, core.Role)

	require.NoError(t, core.Start(context.Background()))
	require.Equal(t, mle.RoleDetached, core.Role)
	require.Greater(t, udp.sentCount(), 0, "Start triggers an initial parent request broadcast")

	err := core.Start(context.Background())
	require.ErrorIs(t, err, mleerr.ErrAlready)

	require.NoError(t, core.Stop())
	require.Equal(t, mle.RoleDisabled, core.Role)
	require.True(t, udp.closed)

	err = core.Stop()
	require.ErrorIs(t, err, mleerr.ErrAlready)
}

func TestBecomeLeaderRequiresNotDisabled(t *testing.T) {
	core, _ := newTestCore(t)

	err := core.BecomeLeader()
	require.ErrorIs(t, err, mleerr.ErrInvalidState)
}

func TestBecomeLeaderAssignsRouterIDAndPartition(t *testing.T) {
	core, _ := newTestCore(t)
	require.NoError(t, core.Start(context.Background()))

	require.NoError(t, core.BecomeLeader())
	require.Equal(t, mle.RoleLeader, core.Role)
	require.LessOrEqual(t, core.SelfRouterID, meshaddr.MaxRouterID)
	require.Equal(t, uint8(64), core.Leader.Weighting)

	self := core.Table.Routers[core.SelfRouterID]
	require.True(t, self.Allocated)
	require.Equal(t, core.SelfRouterID, self.NextHop)
	require.Equal(t, uint8(0), self.Cost)
}

func TestBecomeRouterRequiresNotDisabled(t *testing.T) {
	core, _ := newTestCore(t)

	err := core.BecomeRouter()
	require.ErrorIs(t, err, mleerr.ErrInvalidState)
}

func TestBecomeRouterRejectsWhenAlreadyRouting(t *testing.T) {
	core, _ := newTestCore(t)
	require.NoError(t, core.Start(context.Background()))
	require.NoError(t, core.BecomeLeader())

	err := core.BecomeRouter()
	require.ErrorIs(t, err, mleerr.ErrAlready)
}

func TestBecomeDetachedReleasesRouterIDAndRestartsAttach(t *testing.T) {
	core, udp := newTestCore(t)
	require.NoError(t, core.Start(context.Background()))
	require.NoError(t, core.BecomeLeader())

	sentBefore := udp.sentCount()
	core.BecomeDetached()

	require.Equal(t, mle.RoleDetached, core.Role)
	require.Equal(t, meshaddr.InvalidRouterID, core.SelfRouterID)
	require.Equal(t, 0, core.Table.NumValidChildren())
	require.Greater(t, udp.sentCount(), sentBefore, "BecomeDetached re-enters the attach scan and broadcasts again")
}

func TestStartArmsStateUpdateTimer(t *testing.T) {
	core, _ := newTestCore(t)
	require.NoError(t, core.Start(context.Background()))

	require.Greater(t, core.Timers.Len(), 0, "Start must arm at least the state-update and attach timers")
}
