package mletimer_test

import (
	"testing"

	"github.com/nodecore/mle/internal/mletimer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*mletimer.Service, *uint32, *[]uint32) {
	var clock uint32
	var armed []uint32
	svc := mletimer.NewService(
		func() uint32 { return clock },
		func(fireTime *uint32) {
			if fireTime == nil {
				armed = append(armed, 0xffffffff)
				return
			}
			armed = append(armed, *fireTime)
		},
	)
	return svc, &clock, &armed
}

func TestService_FiresInOrder(t *testing.T) {
	svc, clock, _ := newTestService(t)

	var order []string
	a := mletimer.NewTimer(func() { order = append(order, "a") })
	b := mletimer.NewTimer(func() { order = append(order, "b") })
	c := mletimer.NewTimer(func() { order = append(order, "c") })

	svc.Add(b, 20)
	svc.Add(a, 10)
	svc.Add(c, 10)

	*clock = 25
	svc.FireTimers()

	require.Equal(t, []string{"a", "c", "b"}, order)
	assert.Equal(t, 0, svc.Len())
}

func TestService_RemoveDuringFireIsNotReinvoked(t *testing.T) {
	svc, clock, _ := newTestService(t)

	calls := 0
	var self *mletimer.Timer
	self = mletimer.NewTimer(func() {
		calls++
		svc.Remove(self)
	})

	svc.Add(self, 5)
	*clock = 5
	svc.FireTimers()

	assert.Equal(t, 1, calls)
}

func TestService_HandlerCanReArmItself(t *testing.T) {
	svc, clock, _ := newTestService(t)

	fires := 0
	var self *mletimer.Timer
	self = mletimer.NewTimer(func() {
		fires++
		if fires < 3 {
			svc.Add(self, 1)
		}
	})

	svc.Add(self, 1)
	for range 3 {
		*clock++
		svc.FireTimers()
	}

	assert.Equal(t, 3, fires)
}

func TestService_RemoveNonHeadReprogramsOnlyOnHeadChange(t *testing.T) {
	svc, clock, armed := newTestService(t)
	*clock = 0

	a := mletimer.NewTimer(func() {})
	b := mletimer.NewTimer(func() {})

	svc.Add(a, 10)
	svc.Add(b, 20)
	before := len(*armed)

	svc.Remove(b)
	assert.Equal(t, before, len(*armed), "removing a non-head timer must not reprogram the alarm")

	svc.Remove(a)
	assert.Greater(t, len(*armed), before, "removing the head timer must reprogram the alarm")
}
