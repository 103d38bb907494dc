package routing

import (
	"math/rand"
	"time"

	"github.com/nodecore/mle/internal/mletimer"
)

// AdvertiseIntervalMin and AdvertiseIntervalMax bound the advertise
// trickle schedule.
const (
	AdvertiseIntervalMin = 1 * time.Second
	AdvertiseIntervalMax = 32 * time.Second
)

// ReedAdvertiseInterval and its jitter govern the low-rate advertisement a
// non-promoted FFD child sends so it can be discovered as a REED parent.
const (
	ReedAdvertiseInterval = 570 * time.Second
	ReedAdvertiseJitter   = 60 * time.Second
)

// Trickle drives the doubling/randomized-jitter advertise schedule. It
// owns one [mletimer.Timer] and calls send on every fire.
type Trickle struct {
	timer    *mletimer.Timer
	timers   *mletimer.Service
	interval time.Duration
	send     func()
	rng      *rand.Rand
}

// NewTrickle builds a trickle schedule starting at [AdvertiseIntervalMin].
// send is invoked from the timer service's dispatch context each time the
// schedule fires.
func NewTrickle(timers *mletimer.Service, rng *rand.Rand, send func()) *Trickle {
	tr := &Trickle{timers: timers, interval: AdvertiseIntervalMin, send: send, rng: rng}
	tr.timer = mletimer.NewTimer(tr.fire)
	return tr
}

func (tr *Trickle) fire() {
	tr.send()

	tr.interval *= 2
	if tr.interval > AdvertiseIntervalMax {
		tr.interval = AdvertiseIntervalMax
	}
	tr.scheduleNext()
}

// scheduleNext arms the next send at interval/2 + random(0, interval/2),
// the jittered doubling schedule trickle timers use.
func (tr *Trickle) scheduleNext() {
	half := tr.interval / 2
	jitter := time.Duration(tr.rng.Int63n(int64(half) + 1))
	tr.timers.Add(tr.timer, uint32((half + jitter).Milliseconds()))
}

// Start arms the first send.
func (tr *Trickle) Start() {
	tr.scheduleNext()
}

// Stop cancels any pending send.
func (tr *Trickle) Stop() {
	tr.timers.Remove(tr.timer)
}

// Reset snaps the interval back to [AdvertiseIntervalMin] and reschedules,
// called on any routing-table change.
func (tr *Trickle) Reset() {
	tr.interval = AdvertiseIntervalMin
	tr.timers.Remove(tr.timer)
	tr.scheduleNext()
}
