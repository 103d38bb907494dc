package transport

import (
	"sync/atomic"

	"github.com/nodecore/mle/internal/meshaddr"
)

// NullRadio is a software stand-in for the 802.15.4 radio: it tracks the
// addressing and channel state an MLE core reads and writes, with no
// hardware behind it. The actual MAC/PHY driver is out of scope; this
// only configures the radio's addressing state, never a real transceiver.
type NullRadio struct {
	extAddr meshaddr.ExtendedAddress

	shortAddr    atomic.Uint32
	channel      atomic.Uint32
	rxOnWhenIdle atomic.Bool
	pollPeriodMS atomic.Uint32
}

// NewNullRadio builds a radio stand-in identified by extAddr.
func NewNullRadio(extAddr meshaddr.ExtendedAddress) *NullRadio {
	r := &NullRadio{extAddr: extAddr}
	r.shortAddr.Store(uint32(meshaddr.InvalidAddr16))
	return r
}

// ExtAddress implements [Radio].
func (r *NullRadio) ExtAddress() meshaddr.ExtendedAddress {
	return r.extAddr
}

// ShortAddress implements [Radio].
func (r *NullRadio) ShortAddress() meshaddr.Address16 {
	return meshaddr.Address16(r.shortAddr.Load())
}

// SetShortAddress implements [Radio].
func (r *NullRadio) SetShortAddress(addr meshaddr.Address16) error {
	r.shortAddr.Store(uint32(addr))
	return nil
}

// TxPower implements [Radio]; the stand-in reports a fixed nominal value.
func (r *NullRadio) TxPower() int {
	return 0
}

// SetChannel implements [Radio].
func (r *NullRadio) SetChannel(channel uint8) error {
	r.channel.Store(uint32(channel))
	return nil
}

// SetRxOnWhenIdle implements [Radio].
func (r *NullRadio) SetRxOnWhenIdle(on bool) error {
	r.rxOnWhenIdle.Store(on)
	return nil
}

// SetPollPeriod implements [Radio].
func (r *NullRadio) SetPollPeriod(ms uint32) error {
	r.pollPeriodMS.Store(ms)
	return nil
}
