// Package transport defines the narrow capability interfaces MLE consumes
// for sending/receiving secured datagrams and for querying the radio. The
// concrete implementations (default_udp.go, null_radio.go) hide the
// HDLC/SPI/RCP split entirely behind the [UDP] and [Radio] interfaces.
package transport

import (
	"context"
	"net/netip"

	"github.com/nodecore/mle/internal/meshaddr"
)

// LinkInfo carries the sideband metadata that arrives with every received
// datagram.
type LinkInfo struct {
	PeerAddr     netip.Addr
	PeerPort     uint16
	SockAddr     netip.Addr
	SockPort     uint16
	HopLimit     uint8
	InterfaceID  int
	LinkMarginDB int
}

// UDP is the transport capability MLE consumes for its single link-local
// endpoint. Implementations may deliver Receive callbacks on their own
// goroutine ([DefaultUDP] calls them from its read loop); the receiver is
// responsible for handing them to its dispatch goroutine.
type UDP interface {
	// Bind opens and binds the link-local endpoint on port, delivering
	// every inbound datagram to handler until Close is called.
	Bind(ctx context.Context, port uint16, handler func(message []byte, info LinkInfo)) error

	// Send queues message for delivery to info.PeerAddr:info.PeerPort.
	// It returns immediately; backpressure is the transport's concern,
	// not MLE's.
	Send(message []byte, info LinkInfo) error

	Close() error
}

// Radio is the narrow capability interface onto the 802.15.4 platform,
// hiding the MAC frame builder and the HDLC/SPI/RCP transport entirely.
type Radio interface {
	ExtAddress() meshaddr.ExtendedAddress
	ShortAddress() meshaddr.Address16
	SetShortAddress(addr meshaddr.Address16) error

	TxPower() int
	SetChannel(channel uint8) error
	SetRxOnWhenIdle(on bool) error
	SetPollPeriod(ms uint32) error
}
