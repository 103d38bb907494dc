package transport

import (
	"context"
	"log/slog"
	"net"
	"net/netip"

	"github.com/AdguardTeam/golibs/errors"
	"golang.org/x/net/ipv6"
)

// DefaultPort is kUdpPort.
const DefaultPort uint16 = 19788

// ErrClosed is returned from Send after Close.
const ErrClosed errors.Error = "transport: udp endpoint closed"

// DefaultUDP is the link-local IPv6 UDP transport used outside of tests: a
// single bound socket, read via [golang.org/x/net/ipv6.PacketConn] so the
// per-datagram hop limit and arriving interface index (hop_limit=255,
// interface_id) are concrete rather than simulated.
type DefaultUDP struct {
	logger *slog.Logger
	iface  *net.Interface

	conn   *net.UDPConn
	pconn  *ipv6.PacketConn
	closed bool
}

// NewDefaultUDP builds a transport bound to the given network interface
// (used as the outbound multicast interface and as the zone of the bound
// and destination addresses; no multicast group is joined).
func NewDefaultUDP(logger *slog.Logger, iface *net.Interface) *DefaultUDP {
	return &DefaultUDP{logger: logger, iface: iface}
}

// Bind implements [UDP].
func (u *DefaultUDP) Bind(ctx context.Context, port uint16, handler func(message []byte, info LinkInfo)) error {
	conn, err := net.ListenUDP("udp6", &net.UDPAddr{Port: int(port), Zone: u.iface.Name})
	if err != nil {
		return errors.Annotate(err, "transport: listen udp6: %w")
	}

	pconn := ipv6.NewPacketConn(conn)
	if err = pconn.SetControlMessage(ipv6.FlagHopLimit|ipv6.FlagInterface|ipv6.FlagSrc|ipv6.FlagDst, true); err != nil {
		_ = conn.Close()
		return errors.Annotate(err, "transport: set control message: %w")
	}

	if err = pconn.SetMulticastInterface(u.iface); err != nil {
		u.logger.WarnContext(ctx, "setting multicast interface", "error", err)
	}

	u.conn = conn
	u.pconn = pconn

	go u.readLoop(ctx, handler)

	return nil
}

func (u *DefaultUDP) readLoop(ctx context.Context, handler func(message []byte, info LinkInfo)) {
	buf := make([]byte, 2048)
	for {
		n, cm, peer, err := u.pconn.ReadFrom(buf)
		if err != nil {
			if u.closed {
				return
			}
			u.logger.ErrorContext(ctx, "reading udp6 datagram", "error", err)
			continue
		}

		info := LinkInfo{HopLimit: 255}
		udpPeer, _ := peer.(*net.UDPAddr)
		if udpPeer != nil {
			addr, _ := netip.AddrFromSlice(udpPeer.IP)
			info.PeerAddr = addr
			info.PeerPort = uint16(udpPeer.Port)
		}
		if cm != nil {
			info.HopLimit = uint8(cm.HopLimit)
			info.InterfaceID = cm.IfIndex
			if dst, ok := netip.AddrFromSlice(cm.Dst); ok {
				info.SockAddr = dst
			}
		}

		message := make([]byte, n)
		copy(message, buf[:n])
		handler(message, info)
	}
}

// Send implements [UDP].
func (u *DefaultUDP) Send(message []byte, info LinkInfo) error {
	if u.closed {
		return ErrClosed
	}

	cm := &ipv6.ControlMessage{HopLimit: 255, IfIndex: info.InterfaceID}
	dst := &net.UDPAddr{IP: net.IP(info.PeerAddr.AsSlice()), Port: int(info.PeerPort), Zone: u.iface.Name}

	_, err := u.pconn.WriteTo(message, cm, dst)
	if err != nil {
		return errors.Annotate(err, "transport: send udp6 datagram: %w")
	}
	return nil
}

// Close implements [UDP].
func (u *DefaultUDP) Close() error {
	u.closed = true
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
