package ssdp

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/ipv4"
)

// multicastTTL keeps M-SEARCH traffic on the local segment plus one hop
const multicastTTL = 2

// Transport is the datagram socket used by a session.
// *net.UDPConn and any net.PacketConn satisfy it.
type Transport interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
	ReadFrom(b []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// ListenFunc opens the transport for a new session
type ListenFunc func() (Transport, error)

// ListenUDP opens an IPv4 UDP socket on an ephemeral port, set up to send to
// the SSDP multicast group and receive unicast replies.
func ListenUDP() (Transport, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket: %w", err)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(multicastTTL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set multicast TTL: %w", err)
	}
	// Loopback lets a responder on this host answer too
	if err := pc.SetMulticastLoopback(true); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable multicast loopback: %w", err)
	}

	return conn, nil
}

// isTimeout reports whether err is a read deadline expiry
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
