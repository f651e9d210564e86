package transport

import (
	"fmt"
	"net"
	"time"
)

// UDPSocket wraps one UDP socket used for multicast search: write a datagram
// to a group address, then read responses until a deadline.
type UDPSocket struct {
	conn net.PacketConn
}

// OpenUDP opens a UDP socket on an ephemeral local port.
func OpenUDP() (*UDPSocket, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("failed to open udp socket: %w", err)
	}
	return &UDPSocket{conn: conn}, nil
}

// Send writes one datagram to addr.
func (s *UDPSocket) Send(data []byte, addr string) error {
	dst, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", addr, err)
	}
	if _, err := s.conn.WriteTo(data, dst); err != nil {
		return fmt.Errorf("failed to send datagram to %s: %w", addr, err)
	}
	return nil
}

// Receive reads one datagram, returning the payload and the sender host.
// The deadline bounds the wait; a timeout surfaces as a net.Error with
// Timeout() == true.
func (s *UDPSocket) Receive(buf []byte, deadline time.Time) (int, string, error) {
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return 0, "", fmt.Errorf("failed to set read deadline: %w", err)
	}
	n, from, err := s.conn.ReadFrom(buf)
	if err != nil {
		return 0, "", err
	}

	host, _, splitErr := net.SplitHostPort(from.String())
	if splitErr != nil {
		host = from.String()
	}
	return n, host, nil
}

// Close releases the socket. Safe to call more than once.
func (s *UDPSocket) Close() error {
	return s.conn.Close()
}
