package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"github.com/tvlink/tvlink/internal/protocol"
)

// streamDialTimeout bounds the TCP+TLS handshake for raw stream connections.
const streamDialTimeout = 10 * time.Second

// StreamConn is a raw bidirectional TLS stream carrying length-prefixed
// frames, used by the Android TV pairing and remote-control services. The TV
// presents a self-signed certificate; verification is disabled and the peer
// certificate is instead consumed by the pairing secret derivation.
type StreamConn struct {
	conn *tls.Conn
}

// DialStream opens a TLS stream presenting the given client certificate.
func DialStream(ctx context.Context, host string, port int, clientCert tls.Certificate) (*StreamConn, error) {
	d := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: streamDialTimeout},
		Config: &tls.Config{
			Certificates:       []tls.Certificate{clientCert},
			InsecureSkipVerify: true,
		},
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tls dial %s failed: %w", addr, err)
	}
	return &StreamConn{conn: conn.(*tls.Conn)}, nil
}

// PeerCertificate returns the server's leaf certificate from the handshake.
func (c *StreamConn) PeerCertificate() (*x509.Certificate, error) {
	certs := c.conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("server presented no certificate")
	}
	return certs[0], nil
}

// WriteFrame writes one length-prefixed frame.
func (c *StreamConn) WriteFrame(payload []byte) error {
	return protocol.WritePairingFrame(c.conn, payload)
}

// ReadFrame reads one length-prefixed frame, bounded by the deadline.
func (c *StreamConn) ReadFrame(deadline time.Time) ([]byte, error) {
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}
	return protocol.ReadPairingFrame(c.conn)
}

// Close tears the stream down. Safe to call more than once.
func (c *StreamConn) Close() error {
	return c.conn.Close()
}
