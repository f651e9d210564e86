package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// wsHandshakeTimeout bounds the WebSocket upgrade itself; the surrounding
// connect attempt carries its own (much longer) pairing deadline.
const wsHandshakeTimeout = 10 * time.Second

// WSConn is a thin wrapper around a gorilla WebSocket connection. TVs present
// self-signed certificates, so certificate verification is disabled for the
// wss dial.
type WSConn struct {
	conn *websocket.Conn
}

// DialWS opens a WebSocket connection to the given URL.
func DialWS(ctx context.Context, url string) (*WSConn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: wsHandshakeTimeout,
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: true},
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s failed (status %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial %s failed: %w", url, err)
	}
	return &WSConn{conn: conn}, nil
}

// WriteText sends one text frame.
func (c *WSConn) WriteText(data []byte) error {
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("websocket write failed: %w", err)
	}
	return nil
}

// ReadText reads the next text or binary frame payload.
func (c *WSConn) ReadText() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("websocket read failed: %w", err)
	}
	return data, nil
}

// SetReadDeadline bounds the next read.
func (c *WSConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close tears the connection down. Safe to call more than once.
func (c *WSConn) Close() error {
	return c.conn.Close()
}
