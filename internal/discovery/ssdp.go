package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tvlink/tvlink/internal/logging"
	"github.com/tvlink/tvlink/internal/transport"
)

const (
	// SSDPMulticastAddr is the well-known SSDP multicast group.
	SSDPMulticastAddr = "239.255.255.250:1900"

	// ssdpReadBuffer sizes the datagram read buffer. Description responses
	// are HTTP-like headers and fit comfortably.
	ssdpReadBuffer = 4096
)

// SSDPResponse is one raw service response from a device.
type SSDPResponse struct {
	// Host is the responding device's address.
	Host string

	// Text is the raw HTTP-like response.
	Text string
}

// Header extracts a named header (case-insensitive) from the raw response
// text. Returns "" when absent.
func (r *SSDPResponse) Header(name string) string {
	for _, line := range strings.Split(r.Text, "\r\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(line[:idx]), name) {
			return strings.TrimSpace(line[idx+1:])
		}
	}
	return ""
}

// SSDPEngine issues M-SEARCH multicast queries and collects raw responses.
// Each search target runs on its own socket so a failing target never blocks
// the others.
type SSDPEngine struct {
	mu    sync.Mutex
	socks []*transport.UDPSocket
}

// NewSSDPEngine creates an idle engine.
func NewSSDPEngine() *SSDPEngine {
	return &SSDPEngine{}
}

// buildMSearch renders the M-SEARCH datagram for a target. MX hints how long
// devices may delay their response, matching the listen window.
func buildMSearch(target string, mx int) []byte {
	if mx < 1 {
		mx = 1
	}
	return []byte("M-SEARCH * HTTP/1.1\r\n" +
		"HOST: " + SSDPMulticastAddr + "\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		fmt.Sprintf("MX: %d\r\n", mx) +
		"ST: " + target + "\r\n" +
		"\r\n")
}

// Search sends one M-SEARCH for the target and streams responses until the
// window elapses, the context is cancelled, or a socket error occurs. The
// returned channel is closed when the target completes; a socket error is
// reported once through the log and ends the target without affecting other
// targets.
func (e *SSDPEngine) Search(ctx context.Context, target string, window time.Duration) (<-chan SSDPResponse, error) {
	sock, err := transport.OpenUDP()
	if err != nil {
		return nil, fmt.Errorf("ssdp: %w", err)
	}

	e.mu.Lock()
	e.socks = append(e.socks, sock)
	e.mu.Unlock()

	if err := sock.Send(buildMSearch(target, int(window.Seconds())), SSDPMulticastAddr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("ssdp: %w", err)
	}
	logging.LogDiscovery(target, "msearch_sent")

	out := make(chan SSDPResponse, 16)
	deadline := time.Now().Add(window)

	go func() {
		defer close(out)
		defer sock.Close()

		buf := make([]byte, ssdpReadBuffer)
		for {
			if ctx.Err() != nil {
				return
			}
			n, host, err := sock.Receive(buf, deadline)
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					logging.LogDiscovery(target, "window_elapsed")
					return
				}
				// Closed by Stop, or a genuine socket failure. Either way
				// this target is done; report once and do not retry within
				// the sweep.
				logging.LogDiscovery(target, "socket_error", zap.Error(err))
				return
			}

			select {
			case out <- SSDPResponse{Host: host, Text: string(buf[:n])}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Stop closes every open socket, ending all in-flight searches. Calling Stop
// with no search running is a no-op.
func (e *SSDPEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.socks {
		_ = s.Close()
	}
	e.socks = nil
}
