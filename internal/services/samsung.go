package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tvlink/tvlink/internal/creds"
	"github.com/tvlink/tvlink/internal/device"
	"github.com/tvlink/tvlink/internal/logging"
	"github.com/tvlink/tvlink/internal/protocol"
	"github.com/tvlink/tvlink/internal/transport"
)

const (
	// samsungAppName is the client name the TV shows on its pairing prompt.
	samsungAppName = "tvlink"

	// samsungPairingTimeout bounds the whole token handshake. Long because
	// the user has to physically press Allow on the TV.
	samsungPairingTimeout = 60 * time.Second

	// samsungPingInterval is the app-level keepalive cadence.
	samsungPingInterval = 30 * time.Second

	// samsungReconnectDelay defers the reconnect after a ping failure so a
	// sleeping TV is not hammered.
	samsungReconnectDelay = 5 * time.Second
)

// samsungWakePorts are the candidate channel ports. 8002 is the TLS channel
// on current firmware, 8001 the plaintext one on older sets. Wake requests
// go to both in parallel; the channel dial uses the recorded port.
var samsungWakePorts = []int{8002, 8001}

// samsungResult resolves one connect attempt.
type samsungResult struct {
	token string
	err   error
}

// SamsungService drives Samsung's authenticated WebSocket channel.
//
// The token handshake walks NoToken -> AwaitingPermission -> HasToken:
// the first channel open (empty token) makes the TV display its permission
// prompt, and the first inbound frame decides the attempt. A granted prompt
// delivers a token which is persisted and immediately used for a fresh
// authenticated open; a declined prompt clears any stored token and fails
// the attempt. Each attempt carries a correlation id so a late frame and
// the pairing timeout cannot both resolve it.
type SamsungService struct {
	dev      *device.Device
	delegate device.ConnectionDelegate
	store    creds.Store
	http     *transport.HTTPClient
	st       state

	// chanPort is a field so tests can point the channel at a local server.
	chanPort int

	mu      sync.Mutex
	conn    *transport.WSConn
	attempt int
	pending chan samsungResult

	pingStop  chan struct{}
	reconnect *time.Timer
}

// NewSamsungService builds the channel service for the device.
func NewSamsungService(dev *device.Device, delegate device.ConnectionDelegate, store creds.Store) *SamsungService {
	return &SamsungService{
		dev:      dev,
		delegate: delegate,
		store:    store,
		http:     transport.NewHTTPClient(transport.DefaultHTTPTimeout, 0),
	}
}

func (s *SamsungService) Device() *device.Device { return s.dev }

func (s *SamsungService) State() ConnState { return s.st.get() }

// Connect establishes the authenticated channel, pairing first if no usable
// token is stored.
func (s *SamsungService) Connect(ctx context.Context) error {
	if err := s.st.transition(StateDisconnected, StateConnecting); err != nil {
		return NewConnectionError(err.Error(), nil, s.dev.Address)
	}

	token, _ := s.store.Token(device.BrandSamsung, s.dev.ID)

	err := s.connectWithToken(ctx, token)
	if err != nil && token != "" && IsAuthError(err) {
		// Stored token rejected: the TV was likely factory reset. Clear it
		// and restart the pairing flow from scratch.
		logging.Warn("Stored Samsung token rejected, re-pairing",
			zap.String("device", s.dev.ID))
		if cerr := s.store.ClearToken(device.BrandSamsung, s.dev.ID); cerr != nil {
			logging.Error("Failed to clear rejected token", zap.Error(cerr))
		}
		err = s.connectWithToken(ctx, "")
	}

	if err != nil {
		s.st.set(StateDisconnected)
		if s.delegate != nil {
			s.delegate.OnError(err)
		}
		return err
	}

	s.dev.Port = s.channelPort()
	s.st.set(StateConnected)
	s.startPing()
	logging.LogConnection(fmt.Sprintf("%s:%d", s.dev.Address, s.dev.Port), "connected")
	if s.delegate != nil {
		s.delegate.OnConnected(s.dev)
	}
	return nil
}

// connectWithToken opens the channel. An empty token triggers the pairing
// prompt on the TV; a granted prompt recurses once with the issued token.
func (s *SamsungService) connectWithToken(ctx context.Context, token string) error {
	if token == "" {
		s.wake(ctx)
	}

	url := protocol.SamsungChannelURL(s.dev.Address, s.channelPort(), samsungAppName, token)
	conn, err := transport.DialWS(ctx, url)
	if err != nil {
		return NewConnectionError("channel dial failed", err, s.dev.Address)
	}

	// Mint a fresh attempt id and pending slot. Only the matching attempt
	// may resolve it; a stale read-loop frame or an expired timer from a
	// previous attempt finds the id changed and is discarded.
	s.mu.Lock()
	s.attempt++
	attempt := s.attempt
	pending := make(chan samsungResult, 1)
	s.pending = pending
	s.conn = conn
	s.mu.Unlock()

	go s.awaitChannelEvent(conn, attempt)

	timeout := time.NewTimer(samsungPairingTimeout)
	defer timeout.Stop()

	var result samsungResult
	select {
	case result = <-pending:
	case <-timeout.C:
		s.resolve(attempt, samsungResult{err: NewTimeoutError("pairing prompt timed out")})
		result = <-pending
	case <-ctx.Done():
		s.resolve(attempt, samsungResult{err: NewConnectionError("connect cancelled", ctx.Err(), s.dev.Address)})
		result = <-pending
	}

	if result.err != nil {
		_ = conn.Close()
		return result.err
	}

	if token == "" {
		// The user pressed Allow: persist the issued token and reopen the
		// channel authenticated. The unauthenticated socket is done.
		_ = conn.Close()
		if result.token == "" {
			return NewAuthError("channel connected without issuing a token")
		}
		if err := s.store.SetToken(device.BrandSamsung, s.dev.ID, result.token); err != nil {
			return NewConnectionError("failed to persist token", err, s.dev.Address)
		}
		return s.connectWithToken(ctx, result.token)
	}
	return nil
}

// awaitChannelEvent reads the first inbound frame and resolves the attempt.
func (s *SamsungService) awaitChannelEvent(conn *transport.WSConn, attempt int) {
	data, err := conn.ReadText()
	if err != nil {
		s.resolve(attempt, samsungResult{err: NewConnectionError("channel closed during handshake", err, s.dev.Address)})
		return
	}

	event, err := protocol.ParseSamsungEvent(data)
	if err != nil {
		s.resolve(attempt, samsungResult{err: NewConnectionError("malformed channel event", err, s.dev.Address)})
		return
	}

	switch event.Event {
	case protocol.SamsungEventConnect:
		s.resolve(attempt, samsungResult{token: event.Token})
	case protocol.SamsungEventUnauthorized:
		s.resolve(attempt, samsungResult{err: NewAuthError("pairing declined by TV")})
	default:
		s.resolve(attempt, samsungResult{err: NewConnectionError(
			fmt.Sprintf("unexpected channel event %q", event.Event), nil, s.dev.Address)})
	}
}

// resolve completes the pending attempt if (and only if) the id still
// matches. Losers of the timeout/response race are dropped here.
func (s *SamsungService) resolve(attempt int, result samsungResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt != s.attempt || s.pending == nil {
		return
	}
	pending := s.pending
	s.pending = nil
	pending <- result
}

// wake fires unauthenticated requests at both candidate ports in parallel.
// The responses are irrelevant; the requests exist to make the TV surface
// its permission prompt.
func (s *SamsungService) wake(ctx context.Context) {
	var wg sync.WaitGroup
	for _, port := range samsungWakePorts {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			scheme := "http"
			if p == 8002 {
				scheme = "https"
			}
			url := fmt.Sprintf("%s://%s:%d/api/v2/", scheme, s.dev.Address, p)
			if _, err := s.http.Get(ctx, url, nil); err != nil {
				logging.Debug("Samsung wake request failed",
					zap.Int("port", p), zap.Error(err))
			}
		}(port)
	}
	wg.Wait()
}

// channelPort selects the channel port. The device record usually carries
// the UPnP description port from discovery, which is not the channel, so
// only known channel ports are honored from it.
func (s *SamsungService) channelPort() int {
	if s.chanPort != 0 {
		return s.chanPort
	}
	if s.dev.Port == 8001 || s.dev.Port == 8002 {
		return s.dev.Port
	}
	return samsungWakePorts[0]
}

// startPing runs the app-level keepalive. A failed ping tears the session
// down and schedules a single delayed reconnect.
func (s *SamsungService) startPing() {
	stop := make(chan struct{})
	s.mu.Lock()
	s.pingStop = stop
	conn := s.conn
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(samsungPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := conn.WriteText(protocol.SamsungPingFrame()); err != nil {
					logging.Warn("Samsung ping failed, scheduling reconnect",
						zap.Error(err))
					s.onPingFailure()
					return
				}
			}
		}
	}()
}

func (s *SamsungService) onPingFailure() {
	_ = s.Disconnect()

	s.mu.Lock()
	s.reconnect = time.AfterFunc(samsungReconnectDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), samsungPairingTimeout)
		defer cancel()
		if err := s.Connect(ctx); err != nil {
			logging.Error("Samsung reconnect failed", zap.Error(err))
		}
	})
	s.mu.Unlock()
}

// Disconnect closes the channel and stops the keepalive and any scheduled
// reconnect. Idempotent.
func (s *SamsungService) Disconnect() error {
	if s.st.get() == StateDisconnected {
		return nil
	}

	s.mu.Lock()
	if s.pingStop != nil {
		close(s.pingStop)
		s.pingStop = nil
	}
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	s.st.set(StateDisconnected)
	logging.LogConnection(s.dev.Address, "disconnected")
	if s.delegate != nil {
		s.delegate.OnDisconnected(s.dev)
	}
	return nil
}

// SendCommand delivers one Click frame over the live channel.
func (s *SamsungService) SendCommand(ctx context.Context, cmd device.Command) error {
	if err := s.st.requireConnected(); err != nil {
		return err
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return NewCommandError("channel not open", nil)
	}

	frame, err := protocol.SamsungClickFrame(protocol.SamsungKey(cmd.Name))
	if err != nil {
		return NewCommandError("failed to encode command", err)
	}

	logging.LogCommand(string(device.BrandSamsung), s.dev.Address, cmd.Name)
	if err := conn.WriteText(frame); err != nil {
		return NewCommandError(fmt.Sprintf("failed to send %q", cmd.Name), err)
	}
	return nil
}

// TestConnection probes the TV's REST endpoint without opening a channel.
func (s *SamsungService) TestConnection(ctx context.Context) (bool, error) {
	url := fmt.Sprintf("http://%s:8001/api/v2/", s.dev.Address)
	resp, err := s.http.Get(ctx, url, nil)
	if err != nil {
		return false, nil
	}
	return resp.OK(), nil
}

// DiscoverDevices sweeps for Samsung sets.
func (s *SamsungService) DiscoverDevices(ctx context.Context) ([]*device.Device, error) {
	return discoverBrand(ctx, "ssdp:all", device.BrandSamsung)
}
