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

// fireTVPinTimeout bounds the wait for the user to type the on-screen PIN.
const fireTVPinTimeout = 60 * time.Second

// fireTVFriendlyName is shown on the TV's PIN screen.
const fireTVFriendlyName = "tvlink"

// FireTVService drives Fire TV's PIN/bearer-token HTTP API.
//
// Connecting wakes the TV's remote app with an opener POST, then reuses a
// stored bearer token if one validates. Stale tokens are common after factory
// resets, so a stored token is always validated with an authenticated GET
// before being trusted, and purged when the TV rejects it. Without a valid
// token the TV displays a PIN, which is exchanged for a fresh bearer token.
type FireTVService struct {
	dev      *device.Device
	delegate device.ConnectionDelegate
	store    creds.Store
	http     *transport.HTTPClient
	st       state

	// port is a field so tests can point the service at a local server.
	port int

	mu    sync.Mutex
	token string
	pin   chan string
}

// NewFireTVService builds the service for the device.
func NewFireTVService(dev *device.Device, delegate device.ConnectionDelegate, store creds.Store) *FireTVService {
	return &FireTVService{
		dev:      dev,
		delegate: delegate,
		store:    store,
		http:     transport.NewHTTPClient(transport.DefaultHTTPTimeout, transport.DefaultHTTPRetries),
		port:     protocol.FireTVPort,
	}
}

func (s *FireTVService) Device() *device.Device { return s.dev }

func (s *FireTVService) State() ConnState { return s.st.get() }

// ProvidePin delivers the PIN the user read off the TV screen.
func (s *FireTVService) ProvidePin(pin string) {
	s.mu.Lock()
	pending := s.pin
	s.pin = nil
	s.mu.Unlock()

	if pending != nil {
		pending <- pin
	}
}

func (s *FireTVService) url(path string) string {
	return fmt.Sprintf("http://%s:%d%s", s.dev.Address, s.port, path)
}

// headers builds the request headers. The API key is always required; the
// bearer token rides a second header once issued.
func (s *FireTVService) headers(token string) map[string]string {
	h := map[string]string{
		protocol.FireTVAPIKeyHdr: protocol.FireTVAPIKey,
		"Content-Type":           protocol.FireTVContentType,
	}
	if token != "" {
		h[protocol.FireTVTokenHdr] = token
	}
	return h
}

// Connect wakes the remote app and establishes a usable bearer token,
// pairing via PIN when no stored token survives validation.
func (s *FireTVService) Connect(ctx context.Context) error {
	if err := s.st.transition(StateDisconnected, StateConnecting); err != nil {
		return NewConnectionError(err.Error(), nil, s.dev.Address)
	}

	// Opener: wakes the TV's remote-control app. Failure is fatal since
	// nothing later can succeed without the app running.
	resp, err := s.http.Post(ctx, s.url(protocol.FireTVOpenerPath), s.headers(""), nil)
	if err != nil || !resp.OK() {
		s.st.set(StateDisconnected)
		cerr := NewConnectionError("remote app did not wake", err, s.dev.Address)
		if s.delegate != nil {
			s.delegate.OnError(cerr)
		}
		return cerr
	}

	token, err := s.establishToken(ctx)
	if err != nil {
		s.st.set(StateDisconnected)
		if s.delegate != nil {
			s.delegate.OnError(err)
		}
		return err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.st.set(StateConnected)
	logging.LogConnection(fmt.Sprintf("%s:%d", s.dev.Address, s.port), "connected")
	if s.delegate != nil {
		s.delegate.OnConnected(s.dev)
	}
	return nil
}

// establishToken returns a validated bearer token, running the PIN exchange
// when necessary.
func (s *FireTVService) establishToken(ctx context.Context) (string, error) {
	if stored, ok := s.store.Token(device.BrandFireTV, s.dev.ID); ok {
		if s.validateToken(ctx, stored) {
			return stored, nil
		}
		// Rejected, likely a factory reset. Purge and fall through to the
		// PIN exchange.
		logging.Warn("Stored Fire TV token rejected, re-pairing",
			zap.String("device", s.dev.ID))
		if err := s.store.ClearToken(device.BrandFireTV, s.dev.ID); err != nil {
			logging.Error("Failed to clear rejected token", zap.Error(err))
		}
	}

	return s.pairWithPin(ctx)
}

// validateToken checks a stored token with a lightweight authenticated GET.
func (s *FireTVService) validateToken(ctx context.Context, token string) bool {
	resp, err := s.http.Get(ctx, s.url(protocol.FireTVKeepAlivePath), s.headers(token))
	return err == nil && resp.OK()
}

// pairWithPin asks the TV to display a PIN and exchanges the user's answer
// for a bearer token.
func (s *FireTVService) pairWithPin(ctx context.Context) (string, error) {
	body, err := protocol.FireTVPinDisplayBody(fireTVFriendlyName)
	if err != nil {
		return "", NewPinError("failed to encode PIN request", err)
	}
	resp, err := s.http.Post(ctx, s.url(protocol.FireTVPinDisplayPath), s.headers(""), body)
	if err != nil || !resp.OK() {
		return "", NewConnectionError("TV did not display a PIN", err, s.dev.Address)
	}

	pin, err := s.requestPin(ctx)
	if err != nil {
		return "", err
	}

	verifyBody, err := protocol.FireTVPinVerifyBody(pin)
	if err != nil {
		return "", NewPinError("failed to encode PIN", err)
	}
	resp, err = s.http.Post(ctx, s.url(protocol.FireTVPinVerifyPath), s.headers(""), verifyBody)
	if err != nil {
		return "", NewConnectionError("PIN verification unreachable", err, s.dev.Address)
	}
	if !resp.OK() {
		return "", NewPinError(fmt.Sprintf("PIN rejected (HTTP %d)", resp.StatusCode), nil)
	}

	token, err := protocol.ParseFireTVToken(resp.Body)
	if err != nil {
		return "", NewPinError("verification response carried no token", err)
	}

	if err := s.store.SetToken(device.BrandFireTV, s.dev.ID, token); err != nil {
		return "", NewConnectionError("failed to persist token", err, s.dev.Address)
	}
	return token, nil
}

// requestPin surfaces the PIN prompt and blocks on the user's answer.
func (s *FireTVService) requestPin(ctx context.Context) (string, error) {
	pending := make(chan string, 1)
	s.mu.Lock()
	s.pin = pending
	s.mu.Unlock()

	if s.delegate != nil {
		s.delegate.OnPinRequested(s.dev)
	}

	timeout := time.NewTimer(fireTVPinTimeout)
	defer timeout.Stop()

	select {
	case pin := <-pending:
		if pin == "" {
			return "", NewPinError("empty PIN", nil)
		}
		return pin, nil
	case <-timeout.C:
		return "", NewTimeoutError("PIN entry timed out")
	case <-ctx.Done():
		return "", NewConnectionError("pairing cancelled", ctx.Err(), s.dev.Address)
	}
}

// Disconnect is a pure state change; the API is sessionless between requests.
func (s *FireTVService) Disconnect() error {
	if s.st.get() == StateDisconnected {
		return nil
	}
	s.st.set(StateDisconnected)
	logging.LogConnection(s.dev.Address, "disconnected")
	if s.delegate != nil {
		s.delegate.OnDisconnected(s.dev)
	}
	return nil
}

// SendCommand posts one action. Power commands disconnect implicitly because
// the device becomes unreachable once it sleeps.
func (s *FireTVService) SendCommand(ctx context.Context, cmd device.Command) error {
	if err := s.st.requireConnected(); err != nil {
		return err
	}

	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	logging.LogCommand(string(device.BrandFireTV), s.dev.Address, cmd.Name)

	var path string
	var body []byte
	if cmd.Name == device.CmdText {
		var err error
		if body, err = protocol.FireTVTextBody(cmd.Text); err != nil {
			return NewCommandError("failed to encode text", err)
		}
		path = protocol.FireTVTextPath
	} else {
		path = protocol.FireTVCommandPath(protocol.FireTVAction(cmd.Name))
	}

	resp, err := s.http.Post(ctx, s.url(path), s.headers(token), body)
	if err != nil {
		return NewCommandError(fmt.Sprintf("failed to send %q", cmd.Name), err)
	}
	if !resp.OK() {
		return NewCommandError(
			fmt.Sprintf("device rejected %q with HTTP %d", cmd.Name, resp.StatusCode), nil)
	}

	if cmd.Name == device.CmdPower || cmd.Name == device.CmdPowerOff {
		// The TV is asleep now; drop the session rather than letting the
		// next command fail with an opaque network error.
		return s.Disconnect()
	}
	return nil
}

// TestConnection checks reachability with the stored token, if any.
func (s *FireTVService) TestConnection(ctx context.Context) (bool, error) {
	token, _ := s.store.Token(device.BrandFireTV, s.dev.ID)
	resp, err := s.http.Get(ctx, s.url(protocol.FireTVKeepAlivePath), s.headers(token))
	if err != nil {
		return false, nil
	}
	return resp.OK(), nil
}

// DiscoverDevices sweeps for Fire TV devices.
func (s *FireTVService) DiscoverDevices(ctx context.Context) ([]*device.Device, error) {
	return discoverBrand(ctx, "ssdp:all", device.BrandFireTV)
}
