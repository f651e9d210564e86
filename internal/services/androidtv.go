package services

import (
	"context"
	"crypto/x509"
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
	// androidTVPairingPort hosts the certificate pairing service.
	androidTVPairingPort = 6467

	// androidTVRemotePort hosts the remote-control service. Distinct from
	// the pairing port: they are separate services on the device.
	androidTVRemotePort = 6466

	// androidTVServiceName identifies this client in the pairing request.
	androidTVServiceName = "com.tvlink.remote"

	// androidTVClientName is the display name shown on the TV's PIN screen.
	androidTVClientName = "tvlink"

	// androidTVPinTimeout bounds the wait for the user to read the PIN off
	// the TV screen and type it in.
	androidTVPinTimeout = 60 * time.Second

	// androidTVFrameTimeout bounds a single handshake frame read.
	androidTVFrameTimeout = 10 * time.Second

	// androidTVMessageDelay spaces the back-to-back configuration writes.
	androidTVMessageDelay = 200 * time.Millisecond
)

// AndroidTVService drives the certificate-pairing binary protocol.
//
// Pairing runs once per device on the pairing port: three framed
// configuration messages, a PIN read off the TV screen, and a secret derived
// from both endpoint certificates and the PIN. The secret write is answered
// by exactly two frames; reading is bounded to that count so a device that
// stops responding mid-handshake cannot block forever. Once paired, every
// session reconnects on the remote port with a configure / set-active
// handshake and injects key events.
type AndroidTVService struct {
	dev      *device.Device
	delegate device.ConnectionDelegate
	store    creds.Store
	st       state

	// Ports are fields so tests can point the service at local listeners.
	pairingPort int
	remotePort  int

	mu   sync.Mutex
	conn *transport.StreamConn
	pin  chan string
}

// NewAndroidTVService builds the service for the device.
func NewAndroidTVService(dev *device.Device, delegate device.ConnectionDelegate, store creds.Store) *AndroidTVService {
	return &AndroidTVService{
		dev:         dev,
		delegate:    delegate,
		store:       store,
		pairingPort: androidTVPairingPort,
		remotePort:  androidTVRemotePort,
	}
}

func (s *AndroidTVService) Device() *device.Device { return s.dev }

func (s *AndroidTVService) State() ConnState { return s.st.get() }

// ProvidePin delivers the PIN the user read off the TV screen, unblocking a
// pending pairing attempt.
func (s *AndroidTVService) ProvidePin(pin string) {
	s.mu.Lock()
	pending := s.pin
	s.pin = nil
	s.mu.Unlock()

	if pending != nil {
		pending <- pin
	}
}

// Connect pairs first if the device has never been paired, then opens the
// remote-control session.
func (s *AndroidTVService) Connect(ctx context.Context) error {
	if err := s.st.transition(StateDisconnected, StateConnecting); err != nil {
		return NewConnectionError(err.Error(), nil, s.dev.Address)
	}

	if !s.store.Paired(device.BrandAndroidTV, s.dev.ID) {
		if err := s.pair(ctx); err != nil {
			s.st.set(StateDisconnected)
			if s.delegate != nil {
				s.delegate.OnError(err)
			}
			return err
		}
	}

	if err := s.openRemote(ctx); err != nil {
		s.st.set(StateDisconnected)
		if s.delegate != nil {
			s.delegate.OnError(err)
		}
		return err
	}

	s.dev.Port = s.remotePort
	s.st.set(StateConnected)
	logging.LogConnection(fmt.Sprintf("%s:%d", s.dev.Address, s.remotePort), "connected")
	if s.delegate != nil {
		s.delegate.OnConnected(s.dev)
	}
	return nil
}

// pair runs the certificate pairing handshake on the pairing port.
func (s *AndroidTVService) pair(ctx context.Context) error {
	clientCert, err := creds.ClientCert(s.store, s.dev.ID)
	if err != nil {
		return NewConnectionError("client certificate unavailable", err, s.dev.Address)
	}

	conn, err := transport.DialStream(ctx, s.dev.Address, s.pairingPort, clientCert)
	if err != nil {
		return NewConnectionError("pairing dial failed", err, s.dev.Address)
	}
	defer func() { _ = conn.Close() }()

	serverCert, err := conn.PeerCertificate()
	if err != nil {
		return NewConnectionError("no server certificate", err, s.dev.Address)
	}

	// Three configuration messages, spaced out. The device is slow to move
	// between handshake phases and drops back-to-back writes.
	messages := [][]byte{
		protocol.PairingRequestMessage(androidTVServiceName, androidTVClientName),
		protocol.PairingOptionMessage(),
		protocol.PairingConfigurationMessage(),
	}
	for i, msg := range messages {
		if i > 0 {
			select {
			case <-time.After(androidTVMessageDelay):
			case <-ctx.Done():
				return NewConnectionError("pairing cancelled", ctx.Err(), s.dev.Address)
			}
		}
		if err := conn.WriteFrame(msg); err != nil {
			return NewConnectionError("pairing write failed", err, s.dev.Address)
		}
		if _, err := conn.ReadFrame(time.Now().Add(androidTVFrameTimeout)); err != nil {
			return NewConnectionError("pairing handshake stalled", err, s.dev.Address)
		}
	}

	pin, err := s.requestPin(ctx)
	if err != nil {
		return err
	}

	leaf, err := x509.ParseCertificate(clientCert.Certificate[0])
	if err != nil {
		return NewPinError("client certificate unparseable", err)
	}
	secret, err := protocol.DerivePairingSecret(leaf, serverCert, pin)
	if err != nil {
		return NewPinError("secret derivation failed", err)
	}

	if err := conn.WriteFrame(protocol.PairingSecretMessage(secret)); err != nil {
		return NewConnectionError("secret write failed", err, s.dev.Address)
	}

	// The secret is answered by exactly two frames; the second carries the
	// verdict. Bounded read, never an open-ended loop.
	var last []byte
	for i := 0; i < 2; i++ {
		frame, err := conn.ReadFrame(time.Now().Add(androidTVFrameTimeout))
		if err != nil {
			return NewPinError("no pairing verdict from device", err)
		}
		last = frame
	}

	status, err := protocol.ParsePairingStatus(last)
	if err != nil {
		return NewPinError("malformed pairing verdict", err)
	}
	if status != protocol.AndroidTVStatusOK {
		return NewPinError(fmt.Sprintf("device rejected PIN (status %d)", status), nil)
	}

	if err := s.store.SetPaired(device.BrandAndroidTV, s.dev.ID, true); err != nil {
		return NewConnectionError("failed to persist pairing", err, s.dev.Address)
	}
	logging.Info("Android TV paired", zap.String("device", s.dev.ID))
	return nil
}

// requestPin surfaces the PIN prompt and blocks until the user answers or
// the wait times out.
func (s *AndroidTVService) requestPin(ctx context.Context) (string, error) {
	pending := make(chan string, 1)
	s.mu.Lock()
	s.pin = pending
	s.mu.Unlock()

	if s.delegate != nil {
		s.delegate.OnPinRequested(s.dev)
	}

	timeout := time.NewTimer(androidTVPinTimeout)
	defer timeout.Stop()

	select {
	case pin := <-pending:
		if len(pin) < 4 {
			return "", NewPinError("PIN too short", nil)
		}
		return pin, nil
	case <-timeout.C:
		return "", NewTimeoutError("PIN entry timed out")
	case <-ctx.Done():
		return "", NewConnectionError("pairing cancelled", ctx.Err(), s.dev.Address)
	}
}

// openRemote connects the remote-control session on the command port.
func (s *AndroidTVService) openRemote(ctx context.Context) error {
	clientCert, err := creds.ClientCert(s.store, s.dev.ID)
	if err != nil {
		return NewConnectionError("client certificate unavailable", err, s.dev.Address)
	}

	conn, err := transport.DialStream(ctx, s.dev.Address, s.remotePort, clientCert)
	if err != nil {
		return NewConnectionError("remote dial failed", err, s.dev.Address)
	}

	if err := conn.WriteFrame(protocol.RemoteConfigureMessage(androidTVClientName)); err != nil {
		_ = conn.Close()
		return NewConnectionError("remote configure failed", err, s.dev.Address)
	}
	if _, err := conn.ReadFrame(time.Now().Add(androidTVFrameTimeout)); err != nil {
		_ = conn.Close()
		return NewConnectionError("remote configure unanswered", err, s.dev.Address)
	}
	if err := conn.WriteFrame(protocol.RemoteSetActiveMessage()); err != nil {
		_ = conn.Close()
		return NewConnectionError("remote activation failed", err, s.dev.Address)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return nil
}

// Disconnect closes the remote session. Idempotent.
func (s *AndroidTVService) Disconnect() error {
	if s.st.get() == StateDisconnected {
		return nil
	}

	s.mu.Lock()
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

// SendCommand injects one key event over the live session.
func (s *AndroidTVService) SendCommand(ctx context.Context, cmd device.Command) error {
	if err := s.st.requireConnected(); err != nil {
		return err
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return NewCommandError("remote session not open", nil)
	}

	keycode := protocol.AndroidKeycode(cmd.Name)
	logging.LogCommand(string(device.BrandAndroidTV), s.dev.Address, cmd.Name)

	msg := protocol.RemoteKeyInjectMessage(keycode, protocol.KeyActionDownAndUp)
	if err := conn.WriteFrame(msg); err != nil {
		return NewCommandError(fmt.Sprintf("failed to send %q", cmd.Name), err)
	}
	return nil
}

// TestConnection checks whether the remote port accepts a TLS handshake.
func (s *AndroidTVService) TestConnection(ctx context.Context) (bool, error) {
	clientCert, err := creds.ClientCert(s.store, s.dev.ID)
	if err != nil {
		return false, err
	}
	conn, err := transport.DialStream(ctx, s.dev.Address, s.remotePort, clientCert)
	if err != nil {
		return false, nil
	}
	_ = conn.Close()
	return true, nil
}

// DiscoverDevices sweeps for Android TV sets.
func (s *AndroidTVService) DiscoverDevices(ctx context.Context) ([]*device.Device, error) {
	return discoverBrand(ctx, "ssdp:all", device.BrandAndroidTV)
}
