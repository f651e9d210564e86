package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tvlink/tvlink/internal/device"
	"github.com/tvlink/tvlink/internal/logging"
	"github.com/tvlink/tvlink/internal/protocol"
	"github.com/tvlink/tvlink/internal/transport"
)

// RokuService speaks Roku's External Control Protocol: plaintext HTTP with
// no pairing. The only wrinkle is the control port, which varies between
// firmware and developer-mode settings, so connecting probes a fixed matrix
// of ports and endpoints and remembers the combination that answered.
type RokuService struct {
	dev      *device.Device
	delegate device.ConnectionDelegate
	http     *transport.HTTPClient
	st       state

	// probePorts is a field so tests can point the matrix at local servers.
	probePorts []int
}

// NewRokuService builds the ECP service for the device.
func NewRokuService(dev *device.Device, delegate device.ConnectionDelegate) *RokuService {
	return &RokuService{
		dev:        dev,
		delegate:   delegate,
		http:       transport.NewHTTPClient(transport.DefaultHTTPTimeout, transport.DefaultHTTPRetries),
		probePorts: protocol.RokuProbePorts,
	}
}

func (s *RokuService) Device() *device.Device { return s.dev }

func (s *RokuService) State() ConnState { return s.st.get() }

// probe walks the port×endpoint matrix in fixed order and returns the first
// port whose response carried a non-empty body.
func (s *RokuService) probe(ctx context.Context) (int, error) {
	for _, port := range s.probePorts {
		for _, endpoint := range protocol.RokuProbeEndpoints {
			url := protocol.RokuBaseURL(s.dev.Address, port) + endpoint
			resp, err := s.http.Get(ctx, url, nil)
			if err != nil {
				logging.Debug("Roku probe miss", zap.String("url", url))
				continue
			}
			if resp.OK() && len(resp.Body) > 0 {
				return port, nil
			}
		}
	}
	return 0, NewNotFoundError(
		fmt.Sprintf("no Roku ECP endpoint answered at %s", s.dev.Address))
}

// Connect probes for a working control port and records it on the device so
// later sessions skip the scan.
func (s *RokuService) Connect(ctx context.Context) error {
	if err := s.st.transition(StateDisconnected, StateConnecting); err != nil {
		return NewConnectionError(err.Error(), nil, s.dev.Address)
	}

	port, err := s.probe(ctx)
	if err != nil {
		s.st.set(StateDisconnected)
		return err
	}

	s.dev.Port = port
	s.st.set(StateConnected)
	logging.LogConnection(fmt.Sprintf("%s:%d", s.dev.Address, port), "connected")
	if s.delegate != nil {
		s.delegate.OnConnected(s.dev)
	}
	return nil
}

// Disconnect is a pure state change; ECP is sessionless.
func (s *RokuService) Disconnect() error {
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

// SendCommand delivers one keypress. Text input is spelled out as a sequence
// of literal keypresses; app launch uses the launch endpoint.
func (s *RokuService) SendCommand(ctx context.Context, cmd device.Command) error {
	if err := s.st.requireConnected(); err != nil {
		return err
	}

	base := protocol.RokuBaseURL(s.dev.Address, s.dev.Port)
	logging.LogCommand(string(s.dev.Brand), s.dev.Address, cmd.Name)

	switch cmd.Name {
	case device.CmdText:
		for _, ch := range cmd.Text {
			if err := s.post(ctx, base+protocol.RokuLiteralPath(ch)); err != nil {
				return err
			}
		}
		return nil
	case "launch":
		return s.post(ctx, base+protocol.RokuLaunchPath(cmd.Text))
	default:
		return s.post(ctx, base+protocol.RokuKeypressPath(protocol.RokuKey(cmd.Name)))
	}
}

func (s *RokuService) post(ctx context.Context, url string) error {
	resp, err := s.http.Post(ctx, url, nil, nil)
	if err != nil {
		return NewCommandError("keypress failed", err)
	}
	if !resp.OK() {
		return NewCommandError(
			fmt.Sprintf("keypress rejected with HTTP %d", resp.StatusCode), nil)
	}
	return nil
}

// TestConnection checks the recorded port only; it never re-probes.
func (s *RokuService) TestConnection(ctx context.Context) (bool, error) {
	port := s.dev.Port
	if port == 0 {
		port = s.probePorts[0]
	}
	url := protocol.RokuBaseURL(s.dev.Address, port) + protocol.RokuProbeEndpoints[0]
	resp, err := s.http.Get(ctx, url, nil)
	if err != nil {
		return false, nil
	}
	return resp.OK() && len(resp.Body) > 0, nil
}

// DiscoverDevices runs a targeted ECP discovery sweep.
func (s *RokuService) DiscoverDevices(ctx context.Context) ([]*device.Device, error) {
	return discoverBrand(ctx, "roku:ecp", device.BrandRoku)
}
