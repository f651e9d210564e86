package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tvlink/tvlink/internal/creds"
	"github.com/tvlink/tvlink/internal/device"
	"github.com/tvlink/tvlink/internal/discovery"
)

// ConnState is the lifecycle state of a device service.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// String returns a human-readable state name.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// Service is one brand's connection state machine. A service is bound to a
// single device for its lifetime; the manager creates a fresh service per
// connection attempt.
//
// Connect blocks until the device is usable, which for pairing protocols may
// include a user-visible PIN or permission prompt on the TV. SendCommand is
// only valid while connected. Disconnect is idempotent.
type Service interface {
	Connect(ctx context.Context) error
	Disconnect() error
	SendCommand(ctx context.Context, cmd device.Command) error

	// TestConnection probes the device without changing connection state.
	TestConnection(ctx context.Context) (bool, error)

	// DiscoverDevices scans the local network for devices of this service's
	// brand, independent of the bound device.
	DiscoverDevices(ctx context.Context) ([]*device.Device, error)

	// Device returns the device this service is bound to.
	Device() *device.Device

	// State returns the current connection state.
	State() ConnState
}

// PinAcceptor is implemented by services whose pairing flow blocks on a PIN
// shown on the TV screen. ProvidePin unblocks a pending Connect.
type PinAcceptor interface {
	ProvidePin(pin string)
}

// NewService builds the service for the device's brand. delegate receives
// lifecycle events; store persists pairing material for the protocols that
// have any.
func NewService(dev *device.Device, delegate device.ConnectionDelegate, store creds.Store) (Service, error) {
	if dev == nil {
		return nil, fmt.Errorf("no device")
	}

	switch dev.Brand.Protocol() {
	case device.ProtocolWebSocketToken:
		return NewSamsungService(dev, delegate, store), nil
	case device.ProtocolCertPairing:
		return NewAndroidTVService(dev, delegate, store), nil
	case device.ProtocolPinToken:
		return NewFireTVService(dev, delegate, store), nil
	default:
		if dev.Brand == device.BrandRoku {
			return NewRokuService(dev, delegate), nil
		}
		return NewSimpleHTTPService(dev, delegate)
	}
}

// state guards the connection state shared by every service implementation.
type state struct {
	mu sync.Mutex
	s  ConnState
}

func (st *state) get() ConnState {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

func (st *state) set(s ConnState) {
	st.mu.Lock()
	st.s = s
	st.mu.Unlock()
}

// transition moves from one state to another, failing when the current state
// is not the expected one. Serializes concurrent Connect calls.
func (st *state) transition(from, to ConnState) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s != from {
		return fmt.Errorf("invalid state %s, want %s", st.s, from)
	}
	st.s = to
	return nil
}

// requireConnected fails command dispatch outside the connected state.
func (st *state) requireConnected() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.s != StateConnected {
		return NewCommandError(fmt.Sprintf("not connected (state %s)", st.s), nil)
	}
	return nil
}

// brandSweepWindow bounds the per-brand discovery sweep used by
// Service.DiscoverDevices.
const brandSweepWindow = 3 * time.Second

// discoverBrand runs one sweep against the given search target and keeps only
// devices classified as the given brand.
func discoverBrand(ctx context.Context, target string, brand device.Brand) ([]*device.Device, error) {
	engine := discovery.NewSSDPEngine()
	defer engine.Stop()

	responses, err := engine.Search(ctx, target, brandSweepWindow)
	if err != nil {
		return nil, NewConnectionError("discovery search failed", err, "")
	}

	fetcher := discovery.NewHTTPFetcher()
	seen := make(map[string]bool)
	var devs []*device.Device

	for resp := range responses {
		dev := discovery.ResolveResponse(ctx, fetcher, &resp)
		if dev == nil || dev.Brand != brand {
			continue
		}
		if seen[dev.DedupKey()] {
			continue
		}
		seen[dev.DedupKey()] = true
		devs = append(devs, dev)
	}
	return devs, nil
}
