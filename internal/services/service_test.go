package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tvlink/tvlink/internal/creds"
	"github.com/tvlink/tvlink/internal/device"
)

// recordingDelegate captures connection lifecycle events for assertions.
type recordingDelegate struct {
	mu           sync.Mutex
	connected    []*device.Device
	disconnected []*device.Device
	errors       []error
	pinRequested []*device.Device

	// onPin, when set, runs on OnPinRequested (used to answer PIN prompts).
	onPin func(dev *device.Device)
}

func (d *recordingDelegate) OnConnected(dev *device.Device) {
	d.mu.Lock()
	d.connected = append(d.connected, dev)
	d.mu.Unlock()
}

func (d *recordingDelegate) OnDisconnected(dev *device.Device) {
	d.mu.Lock()
	d.disconnected = append(d.disconnected, dev)
	d.mu.Unlock()
}

func (d *recordingDelegate) OnError(err error) {
	d.mu.Lock()
	d.errors = append(d.errors, err)
	d.mu.Unlock()
}

func (d *recordingDelegate) OnPinRequested(dev *device.Device) {
	d.mu.Lock()
	d.pinRequested = append(d.pinRequested, dev)
	onPin := d.onPin
	d.mu.Unlock()
	if onPin != nil {
		go onPin(dev)
	}
}

func (d *recordingDelegate) OnDevicesDiscovered(devs []*device.Device) {}

func testDevice(brand device.Brand) *device.Device {
	return &device.Device{
		ID:      "test-" + string(brand),
		Name:    brand.String() + " TV",
		Brand:   brand,
		Address: "127.0.0.1",
	}
}

func TestConnStateString(t *testing.T) {
	if StateDisconnected.String() != "disconnected" ||
		StateConnecting.String() != "connecting" ||
		StateConnected.String() != "connected" {
		t.Error("ConnState names wrong")
	}
	if ConnState(9).String() != "ConnState(9)" {
		t.Error("unknown ConnState not formatted")
	}
}

func TestStateTransitions(t *testing.T) {
	var st state

	if err := st.transition(StateDisconnected, StateConnecting); err != nil {
		t.Fatalf("first transition failed: %v", err)
	}
	// A second concurrent connect attempt must be rejected.
	if err := st.transition(StateDisconnected, StateConnecting); err == nil {
		t.Error("transition from wrong state should fail")
	}

	if err := st.requireConnected(); err == nil {
		t.Error("requireConnected should fail while connecting")
	}
	st.set(StateConnected)
	if err := st.requireConnected(); err != nil {
		t.Errorf("requireConnected failed while connected: %v", err)
	}
}

func TestNewServiceBrandDispatch(t *testing.T) {
	store := creds.NewMemStore()
	delegate := &recordingDelegate{}

	tests := []struct {
		brand device.Brand
		want  string
	}{
		{device.BrandRoku, "*services.RokuService"},
		{device.BrandSamsung, "*services.SamsungService"},
		{device.BrandAndroidTV, "*services.AndroidTVService"},
		{device.BrandFireTV, "*services.FireTVService"},
		{device.BrandSony, "*services.SimpleHTTPService"},
		{device.BrandVizio, "*services.SimpleHTTPService"},
	}

	for _, tt := range tests {
		svc, err := NewService(testDevice(tt.brand), delegate, store)
		if err != nil {
			t.Errorf("NewService(%s) error = %v", tt.brand, err)
			continue
		}
		if got := typeName(svc); got != tt.want {
			t.Errorf("NewService(%s) = %s, want %s", tt.brand, got, tt.want)
		}
		if svc.State() != StateDisconnected {
			t.Errorf("NewService(%s) starts in state %s", tt.brand, svc.State())
		}
	}

	if _, err := NewService(nil, delegate, store); err == nil {
		t.Error("NewService(nil) should fail")
	}
}

func typeName(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	switch v.(type) {
	case *RokuService:
		return "*services.RokuService"
	case *SamsungService:
		return "*services.SamsungService"
	case *AndroidTVService:
		return "*services.AndroidTVService"
	case *FireTVService:
		return "*services.FireTVService"
	case *SimpleHTTPService:
		return "*services.SimpleHTTPService"
	default:
		return "unknown"
	}
}

func TestCommandDispatchRequiresConnected(t *testing.T) {
	store := creds.NewMemStore()
	delegate := &recordingDelegate{}

	for _, brand := range []device.Brand{
		device.BrandRoku, device.BrandSamsung, device.BrandAndroidTV,
		device.BrandFireTV, device.BrandSony,
	} {
		svc, err := NewService(testDevice(brand), delegate, store)
		if err != nil {
			t.Fatalf("NewService(%s): %v", brand, err)
		}

		err = svc.SendCommand(context.Background(), device.Command{Name: device.CmdHome})
		if err == nil {
			t.Errorf("%s: SendCommand while disconnected should fail", brand)
			continue
		}
		var tvErr *TVError
		if !errors.As(err, &tvErr) || tvErr.Type != ErrTypeCommandFailed {
			t.Errorf("%s: SendCommand error = %v, want command failure", brand, err)
		}
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	delegate := &recordingDelegate{}
	svc := NewRokuService(testDevice(device.BrandRoku), delegate)

	if err := svc.Disconnect(); err != nil {
		t.Errorf("Disconnect on a disconnected service: %v", err)
	}
	if len(delegate.disconnected) != 0 {
		t.Error("no OnDisconnected expected for a no-op disconnect")
	}
}
