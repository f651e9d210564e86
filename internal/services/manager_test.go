package services

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tvlink/tvlink/internal/creds"
	"github.com/tvlink/tvlink/internal/device"
)

func TestManagerConnectAndReuseService(t *testing.T) {
	tv := &fakeTV{}
	server := httptest.NewServer(tv)
	defer server.Close()

	host, port := splitHostPort(t, server.URL)
	dev := testDevice(device.BrandSony)
	dev.Address = host
	dev.Port = port

	delegate := &recordingDelegate{}
	m := NewManager(creds.NewMemStore(), nil, delegate)
	defer m.Close()

	if err := m.ConnectToDevice(context.Background(), dev); err != nil {
		t.Fatalf("ConnectToDevice: %v", err)
	}

	svc, err := m.GetService(dev)
	if err != nil {
		t.Fatalf("GetService: %v", err)
	}
	if svc != m.Current() {
		t.Error("GetService should return the live instance for the same device")
	}

	// Commands ride the existing session: no second probe request.
	if err := m.SendCommand(context.Background(), dev, device.Command{Name: device.CmdHome}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	paths := tv.paths()
	if len(paths) != 2 {
		t.Errorf("requests = %v, want one probe and one command", paths)
	}

	// Connected event reaches the delegate through the dispatch goroutine.
	waitFor(t, func() bool {
		delegate.mu.Lock()
		defer delegate.mu.Unlock()
		return len(delegate.connected) == 1
	}, "OnConnected never dispatched")
}

func TestManagerSwitchingDevicesDisconnectsPrevious(t *testing.T) {
	tvA, tvB := &fakeTV{}, &fakeTV{}
	serverA := httptest.NewServer(tvA)
	defer serverA.Close()
	serverB := httptest.NewServer(tvB)
	defer serverB.Close()

	host, portA := splitHostPort(t, serverA.URL)
	_, portB := splitHostPort(t, serverB.URL)

	devA := testDevice(device.BrandSony)
	devA.ID = "dev-a"
	devA.Address = host
	devA.Port = portA

	devB := testDevice(device.BrandVizio)
	devB.ID = "dev-b"
	devB.Address = host
	devB.Port = portB

	delegate := &recordingDelegate{}
	m := NewManager(creds.NewMemStore(), nil, delegate)
	defer m.Close()

	if err := m.ConnectToDevice(context.Background(), devA); err != nil {
		t.Fatalf("connect A: %v", err)
	}
	first := m.Current()

	if err := m.ConnectToDevice(context.Background(), devB); err != nil {
		t.Fatalf("connect B: %v", err)
	}

	if first.State() != StateDisconnected {
		t.Error("previous service still connected after switching devices")
	}
	if m.Current().Device().ID != "dev-b" {
		t.Errorf("current device = %s", m.Current().Device().ID)
	}
}

func TestManagerSendCommandWithoutConnectFails(t *testing.T) {
	delegate := &recordingDelegate{}
	m := NewManager(creds.NewMemStore(), nil, delegate)
	defer m.Close()

	dev := testDevice(device.BrandSony)
	err := m.SendCommand(context.Background(), dev, device.Command{Name: device.CmdHome})
	if err == nil {
		t.Fatal("SendCommand without a connection should fail")
	}

	// The failure is also forwarded to the delegate, never swallowed.
	waitFor(t, func() bool {
		delegate.mu.Lock()
		defer delegate.mu.Unlock()
		return len(delegate.errors) == 1
	}, "OnError never dispatched")
}

func TestManagerProvidePin(t *testing.T) {
	m := NewManager(creds.NewMemStore(), nil, &recordingDelegate{})
	defer m.Close()

	if err := m.ProvidePin("1234"); err == nil {
		t.Error("ProvidePin with no attempt in progress should fail")
	}
}

func TestManagerDisconnectFromOtherDeviceIsNoop(t *testing.T) {
	tv := &fakeTV{}
	server := httptest.NewServer(tv)
	defer server.Close()

	host, port := splitHostPort(t, server.URL)
	dev := testDevice(device.BrandSony)
	dev.Address = host
	dev.Port = port

	m := NewManager(creds.NewMemStore(), nil, &recordingDelegate{})
	defer m.Close()

	if err := m.ConnectToDevice(context.Background(), dev); err != nil {
		t.Fatalf("ConnectToDevice: %v", err)
	}

	other := testDevice(device.BrandVizio)
	other.ID = "someone-else"
	if err := m.DisconnectFromDevice(other); err != nil {
		t.Errorf("DisconnectFromDevice(other): %v", err)
	}
	if m.Current() == nil {
		t.Error("disconnecting an unrelated device dropped the session")
	}

	if err := m.DisconnectFromDevice(dev); err != nil {
		t.Errorf("DisconnectFromDevice: %v", err)
	}
	if m.Current() != nil {
		t.Error("session survived its own disconnect")
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
