package services

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tvlink/tvlink/internal/config"
	"github.com/tvlink/tvlink/internal/creds"
	"github.com/tvlink/tvlink/internal/device"
	"github.com/tvlink/tvlink/internal/logging"
)

// eventKind tags one delegate event in the dispatch queue.
type eventKind int

const (
	eventConnected eventKind = iota
	eventDisconnected
	eventError
	eventPinRequested
	eventDevicesDiscovered
)

// event is one queued delegate callback.
type event struct {
	kind eventKind
	dev  *device.Device
	devs []*device.Device
	err  error
}

// Manager is the connection orchestrator. It owns at most one live service
// at a time, constructs brand services on demand, writes probed ports back to
// the device registry, and fans delegate callbacks out through a single
// dispatch goroutine so the delegate never runs on a protocol goroutine.
type Manager struct {
	store    creds.Store
	registry *config.Registry
	delegate device.ConnectionDelegate

	mu      sync.Mutex
	current Service

	events chan event
	quit   chan struct{}
	done   chan struct{}
}

// NewManager wires the orchestrator. registry may be nil when no persistence
// is wanted (tests); delegate may be nil.
func NewManager(store creds.Store, registry *config.Registry, delegate device.ConnectionDelegate) *Manager {
	m := &Manager{
		store:    store,
		registry: registry,
		delegate: delegate,
		events:   make(chan event, 16),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.dispatch()
	return m
}

// Close disconnects the current service and stops the dispatch goroutine.
// Events still queued at close time are dropped.
func (m *Manager) Close() {
	m.mu.Lock()
	current := m.current
	m.current = nil
	m.mu.Unlock()

	if current != nil {
		_ = current.Disconnect()
	}
	close(m.quit)
	<-m.done
}

// dispatch delivers queued events to the delegate, one at a time, in order.
func (m *Manager) dispatch() {
	defer close(m.done)
	for {
		var ev event
		select {
		case ev = <-m.events:
		case <-m.quit:
			return
		}
		if m.delegate == nil {
			continue
		}
		switch ev.kind {
		case eventConnected:
			m.delegate.OnConnected(ev.dev)
		case eventDisconnected:
			m.delegate.OnDisconnected(ev.dev)
		case eventError:
			m.delegate.OnError(ev.err)
		case eventPinRequested:
			m.delegate.OnPinRequested(ev.dev)
		case eventDevicesDiscovered:
			m.delegate.OnDevicesDiscovered(ev.devs)
		}
	}
}

func (m *Manager) emit(ev event) {
	select {
	case m.events <- ev:
	case <-m.quit:
	}
}

// serviceDelegate adapts service callbacks onto the manager's event queue.
type serviceDelegate struct {
	m *Manager
}

func (d *serviceDelegate) OnConnected(dev *device.Device) {
	d.m.emit(event{kind: eventConnected, dev: dev})
}

func (d *serviceDelegate) OnDisconnected(dev *device.Device) {
	d.m.emit(event{kind: eventDisconnected, dev: dev})
}

func (d *serviceDelegate) OnError(err error) {
	d.m.emit(event{kind: eventError, err: err})
}

func (d *serviceDelegate) OnPinRequested(dev *device.Device) {
	d.m.emit(event{kind: eventPinRequested, dev: dev})
}

func (d *serviceDelegate) OnDevicesDiscovered(devs []*device.Device) {
	d.m.emit(event{kind: eventDevicesDiscovered, devs: devs})
}

// GetService returns the state machine for the device, preferring the
// current instance when it is bound to the same device so a live session is
// reused rather than rebuilt.
func (m *Manager) GetService(dev *device.Device) (Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.Device().ID == dev.ID {
		return m.current, nil
	}

	svc, err := NewService(dev, &serviceDelegate{m: m}, m.store)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// ConnectToDevice connects the device, replacing any current session.
func (m *Manager) ConnectToDevice(ctx context.Context, dev *device.Device) error {
	svc, err := m.GetService(dev)
	if err != nil {
		return err
	}

	m.mu.Lock()
	previous := m.current
	m.mu.Unlock()
	if previous != nil && previous != svc {
		if err := previous.Disconnect(); err != nil {
			logging.Warn("Failed to disconnect previous device", zap.Error(err))
		}
	}

	if svc.State() == StateConnected {
		return nil
	}

	// Current before Connect completes: PIN prompts fire mid-handshake and
	// ProvidePin must be able to find the attempt.
	m.mu.Lock()
	m.current = svc
	m.mu.Unlock()

	if err := svc.Connect(ctx); err != nil {
		m.mu.Lock()
		if m.current == svc {
			m.current = nil
		}
		m.mu.Unlock()
		return err
	}

	// Connect may have probed a different port; write it back so the next
	// session skips the scan, and remember the device for reconnect-on-start.
	if m.registry != nil {
		d := svc.Device()
		m.registry.RecordDevice(d.ID, d.Name, string(d.Brand), d.Address, d.Port)
		m.registry.SetLastDevice(d.ID)
		if err := m.registry.Save(); err != nil {
			logging.Warn("Failed to persist device registry", zap.Error(err))
		}
	}
	return nil
}

// SendCommand delivers the command through the device's service.
func (m *Manager) SendCommand(ctx context.Context, dev *device.Device, cmd device.Command) error {
	svc, err := m.GetService(dev)
	if err != nil {
		return err
	}
	if err := svc.SendCommand(ctx, cmd); err != nil {
		m.emit(event{kind: eventError, err: err})
		return err
	}
	return nil
}

// DisconnectFromDevice tears down the device's session if it is current.
func (m *Manager) DisconnectFromDevice(dev *device.Device) error {
	m.mu.Lock()
	current := m.current
	if current != nil && current.Device().ID == dev.ID {
		m.current = nil
	} else {
		current = nil
	}
	m.mu.Unlock()

	if current == nil {
		return nil
	}
	return current.Disconnect()
}

// ProvidePin routes a user-entered PIN to the current service's pending
// pairing attempt.
func (m *Manager) ProvidePin(pin string) error {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()

	if current == nil {
		return fmt.Errorf("no connection attempt in progress")
	}
	acceptor, ok := current.(PinAcceptor)
	if !ok {
		return fmt.Errorf("%s does not use PIN pairing", current.Device().Brand)
	}
	acceptor.ProvidePin(pin)
	return nil
}

// Current returns the live service, if any.
func (m *Manager) Current() Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
