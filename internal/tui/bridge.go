package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tvlink/tvlink/internal/device"
)

// Messages delivered by the bridge. Each delegate callback becomes one of
// these so screen models can react inside Update.
type (
	deviceFoundMsg       struct{ dev *device.Device }
	deviceBatchMsg       struct{ devs []*device.Device }
	discoveryFinishedMsg struct{}
	discoveryStatusMsg   struct{ text string }

	connectedMsg    struct{ dev *device.Device }
	disconnectedMsg struct{ dev *device.Device }
	connErrorMsg    struct{ err error }
	pinRequestedMsg struct{ dev *device.Device }
)

// bridge adapts the discovery and connection delegate callbacks into
// bubbletea messages. Callbacks arrive on manager goroutines; the program
// drains the channel through waitForEvent so senders never block for long.
type bridge struct {
	msgs chan tea.Msg
	quit chan struct{}
}

func newBridge() *bridge {
	return &bridge{
		msgs: make(chan tea.Msg, 32),
		quit: make(chan struct{}),
	}
}

// close releases any delegate callback blocked on a full channel.
func (b *bridge) close() {
	close(b.quit)
}

func (b *bridge) send(msg tea.Msg) {
	select {
	case b.msgs <- msg:
	case <-b.quit:
	}
}

// waitForEvent returns a command that delivers the next bridged message.
// The app model re-issues it after every delivery.
func (b *bridge) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.msgs:
			return msg
		case <-b.quit:
			return nil
		}
	}
}

// DiscoveryDelegate

func (b *bridge) OnDeviceDiscovered(dev *device.Device) {
	b.send(deviceFoundMsg{dev: dev})
}

func (b *bridge) OnDevicesDiscoveredIncremental(devs []*device.Device) {
	b.send(deviceBatchMsg{devs: devs})
}

func (b *bridge) OnDiscoveryFinished() {
	b.send(discoveryFinishedMsg{})
}

func (b *bridge) OnDiscoveryMessageChanged(text string) {
	b.send(discoveryStatusMsg{text: text})
}

// ConnectionDelegate

func (b *bridge) OnConnected(dev *device.Device) {
	b.send(connectedMsg{dev: dev})
}

func (b *bridge) OnDisconnected(dev *device.Device) {
	b.send(disconnectedMsg{dev: dev})
}

func (b *bridge) OnError(err error) {
	b.send(connErrorMsg{err: err})
}

func (b *bridge) OnPinRequested(dev *device.Device) {
	b.send(pinRequestedMsg{dev: dev})
}

func (b *bridge) OnDevicesDiscovered(devs []*device.Device) {
	b.send(deviceBatchMsg{devs: devs})
}
