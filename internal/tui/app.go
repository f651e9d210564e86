package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tvlink/tvlink/internal/config"
	"github.com/tvlink/tvlink/internal/creds"
	"github.com/tvlink/tvlink/internal/device"
	"github.com/tvlink/tvlink/internal/discovery"
	"github.com/tvlink/tvlink/internal/services"
)

// connectTimeout bounds one connection attempt. PIN pairing flows block on
// user input, so this is deliberately generous.
const connectTimeout = 3 * time.Minute

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery  Screen = "discovery"
	ScreenConnecting Screen = "connecting"
	ScreenPin        Screen = "pin"
	ScreenRemote     Screen = "remote"
)

// connectResultMsg reports the outcome of a connection attempt
type connectResultMsg struct {
	dev *device.Device
	err error
}

// pinKeyMap defines key bindings for the PIN prompt
type pinKeyMap struct {
	Submit key.Binding
	Cancel key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k pinKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k pinKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Submit, k.Cancel}}
}

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	CurrentScreen Screen

	DiscoveryModel DiscoveryModel
	RemoteModel    RemoteModel

	disc    *discovery.Manager
	control *services.Manager
	bridge  *bridge

	// Connection attempt state
	Target        *device.Device
	connectCancel context.CancelFunc
	LastError     error

	// PIN prompt state
	PinInput  textinput.Model
	PinDevice *device.Device

	Width  int
	Height int

	Spinner spinner.Model
	Help    help.Model
	PinKeys pinKeyMap
}

// NewAppModel creates the top-level application model
func NewAppModel(disc *discovery.Manager, control *services.Manager, b *bridge) AppModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	pi := textinput.New()
	pi.Placeholder = "PIN shown on the TV"
	pi.CharLimit = 16
	pi.Width = 20

	pinKeys := pinKeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}

	return AppModel{
		CurrentScreen:  ScreenDiscovery,
		DiscoveryModel: NewDiscoveryModel(),
		disc:           disc,
		control:        control,
		bridge:         b,
		PinInput:       pi,
		Spinner:        s,
		Help:           help.New(),
		PinKeys:        pinKeys,
	}
}

// Init starts the first sweep and the bridge drain loop
func (m AppModel) Init() tea.Cmd {
	m.disc.StartDiscovery()
	return tea.Batch(m.DiscoveryModel.Init(), m.bridge.waitForEvent())
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		var cmd tea.Cmd
		m.DiscoveryModel, cmd = m.DiscoveryModel.Update(msg)
		m.RemoteModel, _ = m.RemoteModel.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case nil:
		// Bridge drained after shutdown.
		return m, nil

	case pinRequestedMsg:
		m.PinDevice = msg.dev
		m.PinInput.SetValue("")
		m.CurrentScreen = ScreenPin
		return m, tea.Batch(m.PinInput.Focus(), m.bridge.waitForEvent())

	case connectedMsg, deviceFoundMsg, deviceBatchMsg, discoveryStatusMsg,
		discoveryFinishedMsg, disconnectedMsg, connErrorMsg:
		// Bridged events are routed to the active screen below, then the
		// drain loop is re-armed.
		model, cmd := m.updateCurrentScreen(msg)
		return model, tea.Batch(cmd, m.bridge.waitForEvent())

	case connectResultMsg:
		return m.handleConnectResult(msg)
	}

	return m.updateCurrentScreen(msg)
}

// updateCurrentScreen routes updates to the currently active screen
func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.updateDiscoveryScreen(msg)

	case ScreenConnecting:
		return m.updateConnectingScreen(msg)

	case ScreenPin:
		return m.updatePinScreen(msg)

	case ScreenRemote:
		m.RemoteModel, cmd = m.RemoteModel.Update(msg)
		if m.RemoteModel.DisconnectRequested {
			return m.disconnectToDiscovery()
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.RemoteModel.TextMode {
			if keyMsg.String() == "q" {
				return m, tea.Quit
			}
		}
	}

	return m, cmd
}

// updateDiscoveryScreen handles the discovery screen plus its app-level keys
func (m AppModel) updateDiscoveryScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if m.DiscoveryModel.ManualMode {
			if key.Matches(keyMsg, m.DiscoveryModel.ManualKeys.Confirm) {
				dev, err := parseManualEntry(m.DiscoveryModel.Input.Value())
				if err != nil {
					m.DiscoveryModel.ManualErr = err
					return m, nil
				}
				m.DiscoveryModel.ManualMode = false
				m.DiscoveryModel.Input.Blur()
				return m.startConnect(dev)
			}
		} else if !m.DiscoveryModel.Scanning {
			switch {
			case key.Matches(keyMsg, m.DiscoveryModel.Keys.Select):
				if dev := m.DiscoveryModel.SelectedDevice(); dev != nil {
					return m.startConnect(dev)
				}
				return m, nil

			case key.Matches(keyMsg, m.DiscoveryModel.Keys.Rescan):
				m.DiscoveryModel.Scanning = true
				m.DiscoveryModel.Status = "Searching for devices..."
				m.disc.StartIncrementalDiscovery()
				return m, m.DiscoveryModel.Spinner.Tick

			case key.Matches(keyMsg, m.DiscoveryModel.Keys.Manual):
				return m, m.DiscoveryModel.EnterManualMode()

			case key.Matches(keyMsg, m.DiscoveryModel.Keys.Quit):
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.DiscoveryModel, cmd = m.DiscoveryModel.Update(msg)
	return m, cmd
}

// updateConnectingScreen handles messages while a connection attempt runs
func (m AppModel) updateConnectingScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "esc" && m.connectCancel != nil {
			m.connectCancel()
			return m, nil
		}
	}

	return m, nil
}

// updatePinScreen handles the PIN prompt
func (m AppModel) updatePinScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.PinKeys.Submit):
			pin := strings.TrimSpace(m.PinInput.Value())
			if pin == "" {
				return m, nil
			}
			m.PinInput.Blur()
			m.CurrentScreen = ScreenConnecting
			if err := m.control.ProvidePin(pin); err != nil {
				m.LastError = err
			}
			return m, m.Spinner.Tick

		case key.Matches(msg, m.PinKeys.Cancel):
			if m.connectCancel != nil {
				m.connectCancel()
			}
			m.PinInput.Blur()
			m.CurrentScreen = ScreenConnecting
			return m, m.Spinner.Tick
		}

		var cmd tea.Cmd
		m.PinInput, cmd = m.PinInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

// startConnect kicks off an asynchronous connection attempt
func (m AppModel) startConnect(dev *device.Device) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)

	m.Target = dev
	m.connectCancel = cancel
	m.LastError = nil
	m.CurrentScreen = ScreenConnecting

	control := m.control
	connect := func() tea.Msg {
		defer cancel()
		err := control.ConnectToDevice(ctx, dev)
		return connectResultMsg{dev: dev, err: err}
	}

	return m, tea.Batch(connect, m.Spinner.Tick)
}

// handleConnectResult transitions to the remote screen or back to discovery
func (m AppModel) handleConnectResult(msg connectResultMsg) (tea.Model, tea.Cmd) {
	m.connectCancel = nil

	if msg.err != nil {
		m.LastError = msg.err
		m.DiscoveryModel.Err = fmt.Errorf("%s: %s", msg.dev.Name, services.GetShortErrorMessage(msg.err))
		m.CurrentScreen = ScreenDiscovery
		return m, nil
	}

	m.LastError = nil
	m.DiscoveryModel.Err = nil
	m.RemoteModel = NewRemoteModel(msg.dev, m.control)
	m.RemoteModel.Width = m.Width
	m.RemoteModel.Height = m.Height
	m.CurrentScreen = ScreenRemote
	return m, m.RemoteModel.Init()
}

// disconnectToDiscovery tears down the session and returns to the device list
func (m AppModel) disconnectToDiscovery() (tea.Model, tea.Cmd) {
	if m.RemoteModel.Device != nil {
		_ = m.control.DisconnectFromDevice(m.RemoteModel.Device)
	}
	m.RemoteModel = RemoteModel{}
	m.Target = nil
	m.CurrentScreen = ScreenDiscovery
	return m, nil
}

// View renders the current screen
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.View()
	case ScreenConnecting:
		return m.renderConnecting()
	case ScreenPin:
		return m.renderPinPrompt()
	case ScreenRemote:
		return m.RemoteModel.View()
	default:
		return "Unknown screen"
	}
}

// renderConnecting renders the connection progress screen
func (m AppModel) renderConnecting() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Connecting"))
	b.WriteString("\n")
	b.WriteString(m.Spinner.View())
	b.WriteString(" ")
	if m.Target != nil {
		b.WriteString(fmt.Sprintf("Connecting to %s (%s) at %s...",
			m.Target.Name, m.Target.Brand.String(), m.Target.Address))
	} else {
		b.WriteString("Connecting...")
	}
	b.WriteString("\n\n")
	b.WriteString(RenderSubtitle("First-time pairing may ask you to allow access on the TV."))
	b.WriteString("\n")

	helpText := "esc: cancel • ctrl+c: quit"
	return RenderApplicationContainer(b.String(), helpText, m.Width, m.Height)
}

// renderPinPrompt renders the pairing PIN entry screen
func (m AppModel) renderPinPrompt() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Pairing PIN required"))
	b.WriteString("\n")
	if m.PinDevice != nil {
		b.WriteString(WarningBoxStyle.Render(fmt.Sprintf(
			"%s is showing a PIN on screen.\nType it below to finish pairing.",
			m.PinDevice.Name)))
	} else {
		b.WriteString(WarningBoxStyle.Render("The TV is showing a PIN on screen.\nType it below to finish pairing."))
	}
	b.WriteString("\n\n")
	b.WriteString(FocusedInputStyle.Render("PIN: "))
	b.WriteString(m.PinInput.View())
	b.WriteString("\n")

	helpText := m.Help.View(m.PinKeys)
	return RenderApplicationContainer(b.String(), helpText, m.Width, m.Height)
}

// Run wires the managers to a fresh TUI and blocks until the user quits.
func Run(store creds.Store, registry *config.Registry) error {
	b := newBridge()
	defer b.close()

	disc := discovery.NewManager(
		discovery.NewSSDPEngine(),
		discovery.NewHTTPFetcher(),
		discovery.NewAndroidTVScanner(),
		b,
		nil,
	)
	defer disc.StopDiscovery()

	control := services.NewManager(store, registry, b)
	defer control.Close()

	p := tea.NewProgram(NewAppModel(disc, control, b), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
