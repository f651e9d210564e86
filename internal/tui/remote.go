package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tvlink/tvlink/internal/device"
	"github.com/tvlink/tvlink/internal/services"
)

// commandTimeout bounds one remote keypress issued from the TUI.
const commandTimeout = 10 * time.Second

// commandSentMsg reports the outcome of one keypress
type commandSentMsg struct {
	name string
	err  error
}

// remoteKeyMap defines key bindings for the remote screen
type remoteKeyMap struct {
	Navigate   key.Binding
	Select     key.Binding
	Back       key.Binding
	Home       key.Binding
	Volume     key.Binding
	Playback   key.Binding
	Power      key.Binding
	Text       key.Binding
	Disconnect key.Binding
	Quit       key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k remoteKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Navigate, k.Select, k.Back, k.Text, k.Disconnect, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k remoteKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Navigate, k.Select, k.Back, k.Home},
		{k.Volume, k.Playback, k.Power},
		{k.Text, k.Disconnect, k.Quit},
	}
}

// textEntryKeyMap defines key bindings for on-screen keyboard text entry
type textEntryKeyMap struct {
	Send   key.Binding
	Cancel key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k textEntryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k textEntryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.Cancel}}
}

// keyToCommand translates a key name into the generic command vocabulary.
// Keys that drive the TUI itself (text entry, disconnect, quit) are not
// commands and return false.
func keyToCommand(keyName string) (device.Command, bool) {
	switch keyName {
	case "up":
		return device.Command{Name: device.CmdUp}, true
	case "down":
		return device.Command{Name: device.CmdDown}, true
	case "left":
		return device.Command{Name: device.CmdLeft}, true
	case "right":
		return device.Command{Name: device.CmdRight}, true
	case "enter":
		return device.Command{Name: device.CmdSelect}, true
	case "backspace", "b":
		return device.Command{Name: device.CmdBack}, true
	case "h":
		return device.Command{Name: device.CmdHome}, true
	case "m":
		return device.Command{Name: device.CmdMenu}, true
	case "+", "=":
		return device.Command{Name: device.CmdVolumeUp}, true
	case "-":
		return device.Command{Name: device.CmdVolumeDown}, true
	case "0":
		return device.Command{Name: device.CmdMute}, true
	case " ":
		return device.Command{Name: device.CmdPlay}, true
	case ".":
		return device.Command{Name: device.CmdPause}, true
	case ",":
		return device.Command{Name: device.CmdRewind}, true
	case "/":
		return device.Command{Name: device.CmdFastFwd}, true
	case "]":
		return device.Command{Name: device.CmdChannelUp}, true
	case "[":
		return device.Command{Name: device.CmdChannelDn}, true
	case "p":
		return device.Command{Name: device.CmdPower}, true
	case "P":
		return device.Command{Name: device.CmdPowerOff}, true
	}
	return device.Command{}, false
}

// RemoteModel is the remote-control screen for one connected TV.
type RemoteModel struct {
	Device  *device.Device
	control *services.Manager

	Status   string
	LastErr  error
	TextMode bool
	Input    textinput.Model

	// DisconnectRequested signals the app model to return to discovery.
	DisconnectRequested bool

	Width  int
	Height int

	Help     help.Model
	Keys     remoteKeyMap
	TextKeys textEntryKeyMap
}

// NewRemoteModel creates the remote screen for a connected device
func NewRemoteModel(dev *device.Device, control *services.Manager) RemoteModel {
	ti := textinput.New()
	ti.Placeholder = "text to type on the TV"
	ti.CharLimit = 128
	ti.Width = 44

	keys := remoteKeyMap{
		Navigate: key.NewBinding(
			key.WithKeys("up", "down", "left", "right"),
			key.WithHelp("↑↓←→", "navigate"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("backspace", "b"),
			key.WithHelp("b", "back"),
		),
		Home: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "home"),
		),
		Volume: key.NewBinding(
			key.WithKeys("+", "-", "0"),
			key.WithHelp("+/-/0", "volume/mute"),
		),
		Playback: key.NewBinding(
			key.WithKeys(" ", ".", ",", "/"),
			key.WithHelp("space/./,//", "playback"),
		),
		Power: key.NewBinding(
			key.WithKeys("p", "P"),
			key.WithHelp("p/P", "power on/off"),
		),
		Text: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "type text"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("d", "esc"),
			key.WithHelp("d", "disconnect"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
	}

	textKeys := textEntryKeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}

	return RemoteModel{
		Device:   dev,
		control:  control,
		Status:   "Connected",
		Input:    ti,
		Help:     help.New(),
		Keys:     keys,
		TextKeys: textKeys,
	}
}

// Init implements tea.Model-style initialization
func (m RemoteModel) Init() tea.Cmd {
	return nil
}

// sendCommand issues one keypress asynchronously
func (m RemoteModel) sendCommand(cmd device.Command) tea.Cmd {
	dev := m.Device
	control := m.control
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		err := control.SendCommand(ctx, dev, cmd)
		return commandSentMsg{name: cmd.Name, err: err}
	}
}

// Update handles remote screen messages
func (m RemoteModel) Update(msg tea.Msg) (RemoteModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case commandSentMsg:
		if msg.err != nil {
			m.LastErr = msg.err
			m.Status = fmt.Sprintf("%s failed", msg.name)
		} else {
			m.LastErr = nil
			m.Status = fmt.Sprintf("Sent %s", msg.name)
		}
		return m, nil

	case tea.KeyMsg:
		if m.TextMode {
			return m.updateTextMode(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

// updateKeys handles keypresses in remote mode
func (m RemoteModel) updateKeys(msg tea.KeyMsg) (RemoteModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Text):
		m.TextMode = true
		m.Input.SetValue("")
		return m, m.Input.Focus()

	case key.Matches(msg, m.Keys.Disconnect):
		m.DisconnectRequested = true
		return m, nil
	}

	if cmd, ok := keyToCommand(msg.String()); ok {
		return m, m.sendCommand(cmd)
	}
	return m, nil
}

// updateTextMode handles keypresses while the text entry field is focused
func (m RemoteModel) updateTextMode(msg tea.KeyMsg) (RemoteModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.TextKeys.Cancel):
		m.TextMode = false
		m.Input.Blur()
		return m, nil

	case key.Matches(msg, m.TextKeys.Send):
		text := m.Input.Value()
		m.TextMode = false
		m.Input.Blur()
		if text == "" {
			return m, nil
		}
		return m, m.sendCommand(device.Command{Name: device.CmdText, Text: text})
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// View renders the remote screen
func (m RemoteModel) View() string {
	var content string
	var helpText string

	if m.TextMode {
		content = m.renderTextEntry()
		helpText = m.Help.View(m.TextKeys)
	} else {
		content = m.renderRemote()
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

func (m RemoteModel) renderRemote() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Remote control"))
	b.WriteString("\n")
	b.WriteString(RenderSuccess(fmt.Sprintf("%s (%s) at %s", m.Device.Name, m.Device.Brand.String(), m.Device.Address)))
	b.WriteString("\n\n")

	b.WriteString(MenuItemStyle.Render("↑↓←→     navigate        enter  select"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("b        back            h      home"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("+/-/0    volume/mute     m      menu"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("space/.  play/pause      ,//    rewind/fwd"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("[/]      channel         p/P    power on/off"))
	b.WriteString("\n")
	b.WriteString(MenuItemStyle.Render("t        type text       d      disconnect"))
	b.WriteString("\n\n")

	if m.LastErr != nil {
		b.WriteString(ErrorBoxStyle.Render(services.GetShortErrorMessage(m.LastErr)))
	} else {
		b.WriteString(StatusBarStyle.Render(m.Status))
	}
	b.WriteString("\n")

	return b.String()
}

func (m RemoteModel) renderTextEntry() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Type on the TV"))
	b.WriteString("\n")
	b.WriteString(RenderSubtitle("Text is delivered as on-screen keyboard input."))
	b.WriteString("\n\n")
	b.WriteString(FocusedInputStyle.Render("> "))
	b.WriteString(m.Input.View())
	b.WriteString("\n")

	return b.String()
}
