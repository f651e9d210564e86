package tui

import (
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tvlink/tvlink/internal/device"
)

// discoveryKeyMap defines key bindings for the device list
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// manualKeyMap defines key bindings for manual entry mode
type manualKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k manualKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k manualKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

// scanningKeyMap defines key bindings while a sweep is running
type scanningKeyMap struct {
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k scanningKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k scanningKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

// deviceItem wraps a discovered device for the bubbles list
type deviceItem struct {
	dev *device.Device
}

// FilterValue implements list.Item
func (i deviceItem) FilterValue() string {
	return i.dev.Name
}

// Title returns the list entry title
func (i deviceItem) Title() string {
	return fmt.Sprintf("%s (%s)", i.dev.Name, i.dev.Brand.String())
}

// Description returns the list entry detail line
func (i deviceItem) Description() string {
	if i.dev.Port > 0 {
		return fmt.Sprintf("%s:%d", i.dev.Address, i.dev.Port)
	}
	return i.dev.Address
}

// deviceDelegate renders device entries as compact two-line cards
type deviceDelegate struct{}

func (d deviceDelegate) Height() int                             { return 2 }
func (d deviceDelegate) Spacing() int                            { return 1 }
func (d deviceDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	di, ok := item.(deviceItem)
	if !ok {
		return
	}

	title := di.Title()
	desc := di.Description()

	if index == m.Index() {
		fmt.Fprintf(w, "%s\n%s",
			SelectedMenuItemStyle.Render("→ "+title),
			lipgloss.NewStyle().
				PaddingLeft(4).
				Foreground(HighlightColor).
				Render(desc))
		return
	}

	fmt.Fprintf(w, "%s\n%s",
		MenuItemStyle.Render(title),
		lipgloss.NewStyle().
			PaddingLeft(6).
			Foreground(SubtleColor).
			Render(desc))
}

// DiscoveryModel is the device discovery screen: a live list that fills as
// sweeps report devices, plus a manual entry mode for TVs that do not answer
// multicast.
type DiscoveryModel struct {
	Scanning   bool
	DeviceList list.Model
	Status     string
	Err        error

	ManualMode bool
	ManualErr  error
	Input      textinput.Model

	Width  int
	Height int

	Spinner spinner.Model

	Help         help.Model
	Keys         discoveryKeyMap
	ManualKeys   manualKeyMap
	ScanningKeys scanningKeyMap
}

// NewDiscoveryModel creates the discovery screen
func NewDiscoveryModel() DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ti := textinput.New()
	ti.Placeholder = "brand address (e.g. roku 192.168.1.50)"
	ti.CharLimit = 64
	ti.Width = 44

	dl := list.New(nil, deviceDelegate{}, 0, 0)
	dl.SetShowTitle(false)
	dl.SetShowStatusBar(false)
	dl.SetShowHelp(false)
	dl.SetFilteringEnabled(false)

	keys := discoveryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "connect"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual entry"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}

	manualKeys := manualKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "connect"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}

	scanningKeys := scanningKeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}

	return DiscoveryModel{
		Scanning:     true,
		DeviceList:   dl,
		Status:       "Searching for devices...",
		Input:        ti,
		Spinner:      s,
		Help:         help.New(),
		Keys:         keys,
		ManualKeys:   manualKeys,
		ScanningKeys: scanningKeys,
	}
}

// Init starts the spinner
func (m DiscoveryModel) Init() tea.Cmd {
	return m.Spinner.Tick
}

// AddDevice appends a newly reported device to the list, skipping entries
// already present by ID.
func (m *DiscoveryModel) AddDevice(dev *device.Device) {
	for _, it := range m.DeviceList.Items() {
		if existing, ok := it.(deviceItem); ok && existing.dev.ID == dev.ID {
			return
		}
	}
	items := append(m.DeviceList.Items(), deviceItem{dev: dev})
	m.DeviceList.SetItems(items)
}

// SelectedDevice returns the highlighted device, or nil when the list is empty
func (m DiscoveryModel) SelectedDevice() *device.Device {
	if it, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
		return it.dev
	}
	return nil
}

// Update handles discovery screen messages
func (m DiscoveryModel) Update(msg tea.Msg) (DiscoveryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DeviceList.SetSize(msg.Width-8, msg.Height-10)
		return m, nil

	case deviceFoundMsg:
		m.AddDevice(msg.dev)
		return m, nil

	case deviceBatchMsg:
		for _, dev := range msg.devs {
			m.AddDevice(dev)
		}
		return m, nil

	case discoveryStatusMsg:
		m.Status = msg.text
		return m, nil

	case discoveryFinishedMsg:
		m.Scanning = false
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		var cmd tea.Cmd
		m.DeviceList, cmd = m.DeviceList.Update(msg)
		return m, cmd
	}

	return m, nil
}

// updateManualMode handles key input while the manual entry field is focused
func (m DiscoveryModel) updateManualMode(msg tea.KeyMsg) (DiscoveryModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ManualKeys.Cancel):
		m.ManualMode = false
		m.ManualErr = nil
		m.Input.Blur()
		m.Input.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// EnterManualMode focuses the manual entry field
func (m *DiscoveryModel) EnterManualMode() tea.Cmd {
	m.ManualMode = true
	m.ManualErr = nil
	m.Input.SetValue("")
	return m.Input.Focus()
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	var content string
	var helpText string

	switch {
	case m.ManualMode:
		content = m.renderManualEntry()
		helpText = m.Help.View(m.ManualKeys)
	case m.Scanning:
		content = m.renderScanning()
		helpText = m.Help.View(m.ScanningKeys)
	default:
		content = m.renderResults()
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

func (m DiscoveryModel) renderScanning() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Scanning the local network"))
	b.WriteString("\n")
	b.WriteString(m.Spinner.View())
	b.WriteString(" ")
	b.WriteString(m.Status)
	b.WriteString("\n\n")

	if len(m.DeviceList.Items()) > 0 {
		b.WriteString(m.DeviceList.View())
	}

	return b.String()
}

func (m DiscoveryModel) renderResults() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Select a TV"))
	b.WriteString("\n")

	if len(m.DeviceList.Items()) == 0 {
		b.WriteString(RenderSubtitle("No TVs found on the local network."))
		b.WriteString("\n\n")
		b.WriteString(MenuItemStyle.Render("r - scan again"))
		b.WriteString("\n")
		b.WriteString(MenuItemStyle.Render("m - enter an address manually"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(RenderSubtitle(m.Status))
	b.WriteString("\n\n")
	b.WriteString(m.DeviceList.View())

	if m.Err != nil {
		b.WriteString("\n")
		b.WriteString(RenderError(m.Err.Error()))
	}

	return b.String()
}

func (m DiscoveryModel) renderManualEntry() string {
	var b strings.Builder

	b.WriteString(RenderTitle("Manual entry"))
	b.WriteString("\n")
	b.WriteString(RenderSubtitle("Type the brand and IPv4 address of the TV."))
	b.WriteString("\n")
	b.WriteString(RenderSubtitle("Brands: roku samsung androidtv firetv sony lg philips tcl toshiba vizio panasonic"))
	b.WriteString("\n\n")
	b.WriteString(FocusedInputStyle.Render("> "))
	b.WriteString(m.Input.View())
	b.WriteString("\n")

	if m.ManualErr != nil {
		b.WriteString("\n")
		b.WriteString(RenderError(m.ManualErr.Error()))
	}

	return b.String()
}

// manualBrands maps the names accepted in manual entry to brands.
var manualBrands = map[string]device.Brand{
	"roku":      device.BrandRoku,
	"samsung":   device.BrandSamsung,
	"androidtv": device.BrandAndroidTV,
	"firetv":    device.BrandFireTV,
	"sony":      device.BrandSony,
	"lg":        device.BrandLG,
	"philips":   device.BrandPhilipsAndroid,
	"tcl":       device.BrandTCL,
	"toshiba":   device.BrandToshiba,
	"vizio":     device.BrandVizio,
	"panasonic": device.BrandPanasonic,
}

// parseManualEntry parses a "brand address" line into a device record.
func parseManualEntry(input string) (*device.Device, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(input)))
	if len(fields) != 2 {
		return nil, fmt.Errorf("expected \"brand address\", got %q", input)
	}

	brand, ok := manualBrands[fields[0]]
	if !ok {
		return nil, fmt.Errorf("unknown brand %q", fields[0])
	}

	ip := net.ParseIP(fields[1])
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("invalid IPv4 address %q", fields[1])
	}

	addr := ip.String()
	return &device.Device{
		ID:      "manual-" + string(brand) + "-" + addr,
		Name:    brand.String() + " TV",
		Brand:   brand,
		Address: addr,
	}, nil
}
