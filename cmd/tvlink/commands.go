package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/tvlink/tvlink/internal/config"
	"github.com/tvlink/tvlink/internal/creds"
	"github.com/tvlink/tvlink/internal/device"
	"github.com/tvlink/tvlink/internal/discovery"
	"github.com/tvlink/tvlink/internal/services"
	"github.com/tvlink/tvlink/internal/tui"
)

// sessionTimeout bounds one CLI connect attempt, including pairing.
const sessionTimeout = 3 * time.Minute

func init() {
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(unpairCmd)
}

// openStores loads the credential store and the device registry.
func openStores() (creds.Store, *config.Registry, error) {
	path, err := creds.DefaultPath()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to locate credential store: %w", err)
	}
	store, err := creds.NewFileStore(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load device registry: %w", err)
	}

	return store, registry, nil
}

// resolveTarget resolves a device argument against the registry. It accepts a
// device name, a stable device ID, or "brand@address" for TVs the registry
// has never seen.
func resolveTarget(registry *config.Registry, target string) (*device.Device, error) {
	if id := registry.FindByName(target); id != "" {
		target = id
	}

	if entry := registry.GetDevice(target); entry != nil {
		return &device.Device{
			ID:      target,
			Name:    entry.Name,
			Brand:   device.Brand(entry.Brand),
			Address: entry.Address,
			Port:    entry.Port,
		}, nil
	}

	if brand, addr, ok := strings.Cut(target, "@"); ok {
		b := device.Brand(strings.ToLower(brand))
		return &device.Device{
			ID:      "manual-" + string(b) + "-" + addr,
			Name:    b.String() + " TV",
			Brand:   b,
			Address: addr,
		}, nil
	}

	return nil, fmt.Errorf("unknown device %q. Run 'tvlink devices' to list known TVs, or use brand@address", target)
}

// cliDelegate prints connection events and answers PIN prompts on stdin.
type cliDelegate struct {
	mu      sync.Mutex
	manager *services.Manager
}

func (d *cliDelegate) setManager(m *services.Manager) {
	d.mu.Lock()
	d.manager = m
	d.mu.Unlock()
}

func (d *cliDelegate) OnConnected(dev *device.Device) {
	fmt.Printf("✓ Connected to %s (%s) at %s\n", dev.Name, dev.Brand.String(), dev.Address)
}

func (d *cliDelegate) OnDisconnected(dev *device.Device) {
	fmt.Printf("Disconnected from %s\n", dev.Name)
}

func (d *cliDelegate) OnError(err error) {
	fmt.Fprintf(os.Stderr, "✗ %s\n", services.GetShortErrorMessage(err))
}

func (d *cliDelegate) OnPinRequested(dev *device.Device) {
	fmt.Printf("\n%s is showing a PIN on screen.\n", dev.Name)
	fmt.Print("Enter PIN: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read PIN: %v\n", err)
		return
	}

	d.mu.Lock()
	m := d.manager
	d.mu.Unlock()
	if m == nil {
		return
	}
	if err := m.ProvidePin(strings.TrimSpace(line)); err != nil {
		fmt.Fprintf(os.Stderr, "failed to submit PIN: %v\n", err)
	}
}

func (d *cliDelegate) OnDevicesDiscovered(devs []*device.Device) {}

// openSession connects to the target device and returns the manager plus a
// teardown func.
func openSession(target string) (*services.Manager, *device.Device, func(), error) {
	store, registry, err := openStores()
	if err != nil {
		return nil, nil, nil, err
	}

	dev, err := resolveTarget(registry, target)
	if err != nil {
		return nil, nil, nil, err
	}

	delegate := &cliDelegate{}
	manager := services.NewManager(store, registry, delegate)
	delegate.setManager(manager)

	ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
	defer cancel()

	if err := manager.ConnectToDevice(ctx, dev); err != nil {
		manager.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to %s: %w", dev.Name, err)
	}

	teardown := func() {
		_ = manager.DisconnectFromDevice(dev)
		manager.Close()
	}
	return manager, dev, teardown, nil
}

// scanCollector gathers sweep results for CLI output.
type scanCollector struct {
	mu      sync.Mutex
	devices []*device.Device
	message string
}

func (c *scanCollector) OnDeviceDiscovered(dev *device.Device) {
	c.mu.Lock()
	c.devices = append(c.devices, dev)
	c.mu.Unlock()
}

func (c *scanCollector) OnDevicesDiscoveredIncremental(devs []*device.Device) {
	c.mu.Lock()
	c.devices = append(c.devices, devs...)
	c.mu.Unlock()
}

func (c *scanCollector) OnDiscoveryFinished() {}

func (c *scanCollector) OnDiscoveryMessageChanged(text string) {
	c.mu.Lock()
	c.message = text
	c.mu.Unlock()
}

// discoverCmd sweeps the network and prints what answered
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scan for TVs on the network",
	Long: `Scan the local network for smart TVs.

Sweeps SSDP across the DIAL, webOS, Roku and generic search targets, then
runs an mDNS pass for Android TVs. Discovered devices are recorded in the
registry so later commands can refer to them by name.`,
	Example: `  # Sweep the local network
  tvlink discover`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	_, registry, err := openStores()
	if err != nil {
		return err
	}

	fmt.Println("Scanning for TVs...")
	fmt.Println()

	collector := &scanCollector{}
	manager := discovery.NewManager(
		discovery.NewSSDPEngine(),
		discovery.NewHTTPFetcher(),
		discovery.NewAndroidTVScanner(),
		collector,
		nil,
	)

	manager.StartDiscovery()
	manager.Wait()

	collector.mu.Lock()
	devices := collector.devices
	collector.mu.Unlock()

	if len(devices) == 0 {
		fmt.Println("No TVs found.")
		fmt.Println()
		fmt.Println("Troubleshooting:")
		fmt.Println("  - Ensure the TV is powered on and on the same network")
		fmt.Println("  - Some TVs only answer discovery while awake")
		fmt.Println("  - Use 'tvlink connect brand@address' to skip discovery")
		return nil
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })

	fmt.Printf("Found %d TV(s):\n\n", len(devices))
	for i, dev := range devices {
		fmt.Printf("%d. %s (%s)\n", i+1, dev.Name, dev.Brand.String())
		if dev.Port > 0 {
			fmt.Printf("   Address: %s:%d\n", dev.Address, dev.Port)
		} else {
			fmt.Printf("   Address: %s\n", dev.Address)
		}
		fmt.Println()

		registry.RecordDevice(dev.ID, dev.Name, string(dev.Brand), dev.Address, dev.Port)
	}

	if err := registry.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save registry: %v\n", err)
	}

	fmt.Println("Use 'tvlink connect <name>' to pair, or 'tvlink' for the interactive remote")
	return nil
}

// devicesCmd lists TVs known to the registry
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List known TVs",
	Long:  `List the TVs recorded in the registry by previous discovery sweeps and connections.`,
	RunE:  runDevices,
}

func runDevices(cmd *cobra.Command, args []string) error {
	_, registry, err := openStores()
	if err != nil {
		return err
	}

	if len(registry.Devices) == 0 {
		fmt.Println("No known TVs. Run 'tvlink discover' first.")
		return nil
	}

	ids := make([]string, 0, len(registry.Devices))
	for id := range registry.Devices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return registry.Devices[ids[i]].Name < registry.Devices[ids[j]].Name
	})

	for _, id := range ids {
		entry := registry.Devices[id]
		marker := " "
		if id == registry.LastDevice {
			marker = "*"
		}
		fmt.Printf("%s %s (%s)\n", marker, entry.Name, device.Brand(entry.Brand).String())
		fmt.Printf("    Address:   %s:%d\n", entry.Address, entry.Port)
		fmt.Printf("    Last seen: %s\n", entry.LastSeen.Format("2006-01-02 15:04"))
		fmt.Println()
	}

	return nil
}

// remoteCmd launches the interactive TUI
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Launch the interactive remote",
	Long: `Launch the interactive terminal remote.

The remote discovers TVs, walks through pairing (including PIN entry for
Android TV and Fire TV) and turns the keyboard into a remote control.

This is the default when tvlink runs with no arguments.`,
	Example: `  tvlink remote
  # Or simply:
  tvlink`,
	RunE: runRemote,
}

func runRemote(cmd *cobra.Command, args []string) error {
	store, registry, err := openStores()
	if err != nil {
		return err
	}
	return tui.Run(store, registry)
}

// connectCmd pairs with a TV and verifies the connection
var connectCmd = &cobra.Command{
	Use:   "connect <device>",
	Short: "Connect to a TV and complete pairing",
	Long: `Connect to a TV, running the vendor pairing handshake if required.

Samsung TVs ask for permission on screen; Android TV and Fire TV show a PIN
that must be typed here. Once pairing succeeds the credential is stored and
later connections are silent.

The device argument is a name or ID from 'tvlink devices', or brand@address
for a TV the registry has not seen (e.g. roku@192.168.1.50).`,
	Example: `  tvlink connect "Living Room TV"
  tvlink connect samsung@192.168.1.20`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	_, _, teardown, err := openSession(args[0])
	if err != nil {
		return err
	}
	teardown()
	return nil
}

// sendCmd sends one remote-control command
var sendCmd = &cobra.Command{
	Use:   "send <device> <command> [text]",
	Short: "Send a remote-control command",
	Long: `Connect to a TV and send one remote-control command.

Commands: power poweroff home back up down left right select menu
volumeup volumedown mute play pause rewind fastforward channelup
channeldown text launch

The text command takes the text to type as a third argument; launch takes
an app or channel identifier.`,
	Example: `  tvlink send "Living Room TV" home
  tvlink send roku@192.168.1.50 volumeup
  tvlink send "Living Room TV" text "jazz documentaries"
  tvlink send "Living Room TV" launch 12`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	manager, dev, teardown, err := openSession(args[0])
	if err != nil {
		return err
	}
	defer teardown()

	command := device.Command{Name: strings.ToLower(args[1])}
	if len(args) == 3 {
		command.Text = args[2]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := manager.SendCommand(ctx, dev, command); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}

	fmt.Printf("✓ Sent %s to %s\n", command.Name, dev.Name)
	return nil
}

// unpairCmd removes stored pairing material for a TV
var unpairCmd = &cobra.Command{
	Use:   "unpair <device>",
	Short: "Forget a TV's pairing credentials",
	Long: `Remove the stored pairing credential for a TV.

The next connection will run the vendor pairing handshake again. Useful
when the TV was reset or the stored token stopped working.`,
	Example: `  tvlink unpair "Living Room TV"`,
	Args: cobra.ExactArgs(1),
	RunE: runUnpair,
}

func runUnpair(cmd *cobra.Command, args []string) error {
	store, registry, err := openStores()
	if err != nil {
		return err
	}

	dev, err := resolveTarget(registry, args[0])
	if err != nil {
		return err
	}

	if err := store.ClearToken(dev.Brand, dev.ID); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	if err := store.SetPaired(dev.Brand, dev.ID, false); err != nil {
		return fmt.Errorf("failed to clear pairing flag: %w", err)
	}

	fmt.Printf("✓ Forgot pairing for %s. The next connection will pair again.\n", dev.Name)
	return nil
}
