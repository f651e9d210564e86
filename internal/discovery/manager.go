package discovery

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tvlink/tvlink/internal/device"
	"github.com/tvlink/tvlink/internal/logging"
)

// Search targets queried on every sweep. DIAL and webOS second-screen catch
// most smart TVs, roku:ecp catches Roku-based sets, and ssdp:all sweeps up
// anything advertising a description document.
var SearchTargets = []string{
	"urn:dial-multiscreen-org:service:dial:1",
	"urn:lge-com:service:webos-second-screen:1",
	"roku:ecp",
	"ssdp:all",
}

const (
	// FullSweepWindow bounds a full discovery sweep.
	FullSweepWindow = 5 * time.Second

	// IncrementalSweepWindow bounds an incremental sweep.
	IncrementalSweepWindow = 3 * time.Second

	// targetStagger delays successive target starts so four sockets don't
	// burst onto the multicast group at once.
	targetStagger = 150 * time.Millisecond

	// descriptionTimeout bounds one LOCATION document fetch.
	descriptionTimeout = 3 * time.Second

	// mdnsWindow bounds the Android TV mDNS supplement pass.
	mdnsWindow = 2 * time.Second
)

// Searcher issues one multicast search and streams raw responses. Satisfied
// by SSDPEngine; tests substitute fakes.
type Searcher interface {
	Search(ctx context.Context, target string, window time.Duration) (<-chan SSDPResponse, error)
	Stop()
}

// Fetcher retrieves a device description document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// MDNSScanner finds Android TVs advertising the remote service over mDNS.
// Optional; a nil scanner skips the supplement pass.
type MDNSScanner interface {
	Scan(ctx context.Context, window time.Duration) []*device.Device
}

// Manager orchestrates discovery sweeps: it fans the SSDP engine out across
// the search targets, resolves LOCATION headers to description documents,
// classifies them, de-duplicates devices and reports telemetry exactly once
// per sweep.
type Manager struct {
	searcher Searcher
	fetcher  Fetcher
	mdns     MDNSScanner

	delegate  device.DiscoveryDelegate
	telemetry device.Telemetry

	mu sync.Mutex
	// seen de-duplicates by (address, displayName) within the discovered set.
	seen map[string]*device.Device
	// reported tracks dedup keys already covered by a SearchSucceeded batch;
	// it survives sweeps so a device is never re-covered within a session.
	reported map[string]bool
	// pending accumulates devices found by the running incremental sweep.
	pending []*device.Device

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager wires a discovery manager. telemetry and mdns may be nil.
func NewManager(searcher Searcher, fetcher Fetcher, mdns MDNSScanner, delegate device.DiscoveryDelegate, telemetry device.Telemetry) *Manager {
	return &Manager{
		searcher:  searcher,
		fetcher:   fetcher,
		mdns:      mdns,
		delegate:  delegate,
		telemetry: telemetry,
		seen:      make(map[string]*device.Device),
		reported:  make(map[string]bool),
	}
}

// StartDiscovery begins a full sweep: all sweep state is reset and every
// device in range is rediscovered and re-reported.
func (m *Manager) StartDiscovery() {
	m.stopCurrent()

	m.mu.Lock()
	m.seen = make(map[string]*device.Device)
	m.pending = nil
	m.mu.Unlock()

	m.startSweep(FullSweepWindow, false)
}

// StartIncrementalDiscovery begins a shorter sweep that keeps the already
// discovered set; newly found devices are delivered as one batch when the
// sweep window closes.
func (m *Manager) StartIncrementalDiscovery() {
	m.stopCurrent()
	m.startSweep(IncrementalSweepWindow, true)
}

// StopDiscovery cancels the running sweep, if any.
func (m *Manager) StopDiscovery() {
	m.stopCurrent()
}

// StopIncrementalDiscovery cancels the running incremental sweep, if any.
func (m *Manager) StopIncrementalDiscovery() {
	m.stopCurrent()
}

// Wait blocks until the current sweep has finished. Used by CLI callers that
// want one synchronous sweep.
func (m *Manager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (m *Manager) stopCurrent() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		m.searcher.Stop()
		<-done
	}
}

func (m *Manager) startSweep(window time.Duration, incremental bool) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.runSweep(ctx, window, incremental)
	}()
}

// runSweep executes one sweep to completion (or cancellation).
func (m *Manager) runSweep(ctx context.Context, window time.Duration, incremental bool) {
	m.delegate.OnDiscoveryMessageChanged("Searching for devices...")

	found := 0
	var wg sync.WaitGroup
	var foundMu sync.Mutex

	for i, target := range SearchTargets {
		wg.Add(1)
		go func(idx int, st string) {
			defer wg.Done()

			// Staggered start to avoid a thundering-herd burst.
			select {
			case <-time.After(time.Duration(idx) * targetStagger):
			case <-ctx.Done():
				return
			}

			responses, err := m.searcher.Search(ctx, st, window)
			if err != nil {
				logging.LogDiscovery(st, "search_failed", zap.Error(err))
				return
			}
			for resp := range responses {
				if dev := m.resolve(ctx, &resp); dev != nil {
					foundMu.Lock()
					found++
					foundMu.Unlock()
					m.report(dev, incremental)
				}
			}
		}(i, target)
	}
	wg.Wait()

	// Full sweeps complete with an mDNS pass for Android TVs that do not
	// answer SSDP.
	if !incremental && m.mdns != nil && ctx.Err() == nil {
		for _, dev := range m.mdns.Scan(ctx, mdnsWindow) {
			foundMu.Lock()
			found++
			foundMu.Unlock()
			m.report(dev, incremental)
		}
	}

	m.finish(found, incremental)
}

// resolve turns one raw SSDP response into a classified device, or nil when
// the response carries no usable description.
func (m *Manager) resolve(ctx context.Context, resp *SSDPResponse) *device.Device {
	return ResolveResponse(ctx, m.fetcher, resp)
}

// ResolveResponse fetches and classifies the description document behind one
// SSDP response. Returns nil when the response carries no usable description.
func ResolveResponse(ctx context.Context, fetcher Fetcher, resp *SSDPResponse) *device.Device {
	location := resp.Header("LOCATION")
	if location == "" {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, descriptionTimeout)
	defer cancel()

	doc, err := fetcher.Fetch(fetchCtx, location)
	if err != nil {
		logging.Debug("Description fetch failed",
			zap.String("location", location), zap.Error(err))
		return nil
	}

	desc, err := ParseDescription(doc)
	if err != nil {
		logging.Debug("Description parse failed",
			zap.String("location", location), zap.Error(err))
		return nil
	}

	brand, name, ok := Classify(desc)
	if !ok {
		return nil
	}

	return &device.Device{
		ID:           stableID(desc.Device.UDN, resp.Host, name),
		Name:         name,
		Brand:        brand,
		Address:      resp.Host,
		Port:         locationPort(location),
		DiscoveredAt: time.Now(),
	}
}

// report delivers one resolved device, de-duplicated by (address, name).
// The first sighting in a sweep is delegate-reported; telemetry coverage is
// once per session.
func (m *Manager) report(dev *device.Device, incremental bool) {
	key := dev.DedupKey()

	m.mu.Lock()
	if _, dup := m.seen[key]; dup {
		m.mu.Unlock()
		return
	}
	m.seen[key] = dev
	if incremental {
		m.pending = append(m.pending, dev)
	}
	m.mu.Unlock()

	logging.Info("Device discovered",
		zap.String("brand", string(dev.Brand)),
		zap.String("name", dev.Name),
		zap.String("address", dev.Address))

	if !incremental {
		m.delegate.OnDeviceDiscovered(dev)
	}
}

// finish closes out a sweep: incremental batch delivery, telemetry, and the
// finished callback.
func (m *Manager) finish(found int, incremental bool) {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil

	// Telemetry covers each device at most once per session.
	var fresh []*device.Device
	for _, dev := range m.seen {
		if !m.reported[dev.DedupKey()] {
			m.reported[dev.DedupKey()] = true
			fresh = append(fresh, dev)
		}
	}
	total := len(m.seen)
	m.mu.Unlock()

	if incremental && len(batch) > 0 {
		m.delegate.OnDevicesDiscoveredIncremental(batch)
	}

	if m.telemetry != nil {
		if found == 0 {
			m.telemetry.SearchFailed()
		} else if len(fresh) > 0 {
			m.telemetry.SearchSucceeded(fresh)
		}
	}

	if total == 0 {
		m.delegate.OnDiscoveryMessageChanged("No devices found")
	} else {
		m.delegate.OnDiscoveryMessageChanged(fmt.Sprintf("Found %d device(s)", total))
	}
	m.delegate.OnDiscoveryFinished()
}

// stableID prefers the advertised UDN; otherwise it derives a stable hash
// from the network identity, so the same TV keeps its ID across sweeps even
// when the description omits a UDN.
func stableID(udn, address, name string) string {
	udn = strings.TrimPrefix(strings.TrimSpace(udn), "uuid:")
	if udn != "" {
		return udn
	}
	sum := sha1.Sum([]byte(address + "|" + name))
	return "dev_" + hex.EncodeToString(sum[:8])
}

// locationPort extracts the port from a description URL, defaulting to 80.
func locationPort(location string) int {
	u, err := url.Parse(location)
	if err != nil {
		return 80
	}
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			return n
		}
	}
	return 80
}
