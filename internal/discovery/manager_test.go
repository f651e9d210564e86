package discovery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tvlink/tvlink/internal/device"
)

// fakeSearcher answers every search target with the same canned responses.
type fakeSearcher struct {
	mu        sync.Mutex
	responses map[string][]SSDPResponse // keyed by search target
}

func (f *fakeSearcher) Search(ctx context.Context, target string, window time.Duration) (<-chan SSDPResponse, error) {
	f.mu.Lock()
	resps := f.responses[target]
	f.mu.Unlock()

	out := make(chan SSDPResponse, len(resps))
	for _, r := range resps {
		out <- r
	}
	close(out)
	return out, nil
}

func (f *fakeSearcher) Stop() {}

// fakeFetcher serves description documents from a map.
type fakeFetcher struct {
	docs map[string]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	doc, ok := f.docs[location]
	if !ok {
		return nil, fmt.Errorf("no document at %s", location)
	}
	return []byte(doc), nil
}

// recordingDelegate captures every delegate callback.
type recordingDelegate struct {
	mu          sync.Mutex
	discovered  []*device.Device
	incremental [][]*device.Device
	finished    int
	messages    []string
}

func (d *recordingDelegate) OnDeviceDiscovered(dev *device.Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.discovered = append(d.discovered, dev)
}

func (d *recordingDelegate) OnDevicesDiscoveredIncremental(devs []*device.Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.incremental = append(d.incremental, devs)
}

func (d *recordingDelegate) OnDiscoveryFinished() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finished++
}

func (d *recordingDelegate) OnDiscoveryMessageChanged(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, text)
}

// recordingTelemetry captures telemetry events.
type recordingTelemetry struct {
	mu        sync.Mutex
	succeeded [][]*device.Device
	failed    int
}

func (t *recordingTelemetry) SearchSucceeded(devs []*device.Device) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.succeeded = append(t.succeeded, devs)
}

func (t *recordingTelemetry) SearchFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed++
}

const rokuDoc = `<root><device>
  <friendlyName>Bedroom Roku</friendlyName>
  <manufacturer>Roku, Inc.</manufacturer>
  <modelName>Ultra</modelName>
  <UDN>uuid:roku-1</UDN>
</device></root>`

const samsungDoc = `<root><device>
  <friendlyName>Living Room TV</friendlyName>
  <manufacturer>Samsung Electronics</manufacturer>
  <modelName>QN90A</modelName>
  <UDN>uuid:samsung-1</UDN>
</device></root>`

func rokuResponse() SSDPResponse {
	return SSDPResponse{
		Host: "192.168.1.50",
		Text: "HTTP/1.1 200 OK\r\nLOCATION: http://192.168.1.50:8060/desc.xml\r\nST: roku:ecp\r\n\r\n",
	}
}

func TestFullSweepDeduplicatesAcrossTargets(t *testing.T) {
	// Every target returns the same Roku; it must be reported exactly once.
	searcher := &fakeSearcher{responses: map[string][]SSDPResponse{}}
	for _, target := range SearchTargets {
		searcher.responses[target] = []SSDPResponse{rokuResponse()}
	}
	fetcher := &fakeFetcher{docs: map[string]string{
		"http://192.168.1.50:8060/desc.xml": rokuDoc,
	}}
	delegate := &recordingDelegate{}
	telemetry := &recordingTelemetry{}

	m := NewManager(searcher, fetcher, nil, delegate, telemetry)
	m.StartDiscovery()
	m.Wait()

	if len(delegate.discovered) != 1 {
		t.Fatalf("OnDeviceDiscovered fired %d times, want 1", len(delegate.discovered))
	}
	dev := delegate.discovered[0]
	if dev.Brand != device.BrandRoku || dev.Name != "Bedroom Roku" {
		t.Errorf("discovered device = %+v", dev)
	}
	if dev.ID != "roku-1" {
		t.Errorf("device ID = %q, want the UDN without uuid: prefix", dev.ID)
	}
	if dev.Port != 8060 {
		t.Errorf("device port = %d, want 8060 (from LOCATION)", dev.Port)
	}
	if delegate.finished != 1 {
		t.Errorf("OnDiscoveryFinished fired %d times, want 1", delegate.finished)
	}

	if telemetry.failed != 0 {
		t.Errorf("SearchFailed fired %d times on a successful sweep", telemetry.failed)
	}
	if len(telemetry.succeeded) != 1 || len(telemetry.succeeded[0]) != 1 {
		t.Errorf("SearchSucceeded batches = %+v, want one batch of one device", telemetry.succeeded)
	}
}

func TestEmptySweepFiresSearchFailedOnce(t *testing.T) {
	searcher := &fakeSearcher{responses: map[string][]SSDPResponse{}}
	fetcher := &fakeFetcher{docs: map[string]string{}}
	delegate := &recordingDelegate{}
	telemetry := &recordingTelemetry{}

	m := NewManager(searcher, fetcher, nil, delegate, telemetry)
	m.StartDiscovery()
	m.Wait()

	if telemetry.failed != 1 {
		t.Errorf("SearchFailed fired %d times, want exactly 1", telemetry.failed)
	}
	if len(telemetry.succeeded) != 0 {
		t.Errorf("SearchSucceeded fired on an empty sweep: %+v", telemetry.succeeded)
	}
	if len(delegate.discovered) != 0 {
		t.Errorf("devices reported on an empty sweep: %+v", delegate.discovered)
	}

	last := delegate.messages[len(delegate.messages)-1]
	if last != "No devices found" {
		t.Errorf("final message = %q, want 'No devices found'", last)
	}
}

func TestIncrementalSweepBatchesOnlyNewDevices(t *testing.T) {
	searcher := &fakeSearcher{responses: map[string][]SSDPResponse{
		"ssdp:all": {rokuResponse()},
	}}
	fetcher := &fakeFetcher{docs: map[string]string{
		"http://192.168.1.50:8060/desc.xml": rokuDoc,
		"http://192.168.1.60:9197/desc.xml": samsungDoc,
	}}
	delegate := &recordingDelegate{}
	telemetry := &recordingTelemetry{}

	m := NewManager(searcher, fetcher, nil, delegate, telemetry)

	// Full sweep finds the Roku.
	m.StartDiscovery()
	m.Wait()

	// Incremental sweep: Roku again plus a new Samsung.
	searcher.mu.Lock()
	searcher.responses["ssdp:all"] = []SSDPResponse{
		rokuResponse(),
		{
			Host: "192.168.1.60",
			Text: "HTTP/1.1 200 OK\r\nLOCATION: http://192.168.1.60:9197/desc.xml\r\n\r\n",
		},
	}
	searcher.mu.Unlock()

	m.StartIncrementalDiscovery()
	m.Wait()

	if len(delegate.incremental) != 1 {
		t.Fatalf("incremental batches = %d, want 1", len(delegate.incremental))
	}
	batch := delegate.incremental[0]
	if len(batch) != 1 || batch[0].Brand != device.BrandSamsung {
		t.Errorf("incremental batch = %+v, want only the new Samsung", batch)
	}

	// Telemetry must not re-cover the Roku from the first sweep.
	if len(telemetry.succeeded) != 2 {
		t.Fatalf("SearchSucceeded batches = %d, want 2", len(telemetry.succeeded))
	}
	second := telemetry.succeeded[1]
	if len(second) != 1 || second[0].Brand != device.BrandSamsung {
		t.Errorf("second telemetry batch = %+v, want only the Samsung", second)
	}
}

func TestResponsesWithoutLocationAreIgnored(t *testing.T) {
	searcher := &fakeSearcher{responses: map[string][]SSDPResponse{
		"ssdp:all": {{Host: "192.168.1.99", Text: "HTTP/1.1 200 OK\r\nST: upnp:rootdevice\r\n\r\n"}},
	}}
	delegate := &recordingDelegate{}
	telemetry := &recordingTelemetry{}

	m := NewManager(searcher, &fakeFetcher{docs: map[string]string{}}, nil, delegate, telemetry)
	m.StartDiscovery()
	m.Wait()

	if len(delegate.discovered) != 0 {
		t.Errorf("a LOCATION-less response produced a device: %+v", delegate.discovered)
	}
	if telemetry.failed != 1 {
		t.Errorf("SearchFailed fired %d times, want 1", telemetry.failed)
	}
}

func TestStableID(t *testing.T) {
	if got := stableID("uuid:abc-123", "192.168.1.2", "TV"); got != "abc-123" {
		t.Errorf("stableID with UDN = %q, want abc-123", got)
	}

	// Without a UDN the ID must still be stable for the same identity.
	a := stableID("", "192.168.1.2", "TV")
	b := stableID("", "192.168.1.2", "TV")
	c := stableID("", "192.168.1.3", "TV")
	if a != b {
		t.Errorf("stableID not stable: %q vs %q", a, b)
	}
	if a == c {
		t.Errorf("stableID collided across addresses: %q", a)
	}
}
