package discovery

import (
	"context"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/tvlink/tvlink/internal/device"
	"github.com/tvlink/tvlink/internal/logging"
)

const (
	// androidTVService is the mDNS service Android TVs advertise for their
	// remote-control protocol.
	androidTVService = "_androidtvremote2._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// androidTVRemotePort is the remote-control command port.
	androidTVRemotePort = 6466
)

// AndroidTVScanner finds Android TVs through mDNS. Some sets answer SSDP only
// while casting, but the remote service is always advertised, so this pass
// supplements the SSDP sweep.
type AndroidTVScanner struct{}

// NewAndroidTVScanner creates an mDNS scanner for the remote service.
func NewAndroidTVScanner() *AndroidTVScanner {
	return &AndroidTVScanner{}
}

// Scan browses for the remote service until the window elapses and returns
// every Android TV seen. Resolver failures are logged and yield an empty
// result; mDNS being unavailable must not fail the surrounding sweep.
func (s *AndroidTVScanner) Scan(ctx context.Context, window time.Duration) []*device.Device {
	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		logging.Warn("mDNS resolver unavailable", zap.Error(err))
		return nil
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var found []*device.Device

	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for entry := range entries {
			if dev := parseServiceEntry(entry); dev != nil {
				found = append(found, dev)
			}
		}
	}()

	if err := resolver.Browse(ctx, androidTVService, ServiceDomain, entries); err != nil {
		logging.Warn("mDNS browse failed", zap.Error(err))
		return nil
	}

	<-ctx.Done()
	<-collected
	return found
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// Returns nil if the entry carries no usable IPv4 address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *device.Device {
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" {
		return nil
	}

	name := entry.Instance
	if name == "" {
		name = "Android TV"
	}

	port := entry.Port
	if port == 0 {
		port = androidTVRemotePort
	}

	return &device.Device{
		ID:           stableID("", ip, name),
		Name:         name,
		Brand:        device.BrandAndroidTV,
		Address:      ip,
		Port:         port,
		DiscoveredAt: time.Now(),
	}
}
