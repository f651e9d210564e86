// Package discovery finds TVs on the local network.
//
// The SSDP engine multicasts M-SEARCH queries for several search targets in
// parallel (one UDP socket per target, staggered starts) and streams raw
// responses back. The manager fetches each response's LOCATION description
// document, classifies it by manufacturer string into a Brand, and reports
// de-duplicated devices to a DiscoveryDelegate.
//
// # Sweeps
//
// A full sweep resets all state and re-reports every device in range over a
// 5 second window. An incremental sweep keeps the known set, runs 3 seconds,
// and delivers only newly seen devices as one batch when the window closes.
//
// # De-duplication and telemetry
//
// Devices de-duplicate by (address, display name) because the same physical
// TV can be redetected with a fresh identifier. Telemetry fires "search
// failed" at most once per sweep (only when a sweep finds nothing) and
// "search succeeded" once per newly covered device per session.
//
// # Android TV supplement
//
// Full sweeps end with a short mDNS browse for the _androidtvremote2._tcp
// service, catching Android TVs that do not answer SSDP when idle.
//
// # Network Requirements
//
//   - Multicast support on the network interface
//   - Devices on the same local network segment
//   - Firewall allowing SSDP (UDP 1900) and mDNS (UDP 5353)
package discovery
